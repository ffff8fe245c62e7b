package wallet

import (
	"bufio"
	"bytes"
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/Fantasim/dropmint/internal/config"
)

// Wallet is a signing account.
type Wallet struct {
	address common.Address
	// Label identifies the wallet in logs without exposing the key.
	Label string
	key   *ecdsa.PrivateKey
}

// FromHex parses a hex private key, with or without 0x prefix.
func FromHex(hexKey string) (*Wallet, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", config.ErrInvalidKey, MaskKey(hexKey), err)
	}
	return fromKey(key, MaskKey(hexKey)), nil
}

func fromKey(key *ecdsa.PrivateKey, label string) *Wallet {
	return &Wallet{
		address: crypto.PubkeyToAddress(key.PublicKey),
		Label:   label,
		key:     key,
	}
}

// Address returns the account address.
func (w *Wallet) Address() common.Address { return w.address }

// SignTx signs tx with EIP-155 replay protection for chainID.
func (w *Wallet) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	signed, err := types.SignTx(tx, types.NewEIP155Signer(chainID), w.key)
	if err != nil {
		return nil, fmt.Errorf("sign transaction for %s: %w", w.address.Hex(), err)
	}
	return signed, nil
}

// MaskKey shortens a private key to 0xabcd...ef12 for display.
func MaskKey(hexKey string) string {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if len(hexKey) < 12 {
		return "0x****"
	}
	return "0x" + hexKey[:4] + "..." + hexKey[len(hexKey)-4:]
}

// ShortAddress shortens an address to 0x1234...abcd.
func ShortAddress(addr common.Address) string {
	h := addr.Hex()
	return h[:6] + "..." + h[len(h)-4:]
}

// LoadKeyFile reads one private key per line. Blank lines and lines starting
// with # are ignored. Invalid keys are logged and skipped.
func LoadKeyFile(path string) ([]*Wallet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file %q: %w", path, err)
	}
	return ParseKeys(data)
}

// ParseKeys parses key file contents.
func ParseKeys(data []byte) ([]*Wallet, error) {
	var wallets []*Wallet
	seen := make(map[common.Address]bool)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		w, err := FromHex(line)
		if err != nil {
			slog.Error("skipping invalid private key", "line", lineNo, "error", err)
			continue
		}
		if seen[w.address] {
			slog.Warn("skipping duplicate key", "line", lineNo, "address", w.address.Hex())
			continue
		}
		seen[w.address] = true
		wallets = append(wallets, w)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan key file: %w", err)
	}

	if len(wallets) == 0 {
		return nil, config.ErrNoKeys
	}

	slog.Info("loaded wallets", "count", len(wallets))
	return wallets, nil
}
