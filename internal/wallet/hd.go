package wallet

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/tyler-smith/go-bip39"

	"github.com/Fantasim/dropmint/internal/config"
)

// ValidateMnemonic checks a BIP-39 phrase of 12 to 24 words.
func ValidateMnemonic(mnemonic string) error {
	words := strings.Fields(mnemonic)
	switch len(words) {
	case 12, 15, 18, 21, 24:
	default:
		return fmt.Errorf("%w: got %d words", config.ErrInvalidMnemonic, len(words))
	}
	if !bip39.IsMnemonicValid(strings.Join(words, " ")) {
		return fmt.Errorf("%w: checksum or word list mismatch", config.ErrInvalidMnemonic)
	}
	return nil
}

// ReadMnemonicFromFile reads and validates a mnemonic file.
func ReadMnemonicFromFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read mnemonic file %q: %w", path, err)
	}

	mnemonic := strings.Join(strings.Fields(string(data)), " ")
	if err := ValidateMnemonic(mnemonic); err != nil {
		return "", fmt.Errorf("mnemonic file %q: %w", path, err)
	}
	return mnemonic, nil
}

// DeriveWallets derives count EVM wallets at m/44'/60'/0'/0/0..count-1.
func DeriveWallets(mnemonic string, count int) ([]*Wallet, error) {
	if err := ValidateMnemonic(mnemonic); err != nil {
		return nil, err
	}
	if count < 1 || count > config.MaxMnemonicWallets {
		return nil, fmt.Errorf("%w: wallet count must be 1-%d, got %d",
			config.ErrInvalidConfig, config.MaxMnemonicWallets, count)
	}

	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, "")
	if err != nil {
		return nil, fmt.Errorf("mnemonic to seed: %w", err)
	}

	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("derive master key: %w", err)
	}

	parent, err := deriveChangeKey(master)
	if err != nil {
		return nil, err
	}

	wallets := make([]*Wallet, 0, count)
	for i := 0; i < count; i++ {
		child, err := parent.Derive(uint32(i))
		if err != nil {
			return nil, fmt.Errorf("derive child key at index %d: %w", i, err)
		}
		priv, err := child.ECPrivKey()
		if err != nil {
			return nil, fmt.Errorf("child private key at index %d: %w", i, err)
		}
		wallets = append(wallets, fromKey(priv.ToECDSA(), fmt.Sprintf("m/44'/60'/0'/0/%d", i)))
	}

	slog.Info("derived wallets from mnemonic", "count", count)
	return wallets, nil
}

// deriveChangeKey walks m/44'/60'/0'/0.
func deriveChangeKey(master *hdkeychain.ExtendedKey) (*hdkeychain.ExtendedKey, error) {
	path := []uint32{
		hdkeychain.HardenedKeyStart + config.BIP44Purpose,
		hdkeychain.HardenedKeyStart + config.EVMCoinType,
		hdkeychain.HardenedKeyStart + 0,
		0,
	}

	key := master
	for depth, idx := range path {
		next, err := key.Derive(idx)
		if err != nil {
			return nil, fmt.Errorf("derive level %d: %w", depth+1, err)
		}
		key = next
	}
	return key, nil
}
