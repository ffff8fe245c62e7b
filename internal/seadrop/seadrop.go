// Package seadrop reads public drop windows from the SeaDrop contract and
// encodes purchases through the MultiMint contract.
package seadrop

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/Fantasim/dropmint/internal/config"
	"github.com/Fantasim/dropmint/internal/models"
)

const saleABIJSON = `[{
	"type": "function",
	"name": "getPublicDrop",
	"stateMutability": "view",
	"inputs": [{"name": "nftContract", "type": "address"}],
	"outputs": [{
		"name": "",
		"type": "tuple",
		"components": [
			{"name": "mintPrice", "type": "uint80"},
			{"name": "startTime", "type": "uint48"},
			{"name": "endTime", "type": "uint48"},
			{"name": "maxTotalMintableByWallet", "type": "uint16"},
			{"name": "feeBps", "type": "uint16"},
			{"name": "restrictFeeRecipients", "type": "bool"}
		]
	}]
}]`

const purchaseABIJSON = `[{
	"type": "function",
	"name": "mintMulti",
	"stateMutability": "payable",
	"inputs": [
		{"name": "total", "type": "uint256"},
		{"name": "nftaddress", "type": "address"}
	],
	"outputs": []
}]`

var (
	saleABI     = mustParseABI(saleABIJSON)
	purchaseABI = mustParseABI(purchaseABIJSON)
)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(fmt.Sprintf("parse abi: %v", err))
	}
	return parsed
}

// publicDrop mirrors the getPublicDrop tuple. Field names follow the ABI
// component names so abi.ConvertType can fill it.
type publicDrop struct {
	MintPrice                *big.Int
	StartTime                *big.Int
	EndTime                  *big.Int
	MaxTotalMintableByWallet uint16
	FeeBps                   uint16
	RestrictFeeRecipients    bool
}

// Caller is the read-only contract call capability.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// SaleView reads drop configuration from a SeaDrop deployment.
type SaleView struct {
	caller  Caller
	address common.Address
}

// NewSaleView binds a SaleView to the SeaDrop contract at address.
func NewSaleView(caller Caller, address common.Address) *SaleView {
	return &SaleView{caller: caller, address: address}
}

// Address returns the bound contract address.
func (v *SaleView) Address() common.Address { return v.address }

// GetSaleWindow returns the public drop window configured for nft.
func (v *SaleView) GetSaleWindow(ctx context.Context, nft common.Address) (models.SaleWindow, error) {
	data, err := saleABI.Pack("getPublicDrop", nft)
	if err != nil {
		return models.SaleWindow{}, fmt.Errorf("pack getPublicDrop: %w", err)
	}

	to := v.address
	out, err := v.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return models.SaleWindow{}, fmt.Errorf("%w: getPublicDrop(%s): %w", config.ErrNoSaleWindow, nft.Hex(), err)
	}

	window, err := decodeSaleWindow(out)
	if err != nil {
		return models.SaleWindow{}, fmt.Errorf("%w: %s: %w", config.ErrNoSaleWindow, nft.Hex(), err)
	}

	slog.Debug("sale window fetched",
		"nft", nft.Hex(),
		"price", window.PricePerUnit.String(),
		"start", window.StartTime,
		"end", window.EndTime,
		"maxPerWallet", window.MaxPerWallet,
	)
	return window, nil
}

func decodeSaleWindow(out []byte) (window models.SaleWindow, err error) {
	if len(out) == 0 {
		return window, fmt.Errorf("empty response, no SeaDrop contract at address?")
	}

	values, err := saleABI.Unpack("getPublicDrop", out)
	if err != nil {
		return window, fmt.Errorf("decode getPublicDrop: %w", err)
	}
	if len(values) != 1 {
		return window, fmt.Errorf("decode getPublicDrop: got %d values, want 1", len(values))
	}

	// ConvertType panics on shape mismatch.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decode getPublicDrop: %v", r)
		}
	}()
	drop := *abi.ConvertType(values[0], new(publicDrop)).(*publicDrop)

	window = models.SaleWindow{
		PricePerUnit:          drop.MintPrice,
		StartTime:             drop.StartTime.Int64(),
		EndTime:               drop.EndTime.Int64(),
		MaxPerWallet:          drop.MaxTotalMintableByWallet,
		FeeBps:                drop.FeeBps,
		RestrictFeeRecipients: drop.RestrictFeeRecipients,
	}
	if err := window.Validate(); err != nil {
		return models.SaleWindow{}, err
	}
	return window, nil
}

// BuildPurchaseCall encodes mintMulti(qty, nft).
func BuildPurchaseCall(qty uint64, nft common.Address) ([]byte, error) {
	if qty == 0 {
		return nil, fmt.Errorf("purchase quantity must be >= 1")
	}
	data, err := purchaseABI.Pack("mintMulti", new(big.Int).SetUint64(qty), nft)
	if err != nil {
		return nil, fmt.Errorf("pack mintMulti: %w", err)
	}
	return data, nil
}

// PurchaseValue returns the value to attach for qty units at price.
func PurchaseValue(price *big.Int, qty uint64) *big.Int {
	return new(big.Int).Mul(price, new(big.Int).SetUint64(qty))
}
