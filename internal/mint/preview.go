package mint

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/Fantasim/dropmint/internal/config"
	"github.com/Fantasim/dropmint/internal/models"
	"github.com/Fantasim/dropmint/internal/seadrop"
)

// PreviewInput is everything BuildPreview needs, already fetched.
type PreviewInput struct {
	Wallet   common.Address
	Window   models.SaleWindow
	Balance  *big.Int
	GasPrice *big.Int
	GasLimit uint64 // per transaction
	Total    int
	Mode     models.Mode
	Now      time.Time
}

// Preview is the cost breakdown shown before a run.
type Preview struct {
	Wallet       common.Address   `json:"wallet"`
	Mode         models.Mode      `json:"mode"`
	Total        int              `json:"total"`
	State        models.DropState `json:"state"`
	StartTime    int64            `json:"startTime"`
	EndTime      int64            `json:"endTime"`
	MaxPerWallet uint16           `json:"maxPerWallet"`
	PricePerUnit *big.Int         `json:"pricePerUnit"`
	MintCost     *big.Int         `json:"mintCost"`
	GasPrice     *big.Int         `json:"gasPrice"`
	GasLimit     uint64           `json:"gasLimit"`
	Transactions int              `json:"transactions"`
	GasCostPerTx *big.Int         `json:"gasCostPerTx"`
	GasCost      *big.Int         `json:"gasCost"`
	TotalNeeded  *big.Int         `json:"totalNeeded"`
	Balance      *big.Int         `json:"balance"`
	LowBalance   bool             `json:"lowBalance"`
	OverCap      bool             `json:"overCap"`
}

// BuildPreview computes mint and gas cost for a run. Hybrid mode sends Total
// single-unit transactions; sequential mode sends one.
func BuildPreview(in PreviewInput) (*Preview, error) {
	if in.Total < 1 {
		return nil, fmt.Errorf("%w: %d", config.ErrInvalidTotal, in.Total)
	}
	if in.GasPrice == nil || in.GasPrice.Sign() <= 0 {
		return nil, config.ErrInvalidGasPrice
	}
	if in.Window.PricePerUnit == nil {
		return nil, config.ErrNoSaleWindow
	}

	txs := in.Total
	if in.Mode == models.ModeSequential {
		txs = 1
	}

	p := &Preview{
		Wallet:       in.Wallet,
		Mode:         in.Mode,
		Total:        in.Total,
		State:        Classify(in.Window, in.Now),
		StartTime:    in.Window.StartTime,
		EndTime:      in.Window.EndTime,
		MaxPerWallet: in.Window.MaxPerWallet,
		PricePerUnit: new(big.Int).Set(in.Window.PricePerUnit),
		MintCost:     seadrop.PurchaseValue(in.Window.PricePerUnit, uint64(in.Total)),
		GasPrice:     new(big.Int).Set(in.GasPrice),
		GasLimit:     in.GasLimit,
		Transactions: txs,
		Balance:      new(big.Int),
	}
	p.GasCostPerTx = new(big.Int).Mul(in.GasPrice, new(big.Int).SetUint64(in.GasLimit))
	p.GasCost = new(big.Int).Mul(p.GasCostPerTx, big.NewInt(int64(txs)))
	p.TotalNeeded = new(big.Int).Add(p.MintCost, p.GasCost)

	if in.Balance != nil {
		p.Balance.Set(in.Balance)
	}
	p.LowBalance = p.Balance.Cmp(p.TotalNeeded) < 0
	p.OverCap = in.Window.MaxPerWallet > 0 && in.Total > int(in.Window.MaxPerWallet)

	return p, nil
}

// Preview fetches the sale window, gas price and balance for addr and builds
// the cost breakdown. A low balance is logged, never returned as an error.
func (e *Engine) Preview(ctx context.Context, addr common.Address, cfg RunConfig) (*Preview, error) {
	window, err := e.sale.GetSaleWindow(ctx, cfg.NFT)
	if err != nil {
		return nil, err
	}
	gasPrice, err := e.gas.Resolve(ctx, cfg.GasPrice)
	if err != nil {
		return nil, err
	}
	balance, err := e.endpoint.BalanceAt(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch balance: %w", err)
	}

	gasLimit := cfg.GasLimit
	if cfg.Mode == models.ModeSequential {
		gasLimit = e.estimateSequentialGas(ctx, addr, window, cfg)
	}

	p, err := BuildPreview(PreviewInput{
		Wallet:   addr,
		Window:   window,
		Balance:  balance,
		GasPrice: gasPrice,
		GasLimit: gasLimit,
		Total:    cfg.Total,
		Mode:     cfg.Mode,
		Now:      e.gate.now(),
	})
	if err != nil {
		return nil, err
	}

	if p.LowBalance {
		slog.Warn("wallet balance below estimated cost",
			"wallet", addr.Hex(),
			"balance", FormatEther(p.Balance),
			"needed", FormatEther(p.TotalNeeded),
		)
	}
	if p.OverCap {
		slog.Warn("total exceeds per-wallet cap", "total", cfg.Total, "maxPerWallet", window.MaxPerWallet)
	}
	return p, nil
}

func (e *Engine) estimateSequentialGas(ctx context.Context, addr common.Address, window models.SaleWindow, cfg RunConfig) uint64 {
	data, err := seadrop.BuildPurchaseCall(uint64(cfg.Total), cfg.NFT)
	if err != nil {
		return cfg.GasLimit
	}
	to := e.purchase
	estimate, err := e.endpoint.EstimateGas(ctx, ethereum.CallMsg{
		From:  addr,
		To:    &to,
		Value: seadrop.PurchaseValue(window.PricePerUnit, uint64(cfg.Total)),
		Data:  data,
	})
	if err != nil {
		slog.Warn("gas estimate failed, using configured gas limit", "error", err, "gasLimit", cfg.GasLimit)
		return cfg.GasLimit
	}
	return estimate * config.GasEstimateBufferNum / config.GasEstimateBufferDen
}
