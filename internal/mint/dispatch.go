package mint

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/Fantasim/dropmint/internal/chain"
	"github.com/Fantasim/dropmint/internal/config"
	"github.com/Fantasim/dropmint/internal/metrics"
	"github.com/Fantasim/dropmint/internal/models"
	"github.com/Fantasim/dropmint/internal/seadrop"
)

// Signer is a wallet that can sign transactions.
type Signer interface {
	Address() common.Address
	SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// Sender submits transactions and reports the pending nonce.
type Sender interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// DispatchParams describes one burst of single-unit purchases.
type DispatchParams struct {
	Signer   Signer
	ChainID  *big.Int
	Contract common.Address // purchase contract
	NFT      common.Address
	Total    int
	Price    *big.Int // per unit, in wei
	GasPrice *big.Int
	GasLimit uint64
	Delay    time.Duration
}

func (p DispatchParams) validate() error {
	if p.Total < 1 {
		return fmt.Errorf("%w: %d", config.ErrInvalidTotal, p.Total)
	}
	if p.Signer == nil || p.ChainID == nil || p.Price == nil {
		return fmt.Errorf("%w: dispatch needs signer, chain id and price", config.ErrInvalidConfig)
	}
	if p.GasPrice == nil || p.GasPrice.Sign() <= 0 {
		return config.ErrInvalidGasPrice
	}
	if p.GasLimit == 0 {
		return fmt.Errorf("%w: gas limit must be > 0", config.ErrInvalidConfig)
	}
	return nil
}

// DispatchResult summarizes a dispatch burst.
type DispatchResult struct {
	Attempts  []models.DispatchAttempt
	Attempted int
	Submitted int
}

// Dispatcher fires purchases back to back without waiting for inclusion and
// appends every accepted hash to the ledger.
type Dispatcher struct {
	sender  Sender
	ledger  *Ledger
	sleep   Sleeper
	metrics *metrics.Metrics
	report  Reporter
}

// NewDispatcher creates a dispatcher writing to ledger.
func NewDispatcher(sender Sender, ledger *Ledger, m *metrics.Metrics, report Reporter) *Dispatcher {
	return &Dispatcher{
		sender:  sender,
		ledger:  ledger,
		sleep:   SleepContext,
		metrics: m,
		report:  report,
	}
}

// Run makes at most config.AttemptBudgetFactor*Total attempts and stops as
// soon as Total submissions were accepted. It returns a non-nil error only
// for invalid params or context cancellation; the result is valid either way.
func (d *Dispatcher) Run(ctx context.Context, p DispatchParams) (DispatchResult, error) {
	var res DispatchResult
	if err := p.validate(); err != nil {
		return res, err
	}

	data, err := seadrop.BuildPurchaseCall(config.PurchaseUnitsPerTx, p.NFT)
	if err != nil {
		return res, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	value := seadrop.PurchaseValue(p.Price, config.PurchaseUnitsPerTx)
	from := p.Signer.Address()
	budget := config.AttemptBudgetFactor * p.Total

	slog.Info("dispatch started",
		"wallet", from.Hex(),
		"total", p.Total,
		"budget", budget,
		"gasPrice", p.GasPrice.String(),
		"gasLimit", p.GasLimit,
	)

	var nonce uint64
	haveNonce := false

	for seq := 1; seq <= budget && res.Submitted < p.Total; seq++ {
		if err := ctx.Err(); err != nil {
			d.logDone(from, res, budget)
			return res, err
		}
		res.Attempted++

		if !haveNonce {
			n, err := d.sender.PendingNonceAt(ctx, from)
			if err != nil {
				d.failed(from, seq, fmt.Errorf("fetch nonce: %w", err))
				res.Attempts = append(res.Attempts, models.DispatchAttempt{Sequence: seq})
				if err := d.pause(ctx, p.Delay); err != nil {
					d.logDone(from, res, budget)
					return res, err
				}
				continue
			}
			nonce, haveNonce = n, true
		}

		hash, err := d.attempt(ctx, p, data, value, nonce)
		if err != nil {
			d.failed(from, seq, err)
			res.Attempts = append(res.Attempts, models.DispatchAttempt{Sequence: seq})
			if chain.IsNonceTooLow(err) {
				haveNonce = false
			}
		} else {
			txHash := hash.Hex()
			d.ledger.Append(models.PendingEntry{
				TxHash:   txHash,
				Sequence: seq,
				Nonce:    nonce,
			})
			res.Submitted++
			nonce++
			res.Attempts = append(res.Attempts, models.DispatchAttempt{Sequence: seq, TxHash: txHash})

			slog.Info("purchase submitted",
				"wallet", from.Hex(),
				"seq", seq,
				"txHash", ShortHash(txHash),
				"nonce", nonce-1,
				"submitted", res.Submitted,
				"total", p.Total,
			)
			d.metrics.ObserveAttempt(true)
			d.report.emit(Event{Kind: EventSubmitted, Wallet: from, Sequence: seq, TxHash: txHash})
		}

		if res.Submitted >= p.Total || seq == budget {
			break
		}
		if err := d.pause(ctx, p.Delay); err != nil {
			d.logDone(from, res, budget)
			return res, err
		}
	}

	d.logDone(from, res, budget)
	return res, nil
}

// attempt signs and sends one purchase. Panics are returned as errors.
func (d *Dispatcher) attempt(ctx context.Context, p DispatchParams, data []byte, value *big.Int, nonce uint64) (hash common.Hash, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during attempt: %v", r)
		}
	}()

	to := p.Contract
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      p.GasLimit,
		GasPrice: p.GasPrice,
		Data:     data,
	})

	signed, err := p.Signer.SignTx(tx, p.ChainID)
	if err != nil {
		return common.Hash{}, err
	}
	if err := d.sender.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, err
	}
	return signed.Hash(), nil
}

func (d *Dispatcher) failed(from common.Address, seq int, err error) {
	level := slog.LevelWarn
	if chain.IsInsufficientFunds(err) {
		level = slog.LevelError
	}
	slog.Log(context.Background(), level, "purchase attempt failed",
		"wallet", from.Hex(),
		"attempt", seq,
		"error", err,
	)
	d.metrics.ObserveAttempt(false)
	d.report.emit(Event{Kind: EventFailed, Wallet: from, Sequence: seq, Err: err})
}

func (d *Dispatcher) pause(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	return d.sleep(ctx, delay)
}

func (d *Dispatcher) logDone(from common.Address, res DispatchResult, budget int) {
	slog.Info("dispatch finished",
		"wallet", from.Hex(),
		"attempted", res.Attempted,
		"submitted", res.Submitted,
		"budget", budget,
	)
}
