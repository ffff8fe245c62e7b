package mint

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/Fantasim/dropmint/internal/chain"
	"github.com/Fantasim/dropmint/internal/config"
	"github.com/Fantasim/dropmint/internal/metrics"
	"github.com/Fantasim/dropmint/internal/models"
	"github.com/Fantasim/dropmint/internal/seadrop"
)

// SequentialResult summarizes a sequential mint.
type SequentialResult struct {
	Attempted int
	Submitted int
	Confirmed bool
	LimitHit  bool
}

// SequentialMinter buys all units in one transaction and waits for its
// receipt before retrying. Unlike the dispatcher it halts when the wallet
// cannot cover the purchase.
type SequentialMinter struct {
	endpoint    chain.Endpoint
	ledger      *Ledger
	poll        PollerConfig
	sleep       Sleeper
	metrics     *metrics.Metrics
	report      Reporter
	maxAttempts int
	retryDelay  time.Duration
}

// NewSequentialMinter creates a minter that records its transactions in ledger.
func NewSequentialMinter(endpoint chain.Endpoint, ledger *Ledger, poll PollerConfig, m *metrics.Metrics, report Reporter) *SequentialMinter {
	return &SequentialMinter{
		endpoint:    endpoint,
		ledger:      ledger,
		poll:        poll,
		sleep:       SleepContext,
		metrics:     m,
		report:      report,
		maxAttempts: config.SequentialMaxAttempts,
		retryDelay:  config.SequentialRetryDelay,
	}
}

// Run sends mintMulti(p.Total) until one transaction confirms or the attempt
// limit is reached. p.GasLimit is ignored; the limit comes from EstimateGas
// plus a 20% buffer.
func (s *SequentialMinter) Run(ctx context.Context, p DispatchParams) (SequentialResult, error) {
	var res SequentialResult
	if err := p.validate(); err != nil {
		return res, err
	}

	qty := uint64(p.Total)
	data, err := seadrop.BuildPurchaseCall(qty, p.NFT)
	if err != nil {
		return res, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	value := seadrop.PurchaseValue(p.Price, qty)
	from := p.Signer.Address()

	balance, err := s.endpoint.BalanceAt(ctx, from, nil)
	if err != nil {
		return res, fmt.Errorf("fetch balance: %w", err)
	}
	if balance.Cmp(value) < 0 {
		slog.Error("insufficient balance for sequential mint",
			"wallet", from.Hex(),
			"balance", FormatEther(balance),
			"required", FormatEther(value),
		)
		return res, fmt.Errorf("%w: have %s, need %s", config.ErrInsufficientFunds, balance, value)
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Attempted++

		txHash, err := s.send(ctx, p, data, value, attempt)
		if err != nil {
			slog.Warn("sequential mint attempt failed",
				"wallet", from.Hex(),
				"attempt", attempt,
				"error", err,
			)
			s.metrics.ObserveAttempt(false)
			s.report.emit(Event{Kind: EventFailed, Wallet: from, Sequence: attempt, Err: err})
		} else {
			res.Submitted++
			s.metrics.ObserveAttempt(true)
			s.report.emit(Event{Kind: EventSubmitted, Wallet: from, Sequence: attempt, TxHash: txHash})

			// Wait for this one transaction with the regular poller.
			poller := NewPoller(s.endpoint, s.ledger, s.poll, s.metrics, s.report)
			pr, err := poller.Run(ctx, 1, nil)
			if err != nil {
				return res, err
			}
			if pr.LimitHit {
				res.LimitHit = true
				return res, nil
			}
			if s.ledger.Tally().Confirmed > 0 {
				res.Confirmed = true
				slog.Info("sequential mint confirmed", "wallet", from.Hex(), "attempt", attempt, "txHash", ShortHash(txHash))
				return res, nil
			}
			slog.Warn("sequential mint reverted, retrying", "wallet", from.Hex(), "attempt", attempt, "txHash", ShortHash(txHash))
		}

		if attempt < s.maxAttempts {
			if err := s.sleep(ctx, s.retryDelay); err != nil {
				return res, err
			}
		}
	}

	return res, fmt.Errorf("%w: %d sequential attempts", config.ErrAttemptsExhausted, s.maxAttempts)
}

// send estimates, signs and submits one purchase and appends it to the ledger.
func (s *SequentialMinter) send(ctx context.Context, p DispatchParams, data []byte, value *big.Int, attempt int) (txHash string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during sequential attempt: %v", r)
		}
	}()

	from := p.Signer.Address()
	to := p.Contract

	nonce, err := s.endpoint.PendingNonceAt(ctx, from)
	if err != nil {
		return "", fmt.Errorf("fetch nonce: %w", err)
	}

	estimate, err := s.endpoint.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    &to,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return "", fmt.Errorf("estimate gas: %w", err)
	}
	gasLimit := estimate * config.GasEstimateBufferNum / config.GasEstimateBufferDen

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gasLimit,
		GasPrice: p.GasPrice,
		Data:     data,
	})
	signed, err := p.Signer.SignTx(tx, p.ChainID)
	if err != nil {
		return "", err
	}
	if err := s.endpoint.SendTransaction(ctx, signed); err != nil {
		return "", err
	}

	txHash = signed.Hash().Hex()
	s.ledger.Append(models.PendingEntry{TxHash: txHash, Sequence: attempt, Nonce: nonce})
	slog.Info("sequential mint submitted",
		"wallet", from.Hex(),
		"attempt", attempt,
		"txHash", ShortHash(txHash),
		"gasLimit", gasLimit,
		"units", p.Total,
	)
	return txHash, nil
}
