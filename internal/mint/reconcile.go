package mint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/Fantasim/dropmint/internal/config"
	"github.com/Fantasim/dropmint/internal/metrics"
	"github.com/Fantasim/dropmint/internal/models"
)

// ReceiptSource looks up transaction receipts.
type ReceiptSource interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// PollState is the poller's position in its lifecycle.
type PollState string

const (
	// PollRunning means unchecked entries are being queried.
	PollRunning PollState = "running"
	// PollDraining means nothing is unchecked but dispatch has not finished.
	PollDraining PollState = "draining"
	PollDone     PollState = "done"
)

// PollerConfig controls tick cadence and the optional hard limits. Zero
// limits mean unbounded.
type PollerConfig struct {
	Interval    time.Duration
	MaxTicks    int
	MaxDuration time.Duration
}

// PollResult summarizes a finished poll loop.
type PollResult struct {
	Ticks    int
	State    PollState
	LimitHit bool
}

// Poller resolves ledger entries from transaction receipts.
type Poller struct {
	source  ReceiptSource
	ledger  *Ledger
	cfg     PollerConfig
	metrics *metrics.Metrics
	report  Reporter
}

// NewPoller creates a poller over ledger.
func NewPoller(source ReceiptSource, ledger *Ledger, cfg PollerConfig, m *metrics.Metrics, report Reporter) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = config.DefaultPollInterval
	}
	return &Poller{
		source:  source,
		ledger:  ledger,
		cfg:     cfg,
		metrics: m,
		report:  report,
	}
}

// Run ticks until the confirmed count reaches target, or until a tick after
// dispatchDone is closed leaves nothing pending, or a configured limit is
// hit. A nil dispatchDone means dispatch has already finished. Entries still
// unchecked when Run returns stay unchecked in the ledger.
func (p *Poller) Run(ctx context.Context, target int, dispatchDone <-chan struct{}) (PollResult, error) {
	res := PollResult{State: PollRunning}

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if p.cfg.MaxDuration > 0 {
		timer := time.NewTimer(p.cfg.MaxDuration)
		defer timer.Stop()
		deadline = timer.C
	}

	finished := dispatchDone == nil
	done := dispatchDone

	for {
		select {
		case <-ctx.Done():
			return res, ctx.Err()

		case <-deadline:
			res.LimitHit = true
			p.logLimit(res, "max duration")
			return res, nil

		case <-done:
			done = nil
			finished = true
			if len(p.ledger.Unchecked()) == 0 {
				res.State = PollDone
				slog.Info("reconciliation done, nothing pending after dispatch", "ticks", res.Ticks)
				return res, nil
			}

		case <-ticker.C:
			if !finished {
				select {
				case <-dispatchDone:
					finished = true
					done = nil
				default:
				}
			}

			res.Ticks++
			pending := p.tick(ctx, res.Ticks)
			tally := p.ledger.Tally()

			switch {
			case tally.Confirmed >= target:
				res.State = PollDone
			case finished && pending == 0:
				res.State = PollDone
			case pending == 0:
				res.State = PollDraining
			default:
				res.State = PollRunning
			}

			slog.Info("reconciliation tick",
				"tick", res.Ticks,
				"state", res.State,
				"confirmed", tally.Confirmed,
				"reverted", tally.Reverted,
				"pending", pending,
			)
			p.metrics.ObserveTick(pending)
			p.report.emit(Event{
				Kind:      EventTick,
				Tick:      res.Ticks,
				Pending:   pending,
				Confirmed: tally.Confirmed,
				Reverted:  tally.Reverted,
			})

			if res.State == PollDone {
				return res, nil
			}
			if err := ctx.Err(); err != nil {
				return res, err
			}
			if p.cfg.MaxTicks > 0 && res.Ticks >= p.cfg.MaxTicks {
				res.LimitHit = true
				p.logLimit(res, "max ticks")
				return res, nil
			}
		}
	}
}

// tick checks every unchecked entry once and returns how many are still
// pending.
func (p *Poller) tick(ctx context.Context, n int) int {
	entries := p.ledger.Unchecked()
	pending := 0

	for i, e := range entries {
		if ctx.Err() != nil {
			pending += len(entries) - i
			break
		}

		status, block, err := p.check(ctx, e.TxHash)
		if err != nil {
			slog.Warn("receipt check failed, still pending",
				"tick", n,
				"seq", e.Sequence,
				"txHash", ShortHash(e.TxHash),
				"error", err,
			)
			pending++
			continue
		}
		if !status.Terminal() {
			pending++
			continue
		}

		if !p.ledger.Resolve(e.TxHash, status, block) {
			continue
		}

		kind := EventConfirmed
		if status == models.StatusReverted {
			kind = EventReverted
			slog.Warn("purchase reverted", "seq", e.Sequence, "txHash", ShortHash(e.TxHash), "block", block)
		} else {
			slog.Info("purchase confirmed", "seq", e.Sequence, "txHash", ShortHash(e.TxHash), "block", block)
		}
		p.metrics.ObserveReceipt(string(status))
		p.report.emit(Event{Kind: kind, Sequence: e.Sequence, TxHash: e.TxHash})
	}

	return pending
}

// check classifies one receipt. A missing receipt is unchecked with no error;
// any other failure is returned so the caller keeps the entry pending.
func (p *Poller) check(ctx context.Context, txHash string) (status models.EntryStatus, block uint64, err error) {
	defer func() {
		if r := recover(); r != nil {
			status, block, err = models.StatusUnchecked, 0, fmt.Errorf("panic during receipt check: %v", r)
		}
	}()

	cctx, cancel := context.WithTimeout(ctx, config.ReceiptCheckTimeout)
	defer cancel()

	receipt, err := p.source.TransactionReceipt(cctx, common.HexToHash(txHash))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return models.StatusUnchecked, 0, nil
		}
		return models.StatusUnchecked, 0, err
	}
	if receipt == nil {
		return models.StatusUnchecked, 0, nil
	}

	if receipt.BlockNumber != nil {
		block = receipt.BlockNumber.Uint64()
	}
	if receipt.Status == types.ReceiptStatusSuccessful {
		return models.StatusConfirmed, block, nil
	}
	return models.StatusReverted, block, nil
}

func (p *Poller) logLimit(res PollResult, reason string) {
	tally := p.ledger.Tally()
	slog.Warn("reconciliation stopped by poll limit",
		"reason", reason,
		"ticks", res.Ticks,
		"confirmed", tally.Confirmed,
		"reverted", tally.Reverted,
		"unresolved", tally.Unresolved,
	)
}
