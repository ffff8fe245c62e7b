package mint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Fantasim/dropmint/internal/chain"
	"github.com/Fantasim/dropmint/internal/config"
	"github.com/Fantasim/dropmint/internal/metrics"
	"github.com/Fantasim/dropmint/internal/models"
)

// SaleReader reads a drop's public sale window.
type SaleReader interface {
	GetSaleWindow(ctx context.Context, nft common.Address) (models.SaleWindow, error)
}

// Store persists runs and their ledger entries.
type Store interface {
	CreateRun(run models.Run) error
	FinishRun(id string, outcome models.RunOutcome, tally models.RunTally, runErr string) error
	UpsertRunTx(tx models.RunTx) error
}

// EngineOptions configures an Engine. Zero values use defaults.
type EngineOptions struct {
	ChainID       int64
	MultiMint     common.Address
	GasMultiplier float64
	Store         Store
	Metrics       *metrics.Metrics
	Reporter      Reporter
	Clock         Clock
	Sleeper       Sleeper
}

// RunConfig is the per-invocation run configuration, gathered once before
// the engine starts.
type RunConfig struct {
	NFT           common.Address
	Total         int
	GasPrice      string // gwei, blank for suggested price
	GasLimit      uint64
	DispatchDelay time.Duration
	Poll          PollerConfig
	Mode          models.Mode
}

// WalletResult is the outcome of one wallet run.
type WalletResult struct {
	RunID    string
	Wallet   common.Address
	Outcome  models.RunOutcome
	Tally    models.RunTally
	GasPrice *big.Int
	Err      error

	// LowBalance is set when the preflight found the wallet short of the
	// estimated cost. The run still dispatches.
	LowBalance bool

	recorded bool
}

// Engine runs purchases for a list of wallets against one chain.
type Engine struct {
	endpoint chain.Endpoint
	sale     SaleReader
	purchase common.Address
	chainID  *big.Int
	gas      *GasResolver
	gate     *Gate
	store    Store
	metrics  *metrics.Metrics
	report   Reporter
	sleep    Sleeper
}

// NewEngine creates an engine over endpoint.
func NewEngine(endpoint chain.Endpoint, sale SaleReader, opts EngineOptions) *Engine {
	sleep := opts.Sleeper
	if sleep == nil {
		sleep = SleepContext
	}
	return &Engine{
		endpoint: endpoint,
		sale:     sale,
		purchase: opts.MultiMint,
		chainID:  big.NewInt(opts.ChainID),
		gas:      NewGasResolver(endpoint, opts.GasMultiplier),
		gate:     NewGateWith(opts.Clock, sleep),
		store:    opts.Store,
		metrics:  opts.Metrics,
		report:   opts.Reporter,
		sleep:    sleep,
	}
}

// RunAll runs each wallet in turn. A failed wallet does not stop the next
// one; cancellation does.
func (e *Engine) RunAll(ctx context.Context, wallets []Signer, cfg RunConfig) []WalletResult {
	results := make([]WalletResult, 0, len(wallets))
	for i, w := range wallets {
		if ctx.Err() != nil {
			slog.Warn("run cancelled, skipping remaining wallets", "remaining", len(wallets)-i)
			break
		}
		slog.Info("starting wallet run", "index", i+1, "of", len(wallets), "wallet", w.Address().Hex())
		results = append(results, e.Run(ctx, w, cfg))
	}
	return results
}

// Run executes one wallet's purchase: read the sale window, resolve gas,
// wait for the drop, then dispatch and reconcile.
func (e *Engine) Run(ctx context.Context, w Signer, cfg RunConfig) WalletResult {
	res := WalletResult{
		RunID:  uuid.New().String(),
		Wallet: w.Address(),
		Tally:  models.RunTally{Target: cfg.Total},
	}
	if cfg.Mode == "" {
		cfg.Mode = models.ModeHybrid
	}
	log := slog.With("runID", res.RunID, "wallet", res.Wallet.Hex(), "mode", cfg.Mode)

	if cfg.Total < 1 {
		return e.finish(log, res, cfg, models.OutcomeConfigError, fmt.Errorf("%w: %d", config.ErrInvalidTotal, cfg.Total))
	}

	window, err := e.sale.GetSaleWindow(ctx, cfg.NFT)
	if err != nil {
		return e.finish(log, res, cfg, models.OutcomeConfigError, err)
	}
	log.Info("sale window loaded",
		"price", window.PricePerUnit.String(),
		"start", window.Start().UTC().Format(time.RFC3339),
		"end", window.End().UTC().Format(time.RFC3339),
		"maxPerWallet", window.MaxPerWallet,
	)

	gasPrice, err := e.gas.Resolve(ctx, cfg.GasPrice)
	if err != nil {
		return e.finish(log, res, cfg, models.OutcomeConfigError, err)
	}
	res.GasPrice = gasPrice

	if cfg.Mode == models.ModeHybrid {
		res.LowBalance = e.checkBalance(ctx, log, res.Wallet, window, gasPrice, cfg)
	}

	res.recorded = e.createRun(log, res, cfg)

	if _, err := e.gate.Wait(ctx, window); err != nil {
		if errors.Is(err, config.ErrSaleClosed) {
			return e.finish(log, res, cfg, models.OutcomeSaleClosed, err)
		}
		return e.finish(log, res, cfg, models.OutcomeCancelled, err)
	}

	ledger := NewLedger()
	var rec *recorder
	if e.store != nil {
		rec = newRecorder(e.store, res.RunID, config.RecorderBufferSize)
		ledger.OnChange(rec.record)
	}

	params := DispatchParams{
		Signer:   w,
		ChainID:  e.chainID,
		Contract: e.purchase,
		NFT:      cfg.NFT,
		Total:    cfg.Total,
		Price:    window.PricePerUnit,
		GasPrice: gasPrice,
		GasLimit: cfg.GasLimit,
		Delay:    cfg.DispatchDelay,
	}
	report := e.walletReporter(res.Wallet)

	var (
		attempted int
		limitHit  bool
		runErr    error
	)
	if cfg.Mode == models.ModeSequential {
		minter := NewSequentialMinter(e.endpoint, ledger, cfg.Poll, e.metrics, report)
		minter.sleep = e.sleep
		sr, err := minter.Run(ctx, params)
		attempted, limitHit, runErr = sr.Attempted, sr.LimitHit, err
		// One transaction carries every unit.
		res.Tally.Target = 1
	} else {
		attempted, limitHit, runErr = e.runHybrid(ctx, ledger, params, cfg.Poll, report)
	}

	if rec != nil {
		rec.close()
	}

	tally := ledger.Tally()
	tally.Target = res.Tally.Target
	tally.Attempted = attempted
	res.Tally = tally

	switch {
	case ctx.Err() != nil:
		return e.finish(log, res, cfg, models.OutcomeCancelled, ctx.Err())
	case runErr != nil && isConfigError(runErr):
		return e.finish(log, res, cfg, models.OutcomeConfigError, runErr)
	case limitHit:
		return e.finish(log, res, cfg, models.OutcomePollLimit, fmt.Errorf("%w: %d unresolved", config.ErrPollLimit, tally.Unresolved))
	default:
		return e.finish(log, res, cfg, models.OutcomeCompleted, runErr)
	}
}

// checkBalance warns when addr cannot cover price*total plus gas for every
// transaction. It never stops the run; a failed balance read is logged and
// skipped. Sequential mode has its own halting preflight.
func (e *Engine) checkBalance(ctx context.Context, log *slog.Logger, addr common.Address, window models.SaleWindow, gasPrice *big.Int, cfg RunConfig) bool {
	balance, err := e.endpoint.BalanceAt(ctx, addr, nil)
	if err != nil {
		log.Warn("balance preflight skipped", "error", err)
		return false
	}

	p, err := BuildPreview(PreviewInput{
		Wallet:   addr,
		Window:   window,
		Balance:  balance,
		GasPrice: gasPrice,
		GasLimit: cfg.GasLimit,
		Total:    cfg.Total,
		Mode:     cfg.Mode,
		Now:      e.gate.now(),
	})
	if err != nil {
		log.Warn("balance preflight skipped", "error", err)
		return false
	}

	if p.LowBalance {
		log.Warn("insufficient balance for full run, dispatching anyway",
			"balance", FormatEther(p.Balance),
			"needed", FormatEther(p.TotalNeeded),
			"mintCost", FormatEther(p.MintCost),
			"gasCost", FormatEther(p.GasCost),
		)
	}
	return p.LowBalance
}

// runHybrid runs the dispatcher and the poller concurrently over ledger.
func (e *Engine) runHybrid(ctx context.Context, ledger *Ledger, p DispatchParams, poll PollerConfig, report Reporter) (attempted int, limitHit bool, err error) {
	dispatcher := NewDispatcher(e.endpoint, ledger, e.metrics, report)
	dispatcher.sleep = e.sleep
	poller := NewPoller(e.endpoint, ledger, poll, e.metrics, report)

	dispatchDone := make(chan struct{})
	var (
		dr DispatchResult
		pr PollResult
	)

	var g errgroup.Group
	g.Go(func() error {
		defer close(dispatchDone)
		var err error
		dr, err = dispatcher.Run(ctx, p)
		return err
	})
	g.Go(func() error {
		var err error
		pr, err = poller.Run(ctx, p.Total, dispatchDone)
		return err
	})
	err = g.Wait()

	if dr.Submitted < p.Total {
		slog.Warn("dispatch fell short of target",
			"wallet", p.Signer.Address().Hex(),
			"submitted", dr.Submitted,
			"total", p.Total,
			"attempted", dr.Attempted,
		)
	}
	return dr.Attempted, pr.LimitHit, err
}

func (e *Engine) walletReporter(wallet common.Address) Reporter {
	if e.report == nil {
		return nil
	}
	return func(ev Event) {
		ev.Wallet = wallet
		e.report(ev)
	}
}

func (e *Engine) createRun(log *slog.Logger, res WalletResult, cfg RunConfig) bool {
	if e.store == nil {
		return false
	}
	gasPrice := ""
	if res.GasPrice != nil {
		gasPrice = res.GasPrice.String()
	}
	err := e.store.CreateRun(models.Run{
		ID:       res.RunID,
		Wallet:   res.Wallet.Hex(),
		ChainID:  e.chainID.Int64(),
		NFT:      cfg.NFT.Hex(),
		Mode:     cfg.Mode,
		GasPrice: gasPrice,
		Tally:    res.Tally,
	})
	if err != nil {
		log.Error("failed to record run start", "error", err)
		return false
	}
	return true
}

func (e *Engine) finish(log *slog.Logger, res WalletResult, cfg RunConfig, outcome models.RunOutcome, err error) WalletResult {
	res.Outcome = outcome
	res.Err = err

	errText := ""
	if err != nil {
		errText = err.Error()
	}

	if e.store != nil {
		if !res.recorded {
			// Failed before the gate.
			res.recorded = e.createRun(log, res, cfg)
		}
		if ferr := e.store.FinishRun(res.RunID, outcome, res.Tally, errText); ferr != nil {
			log.Error("failed to record run outcome", "error", ferr)
		}
	}
	e.metrics.ObserveRun(string(outcome))

	attrs := []any{
		"outcome", outcome,
		"target", res.Tally.Target,
		"attempted", res.Tally.Attempted,
		"submitted", res.Tally.Submitted,
		"confirmed", res.Tally.Confirmed,
		"reverted", res.Tally.Reverted,
		"unresolved", res.Tally.Unresolved,
	}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	if outcome == models.OutcomeCompleted && err == nil {
		log.Info("wallet run finished", attrs...)
	} else {
		log.Warn("wallet run finished", attrs...)
	}
	return res
}

func isConfigError(err error) bool {
	return errors.Is(err, config.ErrInvalidConfig) ||
		errors.Is(err, config.ErrInvalidTotal) ||
		errors.Is(err, config.ErrInvalidGasPrice) ||
		errors.Is(err, config.ErrInsufficientFunds)
}

// recorder persists ledger changes on its own goroutine, in the order they
// changed. Writes are queued up to the buffer size; once the queue is full,
// record blocks, and because it runs under the ledger lock a store that
// cannot keep up stalls dispatch and polling until it drains. Changes are
// never dropped.
type recorder struct {
	store Store
	runID string
	ch    chan models.PendingEntry
	done  chan struct{}
}

func newRecorder(store Store, runID string, size int) *recorder {
	r := &recorder{
		store: store,
		runID: runID,
		ch:    make(chan models.PendingEntry, size),
		done:  make(chan struct{}),
	}
	go r.loop()
	return r
}

func (r *recorder) record(e models.PendingEntry) {
	r.ch <- e
}

func (r *recorder) loop() {
	defer close(r.done)
	for e := range r.ch {
		err := r.store.UpsertRunTx(models.RunTx{
			RunID:       r.runID,
			TxHash:      e.TxHash,
			Sequence:    e.Sequence,
			Nonce:       e.Nonce,
			Status:      e.Status,
			BlockNumber: e.BlockNumber,
			SubmittedAt: formatTime(e.SubmittedAt),
			ResolvedAt:  formatTime(e.ResolvedAt),
		})
		if err != nil {
			slog.Error("failed to record ledger entry", "runID", r.runID, "txHash", ShortHash(e.TxHash), "error", err)
		}
	}
}

// close flushes pending writes. The ledger must not change afterwards.
func (r *recorder) close() {
	close(r.ch)
	<-r.done
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
