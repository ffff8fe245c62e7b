package chain

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Fantasim/dropmint/internal/config"
)

// HealthCheckResult is the outcome of probing one endpoint.
type HealthCheckResult struct {
	Endpoint string
	ChainID  int64
	OK       bool
	Latency  time.Duration
	Error    error
}

// RunHealthChecks probes every pool member with eth_chainId and feeds the
// result into its circuit breaker. Failures are logged, never fatal.
func (p *Pool) RunHealthChecks(ctx context.Context) []HealthCheckResult {
	slog.Info("running endpoint health checks", "chainID", p.chainID, "endpoints", len(p.members))

	results := make([]HealthCheckResult, len(p.members))
	var wg sync.WaitGroup

	for i, m := range p.members {
		wg.Add(1)
		go func() {
			defer wg.Done()

			checkCtx, cancel := context.WithTimeout(ctx, config.HealthCheckTimeout)
			defer cancel()

			start := time.Now()
			got, err := m.ep.ChainID(checkCtx)
			if err == nil && got.Int64() != p.chainID {
				err = fmt.Errorf("endpoint reports chain %s, want %d", got, p.chainID)
			}
			latency := time.Since(start)

			results[i] = HealthCheckResult{
				Endpoint: m.name,
				ChainID:  p.chainID,
				OK:       err == nil,
				Latency:  latency,
				Error:    err,
			}

			if err != nil {
				m.breaker.RecordFailure(err)
				slog.Warn("endpoint health check FAILED",
					"endpoint", m.name,
					"latency", latency.Round(time.Millisecond),
					"error", err,
				)
				return
			}
			m.breaker.RecordSuccess()
			slog.Info("endpoint health check OK",
				"endpoint", m.name,
				"latency", latency.Round(time.Millisecond),
			)
		}()
	}
	wg.Wait()

	ok := 0
	for _, r := range results {
		if r.OK {
			ok++
		}
	}
	slog.Info("endpoint health checks complete",
		"total", len(results),
		"ok", ok,
		"failed", len(results)-ok,
	)

	return results
}
