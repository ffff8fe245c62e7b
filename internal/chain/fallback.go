package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/Fantasim/dropmint/internal/config"
)

// SendTransaction broadcasts tx to the primary endpoint and falls back down
// the list when the primary cannot be reached. A node rejection of the
// transaction itself is returned as is without trying further endpoints.
func (p *Pool) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if len(p.members) == 0 {
		return config.ErrNoEndpoint
	}

	hash := tx.Hash().Hex()
	var firstErr error
	var allErrors []error

	for i, m := range p.members {
		if !m.breaker.Allow() {
			allErrors = append(allErrors, fmt.Errorf("%s: %w", m.name, config.ErrCircuitOpen))
			continue
		}

		started := time.Now()
		err := m.ep.SendTransaction(ctx, tx)
		p.metrics.ObserveRPC("eth_sendRawTransaction", started, err)

		if err == nil || isAlreadyKnown(err) {
			m.breaker.RecordSuccess()
			if i > 0 {
				slog.Info("fallback broadcast succeeded", "txHash", hash, "endpoint", m.name)
			}
			return nil
		}

		if ctx.Err() != nil {
			return err
		}
		if isRejection(err) {
			m.breaker.RecordSuccess()
			return err
		}

		m.breaker.RecordFailure(err)
		if firstErr == nil {
			firstErr = err
		}
		allErrors = append(allErrors, fmt.Errorf("%s: %w", m.name, err))
		slog.Warn("broadcast failed, trying fallback endpoint",
			"txHash", hash,
			"endpoint", m.name,
			"error", err,
		)
	}

	if firstErr == nil {
		firstErr = config.ErrCircuitOpen
	}
	slog.Error("broadcast failed on every endpoint", "txHash", hash, "errors", errors.Join(allErrors...))
	// The primary's error is usually the informative one.
	return config.NewTransientError(fmt.Errorf("%w: %w", config.ErrAllProvidersFailed, firstErr))
}

// isAlreadyKnown reports that the node already holds this exact transaction.
func isAlreadyKnown(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "already known")
}
