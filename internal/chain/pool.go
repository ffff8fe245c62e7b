package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/Fantasim/dropmint/internal/config"
	"github.com/Fantasim/dropmint/internal/metrics"
	"github.com/Fantasim/dropmint/internal/models"
)

// Member is one endpoint handed to a Pool.
type Member struct {
	URL      string
	Endpoint Endpoint
	// Close releases the connection. Optional.
	Close func()
}

type poolMember struct {
	name    string
	ep      Endpoint
	breaker *CircuitBreaker
	close   func()
}

// Pool is an Endpoint over several RPC URLs of one chain. Calls go to the
// first member whose circuit is closed and fail over down the list.
type Pool struct {
	chainID int64
	members []*poolMember
	metrics *metrics.Metrics
}

var _ Endpoint = (*Pool)(nil)

// NewPool creates a pool. Members keep their order; the first is the primary.
func NewPool(chainID int64, m *metrics.Metrics, members ...Member) *Pool {
	p := &Pool{chainID: chainID, metrics: m}
	names := make([]string, 0, len(members))
	for _, mem := range members {
		name := MaskURL(mem.URL)
		names = append(names, name)
		p.members = append(p.members, &poolMember{
			name:    name,
			ep:      mem.Endpoint,
			breaker: NewCircuitBreaker(name, config.CircuitBreakerThreshold, config.CircuitBreakerCooldown),
			close:   mem.Close,
		})
	}

	slog.Info("endpoint pool created",
		"chainID", chainID,
		"endpoints", names,
		"count", len(members),
	)
	return p
}

// Chain returns the chain ID the pool was connected for.
func (p *Pool) Chain() int64 { return p.chainID }

// Size returns the number of endpoints.
func (p *Pool) Size() int { return len(p.members) }

// Primary returns the masked URL of the first endpoint.
func (p *Pool) Primary() string {
	if len(p.members) == 0 {
		return ""
	}
	return p.members[0].name
}

// Close closes every member connection.
func (p *Pool) Close() {
	for _, m := range p.members {
		if m.close != nil {
			m.close()
		}
	}
}

// Health returns the breaker view of every member.
func (p *Pool) Health() []models.EndpointHealth {
	out := make([]models.EndpointHealth, 0, len(p.members))
	for _, m := range p.members {
		out = append(out, models.EndpointHealth{
			URL:          m.name,
			ChainID:      p.chainID,
			CircuitState: m.breaker.State(),
			Failures:     m.breaker.ConsecutiveFailures(),
			LastError:    m.breaker.LastError(),
		})
	}
	return out
}

// call runs fn against members in order until one answers.
func call[T any](ctx context.Context, p *Pool, method string, fn func(Endpoint) (T, error)) (T, error) {
	var zero T
	if len(p.members) == 0 {
		return zero, config.ErrNoEndpoint
	}

	var allErrors []error
	for _, m := range p.members {
		if !m.breaker.Allow() {
			allErrors = append(allErrors, fmt.Errorf("%s: %w", m.name, config.ErrCircuitOpen))
			continue
		}

		started := time.Now()
		v, err := fn(m.ep)
		p.metrics.ObserveRPC(method, started, err)
		if err == nil {
			m.breaker.RecordSuccess()
			return v, nil
		}

		if ctx.Err() != nil {
			return zero, err
		}
		// The node answered; the answer is just not a value.
		if errors.Is(err, ethereum.NotFound) || isRejection(err) {
			m.breaker.RecordSuccess()
			return zero, err
		}

		m.breaker.RecordFailure(err)
		allErrors = append(allErrors, fmt.Errorf("%s: %w", m.name, err))
		slog.Warn("endpoint call failed, trying next",
			"method", method,
			"endpoint", m.name,
			"circuitState", m.breaker.State(),
			"consecutiveFailures", m.breaker.ConsecutiveFailures(),
			"error", err,
		)
	}

	return zero, config.NewTransientError(
		fmt.Errorf("%s: %w: %w", method, config.ErrAllProvidersFailed, errors.Join(allErrors...)),
	)
}

func (p *Pool) ChainID(ctx context.Context) (*big.Int, error) {
	return call(ctx, p, "eth_chainId", func(e Endpoint) (*big.Int, error) {
		return e.ChainID(ctx)
	})
}

func (p *Pool) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return call(ctx, p, "eth_gasPrice", func(e Endpoint) (*big.Int, error) {
		return e.SuggestGasPrice(ctx)
	})
}

func (p *Pool) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	return call(ctx, p, "eth_getBalance", func(e Endpoint) (*big.Int, error) {
		return e.BalanceAt(ctx, account, blockNumber)
	})
}

func (p *Pool) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return call(ctx, p, "eth_getTransactionCount", func(e Endpoint) (uint64, error) {
		return e.PendingNonceAt(ctx, account)
	})
}

func (p *Pool) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return call(ctx, p, "eth_getTransactionReceipt", func(e Endpoint) (*types.Receipt, error) {
		return e.TransactionReceipt(ctx, txHash)
	})
}

func (p *Pool) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return call(ctx, p, "eth_call", func(e Endpoint) ([]byte, error) {
		return e.CallContract(ctx, msg, blockNumber)
	})
}

func (p *Pool) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return call(ctx, p, "eth_estimateGas", func(e Endpoint) (uint64, error) {
		return e.EstimateGas(ctx, msg)
	})
}
