package chain

import (
	"context"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/time/rate"
)

// RateLimiter wraps a token bucket for one endpoint.
type RateLimiter struct {
	limiter *rate.Limiter
	name    string
}

// NewRateLimiter creates a rate limiter allowing rps requests per second.
func NewRateLimiter(name string, rps int) *RateLimiter {
	slog.Debug("rate limiter created", "endpoint", name, "rps", rps)
	return &RateLimiter{
		// Burst 1 spreads requests evenly over the second.
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		name:    name,
	}
}

// Wait blocks until a request is allowed or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if err := rl.limiter.Wait(ctx); err != nil {
		slog.Debug("rate limiter wait cancelled", "endpoint", rl.name, "error", err)
		return err
	}
	return nil
}

// Name returns the endpoint name this limiter belongs to.
func (rl *RateLimiter) Name() string {
	return rl.name
}

// limitedEndpoint gates every call on a RateLimiter.
type limitedEndpoint struct {
	next Endpoint
	rl   *RateLimiter
}

// WithRateLimit wraps e so every call waits on rl first.
func WithRateLimit(e Endpoint, rl *RateLimiter) Endpoint {
	return &limitedEndpoint{next: e, rl: rl}
}

func (l *limitedEndpoint) ChainID(ctx context.Context) (*big.Int, error) {
	if err := l.rl.Wait(ctx); err != nil {
		return nil, err
	}
	return l.next.ChainID(ctx)
}

func (l *limitedEndpoint) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	if err := l.rl.Wait(ctx); err != nil {
		return nil, err
	}
	return l.next.SuggestGasPrice(ctx)
}

func (l *limitedEndpoint) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	if err := l.rl.Wait(ctx); err != nil {
		return nil, err
	}
	return l.next.BalanceAt(ctx, account, blockNumber)
}

func (l *limitedEndpoint) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	if err := l.rl.Wait(ctx); err != nil {
		return 0, err
	}
	return l.next.PendingNonceAt(ctx, account)
}

func (l *limitedEndpoint) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if err := l.rl.Wait(ctx); err != nil {
		return err
	}
	return l.next.SendTransaction(ctx, tx)
}

func (l *limitedEndpoint) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	if err := l.rl.Wait(ctx); err != nil {
		return nil, err
	}
	return l.next.TransactionReceipt(ctx, txHash)
}

func (l *limitedEndpoint) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if err := l.rl.Wait(ctx); err != nil {
		return nil, err
	}
	return l.next.CallContract(ctx, msg, blockNumber)
}

func (l *limitedEndpoint) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	if err := l.rl.Wait(ctx); err != nil {
		return 0, err
	}
	return l.next.EstimateGas(ctx, msg)
}
