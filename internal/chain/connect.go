package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/Fantasim/dropmint/internal/config"
	"github.com/Fantasim/dropmint/internal/metrics"
)

// ConnectOptions controls how endpoints are opened.
type ConnectOptions struct {
	Dial    DialFunc // nil uses DialEthClient
	RPS     int      // per-endpoint rate limit, 0 uses the default
	Metrics *metrics.Metrics
}

func (o ConnectOptions) withDefaults() ConnectOptions {
	if o.Dial == nil {
		o.Dial = DialEthClient
	}
	if o.RPS <= 0 {
		o.RPS = config.DefaultRPCRequestsPerSec
	}
	return o
}

// Connect opens every URL, keeps those that answer eth_chainId with chainID
// and returns them as a Pool in the original order.
func Connect(ctx context.Context, chainID int64, urls []string, opts ConnectOptions) (*Pool, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: chain %d", config.ErrNoEndpoint, chainID)
	}
	opts = opts.withDefaults()

	clients := make([]Client, len(urls))
	failures := make([]error, len(urls))

	var g errgroup.Group
	for i, u := range urls {
		g.Go(func() error {
			c, err := probe(ctx, opts.Dial, chainID, u)
			if err != nil {
				slog.Warn("endpoint unreachable",
					"chainID", chainID,
					"endpoint", MaskURL(u),
					"error", err,
				)
				failures[i] = err
				return nil
			}
			slog.Info("connected to endpoint", "chainID", chainID, "endpoint", MaskURL(u))
			clients[i] = c
			return nil
		})
	}
	_ = g.Wait()

	members := make([]Member, 0, len(urls))
	for i, c := range clients {
		if c == nil {
			continue
		}
		members = append(members, Member{
			URL:      urls[i],
			Endpoint: WithRateLimit(c, NewRateLimiter(MaskURL(urls[i]), opts.RPS)),
			Close:    c.Close,
		})
	}

	if len(members) == 0 {
		return nil, fmt.Errorf("%w: all %d endpoints for chain %d failed: %w",
			config.ErrNoEndpoint, len(urls), chainID, errors.Join(failures...))
	}

	return NewPool(chainID, opts.Metrics, members...), nil
}

func probe(ctx context.Context, dial DialFunc, chainID int64, url string) (Client, error) {
	dialCtx, cancel := context.WithTimeout(ctx, config.DialTimeout)
	defer cancel()

	c, err := dial(dialCtx, url)
	if err != nil {
		return nil, err
	}

	got, err := c.ChainID(dialCtx)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("eth_chainId on %s: %w", MaskURL(url), err)
	}
	if got.Int64() != chainID {
		c.Close()
		return nil, fmt.Errorf("%s reports chain %s, want %d", MaskURL(url), got, chainID)
	}
	return c, nil
}

// Detect connects to the first chain in the RPC file (ascending chain ID)
// with at least one reachable endpoint.
func Detect(ctx context.Context, rpcs config.RPCFile, opts ConnectOptions) (*Pool, config.ChainRPC, error) {
	var allErrors []error
	for _, id := range rpcs.ChainIDs() {
		entry := rpcs[id]
		if len(entry.RPCs) == 0 {
			continue
		}

		pool, err := Connect(ctx, id, entry.RPCs, opts)
		if err == nil {
			slog.Info("auto-detected chain", "chainID", id, "name", entry.Name)
			return pool, entry, nil
		}
		if ctx.Err() != nil {
			return nil, config.ChainRPC{}, ctx.Err()
		}
		slog.Warn("chain unreachable during auto-detect", "chainID", id, "name", entry.Name, "error", err)
		allErrors = append(allErrors, err)
	}

	if len(allErrors) == 0 {
		return nil, config.ChainRPC{}, fmt.Errorf("%w: rpc file lists no endpoints", config.ErrNoEndpoint)
	}
	return nil, config.ChainRPC{}, fmt.Errorf("%w: no configured chain reachable: %w",
		config.ErrNoEndpoint, errors.Join(allErrors...))
}
