// Package chain connects to EVM JSON-RPC endpoints and wraps them with rate
// limiting, circuit breakers and failover.
package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Endpoint is the subset of an EVM node the mint engine talks to.
// *ethclient.Client satisfies it.
type Endpoint interface {
	ChainID(ctx context.Context) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
}

// Client is an Endpoint that owns a connection.
type Client interface {
	Endpoint
	Close()
}

// DialFunc opens a client for an RPC URL.
type DialFunc func(ctx context.Context, url string) (Client, error)

// DialEthClient dials url with go-ethereum's ethclient.
func DialEthClient(ctx context.Context, url string) (Client, error) {
	c, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", MaskURL(url), err)
	}
	return c, nil
}

var _ Client = (*ethclient.Client)(nil)
