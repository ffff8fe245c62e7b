package chain

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// mockClient is a scriptable Client for pool and connect tests.
type mockClient struct {
	mu sync.Mutex

	chainID    int64
	chainIDErr error
	gasPrice   *big.Int
	gasErr     error
	sendErr    error
	receipt    *types.Receipt
	receiptErr error

	calls  map[string]int
	closed bool
}

func newMockClient(chainID int64) *mockClient {
	return &mockClient{chainID: chainID, gasPrice: big.NewInt(1_000_000_000), calls: map[string]int{}}
}

func (m *mockClient) count(method string) {
	m.mu.Lock()
	m.calls[method]++
	m.mu.Unlock()
}

func (m *mockClient) callCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func (m *mockClient) ChainID(_ context.Context) (*big.Int, error) {
	m.count("ChainID")
	if m.chainIDErr != nil {
		return nil, m.chainIDErr
	}
	return big.NewInt(m.chainID), nil
}

func (m *mockClient) SuggestGasPrice(_ context.Context) (*big.Int, error) {
	m.count("SuggestGasPrice")
	if m.gasErr != nil {
		return nil, m.gasErr
	}
	return m.gasPrice, nil
}

func (m *mockClient) BalanceAt(_ context.Context, _ common.Address, _ *big.Int) (*big.Int, error) {
	m.count("BalanceAt")
	return big.NewInt(0), nil
}

func (m *mockClient) PendingNonceAt(_ context.Context, _ common.Address) (uint64, error) {
	m.count("PendingNonceAt")
	return 7, nil
}

func (m *mockClient) SendTransaction(_ context.Context, _ *types.Transaction) error {
	m.count("SendTransaction")
	return m.sendErr
}

func (m *mockClient) TransactionReceipt(_ context.Context, _ common.Hash) (*types.Receipt, error) {
	m.count("TransactionReceipt")
	if m.receiptErr != nil {
		return nil, m.receiptErr
	}
	if m.receipt == nil {
		return nil, ethereum.NotFound
	}
	return m.receipt, nil
}

func (m *mockClient) CallContract(_ context.Context, _ ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	m.count("CallContract")
	return nil, nil
}

func (m *mockClient) EstimateGas(_ context.Context, _ ethereum.CallMsg) (uint64, error) {
	m.count("EstimateGas")
	return 21000, nil
}

func (m *mockClient) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}

func testTx() *types.Transaction {
	return types.NewTx(&types.LegacyTx{
		Nonce:    1,
		To:       &common.Address{},
		Value:    big.NewInt(100),
		Gas:      21000,
		GasPrice: big.NewInt(1),
	})
}

func poolOf(chainID int64, clients ...*mockClient) *Pool {
	members := make([]Member, len(clients))
	for i, c := range clients {
		members[i] = Member{URL: "https://rpc" + string(rune('a'+i)) + ".example", Endpoint: c, Close: c.Close}
	}
	return NewPool(chainID, nil, members...)
}
