package mint

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/Fantasim/dropmint/internal/models"
	"github.com/Fantasim/dropmint/internal/wallet"
)

const testKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

var (
	testNFT       = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testMultiMint = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

// mockEndpoint is a scripted chain.Endpoint.
type mockEndpoint struct {
	mu sync.Mutex

	gasPrice   *big.Int
	gasErr     error
	balance    *big.Int
	balanceErr error
	estimate   uint64

	nonce      uint64
	nonceErr   error
	nonceCalls int

	// sendErr is consulted per SendTransaction call (1-based); nil means accept.
	sendErr func(call int) error
	sent    []*types.Transaction

	// receipt answers TransactionReceipt; nil means ethereum.NotFound.
	receipt      func(h common.Hash) (*types.Receipt, error)
	receiptCalls int
}

func (m *mockEndpoint) ChainID(ctx context.Context) (*big.Int, error) {
	return big.NewInt(8453), nil
}

func (m *mockEndpoint) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	if m.gasErr != nil {
		return nil, m.gasErr
	}
	if m.gasPrice == nil {
		return big.NewInt(1_000_000_000), nil
	}
	return new(big.Int).Set(m.gasPrice), nil
}

func (m *mockEndpoint) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	if m.balanceErr != nil {
		return nil, m.balanceErr
	}
	if m.balance == nil {
		return new(big.Int), nil
	}
	return new(big.Int).Set(m.balance), nil
}

func (m *mockEndpoint) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nonceCalls++
	if m.nonceErr != nil {
		return 0, m.nonceErr
	}
	return m.nonce, nil
}

func (m *mockEndpoint) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	call := len(m.sent) + 1
	m.sent = append(m.sent, tx)
	if m.sendErr != nil {
		if err := m.sendErr(call); err != nil {
			return err
		}
	}
	// Accepted transactions advance the pending nonce like a node would.
	if tx.Nonce() >= m.nonce {
		m.nonce = tx.Nonce() + 1
	}
	return nil
}

func (m *mockEndpoint) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	m.mu.Lock()
	m.receiptCalls++
	fn := m.receipt
	m.mu.Unlock()
	if fn == nil {
		return nil, ethereum.NotFound
	}
	return fn(txHash)
}

func (m *mockEndpoint) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return nil, errors.New("not implemented")
}

func (m *mockEndpoint) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	if m.estimate == 0 {
		return 0, errors.New("execution reverted")
	}
	return m.estimate, nil
}

func (m *mockEndpoint) sentTxs() []*types.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*types.Transaction(nil), m.sent...)
}

func successReceipt(h common.Hash) (*types.Receipt, error) {
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: h, BlockNumber: big.NewInt(100)}, nil
}

func revertedReceipt(h common.Hash) (*types.Receipt, error) {
	return &types.Receipt{Status: types.ReceiptStatusFailed, TxHash: h, BlockNumber: big.NewInt(101)}, nil
}

// fakeSale returns a fixed window.
type fakeSale struct {
	window models.SaleWindow
	err    error
}

func (f *fakeSale) GetSaleWindow(ctx context.Context, nft common.Address) (models.SaleWindow, error) {
	return f.window, f.err
}

func openWindow(now time.Time) models.SaleWindow {
	return models.SaleWindow{
		PricePerUnit: big.NewInt(1_000_000_000_000_000),
		StartTime:    now.Add(-time.Hour).Unix(),
		EndTime:      now.Add(time.Hour).Unix(),
		MaxPerWallet: 10,
	}
}

// fakeStore records runs in memory.
type fakeStore struct {
	mu       sync.Mutex
	runs     map[string]models.Run
	txs      map[string]models.RunTx
	txWrites int
}

func newFakeStore() *fakeStore {
	return &fakeStore{runs: map[string]models.Run{}, txs: map[string]models.RunTx{}}
}

func (s *fakeStore) CreateRun(run models.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run.Outcome = models.OutcomeRunning
	s.runs[run.ID] = run
	return nil
}

func (s *fakeStore) FinishRun(id string, outcome models.RunOutcome, tally models.RunTally, runErr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return errors.New("run not found")
	}
	run.Outcome = outcome
	run.Tally = tally
	run.Error = runErr
	s.runs[id] = run
	return nil
}

func (s *fakeStore) UpsertRunTx(tx models.RunTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs[tx.TxHash] = tx
	s.txWrites++
	return nil
}

func testSigner(t *testing.T) *wallet.Wallet {
	t.Helper()
	w, err := wallet.FromHex(testKey)
	if err != nil {
		t.Fatalf("FromHex() error = %v", err)
	}
	return w
}

func noSleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

func testParams(t *testing.T, total int) DispatchParams {
	t.Helper()
	return DispatchParams{
		Signer:   testSigner(t),
		ChainID:  big.NewInt(8453),
		Contract: testMultiMint,
		NFT:      testNFT,
		Total:    total,
		Price:    big.NewInt(1_000_000_000_000_000),
		GasPrice: big.NewInt(2_000_000_000),
		GasLimit: 150_000,
	}
}
