package mint

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/Fantasim/dropmint/internal/config"
	"github.com/Fantasim/dropmint/internal/models"
)

func TestBuildPreview(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	w := openWindow(now) // 0.001 per unit, cap 10

	tests := []struct {
		name        string
		mode        models.Mode
		total       int
		balance     *big.Int
		wantTxs     int
		wantNeeded  string
		wantLow     bool
		wantOverCap bool
	}{
		// 5 * 0.001 + 5 * 150000 * 2 gwei = 0.005 + 0.0015
		{"hybrid funded", models.ModeHybrid, 5, big.NewInt(1e18), 5, "6500000000000000", false, false},
		// 5 * 0.001 + 1 * 150000 * 2 gwei = 0.005 + 0.0003
		{"sequential single tx", models.ModeSequential, 5, big.NewInt(1e18), 1, "5300000000000000", false, false},
		{"low balance", models.ModeHybrid, 5, big.NewInt(1_000), 5, "6500000000000000", true, false},
		{"over cap", models.ModeHybrid, 11, big.NewInt(1e18), 11, "14300000000000000", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := BuildPreview(PreviewInput{
				Window:   w,
				Balance:  tt.balance,
				GasPrice: big.NewInt(2_000_000_000),
				GasLimit: 150_000,
				Total:    tt.total,
				Mode:     tt.mode,
				Now:      now,
			})
			if err != nil {
				t.Fatalf("BuildPreview() error = %v", err)
			}
			if p.Transactions != tt.wantTxs {
				t.Errorf("transactions = %d, want %d", p.Transactions, tt.wantTxs)
			}
			if p.TotalNeeded.String() != tt.wantNeeded {
				t.Errorf("total needed = %s, want %s", p.TotalNeeded, tt.wantNeeded)
			}
			if p.LowBalance != tt.wantLow || p.OverCap != tt.wantOverCap {
				t.Errorf("low/overCap = %v/%v, want %v/%v", p.LowBalance, p.OverCap, tt.wantLow, tt.wantOverCap)
			}
			if p.State != models.DropActive {
				t.Errorf("state = %s, want active", p.State)
			}
		})
	}
}

func TestBuildPreview_Invalid(t *testing.T) {
	w := openWindow(time.Now())
	if _, err := BuildPreview(PreviewInput{Window: w, GasPrice: big.NewInt(1), Total: 0}); !errors.Is(err, config.ErrInvalidTotal) {
		t.Errorf("total 0 error = %v", err)
	}
	if _, err := BuildPreview(PreviewInput{Window: w, Total: 1}); !errors.Is(err, config.ErrInvalidGasPrice) {
		t.Errorf("nil gas price error = %v", err)
	}
	if _, err := BuildPreview(PreviewInput{GasPrice: big.NewInt(1), Total: 1}); !errors.Is(err, config.ErrNoSaleWindow) {
		t.Errorf("empty window error = %v", err)
	}
}

func TestEnginePreview(t *testing.T) {
	ep := &mockEndpoint{gasPrice: big.NewInt(1_000_000_000), balance: big.NewInt(1), estimate: 200_000}
	e := newTestEngine(ep, &fakeSale{window: openWindow(time.Now())}, nil, nil)
	signer := testSigner(t)

	cfg := testRunConfig(2)
	p, err := e.Preview(context.Background(), signer.Address(), cfg)
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	if p.GasPrice.Int64() != 1_200_000_000 || p.GasLimit != config.DefaultGasLimit {
		t.Errorf("gas = %d @ %s", p.GasLimit, p.GasPrice)
	}
	if !p.LowBalance {
		t.Error("1 wei balance should be flagged low")
	}

	cfg.Mode = models.ModeSequential
	p, err = e.Preview(context.Background(), signer.Address(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if p.GasLimit != 240_000 || p.Transactions != 1 {
		t.Errorf("sequential preview gas limit = %d, txs = %d; want 240000, 1", p.GasLimit, p.Transactions)
	}

	// Estimate failure falls back to the configured limit.
	ep.estimate = 0
	p, err = e.Preview(context.Background(), signer.Address(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if p.GasLimit != config.DefaultGasLimit {
		t.Errorf("fallback gas limit = %d", p.GasLimit)
	}
}
