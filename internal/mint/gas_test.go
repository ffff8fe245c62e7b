package mint

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/Fantasim/dropmint/internal/config"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int64
	}{
		{"blank uses suggested x1.2", "", 120},
		{"whitespace uses suggested", "   ", 120},
		{"plain gwei", "5", 5_000_000_000},
		{"gwei suffix", "5 gwei", 5_000_000_000},
		{"upper-case suffix no space", "2GWEI", 2_000_000_000},
		{"fractional", "1.5", 1_500_000_000},
		{"smallest unit", "0.000000001", 1},
		{"unparsable falls back", "abc", 120},
		{"too precise falls back", "0.0000000001", 120},
		{"trailing junk falls back", "5abc", 120},
	}

	r := NewGasResolver(&mockEndpoint{gasPrice: big.NewInt(100)}, 1.2)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(context.Background(), tt.input)
			if err != nil {
				t.Fatalf("Resolve(%q) error = %v", tt.input, err)
			}
			if got.Cmp(big.NewInt(tt.want)) != 0 {
				t.Errorf("Resolve(%q) = %s, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestResolve_RejectsNonPositive(t *testing.T) {
	r := NewGasResolver(&mockEndpoint{gasPrice: big.NewInt(100)}, 1.2)
	for _, in := range []string{"0", "-1", "0 gwei"} {
		if _, err := r.Resolve(context.Background(), in); !errors.Is(err, config.ErrInvalidGasPrice) {
			t.Errorf("Resolve(%q) error = %v, want ErrInvalidGasPrice", in, err)
		}
	}

	zero := NewGasResolver(&mockEndpoint{gasPrice: big.NewInt(0)}, 1.2)
	if _, err := zero.Resolve(context.Background(), ""); !errors.Is(err, config.ErrInvalidGasPrice) {
		t.Errorf("zero suggested price error = %v, want ErrInvalidGasPrice", err)
	}
}

func TestResolve_SuggestError(t *testing.T) {
	boom := errors.New("rpc down")
	r := NewGasResolver(&mockEndpoint{gasErr: boom}, 1.2)
	if _, err := r.Resolve(context.Background(), "abc"); !errors.Is(err, boom) {
		t.Errorf("error = %v, want wrapped rpc error", err)
	}
}

func TestNewGasResolver_Multiplier(t *testing.T) {
	tests := []struct {
		multiplier float64
		want       int64
	}{
		{1.05, 105},
		{1.0, 100},
		{2.5, 250},
		{0, 120}, // invalid falls back to the default
	}
	for _, tt := range tests {
		r := NewGasResolver(&mockEndpoint{gasPrice: big.NewInt(100)}, tt.multiplier)
		got, err := r.Suggested(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if got.Int64() != tt.want {
			t.Errorf("multiplier %v: got %s, want %d", tt.multiplier, got, tt.want)
		}
	}
}

func TestFormatUnits(t *testing.T) {
	tests := []struct {
		wei  string
		gwei string
		eth  string
	}{
		{"0", "0", "0"},
		{"1", "0.000000001", "0.000000000000000001"},
		{"1500000000", "1.5", "0.0000000015"},
		{"1000000000000000000", "1000000000", "1"},
		{"-2000000000", "-2", "-0.000000002"},
	}
	for _, tt := range tests {
		v, _ := new(big.Int).SetString(tt.wei, 10)
		if got := FormatGwei(v); got != tt.gwei {
			t.Errorf("FormatGwei(%s) = %q, want %q", tt.wei, got, tt.gwei)
		}
		if got := FormatEther(v); got != tt.eth {
			t.Errorf("FormatEther(%s) = %q, want %q", tt.wei, got, tt.eth)
		}
	}
	if got := FormatGwei(nil); got != "0" {
		t.Errorf("FormatGwei(nil) = %q", got)
	}
}
