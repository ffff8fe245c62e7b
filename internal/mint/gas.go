// Package mint implements the drop gate, the rapid-fire dispatch loop, the
// pending ledger and the receipt reconciliation poller that together run one
// wallet's purchase against a public sale.
package mint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/big"
	"strings"

	"github.com/Fantasim/dropmint/internal/config"
)

// GasPriceSource returns the node's suggested gas price.
type GasPriceSource interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

// GasResolver picks the gas price to bid.
type GasResolver struct {
	source GasPriceSource
	// multiplier scaled by config.GasMultiplierScale, e.g. 1.2 -> 12000.
	scaled int64
}

// NewGasResolver creates a resolver that applies multiplier to the suggested
// price when no explicit price is given.
func NewGasResolver(source GasPriceSource, multiplier float64) *GasResolver {
	if multiplier <= 0 || math.IsNaN(multiplier) || math.IsInf(multiplier, 0) {
		multiplier = config.DefaultGasMultiplier
	}
	return &GasResolver{
		source: source,
		scaled: int64(math.Round(multiplier * config.GasMultiplierScale)),
	}
}

// Resolve returns the gas price in wei. A non-blank input is read as gwei;
// if it cannot be parsed the suggested price path is used instead.
func (r *GasResolver) Resolve(ctx context.Context, input string) (*big.Int, error) {
	var price *big.Int

	if strings.TrimSpace(input) != "" {
		parsed, err := ParseGasPrice(input)
		if err != nil {
			slog.Warn("invalid gas price input, using suggested price",
				"input", input,
				"error", err,
			)
		} else {
			price = parsed
		}
	}

	if price == nil {
		suggested, err := r.Suggested(ctx)
		if err != nil {
			return nil, err
		}
		price = suggested
	}

	if price.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %s wei", config.ErrInvalidGasPrice, price)
	}

	slog.Debug("gas price resolved", "input", input, "wei", price.String(), "gwei", FormatGwei(price))
	return price, nil
}

// Suggested returns the node's suggested price scaled by the multiplier.
func (r *GasResolver) Suggested(ctx context.Context) (*big.Int, error) {
	suggested, err := r.source.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas price: %w", err)
	}
	return applyMultiplier(suggested, r.scaled), nil
}

func applyMultiplier(v *big.Int, scaled int64) *big.Int {
	out := new(big.Int).Mul(v, big.NewInt(scaled))
	return out.Quo(out, big.NewInt(config.GasMultiplierScale))
}

var errBadDecimal = errors.New("not a decimal number")

// ParseGasPrice converts a decimal gwei amount ("5", "1.5 gwei", "0.25GWEI")
// to wei. More than nine fractional digits is rejected.
func ParseGasPrice(input string) (*big.Int, error) {
	s := strings.ToLower(strings.TrimSpace(input))
	s = strings.TrimSpace(strings.TrimSuffix(s, "gwei"))
	return parseDecimal(s, config.GweiDecimals)
}

// parseDecimal parses [-]digits[.digits] scaled by 10^decimals.
func parseDecimal(s string, decimals int) (*big.Int, error) {
	if s == "" {
		return nil, errBadDecimal
	}

	neg := false
	if s[0] == '-' || s[0] == '+' {
		neg = s[0] == '-'
		s = s[1:]
	}

	whole, frac, hasDot := strings.Cut(s, ".")
	if whole == "" && (!hasDot || frac == "") {
		return nil, errBadDecimal
	}
	if !allDigits(whole) || !allDigits(frac) {
		return nil, fmt.Errorf("%w: %q", errBadDecimal, s)
	}
	if len(frac) > decimals {
		return nil, fmt.Errorf("too many decimal places (max %d)", decimals)
	}

	digits := whole + frac + strings.Repeat("0", decimals-len(frac))
	out, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", errBadDecimal, s)
	}
	if neg {
		out.Neg(out)
	}
	return out, nil
}

func allDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// FormatGwei renders wei as a gwei decimal string.
func FormatGwei(wei *big.Int) string {
	return formatUnits(wei, config.GweiDecimals)
}

// FormatEther renders wei as a native-token decimal string.
func FormatEther(wei *big.Int) string {
	return formatUnits(wei, config.EtherDecimals)
}

func formatUnits(v *big.Int, decimals int) string {
	if v == nil {
		return "0"
	}
	neg := v.Sign() < 0
	s := new(big.Int).Abs(v).String()
	if len(s) <= decimals {
		s = strings.Repeat("0", decimals-len(s)+1) + s
	}
	whole, frac := s[:len(s)-decimals], strings.TrimRight(s[len(s)-decimals:], "0")
	if frac != "" {
		whole += "." + frac
	}
	if neg {
		return "-" + whole
	}
	return whole
}
