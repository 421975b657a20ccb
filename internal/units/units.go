// Package units converts token amounts between their human-readable decimal
// form and integer base units, and validates user input before it reaches a
// contract call.
package units

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// halfPrecision is the number of fractional digits kept by Half.
const halfPrecision = 6

// ToBaseUnits parses a decimal amount string and scales it by 10^decimals.
// Parsing is exact; an amount with more significant fractional digits than
// the token supports is rejected rather than rounded.
func ToBaseUnits(amount string, decimals uint8) (*big.Int, error) {
	d, err := parseDecimal(amount)
	if err != nil {
		return nil, err
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return nil, &ValidationError{Field: "amount", Value: amount, Err: fmt.Errorf("%w: at most %d decimal places", ErrInvalidAmount, decimals)}
	}
	return scaled.BigInt(), nil
}

// FromBaseUnits formats a base-unit integer as a decimal string. Trailing
// zeros are trimmed but at least one fractional digit is kept, so 10 tokens
// render as "10.0".
func FromBaseUnits(raw *big.Int, decimals uint8) string {
	if raw == nil {
		raw = new(big.Int)
	}
	s := decimal.NewFromBigInt(raw, -int32(decimals)).String()
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// Half returns half of a displayed balance, truncated to six decimals so it
// never exceeds the real half. A balance too small to leave a nonzero half
// is reported as ErrNoBalance.
func Half(balance string) (string, error) {
	d, err := parseDecimal(balance)
	if err != nil {
		return "", err
	}
	if !d.IsPositive() {
		return "", noBalance(balance)
	}
	half := d.Mul(decimal.New(5, -1)).Truncate(halfPrecision)
	if half.IsZero() {
		return "", noBalance(balance)
	}
	return half.StringFixed(halfPrecision), nil
}

// Max returns the full displayed balance as the burn amount.
func Max(balance string) (string, error) {
	d, err := parseDecimal(balance)
	if err != nil {
		return "", err
	}
	if !d.IsPositive() {
		return "", noBalance(balance)
	}
	return strings.TrimSpace(balance), nil
}

func noBalance(balance string) error {
	return &ValidationError{Field: "balance", Value: strings.TrimSpace(balance), Err: ErrNoBalance}
}

func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, &ValidationError{Field: "amount", Value: s, Err: ErrInvalidAmount}
	}
	// decimal accepts exponent notation; a wallet amount never needs it.
	if strings.ContainsAny(s, "eE") {
		return decimal.Zero, &ValidationError{Field: "amount", Value: s, Err: ErrInvalidAmount}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &ValidationError{Field: "amount", Value: s, Err: ErrInvalidAmount}
	}
	return d, nil
}
