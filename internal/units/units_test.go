package units

import (
	"errors"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pow10(n int64) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(n), nil)
}

// ---------------------------------------------------------------------------
// ToBaseUnits
// ---------------------------------------------------------------------------

func TestToBaseUnitsFiveAt18(t *testing.T) {
	got, err := ToBaseUnits("5", 18)
	require.NoError(t, err)
	assert.Equal(t, "5000000000000000000", got.String())
}

func TestToBaseUnitsFractional(t *testing.T) {
	got, err := ToBaseUnits("1.5", 6)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1_500_000), got)
}

func TestToBaseUnitsNoFloatRounding(t *testing.T) {
	// 0.1 has no exact binary representation.
	got, err := ToBaseUnits("0.1", 18)
	require.NoError(t, err)
	assert.Equal(t, pow10(17), got)

	got, err = ToBaseUnits("123456789.123456789123456789", 18)
	require.NoError(t, err)
	assert.Equal(t, "123456789123456789123456789", got.String())
}

func TestToBaseUnitsTrailingZerosBeyondDecimals(t *testing.T) {
	got, err := ToBaseUnits("2.5000", 2)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(250), got)
}

func TestToBaseUnitsTooManyDecimals(t *testing.T) {
	_, err := ToBaseUnits("1.001", 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidAmount))
}

func TestToBaseUnitsRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "   ", "abc", "1e18", "1.2.3", "0x10"} {
		_, err := ToBaseUnits(in, 18)
		assert.Error(t, err, in)
	}
}

// ---------------------------------------------------------------------------
// FromBaseUnits
// ---------------------------------------------------------------------------

func TestFromBaseUnitsWholeKeepsOneDecimal(t *testing.T) {
	assert.Equal(t, "10.0", FromBaseUnits(new(big.Int).Mul(big.NewInt(10), pow10(18)), 18))
}

func TestFromBaseUnitsFraction(t *testing.T) {
	assert.Equal(t, "5.5", FromBaseUnits(big.NewInt(5_500_000), 6))
	assert.Equal(t, "0.000001", FromBaseUnits(big.NewInt(1), 6))
}

func TestFromBaseUnitsZeroAndNil(t *testing.T) {
	assert.Equal(t, "0.0", FromBaseUnits(big.NewInt(0), 18))
	assert.Equal(t, "0.0", FromBaseUnits(nil, 18))
}

func TestFromBaseUnitsZeroDecimals(t *testing.T) {
	assert.Equal(t, "42.0", FromBaseUnits(big.NewInt(42), 0))
}

func TestRoundTripStable(t *testing.T) {
	cases := []struct {
		amount   string
		decimals uint8
	}{
		{"5", 18},
		{"0.1", 18},
		{"1.000001", 6},
		{"999999999999.999999999999999999", 18},
		{"7", 0},
		{"0.5", 1},
		{"3.14159", 8},
	}
	for _, tc := range cases {
		first, err := ToBaseUnits(tc.amount, tc.decimals)
		require.NoError(t, err, tc.amount)
		second, err := ToBaseUnits(FromBaseUnits(first, tc.decimals), tc.decimals)
		require.NoError(t, err, tc.amount)
		assert.Equal(t, first, second, tc.amount)
	}
}

// ---------------------------------------------------------------------------
// Half / Max
// ---------------------------------------------------------------------------

func TestHalfOfTen(t *testing.T) {
	got, err := Half("10.0")
	require.NoError(t, err)
	assert.Equal(t, "5.000000", got)
}

func TestHalfTruncates(t *testing.T) {
	got, err := Half("1.333333333")
	require.NoError(t, err)
	assert.Equal(t, "0.666666", got)
}

func TestHalfNeverExceedsRealHalf(t *testing.T) {
	cases := map[string]string{
		"3.0000019":          "1.500000",
		"0.00000399999999":   "0.000001",
		"2.0000039":          "1.000001",
		"123456789.99999999": "61728394.999999",
		"0.000002":           "0.000001",
	}
	for balance, want := range cases {
		got, err := Half(balance)
		require.NoError(t, err, balance)
		assert.Equal(t, want, got, balance)

		exact := decimal.RequireFromString(balance).Div(decimal.NewFromInt(2))
		assert.True(t, decimal.RequireFromString(got).LessThanOrEqual(exact), balance)
	}
}

func TestHalfNoBalance(t *testing.T) {
	for _, balance := range []string{"0.0", "0", "0.0000015", "0.00000199999999"} {
		_, err := Half(balance)
		assert.ErrorIs(t, err, ErrNoBalance, balance)
		var ve *ValidationError
		assert.ErrorAs(t, err, &ve, balance)
	}
}

func TestMax(t *testing.T) {
	got, err := Max("12.5")
	require.NoError(t, err)
	assert.Equal(t, "12.5", got)

	_, err = Max("0")
	assert.ErrorIs(t, err, ErrNoBalance)
}
