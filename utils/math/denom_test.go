package math

import (
	stdmath "math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMicroToDenom(t *testing.T) {
	got := MicroToDenom(big.NewInt(1_234_567), 6)
	assert.Equal(t, "1.234567", got.FloatString(6))

	assert.Equal(t, "0", MicroToDenom(nil, 6).FloatString(0))
}

func TestConversionIsInverseConsistent(t *testing.T) {
	samples := []string{"0", "1", "999999", "1000000", "123456789012345678901234567890"}
	for _, s := range samples {
		micro, ok := new(big.Int).SetString(s, 10)
		require.True(t, ok)

		display := MicroToDenom(micro, 6)
		assert.Equal(t, micro.String(), DenomToMicro(display, 6).String(), s)
		// six fraction digits is exactly the exponent, so rounding is lossless
		assert.Equal(t, 0, Round(display, 6).Cmp(display), s)
	}
}

func TestFloatToMicro(t *testing.T) {
	micro, err := FloatToMicro(1.1, 6)
	require.NoError(t, err)
	assert.Equal(t, "1100000", micro.String())

	micro, err = FloatToMicro(2.5, 0)
	require.NoError(t, err)
	assert.Equal(t, "3", micro.String())

	_, err = FloatToMicro(stdmath.NaN(), 6)
	assert.ErrorIs(t, err, ErrNotFinite)

	_, err = FloatToMicro(stdmath.Inf(1), 6)
	assert.ErrorIs(t, err, ErrNotFinite)
}

func TestRound(t *testing.T) {
	r := new(big.Rat).SetFrac64(1, 3)
	assert.Equal(t, "0.333333", Round(r, 6).FloatString(6))

	r = new(big.Rat).SetFrac64(-5, 10_000_000)
	assert.Equal(t, "-0.000001", Round(r, 6).FloatString(6))
}

func TestParseMicro(t *testing.T) {
	v, err := ParseMicro("340282366920938463463374607431768211455")
	require.NoError(t, err)
	assert.Equal(t, "340282366920938463463374607431768211455", v.String())

	v, err = ParseMicro("")
	require.NoError(t, err)
	assert.Zero(t, v.Sign())

	_, err = ParseMicro("-1")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = ParseMicro("12ujuno")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestParseDecimal(t *testing.T) {
	v, err := ParseDecimal("0.005")
	require.NoError(t, err)
	assert.Equal(t, "0.005", v.FloatString(3))

	_, err = ParseDecimal("five")
	assert.Error(t, err)
}

func TestLoanFee(t *testing.T) {
	rate, err := ParseDecimal("0.005")
	require.NoError(t, err)

	tests := []struct {
		amount int64
		want   string
	}{
		{100_000_000, "500000"},
		{999, "4"},
		{199, "0"},
		{0, "0"},
		{-10, "0"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LoanFee(big.NewInt(tt.amount), rate).String(), "amount %d", tt.amount)
	}
	assert.Equal(t, "0", LoanFee(big.NewInt(10), nil).String())
}
