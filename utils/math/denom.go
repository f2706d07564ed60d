package math

import (
	"errors"
	"fmt"
	stdmath "math"
	"math/big"
	"strings"
)

var (
	ErrNotFinite     = errors.New("amount is not a finite number")
	ErrInvalidAmount = errors.New("invalid amount")
)

var one = big.NewInt(1)

// Pow10 returns 10^exp.
func Pow10(exp int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(exp)), nil)
}

// MicroToDenom converts an amount expressed in the smallest unit (e.g. ujuno)
// into display units by dividing by 10^exponent. The result is exact.
func MicroToDenom(micro *big.Int, exponent int) *big.Rat {
	if micro == nil {
		return new(big.Rat)
	}
	return new(big.Rat).SetFrac(micro, Pow10(exponent))
}

// DenomToMicro converts display units into the smallest unit, rounding half
// away from zero.
func DenomToMicro(amount *big.Rat, exponent int) *big.Int {
	if amount == nil {
		return new(big.Int)
	}
	scaled := new(big.Rat).Mul(amount, new(big.Rat).SetInt(Pow10(exponent)))
	return roundHalfAway(scaled)
}

// MicroToFloat is MicroToDenom as a float64, for comparisons against user
// input which arrives as a float.
func MicroToFloat(micro *big.Int, exponent int) float64 {
	f, _ := MicroToDenom(micro, exponent).Float64()
	return f
}

// FloatToMicro converts a display amount entered by the user into the
// smallest unit.
func FloatToMicro(amount float64, exponent int) (*big.Int, error) {
	if stdmath.IsNaN(amount) || stdmath.IsInf(amount, 0) {
		return nil, ErrNotFinite
	}
	r := new(big.Rat).SetFloat64(amount)
	if r == nil {
		return nil, ErrNotFinite
	}
	return DenomToMicro(r, exponent), nil
}

// Round rounds r to the given number of fraction digits.
func Round(r *big.Rat, digits int) *big.Rat {
	scale := Pow10(digits)
	scaled := new(big.Rat).Mul(r, new(big.Rat).SetInt(scale))
	return new(big.Rat).SetFrac(roundHalfAway(scaled), scale)
}

// ParseMicro parses a base-10 unsigned integer amount as returned by the
// chain (Uint128 and Coin amounts are JSON strings).
func ParseMicro(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return v, nil
}

// ParseDecimal parses a cosmwasm Decimal string such as "0.005".
func ParseDecimal(s string) (*big.Rat, error) {
	v, ok := new(big.Rat).SetString(strings.TrimSpace(s))
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return v, nil
}

// LoanFee is the fee charged on a loan of amount at the given rate, rounded
// down to the smallest unit like a cosmwasm Uint128 * Decimal product.
func LoanFee(amount *big.Int, rate *big.Rat) *big.Int {
	if amount == nil || rate == nil || amount.Sign() <= 0 {
		return new(big.Int)
	}
	num := new(big.Int).Mul(amount, rate.Num())
	return num.Quo(num, rate.Denom())
}

func roundHalfAway(r *big.Rat) *big.Int {
	q, m := new(big.Int).QuoRem(r.Num(), r.Denom(), new(big.Int))
	m.Abs(m).Lsh(m, 1)
	if m.Cmp(r.Denom()) >= 0 {
		if r.Sign() < 0 {
			q.Sub(q, one)
		} else {
			q.Add(q, one)
		}
	}
	return q
}
