package util

import (
	"cosmossdk.io/errors"
	"cosmossdk.io/math"
)

const mathModuleName = "fixed-point"

var (
	// ErrDivisionByZero is returned when a mul-div denominator is zero.
	ErrDivisionByZero = errors.Register(mathModuleName, 2, "division by zero")

	// ErrNilOperand is returned when an operand is an uninitialized Int.
	ErrNilOperand = errors.Register(mathModuleName, 3, "nil operand")
)

// MulDivDown computes a * b / denominator, rounding toward zero. The
// intermediate product is arbitrary precision, so it cannot overflow.
func MulDivDown(a, b, denominator math.Int) (math.Int, error) {
	if a.IsNil() || b.IsNil() || denominator.IsNil() {
		return math.Int{}, ErrNilOperand
	}
	if denominator.IsZero() {
		return math.Int{}, ErrDivisionByZero
	}
	return a.Mul(b).Quo(denominator), nil
}

// MulDivUp computes a * b / denominator, rounding away from zero.
func MulDivUp(a, b, denominator math.Int) (math.Int, error) {
	if a.IsNil() || b.IsNil() || denominator.IsNil() {
		return math.Int{}, ErrNilOperand
	}
	if denominator.IsZero() {
		return math.Int{}, ErrDivisionByZero
	}

	product := a.Mul(b)
	quotient := product.Quo(denominator)
	if product.Mod(denominator).IsZero() {
		return quotient, nil
	}
	if product.IsNegative() != denominator.IsNegative() {
		return quotient.SubRaw(1), nil
	}
	return quotient.AddRaw(1), nil
}

// ChangeDecimals rescales v from one decimal precision to another. Scaling up
// is exact; scaling down truncates toward zero.
func ChangeDecimals(v math.Int, from, to uint8) (math.Int, error) {
	if v.IsNil() {
		return math.Int{}, ErrNilOperand
	}
	switch {
	case from == to:
		return v, nil
	case to > from:
		return v.Mul(Pow10(to - from)), nil
	default:
		return v.Quo(Pow10(from - to)), nil
	}
}

// Pow10 returns 10^exp as an Int.
func Pow10(exp uint8) math.Int {
	result := math.NewInt(1)
	ten := math.NewInt(10)
	for i := uint8(0); i < exp; i++ {
		result = result.Mul(ten)
	}
	return result
}
