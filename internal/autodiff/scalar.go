// Package autodiff implements forward-mode automatic differentiation.
//
// Formulas are written once against the Scalar constraint and evaluated with
// Real (plain values), Dual (first-order gradient over the pricing inputs) or
// HyperDual (exact second derivative along one direction).
package autodiff

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Scalar is the arithmetic a differentiable formula may use
type Scalar[T any] interface {
	Add(T) T
	Sub(T) T
	Mul(T) T
	Div(T) T
	Neg() T
	Exp() T
	Log() T
	Sqrt() T
	NormCDF() T

	// Scale multiplies by a constant
	Scale(float64) T
	// Const lifts a constant into the same number system
	Const(float64) T
	// Value is the primal (real) part
	Value() float64
}

var unitNormal = distuv.UnitNormal

// NormPDF is the standard normal density
func NormPDF(x float64) float64 {
	return unitNormal.Prob(x)
}

// NormCDF is the standard normal distribution function
func NormCDF(x float64) float64 {
	return unitNormal.CDF(x)
}

// Real is a plain float64 satisfying Scalar
type Real float64

func (a Real) Add(b Real) Real      { return a + b }
func (a Real) Sub(b Real) Real      { return a - b }
func (a Real) Mul(b Real) Real      { return a * b }
func (a Real) Div(b Real) Real      { return a / b }
func (a Real) Neg() Real            { return -a }
func (a Real) Exp() Real            { return Real(math.Exp(float64(a))) }
func (a Real) Log() Real            { return Real(math.Log(float64(a))) }
func (a Real) Sqrt() Real           { return Real(math.Sqrt(float64(a))) }
func (a Real) NormCDF() Real        { return Real(NormCDF(float64(a))) }
func (a Real) Scale(k float64) Real { return a * Real(k) }
func (Real) Const(v float64) Real   { return Real(v) }
func (a Real) Value() float64       { return float64(a) }
