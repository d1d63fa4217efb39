package autodiff

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// f(x) = exp(x)·sqrt(x) / log(1 + x) + Φ(x)
func testFunc[T Scalar[T]](x T) T {
	one := x.Const(1)
	return x.Exp().Mul(x.Sqrt()).Div(one.Add(x).Log()).Add(x.NormCDF())
}

func numericDerivative(f func(float64) float64, x, h float64) (float64, float64) {
	d1 := (f(x+h) - f(x-h)) / (2 * h)
	d2 := (f(x+h) - 2*f(x) + f(x-h)) / (h * h)
	return d1, d2
}

func TestDualMatchesFiniteDifference(t *testing.T) {
	plain := func(x float64) float64 { return testFunc(Real(x)).Value() }

	for _, x := range []float64{0.3, 1.0, 2.5} {
		want, _ := numericDerivative(plain, x, 1e-6)
		got := testFunc(Variable(x, Spot))

		assert.InDelta(t, plain(x), got.Value(), 1e-12)
		assert.InDelta(t, want, got.Grad(Spot), 1e-6)
		assert.Zero(t, got.Grad(Volatility))
	}
}

func TestHyperDualSecondDerivative(t *testing.T) {
	plain := func(x float64) float64 { return testFunc(Real(x)).Value() }

	for _, x := range []float64{0.3, 1.0, 2.5} {
		want1, want2 := numericDerivative(plain, x, 1e-4)
		got := testFunc(HyperVariable(x))

		assert.InDelta(t, plain(x), got.Value(), 1e-12)
		assert.InDelta(t, want1, got.First(), 1e-6)
		assert.InDelta(t, want2, got.Second(), 1e-4)
	}
}

func TestDualGradientIsPerVariable(t *testing.T) {
	// f(s, v) = s·v² → ∂s = v², ∂v = 2sv
	s := Variable(3, Spot)
	v := Variable(2, Volatility)
	f := s.Mul(v).Mul(v)

	assert.Equal(t, 12.0, f.Value())
	assert.Equal(t, 4.0, f.Grad(Spot))
	assert.Equal(t, 12.0, f.Grad(Volatility))
	assert.Equal(t, 0.0, f.Grad(Rate))
}

func TestNormCDFDerivatives(t *testing.T) {
	x := 0.7
	h := HyperVariable(x).NormCDF()

	assert.InDelta(t, NormCDF(x), h.Value(), 1e-15)
	assert.InDelta(t, NormPDF(x), h.First(), 1e-15)
	assert.InDelta(t, -x*NormPDF(x), h.Second(), 1e-15)
	assert.InDelta(t, 1/math.Sqrt(2*math.Pi), NormPDF(0), 1e-15)
}

func TestScaleAndNeg(t *testing.T) {
	d := Variable(2, Rate).Scale(3).Neg()
	assert.Equal(t, -6.0, d.Value())
	assert.Equal(t, -3.0, d.Grad(Rate))

	h := HyperVariable(2).Mul(HyperVariable(2)).Scale(0.5)
	assert.Equal(t, 2.0, h.Value())
	assert.Equal(t, 2.0, h.First())
	assert.Equal(t, 1.0, h.Second())
}
