package analytic

import (
	"github.com/AAWorks/binomial-pricer/internal/autodiff"
	"github.com/AAWorks/binomial-pricer/internal/contracts"
)

// d1d2 computes the standardized moneyness terms
func d1d2[T autodiff.Scalar[T]](in autodiff.Inputs[T]) (T, T) {
	volSqrtT := in.Vol.Mul(in.Tau.Sqrt())
	drift := in.Rate.Sub(in.Div).Add(in.Vol.Mul(in.Vol).Scale(0.5)).Mul(in.Tau)
	d1 := in.Spot.Div(in.Strike).Log().Add(drift).Div(volSqrtT)
	return d1, d1.Sub(volSqrtT)
}

// blackScholes prices a European option.
// Call = S·e^(−qT)·Φ(d1) − K·e^(−rT)·Φ(d2)
// Put  = K·e^(−rT)·Φ(−d2) − S·e^(−qT)·Φ(−d1)
func blackScholes[T autodiff.Scalar[T]](right contracts.Right, in autodiff.Inputs[T]) T {
	d1, d2 := d1d2(in)
	forward := in.Spot.Mul(in.DividendDiscount())
	discounted := in.Strike.Mul(in.Discount())

	if right == contracts.Call {
		return forward.Mul(d1.NormCDF()).Sub(discounted.Mul(d2.NormCDF()))
	}
	return discounted.Mul(d2.Neg().NormCDF()).Sub(forward.Mul(d1.Neg().NormCDF()))
}
