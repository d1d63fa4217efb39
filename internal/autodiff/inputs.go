package autodiff

import "github.com/AAWorks/binomial-pricer/internal/contracts"

// Inputs are the pricing arguments of a contract lifted into one number system
type Inputs[T Scalar[T]] struct {
	Spot, Strike, Vol, Rate, Div, Tau T
}

// RealInputs carries plain values
func RealInputs(c contracts.OptionContract) Inputs[Real] {
	return Inputs[Real]{
		Spot:   Real(c.Spot),
		Strike: Real(c.Strike),
		Vol:    Real(c.Volatility),
		Rate:   Real(c.RiskFreeRate),
		Div:    Real(c.DividendRate),
		Tau:    Real(c.TimeToMaturity()),
	}
}

// DualInputs seeds every input as its own variable
func DualInputs(c contracts.OptionContract) Inputs[Dual] {
	return Inputs[Dual]{
		Spot:   Variable(c.Spot, Spot),
		Strike: Variable(c.Strike, Strike),
		Vol:    Variable(c.Volatility, Volatility),
		Rate:   Variable(c.RiskFreeRate, Rate),
		Div:    Variable(c.DividendRate, Dividend),
		Tau:    Variable(c.TimeToMaturity(), Time),
	}
}

// SpotHyperInputs seeds only the spot, so results carry ∂²/∂S²
func SpotHyperInputs(c contracts.OptionContract) Inputs[HyperDual] {
	var k HyperDual
	return Inputs[HyperDual]{
		Spot:   HyperVariable(c.Spot),
		Strike: k.Const(c.Strike),
		Vol:    k.Const(c.Volatility),
		Rate:   k.Const(c.RiskFreeRate),
		Div:    k.Const(c.DividendRate),
		Tau:    k.Const(c.TimeToMaturity()),
	}
}

// Discount is e^(−r·T)
func (in Inputs[T]) Discount() T {
	return in.Rate.Mul(in.Tau).Neg().Exp()
}

// DividendDiscount is e^(−q·T)
func (in Inputs[T]) DividendDiscount() T {
	return in.Div.Mul(in.Tau).Neg().Exp()
}
