// Package analytic prices European options in closed form (Black-Scholes with
// a continuous dividend yield). It is the baseline the lattice and simulation
// engines are measured against.
package analytic

import (
	"context"
	"fmt"
	"math"

	"github.com/AAWorks/binomial-pricer/internal/autodiff"
	"github.com/AAWorks/binomial-pricer/internal/contracts"
	"github.com/AAWorks/binomial-pricer/pkg/logger"
)

// Engine is the closed-form pricer
type Engine struct {
	logger *logger.Logger
}

// New creates an analytic engine. A nil logger discards output.
func New(log *logger.Logger) *Engine {
	return &Engine{logger: logger.OrNop(log).WithField("method", contracts.MethodBlackScholes)}
}

// Price returns NPV, automatic-differentiation Greeks and the exercise
// probabilities N(d1), N(d2) as diagnostics
func (e *Engine) Price(ctx context.Context, c contracts.OptionContract) (*contracts.PricingResult, error) {
	if err := checkContract(c); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	npv := blackScholes(c.Right, autodiff.RealInputs(c)).Value()
	greeks := adGreeks(c)

	d1, d2 := d1d2(autodiff.RealInputs(c))
	result := &contracts.PricingResult{
		Method: contracts.MethodBlackScholes,
		NPV:    npv,
		Greeks: greeks,
		Diagnostics: map[string]float64{
			"n_d1": autodiff.NormCDF(d1.Value()),
			"n_d2": autodiff.NormCDF(d2.Value()),
		},
	}
	if err := contracts.CheckFinite(result); err != nil {
		return nil, err
	}

	e.logger.WithFields(map[string]interface{}{
		"contract": c.String(),
		"npv":      npv,
	}).Debug("priced contract")

	return result, nil
}

// NPV returns the closed-form price only
func NPV(c contracts.OptionContract) (float64, error) {
	if err := checkContract(c); err != nil {
		return 0, err
	}
	npv := blackScholes(c.Right, autodiff.RealInputs(c)).Value()
	if math.IsNaN(npv) || math.IsInf(npv, 0) {
		return 0, fmt.Errorf("%w: npv = %v", contracts.ErrNumericalInstability, npv)
	}
	return npv, nil
}

// Greeks returns sensitivities by automatic differentiation of the formula
func (e *Engine) Greeks(ctx context.Context, c contracts.OptionContract) (contracts.Greeks, error) {
	if err := checkContract(c); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g := adGreeks(c)
	if err := g.CheckFinite(); err != nil {
		return nil, err
	}
	return g, nil
}

func adGreeks(c contracts.OptionContract) contracts.Greeks {
	v := blackScholes(c.Right, autodiff.DualInputs(c))
	gamma := blackScholes(c.Right, autodiff.SpotHyperInputs(c)).Second()

	return contracts.Greeks{
		contracts.Delta:     v.Grad(autodiff.Spot),
		contracts.Gamma:     gamma,
		contracts.Vega:      v.Grad(autodiff.Volatility),
		contracts.Theta:     -v.Grad(autodiff.Time),
		contracts.Rho:       v.Grad(autodiff.Rate),
		contracts.Epsilon:   v.Grad(autodiff.Dividend),
		contracts.DualDelta: v.Grad(autodiff.Strike),
	}
}

// ClosedFormGreeks evaluates the textbook Greek formulas.
// It exists to cross-check the automatic-differentiation path.
func ClosedFormGreeks(c contracts.OptionContract) (contracts.Greeks, error) {
	if err := checkContract(c); err != nil {
		return nil, err
	}

	s, k, sigma := c.Spot, c.Strike, c.Volatility
	r, q, tau := c.RiskFreeRate, c.DividendRate, c.TimeToMaturity()

	d1r, d2r := d1d2(autodiff.RealInputs(c))
	d1, d2 := d1r.Value(), d2r.Value()
	sqrtT := math.Sqrt(tau)
	dfq := math.Exp(-q * tau)
	dfr := math.Exp(-r * tau)
	pdf := autodiff.NormPDF(d1)
	N := autodiff.NormCDF

	g := contracts.Greeks{
		contracts.Gamma: dfq * pdf / (s * sigma * sqrtT),
		contracts.Vega:  s * dfq * pdf * sqrtT,
	}
	decay := -s * dfq * pdf * sigma / (2 * sqrtT)

	if c.Right == contracts.Call {
		g[contracts.Delta] = dfq * N(d1)
		g[contracts.Theta] = decay - r*k*dfr*N(d2) + q*s*dfq*N(d1)
		g[contracts.Rho] = k * tau * dfr * N(d2)
		g[contracts.Epsilon] = -s * tau * dfq * N(d1)
		g[contracts.DualDelta] = -dfr * N(d2)
	} else {
		g[contracts.Delta] = -dfq * N(-d1)
		g[contracts.Theta] = decay + r*k*dfr*N(-d2) - q*s*dfq*N(-d1)
		g[contracts.Rho] = -k * tau * dfr * N(-d2)
		g[contracts.Epsilon] = s * tau * dfq * N(-d1)
		g[contracts.DualDelta] = dfr * N(-d2)
	}

	return g, nil
}

// checkContract rejects expired, non-European and degenerate contracts
func checkContract(c contracts.OptionContract) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Style != contracts.European {
		return fmt.Errorf("%w: %s engine prices european contracts only, got %s",
			contracts.ErrUnsupportedStyle, contracts.MethodBlackScholes, c.Style)
	}
	if c.Volatility*math.Sqrt(c.TimeToMaturity()) == 0 {
		return fmt.Errorf("%w: σ·√T is zero", contracts.ErrDegenerateInput)
	}
	return nil
}
