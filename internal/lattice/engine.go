// Package lattice prices European and American options on a recombining
// Cox-Ross-Rubinstein binomial tree.
package lattice

import (
	"context"
	"fmt"
	"math"

	"github.com/AAWorks/binomial-pricer/internal/contracts"
	"github.com/AAWorks/binomial-pricer/pkg/logger"
)

// DefaultSteps is the lattice depth used when none is configured
const DefaultSteps = 100

// Engine is the binomial tree pricer
type Engine struct {
	steps  int
	logger *logger.Logger
}

// New creates a lattice engine with the given depth.
// steps <= 0 selects DefaultSteps.
func New(steps int, log *logger.Logger) *Engine {
	if steps <= 0 {
		steps = DefaultSteps
	}
	return &Engine{
		steps:  steps,
		logger: logger.OrNop(log).WithField("method", contracts.MethodBinomialTree),
	}
}

// Steps returns the lattice depth
func (e *Engine) Steps() int {
	return e.steps
}

// Price returns the NPV and the early-exercise premium
// (American − European on the same lattice, exactly 0 for European contracts)
func (e *Engine) Price(ctx context.Context, c contracts.OptionContract) (*contracts.PricingResult, error) {
	if err := checkContract(c); err != nil {
		return nil, err
	}

	european, american, err := priceBoth(ctx, c, e.steps)
	if err != nil {
		return nil, err
	}

	npv := european
	premium := 0.0
	if c.Style == contracts.American {
		npv = american
		premium = american - european
	}

	if premium < 0 {
		e.logger.WithFields(map[string]interface{}{
			"contract": c.String(),
			"premium":  premium,
		}).Error("negative early exercise premium")
		return nil, fmt.Errorf("%w: early exercise premium %.10f < 0", contracts.ErrNumericalInstability, premium)
	}

	result := &contracts.PricingResult{
		Method:               contracts.MethodBinomialTree,
		NPV:                  npv,
		EarlyExercisePremium: &premium,
		Diagnostics: map[string]float64{
			"steps":        float64(e.steps),
			"european_npv": european,
		},
	}
	if err := contracts.CheckFinite(result); err != nil {
		return nil, err
	}

	e.logger.WithFields(map[string]interface{}{
		"contract": c.String(),
		"steps":    e.steps,
		"npv":      npv,
		"premium":  premium,
	}).Debug("priced contract")

	return result, nil
}

// NPV prices c on an n-step lattice using the contract's own style
func NPV(ctx context.Context, c contracts.OptionContract, n int) (float64, error) {
	if err := checkContract(c); err != nil {
		return 0, err
	}
	params, err := newParameters(c, n)
	if err != nil {
		return 0, err
	}
	return rollback(ctx, c, params, c.Style == contracts.American)
}

// priceBoth prices the European and American instances of c on one lattice
func priceBoth(ctx context.Context, c contracts.OptionContract, n int) (float64, float64, error) {
	params, err := newParameters(c, n)
	if err != nil {
		return 0, 0, err
	}

	european, err := rollback(ctx, c, params, false)
	if err != nil {
		return 0, 0, err
	}
	american, err := rollback(ctx, c, params, true)
	if err != nil {
		return 0, 0, err
	}
	return european, american, nil
}

func checkContract(c contracts.OptionContract) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Style == contracts.Asian {
		return fmt.Errorf("%w: %s cannot price path-dependent %s contracts",
			contracts.ErrUnsupportedStyle, contracts.MethodBinomialTree, c.Style)
	}
	return nil
}

// parameters are the CRR quantities shared by every node
type parameters struct {
	steps    int
	u, d     float64
	p        float64
	discount float64
}

// newParameters derives u = e^(σ√Δt), d = 1/u, p = (e^((r−q)Δt) − d)/(u − d).
// p outside [0, 1] is reported, never clamped.
func newParameters(c contracts.OptionContract, n int) (parameters, error) {
	if n < 1 {
		return parameters{}, fmt.Errorf("%w: steps %d < 1", contracts.ErrInvalidLatticeParameters, n)
	}

	dt := c.TimeToMaturity() / float64(n)
	if !(dt > 0) {
		return parameters{}, fmt.Errorf("%w: Δt = %v", contracts.ErrInvalidLatticeParameters, dt)
	}

	u := math.Exp(c.Volatility * math.Sqrt(dt))
	d := 1 / u
	if u == d {
		return parameters{}, fmt.Errorf("%w: u == d (σ = %v)", contracts.ErrInvalidLatticeParameters, c.Volatility)
	}

	p := (math.Exp((c.RiskFreeRate-c.DividendRate)*dt) - d) / (u - d)
	if math.IsNaN(p) || p < 0 || p > 1 {
		return parameters{}, fmt.Errorf("%w: risk-neutral probability %.6f outside [0, 1] (u=%.6f d=%.6f Δt=%.6f)",
			contracts.ErrInvalidLatticeParameters, p, u, d, dt)
	}

	return parameters{
		steps:    n,
		u:        u,
		d:        d,
		p:        p,
		discount: math.Exp(-c.RiskFreeRate * dt),
	}, nil
}

// rollback backward-inducts node values from the terminal payoff.
// values[j] holds the node with j up-moves, price S·u^j·d^(i−j) = S·u^(2j−i).
func rollback(ctx context.Context, c contracts.OptionContract, prm parameters, american bool) (float64, error) {
	n := prm.steps
	values := make([]float64, n+1)
	for j := 0; j <= n; j++ {
		values[j] = c.Intrinsic(c.Spot * math.Pow(prm.u, float64(2*j-n)))
	}

	pu := prm.discount * prm.p
	pd := prm.discount * (1 - prm.p)

	for i := n - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		// lowest node at step i, then walk up by u² per node
		s := c.Spot * math.Pow(prm.u, float64(-i))
		for j := 0; j <= i; j++ {
			cont := pu*values[j+1] + pd*values[j]
			if american {
				cont = math.Max(cont, c.Intrinsic(s))
			}
			values[j] = cont
			s *= prm.u * prm.u
		}
	}

	return values[0], nil
}
