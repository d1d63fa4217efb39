// Package greeks computes sensitivities by re-pricing a contract under bumped
// inputs. Engines without a differentiable formula (the lattice, the
// least-squares simulation) get their Greeks here.
package greeks

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/AAWorks/binomial-pricer/internal/contracts"
)

// Bumps are the central-difference step sizes
type Bumps struct {
	SpotRelative float64 `yaml:"spot_relative" json:"spot_relative"` // fraction of spot
	Volatility   float64 `yaml:"volatility" json:"volatility"`
	Rate         float64 `yaml:"rate" json:"rate"`
	Dividend     float64 `yaml:"dividend" json:"dividend"`
	Time         float64 `yaml:"time" json:"time"` // years, capped at half the time to maturity

	// Gamma also reports the second spot difference. Lattice prices are
	// piecewise linear in spot, so it is off by default.
	Gamma bool `yaml:"-" json:"-"`
}

// DefaultBumps returns the bump sizes used by the pricer
func DefaultBumps() Bumps {
	return Bumps{
		SpotRelative: 0.01,
		Volatility:   0.01,
		Rate:         1e-4,
		Dividend:     1e-4,
		Time:         1.0 / contracts.DaysPerYear,
	}
}

// Validate checks every bump is strictly positive
func (b Bumps) Validate() error {
	for name, v := range map[string]float64{
		"spot_relative": b.SpotRelative,
		"volatility":    b.Volatility,
		"rate":          b.Rate,
		"dividend":      b.Dividend,
		"time":          b.Time,
	} {
		if !(v > 0) {
			return fmt.Errorf("%w: bump %s = %v", contracts.ErrInvalidSettings, name, v)
		}
	}
	return nil
}

// maxConcurrentPricings bounds memory when the pricer itself is parallel
const maxConcurrentPricings = 4

// scenario indexes the bumped contracts
const (
	base = iota
	spotUp
	spotDown
	volUp
	volDown
	rateUp
	rateDown
	divUp
	divDown
	timeUp
	timeDown
	numScenarios
)

// FiniteDifference re-prices c under each bump and returns delta,
// vega, theta (−∂V/∂T), rho and epsilon. Pricings run concurrently; the
// pricer must be safe for concurrent use and deterministic for the result
// to be reproducible.
func FiniteDifference(ctx context.Context, pricer contracts.Pricer, c contracts.OptionContract, b Bumps) (contracts.Greeks, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}

	hs := c.Spot * b.SpotRelative
	ht := math.Min(b.Time, c.TimeToMaturity()/2)

	// one-sided in volatility when a central bump would go negative
	hvUp, hvDown := b.Volatility, b.Volatility
	if c.Volatility-hvDown < 0 {
		hvDown = 0
	}

	tau := c.TimeToMaturity()
	bumped := [numScenarios]contracts.OptionContract{
		base:     c,
		spotUp:   c.WithSpot(c.Spot + hs),
		spotDown: c.WithSpot(c.Spot - hs),
		volUp:    c.WithVolatility(c.Volatility + hvUp),
		volDown:  c.WithVolatility(c.Volatility - hvDown),
		rateUp:   c.WithRiskFreeRate(c.RiskFreeRate + b.Rate),
		rateDown: c.WithRiskFreeRate(c.RiskFreeRate - b.Rate),
		divUp:    c.WithDividendRate(c.DividendRate + b.Dividend),
		divDown:  c.WithDividendRate(c.DividendRate - b.Dividend),
		timeUp:   c.WithTimeToMaturity(tau + ht),
		timeDown: c.WithTimeToMaturity(tau - ht),
	}

	var npv [numScenarios]float64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentPricings)
	for i := range bumped {
		g.Go(func() error {
			result, err := pricer.Price(gctx, bumped[i])
			if err != nil {
				return fmt.Errorf("bump %d: %w", i, err)
			}
			npv[i] = result.NPV
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	greeks := contracts.Greeks{
		contracts.Delta:   (npv[spotUp] - npv[spotDown]) / (2 * hs),
		contracts.Vega:    (npv[volUp] - npv[volDown]) / (hvUp + hvDown),
		contracts.Theta:   -(npv[timeUp] - npv[timeDown]) / (2 * ht),
		contracts.Rho:     (npv[rateUp] - npv[rateDown]) / (2 * b.Rate),
		contracts.Epsilon: (npv[divUp] - npv[divDown]) / (2 * b.Dividend),
	}
	if b.Gamma {
		greeks[contracts.Gamma] = (npv[spotUp] - 2*npv[base] + npv[spotDown]) / (hs * hs)
	}
	if err := greeks.CheckFinite(); err != nil {
		return nil, err
	}

	return greeks, nil
}
