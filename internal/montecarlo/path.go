package montecarlo

import (
	"context"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/AAWorks/binomial-pricer/internal/autodiff"
	"github.com/AAWorks/binomial-pricer/internal/contracts"
)

// pathSteps is the number of simulated dates over the contract's life
func pathSteps(stepsPerYear int, tau float64) int {
	return max(1, int(math.Round(float64(stepsPerYear)*tau)))
}

// stepper advances log prices with risk-neutral GBM increments
type stepper struct {
	spot      float64
	drift     float64 // (r − q − σ²/2)·Δt
	diffusion float64 // σ·√Δt
}

func newStepper(c contracts.OptionContract, dt float64) stepper {
	return stepper{
		spot:      c.Spot,
		drift:     (c.RiskFreeRate - c.DividendRate - 0.5*c.Volatility*c.Volatility) * dt,
		diffusion: c.Volatility * math.Sqrt(dt),
	}
}

// fill writes S(t1..tn) into dst. The log path is the cumulative sum of the
// increments, so incr must have len(dst) and is overwritten.
func (s stepper) fill(dst, incr []float64, rng *rand.Rand) {
	for j := range incr {
		incr[j] = s.drift + s.diffusion*rng.NormFloat64()
	}
	floats.CumSum(dst, incr)
	for j, x := range dst {
		dst[j] = s.spot * math.Exp(x)
	}
}

// simulateAverage prices an arithmetic average price option.
// The average runs over the simulated dates, excluding the valuation date.
func simulateAverage(ctx context.Context, c contracts.OptionContract, s Settings) (float64, float64, error) {
	tau := c.TimeToMaturity()
	steps := pathSteps(s.StepsPerYear, tau)
	step := newStepper(c, tau/float64(steps))

	chunks, err := runChunks(ctx, s.PathScenarios, s.Seed, s.workers(), func(_, _, size int, rng *rand.Rand) (moments[autodiff.Real], error) {
		path := make([]float64, steps)
		incr := make([]float64, steps)

		var m moments[autodiff.Real]
		for p := 0; p < size; p++ {
			step.fill(path, incr, rng)
			payoff := c.Intrinsic(stat.Mean(path, nil))
			m.sum += autodiff.Real(payoff)
			m.sumSq += payoff * payoff
		}
		return m, nil
	})
	if err != nil {
		return 0, 0, err
	}

	var sum, sumSq float64
	for _, m := range chunks {
		sum += float64(m.sum)
		sumSq += m.sumSq
	}

	mean := sum / float64(s.PathScenarios)
	discount := math.Exp(-c.RiskFreeRate * tau)
	return discount * mean, discount * standardError(mean, sumSq, s.PathScenarios), nil
}
