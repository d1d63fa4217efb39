package montecarlo

import (
	"context"
	"math"

	"golang.org/x/exp/rand"

	"github.com/AAWorks/binomial-pricer/internal/autodiff"
	"github.com/AAWorks/binomial-pricer/internal/contracts"
)

// moments accumulates discounted-before payoffs of one chunk
type moments[T autodiff.Scalar[T]] struct {
	sum   T
	sumSq float64
}

// terminalChunk draws S_T = S·exp((r − q − σ²/2)T + σ√T·Z) size times.
// Generic so the same draws give the price (Real) or its gradient (Dual).
func terminalChunk[T autodiff.Scalar[T]](c contracts.OptionContract, in autodiff.Inputs[T], size int, rng *rand.Rand) moments[T] {
	drift := in.Rate.Sub(in.Div).Sub(in.Vol.Mul(in.Vol).Scale(0.5)).Mul(in.Tau)
	diffusion := in.Vol.Mul(in.Tau.Sqrt())
	sign := c.Sign()

	m := moments[T]{sum: in.Spot.Const(0)}
	for i := 0; i < size; i++ {
		z := rng.NormFloat64()
		st := in.Spot.Mul(drift.Add(diffusion.Scale(z)).Exp())

		payoff := st.Sub(in.Strike).Scale(sign)
		if v := payoff.Value(); v > 0 {
			m.sum = m.sum.Add(payoff)
			m.sumSq += v * v
		}
	}
	return m
}

// simulateTerminal returns e^(−rT)·mean(payoff) over n draws and its standard error
func simulateTerminal[T autodiff.Scalar[T]](ctx context.Context, c contracts.OptionContract, in autodiff.Inputs[T],
	n int, seed uint64, workers int) (T, float64, error) {

	chunks, err := runChunks(ctx, n, seed, workers, func(_, _, size int, rng *rand.Rand) (moments[T], error) {
		return terminalChunk(c, in, size, rng), nil
	})
	if err != nil {
		var zero T
		return zero, 0, err
	}

	total := in.Spot.Const(0)
	sumSq := 0.0
	for _, m := range chunks {
		total = total.Add(m.sum)
		sumSq += m.sumSq
	}

	mean := total.Scale(1 / float64(n))
	discount := in.Discount()
	npv := mean.Mul(discount)

	return npv, discount.Value() * standardError(mean.Value(), sumSq, n), nil
}

// standardError of the sample mean from first and second raw moments
func standardError(mean, sumSq float64, n int) float64 {
	if n < 2 {
		return 0
	}
	variance := (sumSq/float64(n) - mean*mean) * float64(n) / float64(n-1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance / float64(n))
}
