package montecarlo

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/AAWorks/binomial-pricer/internal/contracts"
)

// lsmResult Longstaff-Schwartz 결과
type lsmResult struct {
	npv           float64
	stdErr        float64
	exerciseDates int
}

// simulateLSM prices an American option by least-squares Monte Carlo.
// Continuation values are regressed on 1, x, …, x^degree with x = S/K over
// in-the-money paths only.
func simulateLSM(ctx context.Context, c contracts.OptionContract, s Settings) (lsmResult, error) {
	tau := c.TimeToMaturity()
	steps := pathSteps(s.LSMStepsPerYear, tau)
	dt := tau / float64(steps)
	step := newStepper(c, dt)

	// row = path, column j = price at t(j+1)
	paths := mat.NewDense(s.LSMPaths, steps, nil)
	_, err := runChunks(ctx, s.LSMPaths, s.Seed, s.workers(), func(_, offset, size int, rng *rand.Rand) (struct{}, error) {
		incr := make([]float64, steps)
		for p := 0; p < size; p++ {
			step.fill(paths.RawRowView(offset+p), incr, rng)
		}
		return struct{}{}, nil
	})
	if err != nil {
		return lsmResult{}, err
	}

	values := make([]float64, s.LSMPaths)
	for i := range values {
		values[i] = c.Intrinsic(paths.At(i, steps-1))
	}

	discount := math.Exp(-c.RiskFreeRate * dt)
	for j := steps - 2; j >= 0; j-- {
		if err := ctx.Err(); err != nil {
			return lsmResult{}, err
		}

		floats.Scale(discount, values)
		if err := exerciseStep(c, paths, j, values, s.BasisDegree); err != nil {
			return lsmResult{}, fmt.Errorf("exercise date %d: %w", j+1, err)
		}
	}
	floats.Scale(discount, values)

	mean, std := stat.MeanStdDev(values, nil)
	npv := math.Max(mean, c.Intrinsic(c.Spot))

	return lsmResult{
		npv:           npv,
		stdErr:        std / math.Sqrt(float64(len(values))),
		exerciseDates: steps,
	}, nil
}

// exerciseStep replaces continuation with immediate exercise on paths where
// the intrinsic value beats the regressed continuation value at column j
func exerciseStep(c contracts.OptionContract, paths *mat.Dense, j int, values []float64, degree int) error {
	var itm []int
	for i := range values {
		if c.Intrinsic(paths.At(i, j)) > 0 {
			itm = append(itm, i)
		}
	}

	k := degree + 1
	if len(itm) <= k {
		return nil
	}

	// 가격이 모두 같으면 (σ = 0) 회귀가 불가능: 연속가치는 평균값
	if flat(paths, j, itm) {
		var continuation float64
		for _, i := range itm {
			continuation += values[i]
		}
		continuation /= float64(len(itm))
		for _, i := range itm {
			if exercise := c.Intrinsic(paths.At(i, j)); exercise > continuation {
				values[i] = exercise
			}
		}
		return nil
	}

	basis := mat.NewDense(len(itm), k, nil)
	target := mat.NewVecDense(len(itm), nil)
	for r, i := range itm {
		x := paths.At(i, j) / c.Strike
		v := 1.0
		for d := 0; d < k; d++ {
			basis.Set(r, d, v)
			v *= x
		}
		target.SetVec(r, values[i])
	}

	var coefficients mat.VecDense
	if err := coefficients.SolveVec(basis, target); err != nil {
		return fmt.Errorf("%w: continuation regression: %v", contracts.ErrNumericalInstability, err)
	}

	var continuation mat.VecDense
	continuation.MulVec(basis, &coefficients)

	for r, i := range itm {
		if exercise := c.Intrinsic(paths.At(i, j)); exercise > continuation.AtVec(r) {
			values[i] = exercise
		}
	}
	return nil
}

// flat reports whether the in-the-money prices at column j have no spread
func flat(paths *mat.Dense, j int, itm []int) bool {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, i := range itm {
		v := paths.At(i, j)
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return hi-lo <= 1e-12*math.Max(1, math.Abs(hi))
}
