package greeks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AAWorks/binomial-pricer/internal/analytic"
	"github.com/AAWorks/binomial-pricer/internal/contracts"
	"github.com/AAWorks/binomial-pricer/internal/lattice"
)

var valuation = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func TestFiniteDifferenceMatchesAnalytic(t *testing.T) {
	ctx := context.Background()
	engine := analytic.New(nil)
	bumps := DefaultBumps()
	bumps.Gamma = true

	tests := []struct {
		name string
		c    contracts.OptionContract
	}{
		{"atm call", contracts.NewContract(contracts.European, contracts.Call, 100, 100, 1, 0.2, 0.02, 0, valuation)},
		{"otm put with dividends", contracts.NewContract(contracts.European, contracts.Put, 110, 100, 0.5, 0.3, 0.04, 0.02, valuation)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want, err := engine.Greeks(ctx, tt.c)
			require.NoError(t, err)

			got, err := FiniteDifference(ctx, engine, tt.c, bumps)
			require.NoError(t, err)

			assert.InDelta(t, want[contracts.Delta], got[contracts.Delta], 1e-3)
			assert.InDelta(t, want[contracts.Gamma], got[contracts.Gamma], 1e-3)
			assert.InDelta(t, want[contracts.Vega], got[contracts.Vega], 0.02)
			assert.InDelta(t, want[contracts.Theta], got[contracts.Theta], 0.02)
			assert.InDelta(t, want[contracts.Rho], got[contracts.Rho], 0.01)
			assert.InDelta(t, want[contracts.Epsilon], got[contracts.Epsilon], 0.01)
		})
	}
}

func TestFiniteDifferenceOnLattice(t *testing.T) {
	ctx := context.Background()
	c := contracts.NewContract(contracts.European, contracts.Call, 100, 100, 1, 0.2, 0.02, 0, valuation)

	want, err := analytic.New(nil).Greeks(ctx, c)
	require.NoError(t, err)

	got, err := FiniteDifference(ctx, lattice.New(200, nil), c, DefaultBumps())
	require.NoError(t, err)

	assert.NotContains(t, got, contracts.Gamma)
	assert.InDelta(t, want[contracts.Delta], got[contracts.Delta], 0.02)
	assert.InDelta(t, want[contracts.Vega], got[contracts.Vega], 0.5)
	assert.InDelta(t, want[contracts.Rho], got[contracts.Rho], 0.5)

	american, err := FiniteDifference(ctx, lattice.New(200, nil), c.WithStyle(contracts.American).WithRiskFreeRate(0.05), DefaultBumps())
	require.NoError(t, err)
	assert.Greater(t, american[contracts.Delta], 0.0)
	assert.Greater(t, american[contracts.Vega], 0.0)
}

func TestFiniteDifferenceErrors(t *testing.T) {
	ctx := context.Background()
	c := contracts.NewContract(contracts.European, contracts.Call, 100, 100, 1, 0.2, 0.02, 0, valuation)

	_, err := FiniteDifference(ctx, analytic.New(nil), c.WithTimeToMaturity(-1), DefaultBumps())
	assert.ErrorIs(t, err, contracts.ErrExpiredContract)

	_, err = FiniteDifference(ctx, analytic.New(nil), c, Bumps{})
	assert.ErrorIs(t, err, contracts.ErrInvalidSettings)

	var calls atomic.Int32
	boom := errors.New("boom")
	failing := contracts.PricerFunc(func(ctx context.Context, c contracts.OptionContract) (*contracts.PricingResult, error) {
		calls.Add(1)
		return nil, boom
	})
	_, err = FiniteDifference(ctx, failing, c, DefaultBumps())
	assert.ErrorIs(t, err, boom)
	assert.Positive(t, calls.Load())
}

func TestThetaBumpCappedNearExpiry(t *testing.T) {
	ctx := context.Background()
	c := contracts.NewContract(contracts.European, contracts.Call, 100, 100, 1, 0.2, 0.02, 0, valuation).
		WithTimeToMaturity(0.5 / contracts.DaysPerYear)

	var shortest atomic.Value
	shortest.Store(1.0)
	recording := contracts.PricerFunc(func(ctx context.Context, c contracts.OptionContract) (*contracts.PricingResult, error) {
		for {
			cur := shortest.Load().(float64)
			if c.TimeToMaturity() >= cur || shortest.CompareAndSwap(cur, c.TimeToMaturity()) {
				break
			}
		}
		return &contracts.PricingResult{NPV: c.Intrinsic(c.Spot)}, nil
	})

	_, err := FiniteDifference(ctx, recording, c, DefaultBumps())
	require.NoError(t, err)
	assert.InDelta(t, 0.25/contracts.DaysPerYear, shortest.Load().(float64), 1e-15)
}
