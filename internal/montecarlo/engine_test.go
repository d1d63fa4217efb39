package montecarlo

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AAWorks/binomial-pricer/internal/analytic"
	"github.com/AAWorks/binomial-pricer/internal/contracts"
	"github.com/AAWorks/binomial-pricer/internal/lattice"
)

var valuation = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func contract(style contracts.Style, right contracts.Right, s, k, tau, vol, r, q float64) contracts.OptionContract {
	return contracts.NewContract(style, right, s, k, tau, vol, r, q, valuation)
}

func newEngine(t *testing.T, mutate func(*Settings)) *Engine {
	t.Helper()
	settings := DefaultSettings()
	if mutate != nil {
		mutate(&settings)
	}
	engine, err := New(settings, nil)
	require.NoError(t, err)
	return engine
}

func TestPriceConvergesToAnalytic(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(t, nil)

	c := contract(contracts.European, contracts.Call, 100, 100, 1, 0.2, 0, 0)
	want, err := analytic.NPV(c)
	require.NoError(t, err)

	result, err := engine.Price(ctx, c)
	require.NoError(t, err)

	assert.Equal(t, contracts.MethodMonteCarlo, result.Method)
	assert.InDelta(t, want, result.NPV, 0.10)
	assert.Less(t, math.Abs(result.NPV-want)/want, 0.01)
	assert.Equal(t, 1e6, result.Diagnostics["scenarios"])
	assert.Equal(t, 42.0, result.Diagnostics["seed"])
	assert.InDelta(t, 0.0132, result.Diagnostics["std_error"], 0.001)
}

func TestPriceIsDeterministic(t *testing.T) {
	ctx := context.Background()
	c := contract(contracts.European, contracts.Put, 95, 100, 0.5, 0.3, 0.03, 0.01)

	serial := newEngine(t, func(s *Settings) { s.Scenarios = 100_003; s.Workers = 1 })
	parallel := newEngine(t, func(s *Settings) { s.Scenarios = 100_003; s.Workers = 8 })

	first, err := serial.Price(ctx, c)
	require.NoError(t, err)
	second, err := serial.Price(ctx, c)
	require.NoError(t, err)
	third, err := parallel.Price(ctx, c)
	require.NoError(t, err)

	assert.Equal(t, first.NPV, second.NPV)
	assert.Equal(t, first.NPV, third.NPV)
	assert.Equal(t, first.Diagnostics["std_error"], third.Diagnostics["std_error"])

	reseeded := newEngine(t, func(s *Settings) { s.Scenarios = 100_003; s.Seed = 7 })
	other, err := reseeded.Price(ctx, c)
	require.NoError(t, err)
	assert.NotEqual(t, first.NPV, other.NPV)
}

func TestZeroVolatilityIsDeterministicPayoff(t *testing.T) {
	engine := newEngine(t, func(s *Settings) { s.Scenarios = 1000 })
	c := contract(contracts.European, contracts.Call, 100, 95, 1, 0, 0.05, 0)

	result, err := engine.Price(context.Background(), c)
	require.NoError(t, err)

	assert.InDelta(t, 100-95*math.Exp(-0.05), result.NPV, 1e-9)
	assert.InDelta(t, 0, result.Diagnostics["std_error"], 1e-6)
}

func TestZeroVolatilityAmerican(t *testing.T) {
	engine := newEngine(t, func(s *Settings) { s.LSMPaths = 2000 })

	tests := []struct {
		name string
		c    contracts.OptionContract
		want float64
	}{
		{
			name: "in the money put, no carry",
			c:    contract(contracts.American, contracts.Put, 100, 110, 1, 0, 0, 0),
			want: 10,
		},
		{
			name: "in the money put, exercise now",
			c:    contract(contracts.American, contracts.Put, 100, 110, 1, 0, 0.05, 0),
			want: 10,
		},
		{
			name: "in the money put, wait for maturity",
			c:    contract(contracts.American, contracts.Put, 100, 110, 1, 0, 0, 0.05),
			want: 110 - 100*math.Exp(-0.05),
		},
		{
			name: "out of the money put",
			c:    contract(contracts.American, contracts.Put, 100, 90, 1, 0, 0.05, 0),
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := engine.Price(context.Background(), tt.c)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, result.NPV, 1e-8)
		})
	}
}

func TestPathwiseGreeks(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(t, nil)

	for _, right := range []contracts.Right{contracts.Call, contracts.Put} {
		t.Run(string(right), func(t *testing.T) {
			c := contract(contracts.European, right, 100, 100, 1, 0.2, 0.02, 0.01)

			want, err := analytic.New(nil).Greeks(ctx, c)
			require.NoError(t, err)
			got, err := engine.Greeks(ctx, c)
			require.NoError(t, err)

			assert.InDelta(t, want[contracts.Delta], got[contracts.Delta], 0.01)
			assert.InDelta(t, want[contracts.Gamma], got[contracts.Gamma], 0.002)
			assert.InDelta(t, want[contracts.Vega], got[contracts.Vega], 1)
			assert.InDelta(t, want[contracts.Theta], got[contracts.Theta], 0.2)
			assert.InDelta(t, want[contracts.Rho], got[contracts.Rho], 1)
			assert.InDelta(t, want[contracts.Epsilon], got[contracts.Epsilon], 1)
		})
	}
}

func TestAmericanLeastSquares(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(t, nil)

	c := contract(contracts.American, contracts.Put, 100, 100, 1, 0.2, 0.05, 0)
	want, err := lattice.NPV(ctx, c, 500)
	require.NoError(t, err)
	european, err := analytic.NPV(c.WithStyle(contracts.European))
	require.NoError(t, err)

	result, err := engine.Price(ctx, c)
	require.NoError(t, err)

	assert.InDelta(t, want, result.NPV, 0.2)
	assert.Greater(t, result.NPV, european)
	assert.Equal(t, 50.0, result.Diagnostics["exercise_dates"])
}

func TestAsianAveragePrice(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(t, func(s *Settings) { s.PathScenarios = 20_000 })

	c := contract(contracts.Asian, contracts.Call, 100, 100, 1, 0.2, 0.05, 0)
	european, err := analytic.NPV(c.WithStyle(contracts.European))
	require.NoError(t, err)

	result, err := engine.Price(ctx, c)
	require.NoError(t, err)

	// bounded below by the continuous geometric-average price (≈ 5.55)
	assert.Greater(t, result.NPV, 5.4)
	assert.Less(t, result.NPV, 6.2)
	assert.Less(t, result.NPV, european)
	assert.Equal(t, 252.0, result.Diagnostics["steps"])

	again, err := engine.Price(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, result.NPV, again.NPV)
}

func TestFiniteDifferenceGreeksForAsian(t *testing.T) {
	engine := newEngine(t, func(s *Settings) { s.PathScenarios = 20_000 })
	c := contract(contracts.Asian, contracts.Call, 100, 100, 1, 0.2, 0.05, 0)

	g, err := engine.Greeks(context.Background(), c)
	require.NoError(t, err)

	assert.Greater(t, g[contracts.Delta], 0.4)
	assert.Less(t, g[contracts.Delta], 0.8)
	assert.Greater(t, g[contracts.Vega], 0.0)
	assert.Contains(t, g, contracts.Gamma)
}

func TestErrors(t *testing.T) {
	ctx := context.Background()

	_, err := New(Settings{}, nil)
	assert.ErrorIs(t, err, contracts.ErrInvalidSettings)

	bad := DefaultSettings()
	bad.Scenarios = -5
	_, err = New(bad, nil)
	assert.ErrorIs(t, err, contracts.ErrInvalidSettings)

	engine := newEngine(t, nil)
	expired := contract(contracts.European, contracts.Call, 100, 100, 1, 0.2, 0, 0).WithTimeToMaturity(-0.01)

	result, err := engine.Price(ctx, expired)
	assert.ErrorIs(t, err, contracts.ErrExpiredContract)
	assert.Nil(t, result)

	_, err = engine.Greeks(ctx, expired)
	assert.ErrorIs(t, err, contracts.ErrExpiredContract)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = engine.Price(cancelled, contract(contracts.European, contracts.Call, 100, 100, 1, 0.2, 0, 0))
	assert.ErrorIs(t, err, context.Canceled)
}
