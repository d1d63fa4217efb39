package environment

import (
	"math"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AAWorks/binomial-pricer/internal/contracts"
)

var valuation = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func newEnv(t *testing.T, right contracts.Right, spot, strike, vol, rate float64) *Environment {
	t.Helper()
	c := contracts.NewContract(contracts.American, right, spot, strike, 1, vol, rate, 0, valuation)
	env, err := New(c, DefaultConfig())
	require.NoError(t, err)
	return env
}

func TestReset(t *testing.T) {
	env := newEnv(t, contracts.Put, 100, 100, 0.2, 0.02)
	assert.Equal(t, 365, env.TotalDays())

	for i := 0; i < 3; i++ {
		_, err := env.Step(Hold)
		require.NoError(t, err)
	}

	obs := env.Reset()
	assert.Equal(t, Observation{Price: 100, TimeRemaining: 1.0}, obs)
	assert.Equal(t, State{UnderlyingPrice: 100, DayIndex: 0, DaysToMaturity: 365}, env.State())
	assert.False(t, env.Terminated())
}

func TestExerciseOnDayZero(t *testing.T) {
	env := newEnv(t, contracts.Call, 110, 100, 0.2, 0.05)

	tr, err := env.Step(Exercise)
	require.NoError(t, err)

	assert.True(t, tr.Done)
	assert.Equal(t, 10.0, tr.Reward)
	assert.Equal(t, Observation{Price: 110, TimeRemaining: 1.0}, tr.Observation)

	_, err = env.Step(Hold)
	assert.ErrorIs(t, err, contracts.ErrEnvironmentTerminated)
	_, err = env.Step(Exercise)
	assert.ErrorIs(t, err, contracts.ErrEnvironmentTerminated)
}

func TestHoldToMaturity(t *testing.T) {
	env := newEnv(t, contracts.Put, 100, 100, 0.3, 0.02)

	steps := 0
	lastDay := 0
	var tr Transition
	for !env.Terminated() {
		var err error
		tr, err = env.Step(Hold)
		require.NoError(t, err)
		steps++

		day := env.State().DayIndex
		assert.GreaterOrEqual(t, day, lastDay)
		assert.LessOrEqual(t, day, env.TotalDays())
		assert.Equal(t, env.TotalDays()-day, env.State().DaysToMaturity)
		if !tr.Done {
			assert.Zero(t, tr.Reward)
			assert.Equal(t, day, lastDay+1)
		}
		lastDay = day
	}

	// 365 advancing days, then one forced settlement at maturity
	assert.Equal(t, 366, steps)
	assert.Equal(t, 0.0, tr.Observation.TimeRemaining)

	price := env.State().UnderlyingPrice
	assert.InDelta(t, math.Exp(-0.02)*math.Max(100-price, 0), tr.Reward, 1e-12)
}

func TestZeroVolatilityIsDeterministic(t *testing.T) {
	env := newEnv(t, contracts.Call, 100, 90, 0, 0.05)

	for i := 0; i < 73; i++ {
		_, err := env.Step(Hold)
		require.NoError(t, err)
	}

	wantPrice := 100 * math.Exp(0.05*0.2)
	assert.InDelta(t, wantPrice, env.State().UnderlyingPrice, 1e-9)

	tr, err := env.Step(Exercise)
	require.NoError(t, err)
	assert.InDelta(t, math.Exp(-0.05*0.2)*(wantPrice-90), tr.Reward, 1e-9)
	assert.InDelta(t, 0.8, tr.Observation.TimeRemaining, 1e-12)
}

func TestSeededEnvironmentsAgree(t *testing.T) {
	a := newEnv(t, contracts.Put, 100, 100, 0.2, 0.02)
	b := newEnv(t, contracts.Put, 100, 100, 0.2, 0.02)

	for i := 0; i < 50; i++ {
		ta, err := a.Step(Hold)
		require.NoError(t, err)
		tb, err := b.Step(Hold)
		require.NoError(t, err)
		assert.Equal(t, ta, tb)
	}
}

func TestSimulatePath(t *testing.T) {
	env := newEnv(t, contracts.Put, 100, 100, 0.2, 0.02)

	path := slices.Collect(env.SimulatePath())
	require.Len(t, path, env.TotalDays()+1)
	assert.Equal(t, 100.0, path[0])
	for _, p := range path {
		assert.Greater(t, p, 0.0)
	}

	// restartable and independent of the interactive state
	_, err := env.Step(Hold)
	require.NoError(t, err)
	assert.Equal(t, path, slices.Collect(env.SimulatePath()))

	// early termination
	n := 0
	for range env.SimulatePath() {
		n++
		if n == 10 {
			break
		}
	}
	assert.Equal(t, 10, n)

	// a new episode draws a new path
	env.Reset()
	assert.NotEqual(t, path, slices.Collect(env.SimulatePath()))
}

func TestSimulatePathFor(t *testing.T) {
	env := newEnv(t, contracts.Put, 100, 100, 0.2, 0.02)
	first := slices.Collect(env.SimulatePathFor(0))
	assert.Equal(t, slices.Collect(env.SimulatePath()), first)

	for range 3 {
		env.Reset()
	}
	assert.Equal(t, slices.Collect(env.SimulatePath()), slices.Collect(env.SimulatePathFor(3)))
	assert.NotEqual(t, first, slices.Collect(env.SimulatePathFor(3)))

	// 큰 에피소드 번호도 즉시 계산
	far := slices.Collect(env.SimulatePathFor(math.MaxUint64 - 1))
	require.Len(t, far, env.TotalDays()+1)
	assert.Equal(t, 100.0, far[0])
}

func TestNewErrors(t *testing.T) {
	c := contracts.NewContract(contracts.American, contracts.Put, 100, 100, 1, 0.2, 0.02, 0, valuation)

	_, err := New(c.WithTimeToMaturity(-0.1), DefaultConfig())
	assert.ErrorIs(t, err, contracts.ErrExpiredContract)

	_, err = New(c, Config{DaysPerYear: 0})
	assert.ErrorIs(t, err, contracts.ErrInvalidSettings)

	env, err := New(c, DefaultConfig())
	require.NoError(t, err)
	_, err = env.Step(Action(7))
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestShortContractHasAtLeastOneDay(t *testing.T) {
	c := contracts.NewContract(contracts.American, contracts.Put, 100, 100, 1, 0.2, 0.02, 0, valuation).
		WithTimeToMaturity(0.5 / contracts.DaysPerYear)

	env, err := New(c, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 1, env.TotalDays())
}
