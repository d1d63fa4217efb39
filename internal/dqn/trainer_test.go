package dqn

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AAWorks/binomial-pricer/internal/contracts"
	"github.com/AAWorks/binomial-pricer/internal/environment"
	"github.com/AAWorks/binomial-pricer/pkg/logger"
)

var valuation = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

// a one-month American put keeps episodes short
func testContract() contracts.OptionContract {
	return contracts.NewContract(contracts.American, contracts.Put, 100, 100, 1, 0.2, 0.05, 0, valuation).
		WithTimeToMaturity(30.0 / contracts.DaysPerYear)
}

func testHyperparameters() Hyperparameters {
	hp := DefaultHyperparameters()
	hp.Iterations = 300
	hp.CollectStepsPerIteration = 5
	hp.ReplayCapacity = 1000
	hp.BatchSize = 32
	hp.EvalEpisodes = 5
	hp.EvalInterval = 100
	hp.LogInterval = 50
	hp.HiddenUnits = 16
	hp.TargetUpdatePeriod = 20
	hp.NPVEpisodes = 200
	return hp
}

func newTrainer(t *testing.T, hp Hyperparameters, log *logger.Logger) *Trainer {
	t.Helper()
	trainer, err := New(testContract(), environment.DefaultConfig(), hp, log)
	require.NoError(t, err)
	return trainer
}

func TestSequencingErrors(t *testing.T) {
	ctx := context.Background()
	trainer := newTrainer(t, testHyperparameters(), nil)

	assert.ErrorIs(t, trainer.BuildReplayBuffer(), contracts.ErrUninitializedAgent)
	assert.ErrorIs(t, trainer.Train(ctx), contracts.ErrUninitializedAgent)
	_, err := trainer.CalculateNPV(ctx)
	assert.ErrorIs(t, err, contracts.ErrUninitializedAgent)
	_, err = trainer.Act(environment.Observation{Price: 100, TimeRemaining: 1})
	assert.ErrorIs(t, err, contracts.ErrUninitializedAgent)

	require.NoError(t, trainer.InitAgent())
	assert.Zero(t, trainer.TrainStep())
	assert.ErrorIs(t, trainer.Train(ctx), contracts.ErrUnbuiltBuffer)

	require.NoError(t, trainer.BuildReplayBuffer())
	_, err = trainer.CalculateNPV(ctx)
	assert.ErrorIs(t, err, contracts.ErrUntrainedAgent)
}

func TestTrainProducesLogAndCurve(t *testing.T) {
	var buf bytes.Buffer
	trainer := newTrainer(t, testHyperparameters(), logger.NewWithWriter(&buf, "info"))

	var streamed []LogEntry
	trainer.OnLog(func(e LogEntry) { streamed = append(streamed, e) })

	npv, err := Run(context.Background(), trainer)
	require.NoError(t, err)

	assert.Equal(t, 300, trainer.TrainStep())
	assert.GreaterOrEqual(t, npv, 0.0)
	assert.Less(t, npv, 100.0)

	curve := trainer.LearningCurve()
	require.Len(t, curve, 4)
	for i, p := range curve {
		assert.Equal(t, i*100, p.Iteration)
		assert.GreaterOrEqual(t, p.AverageReturn, 0.0)
	}

	log := trainer.Log()
	assert.Equal(t, log, streamed)
	require.NotEmpty(t, log)
	assert.True(t, strings.HasPrefix(log[0].Message, "step = 0: Average Return = "), log[0].Message)

	var losses, returns int
	for _, e := range log {
		switch e.Kind {
		case LogLoss:
			losses++
			assert.Zero(t, e.Step%50)
			assert.Contains(t, e.Message, ": loss = ")
		case LogAverageReturn:
			returns++
		}
	}
	assert.Equal(t, 6, losses)
	assert.Equal(t, 4, returns)

	assert.Contains(t, buf.String(), trainer.RunID())
	assert.Contains(t, buf.String(), "step = 300: Average Return")
}

func TestTrainingIsDeterministic(t *testing.T) {
	ctx := context.Background()

	first, err := Run(ctx, newTrainer(t, testHyperparameters(), nil))
	require.NoError(t, err)
	second, err := Run(ctx, newTrainer(t, testHyperparameters(), nil))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestDivergentTrainingIsSurfaced(t *testing.T) {
	hp := testHyperparameters()
	hp.LearningRate = 1e300
	trainer := newTrainer(t, hp, nil)

	_, err := Run(context.Background(), trainer)
	assert.ErrorIs(t, err, contracts.ErrNumericalInstability)
}

func TestTrainHonoursContext(t *testing.T) {
	trainer := newTrainer(t, testHyperparameters(), nil)
	require.NoError(t, trainer.InitAgent())
	require.NoError(t, trainer.BuildReplayBuffer())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, trainer.Train(ctx), context.Canceled)
}

func TestEngine(t *testing.T) {
	_, err := NewEngine(Hyperparameters{}, environment.DefaultConfig(), nil)
	assert.ErrorIs(t, err, contracts.ErrInvalidSettings)

	engine, err := NewEngine(testHyperparameters(), environment.DefaultConfig(), nil)
	require.NoError(t, err)

	result, err := engine.Price(context.Background(), testContract())
	require.NoError(t, err)
	assert.Equal(t, contracts.MethodDQN, result.Method)
	assert.Equal(t, 300.0, result.Diagnostics["iterations"])

	_, err = engine.Price(context.Background(), testContract().WithTimeToMaturity(0))
	assert.ErrorIs(t, err, contracts.ErrExpiredContract)
}

func TestHyperparametersValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Hyperparameters)
	}{
		{"zero iterations", func(h *Hyperparameters) { h.Iterations = 0 }},
		{"zero batch", func(h *Hyperparameters) { h.BatchSize = 0 }},
		{"negative learning rate", func(h *Hyperparameters) { h.LearningRate = -1 }},
		{"epsilon above one", func(h *Hyperparameters) { h.Epsilon = 1.5 }},
		{"zero discount", func(h *Hyperparameters) { h.Discount = 0 }},
	}

	require.NoError(t, DefaultHyperparameters().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hp := DefaultHyperparameters()
			tt.mutate(&hp)
			assert.ErrorIs(t, hp.Validate(), contracts.ErrInvalidSettings)
		})
	}
}
