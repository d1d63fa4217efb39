package dispatch

import (
	"context"
	"fmt"
	"slices"

	"github.com/AAWorks/binomial-pricer/internal/contracts"
	"github.com/AAWorks/binomial-pricer/internal/dqn"
	"github.com/AAWorks/binomial-pricer/internal/environment"
)

// TrainingReport is the outcome of one DQN training run
type TrainingReport struct {
	RunID         string           `json:"run_id"`
	NPV           float64          `json:"npv"`
	LearningCurve []dqn.CurvePoint `json:"learning_curve"`
	Log           []dqn.LogEntry   `json:"log"`
}

// Train runs the DQN protocol on c. hp overrides the configured
// hyperparameters when not nil; onLog receives every log entry as it is
// produced.
func (d *Dispatcher) Train(ctx context.Context, c contracts.OptionContract, hp *dqn.Hyperparameters, onLog func(dqn.LogEntry)) (*TrainingReport, error) {
	if _, err := d.pricer(c, contracts.MethodDQN); err != nil {
		return nil, err
	}

	params := d.cfg.DQN
	if hp != nil {
		params = *hp
	}

	trainer, err := dqn.New(c, d.cfg.Environment, params, d.logger)
	if err != nil {
		return nil, err
	}
	if onLog != nil {
		trainer.OnLog(onLog)
	}

	npv, err := dqn.Run(ctx, trainer)
	d.metrics.ObserveTraining(err)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", trainer.RunID(), err)
	}

	return &TrainingReport{
		RunID:         trainer.RunID(),
		NPV:           npv,
		LearningCurve: trainer.LearningCurve(),
		Log:           trainer.Log(),
	}, nil
}

// SimulatePath returns one simulated daily price path of c's underlying,
// from spot to maturity. episode selects the path; the same episode always
// yields the same path.
func (d *Dispatcher) SimulatePath(c contracts.OptionContract, episode int) ([]float64, error) {
	if episode < 0 {
		return nil, fmt.Errorf("%w: episode %d", contracts.ErrInvalidSettings, episode)
	}

	env, err := environment.New(c, d.cfg.Environment)
	if err != nil {
		return nil, err
	}
	return slices.Collect(env.SimulatePathFor(uint64(episode))), nil
}
