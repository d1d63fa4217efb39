package dqn

import (
	"context"

	"github.com/AAWorks/binomial-pricer/internal/contracts"
	"github.com/AAWorks/binomial-pricer/internal/environment"
	"github.com/AAWorks/binomial-pricer/pkg/logger"
)

// Engine prices a contract by running a full training protocol per call
type Engine struct {
	hp     Hyperparameters
	env    environment.Config
	logger *logger.Logger
}

// NewEngine validates the configuration once for every subsequent run
func NewEngine(hp Hyperparameters, env environment.Config, log *logger.Logger) (*Engine, error) {
	if err := hp.Validate(); err != nil {
		return nil, err
	}
	return &Engine{hp: hp, env: env, logger: logger.OrNop(log)}, nil
}

// Hyperparameters returns the training configuration
func (e *Engine) Hyperparameters() Hyperparameters {
	return e.hp
}

// Price trains a fresh agent on c and reports its NPV.
// Diagnostics carry the last point of the learning curve.
func (e *Engine) Price(ctx context.Context, c contracts.OptionContract) (*contracts.PricingResult, error) {
	trainer, err := New(c, e.env, e.hp, e.logger)
	if err != nil {
		return nil, err
	}

	npv, err := Run(ctx, trainer)
	if err != nil {
		return nil, err
	}

	curve := trainer.LearningCurve()
	last := curve[len(curve)-1]
	result := &contracts.PricingResult{
		Method: contracts.MethodDQN,
		NPV:    npv,
		Diagnostics: map[string]float64{
			"iterations":           float64(e.hp.Iterations),
			"final_average_return": last.AverageReturn,
			"npv_episodes":         float64(e.hp.NPVEpisodes),
		},
	}
	if err := contracts.CheckFinite(result); err != nil {
		return nil, err
	}
	return result, nil
}

// Run drives trainer through the whole protocol and returns its NPV
func Run(ctx context.Context, trainer *Trainer) (float64, error) {
	if err := trainer.InitAgent(); err != nil {
		return 0, err
	}
	if err := trainer.BuildReplayBuffer(); err != nil {
		return 0, err
	}
	if err := trainer.Train(ctx); err != nil {
		return 0, err
	}
	return trainer.CalculateNPV(ctx)
}
