package dqn

import (
	"fmt"

	"github.com/AAWorks/binomial-pricer/internal/contracts"
)

// Hyperparameters of one training run
type Hyperparameters struct {
	Iterations               int     `yaml:"iterations" json:"iterations"`
	CollectStepsPerIteration int     `yaml:"collect_steps_per_iteration" json:"collect_steps_per_iteration"`
	ReplayCapacity           int     `yaml:"replay_capacity" json:"replay_capacity"`
	BatchSize                int     `yaml:"batch_size" json:"batch_size"`
	LearningRate             float64 `yaml:"learning_rate" json:"learning_rate"`
	EvalEpisodes             int     `yaml:"eval_episodes" json:"eval_episodes"`
	EvalInterval             int     `yaml:"eval_interval" json:"eval_interval"`
	LogInterval              int     `yaml:"log_interval" json:"log_interval"`

	HiddenUnits        int     `yaml:"hidden_units" json:"hidden_units"`
	Epsilon            float64 `yaml:"epsilon" json:"epsilon"`                           // exploration rate of the collect policy
	Discount           float64 `yaml:"discount" json:"discount"`                         // TD discount; rewards already carry time value
	TargetUpdatePeriod int     `yaml:"target_update_period" json:"target_update_period"` // gradient steps between target syncs
	NPVEpisodes        int     `yaml:"npv_episodes" json:"npv_episodes"`
	Seed               uint64  `yaml:"seed" json:"seed"`
}

// DefaultHyperparameters returns the standard training configuration
func DefaultHyperparameters() Hyperparameters {
	return Hyperparameters{
		Iterations:               20000,
		CollectStepsPerIteration: 10,
		ReplayCapacity:           100000,
		BatchSize:                256,
		LearningRate:             1e-3,
		EvalEpisodes:             10,
		EvalInterval:             1000,
		LogInterval:              200,

		HiddenUnits:        100,
		Epsilon:            0.1,
		Discount:           1.0,
		TargetUpdatePeriod: 100,
		NPVEpisodes:        2000,
		Seed:               7,
	}
}

// Validate checks every hyperparameter is in range
func (h Hyperparameters) Validate() error {
	positive := []struct {
		field string
		value int
	}{
		{"iterations", h.Iterations},
		{"collect_steps_per_iteration", h.CollectStepsPerIteration},
		{"replay_capacity", h.ReplayCapacity},
		{"batch_size", h.BatchSize},
		{"eval_episodes", h.EvalEpisodes},
		{"eval_interval", h.EvalInterval},
		{"log_interval", h.LogInterval},
		{"hidden_units", h.HiddenUnits},
		{"target_update_period", h.TargetUpdatePeriod},
		{"npv_episodes", h.NPVEpisodes},
	}
	for _, p := range positive {
		if p.value < 1 {
			return fmt.Errorf("%w: dqn %s = %d, must be >= 1", contracts.ErrInvalidSettings, p.field, p.value)
		}
	}

	if !(h.LearningRate > 0) {
		return fmt.Errorf("%w: dqn learning_rate = %v", contracts.ErrInvalidSettings, h.LearningRate)
	}
	if h.Epsilon < 0 || h.Epsilon > 1 {
		return fmt.Errorf("%w: dqn epsilon = %v, must be in [0, 1]", contracts.ErrInvalidSettings, h.Epsilon)
	}
	if !(h.Discount > 0) || h.Discount > 1 {
		return fmt.Errorf("%w: dqn discount = %v, must be in (0, 1]", contracts.ErrInvalidSettings, h.Discount)
	}
	return nil
}
