// Package dqn learns an early-exercise policy with a deep Q-network and
// prices the option as the average discounted return of the greedy policy.
//
// A Trainer must be driven in order: InitAgent, BuildReplayBuffer, Train,
// then CalculateNPV. Out-of-order calls fail with a sequencing error.
package dqn

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/AAWorks/binomial-pricer/internal/contracts"
	"github.com/AAWorks/binomial-pricer/internal/environment"
	"github.com/AAWorks/binomial-pricer/pkg/logger"
)

// LogKind distinguishes training log entries
type LogKind string

const (
	LogLoss          LogKind = "loss"
	LogAverageReturn LogKind = "average_return"
)

// LogEntry is one line of the training log
type LogEntry struct {
	Step    int     `json:"step"`
	Kind    LogKind `json:"kind"`
	Value   float64 `json:"value"`
	Message string  `json:"message"`
}

// CurvePoint is one evaluation on the learning curve
type CurvePoint struct {
	Iteration     int     `json:"iteration"`
	AverageReturn float64 `json:"average_return"`
}

// Trainer owns one training run. It is not safe for concurrent use.
type Trainer struct {
	hp       Hyperparameters
	trainEnv *environment.Environment
	evalEnv  *environment.Environment
	strike   float64
	runID    string
	logger   *logger.Logger

	rng    *rand.Rand
	online *qNetwork
	target *qNetwork
	opt    *adam
	buffer *ReplayBuffer

	trainStep int
	trained   bool
	lastObs   environment.Observation
	log       []LogEntry
	curve     []CurvePoint
	observer  func(LogEntry)
}

// NewTrainer wires a trainer to separate training and evaluation environments
// of the same contract
func NewTrainer(trainEnv, evalEnv *environment.Environment, hp Hyperparameters, log *logger.Logger) (*Trainer, error) {
	if err := hp.Validate(); err != nil {
		return nil, err
	}
	if trainEnv == nil || evalEnv == nil {
		return nil, fmt.Errorf("%w: dqn trainer needs training and evaluation environments", contracts.ErrInvalidSettings)
	}

	runID := uuid.New().String()
	return &Trainer{
		hp:       hp,
		trainEnv: trainEnv,
		evalEnv:  evalEnv,
		strike:   trainEnv.Contract().Strike,
		runID:    runID,
		logger: logger.OrNop(log).WithFields(map[string]interface{}{
			"method": contracts.MethodDQN,
			"run_id": runID,
		}),
	}, nil
}

// New builds both environments for c from cfg and returns a trainer.
// The evaluation environment uses the next seed so it never replays training paths.
func New(c contracts.OptionContract, cfg environment.Config, hp Hyperparameters, log *logger.Logger) (*Trainer, error) {
	trainEnv, err := environment.New(c, cfg)
	if err != nil {
		return nil, err
	}
	evalCfg := cfg
	evalCfg.Seed = cfg.Seed + 1
	evalEnv, err := environment.New(c, evalCfg)
	if err != nil {
		return nil, err
	}
	return NewTrainer(trainEnv, evalEnv, hp, log)
}

// RunID identifies this training run in logs
func (t *Trainer) RunID() string {
	return t.runID
}

// OnLog registers a callback invoked synchronously for every log entry
func (t *Trainer) OnLog(fn func(LogEntry)) {
	t.observer = fn
}

// InitAgent builds the value network, its target copy and the optimizer
func (t *Trainer) InitAgent() error {
	t.rng = rand.New(rand.NewSource(t.hp.Seed))
	t.online = newQNetwork(t.hp.HiddenUnits, environment.NumActions, t.rng)
	t.target = t.online.clone()
	t.opt = newAdam(t.hp.LearningRate, t.online.params())
	t.buffer = nil
	t.trainStep = 0
	t.trained = false

	t.logger.WithFields(map[string]interface{}{
		"hidden_units":  t.hp.HiddenUnits,
		"learning_rate": t.hp.LearningRate,
	}).Debug("agent initialized")
	return nil
}

// BuildReplayBuffer allocates the experience buffer
func (t *Trainer) BuildReplayBuffer() error {
	if t.online == nil {
		return contracts.ErrUninitializedAgent
	}
	t.buffer = NewReplayBuffer(t.hp.ReplayCapacity)
	return nil
}

// TrainStep is the number of gradient updates performed so far
func (t *Trainer) TrainStep() int {
	return t.trainStep
}

// Train runs the configured number of iterations. Each collects transitions
// with the exploration policy then takes one gradient step on a sampled
// batch. A non-finite loss aborts training.
func (t *Trainer) Train(ctx context.Context) error {
	if t.online == nil {
		return contracts.ErrUninitializedAgent
	}
	if t.buffer == nil {
		return contracts.ErrUnbuiltBuffer
	}

	t.trainStep = 0
	t.trained = false
	t.log = nil
	t.curve = nil
	t.lastObs = t.trainEnv.Reset()

	if err := t.evaluate(ctx); err != nil {
		return err
	}

	for i := 0; i < t.hp.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		for s := 0; s < t.hp.CollectStepsPerIteration; s++ {
			if err := t.collectStep(); err != nil {
				return err
			}
		}

		loss := t.gradientStep()
		t.trainStep++
		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			t.logger.WithField("step", t.trainStep).Error("training diverged")
			return fmt.Errorf("%w: loss = %v at step %d", contracts.ErrNumericalInstability, loss, t.trainStep)
		}

		if t.trainStep%t.hp.TargetUpdatePeriod == 0 {
			t.target.copyFrom(t.online)
		}
		if t.trainStep%t.hp.LogInterval == 0 {
			t.record(LogEntry{
				Step:    t.trainStep,
				Kind:    LogLoss,
				Value:   loss,
				Message: fmt.Sprintf("step = %d: loss = %g", t.trainStep, loss),
			})
		}
		if t.trainStep%t.hp.EvalInterval == 0 {
			if err := t.evaluate(ctx); err != nil {
				return err
			}
		}
	}

	t.trained = true
	return nil
}

// CalculateNPV is the average discounted return of the greedy policy over
// NPVEpisodes evaluation episodes
func (t *Trainer) CalculateNPV(ctx context.Context) (float64, error) {
	if t.online == nil {
		return 0, contracts.ErrUninitializedAgent
	}
	if !t.trained {
		return 0, contracts.ErrUntrainedAgent
	}

	npv, err := t.averageReturn(ctx, t.hp.NPVEpisodes)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(npv) || math.IsInf(npv, 0) {
		return 0, fmt.Errorf("%w: npv = %v", contracts.ErrNumericalInstability, npv)
	}

	t.logger.WithFields(map[string]interface{}{
		"episodes": t.hp.NPVEpisodes,
		"npv":      npv,
	}).Info("greedy policy evaluated")
	return npv, nil
}

// Log returns a copy of the training log
func (t *Trainer) Log() []LogEntry {
	return append([]LogEntry(nil), t.log...)
}

// LearningCurve returns (iteration, average return) pairs starting at step 0
func (t *Trainer) LearningCurve() []CurvePoint {
	return append([]CurvePoint(nil), t.curve...)
}

// Act returns the greedy action for an observation
func (t *Trainer) Act(obs environment.Observation) (environment.Action, error) {
	if t.online == nil {
		return environment.Hold, contracts.ErrUninitializedAgent
	}
	return t.greedy(obs), nil
}

func (t *Trainer) record(e LogEntry) {
	t.log = append(t.log, e)
	t.logger.WithFields(map[string]interface{}{
		"step":  e.Step,
		"kind":  e.Kind,
		"value": e.Value,
	}).Info(e.Message)
	if t.observer != nil {
		t.observer(e)
	}
}

func (t *Trainer) evaluate(ctx context.Context) error {
	avg, err := t.averageReturn(ctx, t.hp.EvalEpisodes)
	if err != nil {
		return err
	}
	t.curve = append(t.curve, CurvePoint{Iteration: t.trainStep, AverageReturn: avg})
	t.record(LogEntry{
		Step:    t.trainStep,
		Kind:    LogAverageReturn,
		Value:   avg,
		Message: fmt.Sprintf("step = %d: Average Return = %g", t.trainStep, avg),
	})
	return nil
}

// averageReturn plays episodes greedily on the evaluation environment
func (t *Trainer) averageReturn(ctx context.Context, episodes int) (float64, error) {
	total := 0.0
	for ep := 0; ep < episodes; ep++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		obs := t.evalEnv.Reset()
		for {
			tr, err := t.evalEnv.Step(t.greedy(obs))
			if err != nil {
				return 0, err
			}
			if tr.Done {
				total += tr.Reward
				break
			}
			obs = tr.Observation
		}
	}
	return total / float64(episodes), nil
}

// collectStep takes one epsilon-greedy step and stores the transition
func (t *Trainer) collectStep() error {
	action := t.greedy(t.lastObs)
	if t.rng.Float64() < t.hp.Epsilon {
		action = environment.Action(t.rng.Intn(environment.NumActions))
	}

	tr, err := t.trainEnv.Step(action)
	if err != nil {
		return err
	}

	t.buffer.Add(Experience{
		State:     t.normalize(t.lastObs),
		Action:    action,
		Reward:    tr.Reward / t.strike,
		NextState: t.normalize(tr.Observation),
		Done:      tr.Done,
	})

	if tr.Done {
		t.lastObs = t.trainEnv.Reset()
	} else {
		t.lastObs = tr.Observation
	}
	return nil
}

// gradientStep minimizes the mean elementwise squared TD error on one batch
// and returns the loss before the update
func (t *Trainer) gradientStep() float64 {
	batch := t.buffer.Sample(t.rng, t.hp.BatchSize)

	x := mat.NewDense(len(batch), inputSize, nil)
	next := make([]float64, environment.NumActions)
	targets := make([]float64, len(batch))
	for i, e := range batch {
		x.SetRow(i, e.State[:])

		targets[i] = e.Reward
		if !e.Done {
			t.target.q(e.NextState, next)
			targets[i] += t.hp.Discount * math.Max(next[0], next[1])
		}
	}

	act := t.online.forward(x)
	dq := mat.NewDense(len(batch), environment.NumActions, nil)
	loss := 0.0
	n := float64(len(batch))
	for i, e := range batch {
		tdErr := act.q.At(i, int(e.Action)) - targets[i]
		loss += tdErr * tdErr / n
		dq.Set(i, int(e.Action), 2*tdErr/n)
	}
	if math.IsNaN(loss) || math.IsInf(loss, 0) {
		return loss
	}

	t.opt.step(t.online.params(), t.online.backward(act, dq))
	return loss
}

// greedy picks the action with the highest estimated value, holding on ties
func (t *Trainer) greedy(obs environment.Observation) environment.Action {
	var q [environment.NumActions]float64
	t.online.q(t.normalize(obs), q[:])
	if q[environment.Exercise] > q[environment.Hold] {
		return environment.Exercise
	}
	return environment.Hold
}

// normalize scales the price by the strike so inputs stay near one
func (t *Trainer) normalize(obs environment.Observation) [inputSize]float64 {
	return [inputSize]float64{obs.Price / t.strike, obs.TimeRemaining}
}
