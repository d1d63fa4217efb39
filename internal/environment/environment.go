// Package environment simulates the daily life of an option as a two-action
// control problem: hold or exercise. It is the interaction surface of the
// exercise-policy learner.
package environment

import (
	"errors"
	"fmt"
	"iter"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/AAWorks/binomial-pricer/internal/contracts"
)

// ErrInvalidAction is returned for actions other than Hold and Exercise
var ErrInvalidAction = errors.New("invalid action")

// Action is the agent's decision for the current day
type Action int

const (
	Hold     Action = 0
	Exercise Action = 1

	// NumActions is the size of the action space
	NumActions = 2
)

func (a Action) String() string {
	switch a {
	case Hold:
		return "hold"
	case Exercise:
		return "exercise"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Observation is what the policy sees: (underlying price, time remaining fraction)
type Observation struct {
	Price         float64 `json:"price"`
	TimeRemaining float64 `json:"time_remaining"` // 1 − day/total, in [0, 1]
}

// State is the full simulation state. Only Step mutates it.
type State struct {
	UnderlyingPrice float64 `json:"underlying_price"`
	DayIndex        int     `json:"day_index"`
	DaysToMaturity  int     `json:"days_to_maturity"`
}

// Transition is the outcome of one Step
type Transition struct {
	Observation Observation `json:"observation"`
	Reward      float64     `json:"reward"`
	Done        bool        `json:"done"`
}

// Config tunes the simulation
type Config struct {
	DaysPerYear float64 `yaml:"days_per_year" json:"days_per_year"`
	Seed        uint64  `yaml:"seed" json:"seed"`
}

// DefaultConfig simulates calendar days
func DefaultConfig() Config {
	return Config{DaysPerYear: contracts.DaysPerYear, Seed: 1}
}

// Environment is single-owner: it is not safe for concurrent use
type Environment struct {
	contract  contracts.OptionContract
	totalDays int
	dt        float64
	drift     float64 // (r − q − σ²/2)·Δt
	diffusion float64 // σ·√Δt

	seed    uint64
	src     *rand.PCGSource
	normal  distuv.Normal
	episode uint64

	state      State
	terminated bool
}

// New creates an environment for c. It fails for expired or invalid contracts.
func New(c contracts.OptionContract, cfg Config) (*Environment, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if !(cfg.DaysPerYear > 0) {
		return nil, fmt.Errorf("%w: days_per_year = %v", contracts.ErrInvalidSettings, cfg.DaysPerYear)
	}

	tau := c.TimeToMaturity()
	totalDays := max(1, int(math.Round(tau*cfg.DaysPerYear)))
	dt := tau / float64(totalDays)

	src := &rand.PCGSource{}
	src.Seed(cfg.Seed)

	env := &Environment{
		contract:  c,
		totalDays: totalDays,
		dt:        dt,
		drift:     (c.RiskFreeRate - c.DividendRate - 0.5*c.Volatility*c.Volatility) * dt,
		diffusion: c.Volatility * math.Sqrt(dt),
		seed:      cfg.Seed,
		src:       src,
		normal:    distuv.Normal{Mu: 0, Sigma: 1, Src: src},
	}
	env.Reset()
	return env, nil
}

// Contract returns the simulated contract
func (e *Environment) Contract() contracts.OptionContract {
	return e.contract
}

// TotalDays is the number of simulated days until maturity
func (e *Environment) TotalDays() int {
	return e.totalDays
}

// Reset starts a new episode at the spot price on day 0
func (e *Environment) Reset() Observation {
	e.episode++
	e.terminated = false
	e.state = State{
		UnderlyingPrice: e.contract.Spot,
		DayIndex:        0,
		DaysToMaturity:  e.totalDays,
	}
	return e.observe()
}

// State returns a copy of the current state
func (e *Environment) State() State {
	return e.state
}

// Terminated reports whether the episode has ended
func (e *Environment) Terminated() bool {
	return e.terminated
}

// Step applies an action.
// Exercise ends the episode with the discounted intrinsic value. Hold advances
// one day with zero reward, or ends the episode at maturity with the
// discounted intrinsic value.
func (e *Environment) Step(a Action) (Transition, error) {
	if e.terminated {
		return Transition{}, fmt.Errorf("%w: day %d", contracts.ErrEnvironmentTerminated, e.state.DayIndex)
	}

	switch a {
	case Exercise:
		return e.finish(), nil

	case Hold:
		if e.state.DayIndex >= e.totalDays {
			return e.finish(), nil
		}

		e.state.UnderlyingPrice *= math.Exp(e.drift + e.diffusion*e.normal.Rand())
		e.state.DayIndex++
		e.state.DaysToMaturity = e.totalDays - e.state.DayIndex
		return Transition{Observation: e.observe()}, nil

	default:
		return Transition{}, fmt.Errorf("%w: %d", ErrInvalidAction, int(a))
	}
}

// finish pays the intrinsic value discounted by the elapsed time and terminates
func (e *Environment) finish() Transition {
	e.terminated = true
	return Transition{
		Observation: e.observe(),
		Reward:      e.discount(e.state.DayIndex) * e.contract.Intrinsic(e.state.UnderlyingPrice),
		Done:        true,
	}
}

// discount is e^(−r·day·Δt)
func (e *Environment) discount(day int) float64 {
	return math.Exp(-e.contract.RiskFreeRate * float64(day) * e.dt)
}

func (e *Environment) observe() Observation {
	return Observation{
		Price:         e.state.UnderlyingPrice,
		TimeRemaining: 1 - float64(e.state.DayIndex)/float64(e.totalDays),
	}
}

// SimulatePath returns a lazy sequence of daily prices from the spot to
// maturity (TotalDays()+1 values). The sequence is seeded from the current
// episode, so ranging over it again replays the same path, and it never
// touches the interactive state.
func (e *Environment) SimulatePath() iter.Seq[float64] {
	return e.SimulatePathFor(e.episode - 1)
}

// SimulatePathFor returns the path a fresh environment's SimulatePath
// yields after episode resets, without replaying them. Episodes count from 0.
func (e *Environment) SimulatePathFor(episode uint64) iter.Seq[float64] {
	seed := e.seed ^ ((episode + 1) * 0x9E3779B97F4A7C15)
	spot, drift, diffusion, days := e.contract.Spot, e.drift, e.diffusion, e.totalDays

	return func(yield func(float64) bool) {
		src := &rand.PCGSource{}
		src.Seed(seed)
		normal := distuv.Normal{Mu: 0, Sigma: 1, Src: src}

		price := spot
		if !yield(price) {
			return
		}
		for day := 1; day <= days; day++ {
			price *= math.Exp(drift + diffusion*normal.Rand())
			if !yield(price) {
				return
			}
		}
	}
}
