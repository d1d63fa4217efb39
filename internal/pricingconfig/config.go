package pricingconfig

import (
	"fmt"
	"time"

	"github.com/AAWorks/binomial-pricer/internal/contracts"
	"github.com/AAWorks/binomial-pricer/internal/dqn"
	"github.com/AAWorks/binomial-pricer/internal/environment"
	"github.com/AAWorks/binomial-pricer/internal/greeks"
	"github.com/AAWorks/binomial-pricer/internal/lattice"
	"github.com/AAWorks/binomial-pricer/internal/montecarlo"
)

// DateLayout is the calendar date format of the settings file
const DateLayout = "2006-01-02"

// Config는 가격 엔진 전체 설정
type Config struct {
	Meta        Meta                `yaml:"meta" json:"meta"`
	Lattice     Lattice             `yaml:"lattice" json:"lattice"`
	MonteCarlo  montecarlo.Settings `yaml:"monte_carlo" json:"monte_carlo"`
	Greeks      greeks.Bumps        `yaml:"greeks" json:"greeks"`
	Environment environment.Config  `yaml:"environment" json:"environment"`
	DQN         dqn.Hyperparameters `yaml:"dqn" json:"dqn"`
	Book        []BookEntry         `yaml:"book" json:"book"`
}

// Meta 메타 정보
type Meta struct {
	Name    string `yaml:"name" json:"name"`
	Version string `yaml:"version" json:"version"`
}

// Lattice 이항 트리 설정
type Lattice struct {
	Steps           int `yaml:"steps" json:"steps"`
	ConvergenceFrom int `yaml:"convergence_from" json:"convergence_from"`
	ConvergenceTo   int `yaml:"convergence_to" json:"convergence_to"` // exclusive
}

// BookEntry is one contract repriced on schedule.
// Either Years or Maturity sets the expiry; Years wins when both are given.
type BookEntry struct {
	ID            string  `yaml:"id" json:"id"`
	Style         string  `yaml:"style" json:"style"`
	Right         string  `yaml:"right" json:"right"`
	Spot          float64 `yaml:"spot" json:"spot"`
	Strike        float64 `yaml:"strike" json:"strike"`
	Years         float64 `yaml:"years,omitempty" json:"years,omitempty"`
	Maturity      string  `yaml:"maturity,omitempty" json:"maturity,omitempty"`             // YYYY-MM-DD
	ValuationDate string  `yaml:"valuation_date,omitempty" json:"valuation_date,omitempty"` // YYYY-MM-DD, default today
	Volatility    float64 `yaml:"implied_volatility" json:"implied_volatility"`
	RiskFreeRate  float64 `yaml:"risk_free_rate" json:"risk_free_rate"`
	DividendRate  float64 `yaml:"dividend_rate" json:"dividend_rate"`
}

// Default returns the built-in engine settings with an empty book
func Default() Config {
	return Config{
		Meta: Meta{Name: "default", Version: "1"},
		Lattice: Lattice{
			Steps:           lattice.DefaultSteps,
			ConvergenceFrom: lattice.DefaultConvergenceFrom,
			ConvergenceTo:   lattice.DefaultConvergenceTo,
		},
		MonteCarlo:  montecarlo.DefaultSettings(),
		Greeks:      greeks.DefaultBumps(),
		Environment: environment.DefaultConfig(),
		DQN:         dqn.DefaultHyperparameters(),
	}
}

// Contract builds the option described by the entry. now is the valuation
// date when the entry has none.
func (b BookEntry) Contract(now time.Time) (contracts.OptionContract, error) {
	style, err := contracts.ParseStyle(b.Style)
	if err != nil {
		return contracts.OptionContract{}, err
	}
	right, err := contracts.ParseRight(b.Right)
	if err != nil {
		return contracts.OptionContract{}, err
	}

	valuation := now
	if b.ValuationDate != "" {
		if valuation, err = time.Parse(DateLayout, b.ValuationDate); err != nil {
			return contracts.OptionContract{}, fmt.Errorf("%w: valuation_date: %v", contracts.ErrInvalidContract, err)
		}
	}

	if b.Years != 0 {
		return contracts.NewContract(style, right, b.Spot, b.Strike, b.Years,
			b.Volatility, b.RiskFreeRate, b.DividendRate, valuation), nil
	}

	maturity, err := time.Parse(DateLayout, b.Maturity)
	if err != nil {
		return contracts.OptionContract{}, fmt.Errorf("%w: maturity: %v", contracts.ErrInvalidContract, err)
	}
	return contracts.OptionContract{
		Style:         style,
		Right:         right,
		Spot:          b.Spot,
		Strike:        b.Strike,
		Maturity:      maturity,
		ValuationDate: valuation,
		Volatility:    b.Volatility,
		RiskFreeRate:  b.RiskFreeRate,
		DividendRate:  b.DividendRate,
	}, nil
}
