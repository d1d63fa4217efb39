package contracts

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// DaysPerYear is the Actual/365 day-count denominator
const DaysPerYear = 365.0

// Style is the exercise style of an option
type Style string

const (
	European Style = "european"
	American Style = "american"
	Asian    Style = "asian" // arithmetic average price, priced by simulation only
)

// ParseStyle accepts "european"/"eu", "american"/"us", "asian"/"as"
func ParseStyle(s string) (Style, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "european", "eu":
		return European, nil
	case "american", "us":
		return American, nil
	case "asian", "as":
		return Asian, nil
	default:
		return "", fmt.Errorf("%w: unknown style %q", ErrInvalidContract, s)
	}
}

// Region returns the market region code used by the dispatcher
func (s Style) Region() string {
	switch s {
	case European:
		return "eu"
	case American:
		return "us"
	case Asian:
		return "as"
	default:
		return ""
	}
}

// Right is the option right
type Right string

const (
	Call Right = "call"
	Put  Right = "put"
)

// ParseRight accepts "call"/"c" and "put"/"p"
func ParseRight(s string) (Right, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "c":
		return Call, nil
	case "put", "p":
		return Put, nil
	default:
		return "", fmt.Errorf("%w: unknown right %q", ErrInvalidContract, s)
	}
}

// OptionContract describes the terms of a single option.
// It is a value type: every With* method returns a modified copy.
// ⭐ SSOT: 모든 엔진은 이 계약 정의만 입력으로 받음
type OptionContract struct {
	Style         Style     `json:"style" yaml:"style"`
	Right         Right     `json:"right" yaml:"right"`
	Spot          float64   `json:"spot" yaml:"spot"`
	Strike        float64   `json:"strike" yaml:"strike"`
	Maturity      time.Time `json:"maturity" yaml:"maturity"`
	ValuationDate time.Time `json:"valuation_date" yaml:"valuation_date"` // zero means today
	Volatility    float64   `json:"implied_volatility" yaml:"implied_volatility"`
	RiskFreeRate  float64   `json:"risk_free_rate" yaml:"risk_free_rate"`
	DividendRate  float64   `json:"dividend_rate" yaml:"dividend_rate"`

	// yearFraction overrides the date-based time to maturity when set.
	// Used for sensitivity bumps and year-denominated requests.
	yearFraction *float64
}

// NewContract builds a contract expiring maturity years after valuation.
// The calendar maturity is rounded to whole days; the exact year fraction is kept.
func NewContract(style Style, right Right, spot, strike, maturity, vol, rate, div float64, valuation time.Time) OptionContract {
	valuation = dateOnly(valuation)
	c := OptionContract{
		Style:         style,
		Right:         right,
		Spot:          spot,
		Strike:        strike,
		Maturity:      valuation.AddDate(0, 0, int(math.Round(maturity*DaysPerYear))),
		ValuationDate: valuation,
		Volatility:    vol,
		RiskFreeRate:  rate,
		DividendRate:  div,
	}
	return c.WithTimeToMaturity(maturity)
}

// TimeToMaturity returns (maturity − valuation date) in years, Actual/365
func (c OptionContract) TimeToMaturity() float64 {
	if c.yearFraction != nil {
		return *c.yearFraction
	}

	valuation := c.ValuationDate
	if valuation.IsZero() {
		valuation = time.Now()
	}

	days := math.Round(dateOnly(c.Maturity).Sub(dateOnly(valuation)).Hours() / 24)
	return days / DaysPerYear
}

// Validate checks the contract is live and its parameters are usable.
// Expiry is reported as ErrExpiredContract, everything else as ErrInvalidContract.
func (c OptionContract) Validate() error {
	if c.Style != European && c.Style != American && c.Style != Asian {
		return fmt.Errorf("%w: style %q", ErrInvalidContract, c.Style)
	}
	if c.Right != Call && c.Right != Put {
		return fmt.Errorf("%w: right %q", ErrInvalidContract, c.Right)
	}

	tau := c.TimeToMaturity()
	if math.IsNaN(tau) || tau <= 0 {
		return fmt.Errorf("%w: time to maturity %.6f", ErrExpiredContract, tau)
	}

	checks := []struct {
		field string
		value float64
		ok    bool
	}{
		{"spot", c.Spot, c.Spot > 0},
		{"strike", c.Strike, c.Strike > 0},
		{"implied_volatility", c.Volatility, c.Volatility >= 0},
		{"risk_free_rate", c.RiskFreeRate, true},
		{"dividend_rate", c.DividendRate, true},
	}
	for _, chk := range checks {
		if !chk.ok || math.IsNaN(chk.value) || math.IsInf(chk.value, 0) {
			return fmt.Errorf("%w: %s = %v", ErrInvalidContract, chk.field, chk.value)
		}
	}

	return nil
}

// Intrinsic returns the exercise value at underlying price s.
// Call = max(S−K, 0), Put = max(K−S, 0).
func (c OptionContract) Intrinsic(s float64) float64 {
	if c.Right == Call {
		return math.Max(s-c.Strike, 0)
	}
	return math.Max(c.Strike-s, 0)
}

// Sign is +1 for calls and −1 for puts
func (c OptionContract) Sign() float64 {
	if c.Right == Call {
		return 1
	}
	return -1
}

// WithSpot returns a copy with a different spot
func (c OptionContract) WithSpot(s float64) OptionContract {
	c.Spot = s
	return c
}

// WithVolatility returns a copy with a different volatility
func (c OptionContract) WithVolatility(v float64) OptionContract {
	c.Volatility = v
	return c
}

// WithRiskFreeRate returns a copy with a different rate
func (c OptionContract) WithRiskFreeRate(r float64) OptionContract {
	c.RiskFreeRate = r
	return c
}

// WithDividendRate returns a copy with a different dividend yield
func (c OptionContract) WithDividendRate(q float64) OptionContract {
	c.DividendRate = q
	return c
}

// WithStyle returns a copy with a different exercise style
func (c OptionContract) WithStyle(s Style) OptionContract {
	c.Style = s
	return c
}

// WithTimeToMaturity returns a copy whose time to maturity is fixed at t years
func (c OptionContract) WithTimeToMaturity(t float64) OptionContract {
	c.yearFraction = &t
	return c
}

// String renders a short human-readable description
func (c OptionContract) String() string {
	return fmt.Sprintf("%s %s S=%.2f K=%.2f T=%.4f σ=%.4f r=%.4f q=%.4f",
		c.Style, c.Right, c.Spot, c.Strike, c.TimeToMaturity(), c.Volatility, c.RiskFreeRate, c.DividendRate)
}

// Key returns a stable identifier of the contract terms, used for caching
func (c OptionContract) Key() string {
	return fmt.Sprintf("%s:%s:%g:%g:%.10f:%g:%g:%g",
		c.Style, c.Right, c.Spot, c.Strike, c.TimeToMaturity(), c.Volatility, c.RiskFreeRate, c.DividendRate)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
