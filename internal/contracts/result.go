package contracts

import (
	"fmt"
	"math"
)

// Method names a pricing engine
type Method string

const (
	MethodBlackScholes Method = "Black Scholes"
	MethodBinomialTree Method = "Binomial Tree"
	MethodMonteCarlo   Method = "Monte Carlo"
	MethodDQN          Method = "Deep Q-Network"
)

// ParseMethod accepts display names and short aliases
func ParseMethod(s string) (Method, error) {
	switch s {
	case string(MethodBlackScholes), "bs", "black-scholes", "analytic":
		return MethodBlackScholes, nil
	case string(MethodBinomialTree), "binomial", "crr", "lattice":
		return MethodBinomialTree, nil
	case string(MethodMonteCarlo), "mc", "montecarlo", "monte-carlo":
		return MethodMonteCarlo, nil
	case string(MethodDQN), "dqn":
		return MethodDQN, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
	}
}

// Greek keys
const (
	Delta     = "delta"
	Gamma     = "gamma"
	Vega      = "vega"
	Theta     = "theta"
	Rho       = "rho"
	Epsilon   = "epsilon"
	DualDelta = "dual_delta" // ∂NPV/∂strike
)

// Greeks maps a sensitivity name to its value.
// Theta is −∂NPV/∂T per year.
type Greeks map[string]float64

// PricingResult is returned only when fully populated and finite
type PricingResult struct {
	Method               Method             `json:"method"`
	NPV                  float64            `json:"npv"`
	Greeks               Greeks             `json:"greeks,omitempty"`
	EarlyExercisePremium *float64           `json:"early_exercise_premium,omitempty"`
	Diagnostics          map[string]float64 `json:"diagnostics,omitempty"`
}

// CheckFinite rejects NaN/Inf anywhere in the result
func CheckFinite(r *PricingResult) error {
	if !isFinite(r.NPV) {
		return fmt.Errorf("%w: %s npv = %v", ErrNumericalInstability, r.Method, r.NPV)
	}
	if err := r.Greeks.CheckFinite(); err != nil {
		return fmt.Errorf("%s: %w", r.Method, err)
	}
	if r.EarlyExercisePremium != nil && !isFinite(*r.EarlyExercisePremium) {
		return fmt.Errorf("%w: %s early exercise premium = %v", ErrNumericalInstability, r.Method, *r.EarlyExercisePremium)
	}
	return nil
}

// CheckFinite rejects NaN/Inf sensitivities
func (g Greeks) CheckFinite() error {
	for name, v := range g {
		if !isFinite(v) {
			return fmt.Errorf("%w: %s = %v", ErrNumericalInstability, name, v)
		}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
