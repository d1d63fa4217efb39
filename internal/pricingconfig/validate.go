package pricingconfig

import (
	"fmt"
	"time"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	// === Lattice ===
	if cfg.Lattice.Steps < 1 {
		return ValidationError{"lattice.steps", "must be >= 1"}
	}
	if cfg.Lattice.ConvergenceFrom < 1 {
		return ValidationError{"lattice.convergence_from", "must be >= 1"}
	}
	if cfg.Lattice.ConvergenceTo <= cfg.Lattice.ConvergenceFrom {
		return ValidationError{"lattice.convergence_to", "must be > convergence_from"}
	}

	// === Engines ===
	if err := cfg.MonteCarlo.Validate(); err != nil {
		return ValidationError{"monte_carlo", err.Error()}
	}
	if err := cfg.Greeks.Validate(); err != nil {
		return ValidationError{"greeks", err.Error()}
	}
	if !(cfg.Environment.DaysPerYear > 0) {
		return ValidationError{"environment.days_per_year", "must be > 0"}
	}
	if err := cfg.DQN.Validate(); err != nil {
		return ValidationError{"dqn", err.Error()}
	}

	// === Book ===
	seen := make(map[string]bool, len(cfg.Book))
	for i, entry := range cfg.Book {
		field := fmt.Sprintf("book[%d]", i)
		if entry.ID == "" {
			return ValidationError{field + ".id", "required"}
		}
		if seen[entry.ID] {
			return ValidationError{field + ".id", fmt.Sprintf("duplicate id %q", entry.ID)}
		}
		seen[entry.ID] = true

		if entry.Years == 0 && entry.Maturity == "" {
			return ValidationError{field, "one of years or maturity is required"}
		}
		// expiry is checked at pricing time; only the terms are checked here
		if _, err := entry.Contract(time.Now()); err != nil {
			return ValidationError{field, err.Error()}
		}
		if entry.Spot <= 0 || entry.Strike <= 0 {
			return ValidationError{field, "spot and strike must be > 0"}
		}
		if entry.Volatility < 0 {
			return ValidationError{field + ".implied_volatility", "must be >= 0"}
		}
	}

	return nil
}
