package montecarlo

import (
	"fmt"
	"runtime"

	"github.com/AAWorks/binomial-pricer/internal/contracts"
)

// Settings Monte Carlo 엔진 설정
type Settings struct {
	Scenarios       int    `yaml:"scenarios" json:"scenarios"`                   // terminal draws (European)
	GreekScenarios  int    `yaml:"greek_scenarios" json:"greek_scenarios"`       // draws for pathwise Greeks
	PathScenarios   int    `yaml:"path_scenarios" json:"path_scenarios"`         // full paths (Asian)
	StepsPerYear    int    `yaml:"steps_per_year" json:"steps_per_year"`         // path resolution
	LSMPaths        int    `yaml:"lsm_paths" json:"lsm_paths"`                   // American paths
	LSMStepsPerYear int    `yaml:"lsm_steps_per_year" json:"lsm_steps_per_year"` // exercise dates per year
	BasisDegree     int    `yaml:"basis_degree" json:"basis_degree"`             // LSM polynomial degree
	Seed            uint64 `yaml:"seed" json:"seed"`
	Workers         int    `yaml:"workers" json:"workers"` // 0 = GOMAXPROCS; never changes results
}

// DefaultSettings 기본 설정
func DefaultSettings() Settings {
	return Settings{
		Scenarios:       1_000_000,
		GreekScenarios:  200_000,
		PathScenarios:   100_000,
		StepsPerYear:    252,
		LSMPaths:        50_000,
		LSMStepsPerYear: 50,
		BasisDegree:     2,
		Seed:            42,
	}
}

// Validate 설정 검증
func (s Settings) Validate() error {
	checks := []struct {
		field string
		value int
		min   int
	}{
		{"scenarios", s.Scenarios, 1},
		{"greek_scenarios", s.GreekScenarios, 1},
		{"path_scenarios", s.PathScenarios, 1},
		{"steps_per_year", s.StepsPerYear, 1},
		{"lsm_paths", s.LSMPaths, 1},
		{"lsm_steps_per_year", s.LSMStepsPerYear, 1},
		{"basis_degree", s.BasisDegree, 1},
		{"workers", s.Workers, 0},
	}
	for _, chk := range checks {
		if chk.value < chk.min {
			return fmt.Errorf("%w: monte carlo %s = %d, must be >= %d",
				contracts.ErrInvalidSettings, chk.field, chk.value, chk.min)
		}
	}
	return nil
}

func (s Settings) workers() int {
	if s.Workers > 0 {
		return s.Workers
	}
	return runtime.GOMAXPROCS(0)
}
