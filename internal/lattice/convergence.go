package lattice

import (
	"context"
	"fmt"

	"github.com/AAWorks/binomial-pricer/internal/contracts"
)

// Default step range of the convergence diagnostic
const (
	DefaultConvergenceFrom = 5
	DefaultConvergenceTo   = 200
)

// ConvergencePoint is the lattice price at one depth
type ConvergencePoint struct {
	Steps    int     `json:"steps"`
	European float64 `json:"european"`
	American float64 `json:"american"`
}

// Convergence prices c for every depth in [from, to).
// Contracts whose parameters break the lattice at shallow depths fail the whole run.
func Convergence(ctx context.Context, c contracts.OptionContract, from, to int) ([]ConvergencePoint, error) {
	if err := checkContract(c); err != nil {
		return nil, err
	}
	if from < 1 || to <= from {
		return nil, fmt.Errorf("%w: convergence range [%d, %d)", contracts.ErrInvalidLatticeParameters, from, to)
	}

	points := make([]ConvergencePoint, 0, to-from)
	for n := from; n < to; n++ {
		european, american, err := priceBoth(ctx, c, n)
		if err != nil {
			return nil, fmt.Errorf("steps %d: %w", n, err)
		}
		points = append(points, ConvergencePoint{Steps: n, European: european, American: american})
	}

	return points, nil
}
