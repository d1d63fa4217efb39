// Package breaker guards calls to flaky dependencies with a circuit breaker
package breaker

import (
	"errors"

	"github.com/sony/gobreaker"

	"github.com/AAWorks/binomial-pricer/pkg/config"
	"github.com/AAWorks/binomial-pricer/pkg/logger"
	"github.com/AAWorks/binomial-pricer/pkg/metrics"
)

// ErrOpen is returned while the breaker rejects calls
var ErrOpen = errors.New("circuit breaker is open")

// Breaker wraps gobreaker with logging and a state gauge.
// A nil Breaker or a disabled one runs every call directly.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// New creates a breaker named name. m may be nil.
func New(name string, cfg config.BreakerConfig, log *logger.Logger, m *metrics.Metrics) *Breaker {
	if !cfg.Enabled {
		return &Breaker{}
	}
	log = logger.OrNop(log)

	minRequests := cfg.MinRequests
	if minRequests == 0 {
		minRequests = 5
	}
	failureRatio := cfg.FailureRatio
	if failureRatio <= 0 {
		failureRatio = 0.5
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= minRequests && ratio >= failureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
			m.SetBreakerState(name, int(to))
		},
	}

	m.SetBreakerState(name, int(gobreaker.StateClosed))
	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// State returns the current state; a disabled breaker is always closed
func (b *Breaker) State() gobreaker.State {
	if b == nil || b.cb == nil {
		return gobreaker.StateClosed
	}
	return b.cb.State()
}

// Execute runs fn through b
func Execute[T any](b *Breaker, fn func() (T, error)) (T, error) {
	if b == nil || b.cb == nil {
		return fn()
	}

	res, err := b.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		var zero T
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, ErrOpen
		}
		return zero, err
	}
	return res.(T), nil
}
