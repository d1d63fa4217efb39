package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservePricing(t *testing.T) {
	m := New()
	m.ObservePricing("Black Scholes", time.Millisecond, nil)
	m.ObservePricing("Black Scholes", time.Millisecond, nil)
	m.ObservePricing("Monte Carlo", time.Second, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PricingTotal.WithLabelValues("Black Scholes", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PricingTotal.WithLabelValues("Monte Carlo", OutcomeError)))
	assert.Equal(t, 2, testutil.CollectAndCount(m.PricingDuration))
}

func TestGaugesAndCounters(t *testing.T) {
	m := New()
	m.ObserveCache("hit")
	m.ObserveTraining(nil)
	m.SetBook(3, 1)
	m.SetBreakerState("result_cache", 2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheRequestsTotal.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TrainingRunsTotal.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.BookContracts.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BookContracts.WithLabelValues(OutcomeError)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.BreakerState.WithLabelValues("result_cache")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObservePricing("x", time.Second, nil)
		m.ObserveCache("miss")
		m.ObserveTraining(errors.New("x"))
		m.SetBook(1, 1)
		m.SetBreakerState("x", 0)
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveCache("miss")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `optionpricer_cache_requests_total{result="miss"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
