// Package metrics exposes Prometheus instruments for the pricing service
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics holds a private registry and the service instruments
// ⭐ SSOT: 모든 Prometheus 지표는 여기서만 등록
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec   // method, path, status
	HTTPRequestDuration *prometheus.HistogramVec // method, path
	PricingTotal        *prometheus.CounterVec   // method, outcome
	PricingDuration     *prometheus.HistogramVec // method
	CacheRequestsTotal  *prometheus.CounterVec   // result: hit, miss, error
	TrainingRunsTotal   *prometheus.CounterVec   // outcome
	BookContracts       *prometheus.GaugeVec     // outcome, last reprice
	BreakerState        *prometheus.GaugeVec     // name
}

// New creates a registry with Go runtime and process collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{registry: reg}

	m.HTTPRequestsTotal = m.newCounterVec(prometheus.CounterOpts{
		Name: "http_server_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	m.HTTPRequestDuration = m.newHistogramVec(prometheus.HistogramOpts{
		Name:    "http_server_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	m.PricingTotal = m.newCounterVec(prometheus.CounterOpts{
		Name: "optionpricer_pricings_total",
		Help: "Pricing calls by engine and outcome",
	}, []string{"method", "outcome"})

	// 엔진별 소요 시간 편차가 커서 버킷을 넓게 잡음 (1ms ~ 약 5분)
	m.PricingDuration = m.newHistogramVec(prometheus.HistogramOpts{
		Name:    "optionpricer_pricing_duration_seconds",
		Help:    "Pricing latency by engine in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	}, []string{"method"})

	m.CacheRequestsTotal = m.newCounterVec(prometheus.CounterOpts{
		Name: "optionpricer_cache_requests_total",
		Help: "Result cache lookups by result",
	}, []string{"result"})

	m.TrainingRunsTotal = m.newCounterVec(prometheus.CounterOpts{
		Name: "optionpricer_training_runs_total",
		Help: "DQN training runs by outcome",
	}, []string{"outcome"})

	m.BookContracts = m.newGaugeVec(prometheus.GaugeOpts{
		Name: "optionpricer_book_contracts",
		Help: "Book contracts of the last reprice by outcome",
	}, []string{"outcome"})

	m.BreakerState = m.newGaugeVec(prometheus.GaugeOpts{
		Name: "optionpricer_circuit_breaker_state",
		Help: "Circuit breaker state (0: closed, 1: half-open, 2: open)",
	}, []string{"name"})

	return m
}

func (m *Metrics) newCounterVec(opts prometheus.CounterOpts, labelNames []string) *prometheus.CounterVec {
	cv := prometheus.NewCounterVec(opts, labelNames)
	m.registry.MustRegister(cv)
	return cv
}

func (m *Metrics) newGaugeVec(opts prometheus.GaugeOpts, labelNames []string) *prometheus.GaugeVec {
	gv := prometheus.NewGaugeVec(opts, labelNames)
	m.registry.MustRegister(gv)
	return gv
}

func (m *Metrics) newHistogramVec(opts prometheus.HistogramOpts, labelNames []string) *prometheus.HistogramVec {
	hv := prometheus.NewHistogramVec(opts, labelNames)
	m.registry.MustRegister(hv)
	return hv
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObservePricing records one engine call. A nil receiver is a no-op.
func (m *Metrics) ObservePricing(method string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.PricingTotal.WithLabelValues(method, outcome(err)).Inc()
	m.PricingDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObserveCache records a cache lookup result (hit, miss or error)
func (m *Metrics) ObserveCache(result string) {
	if m == nil {
		return
	}
	m.CacheRequestsTotal.WithLabelValues(result).Inc()
}

// ObserveTraining records the end of a training run
func (m *Metrics) ObserveTraining(err error) {
	if m == nil {
		return
	}
	m.TrainingRunsTotal.WithLabelValues(outcome(err)).Inc()
}

// SetBook records the outcome counts of the last book reprice
func (m *Metrics) SetBook(priced, failed int) {
	if m == nil {
		return
	}
	m.BookContracts.WithLabelValues(OutcomeOK).Set(float64(priced))
	m.BookContracts.WithLabelValues(OutcomeError).Set(float64(failed))
}

// SetBreakerState records a circuit breaker transition
func (m *Metrics) SetBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(name).Set(float64(state))
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}
