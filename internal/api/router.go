package api

import (
	"bufio"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/AAWorks/binomial-pricer/internal/api/handlers"
	"github.com/AAWorks/binomial-pricer/pkg/logger"
	"github.com/AAWorks/binomial-pricer/pkg/metrics"
)

// Handlers groups the endpoint handlers served by the router
type Handlers struct {
	Pricing  *handlers.PricingHandler
	Training *handlers.TrainingHandler
	Book     *handlers.BookHandler
	Metrics  *metrics.Metrics // nil disables /metrics and request metrics
}

// NewRouter creates and configures the HTTP router. A nil limiter disables
// request rate limiting.
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(h Handlers, limiter *rate.Limiter, log *logger.Logger) http.Handler {
	log = logger.OrNop(log)
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	// Prometheus scrape endpoint
	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics.Handler()).Methods("GET")
	}

	// API v1
	api := r.PathPrefix("/api").Subrouter()
	if limiter != nil {
		api.Use(rateLimitMiddleware(limiter))
	}

	// Pricing endpoints
	api.HandleFunc("/models", h.Pricing.GetModels).Methods("GET")
	api.HandleFunc("/price", h.Pricing.Price).Methods("POST")
	api.HandleFunc("/price/all", h.Pricing.PriceAll).Methods("POST")
	api.HandleFunc("/greeks", h.Pricing.Greeks).Methods("POST")
	api.HandleFunc("/convergence", h.Pricing.Convergence).Methods("POST")
	api.HandleFunc("/environment/path", h.Pricing.SimulatePath).Methods("POST")

	// Book endpoints
	if h.Book != nil {
		api.HandleFunc("/book", h.Book.GetBook).Methods("GET")
	}

	// Training stream
	if h.Training != nil {
		r.HandleFunc("/ws/train", h.Training.Train).Methods("GET")
	}

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))
	if h.Metrics != nil {
		r.Use(metricsMiddleware(h.Metrics))
	}

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "optionpricer-api",
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Call next handler
			next.ServeHTTP(w, r)

			// Log request
			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// rateLimitMiddleware rejects requests beyond the token bucket with 429
func rateLimitMiddleware(limiter *rate.Limiter) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{
					"error": "rate limit exceeded",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// metricsMiddleware counts requests per route template and status
func metricsMiddleware(m *metrics.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			// 경로 템플릿 기준으로 라벨링 (카디널리티 제한)
			path := r.URL.Path
			if route := mux.CurrentRoute(r); route != nil {
				if tmpl, err := route.GetPathTemplate(); err == nil {
					path = tmpl
				}
			}
			m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

// statusRecorder captures the response status; it keeps Hijack working
// for the websocket upgrade
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return h.Hijack()
}
