package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/AAWorks/binomial-pricer/internal/api"
	"github.com/AAWorks/binomial-pricer/internal/api/handlers"
	"github.com/AAWorks/binomial-pricer/internal/dispatch"
	"github.com/AAWorks/binomial-pricer/internal/pricingconfig"
	"github.com/AAWorks/binomial-pricer/internal/scheduler"
	"github.com/AAWorks/binomial-pricer/internal/scheduler/jobs"
	"github.com/AAWorks/binomial-pricer/pkg/breaker"
	"github.com/AAWorks/binomial-pricer/pkg/logger"
	"github.com/AAWorks/binomial-pricer/pkg/metrics"
	"github.com/AAWorks/binomial-pricer/pkg/redis"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "API 서버 + 스케줄러 시작",
	Long: `Start the REST API and the book reprice scheduler.

Endpoints:
  GET  /health                - Health check
  GET  /metrics               - Prometheus metrics
  GET  /api/models?region=    - 지역별 엔진 목록
  POST /api/price             - 단일 엔진 가격
  POST /api/price/all         - 지역 전체 엔진 가격
  POST /api/greeks            - 민감도
  POST /api/convergence       - 이항 트리 수렴
  POST /api/environment/path  - 경로 시뮬레이션
  GET  /api/book              - 북 최신 시세
  GET  /ws/train              - DQN 학습 스트림 (websocket)

Example:
  go run ./cmd/optionpricer serve
  go run ./cmd/optionpricer serve --port 8089 --pricing-config configs/pricing.yaml`,
	RunE: runServe,
}

var (
	servePort string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	// Flags
	serveCmd.Flags().StringVar(&servePort, "port", "", "API 서버 포트 (default: $PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Fprintln(cmd.OutOrStdout(), "=== Option Pricer API Server ===")

	// 1. Load config
	rt, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	cfg := rt.cfg

	// Override port if flag is set
	if servePort != "" {
		cfg.Port = servePort
	}

	// 2. Initialize logger (service logs follow LOG_LEVEL / LOG_FORMAT)
	log := logger.New(cfg)
	defer log.Close()

	hash, err := pricingconfig.Hash(rt.pricing)
	if err != nil {
		return err
	}
	log.WithFields(map[string]interface{}{
		"port":          cfg.Port,
		"env":           cfg.Env,
		"settings":      rt.pricing.Meta.Name,
		"settings_hash": hash,
		"book":          len(rt.pricing.Book),
	}).Info("Initializing API server")

	// 3. Connect to Redis (disabled mode is a no-op)
	rdb, err := redis.New(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer rdb.Close()

	m := metrics.New()
	opts := []dispatch.Option{dispatch.WithLogger(log), dispatch.WithMetrics(m)}
	var trainQuota handlers.TrainQuota
	if rdb.Enabled() {
		cb := breaker.New("result_cache", cfg.Breaker, log, m)
		opts = append(opts, dispatch.WithCache(redis.NewResultCache(rdb, "optionpricer").WithBreaker(cb)))
		trainQuota = redis.NewTrainQuota(rdb, "optionpricer", cfg.API.TrainLimit, cfg.API.TrainWindow)
		log.Info("Connected to redis")
	}

	// 4. Create dispatcher
	d, err := dispatch.New(rt.pricing, opts...)
	if err != nil {
		return err
	}

	// 5. Create scheduler
	store := jobs.NewBookStore()
	sched := scheduler.New(log)
	if len(rt.pricing.Book) > 0 && cfg.RepriceSchedule != "" {
		job := jobs.NewBookRepriceJob(d, rt.pricing.Book, store, cfg.RepriceSchedule, log).WithMetrics(m)
		if err := sched.AddJob(job); err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()

		// 시작 시 한 번 즉시 재평가
		go func() {
			if _, err := sched.RunJob(cmd.Context(), job.Name()); err != nil {
				log.WithError(err).Warn("Initial book reprice failed")
			}
		}()
	}

	// 6. Create router
	router := api.NewRouter(api.Handlers{
		Pricing:  handlers.NewPricingHandler(d, log),
		Training: handlers.NewTrainingHandler(d, trainQuota, log),
		Book:     handlers.NewBookHandler(store),
		Metrics:  m,
	}, api.NewLimiter(cfg), log)

	// 7. Create server
	server := api.New(cfg, log, router)

	// 8. Start server with graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "\n✅ Server running on http://localhost:%s\n", cfg.Port)
	fmt.Fprintln(cmd.OutOrStdout(), "\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	select {
	case err := <-errCh:
		return err
	case <-cmd.Context().Done():
	}

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
