package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/wonny/ffrank/internal/api"
	"github.com/wonny/ffrank/internal/api/handlers"
	"github.com/wonny/ffrank/internal/scheduler"
	"github.com/wonny/ffrank/internal/scheduler/jobs"
	"github.com/wonny/ffrank/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

이 명령어는:
- 원천 데이터 로드 + 기본 패널 생성 (실패 시 시작 중단)
- 기본 B 의 최신월 모델 선학습
- HTTP API 서버 시작

Endpoints:
  GET  /health               - Health check (has_panel)
  GET  /api/topk             - Top-K 조회 (k, n_bins, as_of_month)
  GET  /api/panel/summary    - 패널 요약 + 제외 리포트
  GET  /api/pipeline/last    - 마지막 파이프라인 실행 결과
  GET  /api/scheduler/jobs   - 스케줄 작업 상태 (SCHEDULER_ENABLED=true)
  GET  /metrics              - Prometheus 메트릭

Example:
  go run ./cmd/ffrank api
  go run ./cmd/ffrank api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (default: $PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== ffrank API Server ===")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Wire components
	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg, log := a.cfg, a.logger
	if apiPort != "" {
		cfg.Port = apiPort
	}

	// 2. Build base panel + warm default models (fatal on failure)
	warm := a.ranker.Labels.WarmBins
	if len(warm) == 0 {
		warm = []int{a.ranker.Labels.DefaultBins}
	}
	if _, err := a.build(ctx, warm); err != nil {
		return err
	}

	// 3. Redis (response cache + shared rate limit)
	rdb, err := redis.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, continuing without response cache")
		rdb = redis.Disabled()
	}
	defer rdb.Close()

	var responseCache *redis.Cache
	if rdb.Enabled() {
		responseCache = redis.NewCache(rdb, "ffrank")
	}

	// 4. Scheduler
	var schedHandler *handlers.SchedulerHandler
	if cfg.SchedulerEnabled {
		sched := scheduler.New(log)
		if err := sched.AddJob(jobs.NewModelWarmupJob(a.cache, warm, cfg.WarmupSchedule, log)); err != nil {
			return err
		}
		if cfg.DataRefreshSchedule != "" {
			if err := sched.AddJob(jobs.NewDataRefreshJob(a.orchestrator, warm, cfg.DataRefreshSchedule, log)); err != nil {
				return err
			}
		}
		sched.Start()
		defer sched.Stop()
		schedHandler = handlers.NewSchedulerHandler(sched)
	}

	// 5. Router
	opts := api.RouterOptions{
		Limiter: api.NewRateLimiter(cfg.APIRateLimit, redis.NewRateLimiter(rdb, "ffrank"), log),
		Metrics: a.metrics,
	}
	metricsSeparate := cfg.MetricsEnabled && cfg.MetricsPort != "" && cfg.MetricsPort != cfg.Port
	if cfg.MetricsEnabled && !metricsSeparate {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	ranking := handlers.NewRankingHandler(a.service, a.cache, responseCache, handlers.RankingOptions{
		Policy: handlers.QueryPolicy{
			DefaultK:    a.ranker.Query.DefaultK,
			MaxK:        a.ranker.Query.MaxK,
			DefaultBins: a.ranker.Labels.DefaultBins,
			MinBins:     a.ranker.Labels.MinBins,
			MaxBins:     a.ranker.Labels.MaxBins,
		},
		ConfigHash: a.hash,
	}, log)
	router := api.NewRouter(api.Handlers{
		Health:    handlers.NewHealthHandler(a.service),
		Ranking:   ranking,
		Panel:     handlers.NewPanelHandler(a.orchestrator, log),
		Scheduler: schedHandler,
	}, opts, log)

	// 6. Metrics server (separate port)
	if metricsSeparate {
		metricsServer := &http.Server{
			Addr:              ":" + cfg.MetricsPort,
			Handler:           promhttp.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("Metrics server failed")
			}
		}()
		defer metricsServer.Close()
	}

	// 7. Start server with graceful shutdown
	server := api.New(cfg, log, router)
	if err := server.Listen(); err != nil {
		return err
	}

	log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on %s\n", server.Addr())
	fmt.Println("\nAvailable endpoints:")
	fmt.Println("  GET  /health")
	fmt.Println("  GET  /api/topk?k=50&n_bins=5&as_of_month=YYYY-MM")
	fmt.Println("  GET  /api/panel/summary")
	fmt.Println("  GET  /api/pipeline/last")
	if schedHandler != nil {
		fmt.Println("  GET  /api/scheduler/jobs")
	}
	fmt.Println("\nPress Ctrl+C to stop")

	if err := server.Serve(ctx); err != nil {
		return err
	}

	log.Info("Server stopped")
	return nil
}
