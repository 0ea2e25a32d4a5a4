package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wonny/ffrank/internal/api/handlers"
	"github.com/wonny/ffrank/internal/metrics"
	"github.com/wonny/ffrank/pkg/logger"
)

// Handlers groups the endpoint handlers wired into the router
type Handlers struct {
	Health  *handlers.HealthHandler
	Ranking *handlers.RankingHandler
	Panel   *handlers.PanelHandler

	Scheduler *handlers.SchedulerHandler // nil when SCHEDULER_ENABLED=false
}

// RouterOptions configures cross-cutting middleware
type RouterOptions struct {
	Limiter  *RateLimiter        // nil = no rate limiting
	Metrics  *metrics.Recorder   // nil = no request metrics
	Gatherer prometheus.Gatherer // nil = no /metrics endpoint
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(h Handlers, opts RouterOptions, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", h.Health.GetHealth).Methods("GET")

	// Metrics
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}

	// API
	api := r.PathPrefix("/api").Subrouter()

	// 학습이 요청 경로에서 일어날 수 있어 top-k 만 rate limit 적용
	var topk http.Handler = http.HandlerFunc(h.Ranking.GetTopK)
	if opts.Limiter != nil {
		topk = opts.Limiter.Middleware(topk)
	}
	api.Handle("/topk", topk).Methods("GET")

	api.HandleFunc("/panel/summary", h.Panel.GetSummary).Methods("GET")
	api.HandleFunc("/pipeline/last", h.Panel.GetLastRun).Methods("GET")

	if h.Scheduler != nil {
		api.HandleFunc("/scheduler/jobs", h.Scheduler.GetJobs).Methods("GET")
	}

	// Apply middleware
	r.Use(requestIDMiddleware(log))
	r.Use(metricsMiddleware(opts.Metrics))
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}
