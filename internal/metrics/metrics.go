package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Query outcomes
const (
	OutcomeOK       = "ok"
	OutcomeInvalid  = "invalid"
	OutcomeNotReady = "not_ready"
	OutcomeError    = "error"
)

// Recorder records ranking service metrics using Prometheus
// ⭐ SSOT: 모든 메트릭 이름은 여기서만 정의
type Recorder struct {
	trainings     *prometheus.CounterVec
	trainDuration *prometheus.HistogramVec
	cacheLookups  *prometheus.CounterVec
	queries       *prometheus.CounterVec
	queryDuration prometheus.Histogram
	panelRows     prometheus.Gauge
	panelMonths   prometheus.Gauge
	panelDrops    *prometheus.GaugeVec
	httpRequests  *prometheus.CounterVec
}

// New creates a recorder registered on reg (prometheus.DefaultRegisterer when nil)
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Recorder{
		trainings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ffrank_model_trainings_total",
				Help: "Total number of ranking models trained",
			},
			[]string{"bins", "status"},
		),
		trainDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ffrank_model_training_duration_seconds",
				Help:    "Duration of model training in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"bins"},
		),
		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ffrank_cache_lookups_total",
				Help: "Model and labeled-panel cache lookups by result",
			},
			[]string{"cache", "result"},
		),
		queries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ffrank_topk_queries_total",
				Help: "Total number of top-k queries by outcome",
			},
			[]string{"outcome"},
		),
		queryDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ffrank_topk_query_duration_seconds",
				Help:    "Duration of top-k queries in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		panelRows: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ffrank_panel_rows",
			Help: "Rows in the base panel",
		}),
		panelMonths: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ffrank_panel_months",
			Help: "Distinct months in the base panel",
		}),
		panelDrops: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ffrank_panel_dropped_rows",
				Help: "Candidate rows excluded from the base panel by reason",
			},
			[]string{"reason"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ffrank_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "method", "class"},
		),
	}
}

// ObserveTraining records one training run
func (r *Recorder) ObserveTraining(bins string, d time.Duration, err error) {
	if r == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.trainings.WithLabelValues(bins, status).Inc()
	if err == nil {
		r.trainDuration.WithLabelValues(bins).Observe(d.Seconds())
	}
}

// CacheHit records a cache hit ("model" or "panel")
func (r *Recorder) CacheHit(cache string) {
	if r == nil {
		return
	}
	r.cacheLookups.WithLabelValues(cache, "hit").Inc()
}

// CacheMiss records a cache miss ("model" or "panel")
func (r *Recorder) CacheMiss(cache string) {
	if r == nil {
		return
	}
	r.cacheLookups.WithLabelValues(cache, "miss").Inc()
}

// ObserveQuery records a top-k query outcome and latency
func (r *Recorder) ObserveQuery(outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.queries.WithLabelValues(outcome).Inc()
	r.queryDuration.Observe(d.Seconds())
}

// SetPanel records base panel size and drop counts
func (r *Recorder) SetPanel(rows, months int, drops map[string]int) {
	if r == nil {
		return
	}
	r.panelRows.Set(float64(rows))
	r.panelMonths.Set(float64(months))
	for reason, n := range drops {
		r.panelDrops.WithLabelValues(reason).Set(float64(n))
	}
}

// ObserveHTTP records one HTTP request (route should be the route template)
func (r *Recorder) ObserveHTTP(route, method string, status int) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(route, method, StatusClass(status)).Inc()
}

// StatusClass maps a status code to its class label
func StatusClass(code int) string {
	switch {
	case code >= 100 && code < 200:
		return "1xx"
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
