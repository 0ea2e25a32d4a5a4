package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/wonny/ffrank/internal/contracts"
	"github.com/wonny/ffrank/internal/selection"
	"github.com/wonny/ffrank/pkg/logger"
	"github.com/wonny/ffrank/pkg/redis"
)

// Fingerprinter identifies the currently served panel
type Fingerprinter interface {
	Fingerprint() string
}

// RankingOptions configures query binding and response caching
type RankingOptions struct {
	Policy QueryPolicy

	// ConfigHash identifies the ranker configuration the models are trained with
	// 응답 캐시 키에 포함 (설정이 다르면 캐시 공유 안 함)
	ConfigHash string
}

// RankingHandler serves Top-K queries
// ⭐ SSOT: 랭킹 API 핸들러는 이 구조체에서만
type RankingHandler struct {
	ranker contracts.Ranker
	panel  Fingerprinter
	cache  *redis.Cache // nil = no response cache
	opts   RankingOptions
	logger *logger.Logger
}

// NewRankingHandler creates a new ranking handler
func NewRankingHandler(ranker contracts.Ranker, panel Fingerprinter, cache *redis.Cache, opts RankingOptions, log *logger.Logger) *RankingHandler {
	return &RankingHandler{
		ranker: ranker,
		panel:  panel,
		cache:  cache,
		opts:   opts,
		logger: log,
	}
}

// GetTopK returns the top-k assets as of a month
// GET /api/topk?k=50&n_bins=5&as_of_month=2020-06
func (h *RankingHandler) GetTopK(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	q, errs := BindTopKQuery(r.URL.Query(), h.opts.Policy)
	if errs != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid query parameters", Details: errs})
		return
	}

	if !h.ranker.Ready() {
		respondError(w, http.StatusServiceUnavailable, contracts.ErrNotReady.Error())
		return
	}

	// 1. 응답 캐시 조회
	key, cacheable := h.cacheKey(q)
	if cacheable {
		var cached json.RawMessage
		hit, err := h.cache.Get(ctx, key, &cached)
		if err != nil {
			h.log(ctx).WithError(err).Warn("Top-K cache read failed")
		}
		if hit {
			w.Header().Set("X-Cache", "HIT")
			respondRaw(w, http.StatusOK, cached)
			return
		}
	}

	// 2. 랭킹
	result, err := h.ranker.TopK(ctx, contracts.TopKRequest{K: *q.K, Bins: *q.Bins, AsOf: q.AsOf})
	if err != nil {
		h.respondRankError(w, r, err)
		return
	}

	body, err := json.Marshal(result)
	if err != nil {
		h.log(ctx).WithError(err).Error("Failed to encode top-k result")
		respondError(w, http.StatusInternalServerError, "Failed to encode result")
		return
	}

	// 3. 응답 캐시 저장
	if cacheable {
		if err := h.cache.Set(ctx, key, json.RawMessage(body), 0); err != nil {
			h.log(ctx).WithError(err).Warn("Top-K cache write failed")
		}
		w.Header().Set("X-Cache", "MISS")
	}

	respondRaw(w, http.StatusOK, body)
}

// cacheKey normalizes the as-of month so equivalent queries share one entry
func (h *RankingHandler) cacheKey(q *TopKQuery) (string, bool) {
	if h.cache == nil || h.panel == nil || h.opts.ConfigHash == "" {
		return "", false
	}
	fp := h.panel.Fingerprint()
	if fp == "" {
		return "", false
	}
	asOf := ""
	if q.AsOf != "" {
		m, err := contracts.ParseMonth(q.AsOf)
		if err != nil {
			return "", false
		}
		asOf = m.String()
	}
	return redis.TopKKey(fp, h.opts.ConfigHash, asOf, *q.Bins, *q.K), true
}

// log returns the request-scoped logger when the router installed one
func (h *RankingHandler) log(ctx context.Context) *logger.Logger {
	return logger.FromContext(ctx, h.logger)
}

func (h *RankingHandler) respondRankError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case contracts.IsValidation(err):
		respondError(w, http.StatusBadRequest, err.Error())
	case selection.IsNotReady(err):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.log(r.Context()).WithError(err).Error("Top-K query failed")
		respondError(w, http.StatusInternalServerError, "Failed to rank assets")
	}
}

// HealthHandler reports liveness and panel readiness
type HealthHandler struct {
	ranker  contracts.Ranker
	started time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(ranker contracts.Ranker) *HealthHandler {
	return &HealthHandler{ranker: ranker, started: time.Now()}
}

// HealthResponse is the /health body
type HealthResponse struct {
	OK       bool   `json:"ok"`
	HasPanel bool   `json:"has_panel"`
	Uptime   string `json:"uptime"`
}

// GetHealth returns server health status
// GET /health
func (h *HealthHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{
		OK:       true,
		HasPanel: h.ranker.Ready(),
		Uptime:   time.Since(h.started).Round(time.Second).String(),
	})
}
