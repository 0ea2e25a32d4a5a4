package selection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/wonny/ffrank/internal/contracts"
	"github.com/wonny/ffrank/internal/metrics"
	"github.com/wonny/ffrank/internal/modelcache"
	"github.com/wonny/ffrank/pkg/logger"
)

// Limits bounds the accepted query parameters
type Limits struct {
	MinBins int // 3
	MaxBins int // 10
	MaxK    int // 500
}

// DefaultLimits returns the public API bounds
func DefaultLimits() Limits {
	return Limits{MinBins: 3, MaxBins: 10, MaxK: 500}
}

// Service answers Top-K ranking queries
// implements contracts.Ranker
// ⭐ SSOT: Top-K 랭킹 로직은 여기서만
type Service struct {
	cache   *modelcache.Cache
	limits  Limits
	logger  *logger.Logger
	metrics *metrics.Recorder
}

// NewService creates a ranking service over an injected model cache
func NewService(cache *modelcache.Cache, limits Limits, log *logger.Logger, rec *metrics.Recorder) *Service {
	return &Service{
		cache:   cache,
		limits:  limits,
		logger:  log,
		metrics: rec,
	}
}

// Ready implements contracts.Ranker
func (s *Service) Ready() bool {
	return s.cache.Ready()
}

// TopK implements contracts.Ranker
func (s *Service) TopK(ctx context.Context, req contracts.TopKRequest) (*contracts.TopKResult, error) {
	start := time.Now()
	result, err := s.topK(ctx, req)
	s.metrics.ObserveQuery(outcome(err), time.Since(start))
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"as_of_month": result.AsOfMonth.String(),
		"n_bins":      result.Bins,
		"k":           result.K,
		"returned":    len(result.TopK),
		"duration":    time.Since(start).String(),
	}).Debug("Top-K served")
	return result, nil
}

func (s *Service) topK(ctx context.Context, req contracts.TopKRequest) (*contracts.TopKResult, error) {
	if req.K < 1 || req.K > s.limits.MaxK {
		return nil, fmt.Errorf("k=%d not in [1, %d]: %w", req.K, s.limits.MaxK, contracts.ErrInvalidK)
	}
	if req.Bins < s.limits.MinBins || req.Bins > s.limits.MaxBins {
		return nil, fmt.Errorf("n_bins=%d not in [%d, %d]: %w", req.Bins, s.limits.MinBins, s.limits.MaxBins, contracts.ErrInvalidBins)
	}

	// 1. B별 라벨 패널
	variant, err := s.cache.Variant(ctx, req.Bins)
	if err != nil {
		return nil, err
	}

	// 2. 기준월 결정
	asOf, err := ResolveAsOf(&variant.Panel, req.AsOf)
	if err != nil {
		return nil, err
	}

	// 3. 모델 (캐시 또는 학습)
	cached, err := s.cache.GetOrTrain(ctx, req.Bins, asOf)
	if err != nil {
		return nil, err
	}

	// 4. 해당 월 행 (자산 순) → 5. 점수 내림차순 정렬
	ranked := Rank(cached.Model, variant.RowsIn(asOf))

	// 6. 상위 min(k, n)
	n := min(req.K, len(ranked))

	return &contracts.TopKResult{
		AsOfMonth:   asOf,
		K:           req.K,
		Bins:        req.Bins,
		FeatureCols: append([]string(nil), contracts.FeatureCols...),
		TopK:        ranked[:n],
	}, nil
}

// ResolveAsOf picks the query month: latest when raw is empty, otherwise parsed and checked
func ResolveAsOf(panel *contracts.Panel, raw string) (contracts.Month, error) {
	if raw == "" {
		latest, ok := panel.LatestMonth()
		if !ok {
			return contracts.Month{}, fmt.Errorf("empty panel: %w", contracts.ErrMonthUnavailable)
		}
		return latest, nil
	}

	month, err := contracts.ParseMonth(raw)
	if err != nil {
		return contracts.Month{}, err
	}
	if !panel.HasMonth(month) {
		return contracts.Month{}, fmt.Errorf("as_of_month %s: %w", month, contracts.ErrMonthUnavailable)
	}
	return month, nil
}

// Rank scores rows and sorts them by score descending
// rows must be sorted by asset; equal scores keep that order
func Rank(model contracts.RankModel, rows []contracts.PanelRow) []contracts.RankedAsset {
	ranked := make([]contracts.RankedAsset, len(rows))
	for i, row := range rows {
		ranked[i] = contracts.RankedAsset{
			Asset: row.Asset,
			Score: model.Score(row.Features),
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	// Assign ranks
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case contracts.IsValidation(err):
		return metrics.OutcomeInvalid
	case IsNotReady(err):
		return metrics.OutcomeNotReady
	default:
		return metrics.OutcomeError
	}
}

// IsNotReady reports whether err means there is no panel to serve from
func IsNotReady(err error) bool {
	return errors.Is(err, contracts.ErrNotReady) || errors.Is(err, modelcache.ErrClosed)
}
