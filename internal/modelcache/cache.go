package modelcache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wonny/ffrank/internal/contracts"
	"github.com/wonny/ffrank/internal/metrics"
	"github.com/wonny/ffrank/internal/s3_label"
	"github.com/wonny/ffrank/pkg/logger"
)

// ErrClosed is returned after Close
var ErrClosed = errors.New("model cache is closed")

// CachedModel is a trained ranking model for one (bins, as-of month) key
// Immutable once stored
type CachedModel struct {
	Bins        int
	AsOf        contracts.Month
	Model       contracts.RankModel
	TrainRows   int
	TrainMonths int
	TrainedAt   time.Time
	Duration    time.Duration
}

type modelKey struct {
	bins  int
	month contracts.Month
}

// Stats is a point-in-time view of the cache contents
type Stats struct {
	HasPanel    bool   `json:"has_panel"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Variants    []int  `json:"variants"`
	Models      int    `json:"models"`
}

// Cache owns the base panel, its labeled variants and trained models
// ⭐ SSOT: 패널 변형/모델 캐시는 이 구조체에서만 (프로세스 수명)
//
// Lookups take the read lock; misses go through a per-key singleflight so
// concurrent callers for the same key share one labeling or training run.
type Cache struct {
	trainer contracts.ModelTrainer
	logger  *logger.Logger
	metrics *metrics.Recorder

	mu          sync.RWMutex
	base        *contracts.Panel
	fingerprint string
	generation  uint64
	closed      bool
	variants    map[int]*contracts.LabeledPanel
	models      map[modelKey]*CachedModel

	flight singleflight.Group
}

// New creates an empty cache; SetPanel makes it ready
func New(trainer contracts.ModelTrainer, log *logger.Logger, rec *metrics.Recorder) *Cache {
	return &Cache{
		trainer:  trainer,
		logger:   log,
		metrics:  rec,
		variants: make(map[int]*contracts.LabeledPanel),
		models:   make(map[modelKey]*CachedModel),
	}
}

// SetPanel installs a new base panel and drops every derived variant and model
func (c *Cache) SetPanel(panel *contracts.Panel) error {
	if panel == nil {
		return fmt.Errorf("set panel: nil panel")
	}
	fp := panel.Fingerprint()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.base = panel
	c.fingerprint = fp
	c.generation++
	c.variants = make(map[int]*contracts.LabeledPanel)
	c.models = make(map[modelKey]*CachedModel)

	c.logger.WithFields(map[string]interface{}{
		"rows":        panel.Len(),
		"fingerprint": fp,
	}).Info("Base panel installed")
	return nil
}

// Ready reports whether a base panel is installed
func (c *Cache) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.base != nil && !c.closed
}

// Panel returns the base panel
func (c *Cache) Panel() (*contracts.Panel, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrClosed
	}
	if c.base == nil {
		return nil, contracts.ErrNotReady
	}
	return c.base, nil
}

// Fingerprint returns the base panel fingerprint ("" before SetPanel)
func (c *Cache) Fingerprint() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fingerprint
}

// Variant returns the panel labeled with bins grades, labeling it on first use
func (c *Cache) Variant(ctx context.Context, bins int) (*contracts.LabeledPanel, error) {
	c.mu.RLock()
	base, gen, err := c.snapshotLocked()
	variant, ok := c.variants[bins]
	c.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	if ok {
		c.metrics.CacheHit("panel")
		return variant, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("panel:%d:%d", gen, bins)
	v, err, _ := c.flight.Do(key, func() (interface{}, error) {
		c.mu.RLock()
		existing, ok := c.variants[bins]
		c.mu.RUnlock()
		if ok {
			return existing, nil
		}

		c.metrics.CacheMiss("panel")
		labeled, err := s3_label.Label(base, bins)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if c.generation == gen && !c.closed {
			c.variants[bins] = labeled
		}
		c.mu.Unlock()

		c.logger.WithFields(map[string]interface{}{
			"n_bins":       bins,
			"rows":         labeled.Len(),
			"distribution": s3_label.Distribution(labeled),
		}).Debug("Labeled panel variant built")
		return labeled, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*contracts.LabeledPanel), nil
}

// GetOrTrain returns the model for (bins, month), training it on rows strictly before month
func (c *Cache) GetOrTrain(ctx context.Context, bins int, month contracts.Month) (*CachedModel, error) {
	k := modelKey{bins: bins, month: month}

	c.mu.RLock()
	_, gen, err := c.snapshotLocked()
	cached, ok := c.models[k]
	c.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	if ok {
		c.metrics.CacheHit("model")
		return cached, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 공유 학습은 호출자 취소와 분리; 각 호출자는 자기 ctx 로만 대기 중단
	shared := context.WithoutCancel(ctx)
	key := fmt.Sprintf("model:%d:%d:%s", gen, bins, month)
	ch := c.flight.DoChan(key, func() (interface{}, error) {
		c.mu.RLock()
		existing, ok := c.models[k]
		c.mu.RUnlock()
		if ok {
			return existing, nil
		}
		c.metrics.CacheMiss("model")
		return c.train(shared, gen, k)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*CachedModel), nil
	}
}

// train fits and stores one model; called inside the singleflight for k
func (c *Cache) train(ctx context.Context, gen uint64, k modelKey) (*CachedModel, error) {
	variant, err := c.Variant(ctx, k.bins)
	if err != nil {
		return nil, err
	}

	// 1. 학습 데이터: as-of 이전 월만 (누수 방지)
	rows := variant.RowsBefore(k.month)
	if len(rows) == 0 {
		return nil, fmt.Errorf("train n_bins=%d as_of=%s: %w", k.bins, k.month, contracts.ErrInsufficientHistory)
	}
	set := &contracts.TrainingSet{
		Rows:   rows,
		Groups: contracts.GroupSizes(rows),
	}

	// 2. 학습
	start := time.Now()
	model, err := c.trainer.Train(ctx, set)
	elapsed := time.Since(start)
	c.metrics.ObserveTraining(strconv.Itoa(k.bins), elapsed, err)
	if err != nil {
		return nil, fmt.Errorf("train n_bins=%d as_of=%s: %w", k.bins, k.month, err)
	}

	cached := &CachedModel{
		Bins:        k.bins,
		AsOf:        k.month,
		Model:       model,
		TrainRows:   len(rows),
		TrainMonths: len(set.Groups),
		TrainedAt:   time.Now(),
		Duration:    elapsed,
	}

	// 3. 저장 (패널이 교체되었으면 버림)
	c.mu.Lock()
	if c.generation == gen && !c.closed {
		c.models[k] = cached
	}
	c.mu.Unlock()

	c.logger.WithFields(map[string]interface{}{
		"n_bins":       k.bins,
		"as_of_month":  k.month.String(),
		"train_rows":   cached.TrainRows,
		"train_months": cached.TrainMonths,
		"duration":     elapsed.String(),
	}).Info("Model trained")

	return cached, nil
}

// Warmup builds the variants for each bins value and trains their latest-month models
// A latest month without earlier history is logged and skipped.
func (c *Cache) Warmup(ctx context.Context, bins ...int) error {
	base, err := c.Panel()
	if err != nil {
		return err
	}
	latest, ok := base.LatestMonth()
	if !ok {
		c.logger.Warn("Warmup skipped: base panel is empty")
		return nil
	}

	for _, b := range bins {
		if _, err := c.Variant(ctx, b); err != nil {
			return fmt.Errorf("warmup n_bins=%d: %w", b, err)
		}
		if _, err := c.GetOrTrain(ctx, b, latest); err != nil {
			if errors.Is(err, contracts.ErrInsufficientHistory) {
				c.logger.WithFields(map[string]interface{}{
					"n_bins":      b,
					"as_of_month": latest.String(),
				}).Warn("Warmup skipped: no history before latest month")
				continue
			}
			return fmt.Errorf("warmup n_bins=%d: %w", b, err)
		}
	}
	return nil
}

// Stats returns the current cache contents summary
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	variants := make([]int, 0, len(c.variants))
	for b := range c.variants {
		variants = append(variants, b)
	}
	sort.Ints(variants)

	return Stats{
		HasPanel:    c.base != nil && !c.closed,
		Fingerprint: c.fingerprint,
		Variants:    variants,
		Models:      len(c.models),
	}
}

// Close releases the panel, variants and models
// In-flight trainings finish but their results are discarded.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.base = nil
	c.variants = nil
	c.models = nil
	c.generation++
	c.logger.Info("Model cache closed")
}

// snapshotLocked returns the base panel and generation (caller holds mu)
func (c *Cache) snapshotLocked() (*contracts.Panel, uint64, error) {
	if c.closed {
		return nil, 0, ErrClosed
	}
	if c.base == nil {
		return nil, 0, contracts.ErrNotReady
	}
	return c.base, c.generation, nil
}
