package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/ffrank/internal/modelcache"
	"github.com/wonny/ffrank/pkg/logger"
)

// ModelWarmupJob keeps the latest-month models trained for the warm bin counts
// ⭐ SSOT: 모델 예열 스케줄은 이 Job에서만
type ModelWarmupJob struct {
	cache    *modelcache.Cache
	bins     []int
	schedule string
	logger   *logger.Logger
}

// NewModelWarmupJob creates a new model warmup job
func NewModelWarmupJob(cache *modelcache.Cache, bins []int, schedule string, log *logger.Logger) *ModelWarmupJob {
	if schedule == "" {
		schedule = "0 0 6 * * *"
	}
	return &ModelWarmupJob{
		cache:    cache,
		bins:     append([]int(nil), bins...),
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *ModelWarmupJob) Name() string {
	return "model_warmup"
}

// Schedule returns the cron schedule (default: every day at 6 AM)
func (j *ModelWarmupJob) Schedule() string {
	return j.schedule
}

// Run trains any missing latest-month model
func (j *ModelWarmupJob) Run(ctx context.Context) error {
	if !j.cache.Ready() {
		// 패널 적재 전이면 다음 주기에 재시도
		j.logger.Debug("Model warmup skipped: panel not ready")
		return nil
	}

	before := j.cache.Stats().Models
	if err := j.cache.Warmup(ctx, j.bins...); err != nil {
		return fmt.Errorf("model warmup: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"bins":    j.bins,
		"trained": j.cache.Stats().Models - before,
	}).Info("Model warmup completed")
	return nil
}
