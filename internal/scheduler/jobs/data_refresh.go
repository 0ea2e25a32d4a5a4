package jobs

import (
	"context"

	"github.com/wonny/ffrank/internal/brain"
	"github.com/wonny/ffrank/pkg/logger"
)

// Runner re-runs the data pipeline
type Runner interface {
	Run(ctx context.Context, config brain.RunConfig) (*brain.RunResult, error)
}

// DataRefreshJob reloads raw data and rebuilds the base panel
// Installing a changed panel drops every cached variant and model.
type DataRefreshJob struct {
	runner   Runner
	bins     []int
	schedule string
	logger   *logger.Logger
}

// NewDataRefreshJob creates a new data refresh job
func NewDataRefreshJob(runner Runner, bins []int, schedule string, log *logger.Logger) *DataRefreshJob {
	if schedule == "" {
		schedule = "0 30 5 * * *"
	}
	return &DataRefreshJob{
		runner:   runner,
		bins:     append([]int(nil), bins...),
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *DataRefreshJob) Name() string {
	return "data_refresh"
}

// Schedule returns the cron schedule (default: every day at 5:30 AM)
func (j *DataRefreshJob) Schedule() string {
	return j.schedule
}

// Run executes the pipeline
func (j *DataRefreshJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled data refresh")

	result, err := j.runner.Run(ctx, brain.RunConfig{WarmBins: j.bins})
	if err != nil {
		return err
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id":   result.RunID,
		"duration": result.Duration.String(),
	}).Info("Scheduled data refresh completed")
	return nil
}
