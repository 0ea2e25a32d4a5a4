package scheduler

import (
	"context"
	"time"
)

// Job represents a scheduled job
// ⭐ SSOT: 스케줄 작업 인터페이스는 여기서만 정의
type Job interface {
	// Name returns the job name
	Name() string

	// Run executes the job
	Run(ctx context.Context) error

	// Schedule returns the cron schedule expression
	// Six fields with seconds, e.g. "0 0 6 * * *" (every day at 6 AM)
	//           or descriptors "@daily", "@every 1h"
	Schedule() string
}

// JobResult is one execution of a job, retries included
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Attempts  int           `json:"attempts"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// maxHistory bounds the results kept per job
const maxHistory = 100

// JobHistory keeps the most recent results of one job, oldest first
type JobHistory struct {
	Results []JobResult

	// 잘려나간 결과 포함 누적 카운트
	total    int
	failures int
}

// AddResult appends a result, dropping the oldest beyond maxHistory
func (h *JobHistory) AddResult(result JobResult) {
	h.total++
	if !result.Success {
		h.failures++
	}

	h.Results = append(h.Results, result)
	if len(h.Results) > maxHistory {
		h.Results = append([]JobResult(nil), h.Results[len(h.Results)-maxHistory:]...)
	}
}

// Latest returns up to n most recent results, oldest first
func (h *JobHistory) Latest(n int) []JobResult {
	if n > len(h.Results) {
		n = len(h.Results)
	}
	if n <= 0 {
		return []JobResult{}
	}
	return h.Results[len(h.Results)-n:]
}

// lastWhere returns the start time of the newest result matching ok
func (h *JobHistory) lastWhere(ok func(JobResult) bool) *time.Time {
	for i := len(h.Results) - 1; i >= 0; i-- {
		if ok(h.Results[i]) {
			t := h.Results[i].StartTime
			return &t
		}
	}
	return nil
}

// Stats summarizes the history for a job registered with schedule
func (h *JobHistory) Stats(name, schedule string) JobStats {
	stats := JobStats{
		JobName:      name,
		Schedule:     schedule,
		TotalRuns:    h.total,
		SuccessCount: h.total - h.failures,
		FailureCount: h.failures,
		LastSuccess:  h.lastWhere(func(r JobResult) bool { return r.Success }),
		LastFailure:  h.lastWhere(func(r JobResult) bool { return !r.Success }),
	}
	if h.total > 0 {
		stats.SuccessRate = float64(stats.SuccessCount) / float64(h.total)
	}
	if n := len(h.Results); n > 0 {
		last := h.Results[n-1]
		stats.LastRun = &last.StartTime
		stats.LastError = last.Error
	}
	return stats
}

// JobStats is the inspection view of one scheduled job
type JobStats struct {
	JobName      string     `json:"job_name"`
	Schedule     string     `json:"schedule"`
	TotalRuns    int        `json:"total_runs"`
	SuccessCount int        `json:"success_count"`
	FailureCount int        `json:"failure_count"`
	SuccessRate  float64    `json:"success_rate"`
	LastRun      *time.Time `json:"last_run,omitempty"`
	LastSuccess  *time.Time `json:"last_success,omitempty"`
	LastFailure  *time.Time `json:"last_failure,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
	NextRun      *time.Time `json:"next_run,omitempty"`
}
