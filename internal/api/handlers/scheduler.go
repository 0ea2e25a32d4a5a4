package handlers

import (
	"net/http"
	"sort"

	"github.com/wonny/ffrank/internal/scheduler"
)

// JobStatsSource exposes scheduled job statistics
type JobStatsSource interface {
	GetJobStats() map[string]scheduler.JobStats
}

// SchedulerHandler serves scheduled job status
type SchedulerHandler struct {
	source JobStatsSource
}

// NewSchedulerHandler creates a new scheduler handler
func NewSchedulerHandler(source JobStatsSource) *SchedulerHandler {
	return &SchedulerHandler{source: source}
}

// GetJobs returns every scheduled job sorted by name
// GET /api/scheduler/jobs
func (h *SchedulerHandler) GetJobs(w http.ResponseWriter, r *http.Request) {
	stats := h.source.GetJobStats()
	jobs := make([]scheduler.JobStats, 0, len(stats))
	for _, st := range stats {
		jobs = append(jobs, st)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].JobName < jobs[j].JobName })

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	})
}
