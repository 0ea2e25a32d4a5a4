package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/ffrank/pkg/logger"
)

// flakyJob fails the first failures attempts
type flakyJob struct {
	name     string
	failures int32
	calls    int32
}

func (j *flakyJob) Name() string     { return j.name }
func (j *flakyJob) Schedule() string { return "@every 1h" }

func (j *flakyJob) Run(ctx context.Context) error {
	n := atomic.AddInt32(&j.calls, 1)
	if n <= j.failures {
		return errors.New("transient")
	}
	return nil
}

func TestAddJob_Duplicate(t *testing.T) {
	s := New(logger.NewNop())
	require.NoError(t, s.AddJob(&flakyJob{name: "a"}))
	assert.Error(t, s.AddJob(&flakyJob{name: "a"}))
	assert.ElementsMatch(t, []string{"a"}, s.GetAllJobs())
}

func TestAddJob_BadSchedule(t *testing.T) {
	s := New(logger.NewNop())
	job := &badScheduleJob{}
	assert.Error(t, s.AddJob(job))
	assert.Empty(t, s.GetAllJobs())
}

type badScheduleJob struct{ flakyJob }

func (badScheduleJob) Schedule() string { return "every now and then" }

func TestRunJobSync_RetriesThenSucceeds(t *testing.T) {
	s := New(logger.NewNop(), WithRetry(2, time.Millisecond))
	job := &flakyJob{name: "flaky", failures: 2}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJobSync("flaky")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, int32(3), atomic.LoadInt32(&job.calls))
	assert.Equal(t, 3, result.Attempts)

	stats := s.GetJobStats()["flaky"]
	assert.Equal(t, 1, stats.TotalRuns)
	assert.Equal(t, 1.0, stats.SuccessRate)
}

func TestRunJobSync_FailsAfterRetries(t *testing.T) {
	s := New(logger.NewNop(), WithRetry(1, time.Millisecond))
	job := &flakyJob{name: "broken", failures: 10}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJobSync("broken")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "transient", result.Error)
	assert.Equal(t, int32(2), atomic.LoadInt32(&job.calls))

	history, err := s.GetJobHistory("broken")
	require.NoError(t, err)
	require.Len(t, history.Results, 1)
	assert.Equal(t, 2, history.Results[0].Attempts)
	assert.Equal(t, "transient", s.GetJobStats()["broken"].LastError)
}

func TestRemoveJob(t *testing.T) {
	s := New(logger.NewNop())
	require.NoError(t, s.AddJob(&flakyJob{name: "a"}))

	require.NoError(t, s.RemoveJob("a"))
	assert.Error(t, s.RemoveJob("a"))
	assert.Empty(t, s.GetJobStats())

	_, err := s.RunJobSync("a")
	assert.Error(t, err)
}

func TestStartStop(t *testing.T) {
	s := New(logger.NewNop())
	require.NoError(t, s.AddJob(&flakyJob{name: "a"}))
	s.Start()
	s.Stop()
}

func TestJobHistory(t *testing.T) {
	h := &JobHistory{}
	empty := h.Stats("x", "@daily")
	assert.Equal(t, 0.0, empty.SuccessRate)
	assert.Nil(t, empty.LastRun)
	assert.Empty(t, h.Latest(5))

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 120; i++ {
		r := JobResult{JobName: "x", StartTime: base.Add(time.Duration(i) * time.Minute), Success: i%4 != 0}
		if !r.Success {
			r.Error = "boom"
		}
		h.AddResult(r)
	}
	assert.Len(t, h.Results, maxHistory)
	assert.Len(t, h.Latest(3), 3)

	stats := h.Stats("x", "@daily")
	assert.Equal(t, 120, stats.TotalRuns)
	assert.Equal(t, 30, stats.FailureCount)
	assert.InDelta(t, 0.75, stats.SuccessRate, 1e-9)
	require.NotNil(t, stats.LastRun)
	assert.Equal(t, base.Add(119*time.Minute), *stats.LastRun)
	require.NotNil(t, stats.LastFailure)
	assert.Equal(t, base.Add(116*time.Minute), *stats.LastFailure)
	assert.Empty(t, stats.LastError)
}

func TestRunJob_Async(t *testing.T) {
	s := New(logger.NewNop())
	job := &flakyJob{name: "async"}
	require.NoError(t, s.AddJob(job))

	require.NoError(t, s.RunJob("async"))
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&job.calls) == 1
	}, time.Second, 5*time.Millisecond)

	assert.Error(t, s.RunJob("missing"))
}
