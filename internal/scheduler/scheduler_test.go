package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naveenvino/breezepython/pkg/logger"
)

type countingJob struct {
	name     string
	schedule string
	runs     atomic.Int32
	failures int32
}

func (j *countingJob) Name() string     { return j.name }
func (j *countingJob) Schedule() string { return j.schedule }

func (j *countingJob) Run(context.Context) error {
	n := j.runs.Add(1)
	if n <= j.failures {
		return errors.New("transient failure")
	}
	return nil
}

func newTestScheduler() *Scheduler {
	s := New(logger.NewNop())
	s.retryDelay = time.Millisecond
	return s
}

func TestScheduler_AddJobRejectsDuplicates(t *testing.T) {
	s := newTestScheduler()
	job := &countingJob{name: "collect", schedule: "0 0 16 * * 1-5"}

	require.NoError(t, s.AddJob(job))
	err := s.AddJob(job)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestScheduler_AddJobRejectsBadSchedule(t *testing.T) {
	s := newTestScheduler()
	job := &countingJob{name: "broken", schedule: "not a schedule"}

	require.Error(t, s.AddJob(job))
	assert.Empty(t, s.JobNames())
}

func TestScheduler_RunJobRecordsSuccess(t *testing.T) {
	s := newTestScheduler()
	job := &countingJob{name: "collect", schedule: "0 0 16 * * 1-5"}
	require.NoError(t, s.AddJob(job))

	s.runJob(job)

	history, err := s.History("collect")
	require.NoError(t, err)

	last, ok := history.Last()
	require.True(t, ok)
	assert.True(t, last.Success)
	assert.Equal(t, int32(1), job.runs.Load())
	assert.Equal(t, 1.0, history.SuccessRate())
}

func TestScheduler_RunJobRetriesUntilSuccess(t *testing.T) {
	s := newTestScheduler()
	job := &countingJob{name: "flaky", schedule: "0 0 16 * * 1-5", failures: 2}
	require.NoError(t, s.AddJob(job))

	s.runJob(job)

	history, err := s.History("flaky")
	require.NoError(t, err)

	last, ok := history.Last()
	require.True(t, ok)
	assert.True(t, last.Success)
	assert.Equal(t, int32(3), job.runs.Load())
}

func TestScheduler_RunJobRecordsExhaustedFailure(t *testing.T) {
	s := newTestScheduler()
	job := &countingJob{name: "dead", schedule: "0 0 16 * * 1-5", failures: 100}
	require.NoError(t, s.AddJob(job))

	s.runJob(job)

	history, err := s.History("dead")
	require.NoError(t, err)

	last, ok := history.Last()
	require.True(t, ok)
	assert.False(t, last.Success)
	assert.Equal(t, "transient failure", last.Error)
	assert.Equal(t, int32(4), job.runs.Load())
}

func TestScheduler_RunNowUnknownJob(t *testing.T) {
	s := newTestScheduler()
	require.Error(t, s.RunNow("missing"))
}

func TestJobHistory_CapsResults(t *testing.T) {
	var h JobHistory
	for i := 0; i < historyCap+20; i++ {
		h.Add(JobResult{JobName: "collect", Success: true})
	}
	assert.Len(t, h.Results, historyCap)
}
