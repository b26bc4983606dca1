package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/romanpTAMU/astro-llm/pkg/logger"
)

type fakeJob struct {
	name     string
	schedule string
	calls    int32
	run      func(call int32) error
}

func (j *fakeJob) Name() string     { return j.name }
func (j *fakeJob) Schedule() string { return j.schedule }
func (j *fakeJob) Run(ctx context.Context) error {
	return j.run(atomic.AddInt32(&j.calls, 1))
}

func newTestScheduler() *Scheduler {
	return New(logger.Nop(), time.UTC, WithRetry(2, time.Millisecond), WithTimeout(time.Second))
}

func TestAddJob(t *testing.T) {
	s := newTestScheduler()
	job := &fakeJob{name: "a", schedule: "0 0 14 * * MON", run: func(int32) error { return nil }}

	require.NoError(t, s.AddJob(job))
	assert.Error(t, s.AddJob(job), "duplicate name")
	assert.Error(t, s.AddJob(&fakeJob{name: "b", schedule: "every monday"}), "bad cron")
	assert.Equal(t, []string{"a"}, s.GetAllJobs())

	require.NoError(t, s.RemoveJob("a"))
	assert.Error(t, s.RemoveJob("a"))
}

func TestRunJobSync(t *testing.T) {
	tests := []struct {
		name      string
		run       func(call int32) error
		calls     int32
		success   bool
		skipped   bool
		errSubstr string
	}{
		{"success first try", func(int32) error { return nil }, 1, true, false, ""},
		{"success after retry", func(call int32) error {
			if call < 3 {
				return errors.New("transient")
			}
			return nil
		}, 3, true, false, ""},
		{"exhausts retries", func(int32) error { return errors.New("boom") }, 3, false, false, "boom"},
		{"skipped is not retried", func(int32) error {
			return fmt.Errorf("off-cycle: %w", ErrSkipped)
		}, 1, true, true, "off-cycle"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestScheduler()
			job := &fakeJob{name: "job", schedule: "@daily", run: tt.run}
			require.NoError(t, s.AddJob(job))

			result, err := s.RunJobSync("job")
			require.NoError(t, err)
			assert.Equal(t, tt.calls, atomic.LoadInt32(&job.calls))
			assert.Equal(t, tt.success, result.Success)
			assert.Equal(t, tt.skipped, result.Skipped)
			if tt.errSubstr != "" {
				assert.Contains(t, result.Error, tt.errSubstr)
			} else {
				assert.Empty(t, result.Error)
			}

			history, err := s.GetJobHistory("job")
			require.NoError(t, err)
			assert.Len(t, history.Results, 1)

			stats := s.GetJobStats()["job"]
			assert.Equal(t, 1, stats.TotalRuns)
			if tt.skipped {
				assert.Equal(t, 1, stats.SkippedCount)
			}
		})
	}
}

func TestRunJobSync_Unknown(t *testing.T) {
	_, err := newTestScheduler().RunJobSync("missing")
	assert.Error(t, err)
}

func TestNextRun(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.AddJob(&fakeJob{name: "weekly", schedule: "0 0 14 * * MON", run: func(int32) error { return nil }}))

	s.Start()
	defer s.Stop()

	next, err := s.NextRun("weekly")
	require.NoError(t, err)
	assert.Equal(t, time.Monday, next.Weekday())
	assert.Equal(t, 14, next.Hour())
}

func TestJobHistory(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < 105; i++ {
		h.AddResult(JobResult{Success: i%5 != 0, Skipped: i%7 == 0})
	}

	assert.Len(t, h.Results, 100)
	assert.Len(t, h.GetLatestResults(3), 3)
	assert.Len(t, h.GetFailedResults(), 20)
	assert.InDelta(t, 0.8, h.GetSuccessRate(), 1e-9)
}
