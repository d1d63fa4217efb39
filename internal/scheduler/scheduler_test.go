package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJob struct {
	name     string
	schedule string
	summary  RunSummary
	err      error
	runs     atomic.Int32
}

func (j *fakeJob) Name() string     { return j.name }
func (j *fakeJob) Schedule() string { return j.schedule }
func (j *fakeJob) Run(ctx context.Context) (RunSummary, error) {
	j.runs.Add(1)
	return j.summary, j.err
}

func TestAddJob(t *testing.T) {
	s := New(nil)

	require.NoError(t, s.AddJob(&fakeJob{name: "b", schedule: "0 */15 * * * *"}))
	require.NoError(t, s.AddJob(&fakeJob{name: "a", schedule: "@every 1m"}))
	assert.Equal(t, []string{"a", "b"}, s.GetAllJobs())

	// 중복 등록 거부
	assert.Error(t, s.AddJob(&fakeJob{name: "a", schedule: "@hourly"}))

	// 잘못된 스케줄 거부 (초 필드 필수)
	assert.Error(t, s.AddJob(&fakeJob{name: "c", schedule: "*/15 * * *"}))
}

func TestRunJobRecordsHistoryWithoutRetry(t *testing.T) {
	s := New(nil)
	ok := &fakeJob{name: "ok", schedule: "@hourly", summary: RunSummary{Contracts: 2, Priced: 2}}
	bad := &fakeJob{
		name:     "bad",
		schedule: "@hourly",
		summary:  RunSummary{Contracts: 4, Priced: 1, Failed: 3},
		err:      errors.New("3 of 4 book contracts failed"),
	}
	require.NoError(t, s.AddJob(ok))
	require.NoError(t, s.AddJob(bad))

	result, err := s.RunJob(context.Background(), "ok")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 2, result.Summary.Priced)

	result, err = s.RunJob(context.Background(), "bad")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "3 of 4 book contracts failed", result.Error)
	assert.Equal(t, 3, result.Summary.Failed)
	assert.Equal(t, int32(1), bad.runs.Load())

	history, err := s.GetJobHistory("bad")
	require.NoError(t, err)
	require.Len(t, history.Results, 1)
	assert.InDelta(t, 0.75, history.ContractFailureRate(), 1e-12)

	stats := s.GetJobStats()
	assert.Equal(t, 0, stats["ok"].FailedRuns)
	assert.Equal(t, 1, stats["bad"].FailedRuns)
	assert.Equal(t, RunSummary{Contracts: 4, Priced: 1, Failed: 3}, stats["bad"].Totals)
	require.NotNil(t, stats["bad"].LastRun)
	assert.Equal(t, result.RunID, stats["bad"].LastRun.RunID)

	_, err = s.RunJob(context.Background(), "missing")
	assert.Error(t, err)
}

func TestRemoveJob(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.AddJob(&fakeJob{name: "a", schedule: "@hourly"}))
	require.NoError(t, s.RemoveJob("a"))
	assert.Empty(t, s.GetAllJobs())
	assert.Error(t, s.RemoveJob("a"))

	// 같은 이름으로 다시 등록 가능
	require.NoError(t, s.AddJob(&fakeJob{name: "a", schedule: "@hourly"}))
}

func TestStartStop(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.AddJob(&fakeJob{name: "a", schedule: "@hourly"}))

	s.Start()
	next, err := s.NextRun("a")
	require.NoError(t, err)
	assert.False(t, next.IsZero())
	s.Stop()

	_, err = s.NextRun("missing")
	assert.Error(t, err)
}

func TestJobHistoryLimit(t *testing.T) {
	h := &JobHistory{}
	_, ok := h.Latest()
	assert.False(t, ok)
	assert.Zero(t, h.ContractFailureRate())

	for i := 0; i < historyLimit+10; i++ {
		summary := RunSummary{Contracts: 2, Priced: 2}
		if i%2 == 1 {
			summary = RunSummary{Contracts: 2, Priced: 1, Failed: 1}
		}
		h.AddResult(JobResult{RunID: fmt.Sprint(i), Summary: summary, Success: summary.Failed == 0})
	}
	assert.Len(t, h.Results, historyLimit)

	last, ok := h.Latest()
	require.True(t, ok)
	assert.Equal(t, fmt.Sprint(historyLimit+9), last.RunID)

	total, failedRuns := h.Totals()
	assert.Equal(t, historyLimit/2, failedRuns)
	assert.Equal(t, 2*historyLimit, total.Contracts)
	assert.InDelta(t, 0.25, h.ContractFailureRate(), 1e-12)
}
