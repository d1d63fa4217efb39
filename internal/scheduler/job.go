package scheduler

import (
	"context"
	"time"
)

// Job is a recurring pricing task
// ⭐ SSOT: 스케줄 작업 인터페이스는 여기서만 정의
type Job interface {
	Name() string

	// Run prices the job's contracts once. The summary is kept even when
	// err is not nil, so partial book failures stay visible.
	Run(ctx context.Context) (RunSummary, error)

	// Schedule is a cron expression with seconds first, e.g.
	// "0 */15 * * * *" or "@every 1m"
	Schedule() string
}

// RunSummary counts what one run priced
type RunSummary struct {
	Contracts int `json:"contracts"`
	Priced    int `json:"priced"`
	Failed    int `json:"failed"`
}

// JobResult is one recorded run
type JobResult struct {
	JobName   string        `json:"job_name"`
	RunID     string        `json:"run_id"`
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
	Summary   RunSummary    `json:"summary"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// historyLimit is the number of runs kept per job
const historyLimit = 100

// JobHistory keeps the latest runs of one job, oldest first
type JobHistory struct {
	Results []JobResult
}

// AddResult appends result, dropping the oldest beyond historyLimit
func (h *JobHistory) AddResult(result JobResult) {
	h.Results = append(h.Results, result)
	if len(h.Results) > historyLimit {
		h.Results = h.Results[len(h.Results)-historyLimit:]
	}
}

// Latest returns the most recent run
func (h *JobHistory) Latest() (JobResult, bool) {
	if len(h.Results) == 0 {
		return JobResult{}, false
	}
	return h.Results[len(h.Results)-1], true
}

// Totals sums the contract counts over the kept runs and counts the
// runs with at least one failure
func (h *JobHistory) Totals() (total RunSummary, failedRuns int) {
	for _, r := range h.Results {
		total.Contracts += r.Summary.Contracts
		total.Priced += r.Summary.Priced
		total.Failed += r.Summary.Failed
		if !r.Success {
			failedRuns++
		}
	}
	return total, failedRuns
}

// ContractFailureRate is failed / attempted contracts over the kept runs
// (0 when nothing was attempted)
func (h *JobHistory) ContractFailureRate() float64 {
	total, _ := h.Totals()
	if total.Contracts == 0 {
		return 0
	}
	return float64(total.Failed) / float64(total.Contracts)
}
