package entity

import (
	"time"

	"github.com/joseph-ayodele/workorder-sorter/constants"
)

// BatchRun is the summary of one orchestrator run. It is what the ledger stores, what
// the report renders, and what Run returns.
type BatchRun struct {
	ID           string
	StartedAt    time.Time
	FinishedAt   time.Time
	State        constants.BatchState
	SourceFolder string
	Model        string

	Total     int
	Processed int // outcomes other than skipped
	Succeeded int
	Failed    int
	Skipped   int
	Degraded  int // remote extraction never succeeded

	APICalls     int64
	InputTokens  int64
	OutputTokens int64
	CostUSD      float64
	CostTHB      float64

	Error    string
	Outcomes []FileOutcome
}

func (r BatchRun) Elapsed() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Throughput is processed files per minute.
func (r BatchRun) Throughput() float64 {
	mins := r.Elapsed().Minutes()
	if mins <= 0 {
		return 0
	}
	return float64(r.Processed) / mins
}
