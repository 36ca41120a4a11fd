package batch

import (
	"time"

	"github.com/joseph-ayodele/workorder-sorter/constants"
	"github.com/joseph-ayodele/workorder-sorter/internal/entity"
)

type Phase string

const (
	PhaseStarted   Phase = "started"
	PhaseFileDone  Phase = "file_done"
	PhaseHeartbeat Phase = "heartbeat"
	PhaseCompleted Phase = "completed"
	PhaseCancelled Phase = "cancelled"
	PhaseFailed    Phase = "failed"
)

// Progress is an in-process notification; not a stable wire format.
type Progress struct {
	BatchID      string
	Phase        Phase
	Processed    int // terminal outcomes so far, skipped included
	Total        int
	SuccessCount int
	FailCount    int
	SkippedCount int
	Elapsed      time.Duration
	Throughput   float64 // files per minute
	Outcome      *entity.FileOutcome
	Message      string
}

// ProgressFunc is called from a single goroutine, in completion order.
type ProgressFunc func(Progress)

// tally is the batch-scoped counter set. Only the collector writes it.
type tally struct {
	total     int
	done      int
	succeeded int
	failed    int
	skipped   int
	degraded  int
}

func (t *tally) add(o entity.FileOutcome) {
	t.done++
	switch {
	case o.Status == constants.FileSkipped:
		t.skipped++
	case o.Success:
		t.succeeded++
	default:
		t.failed++
	}
	if o.ExtractionError != "" {
		t.degraded++
	}
}

func (t tally) progress(batchID string, phase Phase, start time.Time) Progress {
	elapsed := time.Since(start)
	var tput float64
	if m := elapsed.Minutes(); m > 0 {
		tput = float64(t.done-t.skipped) / m
	}
	return Progress{
		BatchID:      batchID,
		Phase:        phase,
		Processed:    t.done,
		Total:        t.total,
		SuccessCount: t.succeeded,
		FailCount:    t.failed,
		SkippedCount: t.skipped,
		Elapsed:      elapsed,
		Throughput:   tput,
	}
}
