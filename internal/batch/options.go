package batch

import (
	"context"
	"time"

	"github.com/joseph-ayodele/workorder-sorter/internal/entity"
)

// Recorder persists runs and outcomes. Errors are logged by the orchestrator and never
// affect the batch.
type Recorder interface {
	StartRun(ctx context.Context, run entity.BatchRun) error
	RecordOutcome(ctx context.Context, batchID string, o entity.FileOutcome) error
	FinishRun(ctx context.Context, run entity.BatchRun) error
}

const (
	defaultWorkers     = 4
	defaultTaskTimeout = 3 * time.Minute
)

type Option func(*Orchestrator)

// WithTaskTimeout bounds render+extract+place for one file.
func WithTaskTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.taskTimeout = d
		}
	}
}

// WithHeartbeat emits a heartbeat progress event every d while a batch runs.
func WithHeartbeat(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.heartbeat = d
		}
	}
}

func WithProgress(fn ProgressFunc) Option {
	return func(o *Orchestrator) { o.progress = fn }
}

func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}
