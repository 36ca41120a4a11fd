package batch

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/workorder-sorter/constants"
	"github.com/joseph-ayodele/workorder-sorter/internal/common"
	"github.com/joseph-ayodele/workorder-sorter/internal/cost"
	"github.com/joseph-ayodele/workorder-sorter/internal/entity"
	"github.com/joseph-ayodele/workorder-sorter/internal/reference"
)

// Orchestrator runs one batch at a time: Idle -> Running -> Completed|Cancelled|Failed.
// Any terminal state may start again.
type Orchestrator struct {
	proc        *Processor
	accountant  *cost.Accountant
	logger      *slog.Logger
	taskTimeout time.Duration
	heartbeat   time.Duration
	progress    ProgressFunc
	recorder    Recorder

	mu    sync.Mutex
	state constants.BatchState

	stop  atomic.Bool
	stats sessionStats
}

func NewOrchestrator(proc *Processor, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		proc:        proc,
		accountant:  proc.accountant,
		logger:      logger,
		taskTimeout: defaultTaskTimeout,
		state:       constants.BatchIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) State() constants.BatchState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Stats returns the cumulative session statistics.
func (o *Orchestrator) Stats() SessionStats {
	return o.stats.snapshot(o.accountant.Totals())
}

// ResetStats clears the session statistics, including token and cost totals.
func (o *Orchestrator) ResetStats() {
	o.stats.reset()
	o.accountant.Reset()
}

// Stop asks a running batch to stop dispatching. Files already in flight finish.
func (o *Orchestrator) Stop() {
	if o.State() != constants.BatchRunning {
		return
	}
	if !o.stop.Swap(true) {
		o.logger.Info("batch.stop.requested")
	}
}

// Validate checks what a batch needs before it may enter Running.
func Validate(cfg entity.ProcessingConfig) error {
	v := common.NewValidator().
		Field("api_key", cfg.APIKey, common.Required).
		Field("source_folder", cfg.SourceFolder, common.Required, common.ExistingDir).
		Field("model", cfg.Model, common.Required)
	v.Check("crop", cfg.Crop, validCrop(cfg.Crop), "must satisfy 0 <= x1 < x2 <= 1 and 0 <= y1 < y2 <= 1")
	return common.ValidateAndReturnError(v)
}

func validCrop(c entity.CropRect) bool {
	return c.X1 >= 0 && c.Y1 >= 0 && c.X2 <= 1 && c.Y2 <= 1 && c.X1 < c.X2 && c.Y1 < c.Y2
}

func (o *Orchestrator) begin(cfg entity.ProcessingConfig) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == constants.BatchRunning {
		return common.NewAppError(common.CodeBusy, "a batch is already running", common.ErrBusy)
	}
	if err := Validate(cfg); err != nil {
		o.logger.Warn("batch.start.rejected", "error", err)
		return err
	}
	o.state = constants.BatchRunning
	o.stop.Store(false)
	return nil
}

func (o *Orchestrator) end(state constants.BatchState) {
	o.mu.Lock()
	o.state = state
	o.mu.Unlock()
}

// Run executes a batch and blocks until it ends. The error is non-nil when the batch was
// rejected (validation, busy) or ended Failed.
func (o *Orchestrator) Run(ctx context.Context, cfg entity.ProcessingConfig) (entity.BatchRun, error) {
	if err := o.begin(cfg); err != nil {
		return entity.BatchRun{State: o.State()}, err
	}
	return o.run(ctx, uuid.NewString(), cfg.Snapshot())
}

// Start validates synchronously, then runs the batch in the background. The channel
// yields the summary once and is closed.
func (o *Orchestrator) Start(ctx context.Context, cfg entity.ProcessingConfig) (<-chan entity.BatchRun, error) {
	if err := o.begin(cfg); err != nil {
		return nil, err
	}
	done := make(chan entity.BatchRun, 1)
	go func() {
		defer close(done)
		run, _ := o.run(ctx, uuid.NewString(), cfg.Snapshot())
		done <- run
	}()
	return done, nil
}

func (o *Orchestrator) run(ctx context.Context, batchID string, cfg entity.ProcessingConfig) (entity.BatchRun, error) {
	start := time.Now()
	log := o.logger.With("batch_id", batchID)
	ctx = common.WithBatchID(ctx, batchID)
	// Ledger writes and in-flight files must outlive a cancelled caller.
	detached := context.WithoutCancel(ctx)
	costBefore := o.accountant.Totals()

	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	run := entity.BatchRun{
		ID:           batchID,
		StartedAt:    start,
		State:        constants.BatchRunning,
		SourceFolder: cfg.SourceFolder,
		Model:        cfg.Model,
	}

	refs, err := reference.Load(cfg.ReferenceFile, log)
	if err != nil {
		log.Error("batch.reference.load_failed", "path", cfg.ReferenceFile, "error", err)
	}

	files, scan, err := EnumeratePDFs(cfg.SourceFolder)
	if err != nil {
		log.Error("batch.enumerate.failed", "error", err)
		return o.finish(detached, log, run, nil, costBefore, constants.BatchFailed, err)
	}
	run.Total = len(files)
	log.Info("batch.started",
		"source_folder", cfg.SourceFolder,
		"files", len(files),
		"already_renamed", scan.Canonical,
		"references", refs.Len(),
		"workers", workers,
		"model", cfg.Model,
	)
	o.record(log, "start", func() error { return o.recorder.StartRun(detached, run) })

	t := &tally{total: len(files)}
	o.emit(t.progress(batchID, PhaseStarted, start))

	results := make(chan entity.FileOutcome, workers)
	outcomes := make([]entity.FileOutcome, 0, len(files))
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		var tick <-chan time.Time
		if o.heartbeat > 0 {
			ticker := time.NewTicker(o.heartbeat)
			defer ticker.Stop()
			tick = ticker.C
		}
		for {
			select {
			case out, ok := <-results:
				if !ok {
					return
				}
				t.add(out)
				outcomes = append(outcomes, out)
				o.stats.add(out)
				o.record(log, "outcome", func() error { return o.recorder.RecordOutcome(detached, batchID, out) })
				p := t.progress(batchID, PhaseFileDone, start)
				p.Outcome = &out
				o.emit(p)
			case <-tick:
				o.emit(t.progress(batchID, PhaseHeartbeat, start))
			}
		}
	}()

	var (
		eg      errgroup.Group
		failErr error
		next    int
	)
	eg.SetLimit(workers)
	for ; next < len(files); next++ {
		if o.stopping(ctx) {
			break
		}
		if _, err := os.Stat(cfg.SourceFolder); err != nil {
			failErr = common.NewAppError(common.CodeEnumeration, "source folder vanished",
				errors.Join(common.ErrEnumeration, err))
			log.Error("batch.source.vanished", "error", err)
			break
		}
		name := files[next]
		eg.Go(func() error {
			// A slot may free up after Stop; such files have not started yet.
			if o.stopping(ctx) {
				results <- entity.Skipped(name)
				return nil
			}
			taskCtx, cancel := context.WithTimeout(common.WithFilename(detached, name), o.taskTimeout)
			defer cancel()
			results <- o.proc.ProcessFile(taskCtx, cfg, refs, name)
			return nil
		})
	}
	for _, name := range files[next:] {
		results <- entity.Skipped(name)
	}
	_ = eg.Wait()
	close(results)
	<-collected

	run.Outcomes = outcomes
	state := constants.BatchCompleted
	switch {
	case failErr != nil:
		state = constants.BatchFailed
	case o.stopping(ctx):
		state = constants.BatchCancelled
	}
	return o.finish(detached, log, run, t, costBefore, state, failErr)
}

func (o *Orchestrator) stopping(ctx context.Context) bool {
	return o.stop.Load() || ctx.Err() != nil
}

func (o *Orchestrator) finish(ctx context.Context, log *slog.Logger, run entity.BatchRun, t *tally, costBefore cost.Totals, state constants.BatchState, err error) (entity.BatchRun, error) {
	run.FinishedAt = time.Now()
	run.State = state
	if t != nil {
		run.Processed = t.done - t.skipped
		run.Succeeded = t.succeeded
		run.Failed = t.failed
		run.Skipped = t.skipped
		run.Degraded = t.degraded
	}
	delta := o.accountant.Totals().Sub(costBefore)
	run.APICalls = delta.APICalls
	run.InputTokens = delta.InputTokens
	run.OutputTokens = delta.OutputTokens
	run.CostUSD = delta.USD
	run.CostTHB = delta.THB
	if err != nil {
		run.Error = err.Error()
	}

	o.record(log, "finish", func() error { return o.recorder.FinishRun(ctx, run) })
	o.end(state)

	phase := PhaseCompleted
	switch state {
	case constants.BatchCancelled:
		phase = PhaseCancelled
	case constants.BatchFailed:
		phase = PhaseFailed
	}
	final := Progress{
		BatchID:      run.ID,
		Phase:        phase,
		Processed:    run.Processed + run.Skipped,
		Total:        run.Total,
		SuccessCount: run.Succeeded,
		FailCount:    run.Failed,
		SkippedCount: run.Skipped,
		Elapsed:      run.Elapsed(),
		Throughput:   run.Throughput(),
		Message:      run.Error,
	}

	log.Info("batch.finished",
		"state", state,
		"total", run.Total,
		"processed", run.Processed,
		"succeeded", run.Succeeded,
		"failed", run.Failed,
		"skipped", run.Skipped,
		"degraded", run.Degraded,
		"api_calls", run.APICalls,
		"cost_usd", run.CostUSD,
		"cost_thb", run.CostTHB,
		"files_per_min", run.Throughput(),
		"elapsed_ms", run.Elapsed().Milliseconds(),
	)
	o.emit(final)
	return run, err
}

func (o *Orchestrator) emit(p Progress) {
	if o.progress != nil {
		o.progress(p)
	}
}

func (o *Orchestrator) record(log *slog.Logger, what string, fn func() error) {
	if o.recorder == nil {
		return
	}
	if err := fn(); err != nil {
		log.Warn("batch.ledger.failed", "op", what, "error", err)
	}
}
