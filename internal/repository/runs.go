package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/workorder-sorter/constants"
	"github.com/joseph-ayodele/workorder-sorter/internal/entity"
)

var ErrRunNotFound = errors.New("batch run not found")

// RunRepository is the run ledger. It satisfies batch.Recorder.
type RunRepository interface {
	StartRun(ctx context.Context, run entity.BatchRun) error
	RecordOutcome(ctx context.Context, batchID string, o entity.FileOutcome) error
	FinishRun(ctx context.Context, run entity.BatchRun) error
	GetRun(ctx context.Context, id string) (entity.BatchRun, error)
	ListRuns(ctx context.Context, limit int) ([]entity.BatchRun, error)
	FindByChecksum(ctx context.Context, checksum string) ([]entity.FileOutcome, error)
}

type runRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewRunRepository(db *DB, logger *slog.Logger) RunRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &runRepo{db: db, logger: logger}
}

func (r *runRepo) StartRun(ctx context.Context, run entity.BatchRun) error {
	_, err := r.db.SQL.ExecContext(ctx, r.db.rebind(`
		INSERT INTO batch_runs (id, started_at, state, source_folder, model, total)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`),
		run.ID, run.StartedAt.UTC(), string(constants.BatchRunning), run.SourceFolder, run.Model, run.Total,
	)
	if err != nil {
		r.logger.Error("failed to record batch start", "batch_id", run.ID, "error", err)
		return fmt.Errorf("insert batch run: %w", err)
	}
	return nil
}

func (r *runRepo) RecordOutcome(ctx context.Context, batchID string, o entity.FileOutcome) error {
	_, err := r.db.SQL.ExecContext(ctx, r.db.rebind(`
		INSERT INTO file_outcomes (batch_id, filename, checksum, status, matched, work_order, equipment,
			new_path, error, extraction_error, input_tokens, output_tokens, attempts, duration_ms, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (batch_id, filename) DO UPDATE SET
			checksum = excluded.checksum,
			status = excluded.status,
			matched = excluded.matched,
			work_order = excluded.work_order,
			equipment = excluded.equipment,
			new_path = excluded.new_path,
			error = excluded.error,
			extraction_error = excluded.extraction_error,
			input_tokens = excluded.input_tokens,
			output_tokens = excluded.output_tokens,
			attempts = excluded.attempts,
			duration_ms = excluded.duration_ms,
			processed_at = excluded.processed_at`),
		batchID, o.Filename, o.Checksum, string(o.Status), o.Matched, o.WorkOrder, o.Equipment,
		o.NewPath, o.Error, o.ExtractionError, o.InputTokens, o.OutputTokens, o.Attempts,
		o.Duration.Milliseconds(), time.Now().UTC(),
	)
	if err != nil {
		r.logger.Error("failed to record file outcome", "batch_id", batchID, "file", o.Filename, "error", err)
		return fmt.Errorf("insert file outcome: %w", err)
	}
	return nil
}

func (r *runRepo) FinishRun(ctx context.Context, run entity.BatchRun) error {
	_, err := r.db.SQL.ExecContext(ctx, r.db.rebind(`
		INSERT INTO batch_runs (id, started_at, finished_at, state, source_folder, model, total, succeeded,
			failed, skipped, degraded, api_calls, input_tokens, output_tokens, cost_usd, cost_thb, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			finished_at = excluded.finished_at,
			state = excluded.state,
			total = excluded.total,
			succeeded = excluded.succeeded,
			failed = excluded.failed,
			skipped = excluded.skipped,
			degraded = excluded.degraded,
			api_calls = excluded.api_calls,
			input_tokens = excluded.input_tokens,
			output_tokens = excluded.output_tokens,
			cost_usd = excluded.cost_usd,
			cost_thb = excluded.cost_thb,
			error = excluded.error`),
		run.ID, run.StartedAt.UTC(), run.FinishedAt.UTC(), string(run.State), run.SourceFolder, run.Model,
		run.Total, run.Succeeded, run.Failed, run.Skipped, run.Degraded, run.APICalls,
		run.InputTokens, run.OutputTokens, run.CostUSD, run.CostTHB, run.Error,
	)
	if err != nil {
		r.logger.Error("failed to record batch finish", "batch_id", run.ID, "error", err)
		return fmt.Errorf("update batch run: %w", err)
	}
	return nil
}

const runColumns = `id, started_at, finished_at, state, source_folder, model, total, succeeded, failed,
	skipped, degraded, api_calls, input_tokens, output_tokens, cost_usd, cost_thb, error`

func scanRun(row interface{ Scan(...any) error }) (entity.BatchRun, error) {
	var (
		run      entity.BatchRun
		state    string
		finished sql.NullTime
	)
	err := row.Scan(&run.ID, &run.StartedAt, &finished, &state, &run.SourceFolder, &run.Model,
		&run.Total, &run.Succeeded, &run.Failed, &run.Skipped, &run.Degraded, &run.APICalls,
		&run.InputTokens, &run.OutputTokens, &run.CostUSD, &run.CostTHB, &run.Error)
	if err != nil {
		return entity.BatchRun{}, err
	}
	run.State = constants.BatchState(state)
	if finished.Valid {
		run.FinishedAt = finished.Time
	}
	run.Processed = run.Succeeded + run.Failed
	return run, nil
}

// GetRun loads a run with its outcomes.
func (r *runRepo) GetRun(ctx context.Context, id string) (entity.BatchRun, error) {
	row := r.db.SQL.QueryRowContext(ctx, r.db.rebind(`SELECT `+runColumns+` FROM batch_runs WHERE id = ?`), id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.BatchRun{}, ErrRunNotFound
	}
	if err != nil {
		return entity.BatchRun{}, fmt.Errorf("get batch run: %w", err)
	}

	outcomes, err := r.queryOutcomes(ctx, `WHERE batch_id = ? ORDER BY filename`, id)
	if err != nil {
		return entity.BatchRun{}, err
	}
	run.Outcomes = outcomes
	return run, nil
}

// ListRuns returns the most recent runs first, without outcomes.
func (r *runRepo) ListRuns(ctx context.Context, limit int) ([]entity.BatchRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.SQL.QueryContext(ctx, r.db.rebind(`SELECT `+runColumns+` FROM batch_runs ORDER BY started_at DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("list batch runs: %w", err)
	}
	defer rows.Close()

	var runs []entity.BatchRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan batch run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// FindByChecksum returns every recorded outcome for the same file content.
func (r *runRepo) FindByChecksum(ctx context.Context, checksum string) ([]entity.FileOutcome, error) {
	return r.queryOutcomes(ctx, `WHERE checksum = ? ORDER BY processed_at`, checksum)
}

func (r *runRepo) queryOutcomes(ctx context.Context, where string, arg any) ([]entity.FileOutcome, error) {
	rows, err := r.db.SQL.QueryContext(ctx, r.db.rebind(`
		SELECT filename, checksum, status, matched, work_order, equipment, new_path, error,
			extraction_error, input_tokens, output_tokens, attempts, duration_ms
		FROM file_outcomes `+where), arg)
	if err != nil {
		return nil, fmt.Errorf("query file outcomes: %w", err)
	}
	defer rows.Close()

	var out []entity.FileOutcome
	for rows.Next() {
		var (
			o      entity.FileOutcome
			status string
			ms     int64
		)
		if err := rows.Scan(&o.Filename, &o.Checksum, &status, &o.Matched, &o.WorkOrder, &o.Equipment,
			&o.NewPath, &o.Error, &o.ExtractionError, &o.InputTokens, &o.OutputTokens, &o.Attempts, &ms); err != nil {
			return nil, fmt.Errorf("scan file outcome: %w", err)
		}
		o.Status = constants.FileStatus(status)
		o.Success = o.Status == constants.FileRenamed || o.Status == constants.FileHeld
		o.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, o)
	}
	return out, rows.Err()
}
