package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

type Config struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// DB is the run ledger connection. Postgres goes through a pgx pool wrapped as
// *sql.DB; anything else is treated as a SQLite path or file: URI.
type DB struct {
	SQL     *sql.DB
	Dialect Dialect
	pool    *pgxpool.Pool
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// Open connects and creates the ledger tables if they do not exist.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var (
		db  *DB
		err error
	)
	if isPostgres(cfg.DSN) {
		db, err = openPostgres(ctx, cfg, logger)
	} else {
		db, err = openSQLite(ctx, cfg, logger)
	}
	if err != nil {
		return nil, err
	}
	if err := db.migrate(ctx); err != nil {
		db.Close(logger)
		return nil, fmt.Errorf("create ledger schema: %w", err)
	}
	logger.Info("ledger.open.ok", "dialect", db.Dialect)
	return db, nil
}

func openPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	logger.Info("connecting to database", "dialect", DialectPostgres)
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse database dsn", "error", err)
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.MinConns = cfg.MinConns
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "workorder-sorter"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(cfg.StatementTimeout.Milliseconds(), 10)
	}

	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}
	return &DB{SQL: stdlib.OpenDBFromPool(pool), Dialect: DialectPostgres, pool: pool}, nil
}

func openSQLite(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	logger.Info("opening sqlite ledger", "dsn", cfg.DSN)
	sqlDB, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	// One writer; the collector is the only caller anyway.
	sqlDB.SetMaxOpenConns(1)
	if _, err := sqlDB.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}
	return &DB{SQL: sqlDB, Dialect: DialectSQLite}, nil
}

// Close closes the database connections gracefully
func (d *DB) Close(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("closing database connections")
	if err := d.SQL.Close(); err != nil {
		logger.Error("failed to close database", "error", err)
	}
	if d.pool != nil {
		d.pool.Close()
	}
}

// HealthCheck pings the ledger to catch DSN issues early.
func (d *DB) HealthCheck(ctx context.Context, timeout time.Duration, logger *slog.Logger) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := d.SQL.PingContext(ctx); err != nil {
		logger.Error("database ping failed", "error", err)
		return err
	}
	logger.Debug("database ping successful")
	return nil
}

// rebind turns ? placeholders into $n for Postgres.
func (d *DB) rebind(q string) string {
	if d.Dialect != DialectPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS batch_runs (
		id            TEXT PRIMARY KEY,
		started_at    TIMESTAMP NOT NULL,
		finished_at   TIMESTAMP NULL,
		state         TEXT NOT NULL,
		source_folder TEXT NOT NULL,
		model         TEXT NOT NULL,
		total         INTEGER NOT NULL DEFAULT 0,
		succeeded     INTEGER NOT NULL DEFAULT 0,
		failed        INTEGER NOT NULL DEFAULT 0,
		skipped       INTEGER NOT NULL DEFAULT 0,
		degraded      INTEGER NOT NULL DEFAULT 0,
		api_calls     BIGINT NOT NULL DEFAULT 0,
		input_tokens  BIGINT NOT NULL DEFAULT 0,
		output_tokens BIGINT NOT NULL DEFAULT 0,
		cost_usd      DOUBLE PRECISION NOT NULL DEFAULT 0,
		cost_thb      DOUBLE PRECISION NOT NULL DEFAULT 0,
		error         TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS file_outcomes (
		batch_id         TEXT NOT NULL,
		filename         TEXT NOT NULL,
		checksum         TEXT NOT NULL DEFAULT '',
		status           TEXT NOT NULL,
		matched          BOOLEAN NOT NULL DEFAULT FALSE,
		work_order       TEXT NOT NULL DEFAULT '',
		equipment        TEXT NOT NULL DEFAULT '',
		new_path         TEXT NOT NULL DEFAULT '',
		error            TEXT NOT NULL DEFAULT '',
		extraction_error TEXT NOT NULL DEFAULT '',
		input_tokens     BIGINT NOT NULL DEFAULT 0,
		output_tokens    BIGINT NOT NULL DEFAULT 0,
		attempts         INTEGER NOT NULL DEFAULT 0,
		duration_ms      BIGINT NOT NULL DEFAULT 0,
		processed_at     TIMESTAMP NOT NULL,
		PRIMARY KEY (batch_id, filename)
	)`,
	`CREATE INDEX IF NOT EXISTS file_outcomes_checksum_idx ON file_outcomes (checksum)`,
}

func (d *DB) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := d.SQL.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
