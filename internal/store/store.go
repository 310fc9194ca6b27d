// internal/store/store.go
// Package store keeps a history of runs and their attempts in PostgreSQL.
package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xkilldash9x/formpilot/internal/report"
)

//go:embed schema.sql
var schemaSQL string

// DBPool abstracts pgxpool.Pool so the store can be tested with pgxmock.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Store records runs and attempts.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a store and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{pool: pool, log: logger.Named("store")}, nil
}

// Connect opens a pool for url and wraps it in a store. The caller closes
// the returned pool.
func Connect(ctx context.Context, url string, logger *zap.Logger) (*Store, *pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create database pool: %w", err)
	}
	s, err := New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return s, pool, nil
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

const sqlInsertRun = `
    INSERT INTO runs (id, survey, mode, requested, randomize, started_at)
    VALUES ($1, $2, $3, $4, $5, $6);
`

// StartRun inserts the run row before any attempt is made.
func (s *Store) StartRun(ctx context.Context, run *report.Run) error {
	_, err := s.pool.Exec(ctx, sqlInsertRun,
		run.ID, run.Survey, run.Mode, run.Requested, run.Randomize, run.StartedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}
	return nil
}

const sqlInsertAttempt = `
    INSERT INTO attempts (run_id, number, state, url, pages, strategies, confirmation, error, screenshots, started_at, duration_ms)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
`

// RecordAttempt stores one finished attempt.
func (s *Store) RecordAttempt(ctx context.Context, runID string, a report.Attempt) error {
	_, err := s.pool.Exec(ctx, sqlInsertAttempt, attemptRow(runID, a)...)
	if err != nil {
		return fmt.Errorf("failed to insert attempt %d of run %s: %w", a.Number, runID, err)
	}
	return nil
}

func attemptRow(runID string, a report.Attempt) []interface{} {
	strategies := a.Strategies
	if strategies == nil {
		strategies = []string{}
	}
	screenshots := a.Screenshots
	if screenshots == nil {
		screenshots = []string{}
	}
	return []interface{}{
		runID, a.Number, string(a.State), a.URL, a.Pages,
		strategies, a.Confirmation, a.Error, screenshots,
		a.StartedAt.UTC(), a.Duration.Milliseconds(),
	}
}

const sqlFinishRun = `
    UPDATE runs
    SET finished_at = $2, cancelled = $3, confirmed = $4, unconfirmed = $5, aborted = $6
    WHERE id = $1;
`

// FinishRun stores the run's totals and end time.
func (s *Store) FinishRun(ctx context.Context, run *report.Run) error {
	t := run.Totals()
	tag, err := s.pool.Exec(ctx, sqlFinishRun,
		run.ID, run.FinishedAt.UTC(), run.Cancelled, t.Confirmed, t.Unconfirmed, t.Aborted)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", run.ID, err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("failed to finish run %s: run not found", run.ID)
	}
	return nil
}

// ImportRun stores a complete run, e.g. from a JSON report written while
// no database was configured, in a single transaction.
func (s *Store) ImportRun(ctx context.Context, run *report.Run) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	if _, err := tx.Exec(ctx, sqlInsertRun,
		run.ID, run.Survey, run.Mode, run.Requested, run.Randomize, run.StartedAt.UTC()); err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}

	if len(run.Attempts) > 0 {
		rows := make([][]interface{}, len(run.Attempts))
		for i, a := range run.Attempts {
			rows[i] = attemptRow(run.ID, a)
		}
		n, err := tx.CopyFrom(ctx,
			pgx.Identifier{"attempts"},
			[]string{"run_id", "number", "state", "url", "pages", "strategies", "confirmation", "error", "screenshots", "started_at", "duration_ms"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("failed to copy attempts: %w", err)
		}
		if int(n) != len(rows) {
			return fmt.Errorf("mismatch in copied attempts count: expected %d, got %d", len(rows), n)
		}
	}

	t := run.Totals()
	if _, err := tx.Exec(ctx, sqlFinishRun,
		run.ID, run.FinishedAt.UTC(), run.Cancelled, t.Confirmed, t.Unconfirmed, t.Aborted); err != nil {
		return fmt.Errorf("failed to finish run %s: %w", run.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RunSummary is one row of run history.
type RunSummary struct {
	ID          string
	Survey      string
	Mode        string
	Requested   int
	Randomize   bool
	Cancelled   bool
	StartedAt   time.Time
	FinishedAt  *time.Time
	Confirmed   int
	Unconfirmed int
	Aborted     int
}

const sqlRecentRuns = `
    SELECT id::text, survey, mode, requested, randomize, cancelled, started_at, finished_at, confirmed, unconfirmed, aborted
    FROM runs
    ORDER BY started_at DESC
    LIMIT $1;
`

// RecentRuns lists the newest runs first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, sqlRecentRuns, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(
			&r.ID, &r.Survey, &r.Mode, &r.Requested, &r.Randomize, &r.Cancelled,
			&r.StartedAt, &r.FinishedAt, &r.Confirmed, &r.Unconfirmed, &r.Aborted,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return runs, nil
}
