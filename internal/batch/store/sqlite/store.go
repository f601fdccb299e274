// Package sqlite is an embedded run ledger for single node deployments and the
// CLI, backed by the pure Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"istr/internal/batch"
	"istr/pkg/platform/sentinel"
)

const schema = `
CREATE TABLE IF NOT EXISTS batch_runs (
	id            TEXT    PRIMARY KEY,
	function_name TEXT    NOT NULL,
	format        TEXT    NOT NULL,
	subject       TEXT    NOT NULL DEFAULT '',
	request_id    TEXT    NOT NULL DEFAULT '',
	row_count     INTEGER NOT NULL,
	null_inputs   INTEGER NOT NULL,
	valid_rows    INTEGER NOT NULL,
	invalid       TEXT    NOT NULL DEFAULT '{}',
	started_at    INTEGER NOT NULL,
	duration_ns   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS batch_runs_started_at_idx ON batch_runs (started_at DESC);
`

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at dsn and applies the schema.
// Use ":memory:" for a throwaway ledger.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	// One connection: SQLite serialises writers, and ":memory:" is per connection.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Save(ctx context.Context, run batch.RunSummary) error {
	invalid := []byte("{}")
	if len(run.Stats.Invalid) > 0 {
		var err error
		if invalid, err = json.Marshal(run.Stats.Invalid); err != nil {
			return fmt.Errorf("marshal invalid counts: %w", err)
		}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO batch_runs (
			id, function_name, format, subject, request_id,
			row_count, null_inputs, valid_rows, invalid, started_at, duration_ns
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Function, run.Format, run.Subject, run.RequestID,
		run.Stats.Rows, run.Stats.NullInputs, run.Stats.Valid, string(invalid),
		run.StartedAt.UnixNano(), int64(run.Duration),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("insert run %s: %w", run.ID, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

const selectRuns = `
	SELECT id, function_name, format, subject, request_id,
	       row_count, null_inputs, valid_rows, invalid, started_at, duration_ns
	FROM batch_runs`

func (s *Store) Get(ctx context.Context, id string) (*batch.RunSummary, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx, selectRuns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]batch.RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, selectRuns+` ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []batch.RunSummary
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*batch.RunSummary, error) {
	var (
		run       batch.RunSummary
		invalid   string
		startedAt int64
		duration  int64
	)
	err := row.Scan(
		&run.ID, &run.Function, &run.Format, &run.Subject, &run.RequestID,
		&run.Stats.Rows, &run.Stats.NullInputs, &run.Stats.Valid, &invalid,
		&startedAt, &duration,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(invalid), &run.Stats.Invalid); err != nil {
		return nil, fmt.Errorf("decode invalid counts: %w", err)
	}
	if len(run.Stats.Invalid) == 0 {
		run.Stats.Invalid = nil
	}
	run.StartedAt = time.Unix(0, startedAt).UTC()
	run.Duration = time.Duration(duration)
	return &run, nil
}
