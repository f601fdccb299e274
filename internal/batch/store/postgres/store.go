package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"istr/internal/batch"
	"istr/pkg/platform/sentinel"
	"istr/pkg/platform/tx"
)

// Schema creates the run ledger table.
const Schema = `
CREATE TABLE IF NOT EXISTS batch_runs (
	id            UUID PRIMARY KEY,
	function_name TEXT        NOT NULL,
	format        TEXT        NOT NULL,
	subject       TEXT        NOT NULL DEFAULT '',
	request_id    TEXT        NOT NULL DEFAULT '',
	row_count     INTEGER     NOT NULL,
	null_inputs   INTEGER     NOT NULL,
	valid_rows    INTEGER     NOT NULL,
	invalid       JSONB       NOT NULL DEFAULT '{}',
	started_at    TIMESTAMPTZ NOT NULL,
	duration_ns   BIGINT      NOT NULL
);
CREATE INDEX IF NOT EXISTS batch_runs_started_at_idx ON batch_runs (started_at DESC);
`

// uniqueViolation is the SQLSTATE for duplicate keys.
const uniqueViolation = "23505"

// Store is a Postgres run ledger.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects with lib/pq and pings the server.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", errors.Join(sentinel.ErrUnavailable, err))
	}
	return db, nil
}

// Migrate creates the schema if needed, in one transaction.
func (s *Store) Migrate(ctx context.Context) error {
	return tx.Run(ctx, s.db, func(ctx context.Context) error {
		if _, err := s.conn(ctx).ExecContext(ctx, Schema); err != nil {
			return fmt.Errorf("migrate batch_runs: %w", err)
		}
		return nil
	})
}

// conn joins the caller's transaction when ctx carries one.
func (s *Store) conn(ctx context.Context) tx.Conn {
	return tx.ConnFrom(ctx, s.db)
}

func (s *Store) Save(ctx context.Context, run batch.RunSummary) error {
	invalid, err := json.Marshal(nonNil(run.Stats.Invalid))
	if err != nil {
		return fmt.Errorf("marshal invalid counts: %w", err)
	}
	_, err = s.conn(ctx).ExecContext(ctx, `
		INSERT INTO batch_runs (
			id, function_name, format, subject, request_id,
			row_count, null_inputs, valid_rows, invalid, started_at, duration_ns
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		run.ID, run.Function, run.Format, run.Subject, run.RequestID,
		run.Stats.Rows, run.Stats.NullInputs, run.Stats.Valid, invalid,
		run.StartedAt, int64(run.Duration),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
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
	row := s.conn(ctx).QueryRowContext(ctx, selectRuns+` WHERE id = $1`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]batch.RunSummary, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, selectRuns+` ORDER BY started_at DESC LIMIT $1`, limit)
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
		run      batch.RunSummary
		invalid  []byte
		duration int64
	)
	err := row.Scan(
		&run.ID, &run.Function, &run.Format, &run.Subject, &run.RequestID,
		&run.Stats.Rows, &run.Stats.NullInputs, &run.Stats.Valid, &invalid,
		&run.StartedAt, &duration,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(invalid, &run.Stats.Invalid); err != nil {
		return nil, fmt.Errorf("decode invalid counts: %w", err)
	}
	if len(run.Stats.Invalid) == 0 {
		run.Stats.Invalid = nil
	}
	run.Duration = time.Duration(duration)
	run.StartedAt = run.StartedAt.UTC()
	return &run, nil
}

func nonNil(m map[string]int) map[string]int {
	if m == nil {
		return map[string]int{}
	}
	return m
}
