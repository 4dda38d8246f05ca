// Package history persists completed runs to a local SQLite database.
//
// Persistence is optional; the CLI only opens a store when a history path is
// configured. The schema keeps one row per run plus one row per recorded
// result, enough for the history command to answer "what worked last week".
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/shihabalter/bdixprobe/internal/probe"
)

// RunRecord summarises one completed run.
type RunRecord struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Total      int
	Completed  int
	Reachable  int
	Cancelled  bool
}

// Store is a SQLite-backed archive of runs. Safe for concurrent use; all
// synchronisation is delegated to database/sql.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("%s?_journal_mode=WAL&_foreign_keys=on", path))
	if err != nil {
		return nil, fmt.Errorf("unable to open history database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to ping history database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	started_at  TEXT NOT NULL,
	finished_at TEXT NOT NULL,
	total       INTEGER NOT NULL,
	completed   INTEGER NOT NULL,
	reachable   INTEGER NOT NULL,
	cancelled   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs (started_at DESC);

CREATE TABLE IF NOT EXISTS results (
	run_id     TEXT NOT NULL,
	name       TEXT NOT NULL,
	url        TEXT NOT NULL,
	outcome    TEXT NOT NULL,
	latency_ms INTEGER NOT NULL,
	error      TEXT,
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_results_run_id ON results (run_id);
`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// NewRunID returns a fresh identifier for a run.
func NewRunID() string {
	return uuid.NewString()
}

// SaveRun stores a run summary and its results in one transaction.
// A zero rec.ID is filled in with a fresh UUID; the used ID is returned.
func (s *Store) SaveRun(ctx context.Context, rec RunRecord, results []probe.Result) (string, error) {
	if rec.ID == "" {
		rec.ID = NewRunID()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	cancelled := 0
	if rec.Cancelled {
		cancelled = 1
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, total, completed, reachable, cancelled)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.StartedAt.UTC().Format(time.RFC3339Nano),
		rec.FinishedAt.UTC().Format(time.RFC3339Nano),
		rec.Total, rec.Completed, rec.Reachable, cancelled,
	)
	if err != nil {
		return "", fmt.Errorf("could not insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO results (run_id, name, url, outcome, latency_ms, error)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("could not prepare result insert: %w", err)
	}
	defer stmt.Close()

	for _, res := range results {
		var errText sql.NullString
		if res.Err != nil {
			errText = sql.NullString{String: res.Err.Error(), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, rec.ID, res.Name, res.URL,
			string(res.Outcome), res.Latency.Milliseconds(), errText); err != nil {
			return "", fmt.Errorf("could not insert result for %s: %w", res.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("could not commit run: %w", err)
	}
	return rec.ID, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, total, completed, reachable, cancelled
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("could not list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		var started, finished string
		var cancelled int
		if err := rows.Scan(&rec.ID, &started, &finished,
			&rec.Total, &rec.Completed, &rec.Reachable, &cancelled); err != nil {
			return nil, fmt.Errorf("could not scan run: %w", err)
		}
		rec.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		rec.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		rec.Cancelled = cancelled != 0
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ResultRow is a stored per-endpoint result.
type ResultRow struct {
	Name      string
	URL       string
	Outcome   string
	LatencyMs int64
	Error     string
}

// RunResults returns the stored results for a run, reachable first by
// ascending latency (the order they were saved in).
func (s *Store) RunResults(ctx context.Context, runID string) ([]ResultRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, url, outcome, latency_ms, COALESCE(error, '')
		 FROM results WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("could not load results for run %s: %w", runID, err)
	}
	defer rows.Close()

	var out []ResultRow
	for rows.Next() {
		var r ResultRow
		if err := rows.Scan(&r.Name, &r.URL, &r.Outcome, &r.LatencyMs, &r.Error); err != nil {
			return nil, fmt.Errorf("could not scan result: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
