// Package history persists a record of past plan runs to a
// local SQLite database, using a pure-Go driver so the CLI stays a
// single static binary.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Record is one row of plan-run history.
type Record struct {
	RunID        string
	Scope        string
	StartedAt    time.Time
	DurationMs   int64
	CacheHit     bool
	Permissions  int
	Prohibitions int
	Duties       int
	Filtered     int
}

// Store wraps a *sql.DB opened against a SQLite file, owning the plan
// run history table's schema and access.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS plan_runs (
	run_id        TEXT PRIMARY KEY,
	scope         TEXT NOT NULL,
	started_at    INTEGER NOT NULL,
	duration_ms   INTEGER NOT NULL,
	cache_hit     INTEGER NOT NULL,
	permissions   INTEGER NOT NULL,
	prohibitions  INTEGER NOT NULL,
	duties        INTEGER NOT NULL,
	filtered      INTEGER NOT NULL
);
`

// Open opens (creating if necessary) the SQLite database at path and
// ensures its schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert records one completed plan run.
func (s *Store) Insert(ctx context.Context, r Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO plan_runs
			(run_id, scope, started_at, duration_ms, cache_hit, permissions, prohibitions, duties, filtered)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Scope, r.StartedAt.Unix(), r.DurationMs, boolToInt(r.CacheHit),
		r.Permissions, r.Prohibitions, r.Duties, r.Filtered,
	)
	if err != nil {
		return fmt.Errorf("history: insert run %s: %w", r.RunID, err)
	}
	return nil
}

// Recent returns the last limit plan runs, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, scope, started_at, duration_ms, cache_hit, permissions, prohibitions, duties, filtered
		FROM plan_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query recent: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var startedAt int64
		var cacheHit int
		if err := rows.Scan(&r.RunID, &r.Scope, &startedAt, &r.DurationMs, &cacheHit,
			&r.Permissions, &r.Prohibitions, &r.Duties, &r.Filtered); err != nil {
			return nil, fmt.Errorf("history: scan row: %w", err)
		}
		r.StartedAt = time.Unix(startedAt, 0).UTC()
		r.CacheHit = cacheHit != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
