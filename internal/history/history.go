// Package history records every update, validate and rollback run in a local
// SQLite database.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

type Kind string

const (
	KindUpdate   Kind = "update"
	KindValidate Kind = "validate"
	KindRollback Kind = "rollback"
	KindBackup   Kind = "backup"
)

const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	cluster     TEXT NOT NULL,
	environment TEXT NOT NULL,
	region      TEXT NOT NULL,
	scope       TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	started     INTEGER NOT NULL,
	finished    INTEGER,
	detail      TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS runs_cluster_started ON runs (cluster, started DESC);
`

var ErrNotFound = errors.New("run not found")

// Run is one row of the history table. Finished is zero while the run is in
// progress.
type Run struct {
	ID          string
	Kind        Kind
	Cluster     string
	Environment string
	Region      string
	Scope       string
	Status      string
	Started     time.Time
	Finished    time.Time
	Detail      string
}

func (r Run) Duration() time.Duration {
	if r.Finished.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}

// Store records runs in a local SQLite database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (and if needed creates) the database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating history dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}
	// A single connection serialises writers without SQLITE_BUSY retries.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating history db: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Start inserts a running entry and returns it with a fresh ID.
func (s *Store) Start(ctx context.Context, r Run) (Run, error) {
	r.ID = uuid.NewString()
	r.Status = StatusRunning
	r.Started = s.now().UTC()
	r.Finished = time.Time{}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, kind, cluster, environment, region, scope, status, started, detail)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, string(r.Kind), r.Cluster, r.Environment, r.Region, r.Scope, r.Status, r.Started.UnixMilli(), r.Detail)
	if err != nil {
		return Run{}, fmt.Errorf("recording run: %w", err)
	}
	return r, nil
}

// Finish stores the final status of a run started with Start. A non-nil
// runErr marks it failed and is appended to the detail.
func (s *Store) Finish(ctx context.Context, id, detail string, runErr error) error {
	status := StatusSucceeded
	if runErr != nil {
		status = StatusFailed
		if detail != "" {
			detail += ": "
		}
		detail += runErr.Error()
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, finished = ?, detail = ? WHERE id = ?`,
		status, s.now().UTC().UnixMilli(), detail, id)
	if err != nil {
		return fmt.Errorf("finishing run %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// List returns the most recent runs, newest first. An empty cluster matches
// every cluster; limit <= 0 means no limit.
func (s *Store) List(ctx context.Context, cluster string, limit int) ([]Run, error) {
	q := `SELECT id, kind, cluster, environment, region, scope, status, started, finished, detail FROM runs`
	var args []any
	if cluster != "" {
		q += ` WHERE cluster = ?`
		args = append(args, cluster)
	}
	q += ` ORDER BY started DESC, rowid DESC`
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r        Run
			kind     string
			started  int64
			finished sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &kind, &r.Cluster, &r.Environment, &r.Region, &r.Scope, &r.Status, &started, &finished, &r.Detail); err != nil {
			return nil, fmt.Errorf("reading run: %w", err)
		}
		r.Kind = Kind(kind)
		r.Started = time.UnixMilli(started).UTC()
		if finished.Valid {
			r.Finished = time.UnixMilli(finished.Int64).UTC()
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
