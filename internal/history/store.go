// Package history records sweep reports in a SQLite database so runs can be
// listed and compared later.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/yildizm/feedcluster/internal/cluster"
	"github.com/yildizm/feedcluster/internal/stats"
	"github.com/yildizm/feedcluster/internal/sweep"
)

// DefaultDBPath is the default database location
const DefaultDBPath = "~/.feedcluster/history.db"

// ErrRunNotFound is returned by LoadReport for unknown ids
var ErrRunNotFound = errors.New("run not found")

// Run is one stored sweep without its rows
type Run struct {
	ID        int64
	StartedAt time.Time
	InputFile string
	Records   int
	Dims      int
	Backend   string
	Duration  time.Duration
	Results   int
}

// Store persists sweep reports
type Store struct {
	db     *sql.DB
	dbPath string
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at  TEXT    NOT NULL,
	input_file  TEXT    NOT NULL DEFAULT '',
	n_records   INTEGER NOT NULL,
	dims        INTEGER NOT NULL,
	backend     TEXT    NOT NULL DEFAULT '',
	duration_ms INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS run_results (
	run_id            INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	position          INTEGER NOT NULL,
	algorithm         TEXT    NOT NULL,
	params            TEXT    NOT NULL,
	n_clusters        INTEGER NOT NULL,
	n_outliers        INTEGER NOT NULL,
	n_customers_union INTEGER NOT NULL,
	avg_customers     REAL    NOT NULL,
	duration_ms       INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (run_id, position)
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

// Open opens or creates the history database at path.
// Pass ":memory:" for in-memory databases (testing).
func Open(path string) (*Store, error) {
	if path == "" {
		path = DefaultDBPath
	}
	path = expandPath(path)

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db, dbPath: path}, nil
}

// Path returns the database location
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveReport stores report and its rows in one transaction and returns the
// new run id
func (s *Store) SaveReport(ctx context.Context, report *sweep.Report) (int64, error) {
	if report == nil {
		return 0, fmt.Errorf("no report to save")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	started := report.StartedAt
	if started.IsZero() {
		started = time.Now()
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (started_at, input_file, n_records, dims, backend, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		started.UTC().Format(time.RFC3339Nano), report.InputFile, report.Records, report.Dims,
		report.Backend, report.Duration.Milliseconds(),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_results (run_id, position, algorithm, params, n_clusters, n_outliers,
		 n_customers_union, avg_customers, duration_ms) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing result insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range report.Results {
		if _, err := stmt.ExecContext(ctx, id, i, string(r.Algorithm), r.Params, r.NClusters, r.NOutliers,
			r.NIdentitiesUnion, r.AvgIdentitiesPerCluster, r.Duration.Milliseconds()); err != nil {
			return 0, fmt.Errorf("inserting result %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing run: %w", err)
	}
	return id, nil
}

// ListRuns returns stored runs, newest first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT r.id, r.started_at, r.input_file, r.n_records, r.dims, r.backend, r.duration_ms,
		(SELECT COUNT(*) FROM run_results rr WHERE rr.run_id = r.id)
		FROM runs r ORDER BY r.id DESC`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run        Run
			startedAt  string
			durationMs int64
		)
		if err := rows.Scan(&run.ID, &startedAt, &run.InputFile, &run.Records, &run.Dims,
			&run.Backend, &durationMs, &run.Results); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		run.StartedAt = parseTime(startedAt)
		run.Duration = time.Duration(durationMs) * time.Millisecond
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// LoadReport rebuilds the report of run id with rows in their original order
func (s *Store) LoadReport(ctx context.Context, id int64) (*sweep.Report, error) {
	var (
		startedAt  string
		durationMs int64
		report     sweep.Report
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT started_at, input_file, n_records, dims, backend, duration_ms FROM runs WHERE id = ?`, id,
	).Scan(&startedAt, &report.InputFile, &report.Records, &report.Dims, &report.Backend, &durationMs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %d: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading run %d: %w", id, err)
	}
	report.StartedAt = parseTime(startedAt)
	report.Duration = time.Duration(durationMs) * time.Millisecond

	rows, err := s.db.QueryContext(ctx,
		`SELECT algorithm, params, n_clusters, n_outliers, n_customers_union, avg_customers, duration_ms
		 FROM run_results WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("loading results of run %d: %w", id, err)
	}
	defer rows.Close()

	report.Results = []sweep.RunResult{}
	for rows.Next() {
		var (
			algorithm string
			r         sweep.RunResult
			ms        int64
			summary   stats.Summary
		)
		if err := rows.Scan(&algorithm, &r.Params, &summary.NClusters, &summary.NOutliers,
			&summary.NIdentitiesUnion, &summary.AvgIdentitiesPerCluster, &ms); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		r.Algorithm = cluster.Algorithm(algorithm)
		r.Summary = summary
		r.Duration = time.Duration(ms) * time.Millisecond
		report.Results = append(report.Results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &report, nil
}

// DeleteRun removes a run and its rows
func (s *Store) DeleteRun(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting run %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("run %d: %w", id, ErrRunNotFound)
	}
	return nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
