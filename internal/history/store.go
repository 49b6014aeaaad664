// Package history keeps a SQLite record of past runs and their jobs.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"grimm.is/vecmatrix/internal/builder"
)

// Run is one recorded matrix run.
type Run struct {
	ID         string        `json:"id"`
	Host       string        `json:"host"`
	Started    time.Time     `json:"started"`
	Elapsed    time.Duration `json:"elapsed"`
	Jobs       int           `json:"jobs"`
	FailedJobs int           `json:"failed_jobs"`
	Errors     int           `json:"errors"`
	Warnings   int           `json:"warnings"`
	LogDir     string        `json:"log_dir"`
}

// Job is one recorded configuration outcome.
type Job struct {
	RunID       string        `json:"run_id"`
	Slug        string        `json:"slug"`
	Family      string        `json:"family"`
	Toolchain   string        `json:"toolchain"`
	Opt         string        `json:"opt"`
	Arch        string        `json:"arch"`
	Std         string        `json:"std"`
	Sandbox     bool          `json:"sandbox"`
	Emulated    bool          `json:"emulated"`
	BuildOK     bool          `json:"build_ok"`
	FailedTests int           `json:"failed_tests"`
	Duration    time.Duration `json:"duration"`
}

// JobFromResult flattens a runner result into a history row.
func JobFromResult(runID string, res builder.JobResult) Job {
	c := res.Config
	return Job{
		RunID:       runID,
		Slug:        c.Slug(),
		Family:      c.Family,
		Toolchain:   c.Toolchain,
		Opt:         c.OptFlags,
		Arch:        c.ArchFlags,
		Std:         c.StdFlags,
		Sandbox:     c.Sandbox,
		Emulated:    c.Emulated(),
		BuildOK:     res.BuildOK,
		FailedTests: res.FailedTests(),
		Duration:    res.Duration,
	}
}

// Failed reports whether the job failed to build or had a failing test.
func (j Job) Failed() bool {
	return !j.BuildOK || j.FailedTests > 0
}

// Store provides persistent storage for run history.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open creates or opens the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			host TEXT NOT NULL,
			started INTEGER NOT NULL,
			elapsed INTEGER NOT NULL,
			jobs INTEGER NOT NULL,
			failed_jobs INTEGER NOT NULL DEFAULT 0,
			errors INTEGER NOT NULL,
			warnings INTEGER NOT NULL,
			log_dir TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS jobs (
			run_id TEXT NOT NULL REFERENCES runs(id),
			slug TEXT NOT NULL,
			family TEXT NOT NULL,
			toolchain TEXT NOT NULL,
			opt TEXT NOT NULL,
			arch TEXT NOT NULL,
			std TEXT NOT NULL,
			sandbox INTEGER NOT NULL,
			emulated INTEGER NOT NULL,
			build_ok INTEGER NOT NULL,
			failed_tests INTEGER NOT NULL,
			duration INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started);
		CREATE INDEX IF NOT EXISTS idx_jobs_run ON jobs(run_id);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create history tables: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores a run and all its jobs in one transaction.
func (s *Store) Record(run Run, jobs []Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (id, host, started, elapsed, jobs, failed_jobs, errors, warnings, log_dir)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Host, run.Started.UnixNano(), int64(run.Elapsed), run.Jobs, run.FailedJobs, run.Errors, run.Warnings, run.LogDir)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO jobs (run_id, slug, family, toolchain, opt, arch, std, sandbox, emulated, build_ok, failed_tests, duration)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare job insert: %w", err)
	}
	defer stmt.Close()

	for _, j := range jobs {
		if _, err := stmt.Exec(run.ID, j.Slug, j.Family, j.Toolchain, j.Opt, j.Arch, j.Std,
			j.Sandbox, j.Emulated, j.BuildOK, j.FailedTests, int64(j.Duration)); err != nil {
			return fmt.Errorf("insert job %s: %w", j.Slug, err)
		}
	}

	return tx.Commit()
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(limit int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(`
		SELECT id, host, started, elapsed, jobs, failed_jobs, errors, warnings, log_dir
		FROM runs ORDER BY started DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, elapsed int64
		if err := rows.Scan(&r.ID, &r.Host, &started, &elapsed, &r.Jobs, &r.FailedJobs, &r.Errors, &r.Warnings, &r.LogDir); err != nil {
			return nil, err
		}
		r.Started = time.Unix(0, started)
		r.Elapsed = time.Duration(elapsed)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Jobs returns the jobs of a run ordered by slug.
func (s *Store) Jobs(runID string) ([]Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT run_id, slug, family, toolchain, opt, arch, std, sandbox, emulated, build_ok, failed_tests, duration
		FROM jobs WHERE run_id = ? ORDER BY slug
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var j Job
		var duration int64
		if err := rows.Scan(&j.RunID, &j.Slug, &j.Family, &j.Toolchain, &j.Opt, &j.Arch, &j.Std,
			&j.Sandbox, &j.Emulated, &j.BuildOK, &j.FailedTests, &duration); err != nil {
			return nil, err
		}
		j.Duration = time.Duration(duration)
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}
