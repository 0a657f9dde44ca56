// Package history persists one row per sync run in a SQLite database kept
// inside the output tree. The table is append-only; the CLI reads it back
// for the history listing and operators can query it directly with any
// sqlite client.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// FileName is the database location relative to the output root.
const FileName = ".docsync-history.db"

// RunRecord is one completed sync run.
type RunRecord struct {
	ID               string
	Start            time.Time
	Duration         time.Duration
	Outcome          string
	FilesSeen        int
	FilesTransformed int
	FilesCopied      int
	FilesSkipped     int
	FilesFailed      int
	Pages            int
	BrokenLinks      int
	ConfigWritten    bool
	Warnings         int
	Error            string // empty unless the run failed
}

// Store records and queries run history.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open creates or opens the run history database at dbPath.
// Use ":memory:" for an in-memory database (tests).
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		files_seen INTEGER NOT NULL,
		files_transformed INTEGER NOT NULL,
		files_copied INTEGER NOT NULL,
		files_skipped INTEGER NOT NULL,
		files_failed INTEGER NOT NULL,
		pages INTEGER NOT NULL,
		broken_links INTEGER NOT NULL,
		config_written INTEGER NOT NULL,
		warnings INTEGER NOT NULL,
		error TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_outcome ON runs(outcome);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordRun appends a completed run.
func (s *Store) RecordRun(ctx context.Context, rec RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	configWritten := 0
	if rec.ConfigWritten {
		configWritten = 1
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, started_at, duration_ms, outcome,
			files_seen, files_transformed, files_copied, files_skipped, files_failed,
			pages, broken_links, config_written, warnings, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Start.Unix(), rec.Duration.Milliseconds(), rec.Outcome,
		rec.FilesSeen, rec.FilesTransformed, rec.FilesCopied, rec.FilesSkipped, rec.FilesFailed,
		rec.Pages, rec.BrokenLinks, configWritten, rec.Warnings, rec.Error,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	return nil
}

// RecentRuns retrieves the newest runs, most recent first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, started_at, duration_ms, outcome,
			files_seen, files_transformed, files_copied, files_skipped, files_failed,
			pages, broken_links, config_written, warnings, error
		FROM runs ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

func scanRuns(rows *sql.Rows) ([]RunRecord, error) {
	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		var startedUnix, durationMS int64
		var configWritten int

		err := rows.Scan(&rec.ID, &startedUnix, &durationMS, &rec.Outcome,
			&rec.FilesSeen, &rec.FilesTransformed, &rec.FilesCopied, &rec.FilesSkipped, &rec.FilesFailed,
			&rec.Pages, &rec.BrokenLinks, &configWritten, &rec.Warnings, &rec.Error)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}

		rec.Start = time.Unix(startedUnix, 0)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		rec.ConfigWritten = configWritten != 0

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return records, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
