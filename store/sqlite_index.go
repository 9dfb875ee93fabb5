package store

import (
	"database/sql"
	"fmt"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/kazkozdev/promptstudio/core"
)

// sqliteIndex is a secondary index over prompt_id/metric/timestamp that
// answers RecentMean queries; DetectRegression and GetTrend read
// index.json and do not consult it. index.json remains the source of
// truth (spec.md §4.3); this index is derived and can be rebuilt from
// it at any time via Rebuild.
type sqliteIndex struct {
	db *sql.DB
}

// NewSQLiteIndex opens (and migrates) the accelerator database at
// dir/index.sqlite.
func NewSQLiteIndex(dir string) (*sqliteIndex, error) {
	path := filepath.Join(dir, "index.sqlite")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite index: %w", err)
	}
	if err := migrateSQLiteIndex(db); err != nil {
		db.Close()
		return nil, err
	}
	return &sqliteIndex{db: db}, nil
}

func migrateSQLiteIndex(db *sql.DB) error {
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS run_metrics (
	run_id     TEXT NOT NULL,
	prompt_id  TEXT NOT NULL,
	metric     TEXT NOT NULL,
	value      REAL NOT NULL,
	timestamp  TEXT NOT NULL,
	PRIMARY KEY (run_id, metric)
);
CREATE INDEX IF NOT EXISTS idx_run_metrics_prompt_metric
	ON run_metrics (prompt_id, metric, timestamp);
`)
	if err != nil {
		return fmt.Errorf("store: migrate sqlite index: %w", err)
	}
	return nil
}

// Index records one EvaluationRun's metrics for accelerated lookups.
// Called best-effort from SaveEvaluation; failures here never fail the
// write, since index.json already captured the run durably.
func (idx *sqliteIndex) Index(run core.EvaluationRun) error {
	tx, err := idx.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
INSERT OR REPLACE INTO run_metrics (run_id, prompt_id, metric, value, timestamp)
VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	ts := run.Timestamp.UTC().Format("2006-01-02T15:04:05.000000000Z")
	for metric, value := range run.Metrics {
		if _, err := stmt.Exec(run.RunID, run.PromptID, metric, value, ts); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RecentMean returns the arithmetic mean of metric's value across the
// most recent limit runs for promptID, and how many rows contributed.
func (idx *sqliteIndex) RecentMean(promptID, metric string, limit int) (mean float64, n int, err error) {
	rows, err := idx.db.Query(`
SELECT value FROM run_metrics
WHERE prompt_id = ? AND metric = ?
ORDER BY timestamp DESC
LIMIT ?`, promptID, metric, limit)
	if err != nil {
		return 0, 0, err
	}
	defer rows.Close()

	var sum float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return 0, 0, err
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0, 0, nil
	}
	return sum / float64(n), n, rows.Err()
}

// Rebuild drops and repopulates the index from a store's full history,
// used to recover from a corrupted or stale index.sqlite without
// touching index.json.
func (idx *sqliteIndex) Rebuild(s *Store) error {
	if _, err := idx.db.Exec(`DELETE FROM run_metrics`); err != nil {
		return err
	}
	entries, err := s.readIndex()
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.Tombstone {
			continue
		}
		run, err := s.loadRun(e.Path)
		if err != nil {
			continue
		}
		if err := idx.Index(run); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database handle.
func (idx *sqliteIndex) Close() error { return idx.db.Close() }
