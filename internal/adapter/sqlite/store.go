package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vertextoedge/reliable-downloader/internal/domain"
	"github.com/vertextoedge/reliable-downloader/internal/port"
)

// Store implements port.Journal using SQLite
type Store struct {
	db *sql.DB
}

// Ensure Store implements port.Journal
var _ port.Journal = (*Store)(nil)

// Open opens a connection to the SQLite database
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database dir: %w", err)
		}
	}

	// Open database with WAL mode and busy timeout
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One writer is all a single download needs
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	store := &Store{db: db}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// migrate creates or updates the database schema.
// Timestamps are stored as unix nanoseconds.
func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS attempts (
			id TEXT PRIMARY KEY,
			url TEXT NOT NULL,
			local_path TEXT NOT NULL,
			mode TEXT NOT NULL,
			from_byte INTEGER NOT NULL DEFAULT 0,
			expected_size INTEGER NOT NULL DEFAULT 0,
			bytes_written INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'in_progress',
			last_error TEXT,
			started_at INTEGER NOT NULL,
			finished_at INTEGER
		)`,

		`CREATE TABLE IF NOT EXISTS verifications (
			id TEXT PRIMARY KEY,
			local_path TEXT NOT NULL,
			expected_hash TEXT NOT NULL,
			actual_hash TEXT NOT NULL,
			ok BOOLEAN NOT NULL,
			verified_at INTEGER NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_attempts_started_at ON attempts(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_status ON attempts(status)`,
		`CREATE INDEX IF NOT EXISTS idx_verifications_path ON verifications(local_path, verified_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, migration)
		}
	}

	return nil
}

// PruneBefore removes attempts and verifications older than cutoff
func (s *Store) PruneBefore(cutoff time.Time) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	ts := toUnix(cutoff)

	res, err := tx.Exec("DELETE FROM attempts WHERE started_at < ? AND finished_at IS NOT NULL", ts)
	if err != nil {
		return 0, err
	}
	attempts, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	res, err = tx.Exec("DELETE FROM verifications WHERE verified_at < ?", ts)
	if err != nil {
		return 0, err
	}
	verifications, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	return int(attempts + verifications), nil
}

// Stats returns journal statistics
func (s *Store) Stats() (*domain.JournalStats, error) {
	stats := &domain.JournalStats{}

	rows, err := s.db.Query("SELECT status, COUNT(*) FROM attempts GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}

		stats.Attempts += count
		switch status {
		case domain.AttemptStatusCompleted:
			stats.Completed = count
		case domain.AttemptStatusFailed, domain.AttemptStatusCancelled, domain.AttemptStatusTimedOut:
			stats.Failed += count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = s.db.QueryRow(
		"SELECT COUNT(*), COALESCE(SUM(CASE WHEN ok THEN 0 ELSE 1 END), 0) FROM verifications",
	).Scan(&stats.Verifications, &stats.FailedVerifying)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

func toUnix(t time.Time) int64 {
	return t.UnixNano()
}

func fromUnix(ns int64) time.Time {
	return time.Unix(0, ns)
}
