package sqlite

import (
	"database/sql"

	"github.com/google/uuid"

	"github.com/vertextoedge/reliable-downloader/internal/domain"
)

const attemptColumns = `
	id, url, local_path, mode, from_byte, expected_size, bytes_written,
	status, last_error, started_at, finished_at`

// CreateAttempt stores a new attempt and assigns its ID
func (s *Store) CreateAttempt(attempt *domain.Attempt) error {
	if attempt.ID == "" {
		attempt.ID = uuid.NewString()
	}
	if attempt.Status == "" {
		attempt.Status = domain.AttemptStatusInProgress
	}

	query := `
		INSERT INTO attempts (
			id, url, local_path, mode, from_byte, expected_size, status, started_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		attempt.ID, attempt.URL, attempt.LocalPath, string(attempt.Mode),
		attempt.FromByte, attempt.ExpectedSize, attempt.Status, toUnix(attempt.StartedAt))
	return err
}

// FinishAttempt stores the terminal state of an attempt
func (s *Store) FinishAttempt(attempt *domain.Attempt) error {
	query := `
		UPDATE attempts
		SET mode = ?, from_byte = ?, bytes_written = ?, status = ?,
			last_error = ?, finished_at = ?
		WHERE id = ?
	`

	var lastError sql.NullString
	var finishedAt sql.NullInt64

	if attempt.LastError != "" {
		lastError = sql.NullString{String: attempt.LastError, Valid: true}
	}
	if attempt.FinishedAt != nil {
		finishedAt = sql.NullInt64{Int64: toUnix(*attempt.FinishedAt), Valid: true}
	}

	_, err := s.db.Exec(query,
		string(attempt.Mode), attempt.FromByte, attempt.BytesWritten, attempt.Status,
		lastError, finishedAt, attempt.ID)
	return err
}

// GetAttempt retrieves an attempt by ID
func (s *Store) GetAttempt(id string) (*domain.Attempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM attempts WHERE id = ?`

	attempt, err := scanAttempt(s.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return attempt, err
}

// RecentAttempts returns the newest attempts first
func (s *Store) RecentAttempts(limit int) ([]*domain.Attempt, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT ` + attemptColumns + ` FROM attempts ORDER BY started_at DESC LIMIT ?`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []*domain.Attempt
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, attempt)
	}

	return attempts, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

// scanAttempt scans a single attempt row
func scanAttempt(row rowScanner) (*domain.Attempt, error) {
	attempt := &domain.Attempt{}
	var mode string
	var lastError sql.NullString
	var startedAt int64
	var finishedAt sql.NullInt64

	err := row.Scan(
		&attempt.ID, &attempt.URL, &attempt.LocalPath, &mode,
		&attempt.FromByte, &attempt.ExpectedSize, &attempt.BytesWritten,
		&attempt.Status, &lastError, &startedAt, &finishedAt,
	)
	if err != nil {
		return nil, err
	}

	attempt.Mode = domain.FetchMode(mode)
	attempt.StartedAt = fromUnix(startedAt)
	if lastError.Valid {
		attempt.LastError = lastError.String
	}
	if finishedAt.Valid {
		t := fromUnix(finishedAt.Int64)
		attempt.FinishedAt = &t
	}

	return attempt, nil
}
