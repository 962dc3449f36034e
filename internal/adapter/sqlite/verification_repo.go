package sqlite

import (
	"database/sql"

	"github.com/google/uuid"

	"github.com/vertextoedge/reliable-downloader/internal/domain"
)

// RecordVerification stores the result of an integrity check
func (s *Store) RecordVerification(v *domain.Verification) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}

	query := `
		INSERT INTO verifications (id, local_path, expected_hash, actual_hash, ok, verified_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		v.ID, v.LocalPath, v.ExpectedHash, v.ActualHash, v.OK, toUnix(v.VerifiedAt))
	return err
}

// LastVerification returns the newest verification for a path
func (s *Store) LastVerification(localPath string) (*domain.Verification, error) {
	query := `
		SELECT id, local_path, expected_hash, actual_hash, ok, verified_at
		FROM verifications
		WHERE local_path = ?
		ORDER BY verified_at DESC
		LIMIT 1
	`

	v := &domain.Verification{}
	var verifiedAt int64

	err := s.db.QueryRow(query, localPath).Scan(
		&v.ID, &v.LocalPath, &v.ExpectedHash, &v.ActualHash, &v.OK, &verifiedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	v.VerifiedAt = fromUnix(verifiedAt)
	return v, nil
}
