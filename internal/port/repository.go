package port

import (
	"time"

	"github.com/vertextoedge/reliable-downloader/internal/domain"
)

// AttemptRepository journals download invocations
type AttemptRepository interface {
	// CreateAttempt stores a new in-progress attempt and assigns its ID
	CreateAttempt(attempt *domain.Attempt) error

	// FinishAttempt stores the terminal state of an attempt
	FinishAttempt(attempt *domain.Attempt) error

	// GetAttempt retrieves an attempt by ID
	// Returns nil if it does not exist
	GetAttempt(id string) (*domain.Attempt, error)

	// RecentAttempts returns the newest attempts first
	RecentAttempts(limit int) ([]*domain.Attempt, error)
}

// VerificationRepository journals integrity checks
type VerificationRepository interface {
	// RecordVerification stores the result of an integrity check
	RecordVerification(v *domain.Verification) error

	// LastVerification returns the newest verification for a path
	// Returns nil if the path was never verified
	LastVerification(localPath string) (*domain.Verification, error)
}

// Journal is the complete download journal
type Journal interface {
	AttemptRepository
	VerificationRepository

	// PruneBefore removes journal rows older than cutoff
	PruneBefore(cutoff time.Time) (int, error)

	// Stats summarises the journal
	Stats() (*domain.JournalStats, error)

	// Close releases the underlying storage
	Close() error
}
