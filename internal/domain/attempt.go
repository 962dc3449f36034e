package domain

import "time"

// Attempt status constants
const (
	AttemptStatusInProgress = "in_progress"
	AttemptStatusSkipped    = "skipped"
	AttemptStatusCompleted  = "completed"
	AttemptStatusFailed     = "failed"
	AttemptStatusCancelled  = "cancelled"
	AttemptStatusTimedOut   = "timed_out"
)

// Attempt is one journaled Download invocation
type Attempt struct {
	ID           string
	URL          string
	LocalPath    string
	Mode         FetchMode
	FromByte     int64
	ExpectedSize int64
	BytesWritten int64

	Status    string
	LastError string

	StartedAt  time.Time
	FinishedAt *time.Time
}

// Finish records the terminal state of the attempt
func (a *Attempt) Finish(status string, bytesWritten int64, err error) {
	a.Status = status
	a.BytesWritten = bytesWritten
	if err != nil {
		a.LastError = err.Error()
	}
	now := time.Now()
	a.FinishedAt = &now
}

// IsFinished returns true once a terminal status was recorded
func (a *Attempt) IsFinished() bool {
	return a.FinishedAt != nil
}

// Duration returns how long the attempt ran, zero while in progress
func (a *Attempt) Duration() time.Duration {
	if a.FinishedAt == nil {
		return 0
	}
	return a.FinishedAt.Sub(a.StartedAt)
}

// Verification is one journaled integrity check
type Verification struct {
	ID           string
	LocalPath    string
	ExpectedHash string
	ActualHash   string
	OK           bool
	VerifiedAt   time.Time
}

// JournalStats summarises the journal contents
type JournalStats struct {
	Attempts        int
	Completed       int
	Failed          int
	Verifications   int
	FailedVerifying int
}
