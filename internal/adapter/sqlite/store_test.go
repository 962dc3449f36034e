package sqlite

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/vertextoedge/reliable-downloader/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "journal", "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_AttemptLifecycle(t *testing.T) {
	store := openTestStore(t)

	attempt := &domain.Attempt{
		URL:          "http://example.com/file.msi",
		LocalPath:    "/tmp/file.msi",
		Mode:         domain.ModeResume,
		FromByte:     400,
		ExpectedSize: 1000,
		StartedAt:    time.Now(),
	}

	if err := store.CreateAttempt(attempt); err != nil {
		t.Fatalf("CreateAttempt() error = %v", err)
	}
	if attempt.ID == "" {
		t.Fatal("CreateAttempt() should assign an ID")
	}

	got, err := store.GetAttempt(attempt.ID)
	if err != nil {
		t.Fatalf("GetAttempt() error = %v", err)
	}
	if got.Status != domain.AttemptStatusInProgress || got.IsFinished() {
		t.Errorf("new attempt status = %s, finished = %v", got.Status, got.IsFinished())
	}
	if got.Mode != domain.ModeResume || got.FromByte != 400 || got.ExpectedSize != 1000 {
		t.Errorf("unexpected attempt: %+v", got)
	}

	attempt.Finish(domain.AttemptStatusFailed, 250, errors.New("connection reset"))
	if err := store.FinishAttempt(attempt); err != nil {
		t.Fatalf("FinishAttempt() error = %v", err)
	}

	got, err = store.GetAttempt(attempt.ID)
	if err != nil {
		t.Fatalf("GetAttempt() error = %v", err)
	}
	if got.Status != domain.AttemptStatusFailed {
		t.Errorf("Status = %s, want failed", got.Status)
	}
	if got.BytesWritten != 250 || got.LastError != "connection reset" {
		t.Errorf("BytesWritten = %d, LastError = %q", got.BytesWritten, got.LastError)
	}
	if !got.IsFinished() {
		t.Error("attempt should be finished")
	}
	if !got.StartedAt.Equal(attempt.StartedAt) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, attempt.StartedAt)
	}
}

func TestStore_GetAttemptMissing(t *testing.T) {
	store := openTestStore(t)

	got, err := store.GetAttempt("does-not-exist")
	if err != nil || got != nil {
		t.Errorf("GetAttempt() = %v, %v; want nil, nil", got, err)
	}
}

func TestStore_RecentAttempts(t *testing.T) {
	store := openTestStore(t)
	base := time.Now().Add(-time.Hour)

	for i := 0; i < 5; i++ {
		a := &domain.Attempt{
			URL:       "http://example.com/f",
			LocalPath: "/tmp/f",
			Mode:      domain.ModeFull,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.CreateAttempt(a); err != nil {
			t.Fatalf("CreateAttempt() error = %v", err)
		}
	}

	attempts, err := store.RecentAttempts(3)
	if err != nil {
		t.Fatalf("RecentAttempts() error = %v", err)
	}
	if len(attempts) != 3 {
		t.Fatalf("len = %d, want 3", len(attempts))
	}
	for i := 1; i < len(attempts); i++ {
		if attempts[i].StartedAt.After(attempts[i-1].StartedAt) {
			t.Errorf("attempts not ordered newest first at %d", i)
		}
	}
}

func TestStore_Verifications(t *testing.T) {
	store := openTestStore(t)

	got, err := store.LastVerification("/tmp/f")
	if err != nil || got != nil {
		t.Fatalf("LastVerification() on empty journal = %v, %v", got, err)
	}

	older := &domain.Verification{
		LocalPath:    "/tmp/f",
		ExpectedHash: "aa",
		ActualHash:   "bb",
		OK:           false,
		VerifiedAt:   time.Now().Add(-time.Minute),
	}
	newer := &domain.Verification{
		LocalPath:    "/tmp/f",
		ExpectedHash: "aa",
		ActualHash:   "aa",
		OK:           true,
		VerifiedAt:   time.Now(),
	}
	for _, v := range []*domain.Verification{older, newer} {
		if err := store.RecordVerification(v); err != nil {
			t.Fatalf("RecordVerification() error = %v", err)
		}
	}

	got, err = store.LastVerification("/tmp/f")
	if err != nil {
		t.Fatalf("LastVerification() error = %v", err)
	}
	if got.ID != newer.ID || !got.OK {
		t.Errorf("LastVerification() = %+v, want newest ok verification", got)
	}
}

func TestStore_StatsAndPrune(t *testing.T) {
	store := openTestStore(t)
	old := time.Now().Add(-48 * time.Hour)

	statuses := []string{
		domain.AttemptStatusCompleted,
		domain.AttemptStatusFailed,
		domain.AttemptStatusTimedOut,
		domain.AttemptStatusSkipped,
	}
	for _, status := range statuses {
		a := &domain.Attempt{URL: "u", LocalPath: "p", Mode: domain.ModeFull, StartedAt: old}
		if err := store.CreateAttempt(a); err != nil {
			t.Fatalf("CreateAttempt() error = %v", err)
		}
		a.Finish(status, 0, nil)
		if err := store.FinishAttempt(a); err != nil {
			t.Fatalf("FinishAttempt() error = %v", err)
		}
	}

	// An unfinished attempt survives pruning
	running := &domain.Attempt{URL: "u", LocalPath: "p", Mode: domain.ModeFull, StartedAt: old}
	if err := store.CreateAttempt(running); err != nil {
		t.Fatalf("CreateAttempt() error = %v", err)
	}

	store.RecordVerification(&domain.Verification{LocalPath: "p", ExpectedHash: "a", ActualHash: "b", VerifiedAt: old})

	stats, err := store.Stats()
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Attempts != 5 || stats.Completed != 1 || stats.Failed != 2 {
		t.Errorf("Stats() = %+v", stats)
	}
	if stats.Verifications != 1 || stats.FailedVerifying != 1 {
		t.Errorf("verification stats = %+v", stats)
	}

	removed, err := store.PruneBefore(time.Now().Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("PruneBefore() error = %v", err)
	}
	if removed != 5 {
		t.Errorf("PruneBefore() removed = %d, want 5", removed)
	}

	stats, _ = store.Stats()
	if stats.Attempts != 1 || stats.Verifications != 0 {
		t.Errorf("after prune Stats() = %+v", stats)
	}
}
