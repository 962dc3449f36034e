package verifier

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/vertextoedge/reliable-downloader/internal/domain"
	"github.com/vertextoedge/reliable-downloader/internal/port"
	"go.uber.org/zap"
)

// Verifier checks a downloaded file against its expected hash
type Verifier struct {
	fs      port.FileSystem
	journal port.VerificationRepository
	logger  *zap.Logger
}

// New creates a new Verifier. journal may be nil.
func New(fs port.FileSystem, journal port.VerificationRepository, logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{
		fs:      fs,
		journal: journal,
		logger:  logger,
	}
}

// Verify hashes the file at path and compares it with expectedHash. On a
// mismatch the file is deleted and false is returned. An error means the
// check itself could not run; the file is left untouched in that case.
func (v *Verifier) Verify(ctx context.Context, path string, expectedHash []byte) (bool, error) {
	sum, size, err := v.fs.HashFile(ctx, path)
	if err != nil {
		return false, fmt.Errorf("failed to hash %s: %w", path, err)
	}

	ok := bytes.Equal(sum, expectedHash)
	v.record(path, expectedHash, sum, ok)

	if ok {
		v.logger.Info("integrity verified",
			zap.String("path", path),
			zap.Int64("bytes", size),
			zap.String("hash", hex.EncodeToString(sum)))
		return true, nil
	}

	v.logger.Warn("integrity mismatch, deleting file",
		zap.String("path", path),
		zap.String("expected_hash", hex.EncodeToString(expectedHash)),
		zap.String("actual_hash", hex.EncodeToString(sum)))

	if err := v.fs.Delete(path); err != nil {
		return false, fmt.Errorf("%w; failed to delete %s: %v", domain.ErrIntegrityMismatch, path, err)
	}
	return false, nil
}

func (v *Verifier) record(path string, expected, actual []byte, ok bool) {
	if v.journal == nil {
		return
	}

	err := v.journal.RecordVerification(&domain.Verification{
		LocalPath:    path,
		ExpectedHash: hex.EncodeToString(expected),
		ActualHash:   hex.EncodeToString(actual),
		OK:           ok,
		VerifiedAt:   time.Now(),
	})
	if err != nil {
		v.logger.Warn("failed to journal verification", zap.String("path", path), zap.Error(err))
	}
}
