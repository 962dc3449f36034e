package reference

import (
	"context"
	"fmt"

	"github.com/vertextoedge/reliable-downloader/internal/domain"
	"github.com/vertextoedge/reliable-downloader/internal/port"
	"go.uber.org/zap"
)

// Provider holds the expected size and hash of the download target, read
// once from a trusted local artifact.
type Provider struct {
	info domain.ReferenceInfo
	err  error
}

// Ensure Provider implements port.ReferenceProvider
var _ port.ReferenceProvider = (*Provider)(nil)

// New reads the reference artifact at path. A missing or unreadable
// artifact leaves the reference unknown; it is logged, not returned.
func New(ctx context.Context, fs port.FileSystem, path string, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}

	if path == "" {
		logger.Warn("no reference artifact configured, local files will be fetched again")
		return unknown(fmt.Errorf("%w: no path configured", domain.ErrReferenceUnavailable))
	}

	size, exists, err := fs.Stat(path)
	if err != nil {
		logger.Error("failed to stat reference artifact", zap.String("path", path), zap.Error(err))
		return unknown(fmt.Errorf("%w: %v", domain.ErrReferenceUnavailable, err))
	}
	if !exists {
		logger.Warn("reference artifact not found", zap.String("path", path))
		return unknown(fmt.Errorf("%w: %s not found", domain.ErrReferenceUnavailable, path))
	}

	sum, hashed, err := fs.HashFile(ctx, path)
	if err != nil {
		logger.Error("failed to hash reference artifact", zap.String("path", path), zap.Error(err))
		return unknown(fmt.Errorf("%w: %v", domain.ErrReferenceUnavailable, err))
	}
	if hashed != size {
		// The artifact changed between stat and hash; trust the bytes hashed
		size = hashed
	}

	info := domain.ReferenceInfo{
		ExpectedSize: size,
		ExpectedHash: sum,
		Known:        true,
	}

	logger.Info("reference loaded",
		zap.String("path", path),
		zap.Int64("expected_size", info.ExpectedSize),
		zap.String("expected_hash", info.HashHex()))

	return &Provider{info: info}
}

func unknown(err error) *Provider {
	return &Provider{err: err}
}

// NewStatic wraps an already known reference
func NewStatic(info domain.ReferenceInfo) *Provider {
	return &Provider{info: info}
}

// Reference returns the loaded reference
func (p *Provider) Reference() domain.ReferenceInfo {
	return p.info
}

// Err explains why the reference is unknown. It is nil once loaded.
func (p *Provider) Err() error {
	return p.err
}
