package progresslog

import (
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/vertextoedge/reliable-downloader/internal/domain"
	"github.com/vertextoedge/reliable-downloader/internal/port"
	"github.com/vertextoedge/reliable-downloader/internal/util/ratelimiter"
)

// Sink logs progress ticks, at most one line per interval. The tick that
// reaches 100% is always logged.
type Sink struct {
	logger  *zap.Logger
	limiter *ratelimiter.Limiter
}

// Ensure Sink implements port.ProgressSink
var _ port.ProgressSink = (*Sink)(nil)

// New creates a progress sink logging through logger
func New(logger *zap.Logger, interval time.Duration, opts ...ratelimiter.Option) *Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{
		logger:  logger,
		limiter: ratelimiter.New(interval, opts...),
	}
}

// Report logs p unless the previous line was too recent
func (s *Sink) Report(p domain.FileProgress) {
	done := p.Percent != nil && *p.Percent >= 100
	if done {
		s.limiter.Mark()
	} else if allowed, _ := s.limiter.Allow(); !allowed {
		return
	}

	s.logger.Info("download progress", Fields(p)...)
}

// Fields renders a progress tick as log fields with human readable sizes
func Fields(p domain.FileProgress) []zap.Field {
	fields := []zap.Field{
		zap.Int64("bytes", p.BytesDownloaded),
		zap.String("downloaded", humanize.IBytes(uint64(p.BytesDownloaded))),
	}
	if p.TotalSize != nil {
		fields = append(fields, zap.String("total", humanize.IBytes(uint64(*p.TotalSize))))
	}
	if p.Percent != nil {
		fields = append(fields, zap.String("percent", humanize.FtoaWithDigits(*p.Percent, 1)+"%"))
	}
	if p.EstimatedRemaining != nil {
		fields = append(fields, zap.Duration("eta", p.EstimatedRemaining.Round(time.Second)))
	}
	return fields
}
