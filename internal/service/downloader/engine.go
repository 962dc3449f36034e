package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/vertextoedge/reliable-downloader/internal/domain"
	"github.com/vertextoedge/reliable-downloader/internal/port"
	"github.com/vertextoedge/reliable-downloader/internal/service/policy"
	"go.uber.org/zap"
)

// Engine downloads a single remote file into a local path, resuming a
// partial local copy when one exists.
type Engine struct {
	transport  port.Transport
	fs         port.FileSystem
	reference  port.ReferenceProvider
	policy     policy.Policy
	attempts   port.AttemptRepository
	space      port.SpaceChecker
	logger     *zap.Logger
	bufferSize int
	now        func() time.Time
}

// Option configures an Engine
type Option func(*Engine)

// WithClock replaces the clock used for ETA calculation
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithJournal records every download in attempts
func WithJournal(attempts port.AttemptRepository) Option {
	return func(e *Engine) {
		e.attempts = attempts
	}
}

// WithSpaceChecker refuses to start a download the volume cannot hold
func WithSpaceChecker(space port.SpaceChecker) Option {
	return func(e *Engine) {
		e.space = space
	}
}

// New creates a new Engine
func New(
	cfg domain.PolicyConfig,
	transport port.Transport,
	fs port.FileSystem,
	reference port.ReferenceProvider,
	pol policy.Policy,
	logger *zap.Logger,
	opts ...Option,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	bufferSize := cfg.BufferSizeBytes
	if bufferSize <= 0 {
		bufferSize = domain.DefaultPolicyConfig().BufferSizeBytes
	}

	e := &Engine{
		transport:  transport,
		fs:         fs,
		reference:  reference,
		policy:     pol,
		logger:     logger,
		bufferSize: bufferSize,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Download fetches target and reports progress to sink. It returns true only
// when new bytes were downloaded and the stream completed. A file that is
// already complete, and every failure, yield false; the reason is logged.
func (e *Engine) Download(ctx context.Context, target domain.DownloadTarget, sink port.ProgressSink) bool {
	if err := target.Validate(); err != nil {
		e.logger.Error("invalid download target", zap.Error(err))
		return false
	}
	if sink == nil {
		sink = port.ProgressFunc(func(domain.FileProgress) {})
	}

	ref := e.reference.Reference()
	logger := e.logger.With(zap.String("url", target.URL), zap.String("path", target.LocalPath))

	decision, err := e.decide(target, ref)
	if err != nil {
		logger.Error("failed to inspect local file", zap.Error(err))
		return false
	}

	attempt := e.startAttempt(target, ref, decision)

	if decision.Mode == domain.ModeSkip {
		logger.Info("file already downloaded", zap.Int64("bytes", decision.FromByte))
		e.finishAttempt(attempt, decision, domain.AttemptStatusSkipped, 0, nil)
		return false
	}

	if err := e.checkSpace(target, ref, decision); err != nil {
		logger.Error("not enough disk space for download", zap.Error(err))
		e.finishAttempt(attempt, decision, domain.AttemptStatusFailed, 0, err)
		return false
	}

	st := &runState{decision: decision}
	ok, err := e.policy.Execute(ctx, func(ctx context.Context) (bool, error) {
		return e.fetch(ctx, target, ref, st, sink, logger)
	})

	st.close()

	status, cause := st.outcome(ctx, ok, err)
	e.finishAttempt(attempt, st.currentDecision(), status, st.written(), cause)

	if err != nil {
		logger.Error("download failed", zap.Error(err))
		return false
	}
	return ok
}

// decide inspects the local file and applies the resume rule
func (e *Engine) decide(target domain.DownloadTarget, ref domain.ReferenceInfo) (domain.Decision, error) {
	size, exists, err := e.fs.Stat(target.LocalPath)
	if err != nil {
		return domain.Decision{}, err
	}
	return domain.Decide(exists, size, ref), nil
}

// checkSpace fails when the bytes still missing exceed the free space.
// Without a known reference size there is nothing to compare.
func (e *Engine) checkSpace(target domain.DownloadTarget, ref domain.ReferenceInfo, decision domain.Decision) error {
	if e.space == nil || !ref.Known {
		return nil
	}

	need := ref.ExpectedSize - decision.FromByte
	if need <= 0 {
		return nil
	}

	free, err := e.space.FreeSpace(target.LocalPath)
	if err != nil {
		// An unreadable volume is left for the write itself to report
		e.logger.Warn("failed to check free space", zap.String("path", target.LocalPath), zap.Error(err))
		return nil
	}
	if uint64(need) > free {
		return fmt.Errorf("%w: need %s, have %s", domain.ErrInsufficientSpace,
			humanize.IBytes(uint64(need)), humanize.IBytes(free))
	}
	return nil
}

// fetch is one attempt under the resilience policy. The decision is taken
// again so a retry resumes from whatever the previous attempt wrote.
func (e *Engine) fetch(
	ctx context.Context,
	target domain.DownloadTarget,
	ref domain.ReferenceInfo,
	st *runState,
	sink port.ProgressSink,
	logger *zap.Logger,
) (bool, error) {
	decision, err := e.decide(target, ref)
	if err != nil {
		return false, fmt.Errorf("failed to inspect local file: %w", err)
	}
	st.setDecision(decision)

	var resp *port.Response
	switch decision.Mode {
	case domain.ModeSkip:
		// A previous attempt already completed the file
		logger.Info("file already downloaded", zap.Int64("bytes", decision.FromByte))
		return true, nil
	case domain.ModeResume:
		if decision.Oversized {
			logger.Warn("local file is larger than expected, resuming anyway",
				zap.Int64("from_byte", decision.FromByte),
				zap.Int64("expected_size", ref.ExpectedSize))
		} else {
			logger.Info("resuming download", zap.Int64("from_byte", decision.FromByte))
		}
		resp, err = e.transport.FetchRange(ctx, target.URL, decision.FromByte, -1)
	default:
		logger.Info("starting download")
		resp, err = e.transport.FetchFull(ctx, target.URL)
	}
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			// Nothing was sent; another attempt would fail the same way
			return false, err
		}
		return false, domain.NewTransportError(http.MethodGet, target.URL, err)
	}
	defer resp.Close()

	if !resp.IsSuccess() {
		logger.Error("unexpected response status",
			zap.Int("status_code", resp.StatusCode),
			zap.String("status", resp.Status))
		return false, domain.NewStatusError(target.URL, resp.StatusCode, resp.Status)
	}

	if !resp.HasContentLength() {
		logger.Warn("response has no content length, cannot track progress")
		st.markMissingLength()
		return false, nil
	}

	from := decision.FromByte
	resume := decision.Mode == domain.ModeResume
	if resume && resp.StatusCode != http.StatusPartialContent {
		logger.Warn("server ignored range request, restarting from zero",
			zap.Int("status_code", resp.StatusCode))
		resume = false
		from = 0
	}

	var w io.WriteCloser
	if resume {
		w, err = e.fs.OpenAppend(target.LocalPath)
	} else {
		w, err = e.fs.Create(target.LocalPath)
	}
	if err != nil {
		return false, fmt.Errorf("failed to open local file: %w", err)
	}

	streamErr := e.stream(ctx, target.URL, resp.Body, w, from, resp.ContentLength, st, sink)
	if closeErr := w.Close(); closeErr != nil && streamErr == nil {
		streamErr = fmt.Errorf("failed to close local file: %w", closeErr)
	}
	if streamErr != nil {
		return false, streamErr
	}

	logger.Info("download completed",
		zap.Int64("bytes", from+resp.ContentLength),
		zap.Int64("from_byte", from))
	return true, nil
}

// stream copies body into w in buffered chunks, reporting progress.
// Cancellation is checked before every read and every write.
func (e *Engine) stream(
	ctx context.Context,
	url string,
	body io.Reader,
	w io.Writer,
	from, contentLength int64,
	st *runState,
	sink port.ProgressSink,
) error {
	tracker := newProgressTracker(from, from+contentLength, e.now)
	buf := make([]byte, e.bufferSize)
	var streamed int64

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, readErr := body.Read(buf)
		if n > 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, err := w.Write(buf[:n]); err != nil {
				return fmt.Errorf("failed to write local file: %w", err)
			}
			streamed += int64(n)
			st.addWritten(int64(n))

			if progress, due := tracker.advance(int64(n)); due {
				st.report(sink, progress)
			}
		}

		if errors.Is(readErr, io.EOF) || (n == 0 && readErr == nil) {
			break
		}
		if readErr != nil {
			if err := ctx.Err(); err != nil {
				return err
			}
			return domain.NewTransportError("read", url, readErr)
		}
	}

	if streamed < contentLength {
		return domain.NewTransportError("read", url,
			fmt.Errorf("%w: got %d of %d bytes", io.ErrUnexpectedEOF, streamed, contentLength))
	}
	return nil
}

// runState is shared between Download and the attempts it runs. Attempts
// may outlive a timed out Execute, so every access is locked.
type runState struct {
	mu            sync.Mutex
	decision      domain.Decision
	bytesWritten  int64
	missingLength bool
	closed        bool
}

// close marks the run as returned to the caller. Attempts still running
// after that stop reporting progress.
func (s *runState) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *runState) report(sink port.ProgressSink, p domain.FileProgress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		sink.Report(p)
	}
}

func (s *runState) setDecision(d domain.Decision) {
	s.mu.Lock()
	s.decision = d
	s.missingLength = false
	s.mu.Unlock()
}

func (s *runState) currentDecision() domain.Decision {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.decision
}

func (s *runState) addWritten(n int64) {
	s.mu.Lock()
	s.bytesWritten += n
	s.mu.Unlock()
}

func (s *runState) written() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bytesWritten
}

func (s *runState) markMissingLength() {
	s.mu.Lock()
	s.missingLength = true
	s.mu.Unlock()
}

// outcome maps the policy result to a journal status
func (s *runState) outcome(ctx context.Context, ok bool, err error) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case err != nil:
		return domain.AttemptStatusFailed, err
	case ok:
		return domain.AttemptStatusCompleted, nil
	case s.missingLength:
		return domain.AttemptStatusFailed, domain.ErrMissingContentLength
	case ctx.Err() != nil:
		return domain.AttemptStatusCancelled, ctx.Err()
	default:
		return domain.AttemptStatusTimedOut, domain.ErrTimeout
	}
}
