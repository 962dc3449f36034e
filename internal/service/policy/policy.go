package policy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vertextoedge/reliable-downloader/internal/domain"
	"go.uber.org/zap"
)

// Operation is a unit of work guarded by a policy
type Operation func(ctx context.Context) (bool, error)

// Policy runs an operation under some resilience behaviour
type Policy interface {
	Execute(ctx context.Context, op Operation) (bool, error)
}

// BackoffFunc returns how long to wait before retry number attempt (1-based)
type BackoffFunc func(attempt int) time.Duration

// ExponentialBackoff waits 2^attempt seconds
func ExponentialBackoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}

// Timeout aborts an operation that runs longer than its limit.
//
// The operation runs in its own goroutine with a derived context. When the
// limit expires Execute returns immediately with domain.ErrTimeout, even if
// the operation has not yet observed its cancelled context. Such an operation
// keeps running, and keeps whatever it holds open, until its blocking call
// returns, so it must tolerate outliving Execute.
type Timeout struct {
	limit time.Duration
}

// NewTimeout creates a timeout layer
func NewTimeout(limit time.Duration) *Timeout {
	return &Timeout{limit: limit}
}

// Execute runs op bounded by the timeout
func (t *Timeout) Execute(ctx context.Context, op Operation) (bool, error) {
	opCtx, cancel := context.WithTimeout(ctx, t.limit)
	defer cancel()

	type result struct {
		ok  bool
		err error
	}
	done := make(chan result, 1)
	go func() {
		ok, err := op(opCtx)
		done <- result{ok: ok, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil && ctx.Err() == nil && errors.Is(opCtx.Err(), context.DeadlineExceeded) {
			return false, fmt.Errorf("%w after %s: %v", domain.ErrTimeout, t.limit, r.err)
		}
		return r.ok, r.err
	case <-opCtx.Done():
		if err := ctx.Err(); err != nil {
			return false, err
		}
		return false, fmt.Errorf("%w after %s", domain.ErrTimeout, t.limit)
	}
}

// Retry re-runs an operation that failed with a network-class error
type Retry struct {
	count   int
	backoff BackoffFunc
	logger  *zap.Logger
}

// NewRetry creates a retry layer allowing count retries after the first try
func NewRetry(count int, backoff BackoffFunc, logger *zap.Logger) *Retry {
	if backoff == nil {
		backoff = ExponentialBackoff
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retry{count: count, backoff: backoff, logger: logger}
}

// Execute runs op, retrying network failures with backoff
func (r *Retry) Execute(ctx context.Context, op Operation) (bool, error) {
	for attempt := 0; ; attempt++ {
		ok, err := op(ctx)
		if err == nil || !domain.IsNetworkError(err) || attempt >= r.count {
			return ok, err
		}

		wait := r.backoff(attempt + 1)
		r.logger.Warn("network failure, retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", r.count),
			zap.Duration("backoff", wait),
			zap.Error(err))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false, ctx.Err()
		case <-timer.C:
		}
	}
}

// Fallback turns a timeout or cancellation into a plain false result
type Fallback struct {
	logger *zap.Logger
}

// NewFallback creates a fallback layer
func NewFallback(logger *zap.Logger) *Fallback {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fallback{logger: logger}
}

// Execute runs op and absorbs timeouts and cancellation
func (f *Fallback) Execute(ctx context.Context, op Operation) (bool, error) {
	ok, err := op(ctx)
	if err == nil || !domain.IsCancellation(err) {
		return ok, err
	}

	if errors.Is(err, domain.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		f.logger.Error("operation timed out", zap.Error(err))
	} else {
		f.logger.Error("operation cancelled", zap.Error(err))
	}
	return false, nil
}

// Wrap composes policies outer to inner: Wrap(a, b, c) runs a(b(c(op))).
func Wrap(policies ...Policy) Policy {
	return chain(policies)
}

type chain []Policy

func (c chain) Execute(ctx context.Context, op Operation) (bool, error) {
	if len(c) == 0 {
		return op(ctx)
	}
	return c[0].Execute(ctx, func(ctx context.Context) (bool, error) {
		return c[1:].Execute(ctx, op)
	})
}
