package ratelimiter

import (
	"sync"
	"time"
)

// Limiter lets one event through per interval and is safe for concurrent use.
type Limiter struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
	now      func() time.Time
}

// Option configures a Limiter
type Option func(*Limiter)

// WithClock replaces the wall clock
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// New creates a limiter allowing at most one event per interval.
// The first event is always allowed.
func New(interval time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		interval: interval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow reports whether an event may pass now. When it may, the event is
// recorded; otherwise the remaining wait is returned.
func (l *Limiter) Allow() (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.last.IsZero() {
		l.last = now
		return true, 0
	}

	since := now.Sub(l.last)
	if since >= l.interval {
		l.last = now
		return true, 0
	}
	return false, l.interval - since
}

// Mark records an event that bypassed Allow, restarting the interval
func (l *Limiter) Mark() {
	l.mu.Lock()
	l.last = l.now()
	l.mu.Unlock()
}

// Reset clears the limiter state, allowing the next event immediately.
func (l *Limiter) Reset() {
	l.mu.Lock()
	l.last = time.Time{}
	l.mu.Unlock()
}

// Interval returns the configured interval.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}
