package ratelimiter

import (
	"sync"
	"testing"
	"time"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Unix(1700000000, 0)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestLimiter_Allow(t *testing.T) {
	tests := []struct {
		name     string
		interval time.Duration
		delays   []time.Duration // clock advance before each Allow() call
		want     []bool
	}{
		{
			name:     "first call always allowed",
			interval: time.Second,
			delays:   []time.Duration{0},
			want:     []bool{true},
		},
		{
			name:     "second call immediately after is blocked",
			interval: time.Second,
			delays:   []time.Duration{0, 0},
			want:     []bool{true, false},
		},
		{
			name:     "call after interval is allowed",
			interval: time.Second,
			delays:   []time.Duration{0, time.Second},
			want:     []bool{true, true},
		},
		{
			name:     "interval restarts from the last allowed call",
			interval: time.Second,
			delays:   []time.Duration{0, 600 * time.Millisecond, 600 * time.Millisecond, 600 * time.Millisecond},
			want:     []bool{true, false, true, false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newManualClock()
			limiter := New(tt.interval, WithClock(clock.Now))

			for i, delay := range tt.delays {
				clock.Advance(delay)

				allowed, wait := limiter.Allow()
				if allowed != tt.want[i] {
					t.Errorf("call %d: Allow() = %v, want %v", i, allowed, tt.want[i])
				}
				if !allowed && wait <= 0 {
					t.Errorf("call %d: blocked but wait = %v, want > 0", i, wait)
				}
				if allowed && wait != 0 {
					t.Errorf("call %d: allowed but wait = %v, want 0", i, wait)
				}
			}
		})
	}
}

func TestLimiter_WaitTime(t *testing.T) {
	clock := newManualClock()
	limiter := New(time.Second, WithClock(clock.Now))

	limiter.Allow()
	clock.Advance(300 * time.Millisecond)

	if _, wait := limiter.Allow(); wait != 700*time.Millisecond {
		t.Errorf("wait = %v, want 700ms", wait)
	}
}

func TestLimiter_MarkAndReset(t *testing.T) {
	clock := newManualClock()
	limiter := New(time.Second, WithClock(clock.Now))

	limiter.Mark()
	if allowed, _ := limiter.Allow(); allowed {
		t.Fatal("call right after Mark() should be blocked")
	}

	limiter.Reset()
	if allowed, _ := limiter.Allow(); !allowed {
		t.Fatal("call after Reset() should be allowed")
	}
}

func TestLimiter_Interval(t *testing.T) {
	if got := New(42 * time.Second).Interval(); got != 42*time.Second {
		t.Errorf("Interval() = %v, want 42s", got)
	}
}

func TestLimiter_Concurrent(t *testing.T) {
	limiter := New(time.Hour)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowedCount := 0

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if allowed, _ := limiter.Allow(); allowed {
				mu.Lock()
				allowedCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowedCount != 1 {
		t.Errorf("concurrent calls: %d allowed, want exactly 1", allowedCount)
	}
}
