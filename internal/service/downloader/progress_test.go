package downloader

import (
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestProgressTracker_ThrottlesToWholePercents(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	tracker := newProgressTracker(0, 1000, clock.Now)

	reports := 0
	for i := 0; i < 1000; i++ {
		if _, due := tracker.advance(1); due {
			reports++
		}
	}
	if reports != 100 {
		t.Errorf("reports = %d, want 100", reports)
	}
}

func TestProgressTracker_ETA(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	tracker := newProgressTracker(0, 1000, clock.Now)

	clock.Advance(time.Second)
	p, due := tracker.advance(250)
	if !due {
		t.Fatal("advance(250) should report")
	}
	if *p.Percent != 25 || p.BytesDownloaded != 250 || *p.TotalSize != 1000 {
		t.Errorf("progress = %v%% %d/%d", *p.Percent, p.BytesDownloaded, *p.TotalSize)
	}
	if p.EstimatedRemaining == nil || *p.EstimatedRemaining != 3*time.Second {
		t.Errorf("ETA = %v, want 3s", p.EstimatedRemaining)
	}
}

func TestProgressTracker_NoETAWithoutElapsedTime(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	tracker := newProgressTracker(0, 100, clock.Now)

	p, due := tracker.advance(50)
	if !due {
		t.Fatal("advance(50) should report")
	}
	if p.EstimatedRemaining != nil {
		t.Errorf("ETA = %v, want nil", *p.EstimatedRemaining)
	}
}

func TestProgressTracker_Resumed(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	tracker := newProgressTracker(500, 1000, clock.Now)

	// 50.5% has not advanced a whole percent past the resume point
	if _, due := tracker.advance(5); due {
		t.Error("advance(5) should not report")
	}

	clock.Advance(2 * time.Second)
	p, due := tracker.advance(5)
	if !due {
		t.Fatal("advance to 51% should report")
	}
	if p.BytesDownloaded != 510 {
		t.Errorf("bytesDownloaded = %d, want 510", p.BytesDownloaded)
	}
	// 10 bytes in 2s leaves 490 bytes for 98s
	if p.EstimatedRemaining == nil || *p.EstimatedRemaining != 98*time.Second {
		t.Errorf("ETA = %v, want 98s", p.EstimatedRemaining)
	}
}

func TestProgressTracker_UnknownTotal(t *testing.T) {
	tracker := newProgressTracker(0, 0, time.Now)
	if _, due := tracker.advance(10); due {
		t.Error("tracker with zero total should not report")
	}
}
