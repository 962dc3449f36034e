package downloader

import (
	"time"

	"github.com/vertextoedge/reliable-downloader/internal/domain"
)

// progressTracker turns streamed byte counts into throttled progress ticks.
// A tick is emitted only when the whole percent has advanced by at least one
// since the last tick.
type progressTracker struct {
	startBytes   int64
	totalSize    int64
	downloaded   int64
	lastReported int
	startedAt    time.Time
	now          func() time.Time
}

// newProgressTracker starts tracking a stream that begins at byte from of a
// resource of totalSize bytes
func newProgressTracker(from, totalSize int64, now func() time.Time) *progressTracker {
	t := &progressTracker{
		startBytes: from,
		totalSize:  totalSize,
		downloaded: from,
		startedAt:  now(),
		now:        now,
	}
	if totalSize > 0 {
		t.lastReported = int(from * 100 / totalSize)
	}
	return t
}

// advance records n more bytes and returns a tick if one is due
func (t *progressTracker) advance(n int64) (domain.FileProgress, bool) {
	t.downloaded += n
	if t.totalSize <= 0 {
		return domain.FileProgress{}, false
	}

	percent := float64(t.downloaded*100) / float64(t.totalSize)
	if percent > 100 {
		percent = 100
	}
	if int(percent)-t.lastReported < 1 {
		return domain.FileProgress{}, false
	}
	t.lastReported = int(percent)

	return t.snapshot(percent), true
}

func (t *progressTracker) snapshot(percent float64) domain.FileProgress {
	total := t.totalSize
	progress := domain.FileProgress{
		TotalSize:       &total,
		BytesDownloaded: t.downloaded,
		Percent:         &percent,
	}

	// Throughput only counts bytes streamed in this attempt
	streamed := t.downloaded - t.startBytes
	elapsed := t.now().Sub(t.startedAt)
	if streamed > 0 && elapsed > 0 {
		remaining := t.totalSize - t.downloaded
		if remaining < 0 {
			remaining = 0
		}
		perByte := float64(elapsed) / float64(streamed)
		eta := time.Duration(perByte * float64(remaining))
		progress.EstimatedRemaining = &eta
	}

	return progress
}
