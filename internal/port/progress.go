package port

import "github.com/vertextoedge/reliable-downloader/internal/domain"

// ProgressSink receives progress ticks. Report must return promptly.
type ProgressSink interface {
	Report(progress domain.FileProgress)
}

// ProgressFunc adapts a plain function to a ProgressSink
type ProgressFunc func(progress domain.FileProgress)

// Report calls f(progress)
func (f ProgressFunc) Report(progress domain.FileProgress) {
	f(progress)
}
