package downloader

import (
	"github.com/vertextoedge/reliable-downloader/internal/domain"
	"go.uber.org/zap"
)

// startAttempt journals the start of a download. Journal failures are
// logged and never affect the download.
func (e *Engine) startAttempt(target domain.DownloadTarget, ref domain.ReferenceInfo, decision domain.Decision) *domain.Attempt {
	if e.attempts == nil {
		return nil
	}

	attempt := &domain.Attempt{
		URL:          target.URL,
		LocalPath:    target.LocalPath,
		Mode:         decision.Mode,
		FromByte:     decision.FromByte,
		ExpectedSize: ref.ExpectedSize,
		Status:       domain.AttemptStatusInProgress,
		StartedAt:    e.now(),
	}
	if err := e.attempts.CreateAttempt(attempt); err != nil {
		e.logger.Warn("failed to journal download attempt",
			zap.String("url", target.URL),
			zap.Error(err))
		return nil
	}
	return attempt
}

// finishAttempt journals the final state, including the decision of the
// last attempt run under the policy
func (e *Engine) finishAttempt(attempt *domain.Attempt, decision domain.Decision, status string, bytesWritten int64, cause error) {
	if e.attempts == nil || attempt == nil {
		return
	}

	attempt.Mode = decision.Mode
	attempt.FromByte = decision.FromByte
	attempt.Finish(status, bytesWritten, cause)
	if err := e.attempts.FinishAttempt(attempt); err != nil {
		e.logger.Warn("failed to journal download result",
			zap.String("attempt_id", attempt.ID),
			zap.String("status", status),
			zap.Error(err))
	}
}
