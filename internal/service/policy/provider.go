package policy

import (
	"context"
	"time"

	"github.com/vertextoedge/reliable-downloader/internal/domain"
	"go.uber.org/zap"
)

// Provider is the download resilience policy: fallback(retry(timeout(op))).
// The timeout bounds each attempt; the retry layer sees a timed out attempt
// as non-retryable and the fallback absorbs it.
type Provider struct {
	policy Policy
}

// Option configures a Provider
type Option func(*options)

type options struct {
	backoff BackoffFunc
	timeout time.Duration
}

// WithBackoff replaces the exponential retry backoff
func WithBackoff(backoff BackoffFunc) Option {
	return func(o *options) {
		o.backoff = backoff
	}
}

// WithTimeout overrides the configured per-attempt timeout
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.timeout = timeout
	}
}

// NewProvider builds the composed policy from configuration
func NewProvider(cfg domain.PolicyConfig, logger *zap.Logger, opts ...Option) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}

	o := options{
		backoff: ExponentialBackoff,
		timeout: cfg.Timeout(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	logger = logger.Named("policy")
	return &Provider{
		policy: Wrap(
			NewFallback(logger),
			NewRetry(cfg.RetryCount, o.backoff, logger),
			NewTimeout(o.timeout),
		),
	}
}

// Execute runs op under the composed policy
func (p *Provider) Execute(ctx context.Context, op Operation) (bool, error) {
	return p.policy.Execute(ctx, op)
}
