package httpclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vertextoedge/reliable-downloader/internal/domain"
	"github.com/vertextoedge/reliable-downloader/internal/port"
	"go.uber.org/zap"
)

// Client issues download requests over net/http
type Client struct {
	httpClient *http.Client
	userAgent  string
	logger     *zap.Logger
}

// Ensure Client implements port.Transport
var _ port.Transport = (*Client)(nil)

// ClientConfig contains optional client configuration
type ClientConfig struct {
	SkipTLSVerify         bool
	ResponseHeaderTimeout time.Duration
	BufferSize            int
	UserAgent             string
}

// DefaultClientConfig returns default client configuration
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		ResponseHeaderTimeout: 30 * time.Second,
		BufferSize:            64 * 1024,
		UserAgent:             "reliable-downloader",
	}
}

// NewClient creates a new download client
func NewClient(cfg *ClientConfig, logger *zap.Logger) *Client {
	if cfg == nil {
		cfg = DefaultClientConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.SkipTLSVerify,
		},
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,

		// Range requests need the raw bytes
		DisableCompression: true,

		// Response header timeout (not total download timeout)
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
	}
	if cfg.BufferSize > 0 {
		transport.ReadBufferSize = cfg.BufferSize
		transport.WriteBufferSize = cfg.BufferSize
	}

	return NewClientWithHTTPClient(&http.Client{Transport: transport}, cfg.UserAgent, logger)
}

// NewClientWithHTTPClient wraps an existing http.Client. The total request
// time is bounded by the caller's context, not by the client.
func NewClientWithHTTPClient(hc *http.Client, userAgent string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient: hc,
		userAgent:  userAgent,
		logger:     logger,
	}
}

// FetchFull issues an unconditional GET
func (c *Client) FetchFull(ctx context.Context, url string) (*port.Response, error) {
	resp, err := c.do(ctx, http.MethodGet, url, "")
	if err != nil {
		c.logFailure(ctx, "error while downloading content", url, err)
		return nil, err
	}
	return resp, nil
}

// FetchRange issues a GET with a Range header for bytes [from, to].
// A negative to requests everything from from onwards.
func (c *Client) FetchRange(ctx context.Context, url string, from, to int64) (*port.Response, error) {
	resp, err := c.do(ctx, http.MethodGet, url, RangeHeader(from, to))
	if err != nil {
		c.logFailure(ctx, "error while downloading partial content", url, err,
			zap.Int64("from_byte", from))
		return nil, err
	}
	return resp, nil
}

// FetchHeaders issues a HEAD request
func (c *Client) FetchHeaders(ctx context.Context, url string) (*port.Response, error) {
	resp, err := c.do(ctx, http.MethodHead, url, "")
	if err != nil {
		c.logFailure(ctx, "error while making HEAD request", url, err)
		return nil, err
	}
	return resp, nil
}

// RangeHeader formats an HTTP byte range. A negative to leaves the range open.
func RangeHeader(from, to int64) string {
	if to < 0 {
		return fmt.Sprintf("bytes=%d-", from)
	}
	return fmt.Sprintf("bytes=%d-%d", from, to)
}

// do performs an HTTP request with an optional Range header. A request that
// cannot be built is reported as domain.ErrInvalidInput, never sent.
func (c *Client) do(ctx context.Context, method, url, byteRange string) (*port.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %w", domain.ErrInvalidInput, err)
	}
	if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", domain.ErrInvalidInput, req.URL.Scheme)
	}
	if req.URL.Host == "" {
		return nil, fmt.Errorf("%w: url has no host", domain.ErrInvalidInput)
	}

	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if byteRange != "" {
		req.Header.Set("Range", byteRange)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	body := resp.Body
	if method == http.MethodHead {
		resp.Body.Close()
		body = io.NopCloser(http.NoBody)
	}

	return &port.Response{
		StatusCode:    resp.StatusCode,
		Status:        resp.Status,
		Header:        resp.Header,
		ContentLength: resp.ContentLength,
		Body:          body,
	}, nil
}

func (c *Client) logFailure(ctx context.Context, msg, url string, err error, fields ...zap.Field) {
	if ctx.Err() != nil {
		c.logger.Error("request cancelled", append(fields, zap.String("url", url))...)
		return
	}
	c.logger.Error(msg, append(fields, zap.String("url", url), zap.Error(err))...)
}
