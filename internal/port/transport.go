package port

import (
	"context"
	"io"
	"net/http"
)

// Response is the transport-level view of an HTTP response
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header

	// ContentLength is -1 when the server did not send one
	ContentLength int64

	// Body must be closed by the caller
	Body io.ReadCloser
}

// HasContentLength returns true if the response carried a content length
func (r *Response) HasContentLength() bool {
	return r.ContentLength >= 0
}

// IsSuccess returns true for 2xx responses
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Close closes the body if present
func (r *Response) Close() error {
	if r.Body == nil {
		return nil
	}
	return r.Body.Close()
}

// Transport issues the HTTP calls the downloader needs. It does not retry
// and does not interpret status codes; errors and cancellation are returned
// unmodified.
type Transport interface {
	// FetchFull issues an unconditional GET
	FetchFull(ctx context.Context, url string) (*Response, error)

	// FetchRange issues a GET for bytes [from, to]. A negative to leaves the
	// range open to the end of the resource.
	FetchRange(ctx context.Context, url string, from, to int64) (*Response, error)

	// FetchHeaders issues a HEAD request
	FetchHeaders(ctx context.Context, url string) (*Response, error)
}
