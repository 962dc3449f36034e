package domain

import (
	"context"
	"errors"
	"fmt"
)

// Common domain errors
var (
	ErrTimeout              = errors.New("operation timed out")
	ErrMissingContentLength = errors.New("response has no content length")
	ErrReferenceUnavailable = errors.New("reference artifact unavailable")
	ErrIntegrityMismatch    = errors.New("content hash does not match reference")
	ErrInvalidInput         = errors.New("invalid input")
	ErrInsufficientSpace    = errors.New("insufficient disk space")
)

// TransportError is a network-class failure raised while talking to the
// remote endpoint: connection refused, DNS failure, reset, short body.
type TransportError struct {
	Op  string
	URL string
	Err error
}

// Error returns the error message
func (e *TransportError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: transport error", e.Op, e.URL)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

// Unwrap returns the underlying error
func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a new transport error
func NewTransportError(op, url string, err error) *TransportError {
	return &TransportError{Op: op, URL: url, Err: err}
}

// StatusError is returned when the remote endpoint answers with a
// non-success HTTP status.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

// Error returns the error message
func (e *StatusError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("unexpected status from %s: %s", e.URL, e.Status)
	}
	return fmt.Sprintf("unexpected status from %s: %d", e.URL, e.StatusCode)
}

// NewStatusError creates a new status error
func NewStatusError(url string, code int, status string) *StatusError {
	return &StatusError{URL: url, StatusCode: code, Status: status}
}

// IsNetworkError reports whether err belongs to the retryable network
// class. Cancellation and timeouts are never network-class, even when a
// transport error wraps them.
func IsNetworkError(err error) bool {
	if err == nil || IsCancellation(err) {
		return false
	}
	var te *TransportError
	if errors.As(err, &te) {
		return true
	}
	var se *StatusError
	return errors.As(err, &se)
}

// IsCancellation reports whether err is a timeout or a cancellation.
func IsCancellation(err error) bool {
	return errors.Is(err, ErrTimeout) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// GetStatusCode returns the HTTP status carried by err, if any
func GetStatusCode(err error) (int, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode, true
	}
	return 0, false
}
