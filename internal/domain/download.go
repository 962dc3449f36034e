package domain

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"time"
)

// DownloadTarget identifies one download invocation
type DownloadTarget struct {
	URL       string
	LocalPath string
}

// Validate checks that both the remote and the local side are set
func (t DownloadTarget) Validate() error {
	if t.URL == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidInput)
	}
	if t.LocalPath == "" {
		return fmt.Errorf("%w: local path is required", ErrInvalidInput)
	}
	return nil
}

// ReferenceInfo holds the expected size and hash of the target file.
// Known is false when the reference artifact could not be read; callers must
// then treat the local file as incomplete.
type ReferenceInfo struct {
	ExpectedSize int64
	ExpectedHash []byte
	Known        bool
}

// HashHex returns the expected hash as lowercase hex
func (r ReferenceInfo) HashHex() string {
	return hex.EncodeToString(r.ExpectedHash)
}

// Matches reports whether sum equals the expected hash
func (r ReferenceInfo) Matches(sum []byte) bool {
	return r.Known && bytes.Equal(r.ExpectedHash, sum)
}

// PolicyConfig configures the resilience policy and the copy buffer
type PolicyConfig struct {
	RetryCount      int
	TimeoutSeconds  int
	BufferSizeBytes int
}

// Timeout returns the configured timeout as a duration
func (c PolicyConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Validate checks the policy bounds
func (c PolicyConfig) Validate() error {
	if c.RetryCount < 0 {
		return fmt.Errorf("%w: retry count must not be negative", ErrInvalidInput)
	}
	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("%w: timeout seconds must be positive", ErrInvalidInput)
	}
	if c.BufferSizeBytes <= 0 {
		return fmt.Errorf("%w: buffer size must be positive", ErrInvalidInput)
	}
	return nil
}

// DefaultPolicyConfig returns the default policy configuration
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		RetryCount:      3,
		TimeoutSeconds:  30,
		BufferSizeBytes: 8192,
	}
}

// FileProgress is a single progress tick. Optional values are nil until known.
type FileProgress struct {
	TotalSize          *int64
	BytesDownloaded    int64
	Percent            *float64
	EstimatedRemaining *time.Duration
}

// FetchMode is the outcome of the resume decision
type FetchMode string

// Fetch modes
const (
	ModeFull   FetchMode = "full"
	ModeResume FetchMode = "resume"
	ModeSkip   FetchMode = "skip"
)

// Decision describes how a download attempt will fetch the target
type Decision struct {
	Mode     FetchMode
	FromByte int64
	// Oversized is set when the local file is larger than the expected size.
	Oversized bool
}

// Decide applies the resume rule: no local file means a full fetch, a local
// file of exactly the expected size is skipped, and any other size resumes
// from the local size. With an unknown reference the local file is always
// considered incomplete and fetched again from scratch.
func Decide(exists bool, localSize int64, ref ReferenceInfo) Decision {
	if !exists {
		return Decision{Mode: ModeFull}
	}
	if !ref.Known {
		return Decision{Mode: ModeFull}
	}
	if localSize == ref.ExpectedSize {
		return Decision{Mode: ModeSkip, FromByte: localSize}
	}
	return Decision{
		Mode:      ModeResume,
		FromByte:  localSize,
		Oversized: localSize > ref.ExpectedSize,
	}
}
