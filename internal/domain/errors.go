package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrQuotaExceeded = errors.New("quota exceeded")
	ErrPollTimeout   = errors.New("generation timed out")
)

// ValidationReason distinguishes the two pre-network rejections. They
// produce different user-visible messages.
type ValidationReason string

const (
	ValidationEmpty   ValidationReason = "empty"
	ValidationTooLong ValidationReason = "too_long"
)

// ValidationError rejects a prompt before any network call is made.
type ValidationError struct {
	Reason ValidationReason
	Limit  int
}

func (e *ValidationError) Error() string {
	if e.Reason == ValidationTooLong {
		return fmt.Sprintf("prompt exceeds %d characters", e.Limit)
	}
	return "prompt is empty"
}

// ServiceError means the render service was reachable but reported a
// failure. Detail is the service-provided message and is surfaced to the
// user verbatim.
type ServiceError struct {
	StatusCode int
	Detail     string
}

func (e *ServiceError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("render service returned status %d", e.StatusCode)
}

// TransportError wraps a network-level failure. The wrapped error is kept
// for logs; users only ever see a generic message.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "render service unreachable: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// DownloadError reports a failed artifact fetch or save.
type DownloadError struct {
	Ref string
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s: %v", e.Ref, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }
