package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
)

// Common errors returned by the fetcher.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during backoff.
	ErrContextCancelled = errors.New("context cancelled")
)

// ErrorClass represents a classification of fetch errors.
type ErrorClass string

const (
	// ErrorClassRateLimit represents HTTP 429 responses.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassTimeout represents request timeouts.
	ErrorClassTimeout ErrorClass = "timeout"

	// ErrorClassConnection represents refused connections.
	ErrorClassConnection ErrorClass = "connection"

	// ErrorClassAPI represents non-retryable HTTP status errors.
	ErrorClassAPI ErrorClass = "api"

	// ErrorClassProtocol represents malformed or undecodable responses
	// and any other transport failure.
	ErrorClassProtocol ErrorClass = "protocol"
)

// APIError represents an HTTP status error from the device query API.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("device API error (status %d): %s", e.StatusCode, e.Message)
}

// BatchError is the final failure for one batch after classification and,
// for retryable errors, retry exhaustion. It carries the batch range so the
// operator can identify which devices went unreported.
type BatchError struct {
	First    string
	Last     string
	Attempts int
	Err      error
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	return fmt.Sprintf("batch %s..%s failed after %d attempt(s): %v",
		e.First, e.Last, e.Attempts, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *BatchError) Unwrap() error {
	return e.Err
}

// Classify categorizes a per-attempt error for retry decisions and metrics.
func Classify(err error) ErrorClass {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == 429 {
			return ErrorClassRateLimit
		}
		return ErrorClassAPI
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorClassTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorClassTimeout
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return ErrorClassConnection
	}

	return ErrorClassProtocol
}

// shouldRetry reports whether an error class is transient. Only rate limit
// responses, timeouts and refused connections are retried; everything else
// fails the batch immediately.
func shouldRetry(class ErrorClass) bool {
	switch class {
	case ErrorClassRateLimit, ErrorClassTimeout, ErrorClassConnection:
		return true
	default:
		return false
	}
}
