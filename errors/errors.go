// Package errors provides error types and handling for upload operations.
package errors

import (
	"context"
	"errors"
	"fmt"
)

// Error represents an upload operation error with context about the
// operation that failed. It wraps the underlying transport or control-plane
// error with additional context for better debugging.
type Error struct {
	// Op is the operation that failed (e.g., "upload", "uploadPart", "completeMultipart")
	Op string

	// Bucket is the destination bucket name (if applicable)
	Bucket string

	// Key is the destination object key (if applicable)
	Key string

	// Err is the underlying error
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	if e.Bucket != "" && e.Key != "" {
		return fmt.Sprintf("hoist.%s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	}
	if e.Bucket != "" {
		return fmt.Sprintf("hoist.%s bucket %s: %v", e.Op, e.Bucket, e.Err)
	}
	if e.Key != "" {
		return fmt.Sprintf("hoist.%s object %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("hoist.%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithBucket adds bucket context to an existing error.
func (e *Error) WithBucket(bucket string) *Error {
	e.Bucket = bucket
	return e
}

// WithKey adds object key context to an existing error.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// WithMessage wraps the underlying error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// NewError creates a new Error with the given operation and underlying error.
func NewError(op string, err error) *Error {
	return &Error{
		Op:  op,
		Err: err,
	}
}

// Sentinel errors for common upload failures.
// These can be used with errors.Is() for error checking.
var (
	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("hoist: invalid input")

	// ErrInvalidBucketName indicates that the bucket name is invalid
	ErrInvalidBucketName = errors.New("hoist: invalid bucket name")

	// ErrInvalidObjectKey indicates that the object key is invalid
	ErrInvalidObjectKey = errors.New("hoist: invalid object key")

	// ErrTransport indicates that a request could not be sent or no
	// response was received (as opposed to the server returning an error
	// status). Only this class of failure triggers direct-to-proxy fallback.
	ErrTransport = errors.New("hoist: transport failure")

	// ErrMissingETag indicates that a storage response lacked the required
	// entity-tag header
	ErrMissingETag = errors.New("hoist: response missing etag header")

	// ErrProxyNotConfigured indicates that a proxy upload was required but
	// no proxy uploader was supplied
	ErrProxyNotConfigured = errors.New("hoist: proxy upload not configured")
)

// TransportError wraps a network-level failure while preserving the cause
// chain, so callers can still detect context cancellation with errors.Is.
type TransportError struct {
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure: %v", e.Err)
}

// Unwrap returns the underlying network error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is reports ErrTransport so errors.Is(err, ErrTransport) matches without
// severing the wrapped chain.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// StatusError represents a non-2xx HTTP response from storage or the
// control plane. Server rejection is always fatal to the current attempt
// and never triggers proxy fallback.
type StatusError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

// Is reports whether any error in err's chain matches target. It mirrors
// the standard library so callers don't need a second errors import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// IsTransport checks if an error is a network-level transport failure.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}

// IsStatus reports whether err carries a non-2xx HTTP status, and returns
// that status when it does.
func IsStatus(err error) (int, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode, true
	}
	return 0, false
}

// IsCancelled checks if an error was caused by context cancellation, so an
// aborted in-flight request is reported as "cancelled" rather than failed.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
