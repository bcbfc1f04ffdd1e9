package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the locator.
type ErrorCode string

// Store error codes
const (
	ErrContextUninitialized ErrorCode = "CONTEXT_UNINITIALIZED"
	ErrAlreadyInitialized   ErrorCode = "ALREADY_INITIALIZED"
	ErrStoreUnavailable     ErrorCode = "STORE_UNAVAILABLE"
)

// Marker error codes
const (
	ErrUnknownMarkerType ErrorCode = "UNKNOWN_MARKER_TYPE"
	ErrInvalidMatchMode  ErrorCode = "INVALID_MATCH_MODE"
)

// Detection and search error codes
const (
	ErrBudgetExceeded   ErrorCode = "BUDGET_EXCEEDED"
	ErrOracleValidation ErrorCode = "ORACLE_VALIDATION"
	ErrListNotFound     ErrorCode = "LIST_NOT_FOUND"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	Cause     error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error carrying the same code, so that
// errors.Is(err, types.Sentinel(code)) matches any error of that kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf creates a new Error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// Sentinel returns a bare error of the given code for use with errors.Is.
func Sentinel(code ErrorCode) error {
	return &Error{Code: code}
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code ErrorCode) bool {
	return errors.Is(err, Sentinel(code))
}
