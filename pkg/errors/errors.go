// Package errors provides structured error types for bandmap.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI, the HTTP API and the layout
//     packages
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Layout failures are never fatal. Their codes describe what degraded:
//   - MISSING_COORDINATE: a band had no coordinate and fell back to the default
//   - CONVERTER_UNAVAILABLE: the rendering surface was not ready for a pass
//   - INVALID_GEOMETRY: a province produced a non-finite centre or bound
//   - DATA_FETCH_FAILURE: band or boundary data could not be loaded
//
// The remaining codes cover input validation and lookups on the outer
// surfaces (CLI, HTTP).
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidInput, "invalid zoom: %v", z)
//	if errors.Is(err, errors.ErrCodeInvalidInput) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeDataFetchFailure, origErr, "load %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Layout degradation
	ErrCodeMissingCoordinate    Code = "MISSING_COORDINATE"
	ErrCodeConverterUnavailable Code = "CONVERTER_UNAVAILABLE"
	ErrCodeInvalidGeometry      Code = "INVALID_GEOMETRY"
	ErrCodeDataFetchFailure     Code = "DATA_FETCH_FAILURE"

	// Input validation errors
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidStrategy Code = "INVALID_STRATEGY"
	ErrCodeInvalidConfig   Code = "INVALID_CONFIG"
	ErrCodeInvalidPath     Code = "INVALID_PATH"

	// Resource not found errors
	ErrCodeNotFound         Code = "NOT_FOUND"
	ErrCodeSessionNotFound  Code = "SESSION_NOT_FOUND"
	ErrCodeProvinceNotFound Code = "PROVINCE_NOT_FOUND"
	ErrCodeBandNotFound     Code = "BAND_NOT_FOUND"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// IsNotFound reports whether err carries any of the not-found codes.
func IsNotFound(err error) bool {
	switch GetCode(err) {
	case ErrCodeNotFound, ErrCodeSessionNotFound, ErrCodeProvinceNotFound, ErrCodeBandNotFound:
		return true
	}
	return false
}

// IsDegraded reports whether err describes a layout degradation rather than
// a hard failure.
func IsDegraded(err error) bool {
	switch GetCode(err) {
	case ErrCodeMissingCoordinate, ErrCodeConverterUnavailable, ErrCodeInvalidGeometry, ErrCodeDataFetchFailure:
		return true
	}
	return false
}
