// Package errors provides structured error types for sldview.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI, the HTTP API and the compiler
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Codes fall into a few groups:
//   - INVALID_*: input validation failures at the outer surfaces
//   - FETCH_FAILED, NOT_FOUND, TIMEOUT, TOO_LARGE: document retrieval
//   - EMPTY_DOCUMENT, DECODE_FAILED, NOT_SLD, PARSE_FAILED, STRUCTURE_INVALID:
//     document parsing and validation
//   - NO_STYLE: a well-formed document that yielded no usable styling
//   - INTERNAL_ERROR, UNSUPPORTED: everything else
//
// The compiler never returns these to its caller; it records them as the
// reason a compile stopped and yields an empty style instead.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeTooLarge, "document is %d bytes", n)
//	if errors.Is(err, errors.ErrCodeTooLarge) {
//	    // Handle oversized input
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeFetch, origErr, "failed to fetch %s", url)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidURL    Code = "INVALID_URL"
	ErrCodeInvalidKind   Code = "INVALID_KIND"

	// Retrieval errors
	ErrCodeFetch    Code = "FETCH_FAILED"
	ErrCodeNotFound Code = "NOT_FOUND"
	ErrCodeTimeout  Code = "TIMEOUT"
	ErrCodeTooLarge Code = "TOO_LARGE"

	// Document errors
	ErrCodeEmptyDocument Code = "EMPTY_DOCUMENT"
	ErrCodeDecode        Code = "DECODE_FAILED"
	ErrCodeNotSLD        Code = "NOT_SLD"
	ErrCodeParse         Code = "PARSE_FAILED"
	ErrCodeStructure     Code = "STRUCTURE_INVALID"
	ErrCodeNoStyle       Code = "NO_STYLE"

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

// IsInput reports whether err was caused by invalid caller input rather than
// by a failure while retrieving or processing a document.
func IsInput(err error) bool {
	switch GetCode(err) {
	case ErrCodeInvalidInput, ErrCodeInvalidFormat, ErrCodeInvalidURL, ErrCodeInvalidKind:
		return true
	}
	return false
}
