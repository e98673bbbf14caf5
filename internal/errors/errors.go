// Package errors provides coded domain errors for the layout tools.
//
// Usage:
//
//	// In the builder - return typed errors
//	if exists && !opts.Overwrite {
//	    return nil, errors.OutputConflictf("output directory %s already exists", dir)
//	}
//
//	// In commands - map the code to a process exit status
//	var domainErr *errors.Error
//	if errors.As(err, &domainErr) {
//	    os.Exit(domainErr.ExitCode())
//	}
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the tools.
const (
	CodeNotFound          Code = "NOT_FOUND"
	CodeValidation        Code = "VALIDATION"
	CodeMissingSource     Code = "MISSING_SOURCE"
	CodeMalformedMetadata Code = "MALFORMED_METADATA"
	CodeOutputConflict    Code = "OUTPUT_CONFLICT"
	CodeLinkCollision     Code = "LINK_COLLISION"
	CodeMalformedTree     Code = "MALFORMED_TREE"
	CodePartialFailure    Code = "PARTIAL_FAILURE"
	CodeInternal          Code = "INTERNAL"
)

// Process exit statuses.
const (
	ExitOK             = 0
	ExitInternal       = 1
	ExitUsage          = 2
	ExitOutputConflict = 3
	ExitPartial        = 4
)

// ExitCode returns the process exit status for an error code.
func (c Code) ExitCode() int {
	switch c {
	case CodeValidation, CodeNotFound:
		return ExitUsage
	case CodeOutputConflict:
		return ExitOutputConflict
	case CodePartialFailure, CodeMalformedMetadata, CodeLinkCollision, CodeMalformedTree:
		return ExitPartial
	default:
		return ExitInternal
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code" yaml:"code"`
	Message string `json:"message" yaml:"message"`
	Details any    `json:"details,omitempty" yaml:"details,omitempty"`
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// ExitCode returns the process exit status for this error.
func (e *Error) ExitCode() int {
	return e.Code.ExitCode()
}

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrNotFound          = &Error{Code: CodeNotFound, Message: "not found"}
	ErrValidation        = &Error{Code: CodeValidation, Message: "validation error"}
	ErrMissingSource     = &Error{Code: CodeMissingSource, Message: "missing source"}
	ErrMalformedMetadata = &Error{Code: CodeMalformedMetadata, Message: "malformed metadata"}
	ErrOutputConflict    = &Error{Code: CodeOutputConflict, Message: "destination exists"}
	ErrLinkCollision     = &Error{Code: CodeLinkCollision, Message: "link collision"}
	ErrMalformedTree     = &Error{Code: CodeMalformedTree, Message: "malformed tree"}
	ErrPartialFailure    = &Error{Code: CodePartialFailure, Message: "partial failure"}
	ErrInternal          = &Error{Code: CodeInternal, Message: "internal error"}
)

// Constructor functions for creating errors with custom messages.

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// MissingSourcef creates a missing source error with formatted message.
func MissingSourcef(format string, args ...any) *Error {
	return &Error{Code: CodeMissingSource, Message: fmt.Sprintf(format, args...)}
}

// MalformedMetadataf creates a malformed metadata error with formatted message.
func MalformedMetadataf(format string, args ...any) *Error {
	return &Error{Code: CodeMalformedMetadata, Message: fmt.Sprintf(format, args...)}
}

// OutputConflictf creates an output conflict error with formatted message.
func OutputConflictf(format string, args ...any) *Error {
	return &Error{Code: CodeOutputConflict, Message: fmt.Sprintf(format, args...)}
}

// LinkCollisionf creates a link collision error with formatted message.
func LinkCollisionf(format string, args ...any) *Error {
	return &Error{Code: CodeLinkCollision, Message: fmt.Sprintf(format, args...)}
}

// MalformedTreef creates a malformed tree error with formatted message.
func MalformedTreef(format string, args ...any) *Error {
	return &Error{Code: CodeMalformedTree, Message: fmt.Sprintf(format, args...)}
}

// PartialFailuref creates a partial failure error with formatted message.
func PartialFailuref(format string, args ...any) *Error {
	return &Error{Code: CodePartialFailure, Message: fmt.Sprintf(format, args...)}
}

// Internalf creates an internal error with formatted message.
func Internalf(format string, args ...any) *Error {
	return &Error{Code: CodeInternal, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}

// ExitCode returns the exit status for any error.
// Errors without a domain code map to ExitInternal; nil maps to ExitOK.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.ExitCode()
	}
	return ExitInternal
}
