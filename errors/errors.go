// Package errors provides the structured error types used by tradebench.
// Every error carries a category and a code so callers can tell a broken
// connection from a bad query parameter without string matching.
// Nothing in tradebench retries: a retried query would corrupt the
// latency it is measuring.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by the stage that produced them.
type ErrorCategory string

const (
	ErrCategoryConnection ErrorCategory = "CONNECTION"
	ErrCategorySchema     ErrorCategory = "SCHEMA"
	ErrCategoryLoad       ErrorCategory = "LOAD"
	ErrCategoryQuery      ErrorCategory = "QUERY"
	ErrCategoryConfig     ErrorCategory = "CONFIG"
)

// Error codes for each category.
const (
	// Connection codes
	CodeUnreachable  = "UNREACHABLE"
	CodeNotConnected = "NOT_CONNECTED"

	// Schema codes
	CodeDDLFailed = "DDL_FAILED"

	// Load codes
	CodeConstraintViolation = "CONSTRAINT_VIOLATION"
	CodeInvalidRow          = "INVALID_ROW"
	CodeSourceUnavailable   = "SOURCE_UNAVAILABLE"
	CodeWriteFailed         = "WRITE_FAILED"

	// Query codes
	CodeUnknownQuery   = "UNKNOWN_QUERY"
	CodeInvalidParams  = "INVALID_PARAMS"
	CodeNotFound       = "NOT_FOUND"
	CodeBackendFailure = "BACKEND_FAILURE"

	// Config codes
	CodeInvalidRepetitions = "INVALID_REPETITIONS"
	CodeUnknownEngine      = "UNKNOWN_ENGINE"
	CodeInvalidConfig      = "INVALID_CONFIG"
)

// BenchError is the structured error type used throughout tradebench.
type BenchError struct {
	Category ErrorCategory
	Code     string
	Message  string
	Details  map[string]interface{}
	Cause    error
}

// Error returns a formatted error string.
func (e *BenchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *BenchError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *BenchError) Is(target error) bool {
	var t *BenchError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new BenchError.
func New(category ErrorCategory, code, message string) *BenchError {
	return &BenchError{
		Category: category,
		Code:     code,
		Message:  message,
	}
}

// Wrap creates a new BenchError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *BenchError {
	return &BenchError{
		Category: category,
		Code:     code,
		Message:  message,
		Cause:    cause,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *BenchError) WithDetails(details map[string]interface{}) *BenchError {
	cp := *e
	cp.Details = details
	return &cp
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a BenchError.
func GetCategory(err error) ErrorCategory {
	var be *BenchError
	if errors.As(err, &be) {
		return be.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a BenchError.
func GetCode(err error) string {
	var be *BenchError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

// IsNotFound reports whether err signals a missing backend object.
func IsNotFound(err error) bool {
	return GetCategory(err) == ErrCategoryQuery && GetCode(err) == CodeNotFound
}

// Convenience constructors for common errors.

func NewConnectionError(message string, cause error) *BenchError {
	return Wrap(ErrCategoryConnection, CodeUnreachable, message, cause)
}

func NewSchemaError(message string, cause error) *BenchError {
	return Wrap(ErrCategorySchema, CodeDDLFailed, message, cause)
}

func NewLoadError(code, message string, cause error) *BenchError {
	return Wrap(ErrCategoryLoad, code, message, cause)
}

func NewQueryError(code, message string, cause error) *BenchError {
	return Wrap(ErrCategoryQuery, code, message, cause)
}

func NewConfigError(code, message string) *BenchError {
	return New(ErrCategoryConfig, code, message)
}

// ErrNotConnected is returned by adapters used before Connect.
var ErrNotConnected = New(ErrCategoryConnection, CodeNotConnected, "engine is not connected")
