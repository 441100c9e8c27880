// Package errors provides typed application errors for the ablation harness.
package errors

import (
	"errors"
	"fmt"
)

// Error codes.
const (
	CodeValidation  = "VALIDATION_ERROR"
	CodeNotFound    = "NOT_FOUND"
	CodeStorage     = "STORAGE_ERROR"
	CodeUnavailable = "SERVICE_UNAVAILABLE"
	CodeTimeout     = "TIMEOUT"
	CodeRestore     = "RESTORE_ERROR"
	CodeSanity      = "SANITY_CHECK_FAILED"
	CodeInternal    = "INTERNAL_ERROR"
)

// AppError represents an application error with a code and optional details.
// Fatal errors are sanity-check violations under fail-fast mode: the core
// never terminates the process itself, it propagates a fatal error to the CLI
// boundary which performs the exit.
type AppError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
	Fatal   bool              `json:"fatal,omitempty"`
	Err     error             `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with an AppError.
func Wrap(code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithDetail adds a single detail to the error.
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// MarkFatal marks the error as fatal for the orchestrating boundary.
func (e *AppError) MarkFatal() *AppError {
	e.Fatal = true
	return e
}

// Convenience constructors.

// ValidationError creates a validation error.
func ValidationError(message string) *AppError {
	return New(CodeValidation, message)
}

// NotFoundError creates a not found error.
func NotFoundError(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

// StorageError creates a backing-store error.
func StorageError(message string, err error) *AppError {
	return Wrap(CodeStorage, message, err)
}

// RestoreError creates a restore failure error.
func RestoreError(collection string, err error) *AppError {
	return Wrap(CodeRestore, fmt.Sprintf("failed to restore collection %s", collection), err)
}

// SanityError creates a sanity-check violation error.
func SanityError(check, message string) *AppError {
	return New(CodeSanity, message).WithDetail("check", check)
}

// InternalError creates an internal error.
func InternalError(message string, err error) *AppError {
	return Wrap(CodeInternal, message, err)
}

// IsNotFound checks if err is a not found error.
func IsNotFound(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == CodeNotFound
	}
	return false
}

// IsSanity checks if err is a sanity-check violation.
func IsSanity(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == CodeSanity
	}
	return false
}

// IsFatal checks if err carries the fatal marker.
func IsFatal(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Fatal
	}
	return false
}
