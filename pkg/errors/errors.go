package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode maps the error code to an HTTP status. The error-handling
// middleware uses this to shape responses.
func (e *AppError) StatusCode() int {
	switch e.Code {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrBadRequest, ErrInvalidTransition, ErrMissingReason, ErrImmutableState:
		return http.StatusBadRequest
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrUnauthorized
	ErrForbidden
	ErrInternal
	ErrConflict
	ErrCapacityExceeded
	ErrInvalidTransition
	ErrMissingReason
	ErrImmutableState
)

// Error constructors
func NewNotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func NewBadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

func NewUnauthorized(message string, err error) *AppError {
	if message == "" {
		message = "unauthorized"
	}
	return &AppError{
		Code:    ErrUnauthorized,
		Message: message,
		Err:     err,
	}
}

func NewForbidden(message string) *AppError {
	if message == "" {
		message = "permission denied"
	}
	return &AppError{
		Code:    ErrForbidden,
		Message: message,
	}
}

func NewInternal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

// NewConflict reports a concurrent-modification loss detected at the
// storage boundary, or a lost sequence-issuance race.
func NewConflict(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrConflict,
		Message: fmt.Sprintf("%s was modified concurrently, retry the request", resource),
		Err:     err,
	}
}

// NewCapacityExceeded reports an exhausted annual sequence space. Not
// retryable; requires operational intervention.
func NewCapacityExceeded(class string, year int) *AppError {
	return &AppError{
		Code:    ErrCapacityExceeded,
		Message: fmt.Sprintf("sequence capacity exhausted for class %s in year %d", class, year),
	}
}

func NewInvalidTransition(from, to string) *AppError {
	return &AppError{
		Code:    ErrInvalidTransition,
		Message: fmt.Sprintf("invalid status transition from %s to %s", from, to),
	}
}

func NewMissingReason() *AppError {
	return &AppError{
		Code:    ErrMissingReason,
		Message: "cancellation requires a reason",
	}
}

func NewImmutableState(status string) *AppError {
	return &AppError{
		Code:    ErrImmutableState,
		Message: fmt.Sprintf("visit in terminal status %s cannot be modified", status),
	}
}

// CodeOf extracts the application error code, or ErrInternal for
// unclassified errors.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

func is(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

func IsNotFound(err error) bool          { return is(err, ErrNotFound) }
func IsConflict(err error) bool          { return is(err, ErrConflict) }
func IsCapacityExceeded(err error) bool  { return is(err, ErrCapacityExceeded) }
func IsInvalidTransition(err error) bool { return is(err, ErrInvalidTransition) }
func IsMissingReason(err error) bool     { return is(err, ErrMissingReason) }
func IsImmutableState(err error) bool    { return is(err, ErrImmutableState) }
