package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for the attendance engine.
var (
	// ErrConflict signals the pairing slot is held by another user.
	ErrConflict = New("CONFLICT", http.StatusConflict, "another pairing in progress")
	// ErrInvalidSession signals a confirm/scan against a missing, expired or
	// foreign pairing session.
	ErrInvalidSession = New("INVALID_SESSION", http.StatusConflict, "pairing session invalid or expired")
	// ErrUnknownCard signals a scan from an identifier with no binding.
	ErrUnknownCard = New("UNKNOWN_CARD", http.StatusNotFound, "card is not registered")
	// ErrInvalidState signals a decision on an already-decided request.
	ErrInvalidState = New("INVALID_STATE", http.StatusConflict, "request already decided")
	// ErrConfigUnavailable marks a settings-store failure; callers degrade to
	// the built-in fallback schedule instead of surfacing this.
	ErrConfigUnavailable = New("CONFIG_UNAVAILABLE", http.StatusServiceUnavailable, "schedule settings unavailable")
	// ErrStoreFailure is surfaced as a retryable persistence failure.
	ErrStoreFailure = New("STORE_FAILURE", http.StatusServiceUnavailable, "persistent store failure")

	ErrNotFound     = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrUnauthorized = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrForbidden    = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrValidation   = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal     = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Is reports whether err carries the given predefined code.
func Is(err error, target *Error) bool {
	if err == nil || target == nil {
		return false
	}
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == target.Code
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
