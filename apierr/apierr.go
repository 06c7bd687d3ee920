// Package apierr classifies backend failures. The client produces these
// errors; stores and commands match them with errors.Is.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNetwork        = errors.New("network error")
	ErrUnauthorized   = errors.New("authentication required")
	ErrForbidden      = errors.New("permission denied")
	ErrNotFound       = errors.New("not found")
	ErrValidation     = errors.New("validation failed")
	ErrConflict       = errors.New("conflict")
	ErrSessionExpired = errors.New("session expired")
)

// Error is a non-2xx response from the backend.
type Error struct {
	Status  int
	Message string
	Code    string
	Details string
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Details != "" {
		return fmt.Sprintf("API %d: %s (%s)", e.Status, msg, e.Details)
	}
	return fmt.Sprintf("API %d: %s", e.Status, msg)
}

// Is maps the status code onto the sentinel errors.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrValidation:
		return e.Status == http.StatusBadRequest || e.Status == http.StatusUnprocessableEntity
	case ErrConflict:
		return e.Status == http.StatusConflict
	}
	return false
}

// Network wraps a transport failure.
func Network(err error) error {
	return fmt.Errorf("%w: %w", ErrNetwork, err)
}

// Validation returns a client-side validation error for field.
func Validation(field, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrValidation, field, reason)
}

// Message extracts the server-supplied message, if any.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ""
}
