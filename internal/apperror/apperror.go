// Package apperror defines the error taxonomy returned by the credential core.
// Every service operation returns either nil or an *Error; the HTTP layer
// translates it once into a status code and body.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for the boundary translation
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidInput
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
	KindTooManyRequests
)

// String returns the kind name used in logs
func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "InvalidInput"
	case KindUnauthenticated:
		return "Unauthenticated"
	case KindForbidden:
		return "Forbidden"
	case KindNotFound:
		return "NotFound"
	case KindConflict:
		return "Conflict"
	case KindTooManyRequests:
		return "TooManyRequests"
	default:
		return "StorageError"
	}
}

// Status maps a kind to its HTTP status code
func (k Kind) Status() int {
	switch k {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified error with a caller-safe message
type Error struct {
	Kind    Kind
	Message string
	// Reasons enumerates violated rules for input the caller chose (new password, answers)
	Reasons []string
	// HoursRemaining is set when a password is too young to change
	HoursRemaining int
	// Err is the underlying cause; it is logged, never returned to the caller
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors by kind and message so sentinel values work with errors.Is
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// New creates an error of the given kind
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// InvalidInput reports missing or malformed request fields
func InvalidInput(message string) *Error {
	return New(KindInvalidInput, message)
}

// Unauthenticated reports a missing or invalid credential
func Unauthenticated(message string) *Error {
	return New(KindUnauthenticated, message)
}

// Forbidden reports a valid identity without the required role
func Forbidden(message string) *Error {
	return New(KindForbidden, message)
}

// NotFound reports a missing entity
func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

// Conflict reports a state conflict such as reuse or duplicate setup
func Conflict(message string) *Error {
	return New(KindConflict, message)
}

// Storage wraps a persistence failure. The message is always generic.
func Storage(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal server error", Err: err}
}

// KindOf returns the kind of err, or KindInternal when err is not classified
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// As extracts an *Error from err, wrapping unclassified errors as storage errors
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Storage(err)
}
