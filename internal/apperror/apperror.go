// Package apperror defines the error taxonomy shared by services and handlers.
package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies an Error for the HTTP boundary
type Kind int

const (
	KindServer Kind = iota
	KindValidation
	KindAuthentication
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "server"
	}
}

// Error is the application error carried from services to handlers.
// Message is safe to show to a client; Err is only logged.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Kind, so errors.Is(err, ErrNotFound) works
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

// Sentinels for errors.Is
var (
	ErrValidation     = &Error{Kind: KindValidation}
	ErrAuthentication = &Error{Kind: KindAuthentication}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrConflict       = &Error{Kind: KindConflict}
	ErrServer         = &Error{Kind: KindServer}
)

// Validation reports missing or malformed input
func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Authentication reports a bad password or a bad two-factor code
func Authentication(message string) *Error {
	return &Error{Kind: KindAuthentication, Message: message}
}

// NotFound reports an unknown user, account or empty report
func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflict reports a uniqueness violation the client can act on
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// Server wraps an infrastructure failure
func Server(message string, err error) *Error {
	return &Error{Kind: KindServer, Message: message, Err: err}
}

// KindOf returns the Kind of err, KindServer for foreign errors
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindServer
}
