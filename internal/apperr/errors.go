package apperr

import (
	"errors"
	"fmt"
)

// Error is a taxonomy-tagged error. Components wrap lower-level errors with
// it so daemon handlers can decide, by Code alone, whether to retry, log and
// continue, or surface the failure to the caller.
type Error struct {
	Code    Code
	Scope   string // component or operation that produced the error, e.g. "relstore.Open"
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Scope, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Scope, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a tagged error with no wrapped cause.
func New(code Code, scope, message string) *Error {
	return &Error{Code: code, Scope: scope, Message: message}
}

// Wrap tags an existing error with a category and scope.
func Wrap(code Code, scope, message string, err error) *Error {
	return &Error{Code: code, Scope: scope, Message: message, Err: err}
}

// InvalidParams builds a client-parameter error.
func InvalidParams(scope, message string) *Error {
	return New(CodeInvalidParams, scope, message)
}

// NotFound builds a not-registered error.
func NotFound(scope, message string) *Error {
	return New(CodeNotFound, scope, message)
}

// Transient wraps an upstream failure that should go through a circuit
// breaker and be reported as "upstream unavailable" to the caller.
func Transient(scope string, err error) *Error {
	return Wrap(CodeTransient, scope, "upstream unavailable", err)
}

// CodeOf extracts the apperr.Code from err if it (or something it wraps) is
// an *Error; returns ok=false otherwise.
func CodeOf(err error) (Code, bool) {
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Code, true
	}
	return 0, false
}

// IsTransient reports whether err is tagged CodeTransient.
func IsTransient(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == CodeTransient
}
