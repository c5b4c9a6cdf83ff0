package core

import (
	"errors"
)

// Kinds of failure an attendance operation reports. Match them with
// errors.Is; the HTTP layer maps each to a status code.
var (
	ErrValidation = errors.New("validation failed")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("not found")
	ErrInternal   = errors.New("internal error")
)

// Error is a kind plus a caller-facing message, optionally wrapping the
// cause.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Kind == ErrInternal {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewError builds an Error of the given kind.
func NewError(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError builds an Error of the given kind around err.
func WrapError(err error, kind error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Internal wraps an infrastructure failure. The message stays generic; the
// cause is kept for logs.
func Internal(err error, message string) *Error {
	return WrapError(err, ErrInternal, message)
}

// KindOf returns the kind of err, ErrInternal for anything that is not an
// *Error.
func KindOf(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrInternal
}

// MessageOf returns the caller-facing message of err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != ErrInternal {
		return e.Message
	}
	return "internal server error"
}
