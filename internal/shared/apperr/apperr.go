// Package apperr defines the error kinds returned by domain services.
//
// Every failure a service reports is one of three kinds: validation (the
// caller can fix the request), not found (a referenced id does not exist) or
// internal (storage or infrastructure failure). Handlers map the kind to a
// status code; callers test it with errors.Is against ErrValidation,
// ErrNotFound or ErrInternal.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Sentinels for errors.Is checks. They carry no message.
var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrInternal   = &Error{Kind: KindInternal}
)

// Error is a classified failure. Field names the offending input or entity,
// Err is the underlying cause (often a domain sentinel such as
// account.ErrInsufficientFunds).
type Error struct {
	Kind    Kind
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = e.Kind.String() + " error"
	}
	if e.Field != "" {
		return e.Field + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Field == "" && t.Kind == e.Kind
}

// Invalid wraps a domain error as a validation failure on field.
func Invalid(field string, err error) *Error {
	return &Error{Kind: KindValidation, Field: field, Err: err}
}

// Invalidf builds a validation failure with a formatted message.
func Invalidf(field, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports that the entity identified by id does not exist.
func NotFound(err error, id string) *Error {
	return &Error{Kind: KindNotFound, Field: "id", Message: fmt.Sprintf("%s: %s", err, id), Err: err}
}

// Internal wraps an unexpected failure of op.
func Internal(err error, op string) *Error {
	return &Error{Kind: KindInternal, Message: fmt.Sprintf("failed to %s: %v", op, err), Err: err}
}

// KindOf returns the kind of err. Unclassified errors are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// FieldOf returns the field attached to err, if any.
func FieldOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Field
	}
	return ""
}

// Wrap classifies err: errors that already carry a kind pass through, the
// rest become internal failures of op.
func Wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return Internal(err, op)
}
