// Package errs holds the error taxonomy shared by the catalog, enquiry and web
// packages. Every failure that reaches a client carries one Kind.
package errs

import (
	"errors"
	"fmt"
)

// Kind is the stable, machine-readable class of a failure.
type Kind string

const (
	Validation   Kind = "validation_failure"
	NotFound     Kind = "not_found"
	IO           Kind = "io_failure"
	Store        Kind = "store_failure"
	Notify       Kind = "notify_failure"
	Unauthorized Kind = "unauthorized"
)

// Error is a classified failure. Detail is the human-readable part shown to
// the client; Err is the underlying cause, if any.
type Error struct {
	Kind   Kind
	Op     string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Detail
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E builds an *Error without a cause.
func E(kind Kind, op, detail string) *Error {
	return &Error{Kind: kind, Op: op, Detail: detail}
}

// Wrap classifies err. A nil err yields nil.
func Wrap(kind Kind, op, detail string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Detail: detail, Err: err}
}

// Validationf is shorthand for a client-caused failure.
func Validationf(op, format string, args ...any) *Error {
	return E(Validation, op, fmt.Sprintf(format, args...))
}

// KindOf reports the Kind of err. Unclassified errors are server-side store
// failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Store
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

// DetailOf returns the client-facing detail of err.
func DetailOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Detail != "" {
			return e.Detail
		}
		if e.Err != nil {
			return e.Err.Error()
		}
	}
	return err.Error()
}
