// Package apperr defines the error kinds every DuckNest operation can fail with.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is the closed set of failure classes surfaced to callers.
type Kind uint8

const (
	// ServiceUnavailable is the zero value so that untyped errors default to it.
	ServiceUnavailable Kind = iota
	InvalidInput
	NotEligible
	AlreadyRegistered
	InvalidCredentials
	Unauthorized
	Forbidden
	NotFound
	InvalidTransition
)

// Code returns the stable machine-readable code for the kind.
func (k Kind) Code() string {
	switch k {
	case InvalidInput:
		return "invalid_input"
	case NotEligible:
		return "not_eligible"
	case AlreadyRegistered:
		return "already_registered"
	case InvalidCredentials:
		return "invalid_credentials"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not_found"
	case InvalidTransition:
		return "invalid_transition"
	case ServiceUnavailable:
		return "service_unavailable"
	}
	return "service_unavailable"
}

func (k Kind) String() string { return k.Code() }

// Error is a typed failure. Message is safe to show to clients, Err is not.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Message != "":
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return e.Kind.Code()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, apperr.ErrNotFound)
// works regardless of the message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrInvalidInput       = &Error{Kind: InvalidInput}
	ErrNotEligible        = &Error{Kind: NotEligible}
	ErrAlreadyRegistered  = &Error{Kind: AlreadyRegistered}
	ErrInvalidCredentials = &Error{Kind: InvalidCredentials}
	ErrUnauthorized       = &Error{Kind: Unauthorized}
	ErrForbidden          = &Error{Kind: Forbidden}
	ErrNotFound           = &Error{Kind: NotFound}
	ErrInvalidTransition  = &Error{Kind: InvalidTransition}
	ErrServiceUnavailable = &Error{Kind: ServiceUnavailable}
)

// New returns a typed error with a client-facing message.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

// Newf is New with formatting.
func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying cause.
func Wrap(kind Kind, err error, msg string) error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf reports the kind of err. Errors that carry no kind are ServiceUnavailable.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ServiceUnavailable
}

// MessageOf returns the client-facing message of err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	if KindOf(err) == ServiceUnavailable {
		return "service temporarily unavailable"
	}
	return KindOf(err).Code()
}

// FromStore passes typed errors through unchanged and classifies everything
// else (driver, network, session store) as ServiceUnavailable.
func FromStore(err error, op string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: ServiceUnavailable, Message: "service temporarily unavailable", Err: fmt.Errorf("%s: %w", op, err)}
}
