package domain

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the request boundary.
type Kind string

const (
	KindValidation          Kind = "validation"
	KindConflict            Kind = "conflict"
	KindInvalidCredentials  Kind = "invalid_credentials"
	KindUnauthenticated     Kind = "unauthenticated"
	KindNotFound            Kind = "not_found"
	KindExternalUnavailable Kind = "external_unavailable"
	KindInternal            Kind = "internal"
)

// Error is an error with a kind and a message that is safe to show to users.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
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

// Is matches another *Error of the same kind, so errors.Is(err, ErrUnauthenticated)
// holds for every unauthenticated error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// Sentinels for errors.Is checks. Only the kind is compared.
var (
	ErrValidation          = &Error{Kind: KindValidation}
	ErrConflict            = &Error{Kind: KindConflict}
	ErrInvalidCredentials  = &Error{Kind: KindInvalidCredentials}
	ErrUnauthenticated     = &Error{Kind: KindUnauthenticated}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrExternalUnavailable = &Error{Kind: KindExternalUnavailable}
	ErrInternal            = &Error{Kind: KindInternal}
)

func Validation(message string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func InvalidCredentials() *Error {
	return &Error{Kind: KindInvalidCredentials, Message: "invalid email or password"}
}

func Unauthenticated() *Error {
	return &Error{Kind: KindUnauthenticated, Message: "user is not authenticated"}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func ExternalUnavailable(message string, err error) *Error {
	return &Error{Kind: KindExternalUnavailable, Message: message, Err: err}
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal server error", Err: err}
}

// KindOf returns the kind of err, or KindInternal when err is unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
