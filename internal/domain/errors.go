package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a business-rule failure so the transport layer can map it
// to a response status without inspecting message text.
type Kind int

const (
	// KindUnknown covers storage and other unexpected failures.
	KindUnknown Kind = iota
	// KindNotFound indicates a missing community, ticket, vote, or member.
	KindNotFound
	// KindForbidden indicates a role or membership check failed.
	KindForbidden
	// KindConflict indicates a duplicate vote or an already-merged community.
	KindConflict
	// KindInvalid indicates a bad enum value or a violated creation rule.
	KindInvalid
)

// Error is the failure type returned by every service operation.
type Error struct {
	kind    Kind
	message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause == nil {
		return e.message
	}
	return fmt.Sprintf("%s: %v", e.message, e.cause)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Kind returns the error classification.
func (e *Error) Kind() Kind {
	return e.kind
}

// Message returns the caller-facing message without any wrapped cause.
func (e *Error) Message() string {
	return e.message
}

// NotFound builds a KindNotFound error.
func NotFound(message string) error {
	return &Error{kind: KindNotFound, message: message}
}

// Forbidden builds a KindForbidden error.
func Forbidden(message string) error {
	return &Error{kind: KindForbidden, message: message}
}

// Conflict builds a KindConflict error.
func Conflict(message string) error {
	return &Error{kind: KindConflict, message: message}
}

// Invalid builds a KindInvalid error.
func Invalid(message string) error {
	return &Error{kind: KindInvalid, message: message}
}

// Internal wraps an unexpected failure (usually from storage) with context.
func Internal(message string, cause error) error {
	return &Error{kind: KindUnknown, message: message, cause: cause}
}

// KindOf extracts the Kind from err, or KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Kind()
	}
	return KindUnknown
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
