// Package autxerr classifies auction-core errors into the taxonomy the HTTP
// and realtime adapters need in order to map failures to response codes
// without parsing error strings.
package autxerr

import (
	"errors"
	"fmt"
)

// Kind is the coarse error classification from spec §7.
type Kind string

const (
	KindValidation         Kind = "validation"
	KindStateConflict      Kind = "state_conflict"
	KindAuthorization      Kind = "authorization"
	KindNotFound           Kind = "not_found"
	KindResourceExhausted  Kind = "resource_exhausted"
	KindInvariantViolation Kind = "invariant_violation"
	KindTransient          Kind = "transient"
)

// Error wraps a cause with a Kind and a stable machine-readable Reason.
type Error struct {
	kind   Kind
	reason string
	cause  error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.reason, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.reason)
}

func (e *Error) Unwrap() error { return e.cause }

// Kind returns the error's classification.
func (e *Error) Kind() Kind { return e.kind }

// Reason returns the stable machine-readable reason string, e.g.
// "insufficient_purse_for_min_squad" or "bid_not_next_increment".
func (e *Error) Reason() string { return e.reason }

// New creates a classified error with no wrapped cause.
func New(kind Kind, reason string) *Error {
	return &Error{kind: kind, reason: reason}
}

// Wrap classifies an existing error under kind/reason.
func Wrap(kind Kind, reason string, cause error) *Error {
	return &Error{kind: kind, reason: reason, cause: cause}
}

// Validation is a shorthand for New(KindValidation, reason).
func Validation(reason string) *Error { return New(KindValidation, reason) }

// StateConflict is a shorthand for New(KindStateConflict, reason).
func StateConflict(reason string) *Error { return New(KindStateConflict, reason) }

// NotFound is a shorthand for New(KindNotFound, reason).
func NotFound(reason string) *Error { return New(KindNotFound, reason) }

// ResourceExhausted is a shorthand for New(KindResourceExhausted, reason).
func ResourceExhausted(reason string) *Error { return New(KindResourceExhausted, reason) }

// Authorization is a shorthand for New(KindAuthorization, reason).
func Authorization(reason string) *Error { return New(KindAuthorization, reason) }

// InvariantViolation is a shorthand for New(KindInvariantViolation, reason).
func InvariantViolation(reason string) *Error { return New(KindInvariantViolation, reason) }

// Transient is a shorthand for New(KindTransient, reason).
func Transient(reason string, cause error) *Error {
	return Wrap(KindTransient, reason, cause)
}

// KindOf extracts the Kind of err, defaulting to KindInvariantViolation when
// err does not carry a classification — an unclassified error reaching the
// HTTP boundary is itself a bug worth surfacing as 500.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind()
	}
	return KindInvariantViolation
}

// ReasonOf extracts the Reason of err, or "" if unclassified.
func ReasonOf(err error) string {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Reason()
	}
	return ""
}
