package storage

import (
	"errors"
	"fmt"
)

// ErrNoMatch is returned when a lookup that required exactly one row found
// zero.
var ErrNoMatch = errors.New("no match")

// ErrMoreThanOneMatch is returned when a substring lookup is ambiguous.
var ErrMoreThanOneMatch = errors.New("more than one match")

// ValidationError wraps ErrNoMatch/ErrMoreThanOneMatch/etc with the
// entity and needle involved, matching spec.md §4.1's fail set:
// NoMatch, MoreThanOneMatch, ValidationFail, IntegrityConflict.
type ValidationError struct {
	Kind   string // "no_match" | "more_than_one_match" | "validation_fail" | "integrity_conflict"
	Entity string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (%s): %v", e.Kind, e.Entity, e.Reason, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func noMatch(entity string) error {
	return &ValidationError{Kind: "no_match", Entity: entity, Err: ErrNoMatch}
}

func moreThanOneMatch(entity string) error {
	return &ValidationError{Kind: "more_than_one_match", Entity: entity, Err: ErrMoreThanOneMatch}
}

func validationFail(entity, reason string) error {
	return &ValidationError{Kind: "validation_fail", Entity: entity, Reason: reason, Err: errors.New(reason)}
}

func integrityConflict(entity, reason string, cause error) error {
	return &ValidationError{Kind: "integrity_conflict", Entity: entity, Reason: reason, Err: cause}
}
