// Package apperr defines the error kinds the engine returns at its boundary.
package apperr

import (
	"errors"
	"fmt"
)

// Base error kinds. Callers match them with errors.Is.
var (
	ErrValidation            = errors.New("validation error")
	ErrNotFound              = errors.New("not found")
	ErrConflict              = errors.New("conflict")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrInternalInconsistency = errors.New("internal inconsistency")
)

// Error carries a kind plus the detail needed to report it.
// Field is only set for validation failures.
type Error struct {
	Kind    error
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is implements errors.Is by matching the kind.
func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// Validation reports a malformed or out-of-enum field.
func Validation(field, message string) error {
	return &Error{Kind: ErrValidation, Field: field, Message: message}
}

// NotFound reports an unknown identifier.
func NotFound(what, id string) error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf("%s %q not found", what, id)}
}

// Conflict reports a uniqueness violation.
func Conflict(message string) error {
	return &Error{Kind: ErrConflict, Message: message}
}

// Inconsistency reports a state the closed enumerations should have made impossible.
func Inconsistency(message string) error {
	return &Error{Kind: ErrInternalInconsistency, Message: message}
}

// FieldOf returns the offending field of a validation error, if any.
func FieldOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Field
	}
	return ""
}

// MessageOf returns the human readable detail of err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
