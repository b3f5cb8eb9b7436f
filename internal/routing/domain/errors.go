package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrWindowNotFound is returned when an assignment window does not exist.
	ErrWindowNotFound = errors.New("assignment window not found")
	// ErrOverrideNotFound is returned when a routing override does not exist.
	ErrOverrideNotFound = errors.New("routing override not found")
	// ErrThreadNotFound is returned when a thread does not exist.
	ErrThreadNotFound = errors.New("thread not found")
)

// ValidationError describes a rejected input with enough context for the
// caller to fix it.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for a field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
