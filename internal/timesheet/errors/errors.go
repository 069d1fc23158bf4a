// Package errors defines the error taxonomy of the workflow engine.
// Callers distinguish the four recoverable kinds (validation, authorization,
// conflict, not-found) with errors.Is / errors.As; nothing is logged and
// swallowed internally.
package errors

import (
	"fmt"
	"strings"
)

var (
	// ErrNotFound marks a referenced entry, user or company that does not
	// exist or is not visible to the actor.
	ErrNotFound = fmt.Errorf("not found")
	// ErrForbidden marks a transition or edit the actor is not permitted
	// to perform. Never retried.
	ErrForbidden = fmt.Errorf("permission denied")
	// ErrUnauthorized marks a request with missing or invalid credentials.
	ErrUnauthorized = fmt.Errorf("unauthorized")
	// ErrConflict marks an optimistic-concurrency failure: the entry's
	// state changed between read and write. The caller may re-fetch and
	// retry once; the engine never retries on its own.
	ErrConflict = fmt.Errorf("conflict with current state")
	// ErrInvalidInput marks malformed input shape, a programmer or client
	// error distinct from a business-rule violation.
	ErrInvalidInput = fmt.Errorf("invalid input")
)

// FieldError is a single business-rule violation on one entry field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates the field-level failures of one entry.
// It is returned whole so the caller can surface every violation at once.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Validation wraps a non-empty list of field errors into a
// ValidationError. It panics on an empty list, which would indicate a
// caller bug.
func Validation(fields []FieldError) error {
	if len(fields) == 0 {
		panic("errors: Validation called with no field errors")
	}
	return &ValidationError{Fields: fields}
}
