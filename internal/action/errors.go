package action

import (
	"errors"
	"fmt"
)

// ErrUnknownKind is wrapped by the ValidationError returned for kinds outside
// the canonical set.
var ErrUnknownKind = errors.New("unknown action")

// ValidationError reports a proposal that cannot be executed as given.
type ValidationError struct {
	Kind   Kind
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	switch {
	case errors.Is(e.Err, ErrUnknownKind):
		return fmt.Sprintf("%v: %q", ErrUnknownKind, string(e.Kind))
	case e.Reason != "":
		return fmt.Sprintf("%s: invalid %s: %s", e.Kind, e.Field, e.Reason)
	default:
		return fmt.Sprintf("%s: %s is required", e.Kind, e.Field)
	}
}

func (e *ValidationError) Unwrap() error { return e.Err }

func missing(kind Kind, field string) error {
	return &ValidationError{Kind: kind, Field: field}
}

func invalid(kind Kind, field string, err error) error {
	return &ValidationError{Kind: kind, Field: field, Reason: err.Error(), Err: err}
}

// ExhaustedError reports a pointer action that failed on every coordinate it tried.
type ExhaustedError struct {
	Kind     Kind
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: all %d attempts failed", e.Kind, e.Attempts)
	}
	return fmt.Sprintf("%s: all %d attempts failed: %v", e.Kind, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }
