// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an upstream API answers 404 for a resource lookup.
	ErrNotFound = errors.New("resource not found")
	// ErrUserNotFound is returned when the configured GitHub user does not exist.
	ErrUserNotFound = errors.New("github user not found")
)

// ErrMissingConfig is returned when a required configuration key is empty.
type ErrMissingConfig struct {
	Key string
}

func (e *ErrMissingConfig) Error() string {
	return fmt.Sprintf("%s is a required configuration field", e.Key)
}

// ErrInvalidStats is returned when a stats payload fails shape or invariant checks.
type ErrInvalidStats struct {
	Field  string
	Reason string
}

func (e *ErrInvalidStats) Error() string {
	return fmt.Sprintf("invalid stats field %q: %s", e.Field, e.Reason)
}
