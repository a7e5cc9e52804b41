package errors

import (
	"errors"
	"fmt"
	"os"

	"github.com/julianstephens/dayledger/internal/logger"
)

var (
	// ErrNotFound is returned when a referenced habit, task, goal or record is absent.
	ErrNotFound = errors.New("not found")
	// ErrInvariant is returned when an entity violates one of its declared invariants.
	ErrInvariant = errors.New("invariant violation")
	// ErrTransient wraps store failures that are safe to retry verbatim.
	ErrTransient = errors.New("transient store failure")
)

// InvariantError describes which entity field was rejected and why.
type InvariantError struct {
	Entity string
	Field  string
	Reason string
}

func (e *InvariantError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s: %s", ErrInvariant, e.Entity, e.Reason)
	}
	return fmt.Sprintf("%s: %s.%s %s", ErrInvariant, e.Entity, e.Field, e.Reason)
}

func (e *InvariantError) Unwrap() error {
	return ErrInvariant
}

// Invariant builds an InvariantError.
func Invariant(entity, field, reason string) error {
	return &InvariantError{Entity: entity, Field: field, Reason: reason}
}

// NotFound wraps ErrNotFound with the entity kind and key.
func NotFound(entity, key string) error {
	return fmt.Errorf("%s %q: %w", entity, key, ErrNotFound)
}

// Transient wraps err so that IsTransient reports true.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvariant reports whether err is or wraps ErrInvariant.
func IsInvariant(err error) bool {
	return errors.Is(err, ErrInvariant)
}

// IsTransient reports whether err is or wraps ErrTransient.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}

// Fatalf logs and formats an error message, then exits the program with exit code 1
func Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logger.Error("Command execution failed", "error", msg)
	fmt.Fprintf(os.Stderr, "%s\n", Formatf(format, args...))
	os.Exit(1)
}
