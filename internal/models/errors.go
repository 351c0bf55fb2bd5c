package models

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Error kinds. Wrap them with fmt.Errorf("...: %w", ErrX) and test with errors.Is.
var (
	// ErrValidation reports malformed or empty input, or out-of-range configuration.
	ErrValidation = errors.New("validation error")
	// ErrDimensionMismatch reports an embedding whose size differs from the index dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrNotFound reports a reference to an unknown document.
	ErrNotFound = errors.New("not found")
	// ErrCapacityExceeded reports a rate limiter denial. It is expected control flow.
	ErrCapacityExceeded = errors.New("rate limit exceeded")
	// ErrIndexCorruption reports a violated internal invariant, e.g. a posting without its chunk.
	ErrIndexCorruption = errors.New("index corruption")
)

// Validationf returns an ErrValidation with a formatted detail message.
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundf returns an ErrNotFound with a formatted detail message.
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// DimensionMismatch returns an ErrDimensionMismatch describing the sizes involved.
func DimensionMismatch(got, want int) error {
	return fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, got, want)
}

// Corruptionf returns an ErrIndexCorruption with a formatted detail message.
func Corruptionf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrIndexCorruption, fmt.Sprintf(format, args...))
}

// ErrorKind maps err to a stable kind name used by metrics and transports.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrDimensionMismatch):
		return "dimension_mismatch"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrCapacityExceeded):
		return "capacity_exceeded"
	case errors.Is(err, ErrIndexCorruption):
		return "index_corruption"
	default:
		return "internal"
	}
}

func isBlank(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return !unicode.IsSpace(r) }) < 0
}
