package store

import (
	"errors"
	"fmt"
)

// Domain error kinds. Backends and validators wrap these with %w so
// callers can classify failures with errors.Is without depending on
// engine-specific error types.
var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateSlug     = errors.New("slug already in use")
	ErrValidation        = errors.New("validation failed")
	ErrForbidden         = errors.New("forbidden")
	ErrResourceExhausted = errors.New("resource exhausted")
	ErrUnavailable       = errors.New("backend unavailable")
)

// NotFoundf wraps ErrNotFound with context.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Invalidf wraps ErrValidation with context.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Unavailablef wraps ErrUnavailable around an underlying engine error.
func Unavailablef(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}
