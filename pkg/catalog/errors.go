package catalog

import (
	"errors"
	"fmt"
	"io/fs"
)

const (
	ErrorStorageUnavailable = "storage_unavailable"
	ErrorMalformedEntry     = "malformed_entry"
	ErrorInvalidName        = "invalid_name"
)

// Error represents a stable, categorized catalog failure.
type Error struct {
	Category string
	Detail   string

	cause error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Detail == "" {
		return e.Category
	}

	return fmt.Sprintf("%s: %s", e.Category, e.Detail)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// NewError creates a categorized catalog error.
func NewError(category string, detail string) error {
	return &Error{Category: category, Detail: detail}
}

// CategoryFromError returns the stable category for an error when available.
// Uncategorized I/O failures count as storage_unavailable.
func CategoryFromError(err error) string {
	if err == nil {
		return ""
	}

	var categorized *Error
	if errors.As(err, &categorized) {
		return categorized.Category
	}

	return ErrorStorageUnavailable
}

// storageError wraps a backend failure, keeping the path error text short.
func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrPermission) {
		return &Error{Category: ErrorStorageUnavailable, Detail: op + ": operation not permitted", cause: err}
	}

	return &Error{Category: ErrorStorageUnavailable, Detail: fmt.Sprintf("%s: %v", op, err), cause: err}
}
