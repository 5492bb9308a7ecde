package models

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors
var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("transaction not found")
	ErrDuplicateID        = errors.New("transaction id already exists")
	ErrMissingColumns     = errors.New("missing required columns")
	ErrPriceUnavailable   = errors.New("price unavailable")
	ErrFXUnavailable      = errors.New("fx rate unavailable")
	ErrHistoryUnavailable = errors.New("price history unavailable")
)

// ValidationError names the offending field of a rejected entry.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// StoreError is a persistence failure with the record identity it concerned.
type StoreError struct {
	Op     string // list, create, update, delete
	UserID string
	ID     string
	Err    error
}

func (e *StoreError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("store %s (user %s): %v", e.Op, e.UserID, e.Err)
	}
	return fmt.Sprintf("store %s (user %s, id %s): %v", e.Op, e.UserID, e.ID, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// ImportError rejects a CSV file wholesale. Row is 1-based over data rows, 0
// for header problems.
type ImportError struct {
	Row     int
	Missing []string
	Err     error
}

func (e *ImportError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("import rejected: missing columns %s", strings.Join(e.Missing, ", "))
	}
	if e.Row > 0 {
		return fmt.Sprintf("import rejected: row %d: %v", e.Row, e.Err)
	}
	return fmt.Sprintf("import rejected: %v", e.Err)
}

func (e *ImportError) Unwrap() error {
	if len(e.Missing) > 0 {
		return ErrMissingColumns
	}
	return e.Err
}
