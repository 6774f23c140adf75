package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for validation failures.
var (
	ErrEmptyName     = errors.New("name is empty")
	ErrBadDate       = errors.New("malformed date")
	ErrEmptyQuestion = errors.New("question is empty")
)

// ValidationError wraps a sentinel with the offending field and row.
type ValidationError struct {
	Row     int
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
	}
	return fmt.Sprintf("validation: row %d: %s: %s (value=%q)", e.Row, e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError. Use row -1 when the value
// does not come from a dataset row.
func NewValidationError(row int, field, value string, wrapped error) *ValidationError {
	return &ValidationError{Row: row, Field: field, Value: value, Wrapped: wrapped}
}

// MissingColumnsError reports dataset columns that are required but absent.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return "dataset is missing required columns: " + strings.Join(e.Columns, ", ")
}
