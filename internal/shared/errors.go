package shared

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound indicates the referenced record does not exist or is inactive.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a unique constraint violation (duplicate SKU, barcode, email).
	ErrConflict = errors.New("conflict")
	// ErrInsufficientStock indicates a decrement that would leave a negative quantity.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// ValidationError aggregates per-field messages so the caller sees every
// failing field at once instead of one at a time.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError returns an empty ValidationError ready for Add.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

// Add records a message for a field. The first message per field wins.
func (e *ValidationError) Add(field, message string) {
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = message
	}
}

// Empty reports whether any field failed.
func (e *ValidationError) Empty() bool {
	return e == nil || len(e.Fields) == 0
}

// Err returns the error itself, or nil when no field failed.
func (e *ValidationError) Err() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	if e.Empty() {
		return "validation failed"
	}
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+e.Fields[field])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
