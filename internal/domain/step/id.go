package step

import (
	"errors"
	"regexp"
	"strings"
)

// ID uniquely identifies a step within an orchestration run.
// Format: segments separated by colons (e.g., "upgrade:source:UA0002").
type ID struct {
	value string
}

// Errors for ID validation.
var (
	ErrEmptyID   = errors.New("step ID cannot be empty")
	ErrInvalidID = errors.New("step ID format invalid: must be alphanumeric with colons, dots, hyphens, underscores, or slashes")
)

// idPattern validates step ID format.
// Segments start with an alphanumeric and are separated by single colons.
var idPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_./-]*(?::[a-zA-Z0-9][a-zA-Z0-9_./-]*)*$`)

// NewID creates a new ID from a string.
func NewID(value string) (ID, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ID{}, ErrEmptyID
	}

	if !idPattern.MatchString(trimmed) {
		return ID{}, ErrInvalidID
	}

	return ID{value: trimmed}, nil
}

// MustNewID creates a new ID from a string, panicking on error.
// Use this for compile-time known values that should never fail validation.
func MustNewID(value string) ID {
	id, err := NewID(value)
	if err != nil {
		panic("invalid step ID: " + value + ": " + err.Error())
	}
	return id
}

// String returns the string representation.
func (id ID) String() string {
	return id.value
}

// Equals checks equality with another ID.
func (id ID) Equals(other ID) bool {
	return id.value == other.value
}

// Group extracts the first segment.
func (id ID) Group() string {
	parts := strings.SplitN(id.value, ":", 2)
	return parts[0]
}

// Child returns a new ID with segment appended.
func (id ID) Child(segment string) (ID, error) {
	return NewID(id.value + ":" + segment)
}

// IsZero returns true if this is a zero-value ID.
func (id ID) IsZero() bool {
	return id.value == ""
}
