// Package errors provides custom error types for the cardmap system.
// The reconciliation engine never aborts a run because of one bad record
// or one bad cluster; these types let callers distinguish the failure
// classes programmatically (structural failures, validation rejections,
// merge conflicts) and decide what belongs in the audit trail.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Join is an alias for the standard library errors.Join.
var Join = errors.Join

// Is is an alias for the standard library errors.Is.
var Is = errors.Is

// As is an alias for the standard library errors.As.
var As = errors.As

// Common sentinel errors for the cardmap system
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates that a resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrStructural indicates a raw record that cannot be parsed into
	// any known source record shape
	ErrStructural = errors.New("structural failure")

	// ErrRejected indicates a draft that failed a business rule
	ErrRejected = errors.New("rejected")

	// ErrMergeConflict indicates a cluster that produced contradictory
	// or out-of-range canonical values after merge
	ErrMergeConflict = errors.New("merge conflict")

	// ErrReadOnly indicates an attempt to modify a read-only resource
	ErrReadOnly = errors.New("read only")
)

// StructuralError represents a raw record that could not be coerced into
// a source record shape at all. Fatal for that single record only; the
// run continues.
type StructuralError struct {
	Source  string // source tag, if known
	Key     string // source-native id or name, if recoverable
	Message string
	Err     error
}

// Error implements the error interface
func (e *StructuralError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("structural failure in %s record %s: %s", e.Source, e.Key, e.Message)
	}
	return fmt.Sprintf("structural failure in %s record: %s", e.Source, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *StructuralError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *StructuralError) Is(target error) bool {
	return target == ErrStructural
}

// NewStructuralError creates a new StructuralError
func NewStructuralError(source, key, message string, err error) *StructuralError {
	return &StructuralError{Source: source, Key: key, Message: message, Err: err}
}

// RejectionError represents a draft with a valid shape that failed one or
// more business rules. Recorded in the audit log, excluded from
// clustering; never fatal for the run.
type RejectionError struct {
	Source string
	Key    string
	Rules  []string
}

// Error implements the error interface
func (e *RejectionError) Error() string {
	return fmt.Sprintf("draft %s from %s rejected: %s", e.Key, e.Source, strings.Join(e.Rules, ", "))
}

// Is implements errors.Is support
func (e *RejectionError) Is(target error) bool {
	return target == ErrRejected
}

// MergeConflictError represents a cluster whose merged output failed
// post-merge validation. Only that cluster's output is rejected; other
// clusters proceed independently.
type MergeConflictError struct {
	CardID  string
	Sources []string
	Reasons []string
}

// Error implements the error interface
func (e *MergeConflictError) Error() string {
	if e.CardID != "" {
		return fmt.Sprintf("merge conflict for %s (sources %v): %s", e.CardID, e.Sources, strings.Join(e.Reasons, ", "))
	}
	return fmt.Sprintf("merge conflict (sources %v): %s", e.Sources, strings.Join(e.Reasons, ", "))
}

// Is implements errors.Is support
func (e *MergeConflictError) Is(target error) bool {
	return target == ErrMergeConflict
}

// ValidationError represents a configuration or argument validation failure.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "json", "yaml"
	File    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "create", "open"
	Path      string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("IO error during %s: %v", e.Operation, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// Helper functions for error checking

// IsStructural checks if an error is a structural record failure
func IsStructural(err error) bool {
	return errors.Is(err, ErrStructural)
}

// IsRejection checks if an error is a validation rejection
func IsRejection(err error) bool {
	return errors.Is(err, ErrRejected)
}

// IsMergeConflict checks if an error is a merge conflict
func IsMergeConflict(err error) bool {
	return errors.Is(err, ErrMergeConflict)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// Helper wrapping functions for common patterns

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return &ParseError{Format: format, File: file, Message: err.Error(), Err: err}
}

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Operation: operation, Path: path, Err: err}
}
