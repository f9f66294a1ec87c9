// Package errors consolidates error definitions for the flowscope project.
//
// This file provides:
// - Sentinel errors for all error conditions
// - Error category checking functions
// - Error wrapping utilities
//
// The load pipeline distinguishes two severities. Fatal errors abort a load
// as a whole (no engine is produced). Recoverable conditions never surface
// as errors at all: they are conformed away by the aligner and reported
// through the diagnostics channel instead.
package errors

import (
	"errors"
	"fmt"
)

// ============================================================================
// Sentinel errors
// ============================================================================

var (
	// Fatal load errors
	ErrGridUnestablished = errors.New("no series established a timestamp grid")
	ErrStaleLoad         = errors.New("load superseded by a newer selection")
	ErrEmptyTopology     = errors.New("topology has no links")

	// Resource errors (recoverable inside a load once a grid exists;
	// the aligner substitutes zeros and reports a diagnostic)
	ErrResourceUnavailable = errors.New("resource unavailable")
	ErrMalformedPayload    = errors.New("malformed payload")
	ErrEmptySeries         = errors.New("series has no samples")

	// Validation errors
	ErrInvalidSelection = errors.New("invalid selection")
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrInvalidTopology  = errors.New("invalid topology")
	ErrInvalidManifest  = errors.New("invalid manifest")
	ErrMissingField     = errors.New("missing required field")

	// Engine errors
	ErrNoStore = errors.New("no series store committed")
)

// ============================================================================
// Helper functions for error checking
// ============================================================================

// Is is a convenience wrapper for errors.Is
var Is = errors.Is

// As is a convenience wrapper for errors.As
var As = errors.As

// IsFatal returns true if err aborts a load as a whole.
func IsFatal(err error) bool {
	return errors.Is(err, ErrGridUnestablished) ||
		errors.Is(err, ErrStaleLoad) ||
		errors.Is(err, ErrEmptyTopology)
}

// IsResource returns true if err describes an unusable resource. A resource
// error is recoverable whenever a grid is already established.
func IsResource(err error) bool {
	return errors.Is(err, ErrResourceUnavailable) ||
		errors.Is(err, ErrMalformedPayload) ||
		errors.Is(err, ErrEmptySeries)
}

// IsValidation returns true if err is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidSelection) ||
		errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrInvalidTopology) ||
		errors.Is(err, ErrInvalidManifest) ||
		errors.Is(err, ErrMissingField)
}

// ============================================================================
// Error wrapping utilities
// ============================================================================

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// ============================================================================
// Error constructors with context
// ============================================================================

// NewUnavailable creates a resource-unavailable error with context.
func NewUnavailable(resource string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%s: %w", resource, ErrResourceUnavailable)
	}
	return fmt.Errorf("%s: %v: %w", resource, cause, ErrResourceUnavailable)
}

// NewMalformed creates a malformed-payload error with context.
func NewMalformed(resource, reason string) error {
	return fmt.Errorf("%s: %s: %w", resource, reason, ErrMalformedPayload)
}

// NewValidation creates a validation error with context.
func NewValidation(field, reason string) error {
	return fmt.Errorf("invalid %s: %s: %w", field, reason, ErrInvalidConfig)
}

// NewMissingField creates a missing field error.
func NewMissingField(field string) error {
	return fmt.Errorf("%s: %w", field, ErrMissingField)
}

// ============================================================================
// Validation Errors Collection
// ============================================================================

// ValidationErrors collects multiple validation errors.
type ValidationErrors struct {
	Errors []error
}

// NewValidationErrors creates a new ValidationErrors collector.
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{}
}

// Add adds an error to the collection.
func (v *ValidationErrors) Add(err error) {
	if err != nil {
		v.Errors = append(v.Errors, err)
	}
}

// AddField adds a field validation error.
func (v *ValidationErrors) AddField(field, reason string) {
	v.Errors = append(v.Errors, NewValidation(field, reason))
}

// AddMissing adds a missing field error.
func (v *ValidationErrors) AddMissing(field string) {
	v.Errors = append(v.Errors, NewMissingField(field))
}

// HasErrors returns true if there are any errors.
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// Error implements the error interface.
func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return ""
	}
	if len(v.Errors) == 1 {
		return v.Errors[0].Error()
	}

	msg := fmt.Sprintf("validation failed with %d errors:", len(v.Errors))
	for _, err := range v.Errors {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// Err returns nil if no errors, otherwise returns the ValidationErrors.
func (v *ValidationErrors) Err() error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v
}

// Unwrap returns the first error for errors.Is/As support.
func (v *ValidationErrors) Unwrap() error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v.Errors[0]
}
