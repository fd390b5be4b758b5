/*
errors.go - Centralized error types for the engine

PURPOSE:
  All engine error types in one place. The engine never retries and never
  produces partial output: a run either returns a complete Plan or fails
  fast with one of these.

ERROR CATEGORIES:
  1. Validation errors - malformed or empty input (caller's data is wrong)
  2. Optimization errors - the allocation stage could not produce a result

USAGE:
  Callers branch with errors.Is / the helpers below:

    if engine.IsValidation(err) {
        // 400-class problem, nothing was generated
    }
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMissingField is returned when an input record lacks a required
	// field (empty type, negative quantity, negative price).
	ErrMissingField = errors.New("missing or malformed required field")

	// ErrEmptyInput is returned when no sales records remain after the
	// exclusion filters are applied.
	ErrEmptyInput = errors.New("no sales records after filtering")

	// ErrInfeasible is returned when the exact solver reports the
	// allocation problem infeasible and the fallback policy is Fail.
	ErrInfeasible = errors.New("allocation problem infeasible")

	// ErrNoSolver is returned when no allocation strategy is available.
	ErrNoSolver = errors.New("no allocation strategy available")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports invalid input. Field names the offending column
// when known; Record is the zero-based input index, or -1 for batch-level
// failures.
type ValidationError struct {
	Field  string
	Record int
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Record >= 0 {
		return fmt.Sprintf("invalid input: %s (record %d, field %q)", e.Reason, e.Record, e.Field)
	}
	return fmt.Sprintf("invalid input: %s", e.Reason)
}

func (e *ValidationError) Unwrap() error {
	if e.Field != "" {
		return ErrMissingField
	}
	return ErrEmptyInput
}

// OptimizationError reports a failed allocation stage. Wraps the underlying
// solver error when there is one.
type OptimizationError struct {
	Strategy string
	Err      error
}

func (e *OptimizationError) Error() string {
	return fmt.Sprintf("allocation failed (%s): %v", e.Strategy, e.Err)
}

func (e *OptimizationError) Unwrap() error { return e.Err }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsValidation returns true if the error is due to invalid caller input.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsOptimization returns true if the allocation stage failed.
func IsOptimization(err error) bool {
	var oe *OptimizationError
	return errors.As(err, &oe)
}
