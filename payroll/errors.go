/*
errors.go - Centralized error types for the payroll engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Rendering, delivery and storage packages wrap these with context.

ERROR CATEGORIES:
  1. Not found - no eligible employees, missing artifacts or rows
  2. Validation - malformed aggregation or rendering inputs
  3. Delivery - mail transport failures (retryable)
  4. Ledger - idempotency insert races and key misuse

USAGE:
  if errors.Is(err, payroll.ErrNotFound) {
      // 404
  }

SEE ALSO:
  - api/handlers.go: maps these onto HTTP statuses
  - idempotency/guard.go: treats ErrPersistenceConflict as a lost race
*/
package payroll

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is the root of every "does not exist" condition.
	ErrNotFound = errors.New("not found")

	// ErrNoEmployees is returned when a manager has no direct reports.
	ErrNoEmployees = fmt.Errorf("no employees for this manager: %w", ErrNotFound)

	// ErrArtifactNotFound is returned when a generated file is missing.
	ErrArtifactNotFound = fmt.Errorf("artifact: %w", ErrNotFound)

	// ErrValidation is the root of malformed-input conditions.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = fmt.Errorf("invalid period: %w", ErrValidation)

	// ErrTransientDelivery is returned when mail transport fails in a way
	// that may succeed on retry.
	ErrTransientDelivery = errors.New("transient delivery failure")

	// ErrDuplicateRecord is returned when a write violates a uniqueness
	// invariant: one vacation per (employee, start, end), one work-log entry
	// per (employee, date), unique employee email/code/personal id.
	ErrDuplicateRecord = errors.New("duplicate record")

	// ErrPersistenceConflict is returned by ledger stores when the unique
	// key insert loses a race. Never surfaced to API callers.
	ErrPersistenceConflict = errors.New("idempotency record already exists")

	// ErrKeyReuse is returned in strict mode when a key recorded for one
	// operation is presented to another.
	ErrKeyReuse = errors.New("idempotency key reused for a different operation")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// DeliveryError reports a recipient that could not be mailed after retries.
// Permanent failures (5xx replies) do not match ErrTransientDelivery.
type DeliveryError struct {
	Recipient string
	Attempts  int
	Permanent bool
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery to %s failed after %d attempt(s): %v", e.Recipient, e.Attempts, e.Err)
}

func (e *DeliveryError) Unwrap() []error {
	if e.Permanent {
		return []error{e.Err}
	}
	return []error{ErrTransientDelivery, e.Err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransientDelivery)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrKeyReuse) ||
		errors.Is(err, ErrDuplicateRecord)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
