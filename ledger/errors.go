/*
errors.go - Centralized error types for the ledger engines

PURPOSE:
  All error types in one place for consistency and discoverability.
  Engine packages wrap these errors with additional context.

ERROR CATEGORIES:
  1. Validation errors - Rejected before any write; caller fixes input
  2. Not-found errors  - A referenced record does not exist; no write happened
  3. Conflict errors   - A concurrent actor won; caller re-fetches and retries
  4. Storage errors    - The transactional batch failed; whole operation is
     retryable and guaranteed to have left no partial state

Low-stock conditions are NOT errors: production is never blocked by stock,
so they travel as warning values alongside a successful result.

USAGE:
  if ledger.IsConflict(err) {
      // re-fetch, re-preview, retry
  }
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the base class for input that fails domain rules.
	ErrValidation = errors.New("validation failed")

	// ErrWorkerNotFound / ErrRateNotFound / ErrItemNotFound are returned when
	// a referenced directory record does not exist. Nothing was written.
	ErrWorkerNotFound = errors.New("worker not found")
	ErrRateNotFound   = errors.New("rate not found")
	ErrItemNotFound   = errors.New("inventory item not found")

	ErrLogNotFound         = errors.New("production log not found")
	ErrDeductionNotFound   = errors.New("deduction not found")
	ErrRunNotFound         = errors.New("payroll run not found")
	ErrTransactionNotFound = errors.New("inventory transaction not found")

	// ErrLogLocked is returned when editing or deleting a log that a
	// finalized payroll run has already consumed.
	ErrLogLocked = errors.New("production log is locked by a payroll run")

	// ErrAlreadySettled is returned when a finalize loses the race for a log
	// or deduction it intended to lock. The whole finalize aborts.
	ErrAlreadySettled = errors.New("record already settled by another payroll run")

	// ErrAlreadyCompensated is returned when a journal entry already has a
	// compensating counter-entry.
	ErrAlreadyCompensated = errors.New("transaction already compensated")

	// ErrDuplicateIdempotencyKey is returned when a journal write carries an
	// idempotency key that was seen before. Expected behavior for retries.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	// ErrStorage wraps a failed transactional batch. Guaranteed: no partial
	// state is observable. Safe to retry the whole operation.
	ErrStorage = errors.New("storage failure")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports which input violated which rule.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid builds a ValidationError. Shorthand used throughout the engines.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// SettlementConflictError reports which record lost the settlement race.
type SettlementConflictError struct {
	Kind string // "log" or "deduction"
	ID   string
}

func (e *SettlementConflictError) Error() string {
	return fmt.Sprintf("%s %s already settled by another payroll run", e.Kind, e.ID)
}

func (e *SettlementConflictError) Unwrap() error { return ErrAlreadySettled }

// StorageError wraps a lower-level database failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *StorageError) Unwrap() error { return ErrStorage }

// =============================================================================
// ERROR CLASSIFIERS
// =============================================================================

// IsClientError returns true if the caller should fix the input and retry.
// No side effects occurred.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrDuplicateIdempotencyKey) ||
		errors.Is(err, ErrAlreadyCompensated)
}

// IsNotFound returns true if a referenced record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrWorkerNotFound) ||
		errors.Is(err, ErrRateNotFound) ||
		errors.Is(err, ErrItemNotFound) ||
		errors.Is(err, ErrLogNotFound) ||
		errors.Is(err, ErrDeductionNotFound) ||
		errors.Is(err, ErrRunNotFound) ||
		errors.Is(err, ErrTransactionNotFound)
}

// IsConflict returns true if a concurrent actor won; re-fetch and retry
// with fresh data.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadySettled) || errors.Is(err, ErrLogLocked)
}

// IsRetryable returns true if the whole operation may be retried as-is.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorage)
}
