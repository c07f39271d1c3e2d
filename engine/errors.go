/*
errors.go - Centralized error types for the booking and payroll engine

PURPOSE:

	All typed errors in one place. Components translate store failures and
	invariant violations into these; infrastructure errors propagate
	unchanged.

ERROR CATEGORIES:
 1. Conflict errors   - slot taken, block overlap (retryable: re-fetch slots)
 2. Lock errors       - pay period finalized (terminal for the mutation)
 3. Validation errors - malformed input, rejected before any store access

USAGE:

	if errors.Is(err, engine.ErrPeriodLocked) {
	    // route the caller to the adjustment workflow
	}
*/
package engine

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrSlotConflict is returned when the requested interval is no
	// longer available. Retryable: the caller should re-fetch slots.
	ErrSlotConflict = errors.New("slot conflict")

	// ErrPeriodLocked is returned when a mutation's effect falls inside
	// a finalized pay period. Not retryable; corrections go through the
	// adjustment workflow.
	ErrPeriodLocked = errors.New("pay period locked")

	// ErrAlreadyFinalized is returned when finalizing a period twice.
	// Idempotent no-op from the caller's perspective.
	ErrAlreadyFinalized = errors.New("pay period already finalized")

	// ErrValidation is returned for malformed input, before any store access.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a referenced record doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned for disallowed status transitions
	// (cancelled and completed are terminal).
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrDuplicateEntry is returned when a second commission entry would
	// be created for the same booking.
	ErrDuplicateEntry = errors.New("commission entry already exists for booking")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ConflictError reports why a requested interval cannot be booked.
type ConflictError struct {
	SalesmanID SalesmanID
	Start      time.Time
	End        time.Time
	Reason     string // "slot_unavailable", "overlapping_block", "superseded"
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("slot conflict for %s [%s, %s): %s",
		e.SalesmanID, e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339), e.Reason)
}

func (e *ConflictError) Unwrap() error { return ErrSlotConflict }

// PeriodLockedError identifies which finalized period blocked a mutation.
type PeriodLockedError struct {
	PeriodStart time.Time
}

func (e *PeriodLockedError) Error() string {
	return fmt.Sprintf("pay period starting %s is finalized", e.PeriodStart.Format("2006-01-02"))
}

func (e *PeriodLockedError) Unwrap() error { return ErrPeriodLocked }

// AlreadyFinalizedError reports a repeated finalize call.
type AlreadyFinalizedError struct {
	PeriodStart time.Time
}

func (e *AlreadyFinalizedError) Error() string {
	return fmt.Sprintf("pay period starting %s was already finalized", e.PeriodStart.Format("2006-01-02"))
}

func (e *AlreadyFinalizedError) Unwrap() error { return ErrAlreadyFinalized }

// ValidationError reports malformed input on a specific field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// =============================================================================
// DUPLICATE CLIENT WARNING - Advisory, not an error
// =============================================================================

// DuplicateClientWarning tells the caller an existing client was matched
// and attached instead of creating a new one. The booking still
// proceeds; this is advisory only, which is why it is returned as a
// value alongside the booking rather than as an error.
type DuplicateClientWarning struct {
	ClientID  ClientID
	MatchedOn string // "email" or "phone"
}

func (w *DuplicateClientWarning) String() string {
	return fmt.Sprintf("existing client %s matched on %s", w.ClientID, w.MatchedOn)
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the caller may succeed by re-fetching
// slots and retrying.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrSlotConflict)
}

// IsClientError returns true if the error is due to the caller's input
// rather than an infrastructure failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrSlotConflict) ||
		errors.Is(err, ErrPeriodLocked) ||
		errors.Is(err, ErrAlreadyFinalized) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrDuplicateEntry)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
