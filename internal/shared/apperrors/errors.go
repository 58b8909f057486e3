package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the booking/payment/ledger core. Services wrap these
// with fmt.Errorf("...: %w", err) and callers match with errors.Is.
var (
	// ErrValidation marks malformed input rejected before any mutation.
	ErrValidation = errors.New("validation error")

	// ErrSlotConflict marks an optimistic-lock loss or interval overlap.
	// Retryable by the caller with fresh data; never retried internally.
	ErrSlotConflict = errors.New("slot conflict")

	// ErrState marks an illegal status transition attempt.
	ErrState = errors.New("illegal state transition")

	// ErrInvalidSignature marks a gateway payload that failed the
	// authenticity check. Never mutates state.
	ErrInvalidSignature = errors.New("invalid gateway signature")

	// ErrInsufficientBalance marks a ledger debit that would go negative.
	// Aborts the whole settlement transaction.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrExternalGateway marks a timeout/5xx from a payment provider API.
	ErrExternalGateway = errors.New("external gateway error")

	// ErrNotFound marks a missing record.
	ErrNotFound = errors.New("record not found")
)

// Validation wraps a field-level validation failure.
func Validation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// SlotConflict wraps a conflict on a specific field/date/interval.
func SlotConflict(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrSlotConflict, fmt.Sprintf(format, args...))
}

// State wraps an illegal transition with its from/to pair.
func State(entity, from, to string) error {
	return fmt.Errorf("%w: %s cannot move from %s to %s", ErrState, entity, from, to)
}

// IsRetryableByClient reports whether the caller should re-fetch and retry.
func IsRetryableByClient(err error) bool {
	return errors.Is(err, ErrSlotConflict)
}
