package reservation

import (
	"errors"
	"fmt"
)

// Every failure out of the coordinator is one of three kinds so callers can
// decide what to do with it: fix the input (validation), pick another slot
// (conflict), or retry later (transient).

// ValidationError means the input itself is wrong. Retrying without
// changing it will never succeed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConflictError means the requested slot is already held by another active
// booking. The caller should prompt for a different table or time.
type ConflictError struct {
	TableID string
	Date    string
	Time    string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("table %s is already booked for %s %s", e.TableID, e.Date, e.Time)
}

// TransientError wraps a store/connectivity failure. Safe to retry with
// backoff at the caller's discretion; the coordinator never retries itself.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("store unavailable: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
