package scheduling

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed input: non-positive duration, empty
	// resource set, start outside the day, unknown therapy type.
	ErrValidation = errors.New("invalid appointment")

	// ErrStoreUnavailable marks a failure of the backing store. The engine
	// never retries; that policy belongs to the caller.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ConflictError is returned when a create or reschedule collides with
// existing bookings and no override was requested. It carries the full
// report so callers can show the specific colliding appointments.
type ConflictError struct {
	Report ConflictReport
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("scheduling conflict with %d appointment(s)", len(e.Report.AppointmentIDs()))
}

// TransitionError is returned when a status change violates the appointment
// state machine.
type TransitionError struct {
	From AppointmentStatus
	To   AppointmentStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}

// StoreError wraps a backing-store failure with the operation that hit it.
// It matches ErrStoreUnavailable under errors.Is while preserving the cause.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *StoreError) Unwrap() error { return e.Err }
func (e *StoreError) Is(target error) bool {
	return target == ErrStoreUnavailable
}
