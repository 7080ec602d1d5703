package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrResourceNotFound    = errors.New("resource not found")

	// ErrStaleStatus is returned by a conditional status update when the
	// record is no longer in the expected source state.
	ErrStaleStatus = errors.New("appointment status changed")
)

// ResourceFilter narrows a registry listing. Nil fields match everything.
type ResourceFilter struct {
	Kind   *ResourceKind
	Status *ResourceStatus
}

// AppointmentPatch carries the fields an update may change. Nil fields are
// left untouched. The end of a session is derived, so a patch can only move
// the start or stretch the duration.
type AppointmentPatch struct {
	PatientRef      *string
	TherapyType     *TherapyType
	Date            *time.Time
	StartMinute     *int
	DurationMinutes *int
	ResourceIDs     []string
	Room            *string
	Status          *AppointmentStatus
	Notes           *string
	Urgent          *bool
	Recurring       *bool
	CancelReason    *string
	CancelledBy     *string
}

// AppointmentStore is the authoritative collection of appointments. Range
// reads re-query the backing store on every call; there is no cursor state.
// Insert/Update/Remove must each be atomic with respect to concurrent calls.
type AppointmentStore interface {
	Insert(ctx context.Context, a *Appointment) (*Appointment, error)
	Update(ctx context.Context, id uuid.UUID, patch AppointmentPatch) (*Appointment, error)
	Remove(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// UpdateStatus moves an appointment from one status to another in a
	// single conditional write, recording an optional cancellation reason
	// and actor. Returns ErrStaleStatus when the record is not in `from`.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus, reason, by string) (*Appointment, error)

	// FindByResourceAndRange returns appointments whose civil day falls in
	// [from, to] and whose resource set contains resourceID.
	FindByResourceAndRange(ctx context.Context, resourceID string, from, to time.Time) ([]Appointment, error)
	FindByStatus(ctx context.Context, status AppointmentStatus) ([]Appointment, error)

	// Range reads without a resource filter, for month projections and stats.
	FindByRange(ctx context.Context, from, to time.Time) ([]Appointment, error)
}

// ResourceStore holds the registry's bookable entities.
type ResourceStore interface {
	ListResources(ctx context.Context, filter ResourceFilter) ([]Resource, error)
	GetResource(ctx context.Context, id string) (*Resource, error)
	SetResourceStatus(ctx context.Context, id string, status ResourceStatus) (*Resource, error)
	UpsertResource(ctx context.Context, r *Resource) error
}

// EventStore persists state-change events for the notification collaborator.
type EventStore interface {
	InsertEvent(ctx context.Context, ev ScheduleEvent) error
	FindUndispatched(ctx context.Context, limit int) ([]ScheduleEvent, error)
	MarkDispatched(ctx context.Context, id int64, at time.Time) error
}

// Repository bundles the three stores the engine and workers need.
type Repository interface {
	AppointmentStore
	ResourceStore
	EventStore
}
