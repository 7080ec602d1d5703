package scheduling

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

// Terminal reports whether no further transition is allowed from s.
func (s AppointmentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type ResourceKind string

const (
	KindPractitioner ResourceKind = "practitioner"
	KindRoom         ResourceKind = "room"
	KindEquipment    ResourceKind = "equipment"
)

type ResourceStatus string

const (
	ResourceAvailable   ResourceStatus = "available"
	ResourceBusy        ResourceStatus = "busy"
	ResourceUnavailable ResourceStatus = "unavailable"
)

type TherapyType string

const (
	TherapyPanchakarma TherapyType = "panchakarma"
	TherapyAbhyanga    TherapyType = "abhyanga"
	TherapyShirodhara  TherapyType = "shirodhara"
	TherapyVirechana   TherapyType = "virechana"
	TherapyNasya       TherapyType = "nasya"
	TherapyBasti       TherapyType = "basti"
)

// TherapyCatalog maps each therapy type to a display name and default
// session length in minutes, matching the clinic's booking catalog.
var TherapyCatalog = map[TherapyType]struct {
	Name            string
	DefaultDuration int
}{
	TherapyPanchakarma: {"Panchakarma (Detox Program)", 120},
	TherapyAbhyanga:    {"Abhyanga (Oil Massage)", 60},
	TherapyShirodhara:  {"Shirodhara (Oil Dripping)", 90},
	TherapyVirechana:   {"Virechana (Purgation)", 120},
	TherapyNasya:       {"Nasya (Nasal Therapy)", 45},
	TherapyBasti:       {"Basti (Medicated Enema)", 60},
}

// Resource is a bookable entity: a practitioner, a treatment room, or a unit
// of equipment. IDs are operator-assigned stable slugs such as "vaidya-1" or
// "room-101". Unavailable is an operator override; busy is derived from
// bookings covering the instant the registry is asked about.
type Resource struct {
	ID          string
	Kind        ResourceKind
	DisplayName string
	Status      ResourceStatus
	Specialty   *string // practitioners
	Capacity    *int    // rooms
	Condition   *string // equipment
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Appointment is a scheduled therapy session. Date is a civil day (midnight
// UTC); start and duration are minutes, so the end of the session is always
// StartMinute+DurationMinutes and never stored independently.
type Appointment struct {
	ID              uuid.UUID
	PatientRef      string
	TherapyType     TherapyType
	Date            time.Time
	StartMinute     int
	DurationMinutes int
	ResourceIDs     []string
	Room            string
	Status          AppointmentStatus
	Notes           string
	Urgent          bool
	Recurring       bool
	CancelReason    string
	CancelledBy     string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// EndMinute is the derived end of the session, exclusive.
func (a *Appointment) EndMinute() int {
	return a.StartMinute + a.DurationMinutes
}

// StartAt and EndAt anchor the session's minutes onto its civil day.
func (a *Appointment) StartAt() time.Time {
	return a.Date.Add(time.Duration(a.StartMinute) * time.Minute)
}

func (a *Appointment) EndAt() time.Time {
	return a.Date.Add(time.Duration(a.EndMinute()) * time.Minute)
}

// Covers reports whether the session interval [start, end) contains ts.
func (a *Appointment) Covers(ts time.Time) bool {
	return !ts.Before(a.StartAt()) && ts.Before(a.EndAt())
}

// UsesResource reports whether id is in the appointment's resource set.
func (a *Appointment) UsesResource(id string) bool {
	for _, r := range a.ResourceIDs {
		if r == id {
			return true
		}
	}
	return false
}

// ConflictReport lists, per offending resource, the appointments that
// collide with a candidate booking.
type ConflictReport struct {
	Conflicting bool
	ByResource  map[string][]uuid.UUID
}

// AppointmentIDs returns the distinct colliding appointment ids across all
// resources.
func (r ConflictReport) AppointmentIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, list := range r.ByResource {
		for _, id := range list {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// ScheduleEvent records one appointment state change for the notification
// collaborator. Events are persisted alongside the appointment mutation and
// drained by the notify worker, which stamps DispatchedAt.
type ScheduleEvent struct {
	ID             int64
	AppointmentID  uuid.UUID
	PreviousStatus AppointmentStatus
	NewStatus      AppointmentStatus
	Payload        []byte
	CreatedAt      time.Time
	DispatchedAt   *time.Time
}

// DateLayout is the wire and storage format for civil days.
const DateLayout = "2006-01-02"

// Day truncates ts to its civil day in UTC.
func Day(ts time.Time) time.Time {
	y, m, d := ts.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseClock converts "HH:MM" to minutes from midnight.
func ParseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	return h*60 + m, nil
}

// FormatClock renders minutes from midnight as "HH:MM".
func FormatClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}
