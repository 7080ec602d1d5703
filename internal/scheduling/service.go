package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/youknownothingjs/ayursutra/internal/redis"
)

const (
	EventAppointmentCreated     = "APPOINTMENT_CREATED"
	EventAppointmentApproved    = "APPOINTMENT_APPROVED"
	EventAppointmentRejected    = "APPOINTMENT_REJECTED"
	EventAppointmentRescheduled = "APPOINTMENT_RESCHEDULED"
	EventAppointmentCancelled   = "APPOINTMENT_CANCELLED"
	EventAppointmentCompleted   = "APPOINTMENT_COMPLETED"
)

var (
	// ErrScheduleBusy means another mutation holds one of the requested
	// resources right now; the caller should retry.
	ErrScheduleBusy = errors.New("resources are being booked, please retry")
)

// Service is the scheduling engine. Every mutating operation that could
// create an overlap runs its conflict check and its write inside one
// resource-set lock section, so the check-then-act sequence cannot race.
type Service struct {
	repo     Repository
	detector *ConflictDetector
	locker   redisclient.Locker
	now      func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker) *Service {
	return &Service{
		repo:     repo,
		detector: NewConflictDetector(repo),
		locker:   locker,
		now:      time.Now,
	}
}

// CreateRequest carries a new booking. Duration zero falls back to the
// therapy catalog default. Confirmed marks a staff-entered booking that
// skips the approval queue. Override forces the booking through a detected
// conflict; the override is recorded in the event payload.
type CreateRequest struct {
	PatientRef      string
	TherapyType     TherapyType
	Date            time.Time
	StartMinute     int
	DurationMinutes int
	ResourceIDs     []string
	Room            string
	Notes           string
	Urgent          bool
	Recurring       bool
	Confirmed       bool
	Override        bool
}

// CreateAppointment validates the request, checks for conflicts under the
// resource lock, and inserts the booking. On conflict without override the
// store is left untouched and the report travels back in a ConflictError.
func (s *Service) CreateAppointment(ctx context.Context, req CreateRequest) (*Appointment, error) {
	duration := req.DurationMinutes
	if duration == 0 {
		if entry, ok := TherapyCatalog[req.TherapyType]; ok {
			duration = entry.DefaultDuration
		}
	}

	appt := &Appointment{
		PatientRef:      req.PatientRef,
		TherapyType:     req.TherapyType,
		Date:            Day(req.Date),
		StartMinute:     req.StartMinute,
		DurationMinutes: duration,
		ResourceIDs:     append([]string(nil), req.ResourceIDs...),
		Room:            req.Room,
		Status:          StatusPending,
		Notes:           req.Notes,
		Urgent:          req.Urgent,
		Recurring:       req.Recurring,
	}
	if req.Confirmed {
		appt.Status = StatusConfirmed
	}

	if err := validateAppointment(appt); err != nil {
		return nil, err
	}

	// Resources must exist before we bother locking them.
	for _, id := range appt.ResourceIDs {
		if _, err := s.repo.GetResource(ctx, id); err != nil {
			if errors.Is(err, ErrResourceNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, id)
			}
			return nil, fmt.Errorf("load resource %s: %w", id, err)
		}
	}

	var created *Appointment

	err := s.locker.WithResourceLock(ctx, appt.ResourceIDs, func(lockCtx context.Context) error {
		report, err := s.detector.Check(lockCtx, appt, nil)
		if err != nil {
			return fmt.Errorf("conflict check: %w", err)
		}
		if report.Conflicting && !req.Override {
			return &ConflictError{Report: report}
		}

		stored, err := s.repo.Insert(lockCtx, appt)
		if err != nil {
			return fmt.Errorf("insert appointment: %w", err)
		}
		created = stored

		s.logEvent(lockCtx, stored.ID, "", stored.Status, EventAppointmentCreated, map[string]any{
			"override": req.Override && report.Conflicting,
			"urgent":   stored.Urgent,
		})
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrScheduleBusy
		}
		return nil, err
	}

	return created, nil
}

// RescheduleAppointment moves a booking to new resources, a new day, or a
// new start. The conflict check excludes the booking itself; on conflict the
// original slot is untouched.
func (s *Service) RescheduleAppointment(ctx context.Context, id uuid.UUID, resourceIDs []string, date time.Time, startMinute int) (*Appointment, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status.Terminal() {
		return nil, &TransitionError{From: current.Status, To: current.Status}
	}

	if len(resourceIDs) == 0 {
		resourceIDs = current.ResourceIDs
	}
	for _, rid := range resourceIDs {
		if _, err := s.repo.GetResource(ctx, rid); err != nil {
			if errors.Is(err, ErrResourceNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, rid)
			}
			return nil, fmt.Errorf("load resource %s: %w", rid, err)
		}
	}

	// Lock the union of old and new resource sets: the move frees the old
	// slots and claims the new ones in one step.
	lockSet := unionIDs(current.ResourceIDs, resourceIDs)

	candidate := *current
	candidate.ResourceIDs = resourceIDs
	candidate.Date = Day(date)
	candidate.StartMinute = startMinute

	var moved *Appointment

	err = s.locker.WithResourceLock(ctx, lockSet, func(lockCtx context.Context) error {
		report, err := s.detector.Check(lockCtx, &candidate, &id)
		if err != nil {
			return fmt.Errorf("conflict check: %w", err)
		}
		if report.Conflicting {
			return &ConflictError{Report: report}
		}

		day := Day(date)
		updated, err := s.repo.Update(lockCtx, id, AppointmentPatch{
			ResourceIDs: resourceIDs,
			Date:        &day,
			StartMinute: &startMinute,
		})
		if err != nil {
			return fmt.Errorf("update appointment: %w", err)
		}
		moved = updated

		s.logEvent(lockCtx, id, current.Status, updated.Status, EventAppointmentRescheduled, map[string]any{
			"date":  day.Format(DateLayout),
			"start": FormatClock(startMinute),
		})
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrScheduleBusy
		}
		return nil, err
	}

	return moved, nil
}

// ApproveAppointment moves a pending booking to confirmed.
func (s *Service) ApproveAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusPending, StatusConfirmed, EventAppointmentApproved, "", "")
}

// RejectAppointment cancels a pending booking, recording the reason.
func (s *Service) RejectAppointment(ctx context.Context, id uuid.UUID, reason string) (*Appointment, error) {
	return s.transition(ctx, id, StatusPending, StatusCancelled, EventAppointmentRejected, reason, "practitioner")
}

// CancelAppointment cancels a pending or confirmed booking with a reason and
// the actor who asked for the cancellation.
func (s *Service) CancelAppointment(ctx context.Context, id uuid.UUID, reason, cancelledBy string) (*Appointment, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != StatusPending && current.Status != StatusConfirmed {
		return nil, &TransitionError{From: current.Status, To: StatusCancelled}
	}
	return s.transition(ctx, id, current.Status, StatusCancelled, EventAppointmentCancelled, reason, cancelledBy)
}

// CompleteAppointment closes out a confirmed session.
func (s *Service) CompleteAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusConfirmed, StatusCompleted, EventAppointmentCompleted, "", "")
}

// DeleteAppointment removes the record entirely. Unlike cancel, nothing is
// preserved.
func (s *Service) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	return s.repo.Remove(ctx, id)
}

// GetAppointment loads one booking.
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

// BatchResult reports the outcome for one id of a bulk operation.
type BatchResult struct {
	ID  uuid.UUID
	OK  bool
	Err error
}

// BulkApprove applies ApproveAppointment to each id independently. A failure
// on one id does not abort or revert the others.
func (s *Service) BulkApprove(ctx context.Context, ids []uuid.UUID) []BatchResult {
	results := make([]BatchResult, 0, len(ids))
	for _, id := range ids {
		_, err := s.ApproveAppointment(ctx, id)
		results = append(results, BatchResult{ID: id, OK: err == nil, Err: err})
	}
	return results
}

// BulkReject applies RejectAppointment to each id independently.
func (s *Service) BulkReject(ctx context.Context, ids []uuid.UUID, reason string) []BatchResult {
	results := make([]BatchResult, 0, len(ids))
	for _, id := range ids {
		_, err := s.RejectAppointment(ctx, id, reason)
		results = append(results, BatchResult{ID: id, OK: err == nil, Err: err})
	}
	return results
}

// transition performs one guarded state-machine edge via a conditional
// store write, so a concurrent transition cannot take the same edge twice.
func (s *Service) transition(ctx context.Context, id uuid.UUID, from, to AppointmentStatus, eventType, reason, by string) (*Appointment, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != from {
		return nil, &TransitionError{From: current.Status, To: to}
	}

	updated, err := s.repo.UpdateStatus(ctx, id, from, to, reason, by)
	if err != nil {
		if errors.Is(err, ErrStaleStatus) {
			return nil, &TransitionError{From: current.Status, To: to}
		}
		return nil, fmt.Errorf("update status: %w", err)
	}

	payload := map[string]any{}
	if reason != "" {
		payload["reason"] = reason
	}
	if by != "" {
		payload["by"] = by
	}
	s.logEvent(ctx, id, from, to, eventType, payload)

	return updated, nil
}

// logEvent persists a state-change event for the notification collaborator.
// Event loss is logged, never propagated: notification is advisory, the
// booking mutation has already committed.
func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, previous, next AppointmentStatus, eventType string, payload map[string]any) {
	payload["event"] = eventType
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("failed to marshal event payload for %s: %v", eventType, err)
		data = nil
	}

	ev := ScheduleEvent{
		AppointmentID:  appointmentID,
		PreviousStatus: previous,
		NewStatus:      next,
		Payload:        data,
		CreatedAt:      s.now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		log.Printf("failed to insert schedule event %s for appointment %s: %v", eventType, appointmentID, err)
	}
}

func unionIDs(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, list := range [][]string{a, b} {
		for _, id := range list {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}
