package scheduling

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// validateAppointment enforces the store's record invariants: a session must
// have positive length, at least one resource, and start within its day.
func validateAppointment(a *Appointment) error {
	if a.DurationMinutes <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %d", ErrValidation, a.DurationMinutes)
	}
	if len(a.ResourceIDs) == 0 {
		return fmt.Errorf("%w: at least one resource is required", ErrValidation)
	}
	if a.StartMinute < 0 || a.StartMinute >= 24*60 {
		return fmt.Errorf("%w: start minute %d outside the day", ErrValidation, a.StartMinute)
	}
	if a.EndMinute() > 24*60 {
		return fmt.Errorf("%w: session runs past midnight", ErrValidation)
	}
	if a.PatientRef == "" {
		return fmt.Errorf("%w: patient reference is required", ErrValidation)
	}
	if _, ok := TherapyCatalog[a.TherapyType]; !ok {
		return fmt.Errorf("%w: unknown therapy type %q", ErrValidation, a.TherapyType)
	}
	return nil
}

// MemoryRepository is an in-process Repository backed by maps and a
// read-write mutex. It backs the test suite and the demo mode of the seed
// and simulate commands; the production deployment uses PgRepository.
type MemoryRepository struct {
	mu           sync.RWMutex
	appointments map[uuid.UUID]*Appointment
	resources    map[string]*Resource
	resourceSeq  []string // insertion order for stable listings
	events       []ScheduleEvent
	eventSeq     int64
	now          func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		appointments: make(map[uuid.UUID]*Appointment),
		resources:    make(map[string]*Resource),
		now:          time.Now,
	}
}

func (m *MemoryRepository) clone(a *Appointment) *Appointment {
	cp := *a
	cp.ResourceIDs = append([]string(nil), a.ResourceIDs...)
	return &cp
}

func (m *MemoryRepository) Insert(_ context.Context, a *Appointment) (*Appointment, error) {
	if err := validateAppointment(a); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored := m.clone(a)
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	if stored.Status == "" {
		stored.Status = StatusPending
	}
	stored.Date = Day(stored.Date)
	now := m.now()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	m.appointments[stored.ID] = stored
	return m.clone(stored), nil
}

func (m *MemoryRepository) Update(_ context.Context, id uuid.UUID, patch AppointmentPatch) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}

	next := m.clone(current)
	applyPatch(next, patch)
	if err := validateAppointment(next); err != nil {
		return nil, err
	}
	next.UpdatedAt = m.now()

	m.appointments[id] = next
	return m.clone(next), nil
}

func (m *MemoryRepository) UpdateStatus(_ context.Context, id uuid.UUID, from, to AppointmentStatus, reason, by string) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	if current.Status != from {
		return nil, ErrStaleStatus
	}

	next := m.clone(current)
	next.Status = to
	if reason != "" {
		next.CancelReason = reason
	}
	if by != "" {
		next.CancelledBy = by
	}
	next.UpdatedAt = m.now()

	m.appointments[id] = next
	return m.clone(next), nil
}

func (m *MemoryRepository) Remove(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.appointments[id]; !ok {
		return ErrAppointmentNotFound
	}
	delete(m.appointments, id)
	return nil
}

func (m *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return m.clone(a), nil
}

func (m *MemoryRepository) FindByResourceAndRange(_ context.Context, resourceID string, from, to time.Time) ([]Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	from, to = Day(from), Day(to)
	var result []Appointment
	for _, a := range m.appointments {
		if !a.UsesResource(resourceID) {
			continue
		}
		if a.Date.Before(from) || a.Date.After(to) {
			continue
		}
		result = append(result, *m.clone(a))
	}
	sortByTime(result)
	return result, nil
}

func (m *MemoryRepository) FindByRange(_ context.Context, from, to time.Time) ([]Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	from, to = Day(from), Day(to)
	var result []Appointment
	for _, a := range m.appointments {
		if a.Date.Before(from) || a.Date.After(to) {
			continue
		}
		result = append(result, *m.clone(a))
	}
	sortByTime(result)
	return result, nil
}

func (m *MemoryRepository) FindByStatus(_ context.Context, status AppointmentStatus) ([]Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []Appointment
	for _, a := range m.appointments {
		if a.Status == status {
			result = append(result, *m.clone(a))
		}
	}
	sortByTime(result)
	return result, nil
}

func (m *MemoryRepository) ListResources(_ context.Context, filter ResourceFilter) ([]Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []Resource
	for _, id := range m.resourceSeq {
		r := m.resources[id]
		if filter.Kind != nil && r.Kind != *filter.Kind {
			continue
		}
		if filter.Status != nil && r.Status != *filter.Status {
			continue
		}
		result = append(result, *r)
	}
	return result, nil
}

func (m *MemoryRepository) GetResource(_ context.Context, id string) (*Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.resources[id]
	if !ok {
		return nil, ErrResourceNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *MemoryRepository) SetResourceStatus(_ context.Context, id string, status ResourceStatus) (*Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.resources[id]
	if !ok {
		return nil, ErrResourceNotFound
	}
	r.Status = status
	r.UpdatedAt = m.now()
	cp := *r
	return &cp, nil
}

func (m *MemoryRepository) UpsertResource(_ context.Context, r *Resource) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *r
	if _, exists := m.resources[r.ID]; !exists {
		m.resourceSeq = append(m.resourceSeq, r.ID)
		cp.CreatedAt = m.now()
	}
	cp.UpdatedAt = m.now()
	m.resources[r.ID] = &cp
	return nil
}

func (m *MemoryRepository) InsertEvent(_ context.Context, ev ScheduleEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.eventSeq++
	ev.ID = m.eventSeq
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = m.now()
	}
	m.events = append(m.events, ev)
	return nil
}

func (m *MemoryRepository) FindUndispatched(_ context.Context, limit int) ([]ScheduleEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []ScheduleEvent
	for _, ev := range m.events {
		if ev.DispatchedAt != nil {
			continue
		}
		result = append(result, ev)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (m *MemoryRepository) MarkDispatched(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.events {
		if m.events[i].ID == id {
			stamp := at
			m.events[i].DispatchedAt = &stamp
			return nil
		}
	}
	return fmt.Errorf("schedule event %d not found", id)
}

// applyPatch merges the non-nil fields of patch into a.
func applyPatch(a *Appointment, patch AppointmentPatch) {
	if patch.PatientRef != nil {
		a.PatientRef = *patch.PatientRef
	}
	if patch.TherapyType != nil {
		a.TherapyType = *patch.TherapyType
	}
	if patch.Date != nil {
		a.Date = Day(*patch.Date)
	}
	if patch.StartMinute != nil {
		a.StartMinute = *patch.StartMinute
	}
	if patch.DurationMinutes != nil {
		a.DurationMinutes = *patch.DurationMinutes
	}
	if patch.ResourceIDs != nil {
		a.ResourceIDs = append([]string(nil), patch.ResourceIDs...)
	}
	if patch.Room != nil {
		a.Room = *patch.Room
	}
	if patch.Status != nil {
		a.Status = *patch.Status
	}
	if patch.Notes != nil {
		a.Notes = *patch.Notes
	}
	if patch.Urgent != nil {
		a.Urgent = *patch.Urgent
	}
	if patch.Recurring != nil {
		a.Recurring = *patch.Recurring
	}
	if patch.CancelReason != nil {
		a.CancelReason = *patch.CancelReason
	}
	if patch.CancelledBy != nil {
		a.CancelledBy = *patch.CancelledBy
	}
}

func sortByTime(list []Appointment) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].Date.Equal(list[j].Date) {
			return list[i].Date.Before(list[j].Date)
		}
		if list[i].StartMinute != list[j].StartMinute {
			return list[i].StartMinute < list[j].StartMinute
		}
		return list[i].ID.String() < list[j].ID.String()
	})
}
