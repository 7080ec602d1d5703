package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestMemoryRepository_InsertDefaults(t *testing.T) {
	repo := NewMemoryRepository()
	day := testDay(t)

	a := baseAppointment(day.Add(15*time.Hour), 9*60, 60, "vaidya-1") // noisy timestamp
	a.Status = ""
	stored := mustInsert(t, repo, a)

	if stored.ID == uuid.Nil {
		t.Error("insert must assign an id")
	}
	if stored.Status != StatusPending {
		t.Errorf("status defaults to pending, got %s", stored.Status)
	}
	if !stored.Date.Equal(day) {
		t.Errorf("date must be truncated to the civil day, got %v", stored.Date)
	}
	if stored.CreatedAt.IsZero() || stored.UpdatedAt.IsZero() {
		t.Error("timestamps not stamped")
	}
}

func TestMemoryRepository_InsertValidation(t *testing.T) {
	repo := NewMemoryRepository()
	day := testDay(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*Appointment)
	}{
		{"zero duration", func(a *Appointment) { a.DurationMinutes = 0 }},
		{"no resources", func(a *Appointment) { a.ResourceIDs = nil }},
		{"negative start", func(a *Appointment) { a.StartMinute = -15 }},
		{"start after midnight", func(a *Appointment) { a.StartMinute = 24 * 60 }},
		{"runs past midnight", func(a *Appointment) { a.StartMinute = 23*60 + 30; a.DurationMinutes = 60 }},
		{"missing patient", func(a *Appointment) { a.PatientRef = "" }},
		{"unknown therapy", func(a *Appointment) { a.TherapyType = "acupuncture" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := baseAppointment(day, 9*60, 60, "vaidya-1")
			tc.mutate(&a)
			if _, err := repo.Insert(ctx, &a); !errors.Is(err, ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestMemoryRepository_CloneIsolation(t *testing.T) {
	repo := NewMemoryRepository()
	day := testDay(t)

	stored := mustInsert(t, repo, baseAppointment(day, 9*60, 60, "vaidya-1"))

	// Mutating the returned copy must not leak into the store.
	stored.ResourceIDs[0] = "vaidya-2"
	stored.StartMinute = 15 * 60

	reloaded, err := repo.GetByID(context.Background(), stored.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if reloaded.ResourceIDs[0] != "vaidya-1" || reloaded.StartMinute != 9*60 {
		t.Error("store state leaked through a returned copy")
	}
}

func TestMemoryRepository_UpdatePatchMerge(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	day := testDay(t)

	stored := mustInsert(t, repo, baseAppointment(day, 9*60, 60, "vaidya-1"))

	newStart := 15 * 60
	newDuration := 90
	newDay := day.AddDate(0, 0, 2)
	updated, err := repo.Update(ctx, stored.ID, AppointmentPatch{
		StartMinute:     &newStart,
		DurationMinutes: &newDuration,
		Date:            &newDay,
		ResourceIDs:     []string{"vaidya-2"},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.StartMinute != 15*60 || updated.DurationMinutes != 90 {
		t.Errorf("patched fields not applied: %d/%d", updated.StartMinute, updated.DurationMinutes)
	}
	if updated.EndMinute() != 16*60+30 {
		t.Errorf("end must follow the patched start and duration, got %s", FormatClock(updated.EndMinute()))
	}
	if updated.PatientRef != stored.PatientRef || updated.TherapyType != stored.TherapyType {
		t.Error("unpatched fields must survive the update")
	}
	if !updated.UsesResource("vaidya-2") || updated.UsesResource("vaidya-1") {
		t.Errorf("resource set not replaced: %v", updated.ResourceIDs)
	}
}

func TestMemoryRepository_UpdateRejectsInvalidPatch(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	stored := mustInsert(t, repo, baseAppointment(testDay(t), 9*60, 60, "vaidya-1"))

	bad := -1
	if _, err := repo.Update(ctx, stored.ID, AppointmentPatch{DurationMinutes: &bad}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	// The rejected patch must leave the record untouched.
	reloaded, err := repo.GetByID(ctx, stored.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if reloaded.DurationMinutes != 60 {
		t.Errorf("record mutated by a rejected patch: %d", reloaded.DurationMinutes)
	}
}

func TestMemoryRepository_UpdateStatusStale(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	a := baseAppointment(testDay(t), 9*60, 60, "vaidya-1")
	a.Status = StatusPending
	stored := mustInsert(t, repo, a)

	if _, err := repo.UpdateStatus(ctx, stored.ID, StatusConfirmed, StatusCompleted, "", ""); !errors.Is(err, ErrStaleStatus) {
		t.Fatalf("expected stale status, got %v", err)
	}

	updated, err := repo.UpdateStatus(ctx, stored.ID, StatusPending, StatusCancelled, "no show", "practitioner")
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if updated.Status != StatusCancelled || updated.CancelReason != "no show" || updated.CancelledBy != "practitioner" {
		t.Errorf("cancellation fields wrong: %+v", updated)
	}
}

func TestMemoryRepository_FindByResourceAndRange(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	day := testDay(t)

	inRange := mustInsert(t, repo, baseAppointment(day, 9*60, 60, "vaidya-1"))
	mustInsert(t, repo, baseAppointment(day.AddDate(0, 0, 3), 9*60, 60, "vaidya-1"))
	mustInsert(t, repo, baseAppointment(day, 9*60, 60, "vaidya-2"))

	rows, err := repo.FindByResourceAndRange(ctx, "vaidya-1", day, day.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != inRange.ID {
		t.Fatalf("expected only the in-range booking for the resource, got %d rows", len(rows))
	}
}

func TestMemoryRepository_FindSorted(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	day := testDay(t)

	mustInsert(t, repo, baseAppointment(day.AddDate(0, 0, 1), 9*60, 60, "vaidya-1"))
	mustInsert(t, repo, baseAppointment(day, 16*60, 60, "vaidya-1"))
	mustInsert(t, repo, baseAppointment(day, 9*60, 60, "vaidya-1"))

	rows, err := repo.FindByRange(ctx, day, day.AddDate(0, 0, 7))
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	for i := 1; i < len(rows); i++ {
		prev, cur := rows[i-1], rows[i]
		if cur.Date.Before(prev.Date) || (cur.Date.Equal(prev.Date) && cur.StartMinute < prev.StartMinute) {
			t.Fatalf("rows out of order at %d", i)
		}
	}
}

func TestMemoryRepository_RemoveMissing(t *testing.T) {
	repo := NewMemoryRepository()

	if err := repo.Remove(context.Background(), uuid.New()); !errors.Is(err, ErrAppointmentNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestMemoryRepository_EventLifecycle(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ev := ScheduleEvent{AppointmentID: uuid.New(), NewStatus: StatusPending}
		if err := repo.InsertEvent(ctx, ev); err != nil {
			t.Fatalf("insert event: %v", err)
		}
	}

	batch, err := repo.FindUndispatched(ctx, 2)
	if err != nil {
		t.Fatalf("find undispatched: %v", err)
	}
	if len(batch) != 2 {
		t.Fatalf("limit not honored, got %d", len(batch))
	}

	if err := repo.MarkDispatched(ctx, batch[0].ID, time.Now()); err != nil {
		t.Fatalf("mark dispatched: %v", err)
	}

	rest, err := repo.FindUndispatched(ctx, 10)
	if err != nil {
		t.Fatalf("find undispatched: %v", err)
	}
	if len(rest) != 2 {
		t.Fatalf("dispatched event still queued, got %d", len(rest))
	}
	for _, ev := range rest {
		if ev.ID == batch[0].ID {
			t.Fatal("dispatched event came back")
		}
	}
}

func TestMemoryRepository_ResourceListOrder(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	for _, id := range []string{"vaidya-2", "vaidya-1", "room-101"} {
		r := Resource{ID: id, Kind: KindPractitioner, DisplayName: id, Status: ResourceAvailable}
		if err := repo.UpsertResource(ctx, &r); err != nil {
			t.Fatalf("upsert %s: %v", id, err)
		}
	}

	rows, err := repo.ListResources(ctx, ResourceFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 3 || rows[0].ID != "vaidya-2" || rows[1].ID != "vaidya-1" || rows[2].ID != "room-101" {
		t.Fatalf("listing must keep insertion order, got %v", rows)
	}

	// Re-upserting must update in place, not append.
	update := Resource{ID: "vaidya-1", Kind: KindPractitioner, DisplayName: "Dr. Updated", Status: ResourceUnavailable}
	if err := repo.UpsertResource(ctx, &update); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	rows, err = repo.ListResources(ctx, ResourceFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 3 || rows[1].DisplayName != "Dr. Updated" {
		t.Fatalf("upsert did not update in place: %v", rows)
	}
}
