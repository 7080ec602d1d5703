package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestRegistry(t *testing.T) (*Registry, *MemoryRepository) {
	t.Helper()
	repo := NewMemoryRepository()
	seedTestResources(t, repo)
	return NewRegistry(repo, repo), repo
}

func TestRegistry_DerivedBusy(t *testing.T) {
	reg, repo := newTestRegistry(t)
	day := testDay(t)

	mustInsert(t, repo, baseAppointment(day, 9*60, 60, "vaidya-1"))

	// Mid-session the practitioner reads busy.
	reg.now = func() time.Time { return day.Add(9*time.Hour + 30*time.Minute) }
	r, err := reg.GetResource(context.Background(), "vaidya-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if r.Status != ResourceBusy {
		t.Errorf("expected busy at 09:30, got %s", r.Status)
	}

	// End minute is exclusive: free again at 10:00 sharp.
	reg.now = func() time.Time { return day.Add(10 * time.Hour) }
	r, err = reg.GetResource(context.Background(), "vaidya-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if r.Status != ResourceAvailable {
		t.Errorf("expected available at 10:00, got %s", r.Status)
	}
}

func TestRegistry_CancelledNeverBusy(t *testing.T) {
	reg, repo := newTestRegistry(t)
	day := testDay(t)

	appt := baseAppointment(day, 9*60, 60, "vaidya-1")
	appt.Status = StatusCancelled
	mustInsert(t, repo, appt)

	busy, err := reg.ComputeDerivedBusy(context.Background(), "vaidya-1", day.Add(9*time.Hour+15*time.Minute))
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if busy {
		t.Error("cancelled booking must not make the resource busy")
	}
}

func TestRegistry_UnavailableOverrideWins(t *testing.T) {
	reg, repo := newTestRegistry(t)
	day := testDay(t)

	mustInsert(t, repo, baseAppointment(day, 9*60, 60, "vaidya-1"))
	if _, err := reg.SetAvailability(context.Background(), "vaidya-1", ResourceUnavailable); err != nil {
		t.Fatalf("set availability: %v", err)
	}

	reg.now = func() time.Time { return day.Add(9*time.Hour + 30*time.Minute) }
	r, err := reg.GetResource(context.Background(), "vaidya-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if r.Status != ResourceUnavailable {
		t.Errorf("operator override must win over derived busy, got %s", r.Status)
	}
}

func TestRegistry_SetAvailabilityRejectsBusy(t *testing.T) {
	reg, _ := newTestRegistry(t)

	if _, err := reg.SetAvailability(context.Background(), "vaidya-1", ResourceBusy); !errors.Is(err, ErrValidation) {
		t.Errorf("busy is derived, never settable; got %v", err)
	}
}

func TestRegistry_ListFiltersByDerivedStatus(t *testing.T) {
	reg, repo := newTestRegistry(t)
	day := testDay(t)

	mustInsert(t, repo, baseAppointment(day, 9*60, 60, "vaidya-1"))
	reg.now = func() time.Time { return day.Add(9*time.Hour + 30*time.Minute) }

	busy := ResourceBusy
	rows, err := reg.ListResources(context.Background(), ResourceFilter{Status: &busy})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != "vaidya-1" {
		t.Fatalf("busy filter should match the occupied practitioner only, got %v", rows)
	}

	available := ResourceAvailable
	rows, err = reg.ListResources(context.Background(), ResourceFilter{Status: &available})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 4 {
		t.Errorf("expected 4 free resources, got %d", len(rows))
	}
}

func TestRegistry_ListFiltersByKind(t *testing.T) {
	reg, _ := newTestRegistry(t)

	kind := KindRoom
	rows, err := reg.ListResources(context.Background(), ResourceFilter{Kind: &kind})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected the 2 seeded rooms, got %d", len(rows))
	}
	for _, r := range rows {
		if r.Kind != KindRoom {
			t.Errorf("non-room %s in room listing", r.ID)
		}
	}
}

func TestRegistry_NotFound(t *testing.T) {
	reg, _ := newTestRegistry(t)

	if _, err := reg.GetResource(context.Background(), "vaidya-99"); !errors.Is(err, ErrResourceNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if _, err := reg.SetAvailability(context.Background(), "vaidya-99", ResourceUnavailable); !errors.Is(err, ErrResourceNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}
