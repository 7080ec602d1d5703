package scheduling

import (
	"context"
	"testing"
	"time"
)

func clinicHours() BusinessHours {
	return BusinessHours{StartMinute: 8 * 60, EndMinute: 20 * 60, SlotMinutes: 30}
}

func newTestProjector(t *testing.T) (*Projector, *MemoryRepository) {
	t.Helper()
	repo := NewMemoryRepository()
	seedTestResources(t, repo)
	return NewProjector(repo, repo, clinicHours()), repo
}

func TestProjectDay_GridShape(t *testing.T) {
	proj, _ := newTestProjector(t)

	grid, err := proj.ProjectDay(context.Background(), testDay(t), nil)
	if err != nil {
		t.Fatalf("project day: %v", err)
	}
	if len(grid.Slots) != 24 {
		t.Errorf("08:00-20:00 at 30 minutes is 24 rows, got %d", len(grid.Slots))
	}
	if grid.Slots[0] != "08:00" || grid.Slots[23] != "19:30" {
		t.Errorf("slot labels wrong: first %s, last %s", grid.Slots[0], grid.Slots[23])
	}
	if len(grid.Columns) != 5 {
		t.Errorf("expected a column per seeded resource, got %d", len(grid.Columns))
	}
	for _, col := range grid.Columns {
		if len(col.Cells) != 24 {
			t.Errorf("column %s has %d cells", col.ResourceID, len(col.Cells))
		}
	}
}

func TestProjectDay_PlacesBookingAtStartSlot(t *testing.T) {
	proj, repo := newTestProjector(t)
	day := testDay(t)

	appt := baseAppointment(day, 9*60+30, 60, "vaidya-1", "room-101")
	mustInsert(t, repo, appt)

	grid, err := proj.ProjectDay(context.Background(), day, []string{"vaidya-1"})
	if err != nil {
		t.Fatalf("project day: %v", err)
	}
	if len(grid.Columns) != 1 {
		t.Fatalf("expected one requested column, got %d", len(grid.Columns))
	}

	col := grid.Columns[0]
	idx := (9*60 + 30 - 8*60) / 30 // 09:30 row
	if len(col.Cells[idx].Appointments) != 1 {
		t.Fatalf("booking missing from its start cell %s", col.Cells[idx].Start)
	}
	summary := col.Cells[idx].Appointments[0]
	if summary.Start != "09:30" || summary.End != "10:30" {
		t.Errorf("summary times wrong: %s-%s", summary.Start, summary.End)
	}

	for i, cell := range col.Cells {
		if i != idx && len(cell.Appointments) != 0 {
			t.Errorf("stray booking in cell %s", cell.Start)
		}
	}
}

func TestProjectDay_CancelledOffGrid(t *testing.T) {
	proj, repo := newTestProjector(t)
	day := testDay(t)

	appt := baseAppointment(day, 9*60, 60, "vaidya-1")
	appt.Status = StatusCancelled
	mustInsert(t, repo, appt)

	grid, err := proj.ProjectDay(context.Background(), day, []string{"vaidya-1"})
	if err != nil {
		t.Fatalf("project day: %v", err)
	}
	for _, cell := range grid.Columns[0].Cells {
		if len(cell.Appointments) != 0 {
			t.Fatalf("cancelled booking rendered in cell %s", cell.Start)
		}
	}
}

func TestProjectDay_EarlyStartClampsToFirstRow(t *testing.T) {
	proj, repo := newTestProjector(t)
	day := testDay(t)

	appt := baseAppointment(day, 7*60, 60, "vaidya-1")
	mustInsert(t, repo, appt)

	grid, err := proj.ProjectDay(context.Background(), day, []string{"vaidya-1"})
	if err != nil {
		t.Fatalf("project day: %v", err)
	}
	if len(grid.Columns[0].Cells[0].Appointments) != 1 {
		t.Error("pre-opening booking should land in the first row")
	}
}

func TestProjectDay_UnknownResource(t *testing.T) {
	proj, _ := newTestProjector(t)

	if _, err := proj.ProjectDay(context.Background(), testDay(t), []string{"vaidya-99"}); err == nil {
		t.Fatal("unknown resource must error, not render an empty column")
	}
}

func TestProjectWeek_MondayAnchored(t *testing.T) {
	proj, repo := newTestProjector(t)

	// 2025-09-10 is a Wednesday; its week starts Monday the 8th.
	anchor := testDay(t)
	mustInsert(t, repo, baseAppointment(anchor, 9*60, 60, "vaidya-1"))

	week, err := proj.ProjectWeek(context.Background(), anchor, []string{"vaidya-1"})
	if err != nil {
		t.Fatalf("project week: %v", err)
	}
	if week.WeekOf != "2025-09-08" {
		t.Errorf("week anchor wrong: %s", week.WeekOf)
	}
	if len(week.Days) != 7 {
		t.Fatalf("expected 7 day grids, got %d", len(week.Days))
	}
	if week.Days[0].Date != "2025-09-08" || week.Days[6].Date != "2025-09-14" {
		t.Errorf("week spans %s..%s", week.Days[0].Date, week.Days[6].Date)
	}

	booked := 0
	for _, day := range week.Days {
		for _, cell := range day.Columns[0].Cells {
			booked += len(cell.Appointments)
		}
	}
	if booked != 1 {
		t.Errorf("expected the single booking once across the week, got %d", booked)
	}
}

func TestProjectMonth_Aggregates(t *testing.T) {
	proj, repo := newTestProjector(t)
	day := testDay(t)

	mustInsert(t, repo, baseAppointment(day, 9*60, 60, "vaidya-1"))

	pending := baseAppointment(day, 11*60, 60, "vaidya-2")
	pending.Status = StatusPending
	mustInsert(t, repo, pending)

	cancelled := baseAppointment(day.AddDate(0, 0, 1), 9*60, 60, "vaidya-1")
	cancelled.Status = StatusCancelled
	mustInsert(t, repo, cancelled)

	month, err := proj.ProjectMonth(context.Background(), day)
	if err != nil {
		t.Fatalf("project month: %v", err)
	}
	if month.Month != "2025-09" {
		t.Errorf("month label wrong: %s", month.Month)
	}
	if len(month.Days) != 30 {
		t.Fatalf("September has 30 days, got %d", len(month.Days))
	}

	byDate := make(map[string]DaySummary, len(month.Days))
	for _, d := range month.Days {
		byDate[d.Date] = d
	}
	if got := byDate["2025-09-10"]; got.Total != 2 || got.Confirmed != 1 || got.Pending != 1 {
		t.Errorf("2025-09-10 summary wrong: %+v", got)
	}
	if got := byDate["2025-09-11"]; got.Total != 1 || got.Cancelled != 1 {
		t.Errorf("2025-09-11 summary wrong: %+v", got)
	}
	if got := byDate["2025-09-12"]; got.Total != 0 {
		t.Errorf("empty day should stay zero: %+v", got)
	}
}

func TestStats_Utilization(t *testing.T) {
	proj, repo := newTestProjector(t)
	day := testDay(t)

	// 60 minutes across two resources = 120 booked minutes.
	mustInsert(t, repo, baseAppointment(day, 9*60, 60, "vaidya-1", "room-101"))

	pending := baseAppointment(day, 11*60, 30, "vaidya-2")
	pending.Status = StatusPending
	mustInsert(t, repo, pending)

	cancelled := baseAppointment(day, 14*60, 60, "vaidya-1")
	cancelled.Status = StatusCancelled
	mustInsert(t, repo, cancelled)

	stats, err := proj.Stats(context.Background(), day)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalToday != 2 {
		t.Errorf("cancelled bookings must not count, total %d", stats.TotalToday)
	}
	if stats.PendingApprovals != 1 {
		t.Errorf("pending count wrong: %d", stats.PendingApprovals)
	}

	// 5 resources x 720 bookable minutes = 3600; 120 + 30 booked.
	want := 150.0 / 3600.0
	if diff := stats.Utilization - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("utilization = %f, want %f", stats.Utilization, want)
	}
}

func TestWeekStart(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"2025-09-08", "2025-09-08"}, // Monday maps to itself
		{"2025-09-10", "2025-09-08"},
		{"2025-09-14", "2025-09-08"}, // Sunday belongs to the preceding Monday
	}
	for _, tc := range cases {
		in, err := time.Parse(DateLayout, tc.in)
		if err != nil {
			t.Fatalf("parse %s: %v", tc.in, err)
		}
		if got := weekStart(in).Format(DateLayout); got != tc.want {
			t.Errorf("weekStart(%s) = %s, want %s", tc.in, got, tc.want)
		}
	}
}
