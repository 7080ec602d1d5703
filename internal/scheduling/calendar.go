package scheduling

import (
	"context"
	"fmt"
	"time"
)

// BusinessHours describes the clinic's bookable day and the grid
// granularity the calendar renders at.
type BusinessHours struct {
	StartMinute int
	EndMinute   int
	SlotMinutes int
}

// SlotCount is the number of grid rows in one day view.
func (h BusinessHours) SlotCount() int {
	return (h.EndMinute - h.StartMinute + h.SlotMinutes - 1) / h.SlotMinutes
}

// AppointmentSummary is the projection of one booking into a calendar cell.
// The summary reports [start, end); rendering a multi-slot span is the
// renderer's concern.
type AppointmentSummary struct {
	ID              string            `json:"id"`
	PatientRef      string            `json:"patient_ref"`
	TherapyType     TherapyType       `json:"therapy_type"`
	Start           string            `json:"start"`
	End             string            `json:"end"`
	DurationMinutes int               `json:"duration_minutes"`
	Status          AppointmentStatus `json:"status"`
	Room            string            `json:"room,omitempty"`
	Urgent          bool              `json:"urgent,omitempty"`
	Recurring       bool              `json:"recurring,omitempty"`
}

// SlotCell is one time slot in one resource's column. A booking appears in
// the cell containing its start minute.
type SlotCell struct {
	Start        string               `json:"start"`
	Appointments []AppointmentSummary `json:"appointments,omitempty"`
}

// ResourceColumn pairs a resource with its day of slots. Resources with no
// bookings still get a full column of empty cells.
type ResourceColumn struct {
	ResourceID  string       `json:"resource_id"`
	DisplayName string       `json:"display_name"`
	Kind        ResourceKind `json:"kind"`
	Cells       []SlotCell   `json:"cells"`
}

// DayGrid is the day view: time slots by resources.
type DayGrid struct {
	Date    string           `json:"date"`
	Slots   []string         `json:"slots"`
	Columns []ResourceColumn `json:"columns"`
}

// WeekGrid is seven consecutive day grids starting from the Monday of the
// week containing the anchor date.
type WeekGrid struct {
	WeekOf string    `json:"week_of"`
	Days   []DayGrid `json:"days"`
}

// DaySummary aggregates one day for the month view; the month view carries
// no per-slot detail.
type DaySummary struct {
	Date      string `json:"date"`
	Total     int    `json:"total"`
	Pending   int    `json:"pending"`
	Confirmed int    `json:"confirmed"`
	Completed int    `json:"completed"`
	Cancelled int    `json:"cancelled"`
}

// MonthGrid is the month view: per-day aggregates only.
type MonthGrid struct {
	Month string       `json:"month"`
	Days  []DaySummary `json:"days"`
}

// DayStats backs the calendar's quick-stats panel.
type DayStats struct {
	Date             string  `json:"date"`
	TotalToday       int     `json:"total_today"`
	PendingApprovals int     `json:"pending_approvals"`
	CompletedToday   int     `json:"completed_today"`
	Utilization      float64 `json:"utilization"`
}

// Projector derives read-only calendar views from the appointment store.
// It holds no state of its own and re-queries on every call.
type Projector struct {
	appointments AppointmentStore
	resources    ResourceStore
	hours        BusinessHours
}

func NewProjector(appointments AppointmentStore, resources ResourceStore, hours BusinessHours) *Projector {
	return &Projector{
		appointments: appointments,
		resources:    resources,
		hours:        hours,
	}
}

// ProjectDay builds the slot-by-resource grid for one day. An empty
// resourceIDs selects every registered resource. Cancelled bookings are left
// off the grid; they live in the appointment record, not the calendar.
func (p *Projector) ProjectDay(ctx context.Context, date time.Time, resourceIDs []string) (*DayGrid, error) {
	day := Day(date)

	resources, err := p.selectResources(ctx, resourceIDs)
	if err != nil {
		return nil, err
	}

	grid := &DayGrid{
		Date:  day.Format(DateLayout),
		Slots: p.slotLabels(),
	}

	for _, res := range resources {
		appts, err := p.appointments.FindByResourceAndRange(ctx, res.ID, day, day)
		if err != nil {
			return nil, fmt.Errorf("load bookings for %s: %w", res.ID, err)
		}

		column := ResourceColumn{
			ResourceID:  res.ID,
			DisplayName: res.DisplayName,
			Kind:        res.Kind,
			Cells:       make([]SlotCell, p.hours.SlotCount()),
		}
		for i := range column.Cells {
			column.Cells[i].Start = FormatClock(p.hours.StartMinute + i*p.hours.SlotMinutes)
		}

		for i := range appts {
			a := &appts[i]
			if a.Status == StatusCancelled {
				continue
			}
			idx := p.slotIndex(a.StartMinute)
			if idx < 0 || idx >= len(column.Cells) {
				continue // outside business hours
			}
			column.Cells[idx].Appointments = append(column.Cells[idx].Appointments, summarize(a))
		}

		grid.Columns = append(grid.Columns, column)
	}

	return grid, nil
}

// ProjectWeek builds seven day grids, Monday through Sunday of the week
// containing the anchor.
func (p *Projector) ProjectWeek(ctx context.Context, anchor time.Time, resourceIDs []string) (*WeekGrid, error) {
	monday := weekStart(anchor)

	week := &WeekGrid{WeekOf: monday.Format(DateLayout)}
	for i := 0; i < 7; i++ {
		day, err := p.ProjectDay(ctx, monday.AddDate(0, 0, i), resourceIDs)
		if err != nil {
			return nil, err
		}
		week.Days = append(week.Days, *day)
	}
	return week, nil
}

// ProjectMonth aggregates the anchor's calendar month by day.
func (p *Projector) ProjectMonth(ctx context.Context, anchor time.Time) (*MonthGrid, error) {
	first := time.Date(anchor.UTC().Year(), anchor.UTC().Month(), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	appts, err := p.appointments.FindByRange(ctx, first, last)
	if err != nil {
		return nil, fmt.Errorf("load month: %w", err)
	}

	byDay := make(map[string]*DaySummary)
	month := &MonthGrid{Month: first.Format("2006-01")}
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		summary := &DaySummary{Date: d.Format(DateLayout)}
		byDay[summary.Date] = summary
		month.Days = append(month.Days, *summary)
	}

	for i := range appts {
		a := &appts[i]
		summary := byDay[a.Date.Format(DateLayout)]
		if summary == nil {
			continue
		}
		summary.Total++
		switch a.Status {
		case StatusPending:
			summary.Pending++
		case StatusConfirmed:
			summary.Confirmed++
		case StatusCompleted:
			summary.Completed++
		case StatusCancelled:
			summary.Cancelled++
		}
	}

	for i := range month.Days {
		month.Days[i] = *byDay[month.Days[i].Date]
	}
	return month, nil
}

// Stats derives the quick-stats panel numbers for one day. Utilization is
// booked minutes over bookable minutes across all resources.
func (p *Projector) Stats(ctx context.Context, date time.Time) (*DayStats, error) {
	day := Day(date)

	appts, err := p.appointments.FindByRange(ctx, day, day)
	if err != nil {
		return nil, fmt.Errorf("load day: %w", err)
	}
	resources, err := p.resources.ListResources(ctx, ResourceFilter{})
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}

	stats := &DayStats{Date: day.Format(DateLayout)}
	bookedMinutes := 0
	for i := range appts {
		a := &appts[i]
		if a.Status == StatusCancelled {
			continue
		}
		stats.TotalToday++
		if a.Status == StatusPending {
			stats.PendingApprovals++
		}
		if a.Status == StatusCompleted {
			stats.CompletedToday++
		}
		bookedMinutes += a.DurationMinutes * len(a.ResourceIDs)
	}

	capacity := len(resources) * (p.hours.EndMinute - p.hours.StartMinute)
	if capacity > 0 {
		stats.Utilization = float64(bookedMinutes) / float64(capacity)
	}
	return stats, nil
}

func (p *Projector) selectResources(ctx context.Context, resourceIDs []string) ([]Resource, error) {
	if len(resourceIDs) == 0 {
		all, err := p.resources.ListResources(ctx, ResourceFilter{})
		if err != nil {
			return nil, fmt.Errorf("list resources: %w", err)
		}
		return all, nil
	}

	var result []Resource
	for _, id := range resourceIDs {
		r, err := p.resources.GetResource(ctx, id)
		if err != nil {
			return nil, err
		}
		result = append(result, *r)
	}
	return result, nil
}

func (p *Projector) slotLabels() []string {
	labels := make([]string, p.hours.SlotCount())
	for i := range labels {
		labels[i] = FormatClock(p.hours.StartMinute + i*p.hours.SlotMinutes)
	}
	return labels
}

// slotIndex maps a start minute to its grid row; starts before opening land
// in the first row so early sessions stay visible.
func (p *Projector) slotIndex(startMinute int) int {
	if startMinute < p.hours.StartMinute {
		return 0
	}
	return (startMinute - p.hours.StartMinute) / p.hours.SlotMinutes
}

func summarize(a *Appointment) AppointmentSummary {
	return AppointmentSummary{
		ID:              a.ID.String(),
		PatientRef:      a.PatientRef,
		TherapyType:     a.TherapyType,
		Start:           FormatClock(a.StartMinute),
		End:             FormatClock(a.EndMinute()),
		DurationMinutes: a.DurationMinutes,
		Status:          a.Status,
		Room:            a.Room,
		Urgent:          a.Urgent,
		Recurring:       a.Recurring,
	}
}

// weekStart returns the Monday of the week containing ts.
func weekStart(ts time.Time) time.Time {
	day := Day(ts)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}
