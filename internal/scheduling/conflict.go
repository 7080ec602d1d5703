package scheduling

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// ConflictDetector answers whether a candidate booking overlaps existing
// non-cancelled appointments on any of its resources. It is a pure read
// path: repeated calls with no intervening mutation yield identical reports.
type ConflictDetector struct {
	store AppointmentStore
}

func NewConflictDetector(store AppointmentStore) *ConflictDetector {
	return &ConflictDetector{store: store}
}

// overlaps implements half-open interval overlap: [s1,e1) and [s2,e2)
// collide iff s1 < e2 && s2 < e1. A session ending at 10:00 does not collide
// with one starting at 10:00.
func overlaps(s1, e1, s2, e2 int) bool {
	return s1 < e2 && s2 < e1
}

// Check fetches, per resource, the candidate day's non-cancelled
// appointments and reports every collision. Zero-duration candidates never
// conflict. Appointments on a different civil day never conflict even when
// resources are shared.
func (d *ConflictDetector) Check(ctx context.Context, a *Appointment, exclude *uuid.UUID) (ConflictReport, error) {
	report := ConflictReport{ByResource: make(map[string][]uuid.UUID)}

	if a.DurationMinutes <= 0 {
		return report, nil
	}

	day := Day(a.Date)
	for _, resourceID := range a.ResourceIDs {
		existing, err := d.store.FindByResourceAndRange(ctx, resourceID, day, day)
		if err != nil {
			return ConflictReport{}, fmt.Errorf("load bookings for %s: %w", resourceID, err)
		}

		for _, other := range existing {
			if other.Status == StatusCancelled {
				continue
			}
			if exclude != nil && other.ID == *exclude {
				continue
			}
			if overlaps(a.StartMinute, a.EndMinute(), other.StartMinute, other.EndMinute()) {
				report.Conflicting = true
				report.ByResource[resourceID] = append(report.ByResource[resourceID], other.ID)
			}
		}
	}

	return report, nil
}
