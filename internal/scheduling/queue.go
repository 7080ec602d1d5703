package scheduling

import (
	"context"
	"fmt"
)

// ApprovalQueue is the pending subset of the appointment store, ordered
// earliest first for triage. It holds no state of its own.
type ApprovalQueue struct {
	store AppointmentStore
}

func NewApprovalQueue(store AppointmentStore) *ApprovalQueue {
	return &ApprovalQueue{store: store}
}

// PendingFilter narrows the queue listing.
type PendingFilter struct {
	UrgentOnly bool
	ResourceID string
}

// ListPending returns pending appointments ordered by date then start
// minute, first come first served.
func (q *ApprovalQueue) ListPending(ctx context.Context, filter PendingFilter) ([]Appointment, error) {
	pending, err := q.store.FindByStatus(ctx, StatusPending)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}

	var result []Appointment
	for i := range pending {
		a := pending[i]
		if filter.UrgentOnly && !a.Urgent {
			continue
		}
		if filter.ResourceID != "" && !a.UsesResource(filter.ResourceID) {
			continue
		}
		result = append(result, a)
	}
	return result, nil
}
