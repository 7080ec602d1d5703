package scheduling

import (
	"context"
	"fmt"
	"time"
)

// Registry serves the bookable-resource views. Availability has two layers:
// unavailable is an operator override stored on the record; busy is derived
// from whether any non-cancelled booking covers the instant asked about.
type Registry struct {
	resources    ResourceStore
	appointments AppointmentStore
	now          func() time.Time
}

func NewRegistry(resources ResourceStore, appointments AppointmentStore) *Registry {
	return &Registry{
		resources:    resources,
		appointments: appointments,
		now:          time.Now,
	}
}

// ListResources returns the registry filtered by kind and/or status, with
// the derived busy state applied as of now. The status filter matches the
// derived status, so filtering on "busy" works even though busy is never
// stored.
func (g *Registry) ListResources(ctx context.Context, filter ResourceFilter) ([]Resource, error) {
	// Fetch by kind only; the status filter applies after derivation.
	all, err := g.resources.ListResources(ctx, ResourceFilter{Kind: filter.Kind})
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}

	asOf := g.now()
	var result []Resource
	for _, r := range all {
		derived, err := g.deriveStatus(ctx, r, asOf)
		if err != nil {
			return nil, err
		}
		r.Status = derived
		if filter.Status != nil && r.Status != *filter.Status {
			continue
		}
		result = append(result, r)
	}
	return result, nil
}

// GetResource returns one resource with its derived status as of now.
func (g *Registry) GetResource(ctx context.Context, id string) (*Resource, error) {
	r, err := g.resources.GetResource(ctx, id)
	if err != nil {
		return nil, err
	}
	derived, err := g.deriveStatus(ctx, *r, g.now())
	if err != nil {
		return nil, err
	}
	r.Status = derived
	return r, nil
}

// SetAvailability records the operator override. Only available and
// unavailable may be set directly; busy is always derived.
func (g *Registry) SetAvailability(ctx context.Context, id string, status ResourceStatus) (*Resource, error) {
	if status != ResourceAvailable && status != ResourceUnavailable {
		return nil, fmt.Errorf("%w: availability must be available or unavailable, got %q", ErrValidation, status)
	}
	return g.resources.SetResourceStatus(ctx, id, status)
}

// ComputeDerivedBusy reports whether a non-cancelled booking on the resource
// covers asOf.
func (g *Registry) ComputeDerivedBusy(ctx context.Context, id string, asOf time.Time) (bool, error) {
	if _, err := g.resources.GetResource(ctx, id); err != nil {
		return false, err
	}

	day := Day(asOf)
	appts, err := g.appointments.FindByResourceAndRange(ctx, id, day, day)
	if err != nil {
		return false, fmt.Errorf("load bookings for %s: %w", id, err)
	}
	for i := range appts {
		if appts[i].Status == StatusCancelled {
			continue
		}
		if appts[i].Covers(asOf) {
			return true, nil
		}
	}
	return false, nil
}

// deriveStatus overlays the computed busy state on the stored record. An
// operator's unavailable override wins over everything.
func (g *Registry) deriveStatus(ctx context.Context, r Resource, asOf time.Time) (ResourceStatus, error) {
	if r.Status == ResourceUnavailable {
		return ResourceUnavailable, nil
	}
	busy, err := g.ComputeDerivedBusy(ctx, r.ID, asOf)
	if err != nil {
		return "", err
	}
	if busy {
		return ResourceBusy, nil
	}
	return ResourceAvailable, nil
}
