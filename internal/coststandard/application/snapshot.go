package application

import (
	"context"
	"errors"
	"fmt"

	coststandard "agency-admin/internal/coststandard/domain"
	"agency-admin/internal/versioning"
)

// Snapshot is a single read of a tenant's standards. Every lookup against it
// prices from the same rows, whatever date it asks about. It is not safe for
// concurrent use.
type Snapshot struct {
	service  *Service
	tenantID string
	today    versioning.Date
	items    []coststandard.CostStandard
	byDate   map[string][]coststandard.Resolved
}

// Snapshot loads the caller's tenant once.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	if s == nil {
		return nil, errors.New("cost standard service: nil service")
	}
	tenantID := s.tenantFromContext(ctx)
	items, err := s.repo.List(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		service:  s,
		tenantID: tenantID,
		today:    s.Today(),
		items:    items,
		byDate:   make(map[string][]coststandard.Resolved),
	}, nil
}

// Today is the date zero lookups resolve on.
func (snap *Snapshot) Today() versioning.Date {
	return snap.today
}

// Resolve returns every standard with its status on asOf. Results are cached per date.
func (snap *Snapshot) Resolve(asOf versioning.Date) ([]coststandard.Resolved, error) {
	if asOf.IsZero() {
		asOf = snap.today
	}
	if cached, ok := snap.byDate[asOf.String()]; ok {
		return cached, nil
	}
	resolved, err := snap.service.resolveItems(snap.tenantID, snap.items, asOf)
	if err != nil {
		return nil, err
	}
	snap.byDate[asOf.String()] = resolved
	return resolved, nil
}

// ActiveDailyCost returns the standard in force for key on asOf.
func (snap *Snapshot) ActiveDailyCost(key coststandard.GroupKey, asOf versioning.Date) (*coststandard.Resolved, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if asOf.IsZero() {
		asOf = snap.today
	}
	resolved, err := snap.Resolve(asOf)
	if err != nil {
		return nil, err
	}
	active, err := coststandard.ActiveFor(resolved, key)
	switch {
	case errors.Is(err, versioning.ErrNoActiveVersion):
		return nil, fmt.Errorf("%w: %s on %s", ErrNoActiveStandard, key, asOf)
	case errors.Is(err, versioning.ErrAmbiguousActive):
		return nil, fmt.Errorf("%w: %s on %s", ErrAmbiguousStandard, key, asOf)
	case err != nil:
		return nil, err
	}
	return &active, nil
}
