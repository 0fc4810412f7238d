package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	coststandard "agency-admin/internal/coststandard/domain"
)

// Repository is an in-memory repository for demo/testing.
type Repository struct {
	mu   sync.RWMutex
	data map[string]coststandard.CostStandard
	now  func() time.Time
}

// NewRepository constructs a repository.
func NewRepository() *Repository {
	return &Repository{
		data: make(map[string]coststandard.CostStandard),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// List returns a snapshot of the tenant's standards.
func (r *Repository) List(ctx context.Context, tenantID string) ([]coststandard.CostStandard, error) {
	_ = ctx
	if tenantID == "" {
		return nil, coststandard.ErrEmptyTenantID
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]coststandard.CostStandard, 0, len(r.data))
	for _, item := range r.data {
		if item.TenantID == tenantID {
			result = append(result, item)
		}
	}
	return result, nil
}

// Get loads a standard by id. Returns nil when absent.
func (r *Repository) Get(ctx context.Context, tenantID, id string) (*coststandard.CostStandard, error) {
	_ = ctx
	if id == "" {
		return nil, coststandard.ErrEmptyID
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.data[id]
	if !ok || item.TenantID != tenantID {
		return nil, nil
	}
	return &item, nil
}

// Save upserts a standard.
func (r *Repository) Save(ctx context.Context, item *coststandard.CostStandard) error {
	_ = ctx
	if item == nil {
		return errors.New("cost standard repo: nil item")
	}
	if err := item.Validate(); err != nil {
		return err
	}
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.data[item.ID]; ok {
		item.CreatedAt = existing.CreatedAt
	} else if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	r.data[item.ID] = *item
	return nil
}

// Delete removes a standard.
func (r *Repository) Delete(ctx context.Context, tenantID, id string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.data[id]
	if !ok || item.TenantID != tenantID {
		return coststandard.ErrNotFound
	}
	delete(r.data, id)
	return nil
}

// Count returns the number of stored standards.
func (r *Repository) Count(ctx context.Context) (int, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data), nil
}
