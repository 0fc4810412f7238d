package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"agency-admin/internal/auth"
	coststandard "agency-admin/internal/coststandard/domain"
	"agency-admin/internal/observability/metrics"
	"agency-admin/internal/versioning"
)

var (
	// ErrNoActiveStandard is returned when no standard is in force for a key.
	ErrNoActiveStandard = errors.New("cost standard: no active standard")
	// ErrAmbiguousStandard is returned when several standards share the latest date.
	ErrAmbiguousStandard = errors.New("cost standard: ambiguous active standard")
)

// Clock provides time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Service manages cost standards and resolves which one is in force.
type Service struct {
	repo     coststandard.Repository
	tenantID string
	currency string
	clock    Clock
	location *time.Location
	newID    func() string
	logger   zerolog.Logger
}

// Option customizes the service.
type Option func(*Service)

// WithClock assigns a clock.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLocation sets the timezone "today" is computed in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithCurrency sets the default currency of new standards.
func WithCurrency(currency string) Option {
	return func(s *Service) {
		if currency = strings.ToUpper(strings.TrimSpace(currency)); currency != "" {
			s.currency = currency
		}
	}
}

// WithIDGenerator overrides id generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithLogger assigns a logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService constructs a service.
func NewService(repo coststandard.Repository, tenantID string, opts ...Option) (*Service, error) {
	if repo == nil {
		return nil, errors.New("cost standard service: nil repository")
	}
	if tenantID == "" {
		return nil, errors.New("cost standard service: empty tenant id")
	}
	s := &Service{
		repo:     repo,
		tenantID: tenantID,
		currency: "CNY",
		clock:    systemClock{},
		location: time.UTC,
		newID:    func() string { return "cs-" + uuid.NewString() },
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ListQuery filters a listing.
type ListQuery struct {
	AsOf          versioning.Date
	EmployeeLevel string
	CityType      string
	Status        versioning.Status
}

// ListResult is a resolved listing.
type ListResult struct {
	AsOf      versioning.Date
	Items     []coststandard.Resolved
	Conflicts []coststandard.GroupKey
}

// CreateInput carries a new dated cost.
type CreateInput struct {
	EmployeeLevel string
	CityType      string
	EffectiveFrom versioning.Date
	DailyCost     decimal.Decimal
	Currency      string
	Remark        string
}

// UpdateInput edits an existing version. Nil fields are left unchanged.
type UpdateInput struct {
	EmployeeLevel *string
	CityType      *string
	EffectiveFrom *versioning.Date
	DailyCost     *decimal.Decimal
	Currency      *string
	Remark        *string
}

// Today returns the current calendar date in the service location.
func (s *Service) Today() versioning.Date {
	return versioning.Today(s.clock, s.location)
}

// List resolves a fresh snapshot of the tenant's standards.
// Conflicts are computed over the whole snapshot, before filtering.
func (s *Service) List(ctx context.Context, q ListQuery) (*ListResult, error) {
	if s == nil {
		return nil, errors.New("cost standard service: nil service")
	}
	if q.Status != "" && !q.Status.IsValid() {
		return nil, fmt.Errorf("cost standard: unknown status %q", q.Status)
	}
	asOf := q.AsOf
	if asOf.IsZero() {
		asOf = s.Today()
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	resolved, err := snap.Resolve(asOf)
	if err != nil {
		return nil, err
	}

	level := strings.TrimSpace(q.EmployeeLevel)
	city := coststandard.CityType(strings.TrimSpace(q.CityType))
	items := make([]coststandard.Resolved, 0, len(resolved))
	for _, r := range resolved {
		if level != "" && r.Key.EmployeeLevel != level {
			continue
		}
		if city != "" && r.Key.CityType != city {
			continue
		}
		if q.Status != "" && r.Status != q.Status {
			continue
		}
		items = append(items, r)
	}
	return &ListResult{AsOf: asOf, Items: items, Conflicts: coststandard.Conflicts(resolved)}, nil
}

// ActiveDailyCost returns the standard in force for key on asOf.
func (s *Service) ActiveDailyCost(ctx context.Context, key coststandard.GroupKey, asOf versioning.Date) (*coststandard.Resolved, error) {
	if s == nil {
		return nil, errors.New("cost standard service: nil service")
	}
	if err := key.Validate(); err != nil {
		return nil, err
	}
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.ActiveDailyCost(key, asOf)
}

// Get loads a single standard with its current status.
func (s *Service) Get(ctx context.Context, id string) (*coststandard.Resolved, error) {
	if s == nil {
		return nil, errors.New("cost standard service: nil service")
	}
	tenantID := s.tenantFromContext(ctx)
	item, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, coststandard.ErrNotFound
	}
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	resolved, err := snap.Resolve(snap.Today())
	if err != nil {
		return nil, err
	}
	for _, r := range resolved {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, coststandard.ErrNotFound
}

// Create stores a new dated version.
func (s *Service) Create(ctx context.Context, in CreateInput) (*coststandard.CostStandard, error) {
	if s == nil {
		return nil, errors.New("cost standard service: nil service")
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = s.currency
	}
	item := &coststandard.CostStandard{
		ID:            s.newID(),
		TenantID:      s.tenantFromContext(ctx),
		Key:           coststandard.NewGroupKey(in.EmployeeLevel, in.CityType),
		EffectiveFrom: in.EffectiveFrom,
		DailyCost:     in.DailyCost,
		Currency:      currency,
		Remark:        strings.TrimSpace(in.Remark),
	}
	if err := item.Validate(); err != nil {
		metrics.IncMutation("create", metrics.ResultError)
		return nil, err
	}
	if err := s.repo.Save(ctx, item); err != nil {
		metrics.IncMutation("create", metrics.ResultError)
		return nil, err
	}
	metrics.IncMutation("create", metrics.ResultSuccess)
	s.logger.Info().
		Str("tenant_id", item.TenantID).
		Str("id", item.ID).
		Str("group", item.Key.String()).
		Str("effective_from", item.EffectiveFrom.String()).
		Msg("cost standard created")
	return item, nil
}

// Update edits an existing version in place.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*coststandard.CostStandard, error) {
	if s == nil {
		return nil, errors.New("cost standard service: nil service")
	}
	tenantID := s.tenantFromContext(ctx)
	item, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		metrics.IncMutation("update", metrics.ResultError)
		return nil, coststandard.ErrNotFound
	}

	if in.EmployeeLevel != nil {
		item.Key.EmployeeLevel = strings.TrimSpace(*in.EmployeeLevel)
	}
	if in.CityType != nil {
		item.Key.CityType = coststandard.CityType(strings.TrimSpace(*in.CityType))
	}
	if in.EffectiveFrom != nil {
		item.EffectiveFrom = *in.EffectiveFrom
	}
	if in.DailyCost != nil {
		item.DailyCost = *in.DailyCost
	}
	if in.Currency != nil {
		item.Currency = strings.ToUpper(strings.TrimSpace(*in.Currency))
	}
	if in.Remark != nil {
		item.Remark = strings.TrimSpace(*in.Remark)
	}
	if err := item.Validate(); err != nil {
		metrics.IncMutation("update", metrics.ResultError)
		return nil, err
	}
	if err := s.repo.Save(ctx, item); err != nil {
		metrics.IncMutation("update", metrics.ResultError)
		return nil, err
	}
	metrics.IncMutation("update", metrics.ResultSuccess)
	s.logger.Info().Str("tenant_id", tenantID).Str("id", id).Msg("cost standard updated")
	return item, nil
}

// Delete removes a version.
func (s *Service) Delete(ctx context.Context, id string) error {
	if s == nil {
		return errors.New("cost standard service: nil service")
	}
	if id == "" {
		return coststandard.ErrEmptyID
	}
	tenantID := s.tenantFromContext(ctx)
	if err := s.repo.Delete(ctx, tenantID, id); err != nil {
		metrics.IncMutation("delete", metrics.ResultError)
		return err
	}
	metrics.IncMutation("delete", metrics.ResultSuccess)
	s.logger.Info().Str("tenant_id", tenantID).Str("id", id).Msg("cost standard deleted")
	return nil
}

func (s *Service) resolveItems(tenantID string, items []coststandard.CostStandard, asOf versioning.Date) ([]coststandard.Resolved, error) {
	start := time.Now()
	resolved, err := coststandard.Resolve(items, asOf)
	if err != nil {
		metrics.ObserveResolve(metrics.ResultError, time.Since(start), nil, 0)
		return nil, err
	}
	conflicts := coststandard.Conflicts(resolved)
	metrics.ObserveResolve(metrics.ResultSuccess, time.Since(start), statusLabels(coststandard.Counts(resolved)), len(conflicts))
	if len(conflicts) > 0 {
		event := s.logger.Warn().Str("tenant_id", tenantID).Str("as_of", asOf.String()).Int("conflicts", len(conflicts))
		groups := make([]string, 0, len(conflicts))
		for _, key := range conflicts {
			groups = append(groups, key.String())
		}
		event.Strs("groups", groups).Msg("duplicate effective dates leave several active cost standards")
	}
	return resolved, nil
}

// TenantFor returns the tenant a request acts on.
func (s *Service) TenantFor(ctx context.Context) string {
	return s.tenantFromContext(ctx)
}

func (s *Service) tenantFromContext(ctx context.Context) string {
	if tenantID := auth.TenantIDFromContext(ctx); tenantID != "" {
		return tenantID
	}
	return s.tenantID
}

func statusLabels(counts map[versioning.Status]int) map[string]int {
	out := make(map[string]int, len(counts))
	for status, n := range counts {
		out[string(status)] = n
	}
	return out
}
