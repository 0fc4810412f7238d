package coststandard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"agency-admin/internal/versioning"
)

// CityType classifies the city an employee is billed in.
type CityType string

const (
	CityTier1    CityType = "tier1"
	CityNewTier1 CityType = "new_tier1"
	CityTier2    CityType = "tier2"
	CityOther    CityType = "other"
)

// IsKnown reports whether c is one of the predefined city types.
func (c CityType) IsKnown() bool {
	switch c {
	case CityTier1, CityNewTier1, CityTier2, CityOther:
		return true
	default:
		return false
	}
}

// GroupKey identifies what a cost standard prices: an employee level in a city type.
type GroupKey struct {
	EmployeeLevel string
	CityType      CityType
}

// NewGroupKey trims both parts.
func NewGroupKey(level string, cityType string) GroupKey {
	return GroupKey{
		EmployeeLevel: strings.TrimSpace(level),
		CityType:      CityType(strings.TrimSpace(cityType)),
	}
}

// Validate implements versioning.Key.
func (k GroupKey) Validate() error {
	if strings.TrimSpace(k.EmployeeLevel) == "" {
		return ErrEmptyEmployeeLevel
	}
	if strings.TrimSpace(string(k.CityType)) == "" {
		return ErrEmptyCityType
	}
	return nil
}

// Compare implements versioning.Key.
func (k GroupKey) Compare(other GroupKey) int {
	if c := strings.Compare(k.EmployeeLevel, other.EmployeeLevel); c != 0 {
		return c
	}
	return strings.Compare(string(k.CityType), string(other.CityType))
}

func (k GroupKey) String() string {
	return k.EmployeeLevel + "/" + string(k.CityType)
}

// MaxDailyCost is the first value the NUMERIC(12,2) daily_cost column cannot hold.
var MaxDailyCost = decimal.New(1, 10)

// CostStandard is one dated daily cost for a group key.
type CostStandard struct {
	ID            string          `json:"id"`
	TenantID      string          `json:"tenant_id"`
	Key           GroupKey        `json:"-"`
	EffectiveFrom versioning.Date `json:"effective_from"`
	DailyCost     decimal.Decimal `json:"daily_cost"`
	Currency      string          `json:"currency"`
	Remark        string          `json:"remark,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Validate checks cost standard invariants.
func (c CostStandard) Validate() error {
	if c.ID == "" {
		return ErrEmptyID
	}
	if c.TenantID == "" {
		return ErrEmptyTenantID
	}
	if err := c.Key.Validate(); err != nil {
		return err
	}
	if !c.Key.CityType.IsKnown() {
		return fmt.Errorf("%w: %q", ErrUnknownCityType, c.Key.CityType)
	}
	if c.EffectiveFrom.IsZero() {
		return ErrInvalidEffectiveFrom
	}
	if !c.DailyCost.IsPositive() {
		return ErrNonPositiveCost
	}
	if !c.DailyCost.Equal(c.DailyCost.Round(2)) {
		return fmt.Errorf("%w: %s has more than 2 decimal places", ErrInvalidCostPrecision, c.DailyCost)
	}
	if c.DailyCost.GreaterThanOrEqual(MaxDailyCost) {
		return fmt.Errorf("%w: %s exceeds %s", ErrInvalidCostPrecision, c.DailyCost, MaxDailyCost.Sub(decimal.New(1, -2)))
	}
	if len(c.Currency) != 3 {
		return ErrInvalidCurrency
	}
	return nil
}

// Version adapts the record for resolution.
func (c CostStandard) Version() versioning.Version[GroupKey, CostStandard] {
	return versioning.Version[GroupKey, CostStandard]{
		ID:            c.ID,
		Key:           c.Key,
		EffectiveFrom: c.EffectiveFrom,
		Value:         c,
	}
}

// Resolved is a cost standard with its status on a reference date.
type Resolved struct {
	CostStandard
	Status versioning.Status
}

// Resolve computes the status of every standard as of asOf.
func Resolve(items []CostStandard, asOf versioning.Date) ([]Resolved, error) {
	versions := make([]versioning.Version[GroupKey, CostStandard], 0, len(items))
	for _, item := range items {
		versions = append(versions, item.Version())
	}
	resolved, err := versioning.Resolve(versions, asOf)
	if err != nil {
		return nil, err
	}
	out := make([]Resolved, 0, len(resolved))
	for _, r := range resolved {
		out = append(out, Resolved{CostStandard: r.Value, Status: r.Status})
	}
	return out, nil
}

// Conflicts returns the group keys with more than one active standard.
func Conflicts(resolved []Resolved) []GroupKey {
	return versioning.Conflicts(toVersions(resolved))
}

// ActiveFor returns the single active standard of key.
func ActiveFor(resolved []Resolved, key GroupKey) (Resolved, error) {
	found, err := versioning.Lookup(toVersions(resolved), key)
	if err != nil {
		return Resolved{}, err
	}
	return Resolved{CostStandard: found.Value, Status: found.Status}, nil
}

// Counts tallies resolved standards per status.
func Counts(resolved []Resolved) map[versioning.Status]int {
	return versioning.Counts(toVersions(resolved))
}

func toVersions(resolved []Resolved) []versioning.Resolved[GroupKey, CostStandard] {
	out := make([]versioning.Resolved[GroupKey, CostStandard], 0, len(resolved))
	for _, r := range resolved {
		out = append(out, versioning.Resolved[GroupKey, CostStandard]{Version: r.Version(), Status: r.Status})
	}
	return out
}

// Repository manages cost standard persistence.
type Repository interface {
	List(ctx context.Context, tenantID string) ([]CostStandard, error)
	Get(ctx context.Context, tenantID, id string) (*CostStandard, error)
	Save(ctx context.Context, item *CostStandard) error
	Delete(ctx context.Context, tenantID, id string) error
}
