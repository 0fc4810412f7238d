package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	costapp "agency-admin/internal/coststandard/application"
	coststandard "agency-admin/internal/coststandard/domain"
	"agency-admin/internal/observability/metrics"
	"agency-admin/internal/versioning"
)

var (
	// ErrEmptyPlan is returned when a plan has no lines.
	ErrEmptyPlan = errors.New("forecast: empty plan")
	// ErrInvalidDays is returned for non-positive staffing days.
	ErrInvalidDays = errors.New("forecast: days must be positive")
	// ErrMixedCurrency is returned when lines resolve to different currencies.
	ErrMixedCurrency = errors.New("forecast: mixed currencies")
)

// Rates returns the cost standard in force for a group on a date.
// All lookups on one Rates value read the same stored standards.
type Rates interface {
	ActiveDailyCost(key coststandard.GroupKey, asOf versioning.Date) (*coststandard.Resolved, error)
}

// RateSource opens one Rates view per estimate.
type RateSource interface {
	Rates(ctx context.Context) (Rates, error)
}

// RateSourceFunc adapts a function to RateSource.
type RateSourceFunc func(ctx context.Context) (Rates, error)

// Rates implements RateSource.
func (f RateSourceFunc) Rates(ctx context.Context) (Rates, error) { return f(ctx) }

// ServiceRates prices from a cost standard service snapshot.
func ServiceRates(service *costapp.Service) RateSource {
	return RateSourceFunc(func(ctx context.Context) (Rates, error) {
		snap, err := service.Snapshot(ctx)
		if err != nil {
			return nil, err
		}
		return snap, nil
	})
}

// StaffingLine is planned work of one level in one city type.
// A zero On date prices the line as of today.
type StaffingLine struct {
	EmployeeLevel string
	CityType      string
	Days          decimal.Decimal
	On            versioning.Date
}

// PricedLine is a staffing line with the standard used to price it.
type PricedLine struct {
	StaffingLine
	StandardID string
	DailyCost  decimal.Decimal
	Amount     decimal.Decimal
}

// Estimate is a priced staffing plan.
type Estimate struct {
	Lines    []PricedLine
	Total    decimal.Decimal
	Currency string
}

// Estimator prices staffing plans with the active daily cost standards.
type Estimator struct {
	rates RateSource
}

// NewEstimator constructs an estimator.
func NewEstimator(rates RateSource) (*Estimator, error) {
	if rates == nil {
		return nil, errors.New("forecast: nil rate source")
	}
	return &Estimator{rates: rates}, nil
}

// Estimate prices every line with the standard active on the line's date.
func (e *Estimator) Estimate(ctx context.Context, lines []StaffingLine) (*Estimate, error) {
	result, err := e.estimate(ctx, lines)
	if err != nil {
		metrics.IncForecast(metrics.ResultError)
		return nil, err
	}
	metrics.IncForecast(metrics.ResultSuccess)
	return result, nil
}

func (e *Estimator) estimate(ctx context.Context, lines []StaffingLine) (*Estimate, error) {
	if e == nil || e.rates == nil {
		return nil, errors.New("forecast: nil estimator")
	}
	if len(lines) == 0 {
		return nil, ErrEmptyPlan
	}

	for i, line := range lines {
		if !line.Days.IsPositive() {
			return nil, fmt.Errorf("%w: line %d", ErrInvalidDays, i)
		}
	}
	rates, err := e.rates.Rates(ctx)
	if err != nil {
		return nil, fmt.Errorf("forecast: load rates: %w", err)
	}

	result := &Estimate{Lines: make([]PricedLine, 0, len(lines)), Total: decimal.Zero}
	for i, line := range lines {
		key := coststandard.NewGroupKey(line.EmployeeLevel, line.CityType)
		standard, err := rates.ActiveDailyCost(key, line.On)
		if err != nil {
			return nil, fmt.Errorf("forecast: line %d: %w", i, err)
		}
		if result.Currency == "" {
			result.Currency = standard.Currency
		} else if result.Currency != standard.Currency {
			return nil, fmt.Errorf("%w: %s and %s", ErrMixedCurrency, result.Currency, standard.Currency)
		}
		amount := standard.DailyCost.Mul(line.Days).Round(2)
		result.Lines = append(result.Lines, PricedLine{
			StaffingLine: line,
			StandardID:   standard.ID,
			DailyCost:    standard.DailyCost,
			Amount:       amount,
		})
		result.Total = result.Total.Add(amount)
	}
	return result, nil
}
