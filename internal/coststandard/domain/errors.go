package coststandard

import "errors"

var (
	// ErrEmptyID is returned when a standard has no id.
	ErrEmptyID = errors.New("cost standard: empty id")
	// ErrEmptyTenantID is returned when a standard has no tenant.
	ErrEmptyTenantID = errors.New("cost standard: empty tenant id")
	// ErrEmptyEmployeeLevel is returned when the group key lacks a level.
	ErrEmptyEmployeeLevel = errors.New("cost standard: empty employee level")
	// ErrEmptyCityType is returned when the group key lacks a city type.
	ErrEmptyCityType = errors.New("cost standard: empty city type")
	// ErrUnknownCityType is returned for city types outside the known set.
	ErrUnknownCityType = errors.New("cost standard: unknown city type")
	// ErrInvalidEffectiveFrom is returned when the effective date is missing.
	ErrInvalidEffectiveFrom = errors.New("cost standard: invalid effective date")
	// ErrNonPositiveCost is returned when the daily cost is not above zero.
	ErrNonPositiveCost = errors.New("cost standard: daily cost must be positive")
	// ErrInvalidCostPrecision is returned when the daily cost does not fit a money column.
	ErrInvalidCostPrecision = errors.New("cost standard: daily cost out of range or precision")
	// ErrInvalidCurrency is returned for a non ISO-4217 currency code.
	ErrInvalidCurrency = errors.New("cost standard: invalid currency")
	// ErrNotFound is returned when a standard does not exist.
	ErrNotFound = errors.New("cost standard: not found")
)

// IsValidation reports whether err is an input validation failure.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrEmptyEmployeeLevel,
		ErrEmptyCityType,
		ErrUnknownCityType,
		ErrInvalidEffectiveFrom,
		ErrNonPositiveCost,
		ErrInvalidCostPrecision,
		ErrInvalidCurrency,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
