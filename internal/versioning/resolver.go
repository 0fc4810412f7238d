// Package versioning resolves which dated version of a keyed value is in
// force on a reference date.
package versioning

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrInvalidKey is returned when a version carries an unusable key.
	ErrInvalidKey = errors.New("versioning: invalid key")
	// ErrInvalidEffectiveDate is returned when a version has no effective date.
	ErrInvalidEffectiveDate = errors.New("versioning: invalid effective date")
	// ErrNoActiveVersion is returned when a key has nothing in force.
	ErrNoActiveVersion = errors.New("versioning: no active version")
	// ErrAmbiguousActive is returned when a key has several versions in force.
	ErrAmbiguousActive = errors.New("versioning: ambiguous active version")
)

// Status describes a version relative to a reference date.
type Status string

const (
	StatusActive     Status = "active"
	StatusSuperseded Status = "superseded"
	StatusPending    Status = "pending"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusSuperseded, StatusPending:
		return true
	default:
		return false
	}
}

// ParseStatus normalizes a status string.
func ParseStatus(value string) (Status, bool) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	return status, status.IsValid()
}

// Key is a composite identity compared by value.
type Key[K any] interface {
	comparable
	Validate() error
	Compare(other K) int
}

// Version is one dated value of a key.
type Version[K Key[K], V any] struct {
	ID            string
	Key           K
	EffectiveFrom Date
	Value         V
}

// Resolved is a version with its computed status.
type Resolved[K Key[K], V any] struct {
	Version[K, V]
	Status Status
}

// Resolve computes the status of every version as of asOf.
//
// Per key, versions effective after asOf are pending. Among the rest, the
// ones sharing the latest effective date are active and the older ones are
// superseded. Duplicate latest dates all stay active so the anomaly is
// visible to callers. The input is not modified.
func Resolve[K Key[K], V any](versions []Version[K, V], asOf Date) ([]Resolved[K, V], error) {
	if asOf.IsZero() {
		return nil, fmt.Errorf("%w: zero reference date", ErrInvalidEffectiveDate)
	}

	latest := make(map[K]Date, len(versions))
	for i, v := range versions {
		if err := v.Key.Validate(); err != nil {
			return nil, fmt.Errorf("%w: version %d (id=%q): %w", ErrInvalidKey, i, v.ID, err)
		}
		if v.EffectiveFrom.IsZero() {
			return nil, fmt.Errorf("%w: version %d (id=%q)", ErrInvalidEffectiveDate, i, v.ID)
		}
		if v.EffectiveFrom.After(asOf) {
			continue
		}
		if current, ok := latest[v.Key]; !ok || v.EffectiveFrom.After(current) {
			latest[v.Key] = v.EffectiveFrom
		}
	}

	result := make([]Resolved[K, V], 0, len(versions))
	for _, v := range versions {
		result = append(result, Resolved[K, V]{Version: v, Status: statusOf(v, asOf, latest)})
	}

	slices.SortStableFunc(result, func(a, b Resolved[K, V]) int {
		if c := a.Key.Compare(b.Key); c != 0 {
			return c
		}
		if c := b.EffectiveFrom.Compare(a.EffectiveFrom); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return result, nil
}

func statusOf[K Key[K], V any](v Version[K, V], asOf Date, latest map[K]Date) Status {
	if v.EffectiveFrom.After(asOf) {
		return StatusPending
	}
	maxDate, ok := latest[v.Key]
	if !ok {
		return StatusPending
	}
	if v.EffectiveFrom.Equal(maxDate) {
		return StatusActive
	}
	return StatusSuperseded
}

// ActiveByKey groups active versions by key.
func ActiveByKey[K Key[K], V any](resolved []Resolved[K, V]) map[K][]Resolved[K, V] {
	active := make(map[K][]Resolved[K, V])
	for _, r := range resolved {
		if r.Status == StatusActive {
			active[r.Key] = append(active[r.Key], r)
		}
	}
	return active
}

// Conflicts returns, in key order, every key with more than one active version.
func Conflicts[K Key[K], V any](resolved []Resolved[K, V]) []K {
	var keys []K
	for key, list := range ActiveByKey(resolved) {
		if len(list) > 1 {
			keys = append(keys, key)
		}
	}
	slices.SortFunc(keys, func(a, b K) int { return a.Compare(b) })
	return keys
}

// Lookup returns the single active version for key.
func Lookup[K Key[K], V any](resolved []Resolved[K, V], key K) (Resolved[K, V], error) {
	var (
		found Resolved[K, V]
		count int
	)
	for _, r := range resolved {
		if r.Key != key || r.Status != StatusActive {
			continue
		}
		if count == 0 {
			found = r
		}
		count++
	}
	switch count {
	case 0:
		return Resolved[K, V]{}, ErrNoActiveVersion
	case 1:
		return found, nil
	default:
		return Resolved[K, V]{}, fmt.Errorf("%w: %d versions share the latest effective date", ErrAmbiguousActive, count)
	}
}

// Counts tallies resolved versions by status.
func Counts[K Key[K], V any](resolved []Resolved[K, V]) map[Status]int {
	counts := map[Status]int{
		StatusActive:     0,
		StatusSuperseded: 0,
		StatusPending:    0,
	}
	for _, r := range resolved {
		counts[r.Status]++
	}
	return counts
}
