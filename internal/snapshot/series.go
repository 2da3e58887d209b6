// Package snapshot resolves "the state as of date d" over series of
// immutable, dated snapshots.
package snapshot

import (
	"sort"
	"time"

	"github.com/wonny/refdata/internal/contracts"
)

// Snapshot is an immutable dated state.
type Snapshot[T any] struct {
	EffectiveDate time.Time
	Payload       T
}

// Series is an ordered set of snapshots. It is read-only after construction
// and safe for concurrent use.
type Series[T any] struct {
	name       string
	items      []Snapshot[T]
	duplicates []time.Time
}

// NewSeries copies items, normalizes their dates to days and sorts them
// ascending. Duplicate effective dates are retained and reported by every
// resolving call.
func NewSeries[T any](name string, items []Snapshot[T]) *Series[T] {
	sorted := make([]Snapshot[T], len(items))
	for i, it := range items {
		sorted[i] = Snapshot[T]{EffectiveDate: contracts.Day(it.EffectiveDate), Payload: it.Payload}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EffectiveDate.Before(sorted[j].EffectiveDate)
	})

	var dups []time.Time
	for i := 1; i < len(sorted); i++ {
		if sorted[i].EffectiveDate.Equal(sorted[i-1].EffectiveDate) {
			if len(dups) == 0 || !dups[len(dups)-1].Equal(sorted[i].EffectiveDate) {
				dups = append(dups, sorted[i].EffectiveDate)
			}
		}
	}

	return &Series[T]{name: name, items: sorted, duplicates: dups}
}

// Name identifies the series in errors.
func (s *Series[T]) Name() string { return s.name }

// Len returns the number of snapshots.
func (s *Series[T]) Len() int { return len(s.items) }

// Dates returns the effective dates in ascending order.
func (s *Series[T]) Dates() []time.Time {
	dates := make([]time.Time, len(s.items))
	for i, it := range s.items {
		dates[i] = it.EffectiveDate
	}
	return dates
}

// Each calls fn for every snapshot in ascending order.
func (s *Series[T]) Each(fn func(Snapshot[T])) {
	for _, it := range s.items {
		fn(it)
	}
}

// Resolve returns the snapshot with the greatest effective date <= asOf.
func (s *Series[T]) Resolve(asOf time.Time) (Snapshot[T], error) {
	const op = "resolve snapshot"
	if err := s.integrity(op); err != nil {
		return Snapshot[T]{}, err
	}
	idx := s.upperBound(asOf) - 1
	if idx < 0 {
		return Snapshot[T]{}, s.notFound(op, asOf)
	}
	return s.items[idx], nil
}

// ResolveRange returns the n most recent snapshots with effective date <=
// asOf, newest first.
func (s *Series[T]) ResolveRange(asOf time.Time, n int) ([]Snapshot[T], error) {
	const op = "resolve snapshot range"
	if n < 1 {
		return nil, contracts.Configuration(op, "count must be positive, got %d", n)
	}
	if err := s.integrity(op); err != nil {
		return nil, err
	}
	end := s.upperBound(asOf)
	if end < n {
		return nil, contracts.NotFound(op, "%s has %d snapshots at or before %s, need %d",
			s.name, end, contracts.FormatDate(asOf, contracts.ISODate), n)
	}
	out := make([]Snapshot[T], 0, n)
	for i := end - 1; i >= end-n; i-- {
		out = append(out, s.items[i])
	}
	return out, nil
}

// After returns the n earliest snapshots with effective date strictly after
// d, oldest first.
func (s *Series[T]) After(d time.Time, n int) ([]Snapshot[T], error) {
	const op = "resolve snapshots after"
	if n < 1 {
		return nil, contracts.Configuration(op, "count must be positive, got %d", n)
	}
	if err := s.integrity(op); err != nil {
		return nil, err
	}
	start := s.upperBound(d)
	if len(s.items)-start < n {
		return nil, contracts.NotFound(op, "%s has %d snapshots after %s, need %d",
			s.name, len(s.items)-start, contracts.FormatDate(d, contracts.ISODate), n)
	}
	out := make([]Snapshot[T], n)
	copy(out, s.items[start:start+n])
	return out, nil
}

// upperBound returns the index of the first snapshot dated after asOf.
func (s *Series[T]) upperBound(asOf time.Time) int {
	day := contracts.Day(asOf)
	return sort.Search(len(s.items), func(i int) bool {
		return s.items[i].EffectiveDate.After(day)
	})
}

func (s *Series[T]) integrity(op string) error {
	if len(s.duplicates) == 0 {
		return nil
	}
	return contracts.DuplicateRecord(op, "%s has %d snapshots sharing effective date %s",
		s.name, s.countOn(s.duplicates[0]), contracts.FormatDate(s.duplicates[0], contracts.ISODate))
}

func (s *Series[T]) countOn(d time.Time) int {
	n := 0
	for _, it := range s.items {
		if it.EffectiveDate.Equal(d) {
			n++
		}
	}
	return n
}

func (s *Series[T]) notFound(op string, asOf time.Time) error {
	if len(s.items) == 0 {
		return contracts.NotFound(op, "%s is empty", s.name)
	}
	return contracts.NotFound(op, "%s has no snapshot at or before %s (first is %s)",
		s.name, contracts.FormatDate(asOf, contracts.ISODate),
		contracts.FormatDate(s.items[0].EffectiveDate, contracts.ISODate))
}
