// Package universe resolves point-in-time security universes.
//
// Every variant is immutable after construction. EverSeen is computed once;
// refreshed backing data needs a new instance.
package universe

import (
	"context"
	"sort"
	"time"

	"github.com/wonny/refdata/internal/contracts"
)

// Universe is a point-in-time member set plus its lifetime union.
type Universe interface {
	Name() string
	MemberSet(asOf time.Time) (Set, error)
	EverSeen() Set
}

// Composite is a Universe with constituent weights.
type Composite interface {
	Universe
	// CompositeWeights returns fractional weights (percent / 100).
	CompositeWeights(asOf time.Time) (map[string]float64, error)
}

var (
	_ Universe  = (*Fixed)(nil)
	_ Universe  = (*WholeMarket)(nil)
	_ Universe  = (*Classification)(nil)
	_ Composite = (*Composition)(nil)
)

// Set is a set of security ids.
type Set map[string]struct{}

// NewSet builds a set from ids.
func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Contains reports whether id is in the set.
func (s Set) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// Len returns the set size.
func (s Set) Len() int { return len(s) }

// Sorted returns the members in ascending order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s Set) clone() Set {
	out := make(Set, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Fixed is a static member set, identical on every date.
type Fixed struct {
	name    string
	members Set
}

// NewFixed creates a fixed universe.
func NewFixed(name string, ids []string) *Fixed {
	return &Fixed{name: name, members: NewSet(ids...)}
}

func (f *Fixed) Name() string { return f.name }

// MemberSet returns the static set.
func (f *Fixed) MemberSet(time.Time) (Set, error) { return f.members.clone(), nil }

// EverSeen returns the static set.
func (f *Fixed) EverSeen() Set { return f.members.clone() }

// ListingSource supplies listing intervals of every security in a market.
type ListingSource interface {
	FetchListings(ctx context.Context) ([]contracts.UniverseMember, error)
}

// WholeMarket holds every listed security: a member on D iff
// listDate <= D < delistDate.
type WholeMarket struct {
	name    string
	members []contracts.UniverseMember
	ever    Set
}

// NewWholeMarket creates a whole-market universe from listing intervals. A
// member with a zero InclusionDate has not listed yet: it is ever-seen but
// never a member.
func NewWholeMarket(name string, members []contracts.UniverseMember) *WholeMarket {
	listed := make([]contracts.UniverseMember, 0, len(members))
	ever := make(Set, len(members))
	for _, m := range members {
		ever[m.SecurityID] = struct{}{}
		if !m.InclusionDate.IsZero() {
			listed = append(listed, m)
		}
	}
	return &WholeMarket{name: name, members: listed, ever: ever}
}

// LoadWholeMarket reads the listing intervals from src.
func LoadWholeMarket(ctx context.Context, src ListingSource, name string) (*WholeMarket, error) {
	members, err := src.FetchListings(ctx)
	if err != nil {
		return nil, err
	}
	return NewWholeMarket(name, members), nil
}

func (w *WholeMarket) Name() string { return w.name }

// MemberSet is empty, not an error, before the first listing.
func (w *WholeMarket) MemberSet(asOf time.Time) (Set, error) {
	out := make(Set)
	for _, m := range w.members {
		if m.Contains(asOf) {
			out[m.SecurityID] = struct{}{}
		}
	}
	return out, nil
}

func (w *WholeMarket) EverSeen() Set { return w.ever.clone() }
