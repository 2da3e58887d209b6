package universe

import (
	"context"
	"fmt"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"

	"github.com/wonny/refdata/internal/contracts"
	"github.com/wonny/refdata/internal/snapshot"
)

var validate = validator.New()

// CompositionOptions names the index weight table and its columns.
type CompositionOptions struct {
	Table        string `default:"aindexhs300freeweight" validate:"required"`
	IndexColumn  string `default:"S_INFO_WINDCODE" validate:"required"`
	DateColumn   string `default:"TRADE_DT" validate:"required"`
	MemberColumn string `default:"S_CON_WINDCODE" validate:"required"`
	WeightColumn string `default:"I_WEIGHT" validate:"required"`
}

// Composition is an index universe: members and weights come from the
// latest composition snapshot at or before the as-of date.
type Composition struct {
	name      string
	indexCode string
	series    *snapshot.Series[map[string]float64]
	ever      Set
}

// NewComposition groups weights (in percent) into one snapshot per date. A
// security listed twice on one date is a DuplicateRecord.
func NewComposition(name, indexCode string, weights []contracts.CompositeWeight) (*Composition, error) {
	byDate := make(map[time.Time]map[string]float64)
	ever := make(Set)
	for _, w := range weights {
		day := contracts.Day(w.AsOf)
		snap, ok := byDate[day]
		if !ok {
			snap = make(map[string]float64)
			byDate[day] = snap
		}
		if _, dup := snap[w.SecurityID]; dup {
			return nil, contracts.DuplicateRecord("new composition", "%s lists %s twice on %s",
				indexCode, w.SecurityID, contracts.FormatDate(day, contracts.ISODate))
		}
		snap[w.SecurityID] = w.Weight
		ever[w.SecurityID] = struct{}{}
	}

	items := make([]snapshot.Snapshot[map[string]float64], 0, len(byDate))
	for day, snap := range byDate {
		items = append(items, snapshot.Snapshot[map[string]float64]{EffectiveDate: day, Payload: snap})
	}

	return &Composition{
		name:      name,
		indexCode: indexCode,
		series:    snapshot.NewSeries(indexCode+" composition", items),
		ever:      ever,
	}, nil
}

// LoadComposition reads every composition snapshot of indexCode.
func LoadComposition(ctx context.Context, backend contracts.RelationalBackend, name, indexCode string, opts CompositionOptions) (*Composition, error) {
	const op = "load composition"
	if err := defaults.Set(&opts); err != nil {
		return nil, contracts.Configuration(op, "apply defaults: %v", err)
	}
	if err := validate.Struct(&opts); err != nil {
		return nil, contracts.Configuration(op, "%v", err)
	}

	rows, err := backend.Query(ctx, contracts.Query{
		Table:   opts.Table,
		Columns: []string{opts.DateColumn, opts.MemberColumn, opts.WeightColumn},
		Equals:  []contracts.Equality{{Column: opts.IndexColumn, Value: indexCode}},
		OrderBy: []string{opts.DateColumn},
	})
	if err != nil {
		return nil, contracts.Backend(op, err)
	}

	weights := make([]contracts.CompositeWeight, 0, len(rows))
	for _, r := range rows {
		raw, _ := r.Get(opts.DateColumn)
		d, err := contracts.ParseDate(raw)
		if err != nil {
			return nil, contracts.Backend(op, fmt.Errorf("decode %s: %w", opts.DateColumn, err))
		}
		w, ok := r.Float(opts.WeightColumn)
		if !ok {
			return nil, contracts.Backendf(op, "%s on %s has no numeric %s", r.String(opts.MemberColumn), contracts.FormatDate(d, contracts.ISODate), opts.WeightColumn)
		}
		weights = append(weights, contracts.CompositeWeight{SecurityID: r.String(opts.MemberColumn), AsOf: d, Weight: w})
	}
	return NewComposition(name, indexCode, weights)
}

func (c *Composition) Name() string { return c.name }

// IndexCode returns the index the composition belongs to.
func (c *Composition) IndexCode() string { return c.indexCode }

// MemberSet returns the members of the resolved snapshot. Dates before the
// first snapshot are NotFound.
func (c *Composition) MemberSet(asOf time.Time) (Set, error) {
	snap, err := c.series.Resolve(asOf)
	if err != nil {
		return nil, err
	}
	out := make(Set, len(snap.Payload))
	for id := range snap.Payload {
		out[id] = struct{}{}
	}
	return out, nil
}

// CompositeWeights returns the resolved snapshot's weights as fractions.
func (c *Composition) CompositeWeights(asOf time.Time) (map[string]float64, error) {
	snap, err := c.series.Resolve(asOf)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(snap.Payload))
	for id, w := range snap.Payload {
		out[id] = w / 100
	}
	return out, nil
}

// SnapshotDate returns the composition date in force on asOf.
func (c *Composition) SnapshotDate(asOf time.Time) (time.Time, error) {
	snap, err := c.series.Resolve(asOf)
	if err != nil {
		return time.Time{}, err
	}
	return snap.EffectiveDate, nil
}

func (c *Composition) EverSeen() Set { return c.ever.clone() }
