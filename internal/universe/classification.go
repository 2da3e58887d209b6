package universe

import (
	"context"
	"time"

	"github.com/wonny/refdata/internal/contracts"
	"github.com/wonny/refdata/internal/refinfo"
	"github.com/wonny/refdata/internal/snapshot"
)

// HistorySource supplies every stock universe document of a country.
type HistorySource interface {
	UniverseHistory(ctx context.Context, country string) ([]snapshot.Snapshot[refinfo.UniverseDoc], error)
}

// Classification is the universe of classified stocks on an exchange,
// optionally restricted to new, listed stocks. Ids are in short form (600000.SH).
type Classification struct {
	name   string
	series *snapshot.Series[Set]
	ever   Set
}

// NewClassification filters each universe document once. exch accepts SH/SZ,
// XSHG/XSHE or "" for every exchange.
func NewClassification(name string, history []snapshot.Snapshot[refinfo.UniverseDoc], exch string, alive bool) (*Classification, error) {
	mic, err := contracts.ExchangeMIC(exch)
	if err != nil {
		return nil, err
	}

	items := make([]snapshot.Snapshot[Set], len(history))
	ever := make(Set)
	for i, h := range history {
		members := classify(h.Payload, mic, alive)
		for id := range members {
			ever[id] = struct{}{}
		}
		items[i] = snapshot.Snapshot[Set]{EffectiveDate: h.EffectiveDate, Payload: members}
	}

	return &Classification{
		name:   name,
		series: snapshot.NewSeries(name+" classification", items),
		ever:   ever,
	}, nil
}

// LoadClassification reads the universe history of country from src.
func LoadClassification(ctx context.Context, src HistorySource, name, country, exch string, alive bool) (*Classification, error) {
	history, err := src.UniverseHistory(ctx, country)
	if err != nil {
		return nil, err
	}
	return NewClassification(name, history, exch, alive)
}

func classify(doc refinfo.UniverseDoc, mic string, alive bool) Set {
	entries := doc.Classified(mic, alive)
	out := make(Set, len(entries))
	for _, c := range entries {
		out[contracts.WindCode(c.SecID)] = struct{}{}
	}
	return out
}

func (c *Classification) Name() string { return c.name }

// MemberSet resolves the latest document at or before asOf; earlier dates are NotFound.
func (c *Classification) MemberSet(asOf time.Time) (Set, error) {
	snap, err := c.series.Resolve(asOf)
	if err != nil {
		return nil, err
	}
	return snap.Payload.clone(), nil
}

func (c *Classification) EverSeen() Set { return c.ever.clone() }
