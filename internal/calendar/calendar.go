// Package calendar answers trading-date arithmetic over an exchange's
// business dates.
package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/refdata/internal/contracts"
	"github.com/wonny/refdata/internal/snapshot"
)

// BusinessDateSource loads business dates from the relational store.
type BusinessDateSource interface {
	FetchBusinessDates(ctx context.Context, start, end time.Time) ([]time.Time, error)
}

// TradingDateSource loads the trading dates document of a country.
type TradingDateSource interface {
	TradingDates(ctx context.Context, country string) ([]time.Time, error)
}

// Calendar is an immutable set of trading dates.
type Calendar struct {
	dates *snapshot.Series[struct{}]
}

// New builds a calendar from trading dates in any order.
func New(dates []time.Time) *Calendar {
	items := make([]snapshot.Snapshot[struct{}], len(dates))
	for i, d := range dates {
		items[i] = snapshot.Snapshot[struct{}]{EffectiveDate: d}
	}
	return &Calendar{dates: snapshot.NewSeries("trading calendar", items)}
}

// LoadRelational builds a calendar from the business date table between start and end.
func LoadRelational(ctx context.Context, src BusinessDateSource, start, end time.Time) (*Calendar, error) {
	dates, err := src.FetchBusinessDates(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("load trading calendar: %w", err)
	}
	return New(dates), nil
}

// LoadDocument builds a calendar from the country's trading dates document.
func LoadDocument(ctx context.Context, src TradingDateSource, country string) (*Calendar, error) {
	dates, err := src.TradingDates(ctx, country)
	if err != nil {
		return nil, fmt.Errorf("load trading calendar: %w", err)
	}
	return New(dates), nil
}

// Len returns the number of trading dates.
func (c *Calendar) Len() int { return c.dates.Len() }

// Dates returns all trading dates ascending.
func (c *Calendar) Dates() []time.Time { return c.dates.Dates() }

// IsTradingDate reports whether d is a trading date.
func (c *Calendar) IsTradingDate(d time.Time) bool {
	snap, err := c.dates.Resolve(d)
	return err == nil && snap.EffectiveDate.Equal(contracts.Day(d))
}

// PrevTradingDate returns the n-th trading date strictly before d.
func (c *Calendar) PrevTradingDate(d time.Time, n int) (time.Time, error) {
	snaps, err := c.dates.ResolveRange(contracts.Day(d).AddDate(0, 0, -1), n)
	if err != nil {
		return time.Time{}, fmt.Errorf("previous trading date: %w", err)
	}
	return snaps[n-1].EffectiveDate, nil
}

// NextTradingDate returns the n-th trading date strictly after d.
func (c *Calendar) NextTradingDate(d time.Time, n int) (time.Time, error) {
	snaps, err := c.dates.After(d, n)
	if err != nil {
		return time.Time{}, fmt.Errorf("next trading date: %w", err)
	}
	return snaps[n-1].EffectiveDate, nil
}

// Between returns the trading dates in [start, end].
func (c *Calendar) Between(start, end time.Time) []time.Time {
	start, end = contracts.Day(start), contracts.Day(end)
	out := make([]time.Time, 0)
	for _, d := range c.dates.Dates() {
		if d.Before(start) || d.After(end) {
			continue
		}
		out = append(out, d)
	}
	return out
}
