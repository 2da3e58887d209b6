package source

import (
	"context"
	"time"

	"github.com/wonny/refdata/internal/contracts"
	"github.com/wonny/refdata/pkg/logger"
	"github.com/wonny/refdata/pkg/metrics"
)

// TradingCalendar supplies the padding dates of a Cached source.
type TradingCalendar interface {
	PrevTradingDate(d time.Time, n int) (time.Time, error)
	NextTradingDate(d time.Time, n int) (time.Time, error)
}

// Window describes the date range a Cached source loaded.
type Window struct {
	RequestedStart time.Time
	RequestedEnd   time.Time
	EffectiveStart time.Time
	EffectiveEnd   time.Time
	// StartDegraded / EndDegraded: the padded boundary could not be computed
	// and the requested boundary was used instead.
	StartDegraded bool
	EndDegraded   bool
}

// Degraded reports whether either boundary fell back to the requested date.
func (w Window) Degraded() bool { return w.StartDegraded || w.EndDegraded }

// Covers reports whether [start, end] lies inside the loaded window.
func (w Window) Covers(start, end time.Time) bool {
	start, end = contracts.Day(start), contracts.Day(end)
	return !start.Before(w.EffectiveStart) && !end.After(w.EffectiveEnd)
}

// Cached loads the daily table for a fixed id set and padded window once,
// then answers DailySource queries from memory. It is read-only after
// construction and safe for concurrent use. Queries outside the window are
// answered from what was loaded; use Window().Covers to check beforehand.
type Cached struct {
	window Window
	data   contracts.Table
	logger *logger.Logger
}

// NewCached loads ids over [start, end] widened by the calendar padding.
func NewCached(ctx context.Context, src *Source, cal TradingCalendar, ids []string, start, end time.Time, opts CachedOptions, rec *metrics.Recorder) (*Cached, error) {
	const op = "new cached source"
	if err := normalize(op, &opts); err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, contracts.Configuration(op, "end %s before start %s",
			contracts.FormatDate(end, contracts.ISODate), contracts.FormatDate(start, contracts.ISODate))
	}
	if cal == nil && !opts.Unpadded {
		return nil, contracts.Configuration(op, "a trading calendar is required for padding")
	}

	log := src.logger.WithField("cached", true)
	w := Window{
		RequestedStart: contracts.Day(start),
		RequestedEnd:   contracts.Day(end),
		EffectiveStart: contracts.Day(start),
		EffectiveEnd:   contracts.Day(end),
	}

	if !opts.Unpadded {
		// 패딩 실패 시 요청 경계 사용. 경고는 호출자 몫 (Window.Degraded)
		if d, err := cal.PrevTradingDate(start, opts.LookbackDays); err == nil {
			w.EffectiveStart = d
		} else {
			w.StartDegraded = true
			rec.RecordDegraded("start")
		}
		if d, err := cal.NextTradingDate(end, opts.LookaheadDays); err == nil {
			w.EffectiveEnd = d
		} else {
			w.EndDegraded = true
			rec.RecordDegraded("end")
		}
	}

	data, err := src.FetchRange(ctx, ids, w.EffectiveStart, w.EffectiveEnd)
	if err != nil {
		return nil, err
	}

	log.WithFields(map[string]interface{}{
		"ids":             len(ids),
		"rows":            len(data),
		"effective_start": contracts.FormatDate(w.EffectiveStart, contracts.ISODate),
		"effective_end":   contracts.FormatDate(w.EffectiveEnd, contracts.ISODate),
		"degraded":        w.Degraded(),
	}).Info("Cached source loaded")

	return &Cached{window: w, data: data, logger: log}, nil
}

// Window returns the loaded window.
func (c *Cached) Window() Window { return c.window }

// Len returns the number of cached rows.
func (c *Cached) Len() int { return len(c.data) }

// FetchRange filters the cached rows to ids in [start, end].
func (c *Cached) FetchRange(_ context.Context, ids []string, start, end time.Time) (contracts.Table, error) {
	c.checkWindow(start, end)
	return c.filter(ids, start, end), nil
}

// FetchRangeWithFields is FetchRange projected onto fields.
func (c *Cached) FetchRangeWithFields(_ context.Context, ids, fields []string, start, end time.Time) (contracts.Table, error) {
	if len(fields) == 0 {
		return nil, contracts.Configuration("fetch range with fields", "at least one field is required")
	}
	c.checkWindow(start, end)
	rows := c.filter(ids, start, end)
	for i, r := range rows {
		rows[i] = r.Project(fields)
	}
	return rows, nil
}

// FetchOnDate returns one cached row per security on date, sorted by id.
func (c *Cached) FetchOnDate(_ context.Context, ids []string, date time.Time) (contracts.Table, error) {
	c.checkWindow(date, date)
	return onePerID(c.filter(ids, date, date)), nil
}

// FetchStockDaily returns cached rows of id ("" = every cached security).
func (c *Cached) FetchStockDaily(_ context.Context, id string, start, end time.Time) (contracts.Table, error) {
	c.checkWindow(start, end)
	start, end = contracts.Day(start), contracts.Day(end)
	return c.data.Filter(func(r contracts.Record) bool {
		if id != "" && r.SecurityID != id {
			return false
		}
		return !r.Date.Before(start) && !r.Date.After(end)
	}), nil
}

func (c *Cached) filter(ids []string, start, end time.Time) contracts.Table {
	start, end = contracts.Day(start), contracts.Day(end)
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	return c.data.Filter(func(r contracts.Record) bool {
		if _, ok := want[r.SecurityID]; !ok {
			return false
		}
		return !r.Date.Before(start) && !r.Date.After(end)
	})
}

func (c *Cached) checkWindow(start, end time.Time) {
	if c.window.Covers(start, end) {
		return
	}
	c.logger.WithPeriod(start, end).WithFields(map[string]interface{}{
		"effective_start": contracts.FormatDate(c.window.EffectiveStart, contracts.ISODate),
		"effective_end":   contracts.FormatDate(c.window.EffectiveEnd, contracts.ISODate),
	}).Debug("Query outside cached window")
}
