// Package bindata reads intraday bins (k-lines) stored one table per market
// segment, with prices scaled by contracts.PriceScale.
package bindata

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"

	"github.com/wonny/refdata/internal/contracts"
	"github.com/wonny/refdata/pkg/logger"
	"github.com/wonny/refdata/pkg/metrics"
)

var validate = validator.New()

// Options names the reference table and the k-line columns.
type Options struct {
	RefTable    string `default:"dict_market_code" validate:"required"`
	RefID       string `default:"sec_id" validate:"required"`
	RefTableCol string `default:"table_name" validate:"required"`
	TablePrefix string `default:"kline_" validate:"required"`
	DateFormat  string `default:"20060102" validate:"required"`
	Columns     Columns
}

// Columns are the k-line table columns.
type Columns struct {
	TradeDate   string `default:"tradedate" validate:"required"`
	Timestamp   string `default:"kl_time" validate:"required"`
	SeqNo       string `default:"kl_score" validate:"required"`
	PeriodID    string `default:"kl_period_id" validate:"required"`
	Exchange    string `default:"exchange" validate:"required"`
	SecID       string `default:"sec_id" validate:"required"`
	Open        string `default:"open_px" validate:"required"`
	Close       string `default:"close_px" validate:"required"`
	High        string `default:"high_px" validate:"required"`
	Low         string `default:"low_px" validate:"required"`
	Volume      string `default:"volume" validate:"required"`
	Turnover    string `default:"turnover" validate:"required"`
	VolumeSum   string `default:"volume_sum" validate:"required"`
	TurnoverSum string `default:"turnover_sum" validate:"required"`
}

func (c Columns) list() []string {
	return []string{
		c.TradeDate, c.Timestamp, c.SeqNo, c.PeriodID, c.Exchange, c.SecID,
		c.Open, c.Close, c.High, c.Low, c.Volume, c.Turnover, c.VolumeSum, c.TurnoverSum,
	}
}

// Source resolves each security to its k-line table once, at construction.
type Source struct {
	backend contracts.RelationalBackend
	opts    Options
	tables  map[string]tableRef
	logger  *logger.Logger
	metrics *metrics.Recorder
}

// tableRef keeps the id as the reference table spells it.
type tableRef struct {
	storedID string
	table    string
}

// New loads the security -> table reference and returns a Source.
func New(ctx context.Context, backend contracts.RelationalBackend, opts Options, log *logger.Logger, rec *metrics.Recorder) (*Source, error) {
	const op = "new bin source"
	if backend == nil {
		return nil, contracts.Configuration(op, "backend is required")
	}
	if err := defaults.Set(&opts); err != nil {
		return nil, contracts.Configuration(op, "apply defaults: %v", err)
	}
	if err := validate.Struct(&opts); err != nil {
		return nil, contracts.Configuration(op, "%v", err)
	}

	rows, err := backend.Query(ctx, contracts.Query{
		Table:   opts.RefTable,
		Columns: []string{opts.RefID, opts.RefTableCol},
	})
	if err != nil {
		return nil, contracts.Backend(op, err)
	}

	tables := make(map[string]tableRef, len(rows))
	for _, r := range rows {
		ref := tableRef{storedID: r.String(opts.RefID), table: r.String(opts.RefTableCol)}
		id := strings.ToUpper(ref.storedID)
		if prev, dup := tables[id]; dup && prev.table != ref.table {
			return nil, contracts.DuplicateRecord(op, "%s maps to both %s and %s", id, prev.table, ref.table)
		}
		tables[id] = ref
	}

	l := logger.OrNop(log).Component("bindata")
	l.WithField("securities", len(tables)).Info("Bin reference loaded")

	return &Source{backend: backend, opts: opts, tables: tables, logger: l, metrics: rec}, nil
}

// Table returns the k-line table of id.
func (s *Source) Table(id string) (string, bool) {
	ref, ok := s.tables[strings.ToUpper(id)]
	if !ok {
		return "", false
	}
	return s.opts.TablePrefix + ref.table, true
}

// FetchBins returns the binSize-minute bars of ids in [start, end], grouped by
// id in request order and ordered by sequence number within an id.
func (s *Source) FetchBins(ctx context.Context, ids []string, start, end time.Time, binSize int) ([]contracts.Bar, error) {
	const op = "fetch bins"
	if binSize < 1 {
		return nil, contracts.Configuration(op, "bin size must be positive, got %d", binSize)
	}

	// 테이블 먼저 전부 확인
	tables := make([]string, len(ids))
	for i, id := range ids {
		t, ok := s.Table(id)
		if !ok {
			return nil, contracts.NotFound(op, "no k-line table for %s", id)
		}
		tables[i] = t
	}

	s.metrics.RecordChunks(op, len(ids))
	bars := make([]contracts.Bar, 0)
	cols := s.opts.Columns
	for i, id := range ids {
		rows, err := s.backend.Query(ctx, contracts.Query{
			Table:   tables[i],
			Columns: cols.list(),
			Range: &contracts.RangeFilter{
				Column: cols.TradeDate,
				From:   contracts.FormatDate(start, s.opts.DateFormat),
				To:     contracts.FormatDate(end, s.opts.DateFormat),
			},
			Equals: []contracts.Equality{
				{Column: cols.SecID, Value: s.tables[strings.ToUpper(id)].storedID},
				{Column: cols.PeriodID, Value: binSize},
			},
			OrderBy: []string{cols.SeqNo},
		})
		if err != nil {
			return nil, contracts.Backend(op, fmt.Errorf("%s: %w", id, err))
		}

		for _, r := range rows {
			b, err := s.toBar(r)
			if err != nil {
				return nil, contracts.Backend(op, fmt.Errorf("%s: %w", id, err))
			}
			bars = append(bars, b)
		}
		s.logger.WithFields(map[string]interface{}{
			"sec_id": id,
			"table":  tables[i],
			"bars":   len(rows),
		}).Debug("Fetched bins")
	}
	return bars, nil
}

func (s *Source) toBar(r contracts.Row) (contracts.Bar, error) {
	c := s.opts.Columns
	raw, _ := r.Get(c.TradeDate)
	day, err := contracts.ParseDate(raw)
	if err != nil {
		return contracts.Bar{}, err
	}
	b := contracts.Bar{
		SecurityID: strings.ToUpper(r.String(c.SecID)),
		TradeDate:  day,
		Exchange:   r.String(c.Exchange),
	}
	if ts, ok := r.Get(c.Timestamp); ok && ts != nil {
		if b.Timestamp, err = contracts.ParseTimestamp(ts); err != nil {
			return contracts.Bar{}, err
		}
	}
	b.SeqNo, _ = r.Int(c.SeqNo)
	b.PeriodID, _ = r.Int(c.PeriodID)
	b.Volume, _ = r.Int(c.Volume)
	b.VolumeSum, _ = r.Int(c.VolumeSum)
	b.Turnover, _ = r.Float(c.Turnover)
	b.TurnoverSum, _ = r.Float(c.TurnoverSum)

	prices := []struct {
		col string
		dst *float64
	}{
		{c.Open, &b.Open}, {c.High, &b.High}, {c.Low, &b.Low}, {c.Close, &b.Close},
	}
	for _, p := range prices {
		v, _ := r.Get(p.col)
		px, err := contracts.NormalizePriceValue(v)
		if err != nil {
			return contracts.Bar{}, fmt.Errorf("%s: %w", p.col, err)
		}
		*p.dst = px
	}
	return b, nil
}
