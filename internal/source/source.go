// Package source retrieves daily tabular data for many securities from a
// relational backend, batching identifier lists into bounded queries.
package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wonny/refdata/internal/batch"
	"github.com/wonny/refdata/internal/contracts"
	"github.com/wonny/refdata/pkg/logger"
	"github.com/wonny/refdata/pkg/metrics"
)

// DailySource is implemented by both Source and Cached.
type DailySource interface {
	FetchRange(ctx context.Context, ids []string, start, end time.Time) (contracts.Table, error)
	FetchRangeWithFields(ctx context.Context, ids, fields []string, start, end time.Time) (contracts.Table, error)
	FetchOnDate(ctx context.Context, ids []string, date time.Time) (contracts.Table, error)
	FetchStockDaily(ctx context.Context, id string, start, end time.Time) (contracts.Table, error)
}

var (
	_ DailySource = (*Source)(nil)
	_ DailySource = (*Cached)(nil)
)

// Source is the bulk retrieval source. It holds no per-call state and is safe
// for concurrent use.
type Source struct {
	backend contracts.RelationalBackend
	opts    Options
	logger  *logger.Logger
	metrics *metrics.Recorder
}

// New creates a Source over backend.
func New(backend contracts.RelationalBackend, opts Options, log *logger.Logger, rec *metrics.Recorder) (*Source, error) {
	if backend == nil {
		return nil, contracts.Configuration("new source", "backend is required")
	}
	if err := normalize("new source", &opts); err != nil {
		return nil, err
	}
	return &Source{
		backend: backend,
		opts:    opts,
		logger:  logger.OrNop(log).Component("source"),
		metrics: rec,
	}, nil
}

// Options returns the effective options.
func (s *Source) Options() Options { return s.opts }

// FetchRange returns every column of the daily table for ids in [start, end].
func (s *Source) FetchRange(ctx context.Context, ids []string, start, end time.Time) (contracts.Table, error) {
	return s.fetchChunked(ctx, "fetch range", s.opts.Tables.StockDaily, ids, nil, start, end)
}

// FetchRangeWithFields returns only fields (plus id and date) for ids in [start, end].
func (s *Source) FetchRangeWithFields(ctx context.Context, ids, fields []string, start, end time.Time) (contracts.Table, error) {
	if len(fields) == 0 {
		return nil, contracts.Configuration("fetch range with fields", "at least one field is required")
	}
	return s.fetchChunked(ctx, "fetch range with fields", s.opts.Tables.StockDaily, ids, fields, start, end)
}

// FetchOnDate returns one row per security on date, sorted by security id.
func (s *Source) FetchOnDate(ctx context.Context, ids []string, date time.Time) (contracts.Table, error) {
	table, err := s.fetchChunked(ctx, "fetch on date", s.opts.Tables.StockDaily, ids, nil, date, date)
	if err != nil {
		return nil, err
	}
	return onePerID(table), nil
}

// FetchStockDaily returns daily rows of one security, or of all securities when id is "".
func (s *Source) FetchStockDaily(ctx context.Context, id string, start, end time.Time) (contracts.Table, error) {
	return s.fetchSingle(ctx, "fetch stock daily", uniquePerDay, s.opts.Tables.StockDaily, id, s.opts.DateColumn, start, end)
}

// FetchIndexDaily returns daily rows of one index, or of all indices when id is "".
func (s *Source) FetchIndexDaily(ctx context.Context, id string, start, end time.Time) (contracts.Table, error) {
	return s.fetchSingle(ctx, "fetch index daily", uniquePerDay, s.opts.Tables.IndexDaily, id, s.opts.DateColumn, start, end)
}

// FetchFundamentals reads table dated by dateColumn ("" = REPORT_PERIOD).
// A nil ids list reads every security in one query. Rows sharing a security
// and date (one per statement type, say) are all kept.
func (s *Source) FetchFundamentals(ctx context.Context, table string, ids []string, start, end time.Time, dateColumn string) (contracts.Table, error) {
	const op = "fetch fundamentals"
	if dateColumn == "" {
		dateColumn = "REPORT_PERIOD"
	}
	if ids == nil {
		return s.fetchSingle(ctx, op, keepAll, table, "", dateColumn, start, end)
	}
	q := contracts.Query{
		Table: table,
		Range: s.dateRange(dateColumn, start, end),
	}
	return s.runChunks(ctx, op, keepAll, q, ids, dateColumn, nil)
}

func (s *Source) fetchChunked(ctx context.Context, op, table string, ids, fields []string, start, end time.Time) (contracts.Table, error) {
	q := contracts.Query{
		Table: table,
		Range: s.dateRange(s.opts.DateColumn, start, end),
	}
	if fields != nil {
		q.Columns = append([]string{s.opts.IDColumn, s.opts.DateColumn}, fields...)
	}
	return s.runChunks(ctx, op, uniquePerDay, q, ids, s.opts.DateColumn, fields)
}

// rowMode says whether a read may hold several rows per (security, date).
type rowMode int

const (
	keepAll rowMode = iota
	// uniquePerDay keeps the last row of each (security, date)
	uniquePerDay
)

func (m rowMode) apply(chunks [][]contracts.Record) contracts.Table {
	if m == uniquePerDay {
		return contracts.Table(batch.Merge(chunks, contracts.Record.Key))
	}
	out := make(contracts.Table, 0)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

// runChunks issues one query per chunk of ids, sequentially. The first
// failing chunk aborts the call.
func (s *Source) runChunks(ctx context.Context, op string, mode rowMode, q contracts.Query, ids []string, dateColumn string, fields []string) (contracts.Table, error) {
	chunks := batch.Chunk(ids, s.opts.ChunkSize)
	s.metrics.RecordChunks(op, len(chunks))

	results := make([][]contracts.Record, 0, len(chunks))
	for i, chunk := range chunks {
		cq := q
		cq.In = &contracts.InFilter{Column: s.opts.IDColumn, Values: chunk}

		rows, err := s.backend.Query(ctx, cq)
		if err != nil {
			s.logger.WithError(err).WithFields(map[string]interface{}{
				"op":     op,
				"table":  q.Table,
				"chunk":  i + 1,
				"chunks": len(chunks),
			}).Warn("Chunk query failed")
			return nil, contracts.Backend(op, fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err))
		}

		records, err := s.toRecords(op, rows, dateColumn, fields)
		if err != nil {
			return nil, err
		}
		results = append(results, records)
	}

	table := mode.apply(results)
	table.Sort()

	s.logger.WithFields(map[string]interface{}{
		"op":     op,
		"table":  q.Table,
		"ids":    len(ids),
		"chunks": len(chunks),
		"rows":   len(table),
	}).Debug("Fetched chunked range")

	return table, nil
}

func (s *Source) fetchSingle(ctx context.Context, op string, mode rowMode, table, id, dateColumn string, start, end time.Time, extra ...contracts.Equality) (contracts.Table, error) {
	q := contracts.Query{
		Table:   table,
		Range:   s.dateRange(dateColumn, start, end),
		Equals:  extra,
		OrderBy: []string{dateColumn},
	}
	if id != "" {
		q.Equals = append([]contracts.Equality{{Column: s.opts.IDColumn, Value: id}}, extra...)
	}

	rows, err := s.backend.Query(ctx, q)
	if err != nil {
		return nil, contracts.Backend(op, err)
	}
	records, err := s.toRecords(op, rows, dateColumn, nil)
	if err != nil {
		return nil, err
	}
	out := mode.apply([][]contracts.Record{records})
	out.Sort()
	return out, nil
}

func (s *Source) dateRange(column string, start, end time.Time) *contracts.RangeFilter {
	return &contracts.RangeFilter{
		Column: column,
		From:   contracts.FormatDate(start, s.opts.DateFormat),
		To:     contracts.FormatDate(end, s.opts.DateFormat),
	}
}

func (s *Source) toRecords(op string, rows []contracts.Row, dateColumn string, fields []string) ([]contracts.Record, error) {
	records := make([]contracts.Record, 0, len(rows))
	for _, row := range rows {
		raw, ok := row.Get(dateColumn)
		if !ok {
			return nil, contracts.Backendf(op, "row without %s column", dateColumn)
		}
		date, err := contracts.ParseDate(raw)
		if err != nil {
			return nil, contracts.Backend(op, fmt.Errorf("decode %s: %w", dateColumn, err))
		}

		rec := contracts.Record{
			SecurityID: row.String(s.opts.IDColumn),
			Date:       date,
		}
		if fields != nil {
			rec.Values = row.Pick(fields)
		} else {
			rec.Values = make(map[string]interface{}, len(row))
			for k, v := range row {
				rec.Values[k] = v
			}
		}
		// id and date live on the record itself
		for k := range rec.Values {
			if strings.EqualFold(k, s.opts.IDColumn) || strings.EqualFold(k, dateColumn) {
				delete(rec.Values, k)
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func onePerID(table contracts.Table) contracts.Table {
	out := contracts.Table(batch.Dedup(table, func(r contracts.Record) string { return r.SecurityID }))
	out.Sort()
	return out
}
