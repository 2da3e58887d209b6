package source

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/wonny/refdata/internal/contracts"
)

// Wind column names used by the reference lookups.
const (
	colExDate         = "EX_DT"
	colDivProgress    = "S_DIV_PROGRESS"
	colRightsExDate   = "S_RIGHTSISSUE_EXDIVIDENDDATE"
	colRightsProgress = "S_RIGHTSISSUE_PROGRESS"
	colTradeDays      = "TRADE_DAYS"
	colExchMarket     = "S_INFO_EXCHMARKET"
	colListDate       = "S_INFO_LISTDATE"
	colDelistDate     = "S_INFO_DELISTDATE"
	colSuspendDate    = "S_DQ_SUSPENDDATE"

	// progressRealized marks a corporate action that has been carried out.
	progressRealized = "3"
	// exchangeSSE: since 2012-01-04 SSE and SZSE share one trading calendar.
	exchangeSSE = "SSE"
)

// FetchDividends returns dividend rows ex-dated in [start, end]. id "" reads all securities.
func (s *Source) FetchDividends(ctx context.Context, id string, start, end time.Time, realizedOnly bool) (contracts.Table, error) {
	var extra []contracts.Equality
	if realizedOnly {
		extra = append(extra, contracts.Equality{Column: colDivProgress, Value: progressRealized})
	}
	return s.fetchSingle(ctx, "fetch dividends", keepAll, s.opts.Tables.Dividend, id, colExDate, start, end, extra...)
}

// FetchRightIssues returns rights issue rows ex-dated in [start, end].
func (s *Source) FetchRightIssues(ctx context.Context, id string, start, end time.Time, realizedOnly bool) (contracts.Table, error) {
	var extra []contracts.Equality
	if realizedOnly {
		extra = append(extra, contracts.Equality{Column: colRightsProgress, Value: progressRealized})
	}
	return s.fetchSingle(ctx, "fetch right issues", keepAll, s.opts.Tables.RightIssue, id, colRightsExDate, start, end, extra...)
}

// FetchBusinessDates returns the SSE trading days in [start, end], ascending.
func (s *Source) FetchBusinessDates(ctx context.Context, start, end time.Time) ([]time.Time, error) {
	const op = "fetch business dates"
	rows, err := s.backend.Query(ctx, contracts.Query{
		Table:   s.opts.Tables.Calendar,
		Columns: []string{colTradeDays},
		Range:   s.dateRange(colTradeDays, start, end),
		Equals:  []contracts.Equality{{Column: colExchMarket, Value: exchangeSSE}},
	})
	if err != nil {
		return nil, contracts.Backend(op, err)
	}

	dates := make([]time.Time, 0, len(rows))
	for _, row := range rows {
		raw, _ := row.Get(colTradeDays)
		d, err := contracts.ParseDate(raw)
		if err != nil {
			return nil, contracts.Backend(op, fmt.Errorf("decode %s: %w", colTradeDays, err))
		}
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

// FetchDelistedStocks maps securities delisted in [start, end] to their delisting date.
func (s *Source) FetchDelistedStocks(ctx context.Context, start, end time.Time) (map[string]time.Time, error) {
	const op = "fetch delisted stocks"
	rows, err := s.backend.Query(ctx, contracts.Query{
		Table:   s.opts.Tables.Description,
		Columns: []string{s.opts.IDColumn, colDelistDate},
		Range:   s.dateRange(colDelistDate, start, end),
	})
	if err != nil {
		return nil, contracts.Backend(op, err)
	}

	out := make(map[string]time.Time, len(rows))
	for _, row := range rows {
		raw, _ := row.Get(colDelistDate)
		d, err := contracts.ParseDate(raw)
		if err != nil {
			return nil, contracts.Backend(op, fmt.Errorf("decode %s: %w", colDelistDate, err))
		}
		out[row.String(s.opts.IDColumn)] = d
	}
	return out, nil
}

// FetchSuspensionDates returns (security, suspension date) rows in [start, end].
func (s *Source) FetchSuspensionDates(ctx context.Context, start, end time.Time) (contracts.Table, error) {
	return s.fetchSingle(ctx, "fetch suspension dates", keepAll, s.opts.Tables.Suspension, "", colSuspendDate, start, end)
}

// FetchListings returns the listing interval of every security known to the
// description table. Securities without a list date come back with a zero
// InclusionDate.
func (s *Source) FetchListings(ctx context.Context) ([]contracts.UniverseMember, error) {
	const op = "fetch listings"
	rows, err := s.backend.Query(ctx, contracts.Query{
		Table:   s.opts.Tables.Description,
		Columns: []string{s.opts.IDColumn, colListDate, colDelistDate},
	})
	if err != nil {
		return nil, contracts.Backend(op, err)
	}

	members := make([]contracts.UniverseMember, 0, len(rows))
	for _, row := range rows {
		var listed time.Time
		if listRaw, _ := row.Get(colListDate); listRaw != nil && row.String(colListDate) != "" {
			if listed, err = contracts.ParseDate(listRaw); err != nil {
				return nil, contracts.Backend(op, fmt.Errorf("decode %s: %w", colListDate, err))
			}
		}
		m := contracts.UniverseMember{SecurityID: row.String(s.opts.IDColumn), InclusionDate: listed}
		if delistRaw, ok := row.Get(colDelistDate); ok && delistRaw != nil && row.String(colDelistDate) != "" {
			delisted, err := contracts.ParseDate(delistRaw)
			if err != nil {
				return nil, contracts.Backend(op, fmt.Errorf("decode %s: %w", colDelistDate, err))
			}
			m.ExclusionDate = &delisted
		}
		members = append(members, m)
	}
	return members, nil
}
