// Package refinfo answers point-in-time reference lookups (stock
// classification, stock and futures information, trading dates) against the
// document store.
package refinfo

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/wonny/refdata/internal/contracts"
	"github.com/wonny/refdata/internal/memo"
	"github.com/wonny/refdata/internal/snapshot"
	"github.com/wonny/refdata/pkg/logger"
)

// Document collections.
const (
	CollectionUniverse = "universe.stocks"
	CollectionFutures  = "universe.futures"
	CollectionRefdata  = "universe.refdata"
	CollectionDaily    = "dailyData.stocks"
	CollectionBins     = "binData.stocks"
)

// DefaultCountry is used when a lookup passes country "".
const DefaultCountry = "CN"

const (
	tradingDatesName = "TradingDates"

	fieldSectors = "Sectors"
	fieldStocks  = "Stocks"
	fieldData    = "Data"
)

// Kind names a memoized lookup.
type Kind string

const (
	KindClassification Kind = "classification"
	KindInformation    Kind = "information"
	KindFutures        Kind = "futures"
	KindTradingDates   Kind = "trading_dates"
)

// Key identifies one memoized lookup result.
type Key struct {
	Kind     Kind
	AsOf     time.Time
	Country  string
	Exchange string
	Alive    bool
	Ticker   string
}

// Memo holds lookup results. It is owned by the caller and shared between
// services as needed.
type Memo = memo.Memo[Key, any]

// NewMemo creates a memo bounded to capacity entries.
func NewMemo(capacity int) *Memo {
	return memo.New[Key, any](capacity)
}

// Service resolves reference lookups as of a date.
type Service struct {
	docs   contracts.DocumentBackend
	memo   *Memo
	logger *logger.Logger
}

// New creates a Service. A nil memo disables memoization.
func New(docs contracts.DocumentBackend, m *Memo, log *logger.Logger) (*Service, error) {
	if docs == nil {
		return nil, contracts.Configuration("new refinfo", "document backend is required")
	}
	return &Service{
		docs:   docs,
		memo:   m,
		logger: logger.OrNop(log).Component("refinfo"),
	}, nil
}

// StockClassification returns the industry classification in force on asOf.
// exch accepts SH/SZ or XSHG/XSHE ("" = every exchange). With alive set only
// new, listed stocks are kept.
func (s *Service) StockClassification(ctx context.Context, asOf time.Time, exch, country string, alive bool) ([]Classification, error) {
	const op = "stock classification"
	mic, err := contracts.ExchangeMIC(exch)
	if err != nil {
		return nil, err
	}
	key := Key{Kind: KindClassification, AsOf: contracts.Day(asOf), Country: countryOr(country), Exchange: mic, Alive: alive}

	return lookup(s, key, func() ([]Classification, error) {
		doc, err := s.universeDoc(ctx, op, key.AsOf, key.Country)
		if err != nil {
			return nil, err
		}
		return doc.Classified(mic, alive), nil
	})
}

// StockInformation returns listing information in force on asOf.
func (s *Service) StockInformation(ctx context.Context, asOf time.Time, exch, country string) ([]StockInfo, error) {
	const op = "stock information"
	mic, err := contracts.ExchangeMIC(exch)
	if err != nil {
		return nil, err
	}
	key := Key{Kind: KindInformation, AsOf: contracts.Day(asOf), Country: countryOr(country), Exchange: mic}

	return lookup(s, key, func() ([]StockInfo, error) {
		doc, err := s.universeDoc(ctx, op, key.AsOf, key.Country)
		if err != nil {
			return nil, err
		}
		out := make([]StockInfo, 0, len(doc.Stocks))
		for _, st := range doc.Stocks {
			if mic == "" || st.ExchangeCD == mic {
				out = append(out, st)
			}
		}
		return out, nil
	})
}

// ExchangeStockNames returns the security ids of StockClassification.
func (s *Service) ExchangeStockNames(ctx context.Context, asOf time.Time, exch, country string, alive bool) ([]string, error) {
	entries, err := s.StockClassification(ctx, asOf, exch, country, alive)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(entries))
	for i, c := range entries {
		ids[i] = c.SecID
	}
	return ids, nil
}

// FuturesInformation returns the futures contracts known on asOf. ticker ""
// keeps every contract; listed keeps contracts with listDate <= asOf <= lastTradeDate.
func (s *Service) FuturesInformation(ctx context.Context, asOf time.Time, ticker string, listed bool, country string) ([]FuturesInfo, error) {
	const op = "futures information"
	key := Key{Kind: KindFutures, AsOf: contracts.Day(asOf), Country: countryOr(country), Alive: listed, Ticker: ticker}

	return lookup(s, key, func() ([]FuturesInfo, error) {
		doc, err := contracts.LatestBefore(ctx, s.docs, contracts.DocumentFilter{Collection: CollectionFutures, Country: key.Country}, key.AsOf)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		rows, err := tableField(op, doc, fieldData)
		if err != nil {
			return nil, err
		}
		all, err := decodeFutures(rows)
		if err != nil {
			return nil, contracts.Backend(op, err)
		}

		out := make([]FuturesInfo, 0, len(all))
		for _, f := range all {
			if ticker != "" && f.Ticker != ticker {
				continue
			}
			if listed && !f.ListedOn(key.AsOf) {
				continue
			}
			out = append(out, f)
		}
		return out, nil
	})
}

// TradingDates returns the country's trading dates, ascending. Exactly one
// TradingDates document must exist.
func (s *Service) TradingDates(ctx context.Context, country string) ([]time.Time, error) {
	const op = "trading dates"
	key := Key{Kind: KindTradingDates, Country: countryOr(country)}

	return lookup(s, key, func() ([]time.Time, error) {
		doc, err := contracts.FindOne(ctx, s.docs, contracts.DocumentFilter{
			Collection: CollectionRefdata,
			Name:       tradingDatesName,
			Country:    key.Country,
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		var raw []interface{}
		if err := json.Unmarshal(doc.Fields[fieldData], &raw); err != nil {
			return nil, contracts.Backend(op, fmt.Errorf("decode %s: %w", fieldData, err))
		}
		dates := make([]time.Time, 0, len(raw))
		for _, v := range raw {
			if m, ok := v.(map[string]interface{}); ok {
				// extended JSON {"$date": ...}
				v = m["$date"]
			}
			d, err := contracts.ParseDate(v)
			if err != nil {
				return nil, contracts.Backend(op, err)
			}
			dates = append(dates, d)
		}
		sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

		s.logger.WithFields(map[string]interface{}{
			"country": key.Country,
			"dates":   len(dates),
		}).Debug("Loaded trading dates")
		return dates, nil
	})
}

// UniverseHistory returns every stock universe document of country as a
// dated snapshot list, oldest first.
func (s *Service) UniverseHistory(ctx context.Context, country string) ([]snapshot.Snapshot[UniverseDoc], error) {
	const op = "universe history"
	cur, err := s.docs.Find(ctx, contracts.DocumentFilter{Collection: CollectionUniverse, Country: countryOr(country)}, contracts.Ascending)
	if err != nil {
		return nil, contracts.Backend(op, err)
	}
	docs, err := contracts.Drain(cur)
	if err != nil {
		return nil, contracts.Backend(op, err)
	}

	out := make([]snapshot.Snapshot[UniverseDoc], 0, len(docs))
	for _, doc := range docs {
		u, err := decodeUniverse(op, doc)
		if err != nil {
			return nil, err
		}
		out = append(out, snapshot.Snapshot[UniverseDoc]{EffectiveDate: doc.Date, Payload: u})
	}
	return out, nil
}

// DailyDocument returns the daily rows of the single document of secID with
// tradeDate in [start, end].
func (s *Service) DailyDocument(ctx context.Context, secID string, start, end time.Time) ([]contracts.Row, error) {
	const op = "daily document"
	doc, err := contracts.FindOne(ctx, s.docs, contracts.DocumentFilter{Collection: CollectionDaily, SecID: secID})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	rows, err := tableField(op, doc, fieldData)
	if err != nil {
		return nil, err
	}

	start, end = contracts.Day(start), contracts.Day(end)
	out := make([]contracts.Row, 0, len(rows))
	for _, r := range rows {
		raw, _ := r.Get("tradeDate")
		d, err := contracts.ParseDate(raw)
		if err != nil {
			return nil, contracts.Backend(op, err)
		}
		if d.Before(start) || d.After(end) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// BinDocuments returns the per-day bin tables of secID in [start, end]. Two
// documents for the same day are a DuplicateRecord.
func (s *Service) BinDocuments(ctx context.Context, secID string, start, end time.Time) (map[time.Time][]contracts.Row, error) {
	const op = "bin documents"
	start, end = contracts.Day(start), contracts.Day(end)
	cur, err := s.docs.Find(ctx, contracts.DocumentFilter{
		Collection: CollectionBins,
		SecID:      secID,
		DateFrom:   &start,
		DateTo:     &end,
	}, contracts.Ascending)
	if err != nil {
		return nil, contracts.Backend(op, err)
	}
	docs, err := contracts.Drain(cur)
	if err != nil {
		return nil, contracts.Backend(op, err)
	}

	out := make(map[time.Time][]contracts.Row, len(docs))
	for _, doc := range docs {
		day := contracts.Day(doc.Date)
		if _, dup := out[day]; dup {
			return nil, contracts.DuplicateRecord(op, "%s has more than one bin document on %s", secID, contracts.FormatDate(day, contracts.ISODate))
		}
		rows, err := tableField(op, doc, fieldData)
		if err != nil {
			return nil, err
		}
		out[day] = rows
	}
	return out, nil
}

// Invalidate drops memoized results of kind and returns how many were dropped.
func (s *Service) Invalidate(kind Kind) int {
	if s.memo == nil {
		return 0
	}
	return s.memo.InvalidateFunc(func(k Key) bool { return k.Kind == kind })
}

// Purge drops every memoized result.
func (s *Service) Purge() {
	if s.memo != nil {
		s.memo.Purge()
	}
}

func (s *Service) universeDoc(ctx context.Context, op string, asOf time.Time, country string) (UniverseDoc, error) {
	doc, err := contracts.LatestBefore(ctx, s.docs, contracts.DocumentFilter{Collection: CollectionUniverse, Country: country}, asOf)
	if err != nil {
		return UniverseDoc{}, fmt.Errorf("%s: %w", op, err)
	}
	return decodeUniverse(op, doc)
}

func decodeUniverse(op string, doc contracts.Document) (UniverseDoc, error) {
	sectorRows, err := tableField(op, doc, fieldSectors)
	if err != nil {
		return UniverseDoc{}, err
	}
	stockRows, err := tableField(op, doc, fieldStocks)
	if err != nil {
		return UniverseDoc{}, err
	}
	sectors, err := decodeClassifications(sectorRows)
	if err != nil {
		return UniverseDoc{}, contracts.Backend(op, err)
	}
	stocks, err := decodeStocks(stockRows)
	if err != nil {
		return UniverseDoc{}, contracts.Backend(op, err)
	}
	return UniverseDoc{Sectors: sectors, Stocks: stocks}, nil
}

func tableField(op string, doc contracts.Document, field string) ([]contracts.Row, error) {
	raw, ok := doc.Fields[field]
	if !ok {
		return nil, contracts.Backendf(op, "%s document of %s has no %s field",
			doc.Collection, contracts.FormatDate(doc.Date, contracts.ISODate), field)
	}
	rows, err := contracts.DecodeTable(raw)
	if err != nil {
		return nil, contracts.Backend(op, err)
	}
	return rows, nil
}

// lookup memoizes load under key. Callers get their own copy of the slice.
func lookup[T any](s *Service, key Key, load func() ([]T, error)) ([]T, error) {
	if s.memo == nil {
		return load()
	}
	v, err := s.memo.GetOrLoad(key, func() (any, error) {
		rows, err := load()
		if err != nil {
			return nil, err
		}
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	rows, _ := v.([]T)
	out := make([]T, len(rows))
	copy(out, rows)
	return out, nil
}

func countryOr(country string) string {
	if country == "" {
		return DefaultCountry
	}
	return country
}
