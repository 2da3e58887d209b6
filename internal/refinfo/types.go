package refinfo

import (
	"fmt"
	"time"

	"github.com/wonny/refdata/internal/contracts"
)

// Classification is one row of the Sectors table of a universe document.
type Classification struct {
	SecID         string `json:"secID"`
	Ticker        string `json:"ticker"`
	ExchangeCD    string `json:"exchangeCD"`
	IsNew         bool   `json:"isNew"`
	IndustryName1 string `json:"industryName1"`
	IndustryName2 string `json:"industryName2,omitempty"`
}

// StockInfo is one row of the Stocks table of a universe document.
type StockInfo struct {
	SecID        string    `json:"secID"`
	Ticker       string    `json:"ticker"`
	ShortName    string    `json:"secShortName"`
	ExchangeCD   string    `json:"exchangeCD"`
	ListStatusCD string    `json:"listStatusCD"`
	ListDate     time.Time `json:"listDate"`
}

// Listed reports whether the stock is currently listed (status L).
func (s StockInfo) Listed() bool { return s.ListStatusCD == listStatusListed }

// FuturesInfo is one contract of a futures universe document.
type FuturesInfo struct {
	SecID          string    `json:"secID"`
	Ticker         string    `json:"ticker"`
	ExchangeCD     string    `json:"exchangeCD"`
	ContractObject string    `json:"contractObject"`
	ListDate       time.Time `json:"listDate"`
	LastTradeDate  time.Time `json:"lastTradeDate"`
}

// ListedOn reports whether the contract trades on d: listDate <= d <= lastTradeDate.
func (f FuturesInfo) ListedOn(d time.Time) bool {
	d = contracts.Day(d)
	return !f.ListDate.After(d) && !f.LastTradeDate.Before(d)
}

// UniverseDoc is the decoded payload of one stock universe document.
type UniverseDoc struct {
	Sectors []Classification
	Stocks  []StockInfo
}

const listStatusListed = "L"

// Classified filters Sectors by exchange (MIC, "" = all). With alive set
// only new entries of listed stocks are kept.
func (d UniverseDoc) Classified(mic string, alive bool) []Classification {
	var listed map[string]struct{}
	if alive {
		listed = make(map[string]struct{}, len(d.Stocks))
		for _, st := range d.Stocks {
			if st.Listed() {
				listed[st.SecID] = struct{}{}
			}
		}
	}

	out := make([]Classification, 0, len(d.Sectors))
	for _, c := range d.Sectors {
		if mic != "" && c.ExchangeCD != mic {
			continue
		}
		if alive {
			if _, ok := listed[c.SecID]; !ok || !c.IsNew {
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

func decodeClassifications(rows []contracts.Row) ([]Classification, error) {
	out := make([]Classification, 0, len(rows))
	for i, r := range rows {
		c := Classification{
			SecID:         r.String("secID"),
			Ticker:        r.String("ticker"),
			ExchangeCD:    r.String("exchangeCD"),
			IndustryName1: r.String("industryName1"),
			IndustryName2: r.String("industryName2"),
		}
		if c.SecID == "" {
			return nil, fmt.Errorf("sectors row %d: missing secID", i)
		}
		if n, ok := r.Int("isNew"); ok {
			c.IsNew = n == 1
		} else if b, ok := r.Get("isNew"); ok {
			c.IsNew = b == true
		}
		out = append(out, c)
	}
	return out, nil
}

func decodeStocks(rows []contracts.Row) ([]StockInfo, error) {
	out := make([]StockInfo, 0, len(rows))
	for i, r := range rows {
		s := StockInfo{
			SecID:        r.String("secID"),
			Ticker:       r.String("ticker"),
			ShortName:    r.String("secShortName"),
			ExchangeCD:   r.String("exchangeCD"),
			ListStatusCD: r.String("listStatusCD"),
		}
		if s.SecID == "" {
			return nil, fmt.Errorf("stocks row %d: missing secID", i)
		}
		listed, err := optionalDate(r, "listDate")
		if err != nil {
			return nil, fmt.Errorf("stocks row %d: %w", i, err)
		}
		s.ListDate = listed
		out = append(out, s)
	}
	return out, nil
}

func decodeFutures(rows []contracts.Row) ([]FuturesInfo, error) {
	out := make([]FuturesInfo, 0, len(rows))
	for i, r := range rows {
		f := FuturesInfo{
			SecID:          r.String("secID"),
			Ticker:         r.String("ticker"),
			ExchangeCD:     r.String("exchangeCD"),
			ContractObject: r.String("contractObject"),
		}
		listed, err := optionalDate(r, "listDate")
		if err != nil {
			return nil, fmt.Errorf("futures row %d: %w", i, err)
		}
		last, err := optionalDate(r, "lastTradeDate")
		if err != nil {
			return nil, fmt.Errorf("futures row %d: %w", i, err)
		}
		f.ListDate, f.LastTradeDate = listed, last
		out = append(out, f)
	}
	return out, nil
}

// optionalDate returns the zero time for missing or empty cells.
func optionalDate(r contracts.Row, col string) (time.Time, error) {
	v, ok := r.Get(col)
	if !ok || v == nil || r.String(col) == "" {
		return time.Time{}, nil
	}
	return contracts.ParseDate(v)
}
