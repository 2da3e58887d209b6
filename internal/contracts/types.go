package contracts

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Row is one backend result row keyed by column name.
type Row map[string]interface{}

// Get returns the value of col. Backends that fold identifier case (Postgres)
// are matched case-insensitively.
func (r Row) Get(col string) (interface{}, bool) {
	if v, ok := r[col]; ok {
		return v, true
	}
	for k, v := range r {
		if strings.EqualFold(k, col) {
			return v, true
		}
	}
	return nil, false
}

// String returns col formatted as a string. Missing or nil values yield "".
func (r Row) String(col string) string {
	v, ok := r.Get(col)
	if !ok || v == nil {
		return ""
	}
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}

// Float returns col as float64.
func (r Row) Float(col string) (float64, bool) {
	v, ok := r.Get(col)
	if !ok {
		return 0, false
	}
	return toFloat(v)
}

// Int returns col as int64.
func (r Row) Int(col string) (int64, bool) {
	v, ok := r.Get(col)
	if !ok {
		return 0, false
	}
	return toInt(v)
}

// Pick copies the named columns, keyed by the requested spelling.
func (r Row) Pick(cols []string) map[string]interface{} {
	out := make(map[string]interface{}, len(cols))
	for _, c := range cols {
		if v, ok := r.Get(c); ok {
			out[c] = v
		}
	}
	return out
}

// RecordKey identifies a record within a daily table.
type RecordKey struct {
	SecurityID string
	Date       time.Time
}

// Record is one row of daily data for one security.
type Record struct {
	SecurityID string
	Date       time.Time
	Values     map[string]interface{}
}

// Key returns the (date, security) identity of the record.
func (r Record) Key() RecordKey {
	return RecordKey{SecurityID: r.SecurityID, Date: r.Date}
}

// Value returns a field, matched case-insensitively.
func (r Record) Value(field string) (interface{}, bool) {
	return Row(r.Values).Get(field)
}

// Float returns a numeric field as float64.
func (r Record) Float(field string) (float64, bool) {
	return Row(r.Values).Float(field)
}

// Project keeps only the named fields.
func (r Record) Project(fields []string) Record {
	return Record{SecurityID: r.SecurityID, Date: r.Date, Values: Row(r.Values).Pick(fields)}
}

// Table is a list of records ordered by date then security id.
type Table []Record

// Sort orders the table by date then security id.
func (t Table) Sort() {
	sort.SliceStable(t, func(i, j int) bool {
		if !t[i].Date.Equal(t[j].Date) {
			return t[i].Date.Before(t[j].Date)
		}
		return t[i].SecurityID < t[j].SecurityID
	})
}

// Filter returns the records for which keep returns true.
func (t Table) Filter(keep func(Record) bool) Table {
	out := make(Table, 0, len(t))
	for _, r := range t {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// IDs returns the distinct security ids in first-seen order.
func (t Table) IDs() []string {
	seen := make(map[string]struct{}, len(t))
	ids := make([]string, 0)
	for _, r := range t {
		if _, ok := seen[r.SecurityID]; ok {
			continue
		}
		seen[r.SecurityID] = struct{}{}
		ids = append(ids, r.SecurityID)
	}
	return ids
}

// Dates returns the distinct dates in ascending order.
func (t Table) Dates() []time.Time {
	seen := make(map[time.Time]struct{}, len(t))
	dates := make([]time.Time, 0)
	for _, r := range t {
		if _, ok := seen[r.Date]; ok {
			continue
		}
		seen[r.Date] = struct{}{}
		dates = append(dates, r.Date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// Pivot is a date x security view of one field.
type Pivot struct {
	Field  string
	Dates  []time.Time
	IDs    []string
	Values map[time.Time]map[string]interface{}
}

// At returns the pivoted value for (date, id).
func (p *Pivot) At(date time.Time, id string) (interface{}, bool) {
	byID, ok := p.Values[Day(date)]
	if !ok {
		return nil, false
	}
	v, ok := byID[id]
	return v, ok
}

// Pivot reshapes one field into dates x securities.
func (t Table) Pivot(field string) *Pivot {
	p := &Pivot{
		Field:  field,
		Dates:  t.Dates(),
		Values: make(map[time.Time]map[string]interface{}),
	}
	ids := t.IDs()
	sort.Strings(ids)
	p.IDs = ids
	for _, r := range t {
		v, ok := r.Value(field)
		if !ok {
			continue
		}
		byID, ok := p.Values[r.Date]
		if !ok {
			byID = make(map[string]interface{})
			p.Values[r.Date] = byID
		}
		byID[r.SecurityID] = v
	}
	return p
}

// UniverseMember is a membership interval [InclusionDate, ExclusionDate).
type UniverseMember struct {
	SecurityID    string
	InclusionDate time.Time
	ExclusionDate *time.Time // nil = still a member
}

// Contains reports whether the member belongs to the universe on d.
func (m UniverseMember) Contains(d time.Time) bool {
	d = Day(d)
	if Day(m.InclusionDate).After(d) {
		return false
	}
	return m.ExclusionDate == nil || Day(*m.ExclusionDate).After(d)
}

// CompositeWeight is one constituent weight of an index on AsOf, in percent.
type CompositeWeight struct {
	SecurityID string
	AsOf       time.Time
	Weight     float64
}

// Bar is one intraday bin of a security.
type Bar struct {
	SecurityID  string    `json:"security_id"`
	TradeDate   time.Time `json:"trade_date"`
	Timestamp   time.Time `json:"timestamp"`
	SeqNo       int64     `json:"seq_no"`
	PeriodID    int64     `json:"period_id"`
	Exchange    string    `json:"exchange"`
	Open        float64   `json:"open"`
	High        float64   `json:"high"`
	Low         float64   `json:"low"`
	Close       float64   `json:"close"`
	Volume      int64     `json:"volume"`
	Turnover    float64   `json:"turnover"`
	VolumeSum   int64     `json:"volume_sum"`
	TurnoverSum float64   `json:"turnover_sum"`
}

// Sane reports whether the bar's prices are internally consistent.
func (b Bar) Sane() bool {
	if b.Low > b.High {
		return false
	}
	return b.Open >= b.Low && b.Open <= b.High && b.Close >= b.Low && b.Close <= b.High
}

func toFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	case []byte:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(x)), 64)
		return f, err == nil
	case interface{ InexactFloat64() float64 }:
		return x.InexactFloat64(), true
	}
	return 0, false
}

func toInt(v interface{}) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint32:
		return int64(x), true
	case uint64:
		return int64(x), true
	case float64:
		return int64(x), true
	case float32:
		return int64(x), true
	case string:
		s := strings.TrimSpace(x)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, true
		}
		f, err := strconv.ParseFloat(s, 64)
		return int64(f), err == nil
	case []byte:
		return toInt(string(x))
	}
	return 0, false
}
