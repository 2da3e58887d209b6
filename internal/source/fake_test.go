package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/wonny/refdata/internal/contracts"
)

// fakeBackend answers queries from an in-memory Wind-style table.
type fakeBackend struct {
	mu      sync.Mutex
	rows    []contracts.Row
	queries []contracts.Query
	failAt  int // 1-based query index that fails, 0 = never
	extra   map[int][]contracts.Row
}

func (f *fakeBackend) Query(_ context.Context, q contracts.Query) ([]contracts.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.queries = append(f.queries, q)
	n := len(f.queries)
	if f.failAt == n {
		return nil, errors.New("connection reset by peer")
	}

	out := make([]contracts.Row, 0)
	for _, r := range f.rows {
		if matches(r, q) {
			out = append(out, project(r, q.Columns))
		}
	}
	for _, r := range f.extra[n] {
		out = append(out, project(r, q.Columns))
	}
	return out, nil
}

func (f *fakeBackend) queryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

func matches(r contracts.Row, q contracts.Query) bool {
	if q.In != nil {
		ok := false
		for _, v := range q.In.Values {
			if r.String(q.In.Column) == v {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if q.Range != nil {
		v := r.String(q.Range.Column)
		if q.Range.From != nil && v < fmt.Sprint(q.Range.From) {
			return false
		}
		if q.Range.To != nil && v > fmt.Sprint(q.Range.To) {
			return false
		}
	}
	for _, eq := range q.Equals {
		if r.String(eq.Column) != fmt.Sprint(eq.Value) {
			return false
		}
	}
	return true
}

func project(r contracts.Row, cols []string) contracts.Row {
	if cols == nil {
		out := make(contracts.Row, len(r))
		for k, v := range r {
			out[k] = v
		}
		return out
	}
	out := make(contracts.Row, len(cols))
	for _, c := range cols {
		if v, ok := r.Get(c); ok {
			// Postgres reports folded column names
			out[strings.ToLower(c)] = v
		}
	}
	return out
}

func eodRow(id, date string, close float64) contracts.Row {
	return contracts.Row{
		"S_INFO_WINDCODE": id,
		"TRADE_DT":        date,
		"S_DQ_CLOSE":      close,
		"S_DQ_VOLUME":     close * 100,
	}
}

func ids(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%06d.SZ", i+1)
	}
	return out
}
