package contracts

import (
	"context"
	"encoding/json"
	"net/url"
	"time"
)

// InFilter restricts Column to a list of values.
type InFilter struct {
	Column string
	Values []string
}

// RangeFilter restricts Column to [From, To]. Either bound may be nil.
type RangeFilter struct {
	Column string
	From   interface{}
	To     interface{}
}

// Equality restricts Column to a single value.
type Equality struct {
	Column string
	Value  interface{}
}

// Query is a backend-neutral select over one relational table.
type Query struct {
	Table   string
	Columns []string // nil = all columns
	In      *InFilter
	Range   *RangeFilter
	Equals  []Equality
	OrderBy []string
}

// RelationalBackend executes select queries against a tabular store.
type RelationalBackend interface {
	Query(ctx context.Context, q Query) ([]Row, error)
}

// Document is one stored snapshot document. Fields holds the remaining JSON
// members (e.g. Stocks, Sectors, Data) undecoded.
type Document struct {
	Collection string                     `json:"collection"`
	Date       time.Time                  `json:"date"`
	Country    string                     `json:"country,omitempty"`
	SecID      string                     `json:"sec_id,omitempty"`
	Name       string                     `json:"name,omitempty"`
	Fields     map[string]json.RawMessage `json:"fields"`
}

// DocumentFilter selects documents. Zero-valued members do not filter.
type DocumentFilter struct {
	Collection string
	Country    string
	SecID      string
	Name       string
	DateFrom   *time.Time
	DateTo     *time.Time
	// Limit caps the number of documents returned. Zero means no cap.
	Limit int
}

// SortOrder orders documents by date.
type SortOrder int

const (
	Ascending SortOrder = iota
	Descending
)

// Cursor iterates over documents returned by Find.
type Cursor interface {
	Next() bool
	Document() Document
	Err() error
	Close()
}

// DocumentBackend finds snapshot documents.
type DocumentBackend interface {
	Find(ctx context.Context, filter DocumentFilter, order SortOrder) (Cursor, error)
}

// Feed fetches tabular payloads from a remote HTTP endpoint.
type Feed interface {
	Fetch(ctx context.Context, endpoint string, params url.Values) ([]Row, error)
}

// SliceCursor is a Cursor over an in-memory slice.
type SliceCursor struct {
	docs []Document
	pos  int
}

// NewSliceCursor returns a cursor positioned before docs[0].
func NewSliceCursor(docs []Document) *SliceCursor {
	return &SliceCursor{docs: docs, pos: -1}
}

func (c *SliceCursor) Next() bool {
	if c.pos+1 >= len(c.docs) {
		c.pos = len(c.docs)
		return false
	}
	c.pos++
	return true
}

func (c *SliceCursor) Document() Document { return c.docs[c.pos] }
func (c *SliceCursor) Err() error         { return nil }
func (c *SliceCursor) Close()             {}

// Drain reads every remaining document and closes the cursor.
func Drain(cur Cursor) ([]Document, error) {
	defer cur.Close()
	docs := make([]Document, 0)
	for cur.Next() {
		docs = append(docs, cur.Document())
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

// LatestBefore returns the newest document with date <= asOf. Two documents
// sharing that newest date are ErrDuplicateRecord.
func LatestBefore(ctx context.Context, b DocumentBackend, filter DocumentFilter, asOf time.Time) (Document, error) {
	const op = "latest document"
	asOf = Day(asOf)
	filter.DateTo = &asOf
	filter.Limit = 2
	cur, err := b.Find(ctx, filter, Descending)
	if err != nil {
		return Document{}, Backend(op, err)
	}
	defer cur.Close()
	if !cur.Next() {
		if err := cur.Err(); err != nil {
			return Document{}, Backend(op, err)
		}
		return Document{}, NotFound(op, "no %s document at or before %s", filter.Collection, FormatDate(asOf, ISODate))
	}
	doc := cur.Document()
	// 같은 날짜 문서가 둘이면 어느 쪽도 고르지 않는다
	if cur.Next() && cur.Document().Date.Equal(doc.Date) {
		return Document{}, DuplicateRecord(op, "2 or more %s documents dated %s for %s",
			filter.Collection, FormatDate(doc.Date, ISODate), describe(filter))
	}
	if err := cur.Err(); err != nil {
		return Document{}, Backend(op, err)
	}
	return doc, nil
}

// FindOne returns the single document matching filter. Zero matches is
// ErrNotFound and more than one is ErrDuplicateRecord.
func FindOne(ctx context.Context, b DocumentBackend, filter DocumentFilter) (Document, error) {
	const op = "find document"
	cur, err := b.Find(ctx, filter, Ascending)
	if err != nil {
		return Document{}, Backend(op, err)
	}
	docs, err := Drain(cur)
	if err != nil {
		return Document{}, Backend(op, err)
	}
	switch len(docs) {
	case 0:
		return Document{}, NotFound(op, "no %s document for %s", filter.Collection, describe(filter))
	case 1:
		return docs[0], nil
	}
	return Document{}, DuplicateRecord(op, "%d %s documents for %s", len(docs), filter.Collection, describe(filter))
}

func describe(f DocumentFilter) string {
	switch {
	case f.Name != "":
		return "name=" + f.Name
	case f.SecID != "":
		return "secID=" + f.SecID
	case f.Country != "":
		return "country=" + f.Country
	}
	return "any"
}
