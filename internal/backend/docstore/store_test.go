package docstore

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/refdata/internal/contracts"
	"github.com/wonny/refdata/pkg/redis"
)

func TestNew_RejectsBadTable(t *testing.T) {
	_, err := New(nil, "docs; drop", nil)
	assert.ErrorIs(t, err, contracts.ErrConfiguration)
}

func TestBuildFind(t *testing.T) {
	s, err := New(nil, "refdata_documents", nil)
	require.NoError(t, err)

	asOf := contracts.Date(2020, 5, 31)
	query, args := s.buildFind(contracts.DocumentFilter{
		Collection: "stocks",
		Country:    "CHN",
		DateTo:     &asOf,
	}, contracts.Descending)

	assert.Equal(t,
		"SELECT collection, doc_date, country, sec_id, name, body FROM refdata_documents WHERE collection = $1 AND country = $2 AND doc_date <= $3 ORDER BY doc_date DESC, id DESC",
		query)
	assert.Equal(t, []any{"stocks", "CHN", asOf}, args)
}

func TestBuildFind_Limit(t *testing.T) {
	s, err := New(nil, "refdata_documents", nil)
	require.NoError(t, err)

	asOf := contracts.Date(2020, 5, 31)
	query, args := s.buildFind(contracts.DocumentFilter{
		Collection: "universe.stocks",
		DateTo:     &asOf,
		Limit:      2,
	}, contracts.Descending)

	assert.Equal(t,
		"SELECT collection, doc_date, country, sec_id, name, body FROM refdata_documents WHERE collection = $1 AND doc_date <= $2 ORDER BY doc_date DESC, id DESC LIMIT $3",
		query)
	assert.Equal(t, []any{"universe.stocks", asOf, 2}, args)
}

func TestFindKey(t *testing.T) {
	asOf := contracts.Date(2020, 5, 31)
	key := findKey(contracts.DocumentFilter{Collection: "stocks", Country: "CHN", DateTo: &asOf}, contracts.Descending)
	assert.Equal(t, "find:stocks:CHN:::-:20200531:1", key)

	limited := findKey(contracts.DocumentFilter{Collection: "stocks", Country: "CHN", DateTo: &asOf, Limit: 2}, contracts.Descending)
	assert.Equal(t, "find:stocks:CHN:::-:20200531:1:limit:2", limited)
}

type countingDocs struct {
	calls int
	docs  []contracts.Document
}

func (c *countingDocs) Find(context.Context, contracts.DocumentFilter, contracts.SortOrder) (contracts.Cursor, error) {
	c.calls++
	return contracts.NewSliceCursor(c.docs), nil
}

func TestCached_DisabledPassesThrough(t *testing.T) {
	inner := &countingDocs{docs: []contracts.Document{{Collection: "stocks"}}}
	cached := NewCached(inner, redis.NewCache(redis.Disabled(), "refdata"), 0, nil, nil)

	for i := 0; i < 2; i++ {
		cur, err := cached.Find(context.Background(), contracts.DocumentFilter{Collection: "stocks"}, contracts.Ascending)
		require.NoError(t, err)
		docs, err := contracts.Drain(cur)
		require.NoError(t, err)
		assert.Len(t, docs, 1)
	}
	assert.Equal(t, 2, inner.calls)
	assert.NoError(t, cached.Invalidate(context.Background(), "stocks"))
}

func TestStore_Integration(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if testing.Short() || url == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	defer pool.Close()

	s, err := New(pool, "refdata_test_documents", nil)
	require.NoError(t, err)
	require.NoError(t, s.EnsureSchema(ctx))
	defer pool.Exec(context.Background(), `DROP TABLE refdata_test_documents`)

	for _, d := range []time.Time{contracts.Date(2020, 1, 1), contracts.Date(2020, 2, 1)} {
		require.NoError(t, s.Insert(ctx, contracts.Document{
			Collection: "stocks",
			Date:       d,
			Country:    "CHN",
			Fields:     map[string]json.RawMessage{"Sectors": json.RawMessage(`[{"secID":"A"}]`)},
		}))
	}

	doc, err := contracts.LatestBefore(ctx, s, contracts.DocumentFilter{Collection: "stocks", Country: "CHN"}, contracts.Date(2020, 1, 20))
	require.NoError(t, err)
	assert.Equal(t, contracts.Date(2020, 1, 1), doc.Date)

	rows, err := contracts.DecodeTable(doc.Fields["Sectors"])
	require.NoError(t, err)
	assert.Equal(t, "A", rows[0].String("secID"))
}
