package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/refdata/internal/contracts"
)

type failingQuerier struct{ err error }

func (f failingQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, f.err
}

func TestQuery_ErrorIsBackend(t *testing.T) {
	b := New(failingQuerier{err: errors.New("connection reset")}, nil, nil)

	_, err := b.Query(context.Background(), contracts.Query{Table: "ashareeodprices"})
	assert.ErrorIs(t, err, contracts.ErrBackend)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestQuery_InvalidIdentifierIsConfiguration(t *testing.T) {
	b := New(failingQuerier{}, nil, nil)

	_, err := b.Query(context.Background(), contracts.Query{Table: "bad table"})
	assert.ErrorIs(t, err, contracts.ErrConfiguration)
}

func TestToRow(t *testing.T) {
	fields := []pgconn.FieldDescription{{Name: "s_info_windcode"}, {Name: "trade_dt"}}
	row := toRow(fields, []any{"000001.SZ", "20200102"})

	assert.Equal(t, "000001.SZ", row.String("S_INFO_WINDCODE"))
	assert.Equal(t, "20200102", row.String("TRADE_DT"))
}

func TestQuery_Integration(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if testing.Short() || url == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	defer pool.Close()

	_, err = pool.Exec(ctx, `
		CREATE TABLE refdata_test_eod (
			S_INFO_WINDCODE text,
			TRADE_DT text,
			S_DQ_CLOSE double precision
		)`)
	require.NoError(t, err)
	defer pool.Exec(context.Background(), `DROP TABLE refdata_test_eod`)

	_, err = pool.Exec(ctx, `
		INSERT INTO refdata_test_eod VALUES
			('000001.SZ', '20200102', 16.87),
			('000001.SZ', '20200103', 17.18),
			('600000.SH', '20200102', 12.47)`)
	require.NoError(t, err)

	b := New(pool, nil, nil)
	rows, err := b.Query(ctx, contracts.Query{
		Table:   "refdata_test_eod",
		In:      &contracts.InFilter{Column: "S_INFO_WINDCODE", Values: []string{"000001.SZ"}},
		Range:   &contracts.RangeFilter{Column: "TRADE_DT", From: "20200101", To: "20200102"},
		OrderBy: []string{"TRADE_DT"},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	px, ok := rows[0].Float("S_DQ_CLOSE")
	assert.True(t, ok)
	assert.Equal(t, 16.87, px)
}
