package clickhouse

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/refdata/internal/contracts"
)

type failingDB struct{ err error }

func (f failingDB) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, f.err
}

func TestQuery_ErrorIsBackend(t *testing.T) {
	b := New(failingDB{err: errors.New("code: 60, table does not exist")}, nil, nil)

	_, err := b.Query(context.Background(), contracts.Query{Table: "kline_sh"})
	assert.ErrorIs(t, err, contracts.ErrBackend)
}

type fakeRows struct {
	cols []string
	data [][]any
	pos  int
}

func (f *fakeRows) Columns() ([]string, error) { return f.cols, nil }
func (f *fakeRows) Next() bool {
	f.pos++
	return f.pos <= len(f.data)
}
func (f *fakeRows) Err() error { return nil }
func (f *fakeRows) Scan(dest ...any) error {
	row := f.data[f.pos-1]
	for i := range dest {
		*(dest[i].(*any)) = row[i]
	}
	return nil
}

func TestScanRows(t *testing.T) {
	name := "600000.SH"
	rows, err := scanRows(&fakeRows{
		cols: []string{"sec_id", "open_price", "kl_time"},
		data: [][]any{
			{&name, int64(123450), time.Date(2020, 1, 2, 9, 30, 0, 0, time.UTC)},
			{(*string)(nil), int64(0), time.Time{}},
		},
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "600000.SH", rows[0]["sec_id"])
	assert.Equal(t, int64(123450), rows[0]["open_price"])
	assert.Nil(t, rows[1]["sec_id"])
}
