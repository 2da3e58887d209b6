package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/refdata/internal/contracts"
)

// stepCalendar treats every calendar day as a trading day.
type stepCalendar struct {
	prevErr error
	nextErr error
}

func (c stepCalendar) PrevTradingDate(d time.Time, n int) (time.Time, error) {
	if c.prevErr != nil {
		return time.Time{}, c.prevErr
	}
	return contracts.Day(d).AddDate(0, 0, -n), nil
}

func (c stepCalendar) NextTradingDate(d time.Time, n int) (time.Time, error) {
	if c.nextErr != nil {
		return time.Time{}, c.nextErr
	}
	return contracts.Day(d).AddDate(0, 0, n), nil
}

func dailyBackend(ids []string, from time.Time, days int) *fakeBackend {
	b := &fakeBackend{}
	for i := 0; i < days; i++ {
		d := contracts.FormatDate(from.AddDate(0, 0, i), contracts.CompactDate)
		for j, id := range ids {
			b.rows = append(b.rows, eodRow(id, d, float64(i*10+j)))
		}
	}
	return b
}

func TestNewCached_Window(t *testing.T) {
	secs := []string{"000001.SZ", "600000.SH"}
	start, end := contracts.Date(2020, 3, 1), contracts.Date(2020, 3, 31)

	tests := []struct {
		name      string
		cal       TradingCalendar
		opts      CachedOptions
		wantStart time.Time
		wantEnd   time.Time
		degraded  bool
	}{
		{
			name:      "default padding",
			cal:       stepCalendar{},
			wantStart: contracts.Date(2019, 11, 22),
			wantEnd:   contracts.Date(2020, 4, 1),
		},
		{
			name:      "custom padding",
			cal:       stepCalendar{},
			opts:      CachedOptions{LookbackDays: 5, LookaheadDays: 2},
			wantStart: contracts.Date(2020, 2, 25),
			wantEnd:   contracts.Date(2020, 4, 2),
		},
		{
			name:      "unpadded",
			opts:      CachedOptions{Unpadded: true},
			wantStart: start,
			wantEnd:   end,
		},
		{
			name:      "calendar too short",
			cal:       stepCalendar{prevErr: contracts.NotFound("prev trading date", "not enough history")},
			wantStart: start,
			wantEnd:   contracts.Date(2020, 4, 1),
			degraded:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := dailyBackend(secs, contracts.Date(2019, 11, 1), 200)
			src := newSource(t, b, Options{})

			c, err := NewCached(context.Background(), src, tt.cal, secs, start, end, tt.opts, nil)
			require.NoError(t, err)

			w := c.Window()
			assert.Equal(t, tt.wantStart, w.EffectiveStart)
			assert.Equal(t, tt.wantEnd, w.EffectiveEnd)
			assert.Equal(t, tt.degraded, w.Degraded())
			assert.Equal(t, tt.degraded, w.StartDegraded)
			assert.False(t, w.EndDegraded)
			assert.True(t, w.Covers(start, end))
			assert.Equal(t, 1, b.queryCount())
		})
	}
}

func TestNewCached_Errors(t *testing.T) {
	src := newSource(t, &fakeBackend{}, Options{})
	ctx := context.Background()
	start, end := contracts.Date(2020, 3, 1), contracts.Date(2020, 3, 31)

	_, err := NewCached(ctx, src, stepCalendar{}, nil, end, start, CachedOptions{}, nil)
	assert.ErrorIs(t, err, contracts.ErrConfiguration)

	_, err = NewCached(ctx, src, nil, nil, start, end, CachedOptions{}, nil)
	assert.ErrorIs(t, err, contracts.ErrConfiguration)

	_, err = NewCached(ctx, src, stepCalendar{}, nil, start, end, CachedOptions{LookbackDays: -1}, nil)
	assert.ErrorIs(t, err, contracts.ErrConfiguration)

	failing := newSource(t, &fakeBackend{failAt: 1}, Options{})
	_, err = NewCached(ctx, failing, stepCalendar{}, []string{"000001.SZ"}, start, end, CachedOptions{}, nil)
	assert.ErrorIs(t, err, contracts.ErrBackend)
}

func TestCached_MatchesSource(t *testing.T) {
	secs := ids(7)
	ctx := context.Background()
	b := dailyBackend(secs, contracts.Date(2020, 1, 1), 60)
	src := newSource(t, b, Options{ChunkSize: 3})

	c, err := NewCached(ctx, src, stepCalendar{}, secs, contracts.Date(2020, 1, 20), contracts.Date(2020, 2, 10),
		CachedOptions{LookbackDays: 10, LookaheadDays: 3}, nil)
	require.NoError(t, err)

	subset := []string{secs[4], secs[1], "999999.SH"}
	start, end := contracts.Date(2020, 1, 15), contracts.Date(2020, 2, 12)

	t.Run("range", func(t *testing.T) {
		want, err := src.FetchRange(ctx, subset, start, end)
		require.NoError(t, err)
		got, err := c.FetchRange(ctx, subset, start, end)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.NotEmpty(t, got)
	})

	t.Run("fields", func(t *testing.T) {
		fields := []string{"S_DQ_CLOSE"}
		want, err := src.FetchRangeWithFields(ctx, subset, fields, start, end)
		require.NoError(t, err)
		got, err := c.FetchRangeWithFields(ctx, subset, fields, start, end)
		require.NoError(t, err)
		assert.Equal(t, want, got)

		_, err = c.FetchRangeWithFields(ctx, subset, nil, start, end)
		assert.ErrorIs(t, err, contracts.ErrConfiguration)
	})

	t.Run("on date", func(t *testing.T) {
		d := contracts.Date(2020, 2, 1)
		want, err := src.FetchOnDate(ctx, subset, d)
		require.NoError(t, err)
		got, err := c.FetchOnDate(ctx, subset, d)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Len(t, got, 2)
	})

	t.Run("stock daily", func(t *testing.T) {
		want, err := src.FetchStockDaily(ctx, secs[2], start, end)
		require.NoError(t, err)
		got, err := c.FetchStockDaily(ctx, secs[2], start, end)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("outside window", func(t *testing.T) {
		assert.False(t, c.Window().Covers(contracts.Date(2019, 12, 1), end))
		got, err := c.FetchRange(ctx, subset, contracts.Date(2019, 12, 1), contracts.Date(2020, 1, 5))
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestCached_EndDegraded(t *testing.T) {
	secs := []string{"000001.SZ"}
	src := newSource(t, dailyBackend(secs, contracts.Date(2020, 1, 1), 10), Options{})

	c, err := NewCached(context.Background(), src, stepCalendar{nextErr: errors.New("calendar ends")}, secs,
		contracts.Date(2020, 1, 5), contracts.Date(2020, 1, 10), CachedOptions{LookbackDays: 2}, nil)
	require.NoError(t, err)

	w := c.Window()
	assert.True(t, w.EndDegraded)
	assert.False(t, w.StartDegraded)
	assert.Equal(t, contracts.Date(2020, 1, 3), w.EffectiveStart)
	assert.Equal(t, contracts.Date(2020, 1, 10), w.EffectiveEnd)
	assert.Equal(t, 8, c.Len())
}
