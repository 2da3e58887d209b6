package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/refdata/internal/calendar"
	"github.com/wonny/refdata/internal/contracts"
	"github.com/wonny/refdata/internal/universe"
	"github.com/wonny/refdata/pkg/logger"
)

type fakeOpener map[string]universe.Universe

func (f fakeOpener) Open(_ context.Context, name string) (universe.Universe, error) {
	u, ok := f[name]
	if !ok {
		return nil, contracts.Configuration("open universe", "unknown universe %q", name)
	}
	return u, nil
}

func testUniverseHandler(t *testing.T) *UniverseHandler {
	t.Helper()
	comp, err := universe.NewComposition("hs300", "399300.SZ", []contracts.CompositeWeight{
		{SecurityID: "600000.SH", AsOf: contracts.Date(2020, 1, 2), Weight: 60},
		{SecurityID: "000001.SZ", AsOf: contracts.Date(2020, 1, 2), Weight: 40},
	})
	require.NoError(t, err)

	opener := fakeOpener{
		"picks":   universe.NewFixed("picks", []string{"000002.SZ", "000001.SZ"}),
		"hs300": comp,
	}
	return &UniverseHandler{
		universes: opener,
		names:     func() []string { return []string{"picks", "hs300"} },
		logger:    logger.Nop(),
		now:       func() time.Time { return contracts.Date(2020, 6, 1) },
	}
}

func serve(h http.HandlerFunc, pattern, target string) *httptest.ResponseRecorder {
	r := mux.NewRouter()
	r.HandleFunc(pattern, h)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestUniverseMembers(t *testing.T) {
	h := testUniverseHandler(t)

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantCount  int
	}{
		{"fixed ignores date", "/api/universes/picks/members?date=2001-01-01", http.StatusOK, 2},
		{"composition on date", "/api/universes/hs300/members?date=20200531", http.StatusOK, 2},
		{"composition defaults to today", "/api/universes/hs300/members", http.StatusOK, 2},
		{"before first snapshot", "/api/universes/hs300/members?date=2019-12-31", http.StatusNotFound, 0},
		{"unknown universe", "/api/universes/nope/members", http.StatusBadRequest, 0},
		{"bad date", "/api/universes/picks/members?date=yesterday", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(h.Members, "/api/universes/{name}/members", tt.target)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantStatus != http.StatusOK {
				return
			}
			var resp MembersResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCount, resp.Count)
			assert.Len(t, resp.Members, tt.wantCount)
		})
	}
}

func TestUniverseMembersSorted(t *testing.T) {
	h := testUniverseHandler(t)

	rec := serve(h.Members, "/api/universes/{name}/members", "/api/universes/picks/members")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp MembersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"000001.SZ", "000002.SZ"}, resp.Members)
	assert.Equal(t, "2020-06-01", resp.Date)
}

func TestUniverseWeights(t *testing.T) {
	h := testUniverseHandler(t)

	rec := serve(h.Weights, "/api/universes/{name}/weights", "/api/universes/hs300/weights?date=2020-03-01")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp WeightsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.InDelta(t, 0.6, resp.Weights["600000.SH"], 1e-9)
	assert.InDelta(t, 0.4, resp.Weights["000001.SZ"], 1e-9)

	rec = serve(h.Weights, "/api/universes/{name}/weights", "/api/universes/picks/weights")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUniverseListAndEver(t *testing.T) {
	h := testUniverseHandler(t)

	rec := serve(h.List, "/api/universes", "/api/universes")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "picks")

	rec = serve(h.Ever, "/api/universes/{name}/ever", "/api/universes/hs300/ever")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp MembersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"000001.SZ", "600000.SH"}, resp.Members)
	assert.Empty(t, resp.Date)
}

func TestCalendarHandler(t *testing.T) {
	cal := calendar.New([]time.Time{
		contracts.Date(2020, 1, 2),
		contracts.Date(2020, 1, 3),
		contracts.Date(2020, 1, 6),
	})
	h := NewCalendarHandler(cal, nil)

	tests := []struct {
		name       string
		handler    http.HandlerFunc
		target     string
		wantStatus int
		want       string
	}{
		{"prev over weekend", h.Prev, "/prev?date=2020-01-06", http.StatusOK, "2020-01-03"},
		{"prev two", h.Prev, "/prev?date=2020-01-06&n=2", http.StatusOK, "2020-01-02"},
		{"next from holiday", h.Next, "/next?date=20200104", http.StatusOK, "2020-01-06"},
		{"prev before history", h.Prev, "/prev?date=2020-01-02", http.StatusNotFound, ""},
		{"next past history", h.Next, "/next?date=2020-01-06", http.StatusNotFound, ""},
		{"zero n", h.Next, "/next?date=2020-01-02&n=0", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.handler(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.want == "" {
				return
			}
			var resp TradingDateResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.want, resp.TradingDate)
		})
	}
}

func TestRespondKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", contracts.NotFound("op", "x"), http.StatusNotFound},
		{"duplicate", contracts.DuplicateRecord("op", "x"), http.StatusConflict},
		{"configuration", contracts.Configuration("op", "x"), http.StatusBadRequest},
		{"backend", contracts.Backendf("op", "x"), http.StatusBadGateway},
		{"unclassified", assert.AnError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			respondKind(rec, tt.err)
			assert.Equal(t, tt.want, rec.Code)
			assert.Contains(t, rec.Body.String(), "error")
		})
	}
}
