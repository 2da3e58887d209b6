package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/refdata/internal/api/handlers"
	"github.com/wonny/refdata/internal/calendar"
	"github.com/wonny/refdata/internal/contracts"
	"github.com/wonny/refdata/internal/universe"
	"github.com/wonny/refdata/pkg/logger"
	"github.com/wonny/refdata/pkg/metrics"
)

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	catalog, err := universe.NewCatalog([]universe.Entry{
		{Name: "picks", Kind: universe.KindFixed, Members: []string{"000001.SZ", "600000"}},
		{Name: "market", Kind: universe.KindWholeMarket},
	}, universe.Deps{})
	require.NoError(t, err)

	reg := universe.NewRegistry(catalog, 4, logger.Nop())
	cal := calendar.New([]time.Time{contracts.Date(2020, 1, 2), contracts.Date(2020, 1, 3)})
	registry := prometheus.NewRegistry()
	rec := metrics.NewWithRegistry(registry, registry)

	return NewRouter(
		handlers.NewUniverseHandler(reg, logger.Nop()),
		handlers.NewCalendarHandler(cal, logger.Nop()),
		rec.Handler(),
		logger.Nop(),
	)
}

func TestRouter(t *testing.T) {
	router := testRouter(t)

	tests := []struct {
		name       string
		method     string
		target     string
		wantStatus int
		wantBody   string
	}{
		{"health", http.MethodGet, "/health", http.StatusOK, "refdata-api"},
		{"list", http.MethodGet, "/api/universes", http.StatusOK, "picks"},
		{"members", http.MethodGet, "/api/universes/picks/members?date=2020-01-02", http.StatusOK, "600000.SH"},
		{"ever", http.MethodGet, "/api/universes/picks/ever", http.StatusOK, "000001.SZ"},
		{"unknown universe", http.MethodGet, "/api/universes/nope/members", http.StatusBadRequest, "error"},
		{"missing listing source", http.MethodGet, "/api/universes/market/members", http.StatusBadRequest, "error"},
		{"fixed has no weights", http.MethodGet, "/api/universes/picks/weights", http.StatusBadRequest, "no weights"},
		{"calendar next", http.MethodGet, "/api/calendar/next?date=2020-01-02", http.StatusOK, "2020-01-03"},
		{"calendar prev before history", http.MethodGet, "/api/calendar/prev?date=2020-01-02", http.StatusNotFound, "error"},
		{"metrics", http.MethodGet, "/metrics", http.StatusOK, ""},
		{"wrong method", http.MethodPost, "/api/universes", http.StatusMethodNotAllowed, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.target, nil))
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	h := recoveryMiddleware(logger.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Internal server error", body["error"])
}
