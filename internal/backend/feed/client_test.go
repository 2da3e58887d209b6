package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/refdata/internal/contracts"
	"github.com/wonny/refdata/pkg/config"
	"github.com/wonny/refdata/pkg/httputil"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := New(httputil.New(nil).DisableRetry(), config.FeedConfig{
		BaseURL: server.URL,
		Version: "v1",
		Token:   "secret-token",
	}, nil)
	require.NoError(t, err)
	return c
}

func TestFetch(t *testing.T) {
	var gotPath, gotAuth, gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.Query().Get("secID")
		w.Write([]byte("\xEF\xBB\xBFsecID,tradeDate,closePrice\n000001.XSHE,2020-01-02,16.87\n000001.XSHE,2020-01-03,17.18\n"))
	})

	rows, err := c.AdjustedDaily(context.Background(), "000001.XSHE", contracts.Date(2020, 1, 1), contracts.Date(2020, 1, 31))
	require.NoError(t, err)

	assert.Equal(t, "/v1/api/market/getMktEqudAdj.csv", gotPath)
	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.Equal(t, "000001.XSHE", gotQuery)
	require.Len(t, rows, 2)
	assert.Equal(t, "2020-01-03", rows[1].String("tradeDate"))
	px, ok := rows[1].Float("closePrice")
	assert.True(t, ok)
	assert.Equal(t, 17.18, px)
}

func TestFetch_NonOKIsBackendError(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"unauthorized", http.StatusUnauthorized},
		{"not found", http.StatusNotFound},
		{"server error", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte("nope"))
			})

			_, err := c.Stocks(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, contracts.ErrBackend)
			assert.Contains(t, err.Error(), "status code")
		})
	}
}

func TestFetch_EmptyBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	rows, err := c.FuturesContracts(context.Background(), "CCFX")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestParseCSV_Malformed(t *testing.T) {
	_, err := ParseCSV([]byte("a,b\n1,2,3\n"))
	assert.Error(t, err)

	_, err = ParseCSV([]byte("a,b\n\"unterminated\n"))
	assert.Error(t, err)
}

func TestNew_RequiresToken(t *testing.T) {
	_, err := New(httputil.New(nil), config.FeedConfig{BaseURL: "http://x"}, nil)
	assert.ErrorIs(t, err, contracts.ErrConfiguration)
}

func TestEndpointURL(t *testing.T) {
	c := &Client{baseURL: "https://api.example.com/data", version: "v1"}
	assert.Equal(t, "https://api.example.com/data/v1/api/equity/getEquIndustry.csv?industry=x",
		c.endpointURL("/api/equity/getEquIndustry.csv", map[string][]string{"industry": {"x"}}))
}
