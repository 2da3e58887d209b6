// Package feed reads tabular payloads from the vendor HTTP API
// (<base>/<version>/<endpoint>, bearer token, CSV body).
package feed

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wonny/refdata/internal/contracts"
	"github.com/wonny/refdata/pkg/config"
	"github.com/wonny/refdata/pkg/httputil"
	"github.com/wonny/refdata/pkg/logger"
)

var _ contracts.Feed = (*Client)(nil)

// Client implements contracts.Feed.
type Client struct {
	http    *httputil.Client
	baseURL string
	version string
	token   string
	logger  *logger.Logger
}

// New creates a feed client. The HTTP client carries retry and rate limit policy.
func New(httpClient *httputil.Client, cfg config.FeedConfig, log *logger.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, contracts.Configuration("new feed client", "base url is required")
	}
	if cfg.Token == "" {
		return nil, contracts.Configuration("new feed client", "token is required")
	}
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		version: strings.Trim(cfg.Version, "/"),
		token:   cfg.Token,
		logger:  logger.OrNop(log).Component("feed"),
	}, nil
}

// NewFromConfig wires a rate-limited HTTP client from application config.
func NewFromConfig(cfg *config.Config, log *logger.Logger) (*Client, error) {
	httpClient := httputil.NewWithTimeout(log, cfg.Feed.Timeout).WithRateLimit(cfg.Feed.RateLimit, 1)
	return New(httpClient, cfg.Feed, log)
}

// Fetch calls endpoint with params and parses the CSV payload.
// Any non-200 response is an ErrBackend.
func (c *Client) Fetch(ctx context.Context, endpoint string, params url.Values) ([]contracts.Row, error) {
	op := "feed " + endpoint
	target := c.endpointURL(endpoint, params)

	resp, err := c.http.GetWithHeaders(ctx, target, http.Header{
		"Authorization": {"Bearer " + c.token},
	})
	if err != nil {
		return nil, contracts.Backend(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, contracts.Backendf(op, "request failed with status code %d: %s",
			resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, contracts.Backend(op, fmt.Errorf("read body: %w", err))
	}

	rows, err := ParseCSV(body)
	if err != nil {
		return nil, contracts.Backend(op, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"endpoint": endpoint,
		"rows":     len(rows),
	}).Debug("Feed payload parsed")

	return rows, nil
}

func (c *Client) endpointURL(endpoint string, params url.Values) string {
	parts := []string{c.baseURL}
	if c.version != "" {
		parts = append(parts, c.version)
	}
	parts = append(parts, strings.TrimLeft(endpoint, "/"))
	target := strings.Join(parts, "/")
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	return target
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseCSV decodes a header-first CSV payload into rows of strings.
func ParseCSV(body []byte) ([]contracts.Row, error) {
	body = bytes.TrimPrefix(body, utf8BOM)
	if len(bytes.TrimSpace(body)) == 0 {
		return []contracts.Row{}, nil
	}

	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	rows := make([]contracts.Row, 0)
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv record: %w", err)
		}
		if len(record) != len(header) {
			return nil, fmt.Errorf("csv record has %d fields, header has %d", len(record), len(header))
		}
		row := make(contracts.Row, len(header))
		for i, col := range header {
			row[col] = record[i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func feedDate(d time.Time) string {
	return contracts.FormatDate(d, contracts.CompactDate)
}
