package feed

import (
	"context"
	"net/url"
	"time"

	"github.com/wonny/refdata/internal/contracts"
)

// Endpoints used by the reference lookups.
const (
	EndpointEquity         = "api/equity/getEqu.csv"
	EndpointEquityIndustry = "api/equity/getEquIndustry.csv"
	EndpointFutures        = "api/future/getFutu.csv"
	EndpointMktEquAdj      = "api/market/getMktEqudAdj.csv"
	EndpointBarHistory     = "api/market/getBarHistDateRange.csv"

	// DefaultIndustry is the industry classification scheme requested by default.
	DefaultIndustry = "申万行业分类"
)

// Stocks lists the A-share security master.
func (c *Client) Stocks(ctx context.Context) ([]contracts.Row, error) {
	return c.Fetch(ctx, EndpointEquity, url.Values{
		"equTypeCD": {"A"},
	})
}

// IndustryClassification lists industry assignments under scheme ("" = DefaultIndustry).
func (c *Client) IndustryClassification(ctx context.Context, scheme string) ([]contracts.Row, error) {
	if scheme == "" {
		scheme = DefaultIndustry
	}
	return c.Fetch(ctx, EndpointEquityIndustry, url.Values{
		"industry": {scheme},
	})
}

// FuturesContracts lists futures contracts listed on exchangeCD ("" = all).
func (c *Client) FuturesContracts(ctx context.Context, exchangeCD string) ([]contracts.Row, error) {
	params := url.Values{}
	if exchangeCD != "" {
		params.Set("exchangeCD", exchangeCD)
	}
	return c.Fetch(ctx, EndpointFutures, params)
}

// AdjustedDaily returns adjusted daily bars of secID in [start, end].
func (c *Client) AdjustedDaily(ctx context.Context, secID string, start, end time.Time) ([]contracts.Row, error) {
	return c.Fetch(ctx, EndpointMktEquAdj, url.Values{
		"secID":     {secID},
		"beginDate": {feedDate(start)},
		"endDate":   {feedDate(end)},
	})
}

// HistoryBins returns one-minute bars of secID in [start, end].
func (c *Client) HistoryBins(ctx context.Context, secID string, start, end time.Time) ([]contracts.Row, error) {
	return c.Fetch(ctx, EndpointBarHistory, url.Values{
		"securityID": {secID},
		"startDate":  {feedDate(start)},
		"endDate":    {feedDate(end)},
		"unit":       {"1"},
	})
}
