package tiingo

import (
	"context"
	"net/url"
	"strings"
	"time"

	"ContractPulse/internal/model"
)

// DailyPrices returns end-of-day bars for ticker between from and to inclusive.
func (c *Client) DailyPrices(ctx context.Context, ticker string, from, to time.Time) ([]PriceBar, error) {
	params := url.Values{}
	if !from.IsZero() {
		params.Set("startDate", from.Format(model.DateLayout))
	}
	if !to.IsZero() {
		params.Set("endDate", to.Format(model.DateLayout))
	}
	params.Set("resampleFreq", "daily")

	var bars []PriceBar
	path := "/tiingo/daily/" + url.PathEscape(strings.ToLower(ticker)) + "/prices"
	if err := c.get(ctx, path, params, &bars); err != nil {
		return nil, err
	}
	return bars, nil
}

// SearchTickers looks up tickers matching query.
func (c *Client) SearchTickers(ctx context.Context, query string) ([]Ticker, error) {
	var out []Ticker
	if err := c.get(ctx, "/tiingo/utilities/search/"+url.PathEscape(query), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
