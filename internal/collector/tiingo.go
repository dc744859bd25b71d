package collector

import (
	"context"
	"time"

	"ContractPulse/internal/model"
	"ContractPulse/internal/tiingo"
)

// TiingoFetcher implements Fetcher on top of the Tiingo end-of-day endpoint.
type TiingoFetcher struct {
	Client *tiingo.Client
}

// NewTiingoFetcher wraps an existing Tiingo client.
func NewTiingoFetcher(c *tiingo.Client) *TiingoFetcher {
	return &TiingoFetcher{Client: c}
}

func (f *TiingoFetcher) Name() string { return "tiingo" }

func (f *TiingoFetcher) FetchDailyBars(ctx context.Context, symbol string, from, to time.Time) ([]model.OHLCV, error) {
	prices, err := f.Client.DailyPrices(ctx, symbol, from, to)
	if err != nil {
		return nil, err
	}
	bars := make([]model.OHLCV, 0, len(prices))
	for _, p := range prices {
		bars = append(bars, model.OHLCV{
			Time:   p.Date,
			Open:   p.Open,
			High:   p.High,
			Low:    p.Low,
			Close:  p.Close,
			Volume: p.Volume,
		})
	}
	return bars, nil
}
