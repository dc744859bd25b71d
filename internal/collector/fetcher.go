package collector

import (
	"context"
	"time"

	"ContractPulse/internal/model"
)

// Fetcher defines the interface for fetching daily market data.
type Fetcher interface {
	// FetchDailyBars returns daily bars for symbol with dates in [from, to].
	// A symbol or range with no data yields an empty slice, not an error.
	FetchDailyBars(ctx context.Context, symbol string, from, to time.Time) ([]model.OHLCV, error)
	Name() string
}

// RawEventSource supplies award records for a recipient over a date range.
type RawEventSource interface {
	FetchRawEvents(ctx context.Context, recipient string, from, to time.Time) ([]model.RawEvent, error)
}

// TradeSource supplies politician trade disclosures.
type TradeSource interface {
	Fetch(ctx context.Context) ([]model.PoliticianTrade, error)
}

// OptionsSource summarises the currently listed options chain for a symbol.
type OptionsSource interface {
	FetchOptions(ctx context.Context, symbol string) (*model.OptionsSummary, error)
}

// SentimentScorer sets Sentiment on each article it can score.
type SentimentScorer interface {
	Annotate(articles []model.Article)
}
