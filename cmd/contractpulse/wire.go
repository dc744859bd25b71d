package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/phuslu/log"

	"ContractPulse/internal/calculator"
	"ContractPulse/internal/collector"
	"ContractPulse/internal/config"
	"ContractPulse/internal/housetrades"
	"ContractPulse/internal/metrics"
	"ContractPulse/internal/narrator"
	"ContractPulse/internal/sentiment"
	"ContractPulse/internal/tiingo"
	"ContractPulse/internal/usaspending"
)

func newTiingoClient(cfg *config.Config) *tiingo.Client {
	if cfg.MarketData.TiingoAPIKey == "" {
		return nil
	}
	opts := []tiingo.ClientOption{
		tiingo.WithHTTPClient(&http.Client{Timeout: cfg.MarketTimeout()}),
		tiingo.WithProxy(cfg.Proxy),
	}
	if cfg.MarketData.RateLimit > 0 {
		opts = append(opts, tiingo.WithRateLimit(cfg.MarketData.RateLimit))
	}
	return tiingo.NewClient(cfg.MarketData.TiingoAPIKey, opts...)
}

func newCollector(cfg *config.Config, m *metrics.Manager) (*collector.Collector, error) {
	policy, err := calculator.ParsePolicy(cfg.Analysis.WindowPolicy)
	if err != nil {
		return nil, err
	}
	tc := newTiingoClient(cfg)

	yahoo := collector.NewYahooFetcher(cfg.Proxy, cfg.MarketTimeout())
	var fetcher collector.Fetcher = yahoo
	if cfg.MarketData.Provider == "tiingo" {
		if tc == nil {
			return nil, fmt.Errorf("tiingo provider needs market_data.tiingo_api_key")
		}
		fetcher = collector.NewTiingoFetcher(tc)
	}

	usaOpts := []usaspending.ClientOption{
		usaspending.WithBaseURL(cfg.USASpending.BaseURL),
		usaspending.WithHTTPClient(&http.Client{Timeout: cfg.USASpendingTimeout()}),
		usaspending.WithAwardTypes(cfg.USASpending.AwardTypeCodes),
		usaspending.WithPaging(cfg.USASpending.PageLimit, cfg.USASpending.MaxPages),
	}
	if cfg.USASpending.RateLimit > 0 {
		usaOpts = append(usaOpts, usaspending.WithRateLimit(cfg.USASpending.RateLimit))
	}

	c := collector.NewCollector(fetcher, usaspending.NewClient(usaOpts...), collector.Options{
		Params: calculator.Params{
			PreDays:  cfg.Analysis.PreDays,
			PostDays: cfg.Analysis.PostDays,
			Policy:   policy,
			Workers:  cfg.Analysis.Workers,
		},
		LookbackDays:     cfg.Analysis.LookbackDays,
		TradeWindowDays:  cfg.HouseTrades.WindowDays,
		NewsLimit:        cfg.News.Limit,
		FetchNewsContent: cfg.News.FetchFullContent,
	})
	c.Metrics = m
	if ttl := cfg.CacheTTL(); ttl > 0 {
		c.Cache = collector.NewBarCache(ttl)
	}
	if cfg.HouseTrades.Enabled {
		c.Trades = housetrades.NewClient(cfg.HouseTrades.URL, cfg.HouseTradesTimeout())
	}
	if cfg.News.Enabled && tc != nil {
		c.News = tc
		if cfg.News.Sentiment {
			c.Scorer = sentiment.New()
		}
	}
	if cfg.MarketData.Options {
		c.Chain = yahoo
	}
	return c, nil
}

func newNarrator(ctx context.Context, cfg *config.Config) (narrator.Narrator, error) {
	return narrator.New(ctx, narrator.Config{
		Provider:       cfg.Narrator.Provider,
		Model:          cfg.Narrator.Model,
		APIKey:         cfg.NarratorAPIKey(),
		Temperature:    cfg.Narrator.Temperature,
		MaxTokens:      cfg.Narrator.MaxTokens,
		TopN:           cfg.Analysis.TopN,
		MaxRetries:     cfg.Narrator.MaxRetries,
		InitialBackoff: 2 * time.Second,
		Timeout:        cfg.NarratorTimeout(),
	})
}

// lookupRecipient resolves a ticker to its company name with Tiingo's search.
func lookupRecipient(ctx context.Context, tc *tiingo.Client, symbol string) (string, error) {
	if tc == nil {
		return "", fmt.Errorf("%s is %w", symbol, errNoRecipient)
	}
	found, err := tc.SearchTickers(ctx, symbol)
	if err != nil {
		return "", fmt.Errorf("look up %s: %w", symbol, err)
	}
	for _, t := range found {
		if strings.EqualFold(t.Ticker, symbol) && t.Name != "" {
			log.Info().Str("symbol", symbol).Str("recipient", t.Name).Msg("recipient resolved from ticker search")
			return t.Name, nil
		}
	}
	return "", fmt.Errorf("%s is %w", symbol, errNoRecipient)
}
