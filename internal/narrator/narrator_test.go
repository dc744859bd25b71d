package narrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ContractPulse/internal/model"
)

func sampleAnalysis() *model.Analysis {
	day := func(s string) time.Time { t, _ := time.Parse(model.DateLayout, s); return t }
	return &model.Analysis{
		Symbol:    "LMT",
		Recipient: "Lockheed Martin",
		Range:     model.DateRange{From: day("2024-01-01"), To: day("2024-12-31")},
		PreDays:   30,
		PostDays:  90,
		Policy:    "calendar",
		Samples:   250,
		Events:    3,
		Report: &model.AggregateReport{
			PerEvent: []model.ImpactResult{
				{Event: model.Event{Date: day("2024-02-01"), Label: "F-35 SUSTAINMENT", Amount: null.FloatFrom(1250000)},
					PriceChangePct: null.FloatFrom(4.5), VolumeChangePct: null.FloatFrom(-2)},
				{Event: model.Event{Date: day("2024-05-01"), Label: "PAC-3 MSE"},
					PriceChangePct: null.FloatFrom(-12.25), VolumeChangePct: null.FloatFrom(30)},
				{Event: model.Event{Date: day("2024-12-20"), Label: "LATE AWARD"}},
			},
			MeanPriceChangePct:  null.FloatFrom(-3.875),
			MeanVolumeChangePct: null.FloatFrom(14),
			ValidPriceCount:     2,
			ValidVolumeCount:    2,
		},
		Trades: []model.PoliticianTrade{
			{Date: day("2024-02-03"), Trader: "Hon. A", Action: "purchase", Ticker: "LMT", AmountLow: decimal.NewFromInt(1001)},
		},
		News:     []model.Article{{PublishedDate: "2024-02-02", Title: "Lockheed wins F-35 deal", Source: "reuters.com", Tags: []string{"defense"}}},
		Warnings: []string{"1 awards skipped for missing or malformed dates"},
	}
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt(sampleAnalysis(), 1)

	assert.Contains(t, p, "Company: Lockheed Martin (LMT)")
	assert.Contains(t, p, "Mean price change: -3.88% (decline)")
	assert.Contains(t, p, "1 up, 1 down, 0 flat, 1 unmeasured")
	assert.Contains(t, p, "Awards outside the price history: 1")
	assert.Contains(t, p, "2024-05-01 PAC-3 MSE (n/a, strong decline): price -12.25%, volume +30.00%")
	assert.NotContains(t, p, "F-35 SUSTAINMENT (", "only the top event is listed")
	assert.Contains(t, p, "Hon. A purchase LMT ($1,001.00)")
	assert.Contains(t, p, "Lockheed wins F-35 deal")
	assert.Contains(t, p, "coverage: 1 articles from 1 sources, 2024-02-02 to 2024-02-02")
	assert.Contains(t, p, "frequent tags: defense (1)")
	assert.Contains(t, p, "Data caveats")
}

func TestBuildPrompt_OptionsAndSentiment(t *testing.T) {
	a := sampleAnalysis()
	a.News[0].Sentiment = null.FloatFrom(0.42)
	a.News = append(a.News, model.Article{PublishedDate: "2024-02-05", Title: "Delays reported", Sentiment: null.FloatFrom(-0.3)})
	a.Options = &model.OptionsSummary{
		Expiration:     time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Calls:          4,
		Puts:           2,
		CallsAvgVolume: null.FloatFrom(250),
		PutsAvgVolume:  null.FloatFrom(75.5),
	}

	p := BuildPrompt(a, 1)
	assert.Contains(t, p, "sentiment: mean +0.06 over 2 scored articles")
	assert.Contains(t, p, "daily sentiment: 2024-02-02 +0.42, 2024-02-05 -0.30")
	assert.Contains(t, p, "Lockheed wins F-35 deal [sentiment +0.42]")
	assert.Contains(t, p, "Options chain today (nearest expiry 2024-03-15)")
	assert.Contains(t, p, "calls: 4 contracts, avg volume 250, avg open interest n/a")
	assert.Contains(t, p, "puts: 2 contracts, avg volume 75.5, avg open interest n/a")
}

func TestBuildPrompt_Insufficient(t *testing.T) {
	a := sampleAnalysis()
	a.Samples = 0
	p := BuildPrompt(a, 5)
	assert.Contains(t, p, "insufficient data for analysis: no price history")
	assert.NotContains(t, p, "Mean price change")

	a.Events = 0
	assert.Contains(t, BuildPrompt(a, 5), "no contract awards were found")
}

func TestOfflineNarrator(t *testing.T) {
	n := NewOfflineNarrator(3)
	text, err := n.Narrate(context.Background(), sampleAnalysis())
	require.NoError(t, err)
	assert.Contains(t, text, "Across 3 contract awards to Lockheed Martin, LMT moved -3.88% on average")
	assert.Contains(t, text, "(decline)")
	assert.Contains(t, text, "1 could not be measured")
	assert.Contains(t, text, `"PAC-3 MSE" (-12.25%)`)
	assert.Contains(t, text, "1 congressional trades")

	a := sampleAnalysis()
	a.Report = nil
	text, err = n.Narrate(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, "Insufficient data for analysis of LMT (Lockheed Martin).", text)

	_, err = n.Narrate(context.Background(), nil)
	assert.Error(t, err)
}

func TestNarrate_RetriesThenSucceeds(t *testing.T) {
	calls := 0
	complete := func(_ context.Context, system, prompt string) (string, error) {
		calls++
		assert.Equal(t, SystemPrompt, system)
		assert.Contains(t, prompt, "LMT")
		if calls < 3 {
			return "", errors.New("429 RESOURCE_EXHAUSTED")
		}
		return "  narrative  ", nil
	}
	cfg := Config{MaxRetries: 3, InitialBackoff: time.Millisecond, Timeout: time.Second, TopN: 3}

	text, err := narrate(context.Background(), cfg, "fake", sampleAnalysis(), complete)
	require.NoError(t, err)
	assert.Equal(t, "narrative", text)
	assert.Equal(t, 3, calls)
}

func TestNarrate_GivesUp(t *testing.T) {
	calls := 0
	complete := func(context.Context, string, string) (string, error) {
		calls++
		return "", nil
	}
	cfg := Config{MaxRetries: 1, InitialBackoff: time.Millisecond, Timeout: time.Second}

	_, err := narrate(context.Background(), cfg, "fake", sampleAnalysis(), complete)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.Equal(t, 2, calls)
}

func TestNarrate_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	complete := func(context.Context, string, string) (string, error) {
		cancel()
		return "", errors.New("boom")
	}
	cfg := Config{MaxRetries: 5, InitialBackoff: time.Hour, Timeout: time.Second}

	_, err := narrate(ctx, cfg, "fake", sampleAnalysis(), complete)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew(t *testing.T) {
	n, err := New(context.Background(), Config{Provider: "offline"})
	require.NoError(t, err)
	assert.Equal(t, "offline", n.Name())

	n, err = New(context.Background(), Config{Provider: "claude"})
	require.NoError(t, err)
	assert.Equal(t, "offline", n.Name(), "missing key falls back to offline")

	n, err = New(context.Background(), Config{Provider: "Claude", APIKey: "sk-test"})
	require.NoError(t, err)
	assert.Equal(t, "claude", n.Name())

	_, err = New(context.Background(), Config{Provider: "gpt"})
	assert.Error(t, err)
}
