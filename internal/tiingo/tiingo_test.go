package tiingo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ContractPulse/internal/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient("secret", WithBaseURL(srv.URL), WithRateLimit(0))
}

func TestDailyPrices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tiingo/daily/lmt/prices", r.URL.Path)
		assert.Equal(t, "Token secret", r.Header.Get("Authorization"))
		assert.Equal(t, "2024-01-01", r.URL.Query().Get("startDate"))
		assert.Equal(t, "2024-01-31", r.URL.Query().Get("endDate"))
		fmt.Fprint(w, `[{"date":"2024-01-02T00:00:00.000Z","close":450.5,"volume":1200000},
			{"date":"2024-01-03T00:00:00.000Z","close":452.1,"volume":980000}]`)
	})

	bars, err := c.DailyPrices(context.Background(), "LMT",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 450.5, bars[0].Close)
	assert.Equal(t, 980000.0, bars[1].Volume)
	assert.Equal(t, 2, bars[0].Date.Day())
}

func TestDailyPrices_APIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "ticker not found", http.StatusNotFound)
	})

	_, err := c.DailyPrices(context.Background(), "NOPE", time.Time{}, time.Time{})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "ticker not found")
}

func TestNews_QueryAndCleaning(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/tiingo/news", r.URL.Path)
		assert.Equal(t, "LMT,RTX", q.Get("tickers"))
		assert.Equal(t, "5", q.Get("limit"))
		assert.Equal(t, "relevance", q.Get("sortBy"))
		assert.Equal(t, "2024-03-01", q.Get("startDate"))
		fmt.Fprint(w, `[{"id":7,"title":"<b>Lockheed</b>   wins\n award","description":"big &amp; new",
			"source":"reuters.com","url":"","tickers":["lmt"],"tags":null,
			"publishedDate":"2024-03-04T21:15:00Z","crawlDate":"not-a-date-at-all"}]`)
	})

	got, err := c.News(context.Background(), NewsQuery{
		Tickers:   []string{"LMT", "RTX"},
		StartDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Limit:     5,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	a := got[0]
	assert.Equal(t, int64(7), a.ID)
	assert.Equal(t, "Lockheed wins award", a.Title)
	assert.Equal(t, "big & new", a.Description)
	assert.Equal(t, "2024-03-04", a.PublishedDate)
	assert.Equal(t, "not-a-date", a.CrawledDate)
	assert.Equal(t, []string{}, a.Tags)
}

func TestNews_FetchContent(t *testing.T) {
	var srvURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/tiingo/news", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `[{"id":1,"title":"t","description":"short","content":"short","url":"%s/story"}]`, srvURL)
	})
	mux.HandleFunc("/story", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		fmt.Fprint(w, `<html><body><nav><p>menu</p></nav>
			<article><p>The Army awarded a contract.</p><p>Deliveries begin in 2026.</p></article>
			<footer><p>copyright</p></footer></body></html>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	srvURL = srv.URL

	c := NewClient("k", WithBaseURL(srv.URL), WithRateLimit(0))
	got, err := c.News(context.Background(), NewsQuery{FetchContent: true})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "The Army awarded a contract. Deliveries begin in 2026.", got[0].Content)
}

func TestExtractText_FallsBackToAllParagraphs(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<div><p> one </p><script>var x;</script><p>two</p></div>`))
	require.NoError(t, err)
	assert.Equal(t, "one two", ExtractText(doc))
}

func TestCleanHTML(t *testing.T) {
	assert.Equal(t, "", CleanHTML(""))
	assert.Equal(t, "a b c", CleanHTML("  a\n\tb   c "))
	assert.Equal(t, "bold text", CleanHTML("<p><b>bold</b> text</p>"))
}

func TestStats(t *testing.T) {
	assert.Nil(t, Stats(nil))

	st := Stats([]model.Article{
		{Source: "a", Tickers: []string{"LMT", "RTX"}, Tags: []string{"defense"}, PublishedDate: "2024-02-01", Content: "1234"},
		{Source: "b", Tickers: []string{"LMT"}, PublishedDate: "2024-01-15", Content: "12"},
		{Source: "a", Tickers: []string{"GD"}, Tags: []string{"defense", "army"}, PublishedDate: "2024-03-09"},
	})
	require.NotNil(t, st)
	assert.Equal(t, 3, st.Total)
	assert.Equal(t, 2, st.UniqueSources)
	assert.Equal(t, 3, st.UniqueTickers)
	assert.Equal(t, "2024-01-15", st.From)
	assert.Equal(t, "2024-03-09", st.To)
	assert.InDelta(t, 2.0, st.AvgTextLength, 1e-9)
	assert.Equal(t, Count{Name: "LMT", N: 2}, st.TopTickers[0])
	assert.Equal(t, Count{Name: "defense", N: 2}, st.TopTags[0])
}

func TestStats_Sentiment(t *testing.T) {
	st := Stats([]model.Article{
		{PublishedDate: "2024-02-02", Sentiment: null.FloatFrom(0.6)},
		{PublishedDate: "2024-02-01", Sentiment: null.FloatFrom(-0.5)},
		{PublishedDate: "2024-02-02", Sentiment: null.FloatFrom(0.2)},
		{PublishedDate: "2024-02-03"},
		{Sentiment: null.FloatFrom(0.3)},
	})
	require.NotNil(t, st)
	assert.Equal(t, 4, st.Scored)
	require.True(t, st.MeanSentiment.Valid)
	assert.InDelta(t, 0.15, st.MeanSentiment.Float64, 1e-9)
	require.Len(t, st.DailySentiment, 2, "undated and unscored articles add no day")
	assert.Equal(t, "2024-02-01", st.DailySentiment[0].Date)
	assert.InDelta(t, -0.5, st.DailySentiment[0].Mean, 1e-9)
	assert.Equal(t, "2024-02-02", st.DailySentiment[1].Date)
	assert.InDelta(t, 0.4, st.DailySentiment[1].Mean, 1e-9)
	assert.Equal(t, 2, st.DailySentiment[1].Articles)

	unscored := Stats([]model.Article{{Title: "x"}})
	assert.False(t, unscored.MeanSentiment.Valid)
	assert.Empty(t, unscored.DailySentiment)
}

func TestSearchTickers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tiingo/utilities/search/lockheed", r.URL.Path)
		fmt.Fprint(w, `[{"ticker":"LMT","name":"Lockheed Martin Corp","assetType":"Stock","isActive":true}]`)
	})
	got, err := c.SearchTickers(context.Background(), "lockheed")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "LMT", got[0].Ticker)
}
