package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ContractPulse/internal/calculator"
	"ContractPulse/internal/metrics"
	"ContractPulse/internal/model"
	"ContractPulse/internal/tiingo"
)

type fakeEvents struct {
	raw []model.RawEvent
	err error
}

func (f *fakeEvents) FetchRawEvents(context.Context, string, time.Time, time.Time) ([]model.RawEvent, error) {
	return f.raw, f.err
}

type fakeTrades struct {
	trades []model.PoliticianTrade
	err    error
}

func (f *fakeTrades) Fetch(context.Context) ([]model.PoliticianTrade, error) { return f.trades, f.err }

type fakeChain struct {
	summary *model.OptionsSummary
	err     error
}

func (f *fakeChain) FetchOptions(context.Context, string) (*model.OptionsSummary, error) {
	return f.summary, f.err
}

type fixedScorer struct{ score float64 }

func (f fixedScorer) Annotate(articles []model.Article) {
	for i := range articles {
		articles[i].Sentiment = null.FloatFrom(f.score)
	}
}

type fakeNews struct {
	got tiingo.NewsQuery
	err error
}

func (f *fakeNews) News(_ context.Context, q tiingo.NewsQuery) ([]model.Article, error) {
	f.got = q
	if f.err != nil {
		return nil, f.err
	}
	return []model.Article{{Title: "Lockheed wins"}}, nil
}

var fixedNow = time.Date(2024, 12, 31, 12, 0, 0, 0, time.UTC)

func d(s string) time.Time {
	t, _ := time.Parse(model.DateLayout, s)
	return t
}

func newTestCollector(fetcher Fetcher, events RawEventSource) *Collector {
	c := NewCollector(fetcher, events, Options{
		Params:       calculator.Params{PreDays: 30, PostDays: 90, Policy: calculator.PolicyCalendar},
		LookbackDays: 365,
	})
	c.now = func() time.Time { return fixedNow }
	return c
}

func sampleEvents() *fakeEvents {
	return &fakeEvents{raw: []model.RawEvent{
		{Date: "2024-06-03", Label: "later award", Amount: null.FloatFrom(2e6)},
		{Date: "not a date", Label: "broken"},
		{Date: "2024-03-01", Label: "earlier award", Amount: null.FloatFrom(5e6)},
	}}
}

func TestCollect_FullPipeline(t *testing.T) {
	fetcher := &MockFetcher{Price: 450}
	trades := &fakeTrades{trades: []model.PoliticianTrade{
		{Date: d("2024-03-05"), Ticker: "LMT", Trader: "near"},
		{Date: d("2024-09-01"), Ticker: "LMT", Trader: "far"},
		{Date: d("2024-03-02"), Ticker: "RTX", Trader: "other"},
	}}
	news := &fakeNews{}

	c := newTestCollector(fetcher, sampleEvents())
	c.Trades = trades
	c.News = news
	c.Metrics = metrics.NewManager()
	c.Options.TradeWindowDays = 7
	c.Options.NewsLimit = 3

	a, err := c.Collect(context.Background(), Request{Symbol: "lmt", Recipient: "Lockheed Martin"})
	require.NoError(t, err)

	assert.NotEmpty(t, a.RunID)
	assert.Equal(t, "LMT", a.Symbol)
	assert.Equal(t, d("2024-01-01"), a.Range.From, "365 days back from 2024-12-31 crosses Feb 29")
	assert.Equal(t, 2, a.Events)
	assert.Equal(t, 1, a.Skipped)
	assert.Greater(t, a.Samples, 100)
	assert.False(t, a.Insufficient())

	require.NotNil(t, a.Report)
	require.Len(t, a.Report.PerEvent, 2)
	assert.Equal(t, "earlier award", a.Report.PerEvent[0].Event.Label, "events ordered by date")
	assert.True(t, a.Report.PerEvent[0].PriceChangePct.Valid)
	assert.True(t, a.Report.MeanPriceChangePct.Valid)

	require.Len(t, a.Trades, 1)
	assert.Equal(t, "near", a.Trades[0].Trader)
	require.Len(t, a.News, 1)
	assert.Equal(t, []string{"LMT"}, news.got.Tickers)
	assert.Equal(t, 3, news.got.Limit)
	assert.Len(t, a.Warnings, 1, "only the skipped award is reported")
}

func TestCollect_PriceFailureIsInsufficient(t *testing.T) {
	c := newTestCollector(&MockFetcher{Err: errors.New("upstream down")}, sampleEvents())

	a, err := c.Collect(context.Background(), Request{Symbol: "LMT", Recipient: "Lockheed Martin"})
	require.NoError(t, err)
	assert.True(t, a.Insufficient())
	assert.Zero(t, a.Samples)
	require.NotNil(t, a.Report)
	assert.False(t, a.Report.MeanPriceChangePct.Valid)
	assert.Contains(t, a.Warnings[len(a.Warnings)-1], "upstream down")
}

func TestCollect_EventFailureSkipsPriceFetch(t *testing.T) {
	fetcher := &MockFetcher{Price: 10}
	c := newTestCollector(fetcher, &fakeEvents{err: errors.New("503")})

	a, err := c.Collect(context.Background(), Request{Symbol: "LMT", Recipient: "Lockheed Martin"})
	require.NoError(t, err)
	assert.True(t, a.Insufficient())
	assert.Nil(t, a.Report)
	assert.Zero(t, fetcher.Calls)
}

func TestCollect_CollaboratorFailuresDegrade(t *testing.T) {
	c := newTestCollector(&MockFetcher{Price: 10}, sampleEvents())
	c.Trades = &fakeTrades{err: errors.New("s3 down")}
	c.News = &fakeNews{err: errors.New("401")}

	a, err := c.Collect(context.Background(), Request{Symbol: "LMT", Recipient: "Lockheed Martin"})
	require.NoError(t, err)
	assert.False(t, a.Insufficient())
	assert.Contains(t, a.Warnings, "politician trades unavailable")
	assert.Contains(t, a.Warnings, "news unavailable")
}

func TestCollect_OptionsAndSentiment(t *testing.T) {
	c := newTestCollector(&MockFetcher{Price: 10}, sampleEvents())
	c.News = &fakeNews{}
	c.Scorer = fixedScorer{score: 0.25}
	c.Chain = &fakeChain{summary: &model.OptionsSummary{Calls: 3, CallsAvgVolume: null.FloatFrom(40)}}

	a, err := c.Collect(context.Background(), Request{Symbol: "LMT", Recipient: "Lockheed Martin"})
	require.NoError(t, err)
	require.Len(t, a.News, 1)
	assert.Equal(t, null.FloatFrom(0.25), a.News[0].Sentiment)
	require.NotNil(t, a.Options)
	assert.Equal(t, 3, a.Options.Calls)

	c.Chain = &fakeChain{err: errors.New("401 crumb")}
	a, err = c.Collect(context.Background(), Request{Symbol: "LMT", Recipient: "Lockheed Martin"})
	require.NoError(t, err)
	assert.Nil(t, a.Options)
	assert.Contains(t, a.Warnings, "options chain unavailable")
	assert.False(t, a.Insufficient())
}

func TestCollect_UsesCache(t *testing.T) {
	fetcher := &MockFetcher{Price: 10}
	c := newTestCollector(fetcher, sampleEvents())
	c.Cache = NewBarCache(time.Hour)

	req := Request{Symbol: "LMT", Recipient: "Lockheed Martin"}
	_, err := c.Collect(context.Background(), req)
	require.NoError(t, err)
	_, err = c.Collect(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.Calls)

	req.Refresh = true
	_, err = c.Collect(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, fetcher.Calls, "refresh bypasses the cached bars")

	req.Refresh = false
	_, err = c.Collect(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, fetcher.Calls)
}

func TestCollect_RequestOverridesWindows(t *testing.T) {
	c := newTestCollector(&MockFetcher{Price: 10}, sampleEvents())
	a, err := c.Collect(context.Background(), Request{Symbol: "LMT", Recipient: "X", PreDays: 10, PostDays: 20})
	require.NoError(t, err)
	assert.Equal(t, 10, a.PreDays)
	assert.Equal(t, 20, a.PostDays)
}

func TestCollect_Validation(t *testing.T) {
	c := newTestCollector(&MockFetcher{}, sampleEvents())
	_, err := c.Collect(context.Background(), Request{Recipient: "X"})
	assert.Error(t, err)
	_, err = c.Collect(context.Background(), Request{Symbol: "LMT"})
	assert.Error(t, err)
	_, err = c.Collect(context.Background(), Request{Symbol: "LMT", Recipient: "X", From: d("2024-05-01"), To: d("2024-01-01")})
	assert.Error(t, err)
}

func TestCollect_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := newTestCollector(&MockFetcher{Price: 10}, sampleEvents())
	_, err := c.Collect(ctx, Request{Symbol: "LMT", Recipient: "X"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPriceRange(t *testing.T) {
	events := model.EventSet{{Date: d("2024-05-01")}, {Date: d("2024-02-01")}}

	from, to := priceRange(events, calculator.Params{PreDays: 30, PostDays: 90}, fixedNow)
	assert.Equal(t, d("2024-01-02"), from)
	assert.Equal(t, d("2024-07-30"), to)

	from, to = priceRange(events, calculator.Params{PreDays: 30, PostDays: 90}, d("2024-06-01"))
	assert.Equal(t, d("2024-06-01"), to, "clamped to today")
	_ = from

	from, _ = priceRange(events, calculator.Params{PreDays: 5, PostDays: 5, Policy: calculator.PolicyTrading}, fixedNow)
	assert.Equal(t, d("2024-01-18"), from)
}

func TestBarCache(t *testing.T) {
	c := NewBarCache(time.Minute)
	now := fixedNow
	c.now = func() time.Time { return now }

	s := calculator.NewStore("LMT", nil)
	c.Put("LMT", d("2024-01-01"), d("2024-02-01"), s)
	got, ok := c.Get("lmt", d("2024-01-01"), d("2024-02-01"))
	require.True(t, ok)
	assert.Same(t, s, got)

	_, ok = c.Get("LMT", d("2024-01-01"), d("2024-02-02"))
	assert.False(t, ok, "different range is a different key")

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("LMT", d("2024-01-01"), d("2024-02-01"))
	assert.False(t, ok, "expired")

	assert.Zero(t, c.Len(), "expired entry removed on read")

	c.Put("LMT", d("2024-01-01"), d("2024-02-01"), s)
	now = now.Add(2 * time.Minute)
	c.Put("RTX", d("2024-01-01"), d("2024-02-01"), s)
	assert.Equal(t, 1, c.Len(), "put sweeps expired entries")

	c.Put("RTX", d("2024-01-01"), d("2024-02-02"), s)
	assert.Equal(t, 1, c.Len(), "a later range end replaces the earlier one")
	_, ok = c.Get("RTX", d("2024-01-01"), d("2024-02-02"))
	assert.True(t, ok)

	c.Put("LMT", d("2024-01-01"), d("2024-02-01"), s)
	assert.Equal(t, 1, c.Invalidate("LMT"))
	assert.Equal(t, 1, c.Len())
}

func TestBarCache_DailyRangesDoNotAccumulate(t *testing.T) {
	c := NewBarCache(0)
	s := calculator.NewStore("LMT", nil)
	for day := 0; day < 30; day++ {
		c.Put("LMT", d("2023-01-01"), d("2024-01-01").AddDate(0, 0, day), s)
	}
	assert.Equal(t, 1, c.Len())
}

func TestMockFetcher_FiltersRange(t *testing.T) {
	m := &MockFetcher{DailyData: []model.OHLCV{
		{Time: d("2024-01-01"), Close: 1},
		{Time: d("2024-01-05"), Close: 2},
		{Time: d("2024-02-01"), Close: 3},
	}}
	bars, err := m.FetchDailyBars(context.Background(), "X", d("2024-01-02"), d("2024-02-01"))
	require.NoError(t, err)
	assert.Len(t, bars, 2)
}

func TestYahooFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/LMT", r.URL.Path)
		assert.Equal(t, fmt.Sprint(d("2024-01-02").Unix()), r.URL.Query().Get("period1"))
		assert.Equal(t, fmt.Sprint(d("2024-01-05").Unix()), r.URL.Query().Get("period2"))
		fmt.Fprintf(w, `{"chart":{"result":[{"timestamp":[%d,%d,%d],
			"indicators":{"quote":[{"open":[1,null,3],"high":[1,null,3],"low":[1,null,3],
			"close":[450.1,null,452.3],"volume":[1000,null,1200]}]}}],"error":null}}`,
			d("2024-01-04").Add(14*time.Hour).Unix(), d("2024-01-03").Add(14*time.Hour).Unix(), d("2024-01-02").Add(14*time.Hour).Unix())
	}))
	defer srv.Close()

	f := NewYahooFetcher("", time.Second)
	f.BaseURL = srv.URL
	bars, err := f.FetchDailyBars(context.Background(), "LMT", d("2024-01-02"), d("2024-01-04"))
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 452.3, bars[0].Close, "sorted ascending")
	assert.Equal(t, 450.1, bars[1].Close)
}

func TestYahooFetcher_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`)
	}))
	defer srv.Close()

	f := NewYahooFetcher("", time.Second)
	f.BaseURL = srv.URL
	_, err := f.FetchDailyBars(context.Background(), "ZZZZ", d("2024-01-02"), d("2024-01-04"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delisted")
}

func TestYahooFetcher_Options(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v7/finance/options/BRK-B", r.URL.Path)
		fmt.Fprintf(w, `{"optionChain":{"result":[{"underlyingSymbol":"BRK-B","options":[{"expirationDate":%d,
			"calls":[{"volume":100,"openInterest":1000},{"volume":300},{"openInterest":3000}],
			"puts":[{},{}]}]}],"error":null}}`, d("2024-03-15").Unix())
	}))
	defer srv.Close()

	f := NewYahooFetcher("", time.Second)
	f.BaseURL = srv.URL
	o, err := f.FetchOptions(context.Background(), "BRK.B")
	require.NoError(t, err)
	require.NotNil(t, o)
	assert.Equal(t, d("2024-03-15"), o.Expiration)
	assert.Equal(t, 3, o.Calls)
	assert.Equal(t, 2, o.Puts)
	assert.Equal(t, null.FloatFrom(200), o.CallsAvgVolume, "contracts without volume are skipped")
	assert.Equal(t, null.FloatFrom(2000), o.CallsAvgOpenInterest)
	assert.False(t, o.PutsAvgVolume.Valid)
	assert.False(t, o.PutsAvgOpenInterest.Valid)
}

func TestYahooFetcher_OptionsEmptyAndErrors(t *testing.T) {
	body := `{"optionChain":{"result":[{"options":[]}],"error":null}}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v7/finance/options/FAIL" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"finance":{"error":{"code":"Unauthorized"}}}`)
			return
		}
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	f := NewYahooFetcher("", time.Second)
	f.BaseURL = srv.URL
	o, err := f.FetchOptions(context.Background(), "LMT")
	require.NoError(t, err)
	assert.Nil(t, o)

	_, err = f.FetchOptions(context.Background(), "FAIL")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestTiingoFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"date":"2024-01-02T00:00:00Z","open":1,"high":2,"low":0.5,"close":1.5,"volume":300}]`)
	}))
	defer srv.Close()

	f := NewTiingoFetcher(tiingo.NewClient("k", tiingo.WithBaseURL(srv.URL), tiingo.WithRateLimit(0)))
	assert.Equal(t, "tiingo", f.Name())
	bars, err := f.FetchDailyBars(context.Background(), "LMT", d("2024-01-01"), d("2024-01-31"))
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 1.5, bars[0].Close)
	assert.Equal(t, 300.0, bars[0].Volume)
}
