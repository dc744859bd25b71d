package collector

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phuslu/log"

	"ContractPulse/internal/calculator"
	"ContractPulse/internal/housetrades"
	"ContractPulse/internal/metrics"
	"ContractPulse/internal/model"
	"ContractPulse/internal/tiingo"
)

// NewsSource supplies news articles.
type NewsSource interface {
	News(ctx context.Context, q tiingo.NewsQuery) ([]model.Article, error)
}

// Options are the run-wide analysis settings.
type Options struct {
	Params           calculator.Params
	LookbackDays     int
	TradeWindowDays  int
	NewsLimit        int
	FetchNewsContent bool
}

// Request selects one analysis. Zero values fall back to Options.
type Request struct {
	Symbol    string
	Recipient string
	From      time.Time
	To        time.Time
	PreDays   int
	PostDays  int
	// Refresh drops cached bars for Symbol before fetching.
	Refresh bool
}

// Collector orchestrates data fetching and impact computation.
type Collector struct {
	Fetcher Fetcher
	Events  RawEventSource
	Trades  TradeSource
	News    NewsSource
	Chain   OptionsSource
	Scorer  SentimentScorer
	Cache   *BarCache
	Metrics *metrics.Manager
	Options Options

	now func() time.Time
}

// NewCollector creates a new Collector. The optional collaborators (Trades,
// News, Chain, Scorer, Cache, Metrics) are set on the returned value.
func NewCollector(fetcher Fetcher, events RawEventSource, opts Options) *Collector {
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = 730
	}
	if opts.Params.Policy == "" {
		opts.Params.Policy = calculator.PolicyCalendar
	}
	return &Collector{Fetcher: fetcher, Events: events, Options: opts, now: time.Now}
}

// params resolves the window parameters for req.
func (c *Collector) params(req Request) calculator.Params {
	p := c.Options.Params
	if req.PreDays > 0 {
		p.PreDays = req.PreDays
	}
	if req.PostDays > 0 {
		p.PostDays = req.PostDays
	}
	return p
}

// Collect runs one analysis. Upstream failures are recorded as warnings on
// the returned analysis; a missing price series or event set yields an
// analysis marked insufficient. Only cancellation of ctx is returned as an error.
func (c *Collector) Collect(ctx context.Context, req Request) (*model.Analysis, error) {
	if req.Symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if req.Recipient == "" {
		return nil, fmt.Errorf("recipient is required")
	}

	now := c.now()
	to := req.To
	if to.IsZero() {
		to = now
	}
	from := req.From
	if from.IsZero() {
		from = to.AddDate(0, 0, -c.Options.LookbackDays)
	}
	if from.After(to) {
		return nil, fmt.Errorf("invalid range: %s after %s", from.Format(model.DateLayout), to.Format(model.DateLayout))
	}
	p := c.params(req)

	a := &model.Analysis{
		RunID:     uuid.NewString(),
		Symbol:    strings.ToUpper(req.Symbol),
		Recipient: req.Recipient,
		Range:     model.DateRange{From: model.Day(from), To: model.Day(to)},
		PreDays:   p.PreDays,
		PostDays:  p.PostDays,
		Policy:    string(p.Policy),
		StartedAt: now,
	}
	log.Info().Str("run_id", a.RunID).Str("symbol", a.Symbol).
		Str("recipient", a.Recipient).Str("range", a.Range.String()).
		Msg("analysis started")

	events := c.collectEvents(ctx, a)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	store := calculator.NewStore(a.Symbol, nil)
	if len(events) > 0 {
		store = c.loadStore(ctx, a, events, p, req.Refresh)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	a.Samples = store.Len()

	if len(events) > 0 {
		// an empty store still yields per-event rows so the awards can be listed
		a.Report = calculator.Aggregate(store, events, p)
	}

	c.collectTrades(ctx, a, events)
	c.collectNews(ctx, a)
	c.collectOptions(ctx, a)

	a.FinishedAt = c.now()
	c.Metrics.RecordAnalysis(a)
	log.Info().Str("run_id", a.RunID).Str("symbol", a.Symbol).
		Int("events", a.Events).Int("samples", a.Samples).
		Bool("insufficient", a.Insufficient()).
		Dur("duration", a.FinishedAt.Sub(a.StartedAt)).
		Msg("analysis finished")
	return a, nil
}

func (c *Collector) collectEvents(ctx context.Context, a *model.Analysis) model.EventSet {
	started := time.Now()
	raw, err := c.Events.FetchRawEvents(ctx, a.Recipient, a.Range.From, a.Range.To)
	c.Metrics.ObserveFetch("usaspending", started, err)
	if err != nil {
		log.Warn().Err(err).Str("recipient", a.Recipient).Msg("event fetch failed")
		a.Warn("contract awards unavailable: " + err.Error())
		return nil
	}

	events, skipped := model.NewEventSet(raw)
	sort.SliceStable(events, func(i, j int) bool { return events[i].Date.Before(events[j].Date) })
	a.Events = len(events)
	a.Skipped = skipped
	if skipped > 0 {
		a.Warn(fmt.Sprintf("%d awards skipped for missing or malformed dates", skipped))
	}
	if len(events) == 0 {
		a.Warn("no contract awards found for " + a.Recipient)
	}
	return events
}

// priceRange is the span of bars needed to cover every event's windows.
func priceRange(events model.EventSet, p calculator.Params, now time.Time) (time.Time, time.Time) {
	pre, post := p.PreDays, p.PostDays
	if p.Policy == calculator.PolicyTrading {
		// trading days to calendar days, with room for holidays
		pre = pre*7/5 + 7
		post = post*7/5 + 7
	}
	first, last := events[0].Date, events[0].Date
	for _, ev := range events[1:] {
		if ev.Date.Before(first) {
			first = ev.Date
		}
		if ev.Date.After(last) {
			last = ev.Date
		}
	}
	from := first.AddDate(0, 0, -pre)
	to := last.AddDate(0, 0, post)
	if today := model.Day(now); to.After(today) {
		to = today
	}
	return from, to
}

func (c *Collector) loadStore(ctx context.Context, a *model.Analysis, events model.EventSet, p calculator.Params, refresh bool) *calculator.Store {
	from, to := priceRange(events, p, c.now())
	if c.Cache != nil && refresh {
		if n := c.Cache.Invalidate(a.Symbol); n > 0 {
			log.Debug().Str("symbol", a.Symbol).Int("entries", n).Msg("price cache invalidated")
		}
	}
	if c.Cache != nil {
		if s, ok := c.Cache.Get(a.Symbol, from, to); ok {
			log.Debug().Str("symbol", a.Symbol).Msg("price cache hit")
			return s
		}
	}

	started := time.Now()
	bars, err := c.Fetcher.FetchDailyBars(ctx, a.Symbol, from, to)
	c.Metrics.ObserveFetch(c.Fetcher.Name(), started, err)
	if err != nil {
		log.Warn().Err(err).Str("symbol", a.Symbol).Str("source", c.Fetcher.Name()).Msg("price fetch failed")
		a.Warn("price history unavailable: " + err.Error())
		return calculator.NewStore(a.Symbol, nil)
	}

	s := calculator.NewStore(a.Symbol, bars)
	if s.Empty() {
		a.Warn("no price history for " + a.Symbol)
		return s
	}
	if c.Cache != nil {
		c.Cache.Put(a.Symbol, from, to, s)
		log.Debug().Str("symbol", a.Symbol).Int("cached", c.Cache.Len()).Msg("price cache stored")
	}
	return s
}

func (c *Collector) collectTrades(ctx context.Context, a *model.Analysis, events model.EventSet) {
	if c.Trades == nil || len(events) == 0 {
		return
	}
	started := time.Now()
	all, err := c.Trades.Fetch(ctx)
	c.Metrics.ObserveFetch("housetrades", started, err)
	if err != nil {
		log.Warn().Err(err).Msg("house trades unavailable")
		a.Warn("politician trades unavailable")
		return
	}
	days := c.Options.TradeWindowDays
	if days <= 0 {
		days = 30
	}
	r := model.DateRange{From: a.Range.From.AddDate(0, 0, -days), To: a.Range.To.AddDate(0, 0, days)}
	a.Trades = housetrades.NearEvents(housetrades.Filter(all, a.Symbol, r), events, days)
}

func (c *Collector) collectNews(ctx context.Context, a *model.Analysis) {
	if c.News == nil {
		return
	}
	started := time.Now()
	articles, err := c.News.News(ctx, tiingo.NewsQuery{
		Tickers:      []string{a.Symbol},
		StartDate:    a.Range.From,
		EndDate:      a.Range.To,
		Limit:        c.Options.NewsLimit,
		FetchContent: c.Options.FetchNewsContent,
	})
	c.Metrics.ObserveFetch("tiingo_news", started, err)
	if err != nil {
		log.Warn().Err(err).Str("symbol", a.Symbol).Msg("news unavailable")
		a.Warn("news unavailable")
		return
	}
	if c.Scorer != nil {
		c.Scorer.Annotate(articles)
	}
	a.News = articles
}

func (c *Collector) collectOptions(ctx context.Context, a *model.Analysis) {
	if c.Chain == nil {
		return
	}
	started := time.Now()
	summary, err := c.Chain.FetchOptions(ctx, a.Symbol)
	c.Metrics.ObserveFetch("yahoo_options", started, err)
	if err != nil {
		log.Warn().Err(err).Str("symbol", a.Symbol).Msg("options chain unavailable")
		a.Warn("options chain unavailable")
		return
	}
	a.Options = summary
}
