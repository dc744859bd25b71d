package tiingo

import (
	"context"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/guregu/null/v6"
	"github.com/phuslu/log"

	"ContractPulse/internal/model"
)

// NewsQuery selects articles from the news feed.
type NewsQuery struct {
	Tickers   []string
	Tags      []string
	StartDate time.Time
	EndDate   time.Time
	Limit     int
	// SortBy is "relevance" (default) or "crawlDate".
	SortBy string
	// FetchContent downloads each article page and keeps its text when it is
	// longer than what the feed supplied.
	FetchContent bool
}

// PoliticianTradingTags are the feed tags used to look for coverage of
// congressional trading.
var PoliticianTradingTags = []string{
	"congress trading", "senate trading", "politician stock",
	"congressional disclosure", "stock act", "congressional trading",
	"insider trading congress", "politician investment",
}

// News fetches and cleans articles matching q.
func (c *Client) News(ctx context.Context, q NewsQuery) ([]model.Article, error) {
	params := url.Values{}
	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}
	params.Set("limit", strconv.Itoa(limit))
	sortBy := q.SortBy
	if sortBy == "" {
		sortBy = "relevance"
	}
	params.Set("sortBy", sortBy)
	if len(q.Tickers) > 0 {
		params.Set("tickers", strings.Join(q.Tickers, ","))
	}
	if len(q.Tags) > 0 {
		params.Set("tags", strings.Join(q.Tags, ","))
	}
	if !q.StartDate.IsZero() {
		params.Set("startDate", q.StartDate.Format(model.DateLayout))
	}
	if !q.EndDate.IsZero() {
		params.Set("endDate", q.EndDate.Format(model.DateLayout))
	}

	var raw []rawArticle
	if err := c.get(ctx, "/tiingo/news", params, &raw); err != nil {
		return nil, err
	}

	articles := make([]model.Article, 0, len(raw))
	for _, r := range raw {
		a := cleanArticle(r)
		if q.FetchContent && a.URL != "" {
			text, err := c.ArticleText(ctx, a.URL)
			if err != nil {
				log.Debug().Err(err).Str("url", a.URL).Msg("article text unavailable")
			} else if len(text) > len(a.Content) {
				a.Content = text
			}
		}
		articles = append(articles, a)
	}
	return articles, nil
}

func cleanArticle(r rawArticle) model.Article {
	a := model.Article{
		ID:            r.ID,
		Title:         CleanHTML(r.Title),
		Description:   CleanHTML(r.Description),
		Content:       CleanHTML(r.Content),
		Source:        r.Source,
		URL:           r.URL,
		Tickers:       r.Tickers,
		Tags:          r.Tags,
		PublishedDate: formatDate(r.PublishedDate),
		CrawledDate:   formatDate(r.CrawlDate),
	}
	if a.Tickers == nil {
		a.Tickers = []string{}
	}
	if a.Tags == nil {
		a.Tags = []string{}
	}
	return a
}

// CleanHTML strips markup and collapses whitespace.
func CleanHTML(s string) string {
	if s == "" {
		return ""
	}
	if strings.ContainsAny(s, "<&") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
			s = doc.Text()
		}
	}
	return strings.Join(strings.Fields(s), " ")
}

// formatDate reduces an ISO timestamp to YYYY-MM-DD. Unparseable values keep
// their first ten characters.
func formatDate(s string) string {
	if s == "" {
		return ""
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC().Format(model.DateLayout)
	}
	if len(s) > 10 {
		return s[:10]
	}
	return s
}

// Count is a name with its number of occurrences.
type Count struct {
	Name string
	N    int
}

// NewsStats summarises a batch of articles.
type NewsStats struct {
	Total         int
	UniqueSources int
	UniqueTickers int
	From          string
	To            string
	AvgTextLength float64
	TopTickers    []Count
	TopTags       []Count

	// Scored counts the articles carrying a sentiment score. MeanSentiment is
	// their average and DailySentiment the per-day averages in date order;
	// days without scored articles are absent.
	Scored         int
	MeanSentiment  null.Float
	DailySentiment []DailySentiment
}

// DailySentiment is the mean sentiment of the scored articles published on Date.
type DailySentiment struct {
	Date     string
	Mean     float64
	Articles int
}

// Stats computes summary statistics over articles. It returns nil for an empty batch.
func Stats(articles []model.Article) *NewsStats {
	if len(articles) == 0 {
		return nil
	}
	st := &NewsStats{Total: len(articles)}
	sources := map[string]bool{}
	tickers := map[string]int{}
	tags := map[string]int{}
	var textLen int
	var sentimentSum float64
	daily := map[string]*DailySentiment{}
	for _, a := range articles {
		if a.Sentiment.Valid {
			st.Scored++
			sentimentSum += a.Sentiment.Float64
			if a.PublishedDate != "" {
				d := daily[a.PublishedDate]
				if d == nil {
					d = &DailySentiment{Date: a.PublishedDate}
					daily[a.PublishedDate] = d
				}
				d.Mean += a.Sentiment.Float64
				d.Articles++
			}
		}
		if a.Source != "" {
			sources[a.Source] = true
		}
		for _, t := range a.Tickers {
			if t != "" {
				tickers[t]++
			}
		}
		for _, t := range a.Tags {
			if t != "" {
				tags[t]++
			}
		}
		textLen += len(a.Content)
		if a.PublishedDate != "" {
			if st.From == "" || a.PublishedDate < st.From {
				st.From = a.PublishedDate
			}
			if a.PublishedDate > st.To {
				st.To = a.PublishedDate
			}
		}
	}
	st.UniqueSources = len(sources)
	st.UniqueTickers = len(tickers)
	st.AvgTextLength = float64(textLen) / float64(len(articles))
	st.TopTickers = topCounts(tickers, 10)
	st.TopTags = topCounts(tags, 10)

	if st.Scored > 0 {
		st.MeanSentiment = null.FloatFrom(sentimentSum / float64(st.Scored))
	}
	for _, d := range daily {
		d.Mean /= float64(d.Articles)
		st.DailySentiment = append(st.DailySentiment, *d)
	}
	sort.Slice(st.DailySentiment, func(i, j int) bool { return st.DailySentiment[i].Date < st.DailySentiment[j].Date })
	return st
}

func topCounts(m map[string]int, n int) []Count {
	out := make([]Count, 0, len(m))
	for k, v := range m {
		out = append(out, Count{Name: k, N: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].N != out[j].N {
			return out[i].N > out[j].N
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
