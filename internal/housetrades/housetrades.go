// Package housetrades reads the House Stock Watcher disclosure feed and
// matches congressional trades against contract award dates.
package housetrades

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/phuslu/log"
	"github.com/shopspring/decimal"

	"ContractPulse/internal/model"
)

// DefaultURL is the full House transaction dump.
const DefaultURL = "https://house-stock-watcher-data.s3-us-west-2.amazonaws.com/data/all_transactions.json"

// Client downloads House trade disclosures.
type Client struct {
	URL    string
	Client *http.Client
}

// NewClient creates a client for feedURL, or DefaultURL when empty.
func NewClient(feedURL string, timeout time.Duration) *Client {
	if feedURL == "" {
		feedURL = DefaultURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{URL: feedURL, Client: &http.Client{Timeout: timeout}}
}

type rawTrade struct {
	TransactionDate string `json:"transaction_date"`
	Representative  string `json:"representative"`
	Ticker          string `json:"ticker"`
	AssetName       string `json:"asset_name"`
	Type            string `json:"type"`
	Amount          string `json:"amount"`
	Source          string `json:"source"`
}

// Fetch downloads the feed and returns every trade with a usable date.
func (c *Client) Fetch(ctx context.Context) ([]model.PoliticianTrade, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch house trades: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("house trades: status %d, body: %s", resp.StatusCode, string(body))
	}

	var raw []rawTrade
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("house trades decode: %w", err)
	}

	trades := make([]model.PoliticianTrade, 0, len(raw))
	dropped := 0
	for _, r := range raw {
		t, ok := convert(r)
		if !ok {
			dropped++
			continue
		}
		trades = append(trades, t)
	}
	log.Debug().Int("trades", len(trades)).Int("dropped", dropped).Msg("house trades loaded")
	return trades, nil
}

func convert(r rawTrade) (model.PoliticianTrade, bool) {
	date, ok := FixDate(r.TransactionDate)
	if !ok {
		return model.PoliticianTrade{}, false
	}
	ticker := strings.TrimSpace(r.Ticker)
	if ticker == "" {
		ticker = "--"
	}
	trader := strings.TrimSpace(r.Representative)
	if trader == "" {
		trader = "Unknown"
	}
	action := strings.TrimSpace(r.Type)
	if action == "" {
		action = "Unknown"
	}
	low, _ := ParseAmountLow(r.Amount)
	return model.PoliticianTrade{
		Date:      date,
		Trader:    trader,
		Chamber:   "House",
		Ticker:    ticker,
		Asset:     strings.TrimSpace(r.AssetName),
		Action:    action,
		AmountLow: low,
		AmountRaw: r.Amount,
		FilingURL: r.Source,
	}, true
}

// FixDate parses the date formats found in disclosure filings: MM/DD/YYYY,
// YYYY-MM-DD, partial dates with a trailing dash ("2021-" or "2021-03-",
// padded with 01), and years with extra leading digits ("12021-05-04",
// reduced to the last four).
func FixDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "N/A" {
		return time.Time{}, false
	}
	if strings.Contains(s, "/") {
		if t, err := time.Parse("01/02/2006", s); err == nil {
			return t, true
		}
	}
	if !strings.Contains(s, "-") {
		return time.Time{}, false
	}

	s = strings.TrimRight(s, "-")
	parts := strings.Split(s, "-")
	if len(parts[0]) > 4 {
		parts[0] = parts[0][len(parts[0])-4:]
	}
	for len(parts) < 3 {
		parts = append(parts, "01")
	}
	t, err := time.Parse(model.DateLayout, strings.Join(parts, "-"))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ParseAmountLow returns the lower bound of a disclosure amount such as
// "$1,001 - $15,000" or "$50,001 -".
func ParseAmountLow(s string) (decimal.Decimal, bool) {
	s = strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(s))
	if i := strings.Index(s, "-"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// FormatAmount renders the lower bound as "$1,001.00", or the raw text when
// no bound could be parsed.
func FormatAmount(t model.PoliticianTrade) string {
	if t.AmountLow.IsZero() {
		if t.AmountRaw == "" {
			return "N/A"
		}
		return t.AmountRaw
	}
	whole := t.AmountLow.Truncate(0)
	cents := t.AmountLow.Sub(whole).Shift(2).Round(0).IntPart()
	return fmt.Sprintf("$%s.%02d", humanize.Comma(whole.IntPart()), cents)
}

// Filter keeps trades in ticker (case-insensitive) dated within r, sorted by date.
func Filter(trades []model.PoliticianTrade, ticker string, r model.DateRange) []model.PoliticianTrade {
	var out []model.PoliticianTrade
	for _, t := range trades {
		if !strings.EqualFold(t.Ticker, ticker) {
			continue
		}
		if !r.Contains(t.Date) {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// NearEvents keeps trades dated within ±days of at least one event.
func NearEvents(trades []model.PoliticianTrade, events model.EventSet, days int) []model.PoliticianTrade {
	if len(events) == 0 || days < 0 {
		return nil
	}
	var out []model.PoliticianTrade
	for _, t := range trades {
		d := model.Day(t.Date)
		for _, ev := range events {
			lo := ev.Date.AddDate(0, 0, -days)
			hi := ev.Date.AddDate(0, 0, days)
			if !d.Before(lo) && !d.After(hi) {
				out = append(out, t)
				break
			}
		}
	}
	return out
}
