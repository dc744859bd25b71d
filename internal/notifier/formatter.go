package notifier

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/guregu/null/v6"

	"ContractPulse/internal/housetrades"
	"ContractPulse/internal/model"
	"ContractPulse/internal/recorder"
	"ContractPulse/internal/strategy"
	"ContractPulse/internal/tiingo"
)

const (
	maxTradeLines = 5
	maxNewsLines  = 3
)

func pct(v null.Float) string {
	if !v.Valid {
		return "n/a"
	}
	return fmt.Sprintf("%+.2f%%", v.Float64)
}

func price(v null.Float) string {
	if !v.Valid {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v.Float64)
}

func volume(v null.Float) string {
	if !v.Valid {
		return "n/a"
	}
	return humanize.Comma(int64(v.Float64 + 0.5))
}

func amount(v null.Float) string {
	if !v.Valid {
		return "n/a"
	}
	return "$" + humanize.Comma(int64(v.Float64))
}

// FormatImpactReport formats one analysis into a Telegram HTML message.
func FormatImpactReport(a *model.Analysis, topN int) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📑 <b>ContractPulse</b> | %s (%s)\n", html.EscapeString(a.Symbol), html.EscapeString(a.Recipient)))
	b.WriteString(fmt.Sprintf("Awards: %s | windows %dd / %dd (%s)\n\n", a.Range, a.PreDays, a.PostDays, a.Policy))

	if a.Insufficient() {
		b.WriteString("⚠️ <b>insufficient data for analysis</b>\n")
		switch {
		case a.Events == 0:
			b.WriteString("No contract awards found in the period.\n")
		case a.Samples == 0:
			b.WriteString("No price history available.\n")
		}
		writeWarnings(&b, a.Warnings)
		return b.String()
	}

	r := a.Report
	as := strategy.Assess(r)
	b.WriteString("📈 <b>Summary</b>\n")
	b.WriteString(fmt.Sprintf("  Awards: %d (%d measurable", len(r.PerEvent), r.ValidPriceCount))
	if a.Skipped > 0 {
		b.WriteString(fmt.Sprintf(", %d skipped", a.Skipped))
	}
	b.WriteString(")\n")
	b.WriteString(fmt.Sprintf("  Mean price change: %s %s (%s)\n", as.Tier.Symbol, pct(r.MeanPriceChangePct), as.Tier.Label))
	b.WriteString(fmt.Sprintf("  Mean volume change: %s\n", pct(r.MeanVolumeChangePct)))
	b.WriteString(fmt.Sprintf("  Up %d | Down %d | Flat %d | n/a %d\n", as.Up, as.Down, as.Flat, as.Undefined))
	if as.Consistency.Valid {
		b.WriteString(fmt.Sprintf("  Consistency: %.0f%%\n", as.Consistency.Float64*100))
	}

	if top := strategy.TopN(r, topN); len(top) > 0 {
		b.WriteString("\n🏆 <b>Largest moves</b>\n")
		for _, e := range top {
			tier := strategy.Classify(e)
			b.WriteString(fmt.Sprintf("%s %s %s\n", tier.Symbol, e.Event.Date.Format(model.DateLayout), html.EscapeString(e.Event.Label)))
			b.WriteString(fmt.Sprintf("   %s | price %s → %s (%s)\n", amount(e.Event.Amount), price(e.PreAvgPrice), price(e.PostAvgPrice), pct(e.PriceChangePct)))
			b.WriteString(fmt.Sprintf("   volume %s → %s (%s)\n", volume(e.PreAvgVolume), volume(e.PostAvgVolume), pct(e.VolumeChangePct)))
		}
	}

	if len(a.Trades) > 0 {
		b.WriteString(fmt.Sprintf("\n🏛 <b>Congressional trades</b> (%d)\n", len(a.Trades)))
		for i, t := range a.Trades {
			if i == maxTradeLines {
				b.WriteString(fmt.Sprintf("  … and %d more\n", len(a.Trades)-maxTradeLines))
				break
			}
			b.WriteString(fmt.Sprintf("  %s %s %s %s\n", t.Date.Format(model.DateLayout),
				html.EscapeString(t.Trader), html.EscapeString(t.Action), housetrades.FormatAmount(t)))
		}
	}

	if o := a.Options; o != nil {
		b.WriteString(fmt.Sprintf("\n🎯 <b>Options</b> (expiry %s)\n", o.Expiration.Format(model.DateLayout)))
		b.WriteString(fmt.Sprintf("  Calls %d: avg vol %s, avg OI %s\n", o.Calls, volume(o.CallsAvgVolume), volume(o.CallsAvgOpenInterest)))
		b.WriteString(fmt.Sprintf("  Puts %d: avg vol %s, avg OI %s\n", o.Puts, volume(o.PutsAvgVolume), volume(o.PutsAvgOpenInterest)))
	}

	if len(a.News) > 0 {
		b.WriteString("\n📰 <b>Headlines</b>")
		if st := tiingo.Stats(a.News); st != nil && st.MeanSentiment.Valid {
			b.WriteString(fmt.Sprintf(" (sentiment %+.2f)", st.MeanSentiment.Float64))
		}
		b.WriteString("\n")
		for i, n := range a.News {
			if i == maxNewsLines {
				break
			}
			line := fmt.Sprintf("  %s %s", n.PublishedDate, html.EscapeString(n.Title))
			if n.Sentiment.Valid {
				line += fmt.Sprintf(" [%+.2f]", n.Sentiment.Float64)
			}
			b.WriteString(line + "\n")
		}
	}

	if a.Narrative != "" {
		b.WriteString("\n📝 " + html.EscapeString(a.Narrative) + "\n")
	}

	writeWarnings(&b, a.Warnings)
	return b.String()
}

func writeWarnings(b *strings.Builder, warnings []string) {
	if len(warnings) == 0 {
		return
	}
	b.WriteString("\n⚠️ <b>Data caveats</b>\n")
	for _, w := range warnings {
		b.WriteString("  • " + html.EscapeString(w) + "\n")
	}
}

// FormatStatus formats the last-run summary of every watched symbol.
func FormatStatus(state *model.WatchState) string {
	var b strings.Builder
	b.WriteString("📦 <b>Watchlist status</b>\n\n")
	if state == nil || len(state.Symbols) == 0 {
		b.WriteString("No analysis has run yet.\n")
		return b.String()
	}

	symbols := make([]string, 0, len(state.Symbols))
	for s := range state.Symbols {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	for _, s := range symbols {
		st := state.Symbols[s]
		if st.Insufficient {
			b.WriteString(fmt.Sprintf("%s %s: insufficient data", model.TierInsufficient.Symbol, html.EscapeString(s)))
		} else {
			tier := strategy.ClassifyPct(st.MeanPriceChangePct)
			b.WriteString(fmt.Sprintf("%s %s: %s over %d awards", tier.Symbol, html.EscapeString(s), pct(st.MeanPriceChangePct), st.Events))
		}
		if !st.LastRunAt.IsZero() {
			b.WriteString(" (" + humanize.Time(st.LastRunAt) + ")")
		}
		if st.ConsecutiveFailures > 0 {
			b.WriteString(fmt.Sprintf(" ❌×%d", st.ConsecutiveFailures))
		}
		b.WriteString("\n")
	}
	b.WriteString(fmt.Sprintf("\nUpdated: %s\n", state.UpdatedAt.Format("2006-01-02 15:04")))
	return b.String()
}

// WatchItem is one symbol/recipient pair shown by FormatWatchlist.
type WatchItem struct {
	Symbol    string
	Recipient string
}

// FormatWatchlist lists the configured symbols and the next scheduled run.
func FormatWatchlist(items []WatchItem, next time.Time) string {
	var b strings.Builder
	b.WriteString("👀 <b>Watchlist</b>\n\n")
	if len(items) == 0 {
		b.WriteString("Empty.\n")
	}
	for _, it := range items {
		b.WriteString(fmt.Sprintf("  %s: %s\n", html.EscapeString(it.Symbol), html.EscapeString(it.Recipient)))
	}
	if !next.IsZero() {
		b.WriteString(fmt.Sprintf("\nNext run: %s\n", next.Format("2006-01-02 15:04")))
	}
	return b.String()
}

// FormatHistory lists recorded runs for one symbol, newest first.
func FormatHistory(symbol string, runs []recorder.RunSummary) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🗂 <b>History</b> | %s\n\n", html.EscapeString(symbol)))
	if len(runs) == 0 {
		b.WriteString("No recorded runs.\n")
		return b.String()
	}
	for _, r := range runs {
		when := r.StartedAt.Format("2006-01-02 15:04")
		if r.Insufficient {
			b.WriteString(fmt.Sprintf("  %s: insufficient data\n", when))
			continue
		}
		b.WriteString(fmt.Sprintf("  %s: %s price, %s volume (%d awards, %d measured)\n",
			when, pct(r.MeanPriceChangePct), pct(r.MeanVolumeChangePct), r.Events, r.ValidPriceCount))
	}
	return b.String()
}

var tagStripper = strings.NewReplacer("<b>", "", "</b>", "", "<i>", "", "</i>", "")

// PlainText converts a formatted message for terminal output.
func PlainText(msg string) string {
	return html.UnescapeString(tagStripper.Replace(msg))
}
