package narrator

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/guregu/null/v6"

	"ContractPulse/internal/housetrades"
	"ContractPulse/internal/model"
	"ContractPulse/internal/strategy"
	"ContractPulse/internal/tiingo"
)

// SystemPrompt frames the model's role.
const SystemPrompt = `You are a financial analyst reviewing how a listed company's stock behaved around the dates it was awarded federal contracts.
Use only the figures provided. Values marked n/a could not be measured and must not be treated as zero.
Write three short paragraphs: overall pattern, notable individual awards, caveats.`

func pct(v null.Float) string {
	if !v.Valid {
		return "n/a"
	}
	return fmt.Sprintf("%+.2f%%", v.Float64)
}

const maxSentimentDays = 10

func avg(v null.Float) string {
	if !v.Valid {
		return "n/a"
	}
	return humanize.CommafWithDigits(v.Float64, 1)
}

func money(v null.Float) string {
	if !v.Valid {
		return "n/a"
	}
	return "$" + humanize.CommafWithDigits(v.Float64, 0)
}

// BuildPrompt renders the analysis as plain text for a language model.
func BuildPrompt(a *model.Analysis, topN int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Company: %s (%s)\n", a.Recipient, a.Symbol)
	fmt.Fprintf(&b, "Award period: %s\n", a.Range)
	fmt.Fprintf(&b, "Windows: %d days before, %d days after each award (%s)\n", a.PreDays, a.PostDays, a.Policy)

	if a.Insufficient() {
		b.WriteString("\nThere is insufficient data for analysis: ")
		switch {
		case a.Events == 0:
			b.WriteString("no contract awards were found.\n")
		default:
			b.WriteString("no price history was available.\n")
		}
		writeWarnings(&b, a.Warnings)
		return b.String()
	}

	r := a.Report
	as := strategy.Assess(r)
	b.WriteString("\nSummary\n")
	fmt.Fprintf(&b, "- Awards analysed: %d (%d with measurable price change)\n", len(r.PerEvent), r.ValidPriceCount)
	fmt.Fprintf(&b, "- Mean price change: %s (%s)\n", pct(r.MeanPriceChangePct), as.Tier.Label)
	fmt.Fprintf(&b, "- Mean volume change: %s\n", pct(r.MeanVolumeChangePct))
	fmt.Fprintf(&b, "- Direction: %d up, %d down, %d flat, %d unmeasured\n", as.Up, as.Down, as.Flat, as.Undefined)
	if as.NoPrices > 0 {
		fmt.Fprintf(&b, "- Awards outside the price history: %d\n", as.NoPrices)
	}

	if top := strategy.TopN(r, topN); len(top) > 0 {
		b.WriteString("\nLargest moves\n")
		for _, e := range top {
			fmt.Fprintf(&b, "- %s %s (%s, %s): price %s, volume %s\n",
				e.Event.Date.Format(model.DateLayout), e.Event.Label, money(e.Event.Amount),
				strategy.Classify(e).Label, pct(e.PriceChangePct), pct(e.VolumeChangePct))
		}
	}

	if len(a.Trades) > 0 {
		b.WriteString("\nCongressional trades near award dates\n")
		for _, t := range a.Trades {
			fmt.Fprintf(&b, "- %s %s %s %s (%s)\n", t.Date.Format(model.DateLayout), t.Trader, t.Action, t.Ticker, housetrades.FormatAmount(t))
		}
	}

	if len(a.News) > 0 {
		b.WriteString("\nHeadlines\n")
		if st := tiingo.Stats(a.News); st != nil {
			fmt.Fprintf(&b, "- coverage: %d articles from %d sources, %s to %s\n", st.Total, st.UniqueSources, st.From, st.To)
			if len(st.TopTags) > 0 {
				tags := make([]string, 0, 5)
				for i, c := range st.TopTags {
					if i == 5 {
						break
					}
					tags = append(tags, fmt.Sprintf("%s (%d)", c.Name, c.N))
				}
				fmt.Fprintf(&b, "- frequent tags: %s\n", strings.Join(tags, ", "))
			}
			if st.MeanSentiment.Valid {
				fmt.Fprintf(&b, "- sentiment: mean %+.2f over %d scored articles (VADER compound, -1 to 1)\n", st.MeanSentiment.Float64, st.Scored)
				days := st.DailySentiment
				if len(days) > maxSentimentDays {
					days = days[len(days)-maxSentimentDays:]
				}
				if len(days) > 0 {
					parts := make([]string, 0, len(days))
					for _, d := range days {
						parts = append(parts, fmt.Sprintf("%s %+.2f", d.Date, d.Mean))
					}
					fmt.Fprintf(&b, "- daily sentiment: %s\n", strings.Join(parts, ", "))
				}
			}
		}
		for _, n := range a.News {
			if n.Sentiment.Valid {
				fmt.Fprintf(&b, "- %s %s [sentiment %+.2f]\n", n.PublishedDate, n.Title, n.Sentiment.Float64)
				continue
			}
			fmt.Fprintf(&b, "- %s %s\n", n.PublishedDate, n.Title)
		}
	}

	if o := a.Options; o != nil {
		fmt.Fprintf(&b, "\nOptions chain today (nearest expiry %s)\n", o.Expiration.Format(model.DateLayout))
		fmt.Fprintf(&b, "- calls: %d contracts, avg volume %s, avg open interest %s\n", o.Calls, avg(o.CallsAvgVolume), avg(o.CallsAvgOpenInterest))
		fmt.Fprintf(&b, "- puts: %d contracts, avg volume %s, avg open interest %s\n", o.Puts, avg(o.PutsAvgVolume), avg(o.PutsAvgOpenInterest))
	}

	writeWarnings(&b, a.Warnings)
	return b.String()
}

func writeWarnings(b *strings.Builder, warnings []string) {
	if len(warnings) == 0 {
		return
	}
	b.WriteString("\nData caveats\n")
	for _, w := range warnings {
		fmt.Fprintf(b, "- %s\n", w)
	}
}
