package narrator

import (
	"context"
	"fmt"
	"strings"

	"ContractPulse/internal/model"
	"ContractPulse/internal/strategy"
)

// OfflineNarrator produces a fixed-template summary without any network call.
type OfflineNarrator struct {
	TopN int
}

func NewOfflineNarrator(topN int) *OfflineNarrator {
	return &OfflineNarrator{TopN: topN}
}

func (o *OfflineNarrator) Name() string { return "offline" }

func (o *OfflineNarrator) Narrate(_ context.Context, a *model.Analysis) (string, error) {
	if a == nil {
		return "", fmt.Errorf("offline: nil analysis")
	}
	if a.Insufficient() {
		return fmt.Sprintf("Insufficient data for analysis of %s (%s).", a.Symbol, a.Recipient), nil
	}

	r := a.Report
	as := strategy.Assess(r)
	var b strings.Builder
	fmt.Fprintf(&b, "Across %d contract awards to %s, %s moved %s on average in the %d days after each award compared with the %d days before",
		len(r.PerEvent), a.Recipient, a.Symbol, pct(r.MeanPriceChangePct), a.PostDays, a.PreDays)
	if r.MeanPriceChangePct.Valid {
		fmt.Fprintf(&b, " (%s)", as.Tier.Label)
	}
	b.WriteString(". ")
	fmt.Fprintf(&b, "Trading volume changed %s on average. ", pct(r.MeanVolumeChangePct))
	fmt.Fprintf(&b, "%d awards were followed by a rise, %d by a decline and %d by little change", as.Up, as.Down, as.Flat)
	if as.Undefined > 0 {
		fmt.Fprintf(&b, "; %d could not be measured", as.Undefined)
	}
	b.WriteString(".")

	if top := strategy.TopN(r, 1); len(top) == 1 {
		e := top[0]
		fmt.Fprintf(&b, " The largest move followed the %s award \"%s\" (%s).",
			e.Event.Date.Format(model.DateLayout), e.Event.Label, pct(e.PriceChangePct))
	}
	if len(a.Trades) > 0 {
		fmt.Fprintf(&b, " %d congressional trades in %s were disclosed near award dates.", len(a.Trades), a.Symbol)
	}
	return b.String(), nil
}
