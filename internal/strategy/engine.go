package strategy

import (
	"github.com/guregu/null/v6"

	"ContractPulse/internal/model"
)

// Tiers maps a price change percentage to a label, highest threshold first.
var Tiers = []struct {
	MinPct float64
	Tier   model.ImpactTier
}{
	{10, model.ImpactTier{Label: "strong rally", Symbol: "⏫"}},
	{3, model.ImpactTier{Label: "rally", Symbol: "🔼"}},
	{-3, model.ImpactTier{Label: "flat", Symbol: "⏺"}},
	{-10, model.ImpactTier{Label: "decline", Symbol: "🔽"}},
}

// DefaultTier is used for changes of -10% or worse.
var DefaultTier = model.ImpactTier{Label: "strong decline", Symbol: "⏬"}

// mapTier maps a defined percentage to a tier. The flat and decline bands
// exclude their lower bound.
func mapTier(pct float64) model.ImpactTier {
	for i, t := range Tiers {
		inclusive := i < 2
		if (inclusive && pct >= t.MinPct) || (!inclusive && pct > t.MinPct) {
			return t.Tier
		}
	}
	return DefaultTier
}

// ClassifyPct labels a percentage change; undefined is "insufficient data".
func ClassifyPct(pct null.Float) model.ImpactTier {
	if !pct.Valid {
		return model.TierInsufficient
	}
	return mapTier(pct.Float64)
}

// Classify labels one event by its price change.
func Classify(r model.ImpactResult) model.ImpactTier {
	return ClassifyPct(r.PriceChangePct)
}

// Assessment summarises a report for display.
type Assessment struct {
	Tier      model.ImpactTier
	Up        int
	Down      int
	Flat      int
	Undefined int
	// NoPrices counts the undefined events whose windows held no samples at all,
	// typically awards outside the price history.
	NoPrices int
	// Consistency is the share of measured events moving with the mean, in [0,1].
	// Undefined when no event was measured or the mean is flat.
	Consistency null.Float
}

// Assess classifies the report mean and counts per-event directions.
func Assess(report *model.AggregateReport) Assessment {
	if report == nil {
		return Assessment{Tier: model.TierInsufficient}
	}
	a := Assessment{Tier: ClassifyPct(report.MeanPriceChangePct)}
	for _, r := range report.PerEvent {
		switch tier := Classify(r); {
		case tier == model.TierInsufficient:
			a.Undefined++
			if !r.Measured() {
				a.NoPrices++
			}
		case r.PriceChangePct.Float64 >= 3:
			a.Up++
		case r.PriceChangePct.Float64 <= -3:
			a.Down++
		default:
			a.Flat++
		}
	}

	measured := a.Up + a.Down + a.Flat
	if measured == 0 || !report.MeanPriceChangePct.Valid {
		return a
	}
	switch mean := report.MeanPriceChangePct.Float64; {
	case mean >= 3:
		a.Consistency = null.FloatFrom(float64(a.Up) / float64(measured))
	case mean <= -3:
		a.Consistency = null.FloatFrom(float64(a.Down) / float64(measured))
	}
	return a
}
