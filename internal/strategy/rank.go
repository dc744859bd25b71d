package strategy

import (
	"math"
	"sort"

	"ContractPulse/internal/model"
)

// TopN returns up to n events with a defined price change, largest absolute
// change first. Ties keep report order. The report itself is not modified.
func TopN(report *model.AggregateReport, n int) []model.ImpactResult {
	if report == nil || n <= 0 {
		return nil
	}
	out := make([]model.ImpactResult, 0, len(report.PerEvent))
	for _, r := range report.PerEvent {
		if r.PriceChangePct.Valid {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return math.Abs(out[i].PriceChangePct.Float64) > math.Abs(out[j].PriceChangePct.Float64)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
