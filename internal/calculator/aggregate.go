package calculator

import (
	"sync"

	"github.com/guregu/null/v6"

	"ContractPulse/internal/model"
)

// Aggregate evaluates every event against s and summarises the results.
// PerEvent follows the input order exactly, duplicates included. An event
// whose windows cannot be formed contributes undefined fields and is left out
// of the summary means, which are themselves undefined when no event has a
// defined value. The function has no side effects; repeated calls on the same
// input give identical reports.
func Aggregate(s *Store, events model.EventSet, p Params) *model.AggregateReport {
	results := make([]model.ImpactResult, len(events))

	if p.Workers > 1 && len(events) > 1 {
		var wg sync.WaitGroup
		sem := make(chan struct{}, p.Workers)
		for i := range events {
			wg.Add(1)
			sem <- struct{}{}
			go func(i int) {
				defer wg.Done()
				defer func() { <-sem }()
				results[i] = Analyze(s, events[i], p)
			}(i)
		}
		wg.Wait()
	} else {
		for i, ev := range events {
			results[i] = Analyze(s, ev, p)
		}
	}

	report := &model.AggregateReport{PerEvent: results}
	report.MeanPriceChangePct, report.ValidPriceCount = meanDefined(results, func(r model.ImpactResult) null.Float {
		return r.PriceChangePct
	})
	report.MeanVolumeChangePct, report.ValidVolumeCount = meanDefined(results, func(r model.ImpactResult) null.Float {
		return r.VolumeChangePct
	})
	return report
}

// meanDefined averages the defined values picked from results, in index order.
func meanDefined(results []model.ImpactResult, pick func(model.ImpactResult) null.Float) (null.Float, int) {
	var sum float64
	var n int
	for _, r := range results {
		v := pick(r)
		if !v.Valid {
			continue
		}
		sum += v.Float64
		n++
	}
	if n == 0 {
		return null.Float{}, 0
	}
	return null.FloatFrom(sum / float64(n)), n
}
