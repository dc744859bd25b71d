package calculator

import (
	"github.com/guregu/null/v6"

	"ContractPulse/internal/model"
)

// AveragePrice is the arithmetic mean of closing prices in w. Undefined for an empty window.
func AveragePrice(w model.Window) null.Float {
	if w.Empty() {
		return null.Float{}
	}
	var sum float64
	for _, s := range w.Samples {
		sum += s.Close
	}
	return null.FloatFrom(sum / float64(len(w.Samples)))
}

// AverageVolume is the arithmetic mean of volumes in w. Undefined for an empty window.
func AverageVolume(w model.Window) null.Float {
	if w.Empty() {
		return null.Float{}
	}
	var sum float64
	for _, s := range w.Samples {
		sum += float64(s.Volume)
	}
	return null.FloatFrom(sum / float64(len(w.Samples)))
}

// PercentChange returns (post-pre)/pre*100. It is undefined when either side
// is undefined or pre is exactly zero; it is never substituted with 0.
func PercentChange(pre, post null.Float) null.Float {
	if !pre.Valid || !post.Valid || pre.Float64 == 0 {
		return null.Float{}
	}
	return null.FloatFrom((post.Float64 - pre.Float64) / pre.Float64 * 100)
}

// Calculate produces the impact metrics for one event from its two windows.
// Values are unrounded.
func Calculate(event model.Event, pre, post model.Window) model.ImpactResult {
	r := model.ImpactResult{
		Event:         event,
		PreAvgPrice:   AveragePrice(pre),
		PostAvgPrice:  AveragePrice(post),
		PreAvgVolume:  AverageVolume(pre),
		PostAvgVolume: AverageVolume(post),
		PreSamples:    len(pre.Samples),
		PostSamples:   len(post.Samples),
	}
	r.PriceChangePct = PercentChange(r.PreAvgPrice, r.PostAvgPrice)
	r.VolumeChangePct = PercentChange(r.PreAvgVolume, r.PostAvgVolume)
	return r
}

// Analyze resolves the windows for event against s and calculates its impact.
func Analyze(s *Store, event model.Event, p Params) model.ImpactResult {
	pre, post := Resolve(s, event.Date, p)
	return Calculate(event, pre, post)
}
