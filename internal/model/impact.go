package model

import (
	"time"

	"github.com/guregu/null/v6"
)

// Sample is one row of the time series store.
type Sample struct {
	Date   time.Time `json:"date"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Span identifies which side of the anchor a window covers.
type Span string

const (
	SpanPre  Span = "pre"
	SpanPost Span = "post"
)

// Window is a derived, non-owning view over the store relative to an anchor date.
type Window struct {
	AnchorDate time.Time
	Span       Span
	Samples    []Sample
}

// Empty reports whether no samples fell inside the window.
func (w Window) Empty() bool { return len(w.Samples) == 0 }

// ImpactResult holds one event's pre/post statistics. Every numeric field is
// null when it could not be measured; null is never the same as zero.
type ImpactResult struct {
	Event           Event      `json:"event"`
	PreAvgPrice     null.Float `json:"pre_avg_price"`
	PostAvgPrice    null.Float `json:"post_avg_price"`
	PriceChangePct  null.Float `json:"price_change_pct"`
	PreAvgVolume    null.Float `json:"pre_avg_volume"`
	PostAvgVolume   null.Float `json:"post_avg_volume"`
	VolumeChangePct null.Float `json:"volume_change_pct"`
	PreSamples      int        `json:"pre_samples"`
	PostSamples     int        `json:"post_samples"`
}

// Measured reports whether at least one window produced data.
func (r ImpactResult) Measured() bool {
	return r.PreSamples > 0 || r.PostSamples > 0
}

// AggregateReport is the engine output for one symbol and event set.
type AggregateReport struct {
	PerEvent            []ImpactResult `json:"per_event"`
	MeanPriceChangePct  null.Float     `json:"mean_price_change_pct"`
	MeanVolumeChangePct null.Float     `json:"mean_volume_change_pct"`
	ValidPriceCount     int            `json:"valid_price_count"`
	ValidVolumeCount    int            `json:"valid_volume_count"`
}
