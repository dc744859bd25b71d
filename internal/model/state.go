package model

import (
	"time"

	"github.com/guregu/null/v6"
)

// SymbolState is the last known analysis summary for one watched symbol.
type SymbolState struct {
	Symbol              string     `json:"symbol"`
	Recipient           string     `json:"recipient"`
	LastRunID           string     `json:"last_run_id"`
	LastRunAt           time.Time  `json:"last_run_at"`
	Events              int        `json:"events"`
	MeanPriceChangePct  null.Float `json:"mean_price_change_pct"`
	MeanVolumeChangePct null.Float `json:"mean_volume_change_pct"`
	Insufficient        bool       `json:"insufficient"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
}

// WatchState is the persisted state of every watched symbol.
type WatchState struct {
	Symbols   map[string]*SymbolState `json:"symbols"`
	UpdatedAt time.Time               `json:"updated_at"`
}
