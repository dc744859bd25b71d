package model

import (
	"time"

	"github.com/guregu/null/v6"
)

// OptionsSummary condenses the nearest-expiry options chain as listed at fetch
// time. Averages skip contracts that report no value and are undefined when
// none do.
type OptionsSummary struct {
	Expiration           time.Time  `json:"expiration"`
	Calls                int        `json:"calls"`
	Puts                 int        `json:"puts"`
	CallsAvgVolume       null.Float `json:"calls_avg_volume"`
	PutsAvgVolume        null.Float `json:"puts_avg_volume"`
	CallsAvgOpenInterest null.Float `json:"calls_avg_open_interest"`
	PutsAvgOpenInterest  null.Float `json:"puts_avg_open_interest"`
}
