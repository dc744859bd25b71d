package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PoliticianTrade is one disclosed trade by a member of Congress.
type PoliticianTrade struct {
	Date      time.Time       `json:"date"`
	Trader    string          `json:"trader"`
	Chamber   string          `json:"chamber"`
	Ticker    string          `json:"ticker"`
	Asset     string          `json:"asset"`
	Action    string          `json:"action"`
	AmountLow decimal.Decimal `json:"amount_low"`
	AmountRaw string          `json:"amount_raw"`
	FilingURL string          `json:"filing_url,omitempty"`
}
