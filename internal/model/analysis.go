package model

import "time"

// Analysis is everything gathered for one symbol in one run: the engine
// report plus the context collaborators could provide.
type Analysis struct {
	RunID      string            `json:"run_id"`
	Symbol     string            `json:"symbol"`
	Recipient  string            `json:"recipient"`
	Range      DateRange         `json:"range"`
	PreDays    int               `json:"pre_days"`
	PostDays   int               `json:"post_days"`
	Policy     string            `json:"window_policy"`
	Samples    int               `json:"samples"`
	Events     int               `json:"events"`
	Skipped    int               `json:"skipped_events"`
	Report     *AggregateReport  `json:"report"`
	Trades     []PoliticianTrade `json:"trades,omitempty"`
	News       []Article         `json:"news,omitempty"`
	Options    *OptionsSummary   `json:"options,omitempty"`
	Narrative  string            `json:"narrative,omitempty"`
	Warnings   []string          `json:"warnings,omitempty"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
}

// Insufficient reports whether no analysis was possible: no price data or
// no usable events.
func (a *Analysis) Insufficient() bool {
	return a.Samples == 0 || a.Events == 0 || a.Report == nil
}

// Warn records a non-fatal problem encountered during the run.
func (a *Analysis) Warn(msg string) {
	a.Warnings = append(a.Warnings, msg)
}
