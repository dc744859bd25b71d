package model

import (
	"strings"
	"time"

	"github.com/guregu/null/v6"
)

// Event is a dated federal contract award.
type Event struct {
	Date    time.Time  `json:"date"`
	Label   string     `json:"label"`
	Amount  null.Float `json:"amount"`
	AwardID string     `json:"award_id,omitempty"`
	Agency  string     `json:"agency,omitempty"`
}

// RawEvent is an award record as delivered by an upstream source, before
// its date has been validated.
type RawEvent struct {
	Date    string
	Label   string
	Amount  null.Float
	AwardID string
	Agency  string
}

// EventSet is an ordered collection of events. Multiple events may share a date.
type EventSet []Event

// NewEventSet parses raw records in order. Records whose date is missing or
// unparseable are skipped; the number skipped is returned.
func NewEventSet(records []RawEvent) (EventSet, int) {
	set := make(EventSet, 0, len(records))
	skipped := 0
	for _, r := range records {
		d, ok := ParseDate(r.Date)
		if !ok {
			skipped++
			continue
		}
		amount := r.Amount
		if amount.Valid && amount.Float64 < 0 {
			amount = null.Float{}
		}
		set = append(set, Event{
			Date:    d,
			Label:   strings.TrimSpace(r.Label),
			Amount:  amount,
			AwardID: r.AwardID,
			Agency:  r.Agency,
		})
	}
	return set, skipped
}

var dateLayouts = []string{
	DateLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"01/02/2006",
}

// ParseDate accepts the date layouts seen across upstream sources and returns
// the calendar day.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Day(t), true
		}
	}
	return time.Time{}, false
}
