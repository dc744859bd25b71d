package model

import "time"

// OHLCV represents a single daily bar as returned by a market-data provider.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Day truncates t to its calendar day in UTC. All date comparisons in the
// engine are made on values returned by Day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateLayout is the canonical YYYY-MM-DD layout used by every upstream source.
const DateLayout = "2006-01-02"

// DateRange is an inclusive calendar range.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether the day of t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	d := Day(t)
	return !d.Before(Day(r.From)) && !d.After(Day(r.To))
}

func (r DateRange) String() string {
	return r.From.Format(DateLayout) + ".." + r.To.Format(DateLayout)
}
