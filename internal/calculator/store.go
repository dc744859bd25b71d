package calculator

import (
	"math"
	"sort"
	"time"

	"ContractPulse/internal/model"
)

// Store is the ordered, de-duplicated daily series for one symbol. It is
// immutable once built; a refresh builds a new Store.
type Store struct {
	symbol  string
	samples []model.Sample
}

// NewStore converts raw provider bars into samples sorted ascending and unique
// by calendar day. Bars with a zero time, a negative or non-finite close, or a
// negative, non-finite or int64-overflowing volume are dropped. When several bars share a day the
// last one in input order wins. An empty or nil input yields an empty store.
func NewStore(symbol string, bars []model.OHLCV) *Store {
	samples := make([]model.Sample, 0, len(bars))
	for _, b := range bars {
		if b.Time.IsZero() || !validNumber(b.Close) || !validVolume(b.Volume) {
			continue
		}
		samples = append(samples, model.Sample{
			Date:   model.Day(b.Time),
			Close:  b.Close,
			Volume: int64(math.Round(b.Volume)),
		})
	}
	return NewStoreFromSamples(symbol, samples)
}

// NewStoreFromSamples normalises already-shaped samples with the same rules as NewStore.
func NewStoreFromSamples(symbol string, samples []model.Sample) *Store {
	in := make([]model.Sample, 0, len(samples))
	for _, s := range samples {
		if s.Date.IsZero() || !validNumber(s.Close) || s.Volume < 0 {
			continue
		}
		s.Date = model.Day(s.Date)
		in = append(in, s)
	}
	sort.SliceStable(in, func(i, j int) bool { return in[i].Date.Before(in[j].Date) })

	out := in[:0]
	for _, s := range in {
		if n := len(out); n > 0 && out[n-1].Date.Equal(s.Date) {
			out[n-1] = s
			continue
		}
		out = append(out, s)
	}
	return &Store{symbol: symbol, samples: out}
}

func validNumber(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// maxVolume is 2^63, the first float64 that does not fit in an int64.
const maxVolume = float64(math.MaxInt64)

func validVolume(v float64) bool {
	return validNumber(v) && math.Round(v) < maxVolume
}

// Symbol returns the ticker the store was built for.
func (s *Store) Symbol() string { return s.symbol }

// Len returns the number of samples.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.samples)
}

// Empty reports whether the store holds no samples. Callers treat an empty
// store as "no analysis possible for this symbol".
func (s *Store) Empty() bool { return s.Len() == 0 }

// Samples returns a copy of the series.
func (s *Store) Samples() []model.Sample {
	if s.Empty() {
		return nil
	}
	out := make([]model.Sample, len(s.samples))
	copy(out, s.samples)
	return out
}

// Coverage returns the first and last sample dates. ok is false for an empty store.
func (s *Store) Coverage() (first, last time.Time, ok bool) {
	if s.Empty() {
		return time.Time{}, time.Time{}, false
	}
	return s.samples[0].Date, s.samples[len(s.samples)-1].Date, true
}

// Covers reports whether day lies within [first, last].
func (s *Store) Covers(day time.Time) bool {
	first, last, ok := s.Coverage()
	if !ok {
		return false
	}
	d := model.Day(day)
	return !d.Before(first) && !d.After(last)
}

// search returns the index of the first sample dated on or after day.
func (s *Store) search(day time.Time) int {
	return sort.Search(len(s.samples), func(i int) bool {
		return !s.samples[i].Date.Before(day)
	})
}

// slice returns a capacity-limited view so appends by a caller cannot
// overwrite neighbouring samples.
func (s *Store) slice(lo, hi int) []model.Sample {
	if lo >= hi {
		return nil
	}
	return s.samples[lo:hi:hi]
}
