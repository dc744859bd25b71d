package collector

import (
	"context"
	"time"

	"ContractPulse/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price     float64
	DailyData []model.OHLCV
	Err       error
	Calls     int
}

func (m *MockFetcher) Name() string { return "mock" }

// FetchDailyBars returns DailyData filtered to the range, or generated
// weekday bars when DailyData is nil.
func (m *MockFetcher) FetchDailyBars(_ context.Context, _ string, from, to time.Time) ([]model.OHLCV, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	r := model.DateRange{From: from, To: to}
	if m.DailyData != nil {
		var out []model.OHLCV
		for _, b := range m.DailyData {
			if r.Contains(b.Time) {
				out = append(out, b)
			}
		}
		return out, nil
	}
	return generateMockBars(m.Price, from, to), nil
}

func generateMockBars(basePrice float64, from, to time.Time) []model.OHLCV {
	var bars []model.OHLCV
	i := 0
	for d := model.Day(from); !d.After(model.Day(to)); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		p := basePrice * (1 + float64(i%20-10)*0.001)
		bars = append(bars, model.OHLCV{
			Time:   d,
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		})
		i++
	}
	return bars
}
