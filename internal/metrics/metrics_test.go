package metrics

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ContractPulse/internal/model"
)

func TestNilManagerIsSafe(t *testing.T) {
	var m *Manager
	m.ObserveFetch("tiingo", time.Now(), errors.New("x"))
	m.RecordAnalysis(&model.Analysis{})
	m.RecordFailure()
	assert.Nil(t, m.Registry())
}

func TestRecordAnalysis(t *testing.T) {
	m := NewManager()
	m.RecordAnalysis(&model.Analysis{
		Symbol:  "LMT",
		Samples: 10,
		Events:  2,
		Skipped: 1,
		Report: &model.AggregateReport{
			PerEvent: []model.ImpactResult{
				{PriceChangePct: null.FloatFrom(4), VolumeChangePct: null.FloatFrom(1)},
				{},
			},
			MeanPriceChangePct: null.FloatFrom(4),
		},
	})
	m.RecordAnalysis(&model.Analysis{Symbol: "RTX"})
	m.RecordFailure()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.analyses.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.analyses.WithLabelValues(OutcomeInsufficient)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.analyses.WithLabelValues(OutcomeError)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.eventsAnalysed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsSkipped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.undefinedFields.WithLabelValues("price_change_pct")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.lastMeanPrice.WithLabelValues("LMT")))
}

func TestObserveFetchAndHandler(t *testing.T) {
	m := NewManager(WithNamespace("test"))
	m.ObserveFetch("usaspending", time.Now(), nil)
	m.ObserveFetch("usaspending", time.Now(), errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.upstreamErrors.WithLabelValues("usaspending")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_upstream_fetch_seconds")
}
