// Package metrics exposes Prometheus metrics for analysis runs and the
// upstream sources they depend on.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ContractPulse/internal/model"
)

// Analysis outcomes.
const (
	OutcomeOK           = "ok"
	OutcomeInsufficient = "insufficient"
	OutcomeError        = "error"
)

// Manager owns the metric collectors. A nil *Manager is valid and records nothing.
type Manager struct {
	namespace string
	registry  *prometheus.Registry

	analyses        *prometheus.CounterVec
	eventsAnalysed  prometheus.Counter
	eventsSkipped   prometheus.Counter
	undefinedFields *prometheus.CounterVec
	upstreamErrors  *prometheus.CounterVec
	fetchLatency    *prometheus.HistogramVec
	lastMeanPrice   *prometheus.GaugeVec
}

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithRegistry registers metrics on r instead of a fresh registry.
func WithRegistry(r *prometheus.Registry) Option {
	return func(m *Manager) {
		if r != nil {
			m.registry = r
		}
	}
}

// NewManager creates and registers all collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{namespace: "contractpulse"}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}

	auto := promauto.With(m.registry)
	m.analyses = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "analyses_total",
		Help:      "Analysis runs by outcome",
	}, []string{"outcome"})
	m.eventsAnalysed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "events_analysed_total",
		Help:      "Contract events evaluated by the impact engine",
	})
	m.eventsSkipped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "events_skipped_total",
		Help:      "Award records dropped for a missing or malformed date",
	})
	m.undefinedFields = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "impact_undefined_fields_total",
		Help:      "Per-event impact fields that could not be measured",
	}, []string{"field"})
	m.upstreamErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "upstream_errors_total",
		Help:      "Failed calls to upstream data sources",
	}, []string{"source"})
	m.fetchLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "upstream_fetch_seconds",
		Help:      "Latency of upstream data source calls",
		Buckets:   prometheus.DefBuckets,
	}, []string{"source"})
	m.lastMeanPrice = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "mean_price_change_pct",
		Help:      "Mean post-award price change of the latest run per symbol",
	}, []string{"symbol"})
	return m
}

// Registry returns the underlying registry.
func (m *Manager) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveFetch records one upstream call and its outcome.
func (m *Manager) ObserveFetch(source string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.fetchLatency.WithLabelValues(source).Observe(time.Since(started).Seconds())
	if err != nil {
		m.upstreamErrors.WithLabelValues(source).Inc()
	}
}

// RecordAnalysis counts a finished analysis and its per-event results.
func (m *Manager) RecordAnalysis(a *model.Analysis) {
	if m == nil || a == nil {
		return
	}
	switch {
	case a.Insufficient():
		m.analyses.WithLabelValues(OutcomeInsufficient).Inc()
	default:
		m.analyses.WithLabelValues(OutcomeOK).Inc()
	}
	m.eventsSkipped.Add(float64(a.Skipped))
	if a.Report == nil {
		return
	}
	m.eventsAnalysed.Add(float64(len(a.Report.PerEvent)))
	for _, r := range a.Report.PerEvent {
		if !r.PriceChangePct.Valid {
			m.undefinedFields.WithLabelValues("price_change_pct").Inc()
		}
		if !r.VolumeChangePct.Valid {
			m.undefinedFields.WithLabelValues("volume_change_pct").Inc()
		}
	}
	if a.Report.MeanPriceChangePct.Valid {
		m.lastMeanPrice.WithLabelValues(a.Symbol).Set(a.Report.MeanPriceChangePct.Float64)
	} else {
		m.lastMeanPrice.DeleteLabelValues(a.Symbol)
	}
}

// RecordFailure counts an analysis that aborted with an error.
func (m *Manager) RecordFailure() {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(OutcomeError).Inc()
}
