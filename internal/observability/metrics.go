package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gitk_sync"

const (
	ResultOK       = "ok"
	ResultError    = "error"
	ResultCanceled = "canceled"
)

// Metrics are the refresh coordinator collectors.
type Metrics struct {
	Cycles    *prometheus.CounterVec
	Duration  *prometheus.HistogramVec
	Coalesced *prometheus.CounterVec
	Warnings  *prometheus.CounterVec
	Commits   *prometheus.GaugeVec
	Refs      *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with reg when not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_cycles_total",
			Help:      "Refresh cycles by root and result.",
		}, []string{"root", "result"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Duration of refresh cycles.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"root"}),
		Coalesced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_coalesced_total",
			Help:      "Refresh requests merged into an already pending one.",
		}, []string{"root"}),
		Warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consistency_warnings_total",
			Help:      "Published snapshots with graph heads not covered by refs.",
		}, []string{"root"}),
		Commits: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "published_commits",
			Help:      "Commits in the published snapshot.",
		}, []string{"root"}),
		Refs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "published_refs",
			Help:      "Refs in the published snapshot.",
		}, []string{"root"}),
	}
	if reg != nil {
		reg.MustRegister(m.Cycles, m.Duration, m.Coalesced, m.Warnings, m.Commits, m.Refs)
	}
	return m
}

// ObserveCycle records a finished cycle. m may be nil.
func (m *Metrics) ObserveCycle(root, result string, took time.Duration) {
	if m == nil {
		return
	}
	m.Cycles.WithLabelValues(root, result).Inc()
	m.Duration.WithLabelValues(root).Observe(took.Seconds())
}

func (m *Metrics) ObservePublish(root string, commits, refs int, inconsistent bool) {
	if m == nil {
		return
	}
	m.Commits.WithLabelValues(root).Set(float64(commits))
	m.Refs.WithLabelValues(root).Set(float64(refs))
	if inconsistent {
		m.Warnings.WithLabelValues(root).Inc()
	}
}

func (m *Metrics) ObserveCoalesced(root string) {
	if m == nil {
		return
	}
	m.Coalesced.WithLabelValues(root).Inc()
}

// Handler serves the metrics of gatherer in the prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
