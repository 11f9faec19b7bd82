// Package metrics exposes Prometheus instruments for placement searches and
// armor allocation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "slic"

// Search outcome label values.
const (
	OutcomeDirect     = "direct"
	OutcomeSolved     = "solved"
	OutcomeInfeasible = "infeasible"
	OutcomeExhausted  = "exhausted"
	OutcomeAborted    = "aborted"
)

// Recorder receives observations from the loadout engine. The zero value of
// Nop discards everything.
type Recorder interface {
	SearchFinished(outcome string, nodes int, seconds float64)
	ArmorDistributed(points int)
}

// Nop is a Recorder that records nothing.
type Nop struct{}

func (Nop) SearchFinished(string, int, float64) {}
func (Nop) ArmorDistributed(int)                {}

// Metrics owns a registry and the instruments registered in it.
type Metrics struct {
	registry *prometheus.Registry

	searches     *prometheus.CounterVec
	searchNodes  prometheus.Histogram
	searchTime   prometheus.Histogram
	armorPoints  prometheus.Histogram
	httpRequests *prometheus.CounterVec
}

// New creates the instruments in a fresh registry together with the Go and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "autoplace",
			Name:      "searches_total",
			Help:      "Placement requests by outcome.",
		}, []string{"outcome"}),
		searchNodes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "autoplace",
			Name:      "nodes_generated",
			Help:      "Search nodes generated per placement request.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 9),
		}),
		searchTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "autoplace",
			Name:      "duration_seconds",
			Help:      "Wall time of placement requests.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
		armorPoints: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "armor",
			Name:      "distributed_points",
			Help:      "Armor points assigned per distribution.",
			Buckets:   prometheus.LinearBuckets(0, 100, 8),
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.searches,
		m.searchNodes,
		m.searchTime,
		m.armorPoints,
		m.httpRequests,
	)
	return m
}

func (m *Metrics) SearchFinished(outcome string, nodes int, seconds float64) {
	m.searches.WithLabelValues(outcome).Inc()
	m.searchNodes.Observe(float64(nodes))
	m.searchTime.Observe(seconds)
}

func (m *Metrics) ArmorDistributed(points int) {
	m.armorPoints.Observe(float64(points))
}

// Instrument counts requests served by next under the given route label.
func (m *Metrics) Instrument(route string, next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerCounter(m.httpRequests.MustCurryWith(prometheus.Labels{"route": route}), next)
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
