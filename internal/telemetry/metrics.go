package telemetry

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/pocketomega/pocket-flow/pkg/core"
)

// Metrics is a core.Observer that records engine activity as Prometheus metrics.
type Metrics struct {
	core.NopObserver

	nodeVisits   *prometheus.CounterVec
	nodeDuration *prometheus.HistogramVec
	retries      *prometheus.CounterVec
	fallbacks    *prometheus.CounterVec
	diagnostics  *prometheus.CounterVec
}

// NewMetrics registers the engine metrics on reg (prometheus.DefaultRegisterer when nil).
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		nodeVisits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "node_visits_total",
				Help:      "Total number of node visits by outcome",
			},
			[]string{"node", "status"},
		),
		nodeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "node_duration_seconds",
				Help:      "Duration of a node visit (prep, exec with retries, post) in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"node"},
		),
		retries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "exec_retries_total",
				Help:      "Total number of failed exec attempts that were retried",
			},
			[]string{"node"},
		),
		fallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "exec_fallbacks_total",
				Help:      "Total number of exec failures handed to the fallback",
			},
			[]string{"node"},
		),
		diagnostics: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "diagnostics_total",
				Help:      "Total number of non-fatal wiring diagnostics",
			},
			[]string{"kind"},
		),
	}
}

func (m *Metrics) NodeFinished(_ context.Context, ev core.NodeEvent) {
	status := "ok"
	if ev.Err != nil {
		status = "error"
	}
	m.nodeVisits.WithLabelValues(ev.Node, status).Inc()
	m.nodeDuration.WithLabelValues(ev.Node).Observe(ev.Duration.Seconds())
}

func (m *Metrics) RetryScheduled(_ context.Context, ev core.RetryEvent) {
	m.retries.WithLabelValues(ev.Node).Inc()
}

func (m *Metrics) FallbackInvoked(_ context.Context, ev core.RetryEvent) {
	m.fallbacks.WithLabelValues(ev.Node).Inc()
}

func (m *Metrics) Diagnostic(_ context.Context, d core.Diagnostic) {
	m.diagnostics.WithLabelValues(string(d.Kind)).Inc()
}
