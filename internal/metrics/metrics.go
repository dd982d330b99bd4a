// Package metrics exposes prometheus collectors for the editor and the
// submission pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/diewo77/go-fatura/internal/submit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics implements submit.Observer.
type Metrics struct {
	registry *prometheus.Registry

	submissions *prometheus.CounterVec
	inFlight    prometheus.Gauge
	duration    prometheus.Histogram
	rowActions  *prometheus.CounterVec
}

var _ submit.Observer = (*Metrics)(nil)

// New registers the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fatura",
			Name:      "submissions_total",
			Help:      "Invoice submissions by outcome.",
		}, []string{"outcome"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fatura",
			Name:      "submissions_in_flight",
			Help:      "Submissions currently waiting on the PDF service.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fatura",
			Name:      "submission_duration_seconds",
			Help:      "Time from submit to outcome.",
			Buckets:   prometheus.DefBuckets,
		}),
		rowActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fatura",
			Name:      "row_actions_total",
			Help:      "Editor row actions by kind and result.",
		}, []string{"action", "result"}),
	}
	m.registry.MustRegister(
		m.submissions, m.inFlight, m.duration, m.rowActions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Started marks a submission as waiting on the PDF service.
func (m *Metrics) Started() { m.inFlight.Inc() }

// Finished records the outcome. Latency is observed only for attempts that
// got past collection.
func (m *Metrics) Finished(outcome submit.Outcome, elapsed time.Duration) {
	m.submissions.WithLabelValues(string(outcome)).Inc()
	switch outcome {
	case submit.OutcomeSuccess, submit.OutcomeFailed:
		m.duration.Observe(elapsed.Seconds())
	}
}

// Stopped releases the in-flight slot taken by Started.
func (m *Metrics) Stopped() { m.inFlight.Dec() }

// RowAction counts an editor action ("add", "remove", "recalc").
func (m *Metrics) RowAction(action string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.rowActions.WithLabelValues(action, result).Inc()
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
