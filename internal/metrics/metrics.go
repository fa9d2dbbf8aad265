// Package metrics exposes Prometheus collectors for the dashboard.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mamadbah2/partsdesk/internal/domain/models"
)

const namespace = "partsdesk"

// Metrics satisfies both the mutation queue observer and the store recorder.
type Metrics struct {
	registry   *prometheus.Registry
	mutations  *prometheus.CounterVec
	lists      *prometheus.CounterVec
	queueDepth prometheus.Gauge
	queueWait  prometheus.Histogram
	jobRun     prometheus.Histogram
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Inventory mutations by operation and outcome.",
		}, []string{"op", "outcome"}),
		lists: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "list_requests_total",
			Help:      "Item list requests by outcome.",
		}, []string{"outcome"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mutation_queue_depth",
			Help:      "Mutations queued or running across all lanes.",
		}),
		queueWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "mutation_queue_wait_seconds",
			Help:      "Time a mutation waited behind its lane.",
			Buckets:   prometheus.DefBuckets,
		}),
		jobRun: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "mutation_run_seconds",
			Help:      "Time spent executing a mutation, relist included.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	m.registry.MustRegister(
		m.mutations,
		m.lists,
		m.queueDepth,
		m.queueWait,
		m.jobRun,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveMutation counts one store mutation.
func (m *Metrics) ObserveMutation(op string, err error) {
	m.mutations.WithLabelValues(op, Outcome(err)).Inc()
}

// ObserveList counts one list request.
func (m *Metrics) ObserveList(err error) {
	m.lists.WithLabelValues(Outcome(err)).Inc()
}

// JobFinished records queue timings.
func (m *Metrics) JobFinished(wait, run time.Duration, _ error) {
	m.queueWait.Observe(wait.Seconds())
	m.jobRun.Observe(run.Seconds())
}

// QueueDepth sets the pending gauge.
func (m *Metrics) QueueDepth(pending int) {
	m.queueDepth.Set(float64(pending))
}

// Outcome maps an error onto a low-cardinality label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, models.ErrValidation):
		return "validation"
	case errors.Is(err, models.ErrConflict):
		return "conflict"
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	case errors.Is(err, models.ErrNotConfirmed):
		return "not_confirmed"
	case errors.Is(err, models.ErrNetwork):
		return "network"
	case errors.Is(err, models.ErrServer):
		return "server"
	default:
		return "error"
	}
}
