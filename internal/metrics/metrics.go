// Package metrics holds the prometheus collectors for gridlink. Each Metrics
// owns its own registry so independent instances never collide.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gridlink"

type Metrics struct {
	Registry *prometheus.Registry

	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	recorded prometheus.Counter
	reported prometheus.Counter
	failures prometheus.Counter
	enrolled prometheus.Gauge
	pending  prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "directory",
			Name:      "requests_total",
			Help:      "Directory requests by status code and method.",
		}, []string{"code", "method"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "directory",
			Name:      "request_duration_seconds",
			Help:      "Directory request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		recorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "sightings_recorded_total",
			Help:      "Access point sightings written to the journal.",
		}),
		reported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reporter",
			Name:      "sightings_reported_total",
			Help:      "Sightings accepted by the directory.",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reporter",
			Name:      "flush_failures_total",
			Help:      "Report flushes that failed.",
		}),
		enrolled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "enrolled",
			Help:      "1 while the unit holds a session token.",
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "pending_sightings",
			Help:      "Sightings waiting to be reported.",
		}),
	}
	m.Registry.MustRegister(
		m.requests, m.latency, m.recorded, m.reported, m.failures, m.enrolled, m.pending,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// InstrumentClient wraps the client's transport so every directory call is
// counted and timed. The client is modified in place and returned.
func (m *Metrics) InstrumentClient(hc *http.Client) *http.Client {
	base := hc.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	hc.Transport = promhttp.InstrumentRoundTripperCounter(m.requests,
		promhttp.InstrumentRoundTripperDuration(m.latency, base))
	return hc
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// The helpers below are nil-safe so components can run without metrics.

func (m *Metrics) SightingRecorded() {
	if m != nil {
		m.recorded.Inc()
	}
}

func (m *Metrics) SightingsReported(n int) {
	if m != nil {
		m.reported.Add(float64(n))
	}
}

func (m *Metrics) FlushFailed() {
	if m != nil {
		m.failures.Inc()
	}
}

func (m *Metrics) SetPending(n int) {
	if m != nil {
		m.pending.Set(float64(n))
	}
}

func (m *Metrics) SetEnrolled(enrolled bool) {
	if m == nil {
		return
	}
	if enrolled {
		m.enrolled.Set(1)
	} else {
		m.enrolled.Set(0)
	}
}
