// Package metrics exposes Prometheus collectors for the jigsaw service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace is used when Collector is created with an empty namespace.
const DefaultNamespace = "jigsaw"

// Collector groups every metric the service records.
// All methods are safe on a nil *Collector and do nothing.
type Collector struct {
	gatherer prometheus.Gatherer

	generations      prometheus.Counter
	homeGroupSize    prometheus.Histogram
	phaseTransitions *prometheus.CounterVec
	resets           prometheus.Counter
	rosterImports    *prometheus.CounterVec

	eventsPublished *prometheus.CounterVec
	handlerDuration *prometheus.HistogramVec

	timerRunning prometheus.Gauge

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates a Collector registered on a fresh registry.
func New(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	return NewWithRegistry(reg, reg, namespace)
}

// NewWithRegistry creates a Collector on the given registerer/gatherer pair.
func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer, namespace string) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	c := &Collector{
		gatherer: gatherer,

		generations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "generations_total",
			Help:      "Total group generation runs.",
		}),
		homeGroupSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "home_group_size",
			Help:      "Size of generated home groups.",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		}),
		phaseTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "phase_transitions_total",
			Help:      "Phase transitions by source and target phase.",
		}, []string{"from", "to"}),
		resets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "resets_total",
			Help:      "Total session resets.",
		}),
		rosterImports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "roster",
			Name:      "imports_total",
			Help:      "Roster imports by outcome.",
		}, []string{"success"}),

		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Events published on the bus by type.",
		}, []string{"type"}),
		handlerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "handler_duration_seconds",
			Help:      "Event handler duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"type", "success"}),

		timerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "timer",
			Name:      "running",
			Help:      "1 while a phase countdown is running.",
		}),

		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}

	reg.MustRegister(
		c.generations, c.homeGroupSize, c.phaseTransitions, c.resets, c.rosterImports,
		c.eventsPublished, c.handlerDuration,
		c.timerRunning,
		c.httpRequests, c.httpDuration,
	)

	return c
}

// Handler returns the /metrics HTTP handler for this collector's registry.
func (c *Collector) Handler() http.Handler {
	if c == nil || c.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// RecordGeneration counts a generation run and observes every group size.
func (c *Collector) RecordGeneration(groupSizes []int) {
	if c == nil {
		return
	}
	c.generations.Inc()
	for _, size := range groupSizes {
		c.homeGroupSize.Observe(float64(size))
	}
}

// RecordPhaseChange counts a phase transition.
func (c *Collector) RecordPhaseChange(from, to string) {
	if c == nil {
		return
	}
	c.phaseTransitions.WithLabelValues(from, to).Inc()
}

// RecordReset counts a session reset.
func (c *Collector) RecordReset() {
	if c == nil {
		return
	}
	c.resets.Inc()
}

// RecordRosterImport counts a roster import attempt.
func (c *Collector) RecordRosterImport(success bool) {
	if c == nil {
		return
	}
	c.rosterImports.WithLabelValues(strconv.FormatBool(success)).Inc()
}

// EventPublished counts an event published on the bus.
func (c *Collector) EventPublished(eventType string) {
	if c == nil {
		return
	}
	c.eventsPublished.WithLabelValues(eventType).Inc()
}

// HandlerExecuted observes one event handler run.
func (c *Collector) HandlerExecuted(eventType string, duration time.Duration, success bool) {
	if c == nil {
		return
	}
	c.handlerDuration.WithLabelValues(eventType, strconv.FormatBool(success)).Observe(duration.Seconds())
}

// SetTimerRunning flips the countdown gauge.
func (c *Collector) SetTimerRunning(running bool) {
	if c == nil {
		return
	}
	if running {
		c.timerRunning.Set(1)
		return
	}
	c.timerRunning.Set(0)
}

// RecordHTTPRequest counts and times one HTTP request.
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	statusLabel := strconv.Itoa(status)
	c.httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	c.httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}
