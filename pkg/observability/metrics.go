package observability

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Message outcomes recorded by RecordMessage
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeIgnored = "ignored"
)

// UnboundTopic is the topic label for messages on topics nothing handles.
// Peers choose those names, so they are not used as label values.
const UnboundTopic = "unbound"

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Message metrics
	MessagesTotal   *prometheus.CounterVec
	HandlerDuration *prometheus.HistogramVec

	// Cache metrics
	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter

	// Alert metrics
	AlertsTotal       *prometheus.CounterVec
	AlertErrorsTotal  prometheus.Counter
	CircularDepsFound prometheus.Counter

	// Business metrics
	ModulesTotal prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		MessagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexus_messages_total",
				Help: "Total number of handled bus messages",
			},
			[]string{"topic", "outcome"},
		),
		HandlerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nexus_handler_duration_seconds",
				Help:    "Message handler duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"topic"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "nexus_cache_hits_total",
				Help: "Total number of analysis cache hits",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "nexus_cache_misses_total",
				Help: "Total number of analysis cache misses",
			},
		),
		AlertsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexus_alerts_total",
				Help: "Total number of published alerts",
			},
			[]string{"type"},
		),
		AlertErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "nexus_alert_publish_errors_total",
				Help: "Total number of alerts that could not be published",
			},
		),
		CircularDepsFound: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "nexus_circular_dependencies_detected_total",
				Help: "Total number of analyses that found a dependency cycle",
			},
		),
		ModulesTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "nexus_modules_total",
				Help: "Number of modules with a stored record",
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.MessagesTotal,
		m.HandlerDuration,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.AlertsTotal,
		m.AlertErrorsTotal,
		m.CircularDepsFound,
		m.ModulesTotal,
	)

	return m
}

// RecordMessage records the outcome and duration of one handled message
func (m *Metrics) RecordMessage(topic, outcome string, duration time.Duration) {
	m.MessagesTotal.WithLabelValues(topic, outcome).Inc()
	m.HandlerDuration.WithLabelValues(topic).Observe(duration.Seconds())
}

// RecordCache records a cache lookup
func (m *Metrics) RecordCache(hit bool) {
	if hit {
		m.CacheHitsTotal.Inc()
		return
	}
	m.CacheMissesTotal.Inc()
}

// RecordAlert records a published alert, or a failed attempt when err is set
func (m *Metrics) RecordAlert(alertType string, err error) {
	if err != nil {
		m.AlertErrorsTotal.Inc()
		return
	}
	m.AlertsTotal.WithLabelValues(alertType).Inc()
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(router *mux.Router, metrics *Metrics) {
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
}
