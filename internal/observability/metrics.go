package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"`
}

// MetricsManager registers and serves the Prometheus metrics of the service.
type MetricsManager struct {
	config   MetricsConfig
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	entityOperations        *prometheus.CounterVec
	entityOperationDuration *prometheus.HistogramVec

	referenceDataRequests *prometheus.CounterVec

	uptimeSeconds prometheus.Gauge
	startTime     time.Time
}

func NewMetricsManager(config MetricsConfig) *MetricsManager {
	namespace := config.Namespace
	if namespace == "" {
		namespace = "buq"
	}

	registry := prometheus.NewRegistry()
	m := &MetricsManager{
		config:    config,
		registry:  registry,
		startTime: time.Now(),

		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests processed, by method, route and status code.",
		}, []string{"method", "route", "status"}),

		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),

		entityOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entity_operations_total",
			Help:      "Entity operations, by entity type, operation and outcome.",
		}, []string{"entity_type", "operation", "outcome"}),

		entityOperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "entity_operation_duration_seconds",
			Help:      "Entity operation latency, by entity type and operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"entity_type", "operation"}),

		referenceDataRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reference_data_requests_total",
			Help:      "Outbound reference-data requests, by resource and outcome.",
		}, []string{"resource", "outcome"}),

		uptimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Seconds since the service started.",
		}),
	}

	registry.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.entityOperations,
		m.entityOperationDuration,
		m.referenceDataRequests,
		m.uptimeSeconds,
	)

	return m
}

func (m *MetricsManager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *MetricsManager) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	m.uptimeSeconds.Set(time.Since(m.startTime).Seconds())
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (m *MetricsManager) RecordEntityOperation(entityType, operation, outcome string, duration time.Duration) {
	m.entityOperations.WithLabelValues(entityType, operation, outcome).Inc()
	m.entityOperationDuration.WithLabelValues(entityType, operation).Observe(duration.Seconds())
}

func (m *MetricsManager) RecordReferenceDataRequest(resource, outcome string) {
	m.referenceDataRequests.WithLabelValues(resource, outcome).Inc()
}
