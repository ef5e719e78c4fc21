package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	grpcProm "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
)

const divisor = 100

// Metrics defines all Prometheus metrics for the alerts service.
type Metrics struct {
	registry *prometheus.Registry

	// RED (Rate, Errors, Duration) for HTTP
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestsInFlight prometheus.Gauge
	HTTPRequestDuration  *prometheus.HistogramVec

	// Business metrics
	AlertsCreated prometheus.Counter
	AlertsDeleted prometheus.Counter

	// Check cycles, by trigger (http, cron)
	CheckCycles        *prometheus.CounterVec
	CheckCycleDuration *prometheus.HistogramVec
	AlertEvaluations   *prometheus.CounterVec // by outcome
	NotificationsSent  *prometheus.CounterVec // by result

	// Offer cache
	CacheOpDuration *prometheus.HistogramVec
	CacheOps        *prometheus.CounterVec

	ServiceUptime prometheus.Gauge

	BusinessErrors  *prometheus.CounterVec
	TechnicalErrors *prometheus.CounterVec

	GRPC *grpcProm.ServerMetrics
}

// NewMetrics creates and registers all metrics under the given namespace on a private registry.
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	errorLabels := []string{"error_type", "severity"}
	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests total",
			},
			[]string{"method", "endpoint", "status_class"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "In-flight HTTP requests",
			},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		AlertsCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "alerts_created_total",
				Help:      "Total alerts created",
			},
		),
		AlertsDeleted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "alerts_deleted_total",
				Help:      "Total alerts deleted",
			},
		),

		CheckCycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "check_cycles_total",
				Help:      "Check cycle executions",
			},
			[]string{"trigger", "result"},
		),
		CheckCycleDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "check_cycle_duration_seconds",
				Help:      "Duration of check cycles",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"trigger"},
		),
		AlertEvaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "alert_evaluations_total",
				Help:      "Per-alert evaluation outcomes",
			},
			[]string{"outcome"},
		),
		NotificationsSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_total",
				Help:      "Ticket availability notifications dispatched",
			},
			[]string{"result"},
		),

		CacheOpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cache_operation_duration_seconds",
				Help:      "Cache operation latencies",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		CacheOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_operations_total",
				Help:      "Cache operation counts",
			},
			[]string{"operation"},
		),

		ServiceUptime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "service_uptime_seconds",
				Help:      "Service start time",
			},
		),

		BusinessErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "business_errors_total",
				Help:      "Total business errors",
			},
			errorLabels,
		),
		TechnicalErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "technical_errors_total",
				Help:      "Total technical errors",
			},
			errorLabels,
		),

		GRPC: grpcProm.NewServerMetrics(),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestsInFlight,
		m.HTTPRequestDuration,
		m.AlertsCreated,
		m.AlertsDeleted,
		m.CheckCycles,
		m.CheckCycleDuration,
		m.AlertEvaluations,
		m.NotificationsSent,
		m.CacheOpDuration,
		m.CacheOps,
		m.ServiceUptime,
		m.BusinessErrors,
		m.TechnicalErrors,
		m.GRPC,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m.GRPC.EnableHandlingTimeHistogram()
	m.ServiceUptime.SetToCurrentTime()

	return m
}

// Register adds extra collectors (e.g. DB stats) to the service registry.
func (m *Metrics) Register(cs ...prometheus.Collector) error {
	for _, c := range cs {
		if err := m.registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Handler serves the service registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// HTTPMiddleware instruments Gin HTTP handlers for RED metrics.
func (m *Metrics) HTTPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.HTTPRequestsInFlight.Inc()
		c.Next()
		m.HTTPRequestsInFlight.Dec()

		dur := time.Since(start).Seconds()
		status := c.Writer.Status()
		statusClass := fmt.Sprintf("%dxx", status/divisor)

		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, c.FullPath(), statusClass).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, c.FullPath()).Observe(dur)
	}
}

// UnaryServerInterceptor returns a gRPC interceptor for server-side metrics.
func (m *Metrics) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return m.GRPC.UnaryServerInterceptor()
}

// StreamServerInterceptor returns a gRPC interceptor for server-side streaming metrics.
func (m *Metrics) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return m.GRPC.StreamServerInterceptor()
}

// ObserveCycle records one check cycle run; result is ok, error or skipped.
func (m *Metrics) ObserveCycle(trigger, result string, d time.Duration) {
	m.CheckCycles.WithLabelValues(trigger, result).Inc()
	m.CheckCycleDuration.WithLabelValues(trigger).Observe(d.Seconds())
}

// ObserveLatency records a cache operation latency.
func (m *Metrics) ObserveLatency(operation string, duration time.Duration) {
	m.CacheOpDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// IncrementCounter counts a cache operation outcome.
func (m *Metrics) IncrementCounter(operation string) {
	m.CacheOps.WithLabelValues(operation).Inc()
}
