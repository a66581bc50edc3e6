package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the engine's Prometheus collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requests           *prometheus.CounterVec
	requestErrors      *prometheus.CounterVec
	assignmentOps      *prometheus.CounterVec
	capacityRejections prometheus.Counter
	noCandidate        prometheus.Counter
	slaBreaches        *prometheus.CounterVec
	sweeperRuns        *prometheus.CounterVec
	sweeperDuration    *prometheus.HistogramVec
	emailDispatch      *prometheus.CounterVec
	notificationDrops  prometheus.Counter
}

// NewMetrics creates and registers the collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		requestErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_request_errors_total",
			Help: "HTTP error responses by method, route and error code",
		}, []string{"method", "route", "code"}),
		assignmentOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assignment_operations_total",
			Help: "Assignment coordinator operations by operation and outcome",
		}, []string{"operation", "outcome"}),
		capacityRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "assignment_capacity_rejections_total",
			Help: "Assignments rejected because the agent was at capacity",
		}),
		noCandidate: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "assignment_no_candidate_total",
			Help: "Auto-assignments where no rule produced a candidate",
		}),
		slaBreaches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sla_breaches_total",
			Help: "SLA breaches flagged by type",
		}, []string{"type"}),
		sweeperRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sweeper_runs_total",
			Help: "Background sweep runs by sweeper and outcome",
		}, []string{"sweeper", "outcome"}),
		sweeperDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sweeper_run_duration_seconds",
			Help:    "Duration of background sweep runs",
			Buckets: prometheus.DefBuckets,
		}, []string{"sweeper"}),
		emailDispatch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "email_dispatch_total",
			Help: "Email dispatch attempts by outcome",
		}, []string{"outcome"}),
		notificationDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notification_enqueue_failures_total",
			Help: "Notifications that could not be queued",
		}),
	}

	registry.MustRegister(
		m.requests,
		m.requestErrors,
		m.assignmentOps,
		m.capacityRejections,
		m.noCandidate,
		m.slaBreaches,
		m.sweeperRuns,
		m.sweeperDuration,
		m.emailDispatch,
		m.notificationDrops,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int, _ time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.requestErrors.WithLabelValues(method, route, code).Inc()
}

// RecordAssignment counts a coordinator operation outcome.
func (m *Metrics) RecordAssignment(operation, outcome string) {
	if m == nil {
		return
	}
	m.assignmentOps.WithLabelValues(operation, outcome).Inc()
}

// RecordCapacityRejection counts an admission control rejection.
func (m *Metrics) RecordCapacityRejection() {
	if m == nil {
		return
	}
	m.capacityRejections.Inc()
}

// RecordNoCandidate counts an auto-assignment that found nobody.
func (m *Metrics) RecordNoCandidate() {
	if m == nil {
		return
	}
	m.noCandidate.Inc()
}

// RecordBreach counts a newly flagged SLA breach.
func (m *Metrics) RecordBreach(breachType string) {
	if m == nil {
		return
	}
	m.slaBreaches.WithLabelValues(breachType).Inc()
}

// RecordSweep records a sweep run outcome and its duration.
func (m *Metrics) RecordSweep(sweeper, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.sweeperRuns.WithLabelValues(sweeper, outcome).Inc()
	if outcome != "skipped" {
		m.sweeperDuration.WithLabelValues(sweeper).Observe(duration.Seconds())
	}
}

// RecordEmail counts an email dispatch outcome.
func (m *Metrics) RecordEmail(outcome string) {
	if m == nil {
		return
	}
	m.emailDispatch.WithLabelValues(outcome).Inc()
}

// RecordNotificationFailure counts a notification that was not queued.
func (m *Metrics) RecordNotificationFailure() {
	if m == nil {
		return
	}
	m.notificationDrops.Inc()
}
