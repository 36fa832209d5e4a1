package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the prometheus collectors exported by the service.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal         *prometheus.CounterVec
	RequestDurationSec    *prometheus.HistogramVec
	ErrorsTotal           *prometheus.CounterVec
	ComplianceEvaluations *prometheus.CounterVec
	PolicyRefreshes       prometheus.Counter
	PolicyRefreshErrors   prometheus.Counter
	PolicyUpserts         prometheus.Counter
	DeadlineOverrides     prometheus.Counter
	BreachesDetected      prometheus.Counter
	RateLimitDropped      prometheus.Counter
}

// NewMetrics registers collectors on registry. A nil registry gets a fresh one.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	m := &Metrics{
		Registry: registry,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sla_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"route", "method", "status"}),
		RequestDurationSec: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sla_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		ErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sla_http_errors_total",
			Help: "Total number of error responses by code.",
		}, []string{"route", "method", "code"}),
		ComplianceEvaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sla_compliance_evaluations_total",
			Help: "Compliance snapshot requests by cache outcome.",
		}, []string{"cache"}),
		PolicyRefreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sla_policy_refresh_total",
			Help: "Total number of policy cache reloads.",
		}),
		PolicyRefreshErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sla_policy_refresh_errors_total",
			Help: "Total number of failed policy cache reloads.",
		}),
		PolicyUpserts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sla_policy_upserts_total",
			Help: "Total number of persisted policy changes.",
		}),
		DeadlineOverrides: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sla_deadline_overrides_total",
			Help: "Total number of manual ticket deadline changes.",
		}),
		BreachesDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sla_breaches_detected_total",
			Help: "Total number of newly detected SLA breaches.",
		}),
		RateLimitDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sla_ratelimit_dropped_total",
			Help: "Total number of mutations rejected by the rate limiter.",
		}),
	}

	registry.MustRegister(
		m.RequestsTotal,
		m.RequestDurationSec,
		m.ErrorsTotal,
		m.ComplianceEvaluations,
		m.PolicyRefreshes,
		m.PolicyRefreshErrors,
		m.PolicyUpserts,
		m.DeadlineOverrides,
		m.BreachesDetected,
		m.RateLimitDropped,
	)

	return m
}

// RecordRequest observes a finished request.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.RequestsTotal.WithLabelValues(route, method, code).Inc()
	m.RequestDurationSec.WithLabelValues(route, method, code).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(route, method, code).Inc()
}

// RecordCompliance counts a compliance request; cacheHit tells whether Redis
// served it.
func (m *Metrics) RecordCompliance(cacheHit bool) {
	if m == nil {
		return
	}
	outcome := "miss"
	if cacheHit {
		outcome = "hit"
	}
	m.ComplianceEvaluations.WithLabelValues(outcome).Inc()
}

// RecordPolicyRefresh counts a reload attempt.
func (m *Metrics) RecordPolicyRefresh(err error) {
	if m == nil {
		return
	}
	m.PolicyRefreshes.Inc()
	if err != nil {
		m.PolicyRefreshErrors.Inc()
	}
}

func (m *Metrics) RecordPolicyUpsert() {
	if m == nil {
		return
	}
	m.PolicyUpserts.Inc()
}

func (m *Metrics) RecordDeadlineOverride() {
	if m == nil {
		return
	}
	m.DeadlineOverrides.Inc()
}

func (m *Metrics) RecordBreach() {
	if m == nil {
		return
	}
	m.BreachesDetected.Inc()
}

func (m *Metrics) RecordRateLimited() {
	if m == nil {
		return
	}
	m.RateLimitDropped.Inc()
}
