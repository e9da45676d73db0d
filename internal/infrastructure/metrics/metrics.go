// Package metrics exposes Prometheus collectors for decisions, case
// transitions, the event bus, HTTP traffic and worker jobs.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/behavior-hub/behavior-hub/internal/domain/shared"
	"github.com/behavior-hub/behavior-hub/pkg/circuitbreaker"
)

const namespace = "behavior_hub"

// Metrics owns a private registry and every collector registered on it.
type Metrics struct {
	registry *prometheus.Registry

	decisions       *prometheus.CounterVec
	levelALogged    *prometheus.CounterVec
	caseEvents      *prometheus.CounterVec
	casesClosed     *prometheus.CounterVec
	reminders       *prometheus.CounterVec
	eventsPublished *prometheus.CounterVec
	handlerDuration *prometheus.HistogramVec
	handlerErrors   *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	breakerState    *prometheus.GaugeVec
	jobRuns         *prometheus.CounterVec
	jobDuration     *prometheus.HistogramVec
}

// New creates the collectors and registers them with a fresh registry,
// together with the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "escalation_decisions_total",
			Help:      "Decision tree evaluations by recommended level.",
		}, []string{"level", "pattern_student"}),

		levelALogged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "level_a_interventions_total",
			Help:      "Level A interventions logged by technique and outcome.",
		}, []string{"intervention_type", "outcome"}),

		caseEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "level_c_case_events_total",
			Help:      "Level C lifecycle writes by event type and case type.",
		}, []string{"event", "case_type"}),

		casesClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "level_c_cases_closed_total",
			Help:      "Closed Level C cases by outcome status.",
		}, []string{"outcome_status"}),

		reminders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_total",
			Help:      "Reminder events raised by the worker.",
		}, []string{"kind"}),

		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Domain events published on the bus.",
		}, []string{"event_type"}),

		handlerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_handler_duration_seconds",
			Help:      "Event handler execution time.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"event_type"}),

		handlerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_handler_errors_total",
			Help:      "Event handler failures.",
		}, []string{"event_type"}),

		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "code"}),

		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),

		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state: 0 closed, 1 open, 2 half-open.",
		}, []string{"name"}),

		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_job_runs_total",
			Help:      "Worker job runs by result.",
		}, []string{"job", "result"}),

		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "worker_job_duration_seconds",
			Help:      "Worker job run time.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.decisions,
		m.levelALogged,
		m.caseEvents,
		m.casesClosed,
		m.reminders,
		m.eventsPublished,
		m.handlerDuration,
		m.handlerErrors,
		m.httpRequests,
		m.httpDuration,
		m.breakerState,
		m.jobRuns,
		m.jobDuration,
	)
	return m
}

// Registry returns the registry backing the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN EVENTS
// ══════════════════════════════════════════════════════════════════════════════

// ObserveEvent updates the domain counters for one event.
func (m *Metrics) ObserveEvent(e shared.Event) {
	p := e.Payload()
	switch e.EventType() {
	case shared.EventEscalationDecided:
		m.decisions.WithLabelValues(str(p["level"]), strconv.FormatBool(boolean(p["is_pattern_student"]))).Inc()
	case shared.EventLevelALogged:
		m.levelALogged.WithLabelValues(str(p["intervention_type"]), str(p["outcome"])).Inc()
	case shared.EventCaseCreated,
		shared.EventCaseContextPacketComplete,
		shared.EventCaseAdminResponseRecorded,
		shared.EventCaseReentryPlanned,
		shared.EventCaseMonitoringStarted,
		shared.EventCaseCheckInLogged:
		m.caseEvents.WithLabelValues(string(e.EventType()), str(p["case_type"])).Inc()
	case shared.EventCaseClosed:
		m.caseEvents.WithLabelValues(string(e.EventType()), str(p["case_type"])).Inc()
		m.casesClosed.WithLabelValues(str(p["detail"])).Inc()
	case shared.EventReentryDue:
		m.reminders.WithLabelValues("reentry_due").Inc()
	case shared.EventReviewDue:
		m.reminders.WithLabelValues("review_due").Inc()
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// EVENT BUS OBSERVER
// ══════════════════════════════════════════════════════════════════════════════

// EventPublished counts a published event.
func (m *Metrics) EventPublished(eventType shared.EventType) {
	m.eventsPublished.WithLabelValues(string(eventType)).Inc()
}

// HandlerExecuted records handler latency and failures.
func (m *Metrics) HandlerExecuted(eventType shared.EventType, d time.Duration, err error) {
	m.handlerDuration.WithLabelValues(string(eventType)).Observe(d.Seconds())
	if err != nil {
		m.handlerErrors.WithLabelValues(string(eventType)).Inc()
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// HTTP, BREAKERS, JOBS
// ══════════════════════════════════════════════════════════════════════════════

// ObserveHTTP records one served request. route is the chi route pattern.
func (m *Metrics) ObserveHTTP(method, route string, code int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// BreakerStateChanged matches the circuitbreaker state-change callback.
func (m *Metrics) BreakerStateChanged(name string, _, to circuitbreaker.State) {
	m.breakerState.WithLabelValues(name).Set(float64(to))
}

// JobFinished records a worker job run.
func (m *Metrics) JobFinished(job string, d time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.jobRuns.WithLabelValues(job, result).Inc()
	m.jobDuration.WithLabelValues(job).Observe(d.Seconds())
}

func str(v interface{}) string {
	s, _ := v.(string)
	if s == "" {
		return "unknown"
	}
	return s
}

func boolean(v interface{}) bool {
	b, _ := v.(bool)
	return b
}
