package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SagaRuns counts finished sagas by name and outcome (committed, compensated, rejected).
	SagaRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_saga_runs_total",
		Help: "Finished sagas by outcome",
	}, []string{"saga", "outcome"})

	// Compensations counts executed undo actions by result (ok, failed).
	Compensations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_saga_compensations_total",
		Help: "Executed saga compensations",
	}, []string{"saga", "result"})

	// CommandDuration observes coordinator command latency.
	CommandDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "planner_command_duration_seconds",
		Help:    "Coordinator command latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"command", "success"})

	// Conflicts counts resources reported as blocked by the availability check.
	Conflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "planner_availability_conflicts_total",
		Help: "Resources reported as blocked",
	})

	// HTTPRequests counts served API requests.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_http_requests_total",
		Help: "Served API requests",
	}, []string{"method", "route", "status"})

	// PushSent counts web push deliveries by result.
	PushSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_push_notifications_total",
		Help: "Web push deliveries",
	}, []string{"result"})
)
