package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Agent-side metrics
var (
	AgentLoopIterationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "roverfleet_agent_loop_iterations_total",
			Help: "Total number of execute/report cycles completed by the agent",
		},
	)

	AgentCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roverfleet_agent_commands_total",
			Help: "Commands executed by the agent",
		},
		[]string{"command", "outcome"}, // outcome: success, failure
	)

	AgentRoundTripFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "roverfleet_agent_round_trip_failures_total",
			Help: "Report round trips that failed and entered backoff",
		},
	)

	AgentBackoffSeconds = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "roverfleet_agent_backoff_seconds_total",
			Help: "Cumulative seconds spent sleeping in reconnect backoff",
		},
	)

	AgentSelfUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roverfleet_agent_self_updates_total",
			Help: "Self-update attempts by outcome",
		},
		[]string{"outcome"}, // installed, guarded, fetch_failed
	)
)

// Coordinator-side metrics
var (
	CoordinatorRoversRegistered = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "roverfleet_coordinator_rovers",
			Help: "Number of rovers known to the coordinator",
		},
	)

	CoordinatorReportsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "roverfleet_coordinator_reports_total",
			Help: "Status reports received from the fleet",
		},
	)

	CoordinatorCommandsIssuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roverfleet_coordinator_commands_issued_total",
			Help: "Commands handed to rovers in report responses",
		},
		[]string{"command"},
	)

	CoordinatorProgramFetchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "roverfleet_coordinator_program_fetches_total",
			Help: "Program distribution requests served",
		},
	)

	CoordinatorHTTPDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "roverfleet_coordinator_http_duration_seconds",
			Help:    "Duration of coordinator HTTP requests",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.5, 5.0},
		},
		[]string{"route", "code"},
	)
)
