package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autopilot_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "autopilot_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "autopilot_http_requests_in_flight",
			Help: "HTTP requests currently being served.",
		},
	)

	MatchAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autopilot_match_attempts_total",
			Help: "Total number of match lookups by outcome.",
		},
		[]string{"outcome"},
	)

	MatchScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "autopilot_match_score",
			Help:    "Overall score of the candidate picked for a request.",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1, 1.2},
		},
	)

	PatternExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autopilot_pattern_executions_total",
			Help: "Total number of pattern executions by action type and status.",
		},
		[]string{"action_type", "status"},
	)

	PatternExecutionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "autopilot_pattern_execution_duration_seconds",
			Help:    "Duration of the page effect of a pattern execution.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"action_type"},
	)

	PatternsLearnedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autopilot_patterns_learned_total",
			Help: "Total number of patterns learned by action type.",
		},
		[]string{"action_type"},
	)

	TrainingSessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "autopilot_training_sessions_active",
			Help: "Number of training sessions currently in training mode.",
		},
	)

	EventsPersistedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autopilot_events_persisted_total",
			Help: "Total number of engine events written to the event log.",
		},
		[]string{"event_type"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsInFlight,
		HTTPRequestsTotal,
		HTTPRequestDuration,
		MatchAttemptsTotal,
		MatchScore,
		PatternExecutionsTotal,
		PatternExecutionDuration,
		PatternsLearnedTotal,
		TrainingSessionsActive,
		EventsPersistedTotal,
	)
}
