// Package metrics provides Prometheus exporters for application metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the SME dispatch service.
var (
	// Counters.
	LifecycleTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assignment_transitions_total",
			Help: "Total assignment lifecycle transitions",
		},
		[]string{"operation", "status", "result"},
	)

	ScoreAdjustmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sme_score_adjustments_total",
			Help: "Total SME reputation score adjustments",
		},
		[]string{"direction"},
	)

	RecommendationRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_requests_total",
			Help: "Total SME recommendation requests",
		},
		[]string{"result"},
	)

	SchedulerJobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_job_runs_total",
			Help: "Total reminder scheduler job runs",
		},
		[]string{"result"},
	)

	// Gauges.
	ActiveAssignments = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "active_assignments",
			Help: "Current number of assignments in Accepted or InProgress status",
		},
		[]string{"status"},
	)

	StaleAssignedCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stale_assigned_count",
			Help: "Number of unanswered assignments in last reminder digest",
		},
	)

	SchedulerLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scheduler_last_run_timestamp",
			Help: "Unix timestamp of last scheduler run",
		},
	)

	// Histograms.
	RecommendationDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommendation_duration_seconds",
			Help:    "Time taken to compute SME recommendations",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~2.5s
		},
	)

	RecommendationCandidateCount = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommendation_candidate_count",
			Help:    "Number of candidates returned per recommendation request",
			Buckets: prometheus.LinearBuckets(0, 5, 10), // 0 to 45 candidates
		},
	)

	SchedulerJobDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scheduler_job_duration_seconds",
			Help:    "Time taken to execute the reminder scheduler job",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8), // 1s to ~128s
		},
	)
)

// RecordTransition records a lifecycle transition attempt.
func RecordTransition(operation, status, result string) {
	LifecycleTransitionsTotal.WithLabelValues(operation, status, result).Inc()
}

// RecordScoreAdjustment records a reputation score adjustment.
func RecordScoreAdjustment(delta int) {
	direction := "up"
	if delta < 0 {
		direction = "down"
	}
	ScoreAdjustmentsTotal.WithLabelValues(direction).Inc()
}

// RecordRecommendationRequest records a recommendation request outcome.
func RecordRecommendationRequest(result string) {
	RecommendationRequestsTotal.WithLabelValues(result).Inc()
}

// RecordSchedulerJobRun records a reminder scheduler job run outcome.
func RecordSchedulerJobRun(result string) {
	SchedulerJobRunsTotal.WithLabelValues(result).Inc()
}

// SetActiveAssignments sets the current number of active assignments per status.
func SetActiveAssignments(status string, count int) {
	ActiveAssignments.WithLabelValues(status).Set(float64(count))
}

// SetStaleAssignedCount sets the unanswered-assignment count from the last digest.
func SetStaleAssignedCount(count int) {
	StaleAssignedCount.Set(float64(count))
}

// SetSchedulerLastRun sets the timestamp of the last scheduler run.
func SetSchedulerLastRun() {
	SchedulerLastRunTimestamp.SetToCurrentTime()
}

// ObserveRecommendationDuration observes recommendation computation time.
func ObserveRecommendationDuration(seconds float64) {
	RecommendationDurationSeconds.Observe(seconds)
}

// ObserveRecommendationCandidates observes the candidate count of a request.
func ObserveRecommendationCandidates(count int) {
	RecommendationCandidateCount.Observe(float64(count))
}

// ObserveSchedulerJobDuration observes the duration of a scheduler job.
func ObserveSchedulerJobDuration(seconds float64) {
	SchedulerJobDurationSeconds.Observe(seconds)
}
