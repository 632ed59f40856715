// Package metrics provides Prometheus exporters for application metrics.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the attendant rewards engine.
var (
	// Counters.
	EvaluationsRecordedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evaluations_recorded_total",
			Help: "Total number of evaluations recorded",
		},
		[]string{"department", "rating"},
	)

	XPAwardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xp_awarded_total",
			Help: "Total XP points awarded, by event type (negative grants decrease it)",
		},
		[]string{"type"},
	)

	EvaluationsDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "evaluations_deleted_total",
			Help: "Total number of evaluations removed by corrective deletion",
		},
	)

	LeaderboardCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leaderboard_cache_total",
			Help: "Leaderboard cache lookups",
		},
		[]string{"result"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests served by the dashboard API",
		},
		[]string{"method", "route", "status"},
	)

	// Histograms.
	EvaluationRating = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "evaluation_rating",
			Help:    "Distribution of evaluation star ratings",
			Buckets: prometheus.LinearBuckets(1, 1, 5), // 1 to 5 stars
		},
		[]string{"department"},
	)

	LeaderboardGenerationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leaderboard_generation_seconds",
			Help:    "Time taken to load and rank a leaderboard",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~2s
		},
		[]string{"scope"},
	)

	HTTPRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Dashboard API request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Scheduler metrics.
	SchedulerJobsRunTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_jobs_run_total",
			Help: "Total scheduler job executions",
		},
		[]string{"job", "status"},
	)

	SchedulerNotificationsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_notifications_sent_total",
			Help: "Total successful notifications sent",
		},
		[]string{"kind"},
	)

	SchedulerNotificationsFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_notifications_failed_total",
			Help: "Total failed notification attempts",
		},
		[]string{"kind"},
	)

	SchedulerLastRunTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "scheduler_last_run_timestamp",
			Help: "Unix timestamp of last scheduler run",
		},
		[]string{"job"},
	)

	SchedulerJobDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scheduler_job_duration_seconds",
			Help:    "Time taken to execute a scheduler job",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~200s
		},
		[]string{"job"},
	)

	// Achievement metrics.
	AchievementsUnlockedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "achievements_unlocked_total",
			Help: "Total number of achievements unlocked",
		},
		[]string{"achievement", "department"},
	)

	AchievementEvaluationErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "achievement_evaluation_errors_total",
			Help: "Achievements whose criteria could not be evaluated",
		},
		[]string{"achievement"},
	)

	AchievementHolders = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "achievement_holders",
			Help: "Current number of attendants holding each achievement",
		},
		[]string{"achievement"},
	)
)

// RecordEvaluation records a new evaluation and its rating.
func RecordEvaluation(department string, rating int) {
	EvaluationsRecordedTotal.WithLabelValues(department, strconv.Itoa(rating)).Inc()
	EvaluationRating.WithLabelValues(department).Observe(float64(rating))
}

// RecordEvaluationDeleted records a corrective deletion.
func RecordEvaluationDeleted() {
	EvaluationsDeletedTotal.Inc()
}

// RecordXPAwarded adds points to the XP counter. Counters cannot decrease,
// so negative grants are tracked under a separate type label.
func RecordXPAwarded(eventType string, points int) {
	if points < 0 {
		XPAwardedTotal.WithLabelValues(eventType + "_penalty").Add(float64(-points))
		return
	}
	XPAwardedTotal.WithLabelValues(eventType).Add(float64(points))
}

// RecordLeaderboardCache records a cache hit or miss.
func RecordLeaderboardCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	LeaderboardCacheTotal.WithLabelValues(result).Inc()
}

// ObserveLeaderboardGeneration observes leaderboard build time.
func ObserveLeaderboardGeneration(scope string, seconds float64) {
	LeaderboardGenerationSeconds.WithLabelValues(scope).Observe(seconds)
}

// RecordHTTPRequest records a served API request.
func RecordHTTPRequest(method, route string, status int, seconds float64) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDurationSeconds.WithLabelValues(method, route).Observe(seconds)
}

// RecordSchedulerJobRun records a scheduler job execution.
func RecordSchedulerJobRun(job, status string) {
	SchedulerJobsRunTotal.WithLabelValues(job, status).Inc()
}

// RecordSchedulerNotificationSent records a successful notification sent.
func RecordSchedulerNotificationSent(kind string) {
	SchedulerNotificationsSentTotal.WithLabelValues(kind).Inc()
}

// RecordSchedulerNotificationFailed records a failed notification attempt.
func RecordSchedulerNotificationFailed(kind string) {
	SchedulerNotificationsFailedTotal.WithLabelValues(kind).Inc()
}

// SetSchedulerLastRun sets the timestamp of the last run of job.
func SetSchedulerLastRun(job string) {
	SchedulerLastRunTimestamp.WithLabelValues(job).SetToCurrentTime()
}

// ObserveSchedulerJobDuration observes the duration of a scheduler job.
func ObserveSchedulerJobDuration(job string, seconds float64) {
	SchedulerJobDurationSeconds.WithLabelValues(job).Observe(seconds)
}

// RecordAchievementUnlocked records an achievement unlock.
func RecordAchievementUnlocked(code, department string) {
	AchievementsUnlockedTotal.WithLabelValues(code, department).Inc()
}

// RecordAchievementEvaluationError records an achievement with broken criteria.
func RecordAchievementEvaluationError(code string) {
	AchievementEvaluationErrorsTotal.WithLabelValues(code).Inc()
}

// SetAchievementHolders sets the number of holders of an achievement.
func SetAchievementHolders(code string, count int) {
	AchievementHolders.WithLabelValues(code).Set(float64(count))
}
