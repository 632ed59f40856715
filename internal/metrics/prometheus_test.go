package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordEvaluation(t *testing.T) {
	// Reset the counter before test
	EvaluationsRecordedTotal.Reset()
	EvaluationRating.Reset()

	RecordEvaluation("support", 5)
	RecordEvaluation("support", 5)
	RecordEvaluation("billing", 2)

	count := testutil.ToFloat64(EvaluationsRecordedTotal.WithLabelValues("support", "5"))
	if count != 2 {
		t.Errorf("Expected support 5-star count = 2, got %f", count)
	}

	count = testutil.ToFloat64(EvaluationsRecordedTotal.WithLabelValues("billing", "2"))
	if count != 1 {
		t.Errorf("Expected billing 2-star count = 1, got %f", count)
	}

	if n := testutil.CollectAndCount(EvaluationRating); n != 2 {
		t.Errorf("Expected 2 rating histograms, got %d", n)
	}
}

func TestRecordXPAwarded(t *testing.T) {
	XPAwardedTotal.Reset()

	RecordXPAwarded("evaluation", 5)
	RecordXPAwarded("evaluation", 8)
	RecordXPAwarded("evaluation", -5)
	RecordXPAwarded("achievement", 50)

	if v := testutil.ToFloat64(XPAwardedTotal.WithLabelValues("evaluation")); v != 13 {
		t.Errorf("Expected evaluation XP = 13, got %f", v)
	}
	if v := testutil.ToFloat64(XPAwardedTotal.WithLabelValues("evaluation_penalty")); v != 5 {
		t.Errorf("Expected evaluation penalty XP = 5, got %f", v)
	}
	if v := testutil.ToFloat64(XPAwardedTotal.WithLabelValues("achievement")); v != 50 {
		t.Errorf("Expected achievement XP = 50, got %f", v)
	}
}

func TestRecordLeaderboardCache(t *testing.T) {
	LeaderboardCacheTotal.Reset()

	RecordLeaderboardCache(true)
	RecordLeaderboardCache(false)
	RecordLeaderboardCache(false)

	if v := testutil.ToFloat64(LeaderboardCacheTotal.WithLabelValues("hit")); v != 1 {
		t.Errorf("Expected 1 hit, got %f", v)
	}
	if v := testutil.ToFloat64(LeaderboardCacheTotal.WithLabelValues("miss")); v != 2 {
		t.Errorf("Expected 2 misses, got %f", v)
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	HTTPRequestsTotal.Reset()
	HTTPRequestDurationSeconds.Reset()

	RecordHTTPRequest("GET", "/api/v1/leaderboard", 200, 0.01)
	RecordHTTPRequest("GET", "/api/v1/leaderboard", 200, 0.02)
	RecordHTTPRequest("GET", "/api/v1/leaderboard", 500, 0.5)

	if v := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/leaderboard", "200")); v != 2 {
		t.Errorf("Expected 2 successful requests, got %f", v)
	}
	if v := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/leaderboard", "500")); v != 1 {
		t.Errorf("Expected 1 failed request, got %f", v)
	}
}

func TestSchedulerMetrics(t *testing.T) {
	SchedulerJobsRunTotal.Reset()
	SchedulerNotificationsSentTotal.Reset()
	SchedulerNotificationsFailedTotal.Reset()

	RecordSchedulerJobRun("achievement_sweep", "success")
	RecordSchedulerJobRun("achievement_sweep", "failure")
	RecordSchedulerNotificationSent("digest")
	RecordSchedulerNotificationFailed("digest")
	SetSchedulerLastRun("achievement_sweep")
	ObserveSchedulerJobDuration("achievement_sweep", 1.5)

	if v := testutil.ToFloat64(SchedulerJobsRunTotal.WithLabelValues("achievement_sweep", "success")); v != 1 {
		t.Errorf("Expected 1 successful run, got %f", v)
	}
	if v := testutil.ToFloat64(SchedulerNotificationsSentTotal.WithLabelValues("digest")); v != 1 {
		t.Errorf("Expected 1 digest sent, got %f", v)
	}
	if v := testutil.ToFloat64(SchedulerNotificationsFailedTotal.WithLabelValues("digest")); v != 1 {
		t.Errorf("Expected 1 digest failure, got %f", v)
	}
	if v := testutil.ToFloat64(SchedulerLastRunTimestamp.WithLabelValues("achievement_sweep")); v <= 0 {
		t.Errorf("Expected last run timestamp to be set, got %f", v)
	}
}

func TestAchievementMetrics(t *testing.T) {
	AchievementsUnlockedTotal.Reset()
	AchievementEvaluationErrorsTotal.Reset()
	AchievementHolders.Reset()

	RecordAchievementUnlocked("first-steps", "support")
	RecordAchievementEvaluationError("broken")
	RecordAchievementEvaluationError("broken")
	SetAchievementHolders("first-steps", 12)

	if v := testutil.ToFloat64(AchievementsUnlockedTotal.WithLabelValues("first-steps", "support")); v != 1 {
		t.Errorf("Expected 1 unlock, got %f", v)
	}
	if v := testutil.ToFloat64(AchievementEvaluationErrorsTotal.WithLabelValues("broken")); v != 2 {
		t.Errorf("Expected 2 criteria errors, got %f", v)
	}
	if v := testutil.ToFloat64(AchievementHolders.WithLabelValues("first-steps")); v != 12 {
		t.Errorf("Expected 12 holders, got %f", v)
	}
}
