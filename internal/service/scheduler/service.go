// Package scheduler runs the periodic rewards jobs: achievement sweeps,
// leaderboard digests and season start announcements.
package scheduler

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/csat-hub/attendant-rewards/internal/config"
	"github.com/csat-hub/attendant-rewards/internal/mattermost"
	prommetrics "github.com/csat-hub/attendant-rewards/internal/metrics"
	"github.com/csat-hub/attendant-rewards/internal/models"
	"github.com/csat-hub/attendant-rewards/internal/service/leaderboard"
	"github.com/csat-hub/attendant-rewards/pkg/logger"
)

// Job names used in logs, metrics and lock keys.
const (
	JobAchievementSweep  = "achievement_sweep"
	JobLeaderboardDigest = "leaderboard_digest"
	JobSeasonCheck       = "season_check"
)

const (
	lockKeyPrefix      = "scheduler:lock:"
	announcedKeyPrefix = "scheduler:season_announced:"
	jobLockTTL         = 10 * time.Minute
	digestPeriod       = leaderboard.PeriodWeek
)

// AchievementSweeper grants missing achievements across the population.
type AchievementSweeper interface {
	EvaluateAllAchievements(ctx context.Context) (int, error)
}

// LeaderboardSource provides the ranking posted in digests.
type LeaderboardSource interface {
	GetGlobalLeaderboard(ctx context.Context, period string, limit, offset int) (*leaderboard.Result, error)
}

// SeasonSource lists configured seasons.
type SeasonSource interface {
	List(ctx context.Context) ([]models.Season, error)
}

// Notifier posts scheduled announcements.
type Notifier interface {
	SendLeaderboardDigest(ctx context.Context, period string, entries []mattermost.DigestEntry) error
	SendSeasonStarted(ctx context.Context, season *models.Season) error
}

// Locker provides set-if-absent and delete primitives shared by all replicas.
type Locker interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
}

// Service handles scheduled jobs.
type Service struct {
	config      *config.SchedulerConfig
	sweeper     AchievementSweeper
	leaderboard LeaderboardSource
	seasons     SeasonSource
	notifier    Notifier
	locker      Locker
	digestSize  int
	log         *logger.Logger
	cron        *cron.Cron
	owner       string
	now         func() time.Time

	mu        sync.Mutex
	announced map[uint]bool
}

// NewService creates a new scheduler service. A nil locker runs every job
// on every replica.
func NewService(
	cfg *config.SchedulerConfig,
	sweeper AchievementSweeper,
	leaderboardSource LeaderboardSource,
	seasonSource SeasonSource,
	notifier Notifier,
	locker Locker,
	digestSize int,
	log *logger.Logger,
) *Service {
	owner, err := os.Hostname()
	if err != nil || owner == "" {
		owner = "scheduler"
	}
	if digestSize <= 0 {
		digestSize = 10
	}
	return &Service{
		config:      cfg,
		sweeper:     sweeper,
		leaderboard: leaderboardSource,
		seasons:     seasonSource,
		notifier:    notifier,
		locker:      locker,
		digestSize:  digestSize,
		log:         log,
		owner:       owner,
		now:         time.Now,
		announced:   make(map[uint]bool),
	}
}

// WithClock replaces the service clock. Intended for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Start initializes and starts the cron scheduler.
func (s *Service) Start() error {
	if !s.config.Enabled {
		s.log.Info().Msg("Scheduler is disabled in configuration")
		return nil
	}

	location, err := s.config.GetLocation()
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", s.config.Timezone, err)
	}

	s.cron = cron.New(cron.WithLocation(location))

	jobs := []struct {
		name     string
		schedule string
		enabled  bool
		run      func(context.Context) error
	}{
		{JobAchievementSweep, s.config.AchievementSweepTime, s.sweeper != nil, s.runAchievementSweep},
		{JobLeaderboardDigest, s.config.LeaderboardDigestTime, s.leaderboard != nil && s.notifier != nil, s.runLeaderboardDigest},
		{JobSeasonCheck, s.config.SeasonCheckTime, s.seasons != nil && s.notifier != nil, s.runSeasonCheck},
	}

	for _, job := range jobs {
		if job.schedule == "" || !job.enabled {
			continue
		}
		spec, err := buildCronExpression(job.schedule)
		if err != nil {
			return fmt.Errorf("failed to build cron expression for %s: %w", job.name, err)
		}

		name, run := job.name, job.run
		if _, err := s.cron.AddFunc(spec, func() {
			s.RunJob(context.Background(), name, run)
		}); err != nil {
			return fmt.Errorf("failed to register %s job: %w", name, err)
		}
		s.log.Info().
			Str("job", name).
			Str("schedule", spec).
			Msg("Scheduled job registered")
	}

	s.cron.Start()

	nextRun := ""
	if entries := s.cron.Entries(); len(entries) > 0 {
		nextRun = entries[0].Next.Format(time.RFC3339)
	}

	s.log.Info().
		Str("timezone", s.config.Timezone).
		Int("jobs", len(s.cron.Entries())).
		Str("next_run", nextRun).
		Msg("Scheduler started successfully")

	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Service) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.log.Info().Msg("Scheduler stopped")
	}
}

// buildCronExpression accepts either a daily "HH:MM" time or a standard
// five-field cron expression.
func buildCronExpression(value string) (string, error) {
	value = strings.TrimSpace(value)
	if !strings.Contains(value, " ") {
		return dailyExpression(value)
	}
	if _, err := cron.ParseStandard(value); err != nil {
		return "", fmt.Errorf("invalid cron expression %q: %w", value, err)
	}
	return value, nil
}

func dailyExpression(value string) (string, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid time format %q, expected HH:MM", value)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour %q", parts[0])
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute %q", parts[1])
	}

	// Format: "minute hour day month weekday"
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}

// RunJob executes one job under the cluster-wide lock and records its
// outcome. It reports whether the job ran.
func (s *Service) RunJob(ctx context.Context, name string, run func(context.Context) error) bool {
	if !s.acquire(ctx, name) {
		s.log.Debug().Str("job", name).Msg("Job is running elsewhere, skipping")
		prommetrics.RecordSchedulerJobRun(name, "skipped")
		return false
	}

	start := time.Now()
	defer func() {
		prommetrics.ObserveSchedulerJobDuration(name, time.Since(start).Seconds())
		prommetrics.SetSchedulerLastRun(name)
	}()

	s.log.Info().Str("job", name).Msg("Running scheduled job")

	if err := run(ctx); err != nil {
		s.log.Error().
			Err(err).
			Str("job", name).
			Dur("duration", time.Since(start)).
			Msg("Scheduled job failed")
		prommetrics.RecordSchedulerJobRun(name, "error")
		return true
	}

	prommetrics.RecordSchedulerJobRun(name, "success")
	s.log.Info().
		Str("job", name).
		Dur("duration", time.Since(start)).
		Msg("Scheduled job completed successfully")
	return true
}

func (s *Service) acquire(ctx context.Context, name string) bool {
	if s.locker == nil {
		return true
	}
	ok, err := s.locker.SetNX(ctx, lockKeyPrefix+name+":"+s.now().UTC().Format("200601021504"), s.owner, jobLockTTL)
	if err != nil {
		// without the lock store we would rather run twice than never
		s.log.Warn().Err(err).Str("job", name).Msg("Failed to acquire job lock, running anyway")
		return true
	}
	return ok
}

// runAchievementSweep grants any achievement the population now satisfies.
func (s *Service) runAchievementSweep(ctx context.Context) error {
	granted, err := s.sweeper.EvaluateAllAchievements(ctx)
	if err != nil {
		return fmt.Errorf("failed to evaluate achievements: %w", err)
	}
	s.log.Info().Int("achievements_granted", granted).Msg("Achievement sweep finished")
	return nil
}

// runLeaderboardDigest posts the top of the weekly leaderboard.
func (s *Service) runLeaderboardDigest(ctx context.Context) error {
	result, err := s.leaderboard.GetGlobalLeaderboard(ctx, digestPeriod, s.digestSize, 0)
	if err != nil {
		return fmt.Errorf("failed to load leaderboard: %w", err)
	}

	entries := buildDigestEntries(result)
	if err := s.notifier.SendLeaderboardDigest(ctx, digestPeriod, entries); err != nil {
		prommetrics.RecordSchedulerNotificationFailed("digest")
		return fmt.Errorf("failed to send leaderboard digest: %w", err)
	}
	prommetrics.RecordSchedulerNotificationSent("digest")

	s.log.Info().Int("entries", len(entries)).Msg("Leaderboard digest sent")
	return nil
}

// runSeasonCheck announces every active season that has not been announced.
func (s *Service) runSeasonCheck(ctx context.Context) error {
	list, err := s.seasons.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list seasons: %w", err)
	}

	now := s.now()
	pending := seasonsToAnnounce(list, now)
	for i := range pending {
		season := &pending[i]
		if !s.claimAnnouncement(ctx, season, now) {
			continue
		}
		if err := s.notifier.SendSeasonStarted(ctx, season); err != nil {
			prommetrics.RecordSchedulerNotificationFailed("season")
			s.log.Error().Err(err).Uint("season_id", season.ID).Msg("Failed to announce season")
			s.releaseAnnouncement(ctx, season)
			continue
		}
		prommetrics.RecordSchedulerNotificationSent("season")
		s.log.Info().Uint("season_id", season.ID).Str("name", season.Name).Msg("Season start announced")
	}
	return nil
}

// claimAnnouncement marks a season as announced until it ends. It reports
// false when another run already did.
func (s *Service) claimAnnouncement(ctx context.Context, season *models.Season, now time.Time) bool {
	if s.locker == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.announced[season.ID] {
			return false
		}
		s.announced[season.ID] = true
		return true
	}
	ttl := season.EndTime.Sub(now)
	if ttl < time.Minute {
		ttl = time.Minute
	}
	ok, err := s.locker.SetNX(ctx, announcedKey(season.ID), s.owner, ttl)
	if err != nil {
		s.log.Warn().Err(err).Uint("season_id", season.ID).Msg("Failed to record season announcement")
		return false
	}
	return ok
}

// releaseAnnouncement drops the claim so the next check retries the season.
func (s *Service) releaseAnnouncement(ctx context.Context, season *models.Season) {
	if s.locker == nil {
		s.mu.Lock()
		delete(s.announced, season.ID)
		s.mu.Unlock()
		return
	}
	if err := s.locker.Del(ctx, announcedKey(season.ID)); err != nil {
		s.log.Warn().Err(err).Uint("season_id", season.ID).Msg("Failed to release season announcement")
	}
}

func announcedKey(seasonID uint) string {
	return fmt.Sprintf("%s%d", announcedKeyPrefix, seasonID)
}
