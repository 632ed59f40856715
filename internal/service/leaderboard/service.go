// Package leaderboard provides leaderboard and ranking services.
package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/csat-hub/attendant-rewards/internal/config"
	"github.com/csat-hub/attendant-rewards/internal/metrics"
	"github.com/csat-hub/attendant-rewards/internal/models"
	"github.com/csat-hub/attendant-rewards/internal/repository"
	"github.com/csat-hub/attendant-rewards/pkg/logger"
)

const (
	cacheKeyPrefix = "leaderboard:"
	cacheIndexKey  = "leaderboard:keys"
)

// AttendantRepository interface for attendant operations.
type AttendantRepository interface {
	GetAll() ([]models.Attendant, error)
	GetByID(id uint) (*models.Attendant, error)
}

// XPEventRepository interface for XP ledger reads.
type XPEventRepository interface {
	GetByDateRange(from, to *time.Time) ([]models.XPEvent, error)
}

// EvaluationRepository interface for evaluation reads.
type EvaluationRepository interface {
	GetByDateRange(from, to *time.Time) ([]models.Evaluation, error)
}

// SeasonRepository interface for season lookups.
type SeasonRepository interface {
	GetByID(id uint) (*models.Season, error)
}

// Cache stores serialized leaderboards.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) error
	SAdd(ctx context.Context, key string, members ...interface{}) error
	SMembers(ctx context.Context, key string) ([]string, error)
}

// Service loads population snapshots and ranks them.
type Service struct {
	attendantRepo AttendantRepository
	eventRepo     XPEventRepository
	evalRepo      EvaluationRepository
	seasonRepo    SeasonRepository
	engine        *Engine
	cache         Cache
	cfg           config.GamificationConfig
	log           *logger.Logger
	now           func() time.Time
}

// NewService creates a new leaderboard service with concrete repository types.
func NewService(
	attendantRepo *repository.AttendantRepository,
	eventRepo *repository.XPEventRepository,
	evalRepo *repository.EvaluationRepository,
	seasonRepo *repository.SeasonRepository,
	engine *Engine,
	cache Cache,
	cfg config.GamificationConfig,
	log *logger.Logger,
) *Service {
	return NewServiceWithInterfaces(attendantRepo, eventRepo, evalRepo, seasonRepo, engine, cache, cfg, log)
}

// NewServiceWithInterfaces creates a new leaderboard service with interface dependencies (useful for testing).
// A nil cache disables caching.
func NewServiceWithInterfaces(
	attendantRepo AttendantRepository,
	eventRepo XPEventRepository,
	evalRepo EvaluationRepository,
	seasonRepo SeasonRepository,
	engine *Engine,
	cache Cache,
	cfg config.GamificationConfig,
	log *logger.Logger,
) *Service {
	if engine == nil {
		engine = NewEngine(nil)
	}
	return &Service{
		attendantRepo: attendantRepo,
		eventRepo:     eventRepo,
		evalRepo:      evalRepo,
		seasonRepo:    seasonRepo,
		engine:        engine,
		cache:         cache,
		cfg:           cfg,
		log:           log,
		now:           time.Now,
	}
}

// WithClock replaces the service clock. Intended for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Engine returns the ranking engine.
func (s *Service) Engine() *Engine {
	return s.engine
}

// GetGlobalLeaderboard returns the leaderboard of every attendant for a period.
func (s *Service) GetGlobalLeaderboard(ctx context.Context, period string, limit, offset int) (*Result, error) {
	f := s.periodFilters(period)
	f.Limit, f.Offset = s.normalizeLimit(limit), offset
	return s.GetLeaderboard(ctx, "global", f)
}

// GetDepartmentLeaderboard returns the leaderboard of one department.
func (s *Service) GetDepartmentLeaderboard(ctx context.Context, department, period string, limit, offset int) (*Result, error) {
	f := s.periodFilters(period)
	f.Department = department
	f.Limit, f.Offset = s.normalizeLimit(limit), offset
	return s.GetLeaderboard(ctx, "department", f)
}

// GetSeasonLeaderboard returns the leaderboard of XP earned during a season.
func (s *Service) GetSeasonLeaderboard(ctx context.Context, seasonID uint, limit, offset int) (*Result, error) {
	season, err := s.seasonRepo.GetByID(seasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to get season %d: %w", seasonID, err)
	}

	f := Filters{
		From:     &season.StartTime,
		To:       &season.EndTime,
		SeasonID: &season.ID,
		Limit:    s.normalizeLimit(limit),
		Offset:   offset,
	}
	return s.GetLeaderboard(ctx, "season", f)
}

// GetLeaderboard generates a leaderboard for arbitrary filters, serving it
// from the cache when possible. scope only labels metrics.
func (s *Service) GetLeaderboard(ctx context.Context, scope string, f Filters) (*Result, error) {
	key := cacheKey(f)
	if result, ok := s.fromCache(ctx, key); ok {
		return result, nil
	}

	start := time.Now()
	in, err := s.LoadSnapshot(ctx, f.From, f.To)
	if err != nil {
		return nil, err
	}
	result := s.engine.Generate(in, f)
	metrics.ObserveLeaderboardGeneration(scope, time.Since(start).Seconds())

	s.log.Debug().
		Str("scope", scope).
		Int("participants", result.TotalParticipants).
		Int("entries", len(result.Entries)).
		Msg("Generated leaderboard")

	s.toCache(ctx, key, &result)
	return &result, nil
}

// FindPosition returns an attendant's position under f, ignoring pagination.
func (s *Service) FindPosition(ctx context.Context, attendantID uint, f Filters) (*Position, error) {
	in, err := s.LoadSnapshot(ctx, f.From, f.To)
	if err != nil {
		return nil, err
	}
	pos := s.engine.FindPosition(attendantID, in, f)
	return &pos, nil
}

// ErrInvalidPeriod is returned for period names outside ValidPeriod.
var ErrInvalidPeriod = errors.New("invalid period")

// GetInsights compares the leaderboard of period with the preceding window
// of the same length. All time compares the last week.
func (s *Service) GetInsights(ctx context.Context, period string) (*Insights, error) {
	if !ValidPeriod(period) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}
	if period == "" || period == PeriodAllTime {
		period = PeriodWeek
	}
	current := s.periodFilters(period)
	if current.From == nil || current.To == nil {
		return nil, fmt.Errorf("%w: %q has no window", ErrInvalidPeriod, period)
	}
	length := current.To.Sub(*current.From)
	prevTo := current.From.Add(-time.Nanosecond)
	prevFrom := current.From.Add(-length)
	previous := Filters{From: &prevFrom, To: &prevTo}

	g, gctx := errgroup.WithContext(ctx)
	var cur, prev *Result
	g.Go(func() error {
		var err error
		cur, err = s.GetLeaderboard(gctx, "insights", current)
		return err
	})
	g.Go(func() error {
		var err error
		prev, err = s.GetLeaderboard(gctx, "insights", previous)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ic := s.cfg.Insights
	return &Insights{
		MostImproved:   MostImproved(cur.Entries, prev.Entries, ic.TopN),
		RisingStars:    RisingStars(cur.Entries, prev.Entries, ic.PositionDrop, ic.TopN),
		NeedsAttention: NeedsAttention(cur.Entries, prev.Entries, ic.LowRatingThreshold, ic.PositionDrop),
	}, nil
}

// LoadSnapshot loads attendants plus the events and evaluations inside
// [from, to] concurrently.
func (s *Service) LoadSnapshot(ctx context.Context, from, to *time.Time) (*Input, error) {
	in := &Input{}
	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		attendants, err := s.attendantRepo.GetAll()
		if err != nil {
			return fmt.Errorf("failed to get attendants: %w", err)
		}
		in.Attendants = attendants
		return nil
	})
	g.Go(func() error {
		events, err := s.eventRepo.GetByDateRange(from, to)
		if err != nil {
			return fmt.Errorf("failed to get xp events: %w", err)
		}
		in.Events = events
		return nil
	})
	g.Go(func() error {
		evals, err := s.evalRepo.GetByDateRange(from, to)
		if err != nil {
			return fmt.Errorf("failed to get evaluations: %w", err)
		}
		in.Evaluations = evals
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return in, nil
}

// Invalidate drops every cached leaderboard.
func (s *Service) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	keys, err := s.cache.SMembers(ctx, cacheIndexKey)
	if err != nil {
		return fmt.Errorf("failed to list cached leaderboards: %w", err)
	}
	if err := s.cache.Del(ctx, append(keys, cacheIndexKey)...); err != nil {
		return fmt.Errorf("failed to invalidate leaderboards: %w", err)
	}
	s.log.Debug().Int("keys", len(keys)).Msg("Invalidated cached leaderboards")
	return nil
}

func (s *Service) fromCache(ctx context.Context, key string) (*Result, bool) {
	if s.cache == nil || s.cfg.Leaderboard.CacheTTL <= 0 {
		return nil, false
	}

	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Failed to read cached leaderboard")
		return nil, false
	}
	if raw == "" {
		metrics.RecordLeaderboardCache(false)
		return nil, false
	}

	var result Result
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Discarding corrupt cached leaderboard")
		return nil, false
	}
	metrics.RecordLeaderboardCache(true)
	return &result, true
}

func (s *Service) toCache(ctx context.Context, key string, result *Result) {
	if s.cache == nil || s.cfg.Leaderboard.CacheTTL <= 0 {
		return
	}

	raw, err := json.Marshal(result)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to encode leaderboard for cache")
		return
	}
	if err := s.cache.Set(ctx, key, string(raw), s.cfg.Leaderboard.CacheTTL); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Failed to cache leaderboard")
		return
	}
	if err := s.cache.SAdd(ctx, cacheIndexKey, key); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Failed to index cached leaderboard")
	}
}

// cacheKey derives a stable key from the filters.
func cacheKey(f Filters) string {
	raw, _ := json.Marshal(f)
	return cacheKeyPrefix + uuid.NewSHA1(uuid.NameSpaceOID, raw).String()
}

func (s *Service) normalizeLimit(limit int) int {
	lc := s.cfg.Leaderboard
	if limit <= 0 {
		limit = lc.DefaultLimit
	}
	if lc.MaxLimit > 0 && limit > lc.MaxLimit {
		limit = lc.MaxLimit
	}
	return limit
}

// Period names accepted by the period-scoped leaderboards.
const (
	PeriodDay     = "day"
	PeriodWeek    = "week"
	PeriodMonth   = "month"
	PeriodYear    = "year"
	PeriodAllTime = "all_time"
)

// ValidPeriod reports whether period is a known period name or empty.
func ValidPeriod(period string) bool {
	switch period {
	case "", PeriodDay, PeriodWeek, PeriodMonth, PeriodYear, PeriodAllTime:
		return true
	}
	return false
}

// periodFilters returns the date filters of period ending at the service
// clock. Bounds are truncated to the minute so repeated calls share a cache
// key. Unknown periods mean all time.
func (s *Service) periodFilters(period string) Filters {
	from, to := calculatePeriodRange(period, s.now().Truncate(time.Minute))
	return Filters{From: from, To: to}
}

// calculatePeriodRange calculates the start and end dates for a period.
// All time has no bounds.
func calculatePeriodRange(period string, now time.Time) (startDate, endDate *time.Time) {
	var start time.Time
	switch period {
	case PeriodDay:
		start = now.Add(-24 * time.Hour)
	case PeriodWeek:
		start = now.Add(-7 * 24 * time.Hour)
	case PeriodMonth:
		start = now.Add(-30 * 24 * time.Hour)
	case PeriodYear:
		start = now.Add(-365 * 24 * time.Hour)
	default:
		return nil, nil
	}
	end := now
	return &start, &end
}
