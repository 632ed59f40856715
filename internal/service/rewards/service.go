// Package rewards turns recorded evaluations into XP ledger entries and
// achievement grants, and answers per-attendant progress queries.
package rewards

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/csat-hub/attendant-rewards/internal/config"
	"github.com/csat-hub/attendant-rewards/internal/mattermost"
	"github.com/csat-hub/attendant-rewards/internal/metrics"
	"github.com/csat-hub/attendant-rewards/internal/models"
	"github.com/csat-hub/attendant-rewards/internal/repository"
	"github.com/csat-hub/attendant-rewards/internal/service/achievements"
	"github.com/csat-hub/attendant-rewards/internal/service/levels"
	"github.com/csat-hub/attendant-rewards/internal/service/seasons"
	"github.com/csat-hub/attendant-rewards/internal/service/xp"
	"github.com/csat-hub/attendant-rewards/pkg/logger"
)

// ErrInvalidRating is returned for ratings outside 1..5.
var ErrInvalidRating = errors.New("rating must be between 1 and 5")

// AttendantRepository interface for attendant operations.
type AttendantRepository interface {
	GetAll() ([]models.Attendant, error)
	GetByID(id uint) (*models.Attendant, error)
}

// EvaluationRepository interface for evaluation operations.
type EvaluationRepository interface {
	GetByID(id uint) (*models.Evaluation, error)
	GetAll() ([]models.Evaluation, error)
	CreateWithXP(ev *models.Evaluation, build func(*models.Evaluation) models.XPEvent) (*models.XPEvent, error)
	DeleteWithXP(id uint) error
}

// XPEventRepository interface for XP ledger reads.
type XPEventRepository interface {
	SumByAttendant(attendantID uint) (int, error)
}

// AchievementRepository interface for the catalog and unlock records.
type AchievementRepository interface {
	GetAll() ([]models.Achievement, error)
	Upsert(a *models.Achievement) (bool, error)
	Grant(unlock *models.UnlockedAchievement, event *models.XPEvent) error
	GetUnlockedByAttendant(attendantID uint) ([]models.UnlockedAchievement, error)
	GetAllUnlocked() ([]models.UnlockedAchievement, error)
}

// SeasonRepository interface for season reads.
type SeasonRepository interface {
	List() ([]models.Season, error)
}

// LevelRewardRepository interface for level reward metadata.
type LevelRewardRepository interface {
	Upsert(reward *models.LevelReward) error
	GetByLevel(level int) (*models.LevelReward, error)
}

// SentimentRepository interface for sentiment side-table access.
type SentimentRepository interface {
	Upsert(analysis *models.SentimentAnalysis) error
	GetIndex() (models.SentimentIndex, error)
}

// Notifier announces achievement grants.
type Notifier interface {
	SendAchievementUnlocked(ctx context.Context, u mattermost.AchievementUnlock) error
}

// CacheInvalidator drops derived read models after the ledger changes.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Repositories groups the persistence dependencies of the service.
type Repositories struct {
	Attendants   AttendantRepository
	Evaluations  EvaluationRepository
	Events       XPEventRepository
	Achievements AchievementRepository
	Seasons      SeasonRepository
	LevelRewards LevelRewardRepository
	Sentiments   SentimentRepository
}

// NewRepositories binds the gorm repositories of db.
func NewRepositories(db *repository.DB) Repositories {
	return Repositories{
		Attendants:   repository.NewAttendantRepository(db),
		Evaluations:  repository.NewEvaluationRepository(db),
		Events:       repository.NewXPEventRepository(db),
		Achievements: repository.NewAchievementRepository(db),
		Seasons:      repository.NewSeasonRepository(db),
		LevelRewards: repository.NewLevelRewardRepository(db),
		Sentiments:   repository.NewSentimentRepository(db),
	}
}

// Service orchestrates evaluation recording and achievement grants.
type Service struct {
	repos       Repositories
	cfg         config.GamificationConfig
	curve       *levels.Curve
	notifier    Notifier
	invalidator CacheInvalidator
	log         *logger.Logger
	now         func() time.Time
}

// NewService creates a new rewards service. notifier and invalidator may be nil.
func NewService(
	repos Repositories,
	cfg config.GamificationConfig,
	notifier Notifier,
	invalidator CacheInvalidator,
	log *logger.Logger,
) *Service {
	return &Service{
		repos:       repos,
		cfg:         cfg,
		curve:       levels.FromConfig(&cfg.Levels),
		notifier:    notifier,
		invalidator: invalidator,
		log:         log,
		now:         time.Now,
	}
}

// WithClock replaces the service clock. Intended for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Curve returns the level curve in use.
func (s *Service) Curve() *levels.Curve {
	return s.curve
}

// EvaluationInput is a customer evaluation to record.
type EvaluationInput struct {
	AttendantID uint      `json:"attendant_id" binding:"required"`
	Rating      int       `json:"rating" binding:"required"`
	Comment     string    `json:"comment"`
	OccurredAt  time.Time `json:"occurred_at"`
	Sentiment   string    `json:"sentiment"`
	Summary     string    `json:"sentiment_summary"`
}

// Grant is an achievement granted during one operation.
type Grant struct {
	Achievement models.Achievement `json:"achievement"`
	XPGained    int                `json:"xp_gained"`
	UnlockedAt  time.Time          `json:"unlocked_at"`
}

// RecordResult is the outcome of recording an evaluation.
type RecordResult struct {
	Evaluation *models.Evaluation `json:"evaluation"`
	Event      *models.XPEvent    `json:"xp_event"`
	Unlocked   []Grant            `json:"unlocked"`
	TotalXP    int                `json:"total_xp"`
	Progress   levels.Progress    `json:"progress"`
}

// RecordEvaluation stores an evaluation together with its XP event, then
// grants any achievement the new history satisfies.
func (s *Service) RecordEvaluation(ctx context.Context, input EvaluationInput) (*RecordResult, error) {
	if !models.ValidRating(input.Rating) {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidRating, input.Rating)
	}

	attendant, err := s.repos.Attendants.GetByID(input.AttendantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get attendant %d: %w", input.AttendantID, err)
	}

	engine, err := s.xpEngine()
	if err != nil {
		return nil, err
	}

	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = s.now()
	}
	ev := &models.Evaluation{
		AttendantID: attendant.ID,
		Rating:      input.Rating,
		Comment:     input.Comment,
		OccurredAt:  occurredAt,
	}

	event, err := s.repos.Evaluations.CreateWithXP(ev, engine.ForEvaluation)
	if err != nil {
		return nil, fmt.Errorf("failed to record evaluation: %w", err)
	}

	metrics.RecordEvaluation(attendant.Department, ev.Rating)
	metrics.RecordXPAwarded(models.XPEventTypeEvaluation, event.Points)

	s.log.Info().
		Uint("attendant_id", attendant.ID).
		Uint("evaluation_id", ev.ID).
		Int("rating", ev.Rating).
		Int("xp", event.Points).
		Float64("multiplier", event.Multiplier).
		Msg("Evaluation recorded")

	if input.Sentiment != "" {
		analysis := &models.SentimentAnalysis{
			EvaluationID: ev.ID,
			Sentiment:    input.Sentiment,
			Summary:      input.Summary,
		}
		if err := s.repos.Sentiments.Upsert(analysis); err != nil {
			s.log.Warn().Err(err).Uint("evaluation_id", ev.ID).Msg("Failed to store sentiment analysis")
		}
	}

	grants, err := s.checkAttendant(ctx, attendant, engine)
	if err != nil {
		// The evaluation is already committed; a failed check is retried by the sweep.
		s.log.Error().Err(err).Uint("attendant_id", attendant.ID).Msg("Failed to check achievements")
	}

	s.invalidate(ctx)

	total, err := s.repos.Events.SumByAttendant(attendant.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum xp: %w", err)
	}

	return &RecordResult{
		Evaluation: ev,
		Event:      event,
		Unlocked:   grants,
		TotalXP:    total,
		Progress:   s.curve.Progress(total),
	}, nil
}

// DeleteEvaluation removes an evaluation and its XP event. Achievements
// already granted are kept.
func (s *Service) DeleteEvaluation(ctx context.Context, id uint) error {
	ev, err := s.repos.Evaluations.GetByID(id)
	if err != nil {
		return fmt.Errorf("failed to get evaluation %d: %w", id, err)
	}

	if err := s.repos.Evaluations.DeleteWithXP(id); err != nil {
		return fmt.Errorf("failed to delete evaluation %d: %w", id, err)
	}
	metrics.RecordEvaluationDeleted()

	s.log.Info().
		Uint("evaluation_id", id).
		Uint("attendant_id", ev.AttendantID).
		Int("xp_removed", ev.XPGained).
		Msg("Evaluation deleted")

	s.invalidate(ctx)
	return nil
}

// EvaluateAllAchievements checks the whole catalog against every attendant
// and grants what is missing. Returns the number of grants made.
func (s *Service) EvaluateAllAchievements(ctx context.Context) (int, error) {
	s.log.Info().Msg("Starting achievement evaluation for all attendants")
	start := time.Now()

	engine, err := s.xpEngine()
	if err != nil {
		return 0, err
	}
	snap, err := s.loadPopulation()
	if err != nil {
		return 0, err
	}
	unlocked, err := s.repos.Achievements.GetAllUnlocked()
	if err != nil {
		return 0, fmt.Errorf("failed to get unlocked achievements: %w", err)
	}

	byAttendant := make(map[uint][]models.UnlockedAchievement)
	for _, u := range unlocked {
		byAttendant[u.AttendantID] = append(byAttendant[u.AttendantID], u)
	}

	granted := 0
	for _, in := range achievements.PopulationInputs(snap.attendants, snap.evaluations, snap.sentiments) {
		if err := ctx.Err(); err != nil {
			return granted, err
		}
		grants := s.grantNew(ctx, in, snap.catalog, byAttendant[in.Attendant.ID], engine)
		granted += len(grants)
	}

	s.refreshHolderMetrics(snap.catalog)
	if granted > 0 {
		s.invalidate(ctx)
	}

	s.log.Info().
		Int("granted", granted).
		Int("attendants", len(snap.attendants)).
		Dur("duration", time.Since(start)).
		Msg("Completed achievement evaluation")

	return granted, nil
}

// checkAttendant grants the achievements newly satisfied by one attendant.
func (s *Service) checkAttendant(ctx context.Context, attendant *models.Attendant, engine *xp.Engine) ([]Grant, error) {
	snap, err := s.loadPopulation()
	if err != nil {
		return nil, err
	}
	previously, err := s.repos.Achievements.GetUnlockedByAttendant(attendant.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get unlocked achievements: %w", err)
	}

	var own []models.Evaluation
	for _, ev := range snap.evaluations {
		if ev.AttendantID == attendant.ID {
			own = append(own, ev)
		}
	}

	in := &achievements.Input{
		Attendant:      attendant,
		Evaluations:    own,
		AllEvaluations: snap.evaluations,
		AllAttendants:  snap.attendants,
		Sentiments:     snap.sentiments,
	}
	return s.grantNew(ctx, in, snap.catalog, previously, engine), nil
}

// grantNew persists every newly unlocked achievement of in. Failures are
// logged per achievement.
func (s *Service) grantNew(ctx context.Context, in *achievements.Input, catalog []models.Achievement, previously []models.UnlockedAchievement, engine *xp.Engine) []Grant {
	fresh, errs := achievements.NewlyUnlocked(catalog, in, previously)
	s.reportCriteriaErrors(errs)

	var grants []Grant
	for i := range fresh {
		a := &fresh[i]
		event := engine.ForAchievement(in.Attendant.ID, a)
		unlock := &models.UnlockedAchievement{
			AttendantID:   in.Attendant.ID,
			AchievementID: a.ID,
			UnlockedAt:    event.OccurredAt,
			XPGained:      event.Points,
		}

		err := s.repos.Achievements.Grant(unlock, &event)
		if errors.Is(err, repository.ErrAlreadyExists) {
			s.log.Debug().
				Uint("attendant_id", in.Attendant.ID).
				Str("achievement", a.Code).
				Msg("Achievement already granted")
			continue
		}
		if err != nil {
			s.log.Error().
				Err(err).
				Uint("attendant_id", in.Attendant.ID).
				Str("achievement", a.Code).
				Msg("Failed to grant achievement")
			continue
		}

		metrics.RecordAchievementUnlocked(a.Code, in.Attendant.Department)
		metrics.RecordXPAwarded(models.XPEventTypeAchievement, event.Points)

		s.log.Info().
			Uint("attendant_id", in.Attendant.ID).
			Str("achievement", a.Code).
			Int("xp", event.Points).
			Msg("Achievement unlocked")

		s.notifyUnlock(ctx, in.Attendant, a, event.Points)
		grants = append(grants, Grant{Achievement: *a, XPGained: event.Points, UnlockedAt: unlock.UnlockedAt})
	}
	return grants
}

func (s *Service) reportCriteriaErrors(errs []error) {
	for _, err := range errs {
		var cerr *achievements.CriteriaError
		code := ""
		if errors.As(err, &cerr) {
			code = cerr.Code
		}
		metrics.RecordAchievementEvaluationError(code)
		s.log.Warn().Err(err).Str("achievement", code).Msg("Skipping achievement with broken criteria")
	}
}

func (s *Service) notifyUnlock(ctx context.Context, attendant *models.Attendant, a *models.Achievement, points int) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.SendAchievementUnlocked(ctx, mattermost.AchievementUnlock{
		AttendantName:   attendant.Name,
		Department:      attendant.Department,
		AchievementName: a.Name,
		Description:     a.Description,
		Icon:            a.Icon,
		XPGained:        points,
	})
	if err != nil {
		metrics.RecordSchedulerNotificationFailed("achievement")
		s.log.Warn().Err(err).Str("achievement", a.Code).Msg("Failed to send achievement notification")
		return
	}
	metrics.RecordSchedulerNotificationSent("achievement")
}

func (s *Service) refreshHolderMetrics(catalog []models.Achievement) {
	unlocked, err := s.repos.Achievements.GetAllUnlocked()
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to refresh achievement holder metrics")
		return
	}
	holders := make(map[uint]int)
	for _, u := range unlocked {
		holders[u.AchievementID]++
	}
	for _, a := range catalog {
		metrics.SetAchievementHolders(a.Code, holders[a.ID])
	}
}

func (s *Service) invalidate(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Failed to invalidate leaderboard cache")
	}
}

// xpEngine binds the configured score table to the current season snapshot.
func (s *Service) xpEngine() (*xp.Engine, error) {
	list, err := s.repos.Seasons.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list seasons: %w", err)
	}
	return xp.NewEngineFromConfig(&s.cfg, seasons.NewRegistry(list)).WithClock(s.now), nil
}

type population struct {
	catalog     []models.Achievement
	attendants  []models.Attendant
	evaluations []models.Evaluation
	sentiments  models.SentimentIndex
}

func (s *Service) loadPopulation() (*population, error) {
	catalog, err := s.repos.Achievements.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to get achievements: %w", err)
	}
	attendants, err := s.repos.Attendants.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to get attendants: %w", err)
	}
	evaluations, err := s.repos.Evaluations.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to get evaluations: %w", err)
	}
	sentiments, err := s.repos.Sentiments.GetIndex()
	if err != nil {
		return nil, fmt.Errorf("failed to get sentiments: %w", err)
	}
	return &population{
		catalog:     catalog,
		attendants:  attendants,
		evaluations: evaluations,
		sentiments:  sentiments,
	}, nil
}
