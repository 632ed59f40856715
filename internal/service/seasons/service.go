package seasons

import (
	"context"
	"fmt"
	"time"

	"github.com/csat-hub/attendant-rewards/internal/models"
	"github.com/csat-hub/attendant-rewards/pkg/logger"
)

// SeasonRepository interface for season persistence.
type SeasonRepository interface {
	Create(season *models.Season) error
	Update(season *models.Season) error
	Delete(id uint) error
	GetByID(id uint) (*models.Season, error)
	List() ([]models.Season, error)
}

// Service manages seasons and answers current/next/previous queries.
type Service struct {
	repo SeasonRepository
	log  *logger.Logger
	now  func() time.Time
}

// NewService creates a new season service.
func NewService(repo SeasonRepository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log, now: time.Now}
}

// WithClock replaces the service clock. Intended for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Create validates and stores a new season.
//
//nolint:revive // ctx reserved for future context-aware operations (tracing, cancellation)
func (s *Service) Create(ctx context.Context, season *models.Season) error {
	if err := Validate(season); err != nil {
		return err
	}
	if err := s.repo.Create(season); err != nil {
		return fmt.Errorf("failed to create season: %w", err)
	}

	s.log.Info().
		Uint("season_id", season.ID).
		Str("name", season.Name).
		Time("start_time", season.StartTime).
		Time("end_time", season.EndTime).
		Float64("xp_multiplier", season.XPMultiplier).
		Msg("Season created")
	return nil
}

// Update validates and stores changes to an existing season.
//
//nolint:revive // ctx reserved for future context-aware operations (tracing, cancellation)
func (s *Service) Update(ctx context.Context, season *models.Season) error {
	if err := Validate(season); err != nil {
		return err
	}
	if _, err := s.repo.GetByID(season.ID); err != nil {
		return fmt.Errorf("failed to get season %d: %w", season.ID, err)
	}
	if err := s.repo.Update(season); err != nil {
		return fmt.Errorf("failed to update season: %w", err)
	}

	s.log.Info().Uint("season_id", season.ID).Msg("Season updated")
	return nil
}

// Delete removes a season.
//
//nolint:revive // ctx reserved for future context-aware operations (tracing, cancellation)
func (s *Service) Delete(ctx context.Context, id uint) error {
	if err := s.repo.Delete(id); err != nil {
		return fmt.Errorf("failed to delete season %d: %w", id, err)
	}
	s.log.Info().Uint("season_id", id).Msg("Season deleted")
	return nil
}

// List returns every season.
//
//nolint:revive // ctx reserved for future context-aware operations (tracing, cancellation)
func (s *Service) List(ctx context.Context) ([]models.Season, error) {
	seasons, err := s.repo.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list seasons: %w", err)
	}
	return seasons, nil
}

// Registry loads all seasons into a registry snapshot.
func (s *Service) Registry(ctx context.Context) (*Registry, error) {
	seasons, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return NewRegistry(seasons), nil
}

// Overview is the current/next/previous season view at a point in time.
type Overview struct {
	Current         *models.Season `json:"current"`
	CurrentProgress *Progress      `json:"current_progress,omitempty"`
	Next            *models.Season `json:"next"`
	Previous        *models.Season `json:"previous"`
	At              time.Time      `json:"at"`
}

// Overview returns the current, next, and previous seasons.
func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	reg, err := s.Registry(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	ov := &Overview{
		Current:  reg.Active(now),
		Next:     reg.Next(now),
		Previous: reg.Previous(now),
		At:       now,
	}
	if ov.Current != nil {
		p := ProgressAt(ov.Current, now)
		ov.CurrentProgress = &p
	}
	return ov, nil
}
