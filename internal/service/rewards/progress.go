package rewards

import (
	"context"
	"errors"
	"fmt"

	"github.com/csat-hub/attendant-rewards/internal/models"
	"github.com/csat-hub/attendant-rewards/internal/repository"
	"github.com/csat-hub/attendant-rewards/internal/service/achievements"
	"github.com/csat-hub/attendant-rewards/internal/service/levels"
	"github.com/csat-hub/attendant-rewards/internal/service/seasons"
)

// SeasonInfo describes the season active at query time.
type SeasonInfo struct {
	Season     *models.Season   `json:"season"`
	Multiplier float64          `json:"multiplier"`
	Progress   seasons.Progress `json:"progress"`
}

// Progress is an attendant's standing in the rewards system.
type Progress struct {
	Attendant        *models.Attendant  `json:"attendant"`
	TotalXP          int                `json:"total_xp"`
	Level            levels.Progress    `json:"level"`
	Title            string             `json:"title"`
	TitleDescription string             `json:"title_description,omitempty"`
	Achievements     achievements.Stats `json:"achievements"`
	Season           *SeasonInfo        `json:"season,omitempty"`
}

// GetProgress returns total XP, level progress, level title and the active
// season for an attendant.
//
//nolint:revive // ctx reserved for future context-aware operations (tracing, cancellation)
func (s *Service) GetProgress(ctx context.Context, attendantID uint) (*Progress, error) {
	attendant, err := s.repos.Attendants.GetByID(attendantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get attendant %d: %w", attendantID, err)
	}

	total, err := s.repos.Events.SumByAttendant(attendantID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum xp: %w", err)
	}

	catalog, err := s.repos.Achievements.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to get achievements: %w", err)
	}
	unlocked, err := s.repos.Achievements.GetUnlockedByAttendant(attendantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get unlocked achievements: %w", err)
	}

	p := &Progress{
		Attendant:    attendant,
		TotalXP:      total,
		Level:        s.curve.Progress(total),
		Achievements: achievements.AttendantStats(catalog, unlocked),
	}
	p.Title, p.TitleDescription = s.levelTitle(p.Level.Level)

	list, err := s.repos.Seasons.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list seasons: %w", err)
	}
	now := s.now()
	if active := seasons.NewRegistry(list).Active(now); active != nil {
		p.Season = &SeasonInfo{
			Season:     active,
			Multiplier: active.XPMultiplier * s.cfg.GlobalXPMultiplier,
			Progress:   seasons.ProgressAt(active, now),
		}
	}

	return p, nil
}

// levelTitle returns the reward title for level, or empty strings when no
// active reward is configured.
func (s *Service) levelTitle(level int) (string, string) {
	reward, err := s.repos.LevelRewards.GetByLevel(level)
	if errors.Is(err, repository.ErrNotFound) {
		s.log.Debug().Int("level", level).Msg("No level reward configured")
		return "", ""
	}
	if err != nil {
		s.log.Warn().Err(err).Int("level", level).Msg("Failed to get level reward")
		return "", ""
	}
	return reward.Title, reward.Description
}

// AchievementStatus is one catalog entry seen from one attendant.
type AchievementStatus struct {
	Achievement models.Achievement          `json:"achievement"`
	Unlocked    bool                        `json:"unlocked"`
	Unlock      *models.UnlockedAchievement `json:"unlock,omitempty"`
}

// AttendantAchievements is the catalog annotated with an attendant's unlocks.
type AttendantAchievements struct {
	Achievements []AchievementStatus `json:"achievements"`
	Stats        achievements.Stats  `json:"stats"`
}

// GetAttendantAchievements lists the active catalog plus any inactive
// achievement the attendant already holds.
//
//nolint:revive // ctx reserved for future context-aware operations (tracing, cancellation)
func (s *Service) GetAttendantAchievements(ctx context.Context, attendantID uint) (*AttendantAchievements, error) {
	if _, err := s.repos.Attendants.GetByID(attendantID); err != nil {
		return nil, fmt.Errorf("failed to get attendant %d: %w", attendantID, err)
	}
	catalog, err := s.repos.Achievements.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to get achievements: %w", err)
	}
	unlocked, err := s.repos.Achievements.GetUnlockedByAttendant(attendantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get unlocked achievements: %w", err)
	}

	held := make(map[uint]*models.UnlockedAchievement, len(unlocked))
	for i := range unlocked {
		held[unlocked[i].AchievementID] = &unlocked[i]
	}

	out := &AttendantAchievements{
		Achievements: make([]AchievementStatus, 0, len(catalog)),
		Stats:        achievements.AttendantStats(catalog, unlocked),
	}
	for _, a := range catalog {
		u := held[a.ID]
		if !a.Active && u == nil {
			continue
		}
		if u != nil {
			// the preloaded copy is redundant in the response
			u.Achievement = models.Achievement{}
		}
		out.Achievements = append(out.Achievements, AchievementStatus{Achievement: a, Unlocked: u != nil, Unlock: u})
	}
	return out, nil
}

// GetCatalog returns every achievement, active or not.
//
//nolint:revive // ctx reserved for future context-aware operations (tracing, cancellation)
func (s *Service) GetCatalog(ctx context.Context) ([]models.Achievement, error) {
	catalog, err := s.repos.Achievements.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to get achievements: %w", err)
	}
	return catalog, nil
}

// GetAchievementInsights returns, per active achievement, how many attendants
// currently satisfy it.
//
//nolint:revive // ctx reserved for future context-aware operations (tracing, cancellation)
func (s *Service) GetAchievementInsights(ctx context.Context) ([]achievements.Insight, error) {
	snap, err := s.loadPopulation()
	if err != nil {
		return nil, err
	}
	inputs := achievements.PopulationInputs(snap.attendants, snap.evaluations, snap.sentiments)
	return achievements.PopulationStats(snap.catalog, inputs), nil
}
