// Package seasons resolves which season applies at a point in time and
// validates season definitions.
package seasons

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/csat-hub/attendant-rewards/internal/config"
	"github.com/csat-hub/attendant-rewards/internal/models"
)

// MinDuration is the shortest season accepted.
const MinDuration = 24 * time.Hour

// ErrInvalidSeason is matched by every season validation failure.
var ErrInvalidSeason = errors.New("invalid season")

// ValidationError lists every problem found in a season definition.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid season: %s", strings.Join(e.Problems, "; "))
}

// Is matches ErrInvalidSeason and config.ErrConfiguration.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidSeason || target == config.ErrConfiguration
}

// Problems returns the validation problems of s. An empty result means the
// season is valid.
func Problems(s *models.Season) []string {
	var problems []string

	if strings.TrimSpace(s.Name) == "" {
		problems = append(problems, "name is required")
	}
	if !s.EndTime.After(s.StartTime) {
		problems = append(problems, "end time must be after start time")
	} else if s.Duration() < MinDuration {
		problems = append(problems, "season must last at least 1 day")
	}
	if s.XPMultiplier <= 0 {
		problems = append(problems, "xp multiplier must be greater than 0")
	}

	return problems
}

// Validate returns a *ValidationError when s violates a season invariant.
func Validate(s *models.Season) error {
	if problems := Problems(s); len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Active returns the active season containing now. When several qualify the
// most recently started one wins, then the lowest ID.
func Active(seasons []models.Season, now time.Time) *models.Season {
	var best *models.Season
	for i := range seasons {
		s := &seasons[i]
		if !s.Active || !s.Contains(now) {
			continue
		}
		if best == nil ||
			s.StartTime.After(best.StartTime) ||
			(s.StartTime.Equal(best.StartTime) && s.ID < best.ID) {
			best = s
		}
	}
	return best
}

// Next returns the active season with the earliest start strictly after now.
func Next(seasons []models.Season, now time.Time) *models.Season {
	var best *models.Season
	for i := range seasons {
		s := &seasons[i]
		if !s.Active || !s.StartTime.After(now) {
			continue
		}
		if best == nil ||
			s.StartTime.Before(best.StartTime) ||
			(s.StartTime.Equal(best.StartTime) && s.ID < best.ID) {
			best = s
		}
	}
	return best
}

// Previous returns the season with the latest end strictly before now.
func Previous(seasons []models.Season, now time.Time) *models.Season {
	var best *models.Season
	for i := range seasons {
		s := &seasons[i]
		if !s.EndTime.Before(now) {
			continue
		}
		if best == nil ||
			s.EndTime.After(best.EndTime) ||
			(s.EndTime.Equal(best.EndTime) && s.ID < best.ID) {
			best = s
		}
	}
	return best
}

// Progress describes how far now is into a season.
type Progress struct {
	Percent       float64 `json:"percent"`
	DaysElapsed   int     `json:"days_elapsed"`
	DaysRemaining int     `json:"days_remaining"`
}

// ProgressAt computes season progress at now, with now clamped into the
// season window. A season that has not started reports 0% and its full
// length remaining; one that has ended reports 100%.
func ProgressAt(s *models.Season, now time.Time) Progress {
	total := s.Duration()
	if total <= 0 {
		return Progress{}
	}

	elapsed := now.Sub(s.StartTime)
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > total {
		elapsed = total
	}
	remaining := total - elapsed

	return Progress{
		Percent:       math.Max(0, math.Min(100, 100*float64(elapsed)/float64(total))),
		DaysElapsed:   int(elapsed / (24 * time.Hour)),
		DaysRemaining: int(math.Ceil(float64(remaining) / float64(24*time.Hour))),
	}
}

// Registry answers season queries over a fixed snapshot of seasons.
type Registry struct {
	seasons []models.Season
}

// NewRegistry copies seasons into a new registry.
func NewRegistry(seasons []models.Season) *Registry {
	cp := make([]models.Season, len(seasons))
	copy(cp, seasons)
	return &Registry{seasons: cp}
}

// Seasons returns a copy of the registry contents.
func (r *Registry) Seasons() []models.Season {
	cp := make([]models.Season, len(r.seasons))
	copy(cp, r.seasons)
	return cp
}

// Active returns the season active at now, or nil.
func (r *Registry) Active(now time.Time) *models.Season {
	if r == nil {
		return nil
	}
	return Active(r.seasons, now)
}

// Next returns the next season after now, or nil.
func (r *Registry) Next(now time.Time) *models.Season {
	if r == nil {
		return nil
	}
	return Next(r.seasons, now)
}

// Previous returns the most recently finished season before now, or nil.
func (r *Registry) Previous(now time.Time) *models.Season {
	if r == nil {
		return nil
	}
	return Previous(r.seasons, now)
}

// MultiplierAt returns the XP multiplier in effect at t and the season that
// supplies it. Without an active season the multiplier is 1.
func (r *Registry) MultiplierAt(t time.Time) (float64, *models.Season) {
	s := r.Active(t)
	if s == nil {
		return 1, nil
	}
	return s.XPMultiplier, s
}
