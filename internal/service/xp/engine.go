// Package xp converts evaluations and achievement grants into XP ledger
// events and folds the ledger into totals.
package xp

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/csat-hub/attendant-rewards/internal/config"
	"github.com/csat-hub/attendant-rewards/internal/models"
	"github.com/csat-hub/attendant-rewards/internal/service/seasons"
)

// RatingScoreTable maps a star rating to its signed base XP.
type RatingScoreTable map[int]int

// DefaultRatingScores returns the built-in rating score table.
func DefaultRatingScores() RatingScoreTable {
	return RatingScoreTable(config.Defaults().RatingScores)
}

// Validate checks that every accepted rating has a score.
func (t RatingScoreTable) Validate() error {
	var problems []string
	for r := models.MinRating; r <= models.MaxRating; r++ {
		if _, ok := t[r]; !ok {
			problems = append(problems, fmt.Sprintf("rating_scores is missing rating %d", r))
		}
	}
	if len(problems) > 0 {
		return &config.ConfigurationError{Section: "rating_scores", Problems: problems}
	}
	return nil
}

// BaseXP looks up the base XP for rating. A missing key yields 0.
func BaseXP(rating int, table RatingScoreTable) int {
	return table[rating]
}

// FinalXP returns round(base * global * season), rounding half away from zero.
func FinalXP(base int, global, season float64) int {
	v := decimal.NewFromInt(int64(base)).
		Mul(decimal.NewFromFloat(global)).
		Mul(decimal.NewFromFloat(season)).
		Round(0)
	return int(v.IntPart())
}

// seasonMultiplier returns the multiplier and ID of s, or 1 and nil.
func seasonMultiplier(s *models.Season) (float64, *uint) {
	if s == nil {
		return 1, nil
	}
	id := s.ID
	return s.XPMultiplier, &id
}

// EventForEvaluation builds the ledger event for ev. season must be the
// season active at ev.OccurredAt, or nil.
func EventForEvaluation(ev *models.Evaluation, table RatingScoreTable, global float64, season *models.Season) models.XPEvent {
	mult, seasonID := seasonMultiplier(season)
	base := BaseXP(ev.Rating, table)

	return models.XPEvent{
		AttendantID: ev.AttendantID,
		Type:        models.XPEventTypeEvaluation,
		RelatedID:   ev.ID,
		BasePoints:  base,
		Multiplier:  global * mult,
		Points:      FinalXP(base, global, mult),
		Reason:      fmt.Sprintf("%d-star evaluation", ev.Rating),
		SeasonID:    seasonID,
		OccurredAt:  ev.OccurredAt,
	}
}

// EventForAchievement builds the ledger event for granting a to an attendant
// at now. season must be the season active at now, or nil.
func EventForAchievement(attendantID uint, a *models.Achievement, global float64, season *models.Season, now time.Time) models.XPEvent {
	mult, seasonID := seasonMultiplier(season)

	return models.XPEvent{
		AttendantID: attendantID,
		Type:        models.XPEventTypeAchievement,
		RelatedID:   a.ID,
		BasePoints:  a.XPReward,
		Multiplier:  global * mult,
		Points:      FinalXP(a.XPReward, global, mult),
		Reason:      fmt.Sprintf("achievement unlocked: %s", a.Name),
		SeasonID:    seasonID,
		OccurredAt:  now,
	}
}

// TotalXP sums the points of events.
func TotalXP(events []models.XPEvent) int {
	total := 0
	for i := range events {
		total = Accumulate(total, &events[i])
	}
	return total
}

// Accumulate adds one event to a running total.
func Accumulate(total int, event *models.XPEvent) int {
	return total + event.Points
}

// TotalsByAttendant sums points per attendant.
func TotalsByAttendant(events []models.XPEvent) map[uint]int {
	totals := make(map[uint]int)
	for i := range events {
		totals[events[i].AttendantID] = Accumulate(totals[events[i].AttendantID], &events[i])
	}
	return totals
}

// Engine binds a score table, global multiplier and season snapshot.
type Engine struct {
	table   RatingScoreTable
	global  float64
	seasons *seasons.Registry
	now     func() time.Time
}

// NewEngine creates an engine. A nil registry means no season ever applies.
func NewEngine(table RatingScoreTable, global float64, registry *seasons.Registry) *Engine {
	return &Engine{
		table:   table,
		global:  global,
		seasons: registry,
		now:     time.Now,
	}
}

// NewEngineFromConfig creates an engine from the gamification config.
func NewEngineFromConfig(cfg *config.GamificationConfig, registry *seasons.Registry) *Engine {
	return NewEngine(RatingScoreTable(cfg.RatingScores), cfg.GlobalXPMultiplier, registry)
}

// WithClock replaces the engine clock. Intended for tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// WithSeasons returns a copy of e bound to a different season snapshot.
func (e *Engine) WithSeasons(registry *seasons.Registry) *Engine {
	cp := *e
	cp.seasons = registry
	return &cp
}

// Table returns the rating score table.
func (e *Engine) Table() RatingScoreTable {
	return e.table
}

// GlobalMultiplier returns the process-wide multiplier.
func (e *Engine) GlobalMultiplier() float64 {
	return e.global
}

// Now returns the engine clock reading.
func (e *Engine) Now() time.Time {
	return e.now()
}

// ForEvaluation uses the season active when the evaluation occurred.
func (e *Engine) ForEvaluation(ev *models.Evaluation) models.XPEvent {
	return EventForEvaluation(ev, e.table, e.global, e.seasons.Active(ev.OccurredAt))
}

// ForAchievement uses the season active at the engine clock.
func (e *Engine) ForAchievement(attendantID uint, a *models.Achievement) models.XPEvent {
	now := e.now()
	return EventForAchievement(attendantID, a, e.global, e.seasons.Active(now), now)
}
