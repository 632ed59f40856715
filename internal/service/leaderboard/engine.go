package leaderboard

import (
	"sort"
	"time"

	"github.com/csat-hub/attendant-rewards/internal/models"
	"github.com/csat-hub/attendant-rewards/internal/service/levels"
)

// Entry represents a single entry in a leaderboard.
type Entry struct {
	AttendantID       uint    `json:"attendant_id"`
	Name              string  `json:"name"`
	Department        string  `json:"department"`
	TotalXP           int     `json:"total_xp"`
	Level             int     `json:"level"`
	Position          int     `json:"position"`
	EvaluationsCount  int     `json:"evaluations_count"`
	AchievementsCount int     `json:"achievements_count"`
	AverageRating     float64 `json:"average_rating"`
}

// Filters narrows a leaderboard. Zero values disable a filter; a zero Limit
// returns every entry.
type Filters struct {
	From       *time.Time `json:"from,omitempty"`
	To         *time.Time `json:"to,omitempty"`
	SeasonID   *uint      `json:"season_id,omitempty"`
	Department string     `json:"department,omitempty"`
	MinLevel   int        `json:"min_level,omitempty"`
	MaxLevel   int        `json:"max_level,omitempty"`
	Offset     int        `json:"offset,omitempty"`
	Limit      int        `json:"limit,omitempty"`
}

// Input is a consistent snapshot of the population. Evaluations are only
// used to compute average ratings of evaluation events.
type Input struct {
	Attendants  []models.Attendant
	Events      []models.XPEvent
	Evaluations []models.Evaluation
}

// Result is a generated leaderboard page.
type Result struct {
	Entries           []Entry `json:"entries"`
	TotalParticipants int     `json:"total_participants"`
}

// Position is the outcome of looking up one attendant.
type Position struct {
	Position          int    `json:"position"`
	Entry             *Entry `json:"entry,omitempty"`
	TotalParticipants int    `json:"total_participants"`
}

// Engine ranks attendants by XP.
type Engine struct {
	curve *levels.Curve
}

// NewEngine creates an engine using curve to derive levels. A nil curve
// uses levels.Default.
func NewEngine(curve *levels.Curve) *Engine {
	if curve == nil {
		curve = levels.Default
	}
	return &Engine{curve: curve}
}

// Curve returns the level curve used by the engine.
func (e *Engine) Curve() *levels.Curve {
	return e.curve
}

type tally struct {
	xp           int
	evaluations  int
	achievements int
	ratingSum    int
	rated        int
}

// Generate ranks the filtered population. Positions are assigned before
// pagination so every page shows global positions.
func (e *Engine) Generate(in *Input, f Filters) Result {
	entries := e.rank(in, f)
	total := len(entries)

	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := total
	if f.Limit > 0 && offset+f.Limit < end {
		end = offset + f.Limit
	}

	return Result{Entries: entries[offset:end], TotalParticipants: total}
}

// FindPosition returns the attendant's position in the unpaginated
// leaderboard. Position is 0 when the attendant is filtered out.
func (e *Engine) FindPosition(attendantID uint, in *Input, f Filters) Position {
	f.Offset, f.Limit = 0, 0
	entries := e.rank(in, f)

	pos := Position{TotalParticipants: len(entries)}
	for i := range entries {
		if entries[i].AttendantID == attendantID {
			pos.Position = entries[i].Position
			pos.Entry = &entries[i]
			break
		}
	}
	return pos
}

func (e *Engine) rank(in *Input, f Filters) []Entry {
	ratings := make(map[uint]int, len(in.Evaluations))
	for _, ev := range in.Evaluations {
		ratings[ev.ID] = ev.Rating
	}

	tallies := make(map[uint]*tally)
	for i := range in.Events {
		ev := &in.Events[i]
		if !eventMatches(ev, f) {
			continue
		}
		t := tallies[ev.AttendantID]
		if t == nil {
			t = &tally{}
			tallies[ev.AttendantID] = t
		}
		t.xp += ev.Points
		switch ev.Type {
		case models.XPEventTypeEvaluation:
			t.evaluations++
			if r, ok := ratings[ev.RelatedID]; ok {
				t.ratingSum += r
				t.rated++
			}
		case models.XPEventTypeAchievement:
			t.achievements++
		}
	}

	entries := make([]Entry, 0, len(in.Attendants))
	for i := range in.Attendants {
		a := &in.Attendants[i]
		if f.Department != "" && a.Department != f.Department {
			continue
		}

		entry := Entry{AttendantID: a.ID, Name: a.Name, Department: a.Department}
		if t := tallies[a.ID]; t != nil {
			entry.TotalXP = t.xp
			entry.EvaluationsCount = t.evaluations
			entry.AchievementsCount = t.achievements
			if t.rated > 0 {
				entry.AverageRating = float64(t.ratingSum) / float64(t.rated)
			}
		}
		entry.Level = e.curve.LevelFromXP(entry.TotalXP)

		if f.MinLevel > 0 && entry.Level < f.MinLevel {
			continue
		}
		if f.MaxLevel > 0 && entry.Level > f.MaxLevel {
			continue
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := &entries[i], &entries[j]
		if a.TotalXP != b.TotalXP {
			return a.TotalXP > b.TotalXP
		}
		if a.EvaluationsCount != b.EvaluationsCount {
			return a.EvaluationsCount > b.EvaluationsCount
		}
		return a.AverageRating > b.AverageRating
	})

	for i := range entries {
		entries[i].Position = i + 1
	}
	return entries
}

func eventMatches(ev *models.XPEvent, f Filters) bool {
	if f.From != nil && ev.OccurredAt.Before(*f.From) {
		return false
	}
	if f.To != nil && ev.OccurredAt.After(*f.To) {
		return false
	}
	if f.SeasonID != nil && (ev.SeasonID == nil || *ev.SeasonID != *f.SeasonID) {
		return false
	}
	return true
}
