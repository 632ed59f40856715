package achievements

import (
	"github.com/csat-hub/attendant-rewards/internal/models"
)

// Input is the history an achievement is evaluated against. Evaluations
// belong to Attendant; the population fields are only read by
// population-wide criteria and may be nil.
type Input struct {
	Attendant      *models.Attendant
	Evaluations    []models.Evaluation
	AllEvaluations []models.Evaluation
	AllAttendants  []models.Attendant
	Sentiments     models.SentimentIndex
}

// IsUnlocked reports whether a is satisfied by in. Inactive achievements are
// never unlocked. Broken criteria return a *CriteriaError and false.
func IsUnlocked(a *models.Achievement, in *Input) (bool, error) {
	if !a.Active {
		return false, nil
	}
	c, err := ParseCriteria(a)
	if err != nil {
		return false, err
	}
	return c.Satisfied(in), nil
}

// UnlockedSet returns every achievement of catalog satisfied by in. Criteria
// errors are collected and the offending achievements skipped.
func UnlockedSet(catalog []models.Achievement, in *Input) ([]models.Achievement, []error) {
	var unlocked []models.Achievement
	var errs []error

	for i := range catalog {
		ok, err := IsUnlocked(&catalog[i], in)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			unlocked = append(unlocked, catalog[i])
		}
	}
	return unlocked, errs
}

// NewlyUnlocked returns the satisfied achievements that are not yet in
// previously for in.Attendant.
func NewlyUnlocked(catalog []models.Achievement, in *Input, previously []models.UnlockedAchievement) ([]models.Achievement, []error) {
	held := make(map[uint]bool, len(previously))
	for _, u := range previously {
		if in.Attendant == nil || u.AttendantID == in.Attendant.ID {
			held[u.AchievementID] = true
		}
	}

	unlocked, errs := UnlockedSet(catalog, in)
	fresh := make([]models.Achievement, 0, len(unlocked))
	for _, a := range unlocked {
		if !held[a.ID] {
			fresh = append(fresh, a)
		}
	}
	return fresh, errs
}

// Stats summarises an attendant's achievement progress over the active
// catalog.
type Stats struct {
	Total                   int     `json:"total"`
	UnlockedCount           int     `json:"unlocked_count"`
	LockedCount             int     `json:"locked_count"`
	ProgressPercent         float64 `json:"progress_percent"`
	TotalXPFromAchievements int     `json:"total_xp_from_achievements"`
}

// AttendantStats computes Stats from the catalog and the attendant's
// unlocked records. Unlocks of inactive or unknown achievements are ignored.
func AttendantStats(catalog []models.Achievement, unlocked []models.UnlockedAchievement) Stats {
	active := make(map[uint]bool)
	for _, a := range catalog {
		if a.Active {
			active[a.ID] = true
		}
	}

	var s Stats
	s.Total = len(active)
	seen := make(map[uint]bool)
	for _, u := range unlocked {
		if !active[u.AchievementID] || seen[u.AchievementID] {
			continue
		}
		seen[u.AchievementID] = true
		s.UnlockedCount++
		s.TotalXPFromAchievements += u.XPGained
	}
	s.LockedCount = s.Total - s.UnlockedCount
	if s.Total > 0 {
		s.ProgressPercent = 100 * float64(s.UnlockedCount) / float64(s.Total)
	}
	return s
}

// Insight reports how much of the population currently satisfies one
// achievement.
type Insight struct {
	AchievementID uint    `json:"achievement_id"`
	Code          string  `json:"code"`
	Name          string  `json:"name"`
	Holders       int     `json:"holders"`
	Percent       float64 `json:"percent"`
}

// PopulationStats evaluates every active achievement against each input.
// Achievements with broken criteria report zero holders.
func PopulationStats(catalog []models.Achievement, inputs []*Input) []Insight {
	insights := make([]Insight, 0, len(catalog))
	for i := range catalog {
		a := &catalog[i]
		if !a.Active {
			continue
		}

		insight := Insight{AchievementID: a.ID, Code: a.Code, Name: a.Name}
		c, err := ParseCriteria(a)
		if err == nil {
			for _, in := range inputs {
				if c.Satisfied(in) {
					insight.Holders++
				}
			}
		}
		if len(inputs) > 0 {
			insight.Percent = 100 * float64(insight.Holders) / float64(len(inputs))
		}
		insights = append(insights, insight)
	}
	return insights
}

// PopulationInputs splits a population snapshot into one Input per
// attendant, sharing the population slices.
func PopulationInputs(attendants []models.Attendant, evaluations []models.Evaluation, sentiments models.SentimentIndex) []*Input {
	byAttendant := make(map[uint][]models.Evaluation)
	for _, ev := range evaluations {
		byAttendant[ev.AttendantID] = append(byAttendant[ev.AttendantID], ev)
	}

	inputs := make([]*Input, 0, len(attendants))
	for i := range attendants {
		inputs = append(inputs, &Input{
			Attendant:      &attendants[i],
			Evaluations:    byAttendant[attendants[i].ID],
			AllEvaluations: evaluations,
			AllAttendants:  attendants,
			Sentiments:     sentiments,
		})
	}
	return inputs
}
