// Package achievements decides which achievements an attendant has earned.
// Unlock rules are data-only criteria interpreted by a single switch.
package achievements

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/csat-hub/attendant-rewards/internal/models"
)

// Criteria kinds.
const (
	KindEvaluationCount   = "evaluation_count"
	KindConsecutiveRating = "consecutive_rating"
	KindAverageRating     = "average_rating"
	KindRatingCount       = "rating_count"
	KindSentimentCount    = "sentiment_count"
	KindCommentCount      = "comment_count"
	KindTopAverage        = "top_average"
)

// CurrentVersion is the newest criteria schema understood by the interpreter.
const CurrentVersion = 1

// Criteria errors.
var (
	ErrUnknownKind        = errors.New("unknown criteria kind")
	ErrUnsupportedVersion = errors.New("unsupported criteria version")
	ErrInvalidParameter   = errors.New("invalid criteria parameter")
)

// CriteriaError reports an achievement whose criteria could not be evaluated.
type CriteriaError struct {
	AchievementID uint
	Code          string
	Kind          string
	Err           error
}

func (e *CriteriaError) Error() string {
	return fmt.Sprintf("achievement %d (%s) criteria %q: %v", e.AchievementID, e.Code, e.Kind, e.Err)
}

func (e *CriteriaError) Unwrap() error {
	return e.Err
}

// Criteria is the decoded unlock rule of an achievement.
type Criteria models.AchievementCriteria

// ParseCriteria decodes and validates the criteria stored on a.
func ParseCriteria(a *models.Achievement) (Criteria, error) {
	raw, err := a.ParseCriteria()
	if err != nil {
		return Criteria{}, &CriteriaError{AchievementID: a.ID, Code: a.Code, Err: err}
	}
	c := Criteria(raw)
	if err := c.Validate(); err != nil {
		return c, &CriteriaError{AchievementID: a.ID, Code: a.Code, Kind: c.Kind, Err: err}
	}
	return c, nil
}

// Validate checks that the kind is known and its parameters are usable.
func (c Criteria) Validate() error {
	if c.Version > CurrentVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, c.Version)
	}

	switch c.Kind {
	case KindEvaluationCount, KindCommentCount:
		return requirePositive("count", c.Count)
	case KindConsecutiveRating, KindRatingCount:
		if err := requirePositive("count", c.Count); err != nil {
			return err
		}
		if !models.ValidRating(c.Rating) {
			return fmt.Errorf("%w: rating must be between %d and %d", ErrInvalidParameter, models.MinRating, models.MaxRating)
		}
	case KindAverageRating:
		if c.Threshold <= 0 || c.Threshold > models.MaxRating {
			return fmt.Errorf("%w: threshold must be in (0, %d]", ErrInvalidParameter, models.MaxRating)
		}
		if c.MinEvaluations < 0 {
			return fmt.Errorf("%w: min_evaluations must not be negative", ErrInvalidParameter)
		}
	case KindSentimentCount:
		if err := requirePositive("count", c.Count); err != nil {
			return err
		}
		if models.ParseSentimentLabel(c.Sentiment) == models.SentimentUnknown {
			return fmt.Errorf("%w: unknown sentiment %q", ErrInvalidParameter, c.Sentiment)
		}
	case KindTopAverage:
		if err := requirePositive("count", c.Count); err != nil {
			return err
		}
		if c.MinEvaluations < 0 {
			return fmt.Errorf("%w: min_evaluations must not be negative", ErrInvalidParameter)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, c.Kind)
	}
	return nil
}

func requirePositive(name string, v int) error {
	if v <= 0 {
		return fmt.Errorf("%w: %s must be greater than 0", ErrInvalidParameter, name)
	}
	return nil
}

// Satisfied evaluates c against in. c must have passed Validate.
func (c Criteria) Satisfied(in *Input) bool {
	evals := in.Evaluations

	switch c.Kind {
	case KindEvaluationCount:
		return len(evals) >= c.Count
	case KindConsecutiveRating:
		return longestStreak(evals, c.Rating) >= c.Count
	case KindAverageRating:
		minEvals := c.MinEvaluations
		if minEvals < 1 {
			minEvals = 1
		}
		return len(evals) >= minEvals && AverageRating(evals) >= c.Threshold
	case KindRatingCount:
		n := 0
		for i := range evals {
			if evals[i].Rating == c.Rating {
				n++
			}
		}
		return n >= c.Count
	case KindSentimentCount:
		want := models.ParseSentimentLabel(c.Sentiment)
		n := 0
		for i := range evals {
			if s, ok := in.Sentiments[evals[i].ID]; ok && s.Label == want {
				n++
			}
		}
		return n >= c.Count
	case KindCommentCount:
		n := 0
		for i := range evals {
			if strings.TrimSpace(evals[i].Comment) != "" {
				n++
			}
		}
		return n >= c.Count
	case KindTopAverage:
		return in.Attendant != nil && inTopAverage(in, c.Count, c.MinEvaluations)
	}
	return false
}

// AverageRating returns the mean rating of evals, or 0 when empty.
func AverageRating(evals []models.Evaluation) float64 {
	if len(evals) == 0 {
		return 0
	}
	sum := 0
	for i := range evals {
		sum += evals[i].Rating
	}
	return float64(sum) / float64(len(evals))
}

// chronological returns evals ordered by (OccurredAt, ID).
func chronological(evals []models.Evaluation) []models.Evaluation {
	sorted := make([]models.Evaluation, len(evals))
	copy(sorted, evals)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].OccurredAt.Equal(sorted[j].OccurredAt) {
			return sorted[i].OccurredAt.Before(sorted[j].OccurredAt)
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

// longestStreak returns the longest run of consecutive evaluations rated at
// least minRating.
func longestStreak(evals []models.Evaluation, minRating int) int {
	best, run := 0, 0
	for _, ev := range chronological(evals) {
		if ev.Rating >= minRating {
			run++
			if run > best {
				best = run
			}
		} else {
			run = 0
		}
	}
	return best
}

type ranked struct {
	attendantID uint
	average     float64
	count       int
}

// inTopAverage reports whether the input attendant is among the topN
// attendants by average rating, counting only attendants with at least
// minEvals evaluations. Ties rank by evaluation count, then attendant ID.
func inTopAverage(in *Input, topN, minEvals int) bool {
	if minEvals < 1 {
		minEvals = 1
	}

	byAttendant := make(map[uint][]models.Evaluation)
	for _, ev := range in.AllEvaluations {
		byAttendant[ev.AttendantID] = append(byAttendant[ev.AttendantID], ev)
	}

	eligible := make(map[uint]bool)
	if in.AllAttendants != nil {
		for i := range in.AllAttendants {
			eligible[in.AllAttendants[i].ID] = true
		}
	}

	rankings := make([]ranked, 0, len(byAttendant))
	for id, evals := range byAttendant {
		if in.AllAttendants != nil && !eligible[id] {
			continue
		}
		if len(evals) < minEvals {
			continue
		}
		rankings = append(rankings, ranked{attendantID: id, average: AverageRating(evals), count: len(evals)})
	}

	sort.Slice(rankings, func(i, j int) bool {
		if rankings[i].average != rankings[j].average {
			return rankings[i].average > rankings[j].average
		}
		if rankings[i].count != rankings[j].count {
			return rankings[i].count > rankings[j].count
		}
		return rankings[i].attendantID < rankings[j].attendantID
	})

	for i := 0; i < topN && i < len(rankings); i++ {
		if rankings[i].attendantID == in.Attendant.ID {
			return true
		}
	}
	return false
}
