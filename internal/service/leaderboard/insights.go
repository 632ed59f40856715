package leaderboard

import (
	"sort"
)

// Insight compares one attendant across two leaderboard snapshots.
type Insight struct {
	AttendantID      uint    `json:"attendant_id"`
	Name             string  `json:"name"`
	Department       string  `json:"department"`
	Position         int     `json:"position"`
	PreviousPosition int     `json:"previous_position"`
	PositionChange   int     `json:"position_change"` // positive means climbed
	XPDelta          int     `json:"xp_delta"`
	AverageRating    float64 `json:"average_rating"`
	Reason           string  `json:"reason,omitempty"`
}

// Insights groups the derived comparisons of two snapshots.
type Insights struct {
	MostImproved   []Insight `json:"most_improved"`
	RisingStars    []Insight `json:"rising_stars"`
	NeedsAttention []Insight `json:"needs_attention"`
}

// compare pairs each current entry with the previous snapshot. Attendants
// missing from previous are placed just below its last position.
func compare(current, previous []Entry) []Insight {
	prev := make(map[uint]Entry, len(previous))
	for _, e := range previous {
		prev[e.AttendantID] = e
	}

	out := make([]Insight, 0, len(current))
	for _, cur := range current {
		in := Insight{
			AttendantID:   cur.AttendantID,
			Name:          cur.Name,
			Department:    cur.Department,
			Position:      cur.Position,
			AverageRating: cur.AverageRating,
		}
		if p, ok := prev[cur.AttendantID]; ok {
			in.PreviousPosition = p.Position
			in.XPDelta = cur.TotalXP - p.TotalXP
		} else {
			in.PreviousPosition = len(previous) + 1
			in.XPDelta = cur.TotalXP
		}
		in.PositionChange = in.PreviousPosition - in.Position
		out = append(out, in)
	}
	return out
}

// MostImproved returns up to topN attendants with the largest positive XP
// gain between the two snapshots.
func MostImproved(current, previous []Entry, topN int) []Insight {
	var out []Insight
	for _, in := range compare(current, previous) {
		if in.XPDelta > 0 {
			in.Reason = "xp gain"
			out = append(out, in)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].XPDelta != out[j].XPDelta {
			return out[i].XPDelta > out[j].XPDelta
		}
		return out[i].Position < out[j].Position
	})
	return truncate(out, topN)
}

// RisingStars returns up to topN attendants who climbed at least minClimb
// positions.
func RisingStars(current, previous []Entry, minClimb, topN int) []Insight {
	if minClimb < 1 {
		minClimb = 1
	}
	var out []Insight
	for _, in := range compare(current, previous) {
		if in.PositionChange >= minClimb {
			in.Reason = "climbed positions"
			out = append(out, in)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PositionChange != out[j].PositionChange {
			return out[i].PositionChange > out[j].PositionChange
		}
		return out[i].Position < out[j].Position
	})
	return truncate(out, topN)
}

// NeedsAttention returns attendants whose average rating is below
// lowRating or who dropped at least minDrop positions, worst first.
func NeedsAttention(current, previous []Entry, lowRating float64, minDrop int) []Insight {
	if minDrop < 1 {
		minDrop = 1
	}
	var out []Insight
	for _, in := range compare(current, previous) {
		switch {
		case in.AverageRating > 0 && in.AverageRating < lowRating:
			in.Reason = "low average rating"
		case -in.PositionChange >= minDrop:
			in.Reason = "dropped positions"
		default:
			continue
		}
		out = append(out, in)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Position > out[j].Position
	})
	return out
}

func truncate(in []Insight, n int) []Insight {
	if n > 0 && len(in) > n {
		return in[:n]
	}
	return in
}
