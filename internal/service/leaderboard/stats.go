package leaderboard

import (
	"context"
	"fmt"

	"github.com/csat-hub/attendant-rewards/internal/service/levels"
)

// AttendantStats represents leaderboard statistics for one attendant.
type AttendantStats struct {
	AttendantID        uint            `json:"attendant_id"`
	Name               string          `json:"name"`
	Department         string          `json:"department"`
	Period             string          `json:"period"`
	TotalXP            int             `json:"total_xp"`
	Progress           levels.Progress `json:"progress"`
	EvaluationsCount   int             `json:"evaluations_count"`
	AchievementsCount  int             `json:"achievements_count"`
	AverageRating      float64         `json:"average_rating"`
	GlobalPosition     int             `json:"global_position"`
	GlobalParticipants int             `json:"global_participants"`
	DepartmentPosition int             `json:"department_position"`
	DepartmentSize     int             `json:"department_size"`
}

// GetAttendantStats returns an attendant's totals and positions for a period.
func (s *Service) GetAttendantStats(ctx context.Context, attendantID uint, period string) (*AttendantStats, error) {
	attendant, err := s.attendantRepo.GetByID(attendantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get attendant: %w", err)
	}

	f := s.periodFilters(period)
	in, err := s.LoadSnapshot(ctx, f.From, f.To)
	if err != nil {
		return nil, err
	}

	stats := &AttendantStats{
		AttendantID: attendant.ID,
		Name:        attendant.Name,
		Department:  attendant.Department,
		Period:      period,
	}

	global := s.engine.FindPosition(attendantID, in, f)
	stats.GlobalPosition = global.Position
	stats.GlobalParticipants = global.TotalParticipants
	if global.Entry != nil {
		stats.TotalXP = global.Entry.TotalXP
		stats.EvaluationsCount = global.Entry.EvaluationsCount
		stats.AchievementsCount = global.Entry.AchievementsCount
		stats.AverageRating = global.Entry.AverageRating
	}
	stats.Progress = s.engine.Curve().Progress(stats.TotalXP)

	if attendant.Department != "" {
		df := f
		df.Department = attendant.Department
		dept := s.engine.FindPosition(attendantID, in, df)
		stats.DepartmentPosition = dept.Position
		stats.DepartmentSize = dept.TotalParticipants
	} else {
		s.log.Debug().Uint("attendant_id", attendantID).Msg("Attendant has no department, skipping department rank")
	}

	return stats, nil
}
