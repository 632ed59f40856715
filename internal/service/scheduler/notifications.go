package scheduler

import (
	"time"

	"github.com/csat-hub/attendant-rewards/internal/mattermost"
	"github.com/csat-hub/attendant-rewards/internal/models"
	"github.com/csat-hub/attendant-rewards/internal/service/leaderboard"
)

// buildDigestEntries transforms leaderboard entries into Mattermost digest lines.
func buildDigestEntries(result *leaderboard.Result) []mattermost.DigestEntry {
	if result == nil {
		return nil
	}

	entries := make([]mattermost.DigestEntry, 0, len(result.Entries))
	for _, e := range result.Entries {
		// attendants without XP in the period are left out
		if e.TotalXP <= 0 {
			continue
		}
		entries = append(entries, mattermost.DigestEntry{
			Position:   e.Position,
			Name:       e.Name,
			Department: e.Department,
			TotalXP:    e.TotalXP,
			Level:      e.Level,
		})
	}
	return entries
}

// seasonsToAnnounce returns the seasons that are running at now.
func seasonsToAnnounce(seasons []models.Season, now time.Time) []models.Season {
	var out []models.Season
	for _, s := range seasons {
		if s.Active && s.Contains(now) {
			out = append(out, s)
		}
	}
	return out
}
