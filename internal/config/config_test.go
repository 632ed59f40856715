package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigYAML = `
server:
  port: 9090
database:
  postgres:
    host: localhost
    database: rewards
    user: rewards
  redis:
    host: localhost
gamification:
  rating_scores:
    1: -10
    2: -4
    3: 0
    4: 4
    5: 10
  global_xp_multiplier: 1.25
  levels:
    max_level: 30
achievements:
  - name: First Steps
    xp_reward: 10
    criteria:
      kind: evaluation_count
      count: 1
level_rewards:
  - level: 5
    title: Rising Star
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, testConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port, "default port applied")
	assert.Equal(t, 10, cfg.Gamification.RatingScores[5])
	assert.Equal(t, -10, cfg.Gamification.RatingScores[1])
	assert.InDelta(t, 1.25, cfg.Gamification.GlobalXPMultiplier, 1e-9)
	assert.Equal(t, 30, cfg.Gamification.Levels.MaxLevel)
	assert.Equal(t, 100, cfg.Gamification.Levels.BaseXP, "unset level keys keep defaults")
	assert.Equal(t, time.Minute, cfg.Gamification.Leaderboard.CacheTTL)

	require.Len(t, cfg.Achievements, 1)
	assert.Equal(t, "evaluation_count", cfg.Achievements[0].Criteria["kind"])
	require.Len(t, cfg.LevelRewards, 1)
	assert.Equal(t, "Rising Star", cfg.LevelRewards[0].Title)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("GAMIFICATION_GLOBAL_XP_MULTIPLIER", "2")

	cfg, err := Load(writeConfig(t, testConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.InDelta(t, 2.0, cfg.Gamification.GlobalXPMultiplier, 1e-9)
}

func TestLoad_MissingRequired(t *testing.T) {
	_, err := Load(writeConfig(t, "server:\n  port: 8080\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.postgres.host is required")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestGamificationValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())

	cfg.GlobalXPMultiplier = 0
	delete(cfg.RatingScores, 3)
	cfg.Levels.MaxLevel = 1

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfiguration))

	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "gamification", cfgErr.Section)
	assert.Len(t, cfgErr.Problems, 3)
	assert.Contains(t, err.Error(), "rating_scores is missing rating 3")
}

func TestGamificationValidate_OutOfRangeRatingsSorted(t *testing.T) {
	cfg := Defaults()
	for _, rating := range []int{9, -1, 7, 0, 6} {
		cfg.RatingScores[rating] = 1
	}

	want := []string{
		"rating_scores has out-of-range rating -1",
		"rating_scores has out-of-range rating 0",
		"rating_scores has out-of-range rating 6",
		"rating_scores has out-of-range rating 7",
		"rating_scores has out-of-range rating 9",
	}
	for i := 0; i < 20; i++ {
		var cfgErr *ConfigurationError
		require.True(t, errors.As(cfg.Validate(), &cfgErr))
		assert.Equal(t, want, cfgErr.Problems)
	}
}

func TestGamificationMerge(t *testing.T) {
	base := Defaults()
	merged := base.Merge(GamificationConfig{
		RatingScores:       map[int]int{5: 8},
		GlobalXPMultiplier: 1.5,
		Levels:             LevelCurveConfig{MaxLevel: 20},
	})

	assert.Equal(t, 8, merged.RatingScores[5])
	assert.Equal(t, -5, merged.RatingScores[1])
	assert.InDelta(t, 1.5, merged.GlobalXPMultiplier, 1e-9)
	assert.Equal(t, 20, merged.Levels.MaxLevel)
	assert.Equal(t, base.Levels.BaseXP, merged.Levels.BaseXP)

	// base must be untouched
	assert.Equal(t, 5, base.RatingScores[5])
	assert.InDelta(t, 1.0, base.GlobalXPMultiplier, 1e-9)
}
