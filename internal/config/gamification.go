package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrConfiguration is matched by every error that reports a malformed
// configuration invariant.
var ErrConfiguration = errors.New("configuration error")

// ConfigurationError lists the problems found in one configuration section.
type ConfigurationError struct {
	Section  string
	Problems []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s configuration: %s", e.Section, strings.Join(e.Problems, "; "))
}

// Is makes ConfigurationError match ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// GamificationConfig holds the tunables of the rewards engine.
type GamificationConfig struct {
	RatingScores       map[int]int       `mapstructure:"rating_scores" json:"rating_scores,omitempty"`
	GlobalXPMultiplier float64           `mapstructure:"global_xp_multiplier" json:"global_xp_multiplier,omitempty"`
	Levels             LevelCurveConfig  `mapstructure:"levels" json:"levels"`
	Leaderboard        LeaderboardConfig `mapstructure:"leaderboard" json:"leaderboard"`
	Insights           InsightsConfig    `mapstructure:"insights" json:"insights"`
}

// LevelCurveConfig parameterises the XP-to-level curve.
type LevelCurveConfig struct {
	BaseXP   int     `mapstructure:"base_xp" json:"base_xp,omitempty"`
	Exponent float64 `mapstructure:"exponent" json:"exponent,omitempty"`
	MaxLevel int     `mapstructure:"max_level" json:"max_level,omitempty"`
}

// LeaderboardConfig contains leaderboard serving settings.
type LeaderboardConfig struct {
	CacheTTL     time.Duration `mapstructure:"cache_ttl" json:"cache_ttl,omitempty"`
	DefaultLimit int           `mapstructure:"default_limit" json:"default_limit,omitempty"`
	MaxLimit     int           `mapstructure:"max_limit" json:"max_limit,omitempty"`
}

// InsightsConfig contains thresholds for leaderboard insights.
type InsightsConfig struct {
	TopN               int     `mapstructure:"top_n" json:"top_n,omitempty"`
	LowRatingThreshold float64 `mapstructure:"low_rating_threshold" json:"low_rating_threshold,omitempty"`
	PositionDrop       int     `mapstructure:"position_drop" json:"position_drop,omitempty"`
}

// Defaults returns the built-in gamification configuration.
func Defaults() GamificationConfig {
	return GamificationConfig{
		RatingScores:       map[int]int{1: -5, 2: -2, 3: 1, 4: 3, 5: 5},
		GlobalXPMultiplier: 1.0,
		Levels: LevelCurveConfig{
			BaseXP:   100,
			Exponent: 1.5,
			MaxLevel: 50,
		},
		Leaderboard: LeaderboardConfig{
			CacheTTL:     time.Minute,
			DefaultLimit: 10,
			MaxLimit:     1000,
		},
		Insights: InsightsConfig{
			TopN:               5,
			LowRatingThreshold: 3.0,
			PositionDrop:       3,
		},
	}
}

// Merge returns c with every non-zero field of override applied on top.
// Rating scores merge per key.
func (c GamificationConfig) Merge(override GamificationConfig) GamificationConfig {
	out := c
	out.RatingScores = make(map[int]int, len(c.RatingScores))
	for k, v := range c.RatingScores {
		out.RatingScores[k] = v
	}
	for k, v := range override.RatingScores {
		out.RatingScores[k] = v
	}

	if override.GlobalXPMultiplier != 0 {
		out.GlobalXPMultiplier = override.GlobalXPMultiplier
	}
	if override.Levels.BaseXP != 0 {
		out.Levels.BaseXP = override.Levels.BaseXP
	}
	if override.Levels.Exponent != 0 {
		out.Levels.Exponent = override.Levels.Exponent
	}
	if override.Levels.MaxLevel != 0 {
		out.Levels.MaxLevel = override.Levels.MaxLevel
	}
	if override.Leaderboard.CacheTTL != 0 {
		out.Leaderboard.CacheTTL = override.Leaderboard.CacheTTL
	}
	if override.Leaderboard.DefaultLimit != 0 {
		out.Leaderboard.DefaultLimit = override.Leaderboard.DefaultLimit
	}
	if override.Leaderboard.MaxLimit != 0 {
		out.Leaderboard.MaxLimit = override.Leaderboard.MaxLimit
	}
	if override.Insights.TopN != 0 {
		out.Insights.TopN = override.Insights.TopN
	}
	if override.Insights.LowRatingThreshold != 0 {
		out.Insights.LowRatingThreshold = override.Insights.LowRatingThreshold
	}
	if override.Insights.PositionDrop != 0 {
		out.Insights.PositionDrop = override.Insights.PositionDrop
	}
	return out
}

// Validate checks the gamification invariants that cannot be defaulted.
func (c *GamificationConfig) Validate() error {
	var problems []string

	for rating := 1; rating <= 5; rating++ {
		if _, ok := c.RatingScores[rating]; !ok {
			problems = append(problems, fmt.Sprintf("rating_scores is missing rating %d", rating))
		}
	}
	var outOfRange []int
	for rating := range c.RatingScores {
		if rating < 1 || rating > 5 {
			outOfRange = append(outOfRange, rating)
		}
	}
	sort.Ints(outOfRange)
	for _, rating := range outOfRange {
		problems = append(problems, fmt.Sprintf("rating_scores has out-of-range rating %d", rating))
	}
	if c.GlobalXPMultiplier <= 0 {
		problems = append(problems, "global_xp_multiplier must be greater than 0")
	}
	if c.Levels.BaseXP <= 0 {
		problems = append(problems, "levels.base_xp must be greater than 0")
	}
	if c.Levels.Exponent <= 0 {
		problems = append(problems, "levels.exponent must be greater than 0")
	}
	if c.Levels.MaxLevel < 2 {
		problems = append(problems, "levels.max_level must be at least 2")
	}
	if c.Leaderboard.CacheTTL < 0 {
		problems = append(problems, "leaderboard.cache_ttl must not be negative")
	}
	if c.Leaderboard.MaxLimit > 0 && c.Leaderboard.DefaultLimit > c.Leaderboard.MaxLimit {
		problems = append(problems, "leaderboard.default_limit exceeds leaderboard.max_limit")
	}

	if len(problems) > 0 {
		return &ConfigurationError{Section: "gamification", Problems: problems}
	}
	return nil
}
