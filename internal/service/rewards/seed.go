package rewards

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/gosimple/slug"
	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"

	"github.com/csat-hub/attendant-rewards/internal/config"
	"github.com/csat-hub/attendant-rewards/internal/models"
	"github.com/csat-hub/attendant-rewards/internal/service/achievements"
)

// ConfigurationKey is the key of the runtime gamification override document.
const ConfigurationKey = "gamification"

// ConfigurationRepository interface for runtime configuration documents.
type ConfigurationRepository interface {
	Get(key string, out interface{}) (bool, error)
	Set(key string, value interface{}) error
}

// Catalog is a seed file for achievements and level rewards.
type Catalog struct {
	Achievements []config.AchievementConfig `yaml:"achievements"`
	LevelRewards []config.LevelRewardConfig `yaml:"level_rewards"`
}

// LoadCatalogFile reads a YAML seed catalog.
func LoadCatalogFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}
	return &c, nil
}

// SeedResult counts the catalog rows touched by SeedCatalog.
type SeedResult struct {
	Created int
	Updated int
	Rewards int
}

// SeedCatalog upserts the configured achievements (by code) and level
// rewards (by level). Any invalid achievement aborts the seed before
// anything is written.
//
//nolint:revive // ctx reserved for future context-aware operations (tracing, cancellation)
func (s *Service) SeedCatalog(ctx context.Context, catalog *Catalog) (*SeedResult, error) {
	list := make([]models.Achievement, 0, len(catalog.Achievements))
	for i, ac := range catalog.Achievements {
		a, err := AchievementFromConfig(ac)
		if err != nil {
			return nil, fmt.Errorf("achievements[%d]: %w", i, err)
		}
		list = append(list, *a)
	}

	res := &SeedResult{}
	for i := range list {
		created, err := s.repos.Achievements.Upsert(&list[i])
		if err != nil {
			return res, fmt.Errorf("failed to upsert achievement %q: %w", list[i].Code, err)
		}
		if created {
			res.Created++
		} else {
			res.Updated++
		}
	}

	for _, rc := range catalog.LevelRewards {
		reward := &models.LevelReward{
			Level:       rc.Level,
			Title:       rc.Title,
			Description: rc.Description,
			Active:      true,
		}
		if err := s.repos.LevelRewards.Upsert(reward); err != nil {
			return res, fmt.Errorf("failed to upsert level reward %d: %w", rc.Level, err)
		}
		res.Rewards++
	}

	s.log.Info().
		Int("achievements_created", res.Created).
		Int("achievements_updated", res.Updated).
		Int("level_rewards", res.Rewards).
		Msg("Seeded rewards catalog")

	return res, nil
}

// AchievementFromConfig converts a seed entry into a model with validated
// criteria. The code defaults to a slug of the name and the criteria version
// to the current one.
func AchievementFromConfig(ac config.AchievementConfig) (*models.Achievement, error) {
	code := ac.Code
	if code == "" {
		code = slug.Make(ac.Name)
	}
	if code == "" {
		return nil, fmt.Errorf("achievement %q has no usable code", ac.Name)
	}

	raw, err := json.Marshal(ac.Criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to encode criteria for %q: %w", code, err)
	}
	var c achievements.Criteria
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("failed to decode criteria for %q: %w", code, err)
	}
	if c.Version == 0 {
		c.Version = achievements.CurrentVersion
	}
	if err := c.Validate(); err != nil {
		return nil, &achievements.CriteriaError{Code: code, Kind: c.Kind, Err: err}
	}

	normalised, err := json.Marshal(models.AchievementCriteria(c))
	if err != nil {
		return nil, fmt.Errorf("failed to encode criteria for %q: %w", code, err)
	}

	active := true
	if ac.Active != nil {
		active = *ac.Active
	}

	return &models.Achievement{
		Code:        code,
		Name:        ac.Name,
		Description: ac.Description,
		Icon:        ac.Icon,
		XPReward:    ac.XPReward,
		Active:      active,
		Criteria:    datatypes.JSON(normalised),
	}, nil
}

// LoadGamificationConfig merges the stored runtime override onto base and
// validates the result. A missing override yields base.
func LoadGamificationConfig(repo ConfigurationRepository, base config.GamificationConfig) (config.GamificationConfig, error) {
	var override config.GamificationConfig
	found, err := repo.Get(ConfigurationKey, &override)
	if err != nil {
		return base, fmt.Errorf("failed to load gamification override: %w", err)
	}

	merged := base
	if found {
		merged = base.Merge(override)
	}
	if err := merged.Validate(); err != nil {
		return base, err
	}
	return merged, nil
}
