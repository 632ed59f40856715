package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// Achievement is a one-time milestone gated by data-only criteria.
type Achievement struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Code        string         `gorm:"uniqueIndex;not null;size:100" json:"code"`
	Name        string         `gorm:"not null;size:100" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	Icon        string         `gorm:"size:50" json:"icon"` // icon name, resolved by the UI
	XPReward    int            `gorm:"column:xp_reward;not null;default:0" json:"xp_reward"`
	Active      bool           `gorm:"not null" json:"active"`
	Criteria    datatypes.JSON `gorm:"not null" json:"criteria"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// TableName specifies the table name for Achievement model.
func (Achievement) TableName() string {
	return "achievements"
}

// ParseCriteria decodes the stored criteria document.
func (a *Achievement) ParseCriteria() (AchievementCriteria, error) {
	var c AchievementCriteria
	if len(a.Criteria) == 0 {
		return c, fmt.Errorf("achievement %q has no criteria", a.Code)
	}
	if err := json.Unmarshal(a.Criteria, &c); err != nil {
		return c, fmt.Errorf("failed to parse criteria for %q: %w", a.Code, err)
	}
	return c, nil
}

// AchievementCriteria is the serialised unlock rule of an achievement. Kind
// selects which of the parameters are meaningful.
type AchievementCriteria struct {
	Version        int     `json:"version,omitempty" yaml:"version" mapstructure:"version"`
	Kind           string  `json:"kind" yaml:"kind" mapstructure:"kind"`
	Count          int     `json:"count,omitempty" yaml:"count" mapstructure:"count"`
	Rating         int     `json:"rating,omitempty" yaml:"rating" mapstructure:"rating"`
	Threshold      float64 `json:"threshold,omitempty" yaml:"threshold" mapstructure:"threshold"`
	MinEvaluations int     `json:"min_evaluations,omitempty" yaml:"min_evaluations" mapstructure:"min_evaluations"`
	Sentiment      string  `json:"sentiment,omitempty" yaml:"sentiment" mapstructure:"sentiment"`
}

// UnlockedAchievement records that an attendant earned an achievement.
// At most one row exists per (attendant, achievement).
type UnlockedAchievement struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	AttendantID   uint        `gorm:"not null;uniqueIndex:idx_unlocked_attendant_achievement,priority:1" json:"attendant_id"`
	AchievementID uint        `gorm:"not null;uniqueIndex:idx_unlocked_attendant_achievement,priority:2;index" json:"achievement_id"`
	Achievement   Achievement `gorm:"foreignKey:AchievementID" json:"achievement,omitempty"`
	UnlockedAt    time.Time   `gorm:"not null" json:"unlocked_at"`
	XPGained      int         `gorm:"column:xp_gained;default:0" json:"xp_gained"`
}

// TableName specifies the table name for UnlockedAchievement model.
func (UnlockedAchievement) TableName() string {
	return "unlocked_achievements"
}

// LevelReward is cosmetic metadata attached to reaching a level.
type LevelReward struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Level       int       `gorm:"uniqueIndex;not null" json:"level"`
	Title       string    `gorm:"size:100;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Active      bool      `gorm:"not null" json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for LevelReward model.
func (LevelReward) TableName() string {
	return "level_rewards"
}

// Configuration stores a runtime override document under a key.
type Configuration struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Key       string         `gorm:"uniqueIndex;not null;size:255" json:"key"`
	Value     datatypes.JSON `gorm:"not null" json:"value"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// TableName specifies the table name for Configuration model.
func (Configuration) TableName() string {
	return "configuration"
}
