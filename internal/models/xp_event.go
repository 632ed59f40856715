package models

import (
	"time"
)

// XPEvent is an immutable ledger entry for one XP grant. The sum of Points
// over an attendant's events is their current XP.
type XPEvent struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	AttendantID uint      `gorm:"not null;uniqueIndex:idx_xp_events_source,priority:1;index" json:"attendant_id"`
	Type        string    `gorm:"size:20;not null;uniqueIndex:idx_xp_events_source,priority:2" json:"type"`
	RelatedID   uint      `gorm:"not null;uniqueIndex:idx_xp_events_source,priority:3" json:"related_id"`
	BasePoints  int       `gorm:"not null" json:"base_points"`
	Multiplier  float64   `gorm:"not null" json:"multiplier"`
	Points      int       `gorm:"not null" json:"points"`
	Reason      string    `gorm:"size:255" json:"reason"`
	SeasonID    *uint     `gorm:"index" json:"season_id,omitempty"`
	OccurredAt  time.Time `gorm:"not null;index" json:"occurred_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName specifies the table name for XPEvent model.
func (XPEvent) TableName() string {
	return "xp_events"
}

// XPEvent type constants.
const (
	XPEventTypeEvaluation  = "evaluation"
	XPEventTypeAchievement = "achievement"
)
