package models

import (
	"time"
)

// Season is a time-boxed period during which an extra XP multiplier applies.
type Season struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"not null;size:100" json:"name"`
	Description  string    `gorm:"type:text" json:"description"`
	StartTime    time.Time `gorm:"not null;index" json:"start_time"`
	EndTime      time.Time `gorm:"not null;index" json:"end_time"`
	Active       bool      `gorm:"not null" json:"active"`
	XPMultiplier float64   `gorm:"column:xp_multiplier;not null" json:"xp_multiplier"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName specifies the table name for Season model.
func (Season) TableName() string {
	return "seasons"
}

// Contains reports whether t falls within [StartTime, EndTime].
func (s *Season) Contains(t time.Time) bool {
	return !t.Before(s.StartTime) && !t.After(s.EndTime)
}

// Duration returns the configured length of the season.
func (s *Season) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}
