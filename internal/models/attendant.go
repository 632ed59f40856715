// Package models defines domain models for the attendant rewards system.
package models

import (
	"time"
)

// Attendant represents a staff member who is evaluated by customers.
type Attendant struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"not null;size:255" json:"name"`
	Email      string    `gorm:"size:255;index" json:"email"`
	Department string    `gorm:"size:100;index" json:"department"`
	Role       string    `gorm:"size:50" json:"role"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Evaluations []Evaluation `gorm:"foreignKey:AttendantID;constraint:OnDelete:CASCADE" json:"evaluations,omitempty"`
}

// TableName specifies the table name for Attendant model.
func (Attendant) TableName() string {
	return "attendants"
}

// Evaluation is a single customer rating of an attendant.
// XPGained is the XP snapshot taken when the evaluation was recorded and is
// never recomputed afterwards.
type Evaluation struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	AttendantID uint      `gorm:"not null;index" json:"attendant_id"`
	Rating      int       `gorm:"not null" json:"rating"`
	Comment     string    `gorm:"type:text" json:"comment"`
	OccurredAt  time.Time `gorm:"not null;index" json:"occurred_at"`
	XPGained    int       `gorm:"column:xp_gained;default:0" json:"xp_gained"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName specifies the table name for Evaluation model.
func (Evaluation) TableName() string {
	return "evaluations"
}

// Rating bounds accepted at the input boundary.
const (
	MinRating = 1
	MaxRating = 5
)

// ValidRating reports whether r is one of the five accepted star ratings.
func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}
