package repository

import (
	"time"

	"github.com/csat-hub/attendant-rewards/internal/models"
)

// XPEventRepository handles the XP ledger.
type XPEventRepository struct {
	db *DB
}

// NewXPEventRepository creates a new XP event repository.
func NewXPEventRepository(db *DB) *XPEventRepository {
	return &XPEventRepository{db: db}
}

// Create appends an event to the ledger. A second event for the same
// (attendant, type, related ID) returns ErrAlreadyExists.
func (r *XPEventRepository) Create(event *models.XPEvent) error {
	return translate(r.db.Create(event).Error)
}

// GetByAttendant retrieves an attendant's ledger in chronological order.
func (r *XPEventRepository) GetByAttendant(attendantID uint) ([]models.XPEvent, error) {
	var events []models.XPEvent
	err := r.db.
		Where("attendant_id = ?", attendantID).
		Order("occurred_at ASC, id ASC").
		Find(&events).Error
	return events, err
}

// GetByDateRange retrieves events whose OccurredAt lies in [from, to]. Nil
// bounds are open.
func (r *XPEventRepository) GetByDateRange(from, to *time.Time) ([]models.XPEvent, error) {
	query := r.db.Model(&models.XPEvent{})
	if from != nil {
		query = query.Where("occurred_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("occurred_at <= ?", *to)
	}

	var events []models.XPEvent
	err := query.Order("occurred_at ASC, id ASC").Find(&events).Error
	return events, err
}

// GetBySeason retrieves events earned during a season.
func (r *XPEventRepository) GetBySeason(seasonID uint) ([]models.XPEvent, error) {
	var events []models.XPEvent
	err := r.db.Where("season_id = ?", seasonID).Order("occurred_at ASC, id ASC").Find(&events).Error
	return events, err
}

// SumByAttendant returns the attendant's total XP computed by the database.
func (r *XPEventRepository) SumByAttendant(attendantID uint) (int, error) {
	var total int
	err := r.db.Model(&models.XPEvent{}).
		Where("attendant_id = ?", attendantID).
		Select("COALESCE(SUM(points), 0)").
		Scan(&total).Error
	return total, err
}
