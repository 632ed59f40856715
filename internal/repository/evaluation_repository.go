package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/csat-hub/attendant-rewards/internal/models"
)

// EvaluationRepository handles evaluation database operations.
type EvaluationRepository struct {
	db *DB
}

// NewEvaluationRepository creates a new evaluation repository.
func NewEvaluationRepository(db *DB) *EvaluationRepository {
	return &EvaluationRepository{db: db}
}

// GetByID retrieves an evaluation by ID.
func (r *EvaluationRepository) GetByID(id uint) (*models.Evaluation, error) {
	var ev models.Evaluation
	if err := r.db.First(&ev, id).Error; err != nil {
		return nil, err
	}
	return &ev, nil
}

// GetByAttendant retrieves an attendant's evaluations in chronological order.
func (r *EvaluationRepository) GetByAttendant(attendantID uint) ([]models.Evaluation, error) {
	var evals []models.Evaluation
	err := r.db.
		Where("attendant_id = ?", attendantID).
		Order("occurred_at ASC, id ASC").
		Find(&evals).Error
	return evals, err
}

// GetAll retrieves every evaluation in chronological order.
func (r *EvaluationRepository) GetAll() ([]models.Evaluation, error) {
	return r.GetByDateRange(nil, nil)
}

// GetByDateRange retrieves evaluations whose OccurredAt lies in [from, to].
// Nil bounds are open.
func (r *EvaluationRepository) GetByDateRange(from, to *time.Time) ([]models.Evaluation, error) {
	query := r.db.Model(&models.Evaluation{})
	if from != nil {
		query = query.Where("occurred_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("occurred_at <= ?", *to)
	}

	var evals []models.Evaluation
	err := query.Order("occurred_at ASC, id ASC").Find(&evals).Error
	return evals, err
}

// CreateWithXP stores ev and the XP event built from it in one transaction.
// build receives the evaluation with its ID assigned; the event's points are
// copied into ev.XPGained.
func (r *EvaluationRepository) CreateWithXP(ev *models.Evaluation, build func(*models.Evaluation) models.XPEvent) (*models.XPEvent, error) {
	var event models.XPEvent
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(ev).Error; err != nil {
			return fmt.Errorf("failed to create evaluation: %w", err)
		}

		event = build(ev)
		if err := tx.Create(&event).Error; err != nil {
			return fmt.Errorf("failed to create xp event: %w", translate(err))
		}

		ev.XPGained = event.Points
		if err := tx.Model(ev).Update("xp_gained", event.Points).Error; err != nil {
			return fmt.Errorf("failed to snapshot xp: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// DeleteWithXP removes an evaluation together with its XP event and
// sentiment analysis.
func (r *EvaluationRepository) DeleteWithXP(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var ev models.Evaluation
		if err := tx.First(&ev, id).Error; err != nil {
			return err
		}
		if err := tx.
			Where("attendant_id = ? AND type = ? AND related_id = ?", ev.AttendantID, models.XPEventTypeEvaluation, ev.ID).
			Delete(&models.XPEvent{}).Error; err != nil {
			return fmt.Errorf("failed to delete xp event: %w", err)
		}
		if err := tx.Where("evaluation_id = ?", ev.ID).Delete(&models.SentimentAnalysis{}).Error; err != nil {
			return fmt.Errorf("failed to delete sentiment analysis: %w", err)
		}
		return tx.Delete(&ev).Error
	})
}

// CountByAttendant returns how many evaluations an attendant has.
func (r *EvaluationRepository) CountByAttendant(attendantID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Evaluation{}).Where("attendant_id = ?", attendantID).Count(&count).Error
	return count, err
}
