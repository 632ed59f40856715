package repository

import (
	"gorm.io/gorm/clause"

	"github.com/csat-hub/attendant-rewards/internal/models"
)

// SentimentRepository stores classifier results for evaluations.
type SentimentRepository struct {
	db *DB
}

// NewSentimentRepository creates a new sentiment repository.
func NewSentimentRepository(db *DB) *SentimentRepository {
	return &SentimentRepository{db: db}
}

// Upsert stores the analysis, replacing any previous one for the evaluation.
func (r *SentimentRepository) Upsert(analysis *models.SentimentAnalysis) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "evaluation_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"sentiment", "summary", "confidence", "raw"}),
	}).Create(analysis).Error
}

// GetAll retrieves every analysis.
func (r *SentimentRepository) GetAll() ([]models.SentimentAnalysis, error) {
	var analyses []models.SentimentAnalysis
	err := r.db.Order("evaluation_id ASC").Find(&analyses).Error
	return analyses, err
}

// GetByEvaluationIDs retrieves analyses for the given evaluations.
func (r *SentimentRepository) GetByEvaluationIDs(ids []uint) ([]models.SentimentAnalysis, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var analyses []models.SentimentAnalysis
	err := r.db.Where("evaluation_id IN ?", ids).Find(&analyses).Error
	return analyses, err
}

// GetIndex returns every analysis as a sentiment index.
func (r *SentimentRepository) GetIndex() (models.SentimentIndex, error) {
	analyses, err := r.GetAll()
	if err != nil {
		return nil, err
	}
	return models.NewSentimentIndex(analyses), nil
}
