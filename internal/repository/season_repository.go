package repository

import (
	"github.com/csat-hub/attendant-rewards/internal/models"
)

// SeasonRepository handles season persistence.
type SeasonRepository struct {
	db *DB
}

// NewSeasonRepository creates a new season repository.
func NewSeasonRepository(db *DB) *SeasonRepository {
	return &SeasonRepository{db: db}
}

// Create creates a season.
func (r *SeasonRepository) Create(season *models.Season) error {
	return r.db.Create(season).Error
}

// Update saves a season.
func (r *SeasonRepository) Update(season *models.Season) error {
	return r.db.Save(season).Error
}

// Delete deletes a season.
func (r *SeasonRepository) Delete(id uint) error {
	res := r.db.Delete(&models.Season{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID retrieves a season by ID.
func (r *SeasonRepository) GetByID(id uint) (*models.Season, error) {
	var season models.Season
	if err := r.db.First(&season, id).Error; err != nil {
		return nil, err
	}
	return &season, nil
}

// List retrieves every season ordered by start time.
func (r *SeasonRepository) List() ([]models.Season, error) {
	var seasons []models.Season
	err := r.db.Order("start_time ASC, id ASC").Find(&seasons).Error
	return seasons, err
}
