package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/csat-hub/attendant-rewards/internal/models"
)

// LevelRewardRepository handles level reward metadata.
type LevelRewardRepository struct {
	db *DB
}

// NewLevelRewardRepository creates a new level reward repository.
func NewLevelRewardRepository(db *DB) *LevelRewardRepository {
	return &LevelRewardRepository{db: db}
}

// Upsert creates the reward or updates the one for the same level.
func (r *LevelRewardRepository) Upsert(reward *models.LevelReward) error {
	var existing models.LevelReward
	err := r.db.Where("level = ?", reward.Level).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.Create(reward).Error
	}
	if err != nil {
		return err
	}

	reward.ID = existing.ID
	reward.CreatedAt = existing.CreatedAt
	return r.db.Save(reward).Error
}

// GetByLevel retrieves the active reward for exactly level.
func (r *LevelRewardRepository) GetByLevel(level int) (*models.LevelReward, error) {
	var reward models.LevelReward
	if err := r.db.Where("level = ? AND active = ?", level, true).First(&reward).Error; err != nil {
		return nil, err
	}
	return &reward, nil
}

// GetAll retrieves every reward ordered by level.
func (r *LevelRewardRepository) GetAll() ([]models.LevelReward, error) {
	var rewards []models.LevelReward
	err := r.db.Order("level ASC").Find(&rewards).Error
	return rewards, err
}
