package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/csat-hub/attendant-rewards/internal/models"
)

// AchievementRepository handles achievement catalog and grant operations.
type AchievementRepository struct {
	db *DB
}

// NewAchievementRepository creates a new achievement repository.
func NewAchievementRepository(db *DB) *AchievementRepository {
	return &AchievementRepository{db: db}
}

// Create creates a new achievement in the catalog.
func (r *AchievementRepository) Create(a *models.Achievement) error {
	return translate(r.db.Create(a).Error)
}

// Update saves an existing achievement.
func (r *AchievementRepository) Update(a *models.Achievement) error {
	return r.db.Save(a).Error
}

// Upsert creates the achievement or updates the one with the same code.
func (r *AchievementRepository) Upsert(a *models.Achievement) (created bool, err error) {
	existing, err := r.GetByCode(a.Code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true, r.Create(a)
	}
	if err != nil {
		return false, err
	}

	a.ID = existing.ID
	a.CreatedAt = existing.CreatedAt
	return false, r.db.Save(a).Error
}

// GetByID retrieves an achievement by its ID.
func (r *AchievementRepository) GetByID(id uint) (*models.Achievement, error) {
	var a models.Achievement
	if err := r.db.First(&a, id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// GetByCode retrieves an achievement by its code.
func (r *AchievementRepository) GetByCode(code string) (*models.Achievement, error) {
	var a models.Achievement
	if err := r.db.Where("code = ?", code).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAll retrieves the whole catalog, active or not.
func (r *AchievementRepository) GetAll() ([]models.Achievement, error) {
	var list []models.Achievement
	err := r.db.Order("id ASC").Find(&list).Error
	return list, err
}

// Grant records the unlock and its XP event in one transaction. A repeated
// grant returns ErrAlreadyExists and changes nothing.
func (r *AchievementRepository) Grant(unlock *models.UnlockedAchievement, event *models.XPEvent) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(unlock).Error; err != nil {
			return translate(err)
		}
		if event == nil {
			return nil
		}
		if err := tx.Create(event).Error; err != nil {
			return fmt.Errorf("failed to create xp event: %w", translate(err))
		}
		return nil
	})
}

// GetUnlockedByAttendant retrieves an attendant's unlocks with achievement
// details preloaded, newest first.
func (r *AchievementRepository) GetUnlockedByAttendant(attendantID uint) ([]models.UnlockedAchievement, error) {
	var unlocked []models.UnlockedAchievement
	err := r.db.
		Where("attendant_id = ?", attendantID).
		Preload("Achievement").
		Order("unlocked_at DESC").
		Find(&unlocked).Error
	return unlocked, err
}

// GetAllUnlocked retrieves every unlock.
func (r *AchievementRepository) GetAllUnlocked() ([]models.UnlockedAchievement, error) {
	var unlocked []models.UnlockedAchievement
	err := r.db.Order("id ASC").Find(&unlocked).Error
	return unlocked, err
}

// GetRecentlyUnlocked retrieves unlocks since a point in time.
func (r *AchievementRepository) GetRecentlyUnlocked(since time.Time) ([]models.UnlockedAchievement, error) {
	var unlocked []models.UnlockedAchievement
	err := r.db.
		Where("unlocked_at >= ?", since).
		Preload("Achievement").
		Order("unlocked_at DESC").
		Find(&unlocked).Error
	return unlocked, err
}

// GetHoldersCount returns how many attendants hold an achievement.
func (r *AchievementRepository) GetHoldersCount(achievementID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.UnlockedAchievement{}).
		Where("achievement_id = ?", achievementID).
		Count(&count).Error
	return count, err
}
