package repository

import (
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/csat-hub/attendant-rewards/internal/models"
)

// ConfigurationRepository stores runtime configuration documents.
type ConfigurationRepository struct {
	db *DB
}

// NewConfigurationRepository creates a new configuration repository.
func NewConfigurationRepository(db *DB) *ConfigurationRepository {
	return &ConfigurationRepository{db: db}
}

// Get decodes the document stored under key into out. It reports false when
// no document exists.
func (r *ConfigurationRepository) Get(key string, out interface{}) (bool, error) {
	var row models.Configuration
	err := r.db.Where("key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(row.Value, out); err != nil {
		return false, fmt.Errorf("failed to decode configuration %q: %w", key, err)
	}
	return true, nil
}

// Set stores value under key, replacing any previous document.
func (r *ConfigurationRepository) Set(key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode configuration %q: %w", key, err)
	}
	row := models.Configuration{Key: key, Value: datatypes.JSON(raw)}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
}
