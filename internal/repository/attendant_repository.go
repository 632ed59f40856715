package repository

import (
	"github.com/csat-hub/attendant-rewards/internal/models"
)

// AttendantRepository handles attendant-related database operations.
type AttendantRepository struct {
	db *DB
}

// NewAttendantRepository creates a new attendant repository.
func NewAttendantRepository(db *DB) *AttendantRepository {
	return &AttendantRepository{db: db}
}

// Create creates a new attendant.
func (r *AttendantRepository) Create(attendant *models.Attendant) error {
	return r.db.Create(attendant).Error
}

// Update saves changes to an attendant.
func (r *AttendantRepository) Update(attendant *models.Attendant) error {
	return r.db.Save(attendant).Error
}

// GetByID retrieves an attendant by ID.
func (r *AttendantRepository) GetByID(id uint) (*models.Attendant, error) {
	var attendant models.Attendant
	if err := r.db.First(&attendant, id).Error; err != nil {
		return nil, err
	}
	return &attendant, nil
}

// GetByEmail retrieves an attendant by email.
func (r *AttendantRepository) GetByEmail(email string) (*models.Attendant, error) {
	var attendant models.Attendant
	if err := r.db.Where("email = ?", email).First(&attendant).Error; err != nil {
		return nil, err
	}
	return &attendant, nil
}

// GetAll retrieves every attendant ordered by ID, which is the input order
// used to keep leaderboard ties stable.
func (r *AttendantRepository) GetAll() ([]models.Attendant, error) {
	var attendants []models.Attendant
	err := r.db.Order("id ASC").Find(&attendants).Error
	return attendants, err
}

// GetByDepartment retrieves all attendants of a department.
func (r *AttendantRepository) GetByDepartment(department string) ([]models.Attendant, error) {
	var attendants []models.Attendant
	err := r.db.Where("department = ?", department).Order("id ASC").Find(&attendants).Error
	return attendants, err
}

// GetDepartments returns the distinct non-empty department names.
func (r *AttendantRepository) GetDepartments() ([]string, error) {
	var departments []string
	err := r.db.Model(&models.Attendant{}).
		Where("department <> ''").
		Distinct("department").
		Order("department ASC").
		Pluck("department", &departments).Error
	return departments, err
}
