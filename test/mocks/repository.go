package mocks

import "github.com/csat-hub/attendant-rewards/internal/models"

// MockAttendantRepository is a simple mock for attendant repository
type MockAttendantRepository struct {
	GetAllFunc  func() ([]models.Attendant, error)
	GetByIDFunc func(id uint) (*models.Attendant, error)
}

func (m *MockAttendantRepository) GetAll() ([]models.Attendant, error) {
	if m.GetAllFunc != nil {
		return m.GetAllFunc()
	}
	return []models.Attendant{}, nil
}

func (m *MockAttendantRepository) GetByID(id uint) (*models.Attendant, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(id)
	}
	return nil, nil
}

// MockSeasonRepository is a simple mock for season repository
type MockSeasonRepository struct {
	CreateFunc  func(season *models.Season) error
	UpdateFunc  func(season *models.Season) error
	DeleteFunc  func(id uint) error
	GetByIDFunc func(id uint) (*models.Season, error)
	ListFunc    func() ([]models.Season, error)
}

func (m *MockSeasonRepository) Create(season *models.Season) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(season)
	}
	return nil
}

func (m *MockSeasonRepository) Update(season *models.Season) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(season)
	}
	return nil
}

func (m *MockSeasonRepository) Delete(id uint) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(id)
	}
	return nil
}

func (m *MockSeasonRepository) GetByID(id uint) (*models.Season, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(id)
	}
	return nil, nil
}

func (m *MockSeasonRepository) List() ([]models.Season, error) {
	if m.ListFunc != nil {
		return m.ListFunc()
	}
	return []models.Season{}, nil
}

// MockConfigurationRepository is a simple mock for configuration repository
type MockConfigurationRepository struct {
	GetFunc func(key string, out interface{}) (bool, error)
	SetFunc func(key string, value interface{}) error
}

func (m *MockConfigurationRepository) Get(key string, out interface{}) (bool, error) {
	if m.GetFunc != nil {
		return m.GetFunc(key, out)
	}
	return false, nil
}

func (m *MockConfigurationRepository) Set(key string, value interface{}) error {
	if m.SetFunc != nil {
		return m.SetFunc(key, value)
	}
	return nil
}
