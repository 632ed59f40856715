package leaderboard

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csat-hub/attendant-rewards/internal/config"
	"github.com/csat-hub/attendant-rewards/internal/models"
	"github.com/csat-hub/attendant-rewards/pkg/logger"
	"github.com/csat-hub/attendant-rewards/test/mocks"
)

// Mock repositories for testing
type mockAttendantRepository struct {
	attendants []models.Attendant
	calls      atomic.Int32
}

func (m *mockAttendantRepository) GetAll() ([]models.Attendant, error) {
	m.calls.Add(1)
	return m.attendants, nil
}

func (m *mockAttendantRepository) GetByID(id uint) (*models.Attendant, error) {
	for i := range m.attendants {
		if m.attendants[i].ID == id {
			return &m.attendants[i], nil
		}
	}
	return nil, errors.New("record not found")
}

type mockEventRepository struct {
	events []models.XPEvent
	err    error
}

func (m *mockEventRepository) GetByDateRange(from, to *time.Time) ([]models.XPEvent, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []models.XPEvent
	for _, e := range m.events {
		if from != nil && e.OccurredAt.Before(*from) {
			continue
		}
		if to != nil && e.OccurredAt.After(*to) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

type mockEvaluationRepository struct {
	evaluations []models.Evaluation
}

func (m *mockEvaluationRepository) GetByDateRange(from, to *time.Time) ([]models.Evaluation, error) {
	var out []models.Evaluation
	for _, e := range m.evaluations {
		if from != nil && e.OccurredAt.Before(*from) {
			continue
		}
		if to != nil && e.OccurredAt.After(*to) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

type mockSeasonRepository struct {
	seasons map[uint]*models.Season
}

func (m *mockSeasonRepository) GetByID(id uint) (*models.Season, error) {
	s, ok := m.seasons[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	return s, nil
}

type testFixture struct {
	service    *Service
	attendants *mockAttendantRepository
	events     *mockEventRepository
	cache      *mocks.MockCache
}

var now = time.Date(2026, 5, 20, 10, 0, 0, 0, time.UTC)

// Test setup helper
func setupTestService(t *testing.T) *testFixture {
	t.Helper()

	attendants := &mockAttendantRepository{attendants: []models.Attendant{
		{ID: 1, Name: "Ana", Department: "support"},
		{ID: 2, Name: "Bruno", Department: "support"},
		{ID: 3, Name: "Carla", Department: "billing"},
	}}
	season := uint(9)
	events := &mockEventRepository{events: []models.XPEvent{
		evalEvent(1, 11, 5, now.Add(-2*time.Hour)),
		evalEvent(1, 12, 3, now.Add(-3*time.Hour)),
		evalEvent(2, 21, 5, now.Add(-10*24*time.Hour)),
		achievementEvent(2, 1, 50, now.Add(-10*24*time.Hour)),
		{AttendantID: 3, Type: models.XPEventTypeEvaluation, RelatedID: 31, Points: 8, SeasonID: &season, OccurredAt: now.Add(-40 * 24 * time.Hour)},
	}}
	evals := &mockEvaluationRepository{evaluations: []models.Evaluation{
		{ID: 11, AttendantID: 1, Rating: 5, OccurredAt: now.Add(-2 * time.Hour)},
		{ID: 12, AttendantID: 1, Rating: 4, OccurredAt: now.Add(-3 * time.Hour)},
		{ID: 21, AttendantID: 2, Rating: 5, OccurredAt: now.Add(-10 * 24 * time.Hour)},
		{ID: 31, AttendantID: 3, Rating: 5, OccurredAt: now.Add(-40 * 24 * time.Hour)},
	}}
	seasonsRepo := &mockSeasonRepository{seasons: map[uint]*models.Season{
		9: {ID: 9, Name: "Spring", StartTime: now.Add(-45 * 24 * time.Hour), EndTime: now.Add(-35 * 24 * time.Hour), XPMultiplier: 1.5},
	}}
	cache := mocks.NewMockCache()

	svc := NewServiceWithInterfaces(attendants, events, evals, seasonsRepo, nil, cache, config.Defaults(), logger.Nop()).
		WithClock(func() time.Time { return now })

	return &testFixture{service: svc, attendants: attendants, events: events, cache: cache}
}

func TestGetGlobalLeaderboard(t *testing.T) {
	fx := setupTestService(t)

	result, err := fx.service.GetGlobalLeaderboard(context.Background(), PeriodAllTime, 0, 0)
	require.NoError(t, err)

	assert.Equal(t, []uint{2, 1, 3}, ids(result.Entries), "Ana beats Carla on evaluation count")
	assert.Equal(t, 3, result.TotalParticipants)
	assert.Equal(t, 55, result.Entries[0].TotalXP)
	assert.Equal(t, 1, result.Entries[0].AchievementsCount)
}

func TestGetGlobalLeaderboard_Period(t *testing.T) {
	fx := setupTestService(t)

	result, err := fx.service.GetGlobalLeaderboard(context.Background(), PeriodWeek, 0, 0)
	require.NoError(t, err)

	assert.Equal(t, []uint{1, 2, 3}, ids(result.Entries))
	assert.Equal(t, 8, result.Entries[0].TotalXP)
	assert.InDelta(t, 4.5, result.Entries[0].AverageRating, 1e-9)
	assert.Equal(t, 0, result.Entries[1].TotalXP)
}

func TestGetGlobalLeaderboard_LimitDefaults(t *testing.T) {
	fx := setupTestService(t)
	cfg := config.Defaults()
	cfg.Leaderboard.DefaultLimit = 2
	cfg.Leaderboard.MaxLimit = 2
	fx.service.cfg = cfg

	result, err := fx.service.GetGlobalLeaderboard(context.Background(), PeriodAllTime, 0, 0)
	require.NoError(t, err)
	assert.Len(t, result.Entries, 2)

	result, err = fx.service.GetGlobalLeaderboard(context.Background(), PeriodAllTime, 500, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, positions(result.Entries))
}

func TestGetDepartmentLeaderboard(t *testing.T) {
	fx := setupTestService(t)

	result, err := fx.service.GetDepartmentLeaderboard(context.Background(), "support", PeriodAllTime, 10, 0)
	require.NoError(t, err)

	assert.Equal(t, []uint{2, 1}, ids(result.Entries))
	assert.Equal(t, []int{1, 2}, positions(result.Entries))
	assert.Equal(t, 2, result.TotalParticipants)
}

func TestGetSeasonLeaderboard(t *testing.T) {
	fx := setupTestService(t)

	result, err := fx.service.GetSeasonLeaderboard(context.Background(), 9, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, uint(3), result.Entries[0].AttendantID)
	assert.Equal(t, 8, result.Entries[0].TotalXP)

	_, err = fx.service.GetSeasonLeaderboard(context.Background(), 404, 10, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get season 404")
}

func TestGetLeaderboard_Cache(t *testing.T) {
	fx := setupTestService(t)
	ctx := context.Background()

	first, err := fx.service.GetGlobalLeaderboard(ctx, PeriodAllTime, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int32(1), fx.attendants.calls.Load())

	second, err := fx.service.GetGlobalLeaderboard(ctx, PeriodAllTime, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int32(1), fx.attendants.calls.Load(), "served from cache")
	assert.Equal(t, first, second)

	require.NoError(t, fx.service.Invalidate(ctx))
	_, err = fx.service.GetGlobalLeaderboard(ctx, PeriodAllTime, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int32(2), fx.attendants.calls.Load())
}

func TestGetLeaderboard_RepositoryError(t *testing.T) {
	fx := setupTestService(t)
	fx.events.err = errors.New("connection reset")

	_, err := fx.service.GetGlobalLeaderboard(context.Background(), PeriodAllTime, 10, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get xp events")
}

func TestFindPosition_Service(t *testing.T) {
	fx := setupTestService(t)

	pos, err := fx.service.FindPosition(context.Background(), 1, Filters{})
	require.NoError(t, err)
	assert.Equal(t, 2, pos.Position)
	assert.Equal(t, 3, pos.TotalParticipants)
}

func TestGetAttendantStats(t *testing.T) {
	fx := setupTestService(t)

	stats, err := fx.service.GetAttendantStats(context.Background(), 1, PeriodAllTime)
	require.NoError(t, err)

	assert.Equal(t, "Ana", stats.Name)
	assert.Equal(t, 8, stats.TotalXP)
	assert.Equal(t, 2, stats.EvaluationsCount)
	assert.Equal(t, 2, stats.GlobalPosition)
	assert.Equal(t, 3, stats.GlobalParticipants)
	assert.Equal(t, 2, stats.DepartmentPosition)
	assert.Equal(t, 2, stats.DepartmentSize)
	assert.Equal(t, 1, stats.Progress.Level)

	_, err = fx.service.GetAttendantStats(context.Background(), 99, PeriodAllTime)
	assert.Error(t, err)
}

func TestGetInsights(t *testing.T) {
	fx := setupTestService(t)

	insights, err := fx.service.GetInsights(context.Background(), PeriodWeek)
	require.NoError(t, err)

	// Ana earned XP this week, Bruno only the week before
	require.NotEmpty(t, insights.MostImproved)
	assert.Equal(t, uint(1), insights.MostImproved[0].AttendantID)
	assert.Equal(t, 8, insights.MostImproved[0].XPDelta)
}

func TestGetInsights_UnknownPeriod(t *testing.T) {
	fx := setupTestService(t)

	insights, err := fx.service.GetInsights(context.Background(), "fortnight")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPeriod)
	assert.Nil(t, insights)
}

func TestGetInsights_AllTimeComparesLastWeek(t *testing.T) {
	fx := setupTestService(t)

	insights, err := fx.service.GetInsights(context.Background(), PeriodAllTime)
	require.NoError(t, err)
	require.NotEmpty(t, insights.MostImproved)
	assert.Equal(t, uint(1), insights.MostImproved[0].AttendantID)
}

func TestCalculatePeriodRange(t *testing.T) {
	from, to := calculatePeriodRange(PeriodDay, now)
	require.NotNil(t, from)
	require.NotNil(t, to)
	assert.Equal(t, 24*time.Hour, to.Sub(*from))

	from, to = calculatePeriodRange(PeriodAllTime, now)
	assert.Nil(t, from)
	assert.Nil(t, to)

	from, _ = calculatePeriodRange("fortnight", now)
	assert.Nil(t, from, "unknown periods mean all time")

	assert.True(t, ValidPeriod(PeriodMonth))
	assert.False(t, ValidPeriod("fortnight"))
}
