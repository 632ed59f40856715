package seasons

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csat-hub/attendant-rewards/internal/config"
	"github.com/csat-hub/attendant-rewards/internal/models"
	"github.com/csat-hub/attendant-rewards/pkg/logger"
	"github.com/csat-hub/attendant-rewards/test/mocks"
)

func TestService_CreateRejectsInvalidSeason(t *testing.T) {
	created := 0
	repo := &mocks.MockSeasonRepository{
		CreateFunc: func(*models.Season) error {
			created++
			return nil
		},
	}
	svc := NewService(repo, logger.Nop())

	bad := season(1, 10, 5, true, 1.5)
	err := svc.Create(context.Background(), &bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrConfiguration))
	assert.Equal(t, 0, created, "invalid season never reaches the repository")

	good := season(0, 1, 30, true, 1.5)
	require.NoError(t, svc.Create(context.Background(), &good))
	assert.Equal(t, 1, created)
}

func TestService_UpdateMissingSeason(t *testing.T) {
	repo := &mocks.MockSeasonRepository{
		GetByIDFunc: func(uint) (*models.Season, error) {
			return nil, errors.New("record not found")
		},
		UpdateFunc: func(*models.Season) error {
			t.Fatal("update must not be called")
			return nil
		},
	}
	svc := NewService(repo, logger.Nop())

	s := season(7, 1, 30, true, 1.5)
	err := svc.Update(context.Background(), &s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get season 7")
}

func TestService_Overview(t *testing.T) {
	list := []models.Season{
		season(1, 0, 10, true, 1.2),
		season(2, 20, 40, true, 1.5),
		season(3, 50, 60, true, 2),
	}
	repo := &mocks.MockSeasonRepository{
		ListFunc: func() ([]models.Season, error) { return list, nil },
	}
	now := day(30)
	svc := NewService(repo, logger.Nop()).WithClock(func() time.Time { return now })

	ov, err := svc.Overview(context.Background())
	require.NoError(t, err)

	require.NotNil(t, ov.Current)
	assert.Equal(t, uint(2), ov.Current.ID)
	require.NotNil(t, ov.CurrentProgress)
	assert.InDelta(t, 50.0, ov.CurrentProgress.Percent, 1e-9)
	require.NotNil(t, ov.Next)
	assert.Equal(t, uint(3), ov.Next.ID)
	require.NotNil(t, ov.Previous)
	assert.Equal(t, uint(1), ov.Previous.ID)
	assert.Equal(t, now, ov.At)
}

func TestService_OverviewWithoutSeasons(t *testing.T) {
	svc := NewService(&mocks.MockSeasonRepository{}, logger.Nop())

	ov, err := svc.Overview(context.Background())
	require.NoError(t, err)
	assert.Nil(t, ov.Current)
	assert.Nil(t, ov.CurrentProgress)
	assert.Nil(t, ov.Next)
	assert.Nil(t, ov.Previous)
}
