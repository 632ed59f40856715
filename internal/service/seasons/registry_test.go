package seasons

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csat-hub/attendant-rewards/internal/config"
	"github.com/csat-hub/attendant-rewards/internal/models"
)

var base = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time {
	return base.Add(time.Duration(n) * 24 * time.Hour)
}

func season(id uint, start, end int, active bool, mult float64) models.Season {
	return models.Season{
		ID:           id,
		Name:         "season",
		StartTime:    day(start),
		EndTime:      day(end),
		Active:       active,
		XPMultiplier: mult,
	}
}

func TestActive(t *testing.T) {
	list := []models.Season{
		season(1, 0, 30, true, 1.5),
		season(2, 31, 60, true, 2),
		season(3, 0, 30, false, 3),
	}

	got := Active(list, day(10))
	require.NotNil(t, got)
	assert.Equal(t, uint(1), got.ID)

	assert.Nil(t, Active(list, day(30).Add(time.Hour)), "gap between seasons")
	assert.Equal(t, uint(1), Active(list, day(0)).ID, "start is inclusive")
	assert.Equal(t, uint(1), Active(list, day(30)).ID, "end is inclusive")
	assert.Nil(t, Active(nil, day(1)))
}

func TestActive_OverlapPicksLatestStart(t *testing.T) {
	list := []models.Season{
		season(1, 0, 30, true, 1.5),
		season(2, 5, 20, true, 2),
		season(3, 5, 25, true, 3),
	}

	got := Active(list, day(10))
	require.NotNil(t, got)
	assert.Equal(t, uint(2), got.ID, "latest start, then lowest id")

	// order of input does not matter
	reversed := []models.Season{list[2], list[1], list[0]}
	assert.Equal(t, uint(2), Active(reversed, day(10)).ID)
}

func TestNext(t *testing.T) {
	list := []models.Season{
		season(1, 0, 30, true, 1),
		season(2, 60, 90, true, 1),
		season(3, 40, 50, false, 1),
		season(4, 45, 55, true, 1),
	}

	got := Next(list, day(10))
	require.NotNil(t, got)
	assert.Equal(t, uint(4), got.ID, "inactive seasons are skipped")

	assert.Nil(t, Next(list, day(60)), "start must be strictly after now")
}

func TestPrevious(t *testing.T) {
	list := []models.Season{
		season(1, 0, 10, true, 1),
		season(2, 11, 20, false, 1),
		season(3, 21, 40, true, 1),
	}

	got := Previous(list, day(25))
	require.NotNil(t, got)
	assert.Equal(t, uint(2), got.ID, "previous ignores the active flag")

	assert.Nil(t, Previous(list, day(5)))
}

func TestProgressAt(t *testing.T) {
	s := season(1, 0, 10, true, 1)

	p := ProgressAt(&s, day(5))
	assert.InDelta(t, 50.0, p.Percent, 1e-9)
	assert.Equal(t, 5, p.DaysElapsed)
	assert.Equal(t, 5, p.DaysRemaining)

	p = ProgressAt(&s, day(-3))
	assert.Equal(t, 0.0, p.Percent)
	assert.Equal(t, 0, p.DaysElapsed)
	assert.Equal(t, 10, p.DaysRemaining)

	p = ProgressAt(&s, day(-90))
	assert.Equal(t, 10, p.DaysRemaining)

	p = ProgressAt(&s, day(15))
	assert.Equal(t, 100.0, p.Percent)
	assert.Equal(t, 10, p.DaysElapsed)
	assert.Equal(t, 0, p.DaysRemaining)
}

func TestValidate(t *testing.T) {
	valid := season(1, 0, 7, true, 1.5)
	assert.NoError(t, Validate(&valid))

	reversed := season(2, 10, 0, true, 1.5)
	err := Validate(&reversed)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidSeason))
	assert.True(t, errors.Is(err, config.ErrConfiguration))

	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.NotEmpty(t, vErr.Problems)
	assert.Contains(t, vErr.Problems, "end time must be after start time")

	short := models.Season{Name: "flash", StartTime: base, EndTime: base.Add(12 * time.Hour), XPMultiplier: 1}
	assert.Equal(t, []string{"season must last at least 1 day"}, Problems(&short))

	zero := season(3, 0, 7, true, 0)
	assert.Equal(t, []string{"xp multiplier must be greater than 0"}, Problems(&zero))

	unnamed := season(4, 0, 7, true, 1)
	unnamed.Name = "  "
	assert.Equal(t, []string{"name is required"}, Problems(&unnamed))
}

func TestRegistry(t *testing.T) {
	src := []models.Season{season(1, 0, 30, true, 1.5)}
	reg := NewRegistry(src)
	src[0].XPMultiplier = 9 // registry holds its own copy

	mult, s := reg.MultiplierAt(day(3))
	assert.InDelta(t, 1.5, mult, 1e-9)
	require.NotNil(t, s)
	assert.Equal(t, uint(1), s.ID)

	mult, s = reg.MultiplierAt(day(40))
	assert.Equal(t, 1.0, mult)
	assert.Nil(t, s)

	var nilReg *Registry
	mult, s = nilReg.MultiplierAt(day(3))
	assert.Equal(t, 1.0, mult)
	assert.Nil(t, s)
}
