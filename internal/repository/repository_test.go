package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/csat-hub/attendant-rewards/internal/config"
	"github.com/csat-hub/attendant-rewards/internal/models"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}

	// Enable foreign key constraints (SQLite default is off)
	gdb.Exec("PRAGMA foreign_keys = ON")

	db := &DB{gdb}
	if err := db.AutoMigrate(); err != nil {
		t.Fatalf("Failed to auto-migrate tables: %v", err)
	}
	return db
}

// createTestAttendant creates a test attendant in the database.
func createTestAttendant(t *testing.T, db *DB, name, department string) *models.Attendant {
	t.Helper()

	a := &models.Attendant{Name: name, Email: name + "@example.com", Department: department}
	require.NoError(t, NewAttendantRepository(db).Create(a))
	return a
}

var base = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func TestAttendantRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAttendantRepository(db)

	carla := createTestAttendant(t, db, "carla", "billing")
	ana := createTestAttendant(t, db, "ana", "support")
	createTestAttendant(t, db, "bruno", "support")
	createTestAttendant(t, db, "dora", "")

	all, err := repo.GetAll()
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, carla.ID, all[0].ID, "ordered by id")

	support, err := repo.GetByDepartment("support")
	require.NoError(t, err)
	assert.Len(t, support, 2)

	got, err := repo.GetByEmail("ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, ana.ID, got.ID)

	departments, err := repo.GetDepartments()
	require.NoError(t, err)
	assert.Equal(t, []string{"billing", "support"}, departments)

	_, err = repo.GetByID(999)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestEvaluationRepository_CreateWithXP(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEvaluationRepository(db)
	events := NewXPEventRepository(db)
	ana := createTestAttendant(t, db, "ana", "support")

	ev := &models.Evaluation{AttendantID: ana.ID, Rating: 5, OccurredAt: base}
	event, err := repo.CreateWithXP(ev, func(saved *models.Evaluation) models.XPEvent {
		return models.XPEvent{
			AttendantID: saved.AttendantID,
			Type:        models.XPEventTypeEvaluation,
			RelatedID:   saved.ID,
			BasePoints:  5,
			Multiplier:  1.5,
			Points:      8,
			OccurredAt:  saved.OccurredAt,
		}
	})
	require.NoError(t, err)
	assert.NotZero(t, ev.ID)
	assert.Equal(t, ev.ID, event.RelatedID)
	assert.Equal(t, 8, ev.XPGained)

	stored, err := repo.GetByID(ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, stored.XPGained, "snapshot persisted")

	total, err := events.SumByAttendant(ana.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, total)
}

func TestEvaluationRepository_CreateWithXP_RollsBack(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEvaluationRepository(db)
	events := NewXPEventRepository(db)
	ana := createTestAttendant(t, db, "ana", "support")

	// occupy the ledger slot the next evaluation will need
	require.NoError(t, events.Create(&models.XPEvent{
		AttendantID: ana.ID, Type: models.XPEventTypeEvaluation, RelatedID: 1, Points: 1, OccurredAt: base,
	}))

	_, err := repo.CreateWithXP(&models.Evaluation{AttendantID: ana.ID, Rating: 4, OccurredAt: base},
		func(saved *models.Evaluation) models.XPEvent {
			return models.XPEvent{AttendantID: saved.AttendantID, Type: models.XPEventTypeEvaluation, RelatedID: saved.ID, Points: 3, OccurredAt: base}
		})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAlreadyExists))

	count, err := repo.CountByAttendant(ana.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count, "evaluation rolled back")
}

func TestEvaluationRepository_DeleteWithXP(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEvaluationRepository(db)
	events := NewXPEventRepository(db)
	sentiments := NewSentimentRepository(db)
	ana := createTestAttendant(t, db, "ana", "support")

	ev := &models.Evaluation{AttendantID: ana.ID, Rating: 1, OccurredAt: base}
	_, err := repo.CreateWithXP(ev, func(saved *models.Evaluation) models.XPEvent {
		return models.XPEvent{AttendantID: saved.AttendantID, Type: models.XPEventTypeEvaluation, RelatedID: saved.ID, Points: -5, OccurredAt: base}
	})
	require.NoError(t, err)
	require.NoError(t, sentiments.Upsert(&models.SentimentAnalysis{EvaluationID: ev.ID, Sentiment: "Negativo"}))

	// an achievement event sharing the related id must survive
	require.NoError(t, events.Create(&models.XPEvent{
		AttendantID: ana.ID, Type: models.XPEventTypeAchievement, RelatedID: ev.ID, Points: 10, OccurredAt: base,
	}))

	require.NoError(t, repo.DeleteWithXP(ev.ID))

	ledger, err := events.GetByAttendant(ana.ID)
	require.NoError(t, err)
	require.Len(t, ledger, 1)
	assert.Equal(t, models.XPEventTypeAchievement, ledger[0].Type)

	idx, err := sentiments.GetIndex()
	require.NoError(t, err)
	assert.Empty(t, idx)

	assert.True(t, errors.Is(repo.DeleteWithXP(ev.ID), ErrNotFound))
}

func TestEvaluationRepository_GetByDateRange(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEvaluationRepository(db)
	ana := createTestAttendant(t, db, "ana", "support")

	for i := 0; i < 5; i++ {
		require.NoError(t, db.Create(&models.Evaluation{
			AttendantID: ana.ID, Rating: 3, OccurredAt: base.Add(time.Duration(i) * 24 * time.Hour),
		}).Error)
	}

	from, to := base.Add(24*time.Hour), base.Add(3*24*time.Hour)
	evals, err := repo.GetByDateRange(&from, &to)
	require.NoError(t, err)
	assert.Len(t, evals, 3, "bounds are inclusive")

	evals, err = repo.GetByDateRange(&from, nil)
	require.NoError(t, err)
	assert.Len(t, evals, 4)

	all, err := repo.GetAll()
	require.NoError(t, err)
	assert.Len(t, all, 5)
	assert.True(t, all[0].OccurredAt.Before(all[4].OccurredAt))
}

func TestXPEventRepository_Duplicate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewXPEventRepository(db)
	ana := createTestAttendant(t, db, "ana", "support")

	event := models.XPEvent{AttendantID: ana.ID, Type: models.XPEventTypeAchievement, RelatedID: 3, Points: 25, OccurredAt: base}
	first := event
	require.NoError(t, repo.Create(&first))

	second := event
	err := repo.Create(&second)
	assert.True(t, errors.Is(err, ErrAlreadyExists))

	s := &models.Season{Name: "Q1", StartTime: base, EndTime: base.Add(48 * time.Hour), Active: true, XPMultiplier: 2}
	require.NoError(t, NewSeasonRepository(db).Create(s))
	season := s.ID
	require.NoError(t, repo.Create(&models.XPEvent{
		AttendantID: ana.ID, Type: models.XPEventTypeEvaluation, RelatedID: 3, Points: 10, SeasonID: &season, OccurredAt: base,
	}))

	bySeason, err := repo.GetBySeason(season)
	require.NoError(t, err)
	assert.Len(t, bySeason, 1)

	total, err := repo.SumByAttendant(ana.ID)
	require.NoError(t, err)
	assert.Equal(t, 35, total)

	total, err = repo.SumByAttendant(999)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestAchievementRepository_UpsertAndGrant(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAchievementRepository(db)
	ana := createTestAttendant(t, db, "ana", "support")

	a := &models.Achievement{
		Code:     "first-steps",
		Name:     "First Steps",
		XPReward: 10,
		Active:   true,
		Criteria: datatypes.JSON(`{"kind":"evaluation_count","count":1}`),
	}
	created, err := repo.Upsert(a)
	require.NoError(t, err)
	assert.True(t, created)

	update := &models.Achievement{
		Code:     "first-steps",
		Name:     "First Steps",
		XPReward: 15,
		Active:   false,
		Criteria: datatypes.JSON(`{"kind":"evaluation_count","count":1}`),
	}
	created, err = repo.Upsert(update)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, a.ID, update.ID)

	stored, err := repo.GetByCode("first-steps")
	require.NoError(t, err)
	assert.Equal(t, 15, stored.XPReward)
	assert.False(t, stored.Active)

	unlock := &models.UnlockedAchievement{AttendantID: ana.ID, AchievementID: a.ID, UnlockedAt: base, XPGained: 15}
	event := &models.XPEvent{AttendantID: ana.ID, Type: models.XPEventTypeAchievement, RelatedID: a.ID, Points: 15, OccurredAt: base}
	require.NoError(t, repo.Grant(unlock, event))

	again := &models.UnlockedAchievement{AttendantID: ana.ID, AchievementID: a.ID, UnlockedAt: base}
	err = repo.Grant(again, &models.XPEvent{AttendantID: ana.ID, Type: models.XPEventTypeAchievement, RelatedID: a.ID, Points: 15, OccurredAt: base})
	assert.True(t, errors.Is(err, ErrAlreadyExists))

	unlocked, err := repo.GetUnlockedByAttendant(ana.ID)
	require.NoError(t, err)
	require.Len(t, unlocked, 1)
	assert.Equal(t, "First Steps", unlocked[0].Achievement.Name)

	holders, err := repo.GetHoldersCount(a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), holders)

	recent, err := repo.GetRecentlyUnlocked(base.Add(-time.Hour))
	require.NoError(t, err)
	assert.Len(t, recent, 1)

	total, err := NewXPEventRepository(db).SumByAttendant(ana.ID)
	require.NoError(t, err)
	assert.Equal(t, 15, total, "duplicate grant added no XP")
}

func TestSeasonRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSeasonRepository(db)

	later := &models.Season{Name: "Q2", StartTime: base.AddDate(0, 3, 0), EndTime: base.AddDate(0, 6, 0), Active: true, XPMultiplier: 1.2}
	earlier := &models.Season{Name: "Q1", StartTime: base, EndTime: base.AddDate(0, 3, 0), Active: false, XPMultiplier: 1.5}
	require.NoError(t, repo.Create(later))
	require.NoError(t, repo.Create(earlier))

	list, err := repo.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Q1", list[0].Name)
	assert.False(t, list[0].Active)

	earlier.XPMultiplier = 3
	require.NoError(t, repo.Update(earlier))
	got, err := repo.GetByID(earlier.ID)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, got.XPMultiplier, 1e-9)

	require.NoError(t, repo.Delete(earlier.ID))
	assert.True(t, errors.Is(repo.Delete(earlier.ID), ErrNotFound))
}

func TestLevelRewardRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLevelRewardRepository(db)

	require.NoError(t, repo.Upsert(&models.LevelReward{Level: 5, Title: "Rising Star", Active: true}))
	require.NoError(t, repo.Upsert(&models.LevelReward{Level: 5, Title: "Shining Star", Active: true}))
	require.NoError(t, repo.Upsert(&models.LevelReward{Level: 10, Title: "Hidden", Active: false}))

	all, err := repo.GetAll()
	require.NoError(t, err)
	require.Len(t, all, 2)

	got, err := repo.GetByLevel(5)
	require.NoError(t, err)
	assert.Equal(t, "Shining Star", got.Title)

	_, err = repo.GetByLevel(10)
	assert.True(t, errors.Is(err, ErrNotFound), "inactive rewards are hidden")
}

func TestSentimentRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSentimentRepository(db)
	ana := createTestAttendant(t, db, "ana", "support")

	ev := &models.Evaluation{AttendantID: ana.ID, Rating: 2, OccurredAt: base}
	require.NoError(t, db.Create(ev).Error)

	require.NoError(t, repo.Upsert(&models.SentimentAnalysis{EvaluationID: ev.ID, Sentiment: "Neutro"}))
	require.NoError(t, repo.Upsert(&models.SentimentAnalysis{EvaluationID: ev.ID, Sentiment: "Negativo", Summary: "rude"}))

	analyses, err := repo.GetByEvaluationIDs([]uint{ev.ID})
	require.NoError(t, err)
	require.Len(t, analyses, 1)
	assert.Equal(t, "Negativo", analyses[0].Sentiment)

	idx, err := repo.GetIndex()
	require.NoError(t, err)
	assert.Equal(t, models.SentimentNegative, idx[ev.ID].Label)

	none, err := repo.GetByEvaluationIDs(nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestConfigurationRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewConfigurationRepository(db)

	var override config.GamificationConfig
	found, err := repo.Get("gamification", &override)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, repo.Set("gamification", config.GamificationConfig{GlobalXPMultiplier: 1.5}))
	require.NoError(t, repo.Set("gamification", config.GamificationConfig{GlobalXPMultiplier: 2, RatingScores: map[int]int{5: 10}}))

	found, err = repo.Get("gamification", &override)
	require.NoError(t, err)
	assert.True(t, found)
	assert.InDelta(t, 2.0, override.GlobalXPMultiplier, 1e-9)
	assert.Equal(t, 10, override.RatingScores[5])
}
