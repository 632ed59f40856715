// Package dashboard provides REST API handlers for the rewards dashboard.
// It exposes endpoints for leaderboards, attendant progress, achievements,
// seasons and evaluation intake.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/csat-hub/attendant-rewards/internal/config"
	"github.com/csat-hub/attendant-rewards/internal/models"
	"github.com/csat-hub/attendant-rewards/internal/repository"
	"github.com/csat-hub/attendant-rewards/internal/service/achievements"
	"github.com/csat-hub/attendant-rewards/internal/service/leaderboard"
	"github.com/csat-hub/attendant-rewards/internal/service/rewards"
	"github.com/csat-hub/attendant-rewards/internal/service/seasons"
	"github.com/csat-hub/attendant-rewards/pkg/logger"
)

const (
	defaultLimit = 10
	maxLimit     = 1000
)

// LeaderboardService interface for leaderboard operations.
type LeaderboardService interface {
	GetGlobalLeaderboard(ctx context.Context, period string, limit, offset int) (*leaderboard.Result, error)
	GetDepartmentLeaderboard(ctx context.Context, department, period string, limit, offset int) (*leaderboard.Result, error)
	GetSeasonLeaderboard(ctx context.Context, seasonID uint, limit, offset int) (*leaderboard.Result, error)
	GetInsights(ctx context.Context, period string) (*leaderboard.Insights, error)
	GetAttendantStats(ctx context.Context, attendantID uint, period string) (*leaderboard.AttendantStats, error)
}

// RewardsService interface for XP, level and achievement operations.
type RewardsService interface {
	RecordEvaluation(ctx context.Context, input rewards.EvaluationInput) (*rewards.RecordResult, error)
	DeleteEvaluation(ctx context.Context, id uint) error
	GetProgress(ctx context.Context, attendantID uint) (*rewards.Progress, error)
	GetAttendantAchievements(ctx context.Context, attendantID uint) (*rewards.AttendantAchievements, error)
	GetCatalog(ctx context.Context) ([]models.Achievement, error)
	GetAchievementInsights(ctx context.Context) ([]achievements.Insight, error)
}

// SeasonService interface for season operations.
type SeasonService interface {
	List(ctx context.Context) ([]models.Season, error)
	Overview(ctx context.Context) (*seasons.Overview, error)
	Create(ctx context.Context, season *models.Season) error
}

// Handler handles dashboard API requests.
type Handler struct {
	leaderboardService LeaderboardService
	rewardsService     RewardsService
	seasonService      SeasonService
	log                *logger.Logger
}

// NewHandler creates a new dashboard handler.
func NewHandler(
	leaderboardService *leaderboard.Service,
	rewardsService *rewards.Service,
	seasonService *seasons.Service,
	log *logger.Logger,
) *Handler {
	return NewHandlerWithInterfaces(leaderboardService, rewardsService, seasonService, log)
}

// NewHandlerWithInterfaces creates a new dashboard handler with interface dependencies (useful for testing).
func NewHandlerWithInterfaces(
	leaderboardService LeaderboardService,
	rewardsService RewardsService,
	seasonService SeasonService,
	log *logger.Logger,
) *Handler {
	return &Handler{
		leaderboardService: leaderboardService,
		rewardsService:     rewardsService,
		seasonService:      seasonService,
		log:                log,
	}
}

// GetGlobalLeaderboard returns the global leaderboard.
// GET /api/v1/leaderboard?period=month&limit=10&offset=0.
func (h *Handler) GetGlobalLeaderboard(c *gin.Context) {
	period := c.DefaultQuery("period", leaderboard.PeriodAllTime)
	if err := h.validatePeriod(period); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	limit, offset, err := h.parsePage(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.leaderboardService.GetGlobalLeaderboard(c.Request.Context(), period, limit, offset)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get global leaderboard")
		h.serviceError(c, err, "Failed to retrieve leaderboard")
		return
	}

	h.log.Debug().
		Str("period", period).
		Int("limit", limit).
		Int("offset", offset).
		Int("entries", len(result.Entries)).
		Msg("Retrieved global leaderboard")

	c.JSON(http.StatusOK, gin.H{
		"leaderboard":   result,
		"period":        period,
		"total_entries": len(result.Entries),
		"generated_at":  time.Now().UTC(),
	})
}

// GetDepartmentLeaderboard returns the leaderboard for one department.
// GET /api/v1/leaderboard/departments/:department?period=week.
func (h *Handler) GetDepartmentLeaderboard(c *gin.Context) {
	department := c.Param("department")
	if department == "" {
		h.errorResponse(c, http.StatusBadRequest, "department parameter is required")
		return
	}

	period := c.DefaultQuery("period", leaderboard.PeriodAllTime)
	if err := h.validatePeriod(period); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	limit, offset, err := h.parsePage(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.leaderboardService.GetDepartmentLeaderboard(c.Request.Context(), department, period, limit, offset)
	if err != nil {
		h.log.Error().Err(err).Str("department", department).Msg("Failed to get department leaderboard")
		h.serviceError(c, err, "Failed to retrieve department leaderboard")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"department":    department,
		"leaderboard":   result,
		"period":        period,
		"total_entries": len(result.Entries),
		"generated_at":  time.Now().UTC(),
	})
}

// GetSeasonLeaderboard returns the leaderboard restricted to one season.
// GET /api/v1/leaderboard/seasons/:id.
func (h *Handler) GetSeasonLeaderboard(c *gin.Context) {
	seasonID, err := h.parseID(c, "season")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	limit, offset, err := h.parsePage(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.leaderboardService.GetSeasonLeaderboard(c.Request.Context(), seasonID, limit, offset)
	if err != nil {
		h.log.Error().Err(err).Uint("season_id", seasonID).Msg("Failed to get season leaderboard")
		h.serviceError(c, err, "Failed to retrieve season leaderboard")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"season_id":     seasonID,
		"leaderboard":   result,
		"total_entries": len(result.Entries),
		"generated_at":  time.Now().UTC(),
	})
}

// GetInsights returns aggregate leaderboard insights.
// GET /api/v1/leaderboard/insights?period=month.
func (h *Handler) GetInsights(c *gin.Context) {
	period := c.DefaultQuery("period", leaderboard.PeriodAllTime)
	if err := h.validatePeriod(period); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	insights, err := h.leaderboardService.GetInsights(c.Request.Context(), period)
	if err != nil {
		h.log.Error().Err(err).Str("period", period).Msg("Failed to get leaderboard insights")
		h.serviceError(c, err, "Failed to retrieve insights")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"insights":     insights,
		"period":       period,
		"generated_at": time.Now().UTC(),
	})
}

// GetAttendantProgress returns XP, level and title for an attendant.
// GET /api/v1/attendants/:id/progress.
func (h *Handler) GetAttendantProgress(c *gin.Context) {
	attendantID, err := h.parseID(c, "attendant")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	progress, err := h.rewardsService.GetProgress(c.Request.Context(), attendantID)
	if err != nil {
		h.log.Error().Err(err).Uint("attendant_id", attendantID).Msg("Failed to get attendant progress")
		h.serviceError(c, err, "Failed to retrieve attendant progress")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"progress":     progress,
		"generated_at": time.Now().UTC(),
	})
}

// GetAttendantPosition returns the attendant's global and department rank.
// GET /api/v1/attendants/:id/position?period=month.
func (h *Handler) GetAttendantPosition(c *gin.Context) {
	attendantID, err := h.parseID(c, "attendant")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	period := c.DefaultQuery("period", leaderboard.PeriodAllTime)
	if err := h.validatePeriod(period); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	stats, err := h.leaderboardService.GetAttendantStats(c.Request.Context(), attendantID, period)
	if err != nil {
		h.log.Error().Err(err).Uint("attendant_id", attendantID).Msg("Failed to get attendant position")
		h.serviceError(c, err, "Failed to retrieve attendant position")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stats":        stats,
		"generated_at": time.Now().UTC(),
	})
}

// GetAttendantAchievements returns the catalog annotated with the attendant's unlocks.
// GET /api/v1/attendants/:id/achievements.
func (h *Handler) GetAttendantAchievements(c *gin.Context) {
	attendantID, err := h.parseID(c, "attendant")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.rewardsService.GetAttendantAchievements(c.Request.Context(), attendantID)
	if err != nil {
		h.log.Error().Err(err).Uint("attendant_id", attendantID).Msg("Failed to get attendant achievements")
		h.serviceError(c, err, "Failed to retrieve attendant achievements")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"attendant_id": attendantID,
		"achievements": result.Achievements,
		"stats":        result.Stats,
		"generated_at": time.Now().UTC(),
	})
}

// GetAchievementCatalog returns every configured achievement.
// GET /api/v1/achievements.
func (h *Handler) GetAchievementCatalog(c *gin.Context) {
	catalog, err := h.rewardsService.GetCatalog(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get achievement catalog")
		h.serviceError(c, err, "Failed to retrieve achievement catalog")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"achievements":       catalog,
		"total_achievements": len(catalog),
		"generated_at":       time.Now().UTC(),
	})
}

// GetAchievementStats returns how many attendants satisfy each achievement.
// GET /api/v1/achievements/stats.
func (h *Handler) GetAchievementStats(c *gin.Context) {
	insights, err := h.rewardsService.GetAchievementInsights(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get achievement stats")
		h.serviceError(c, err, "Failed to retrieve achievement stats")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stats":        insights,
		"generated_at": time.Now().UTC(),
	})
}

// ListSeasons returns all seasons.
// GET /api/v1/seasons.
func (h *Handler) ListSeasons(c *gin.Context) {
	list, err := h.seasonService.List(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list seasons")
		h.serviceError(c, err, "Failed to retrieve seasons")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"seasons":       list,
		"total_seasons": len(list),
		"generated_at":  time.Now().UTC(),
	})
}

// GetCurrentSeason returns the current, next and previous seasons.
// GET /api/v1/seasons/current.
func (h *Handler) GetCurrentSeason(c *gin.Context) {
	overview, err := h.seasonService.Overview(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get season overview")
		h.serviceError(c, err, "Failed to retrieve current season")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"seasons":      overview,
		"generated_at": time.Now().UTC(),
	})
}

// createSeasonRequest is the body of POST /api/v1/seasons.
type createSeasonRequest struct {
	Name         string    `json:"name" binding:"required"`
	Description  string    `json:"description"`
	StartTime    time.Time `json:"start_time" binding:"required"`
	EndTime      time.Time `json:"end_time" binding:"required"`
	XPMultiplier float64   `json:"xp_multiplier" binding:"required"`
	Active       *bool     `json:"active"`
}

// CreateSeason stores a new season.
// POST /api/v1/seasons.
func (h *Handler) CreateSeason(c *gin.Context) {
	var req createSeasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	season := &models.Season{
		Name:         req.Name,
		Description:  req.Description,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		XPMultiplier: req.XPMultiplier,
		Active:       req.Active == nil || *req.Active,
	}
	if err := h.seasonService.Create(c.Request.Context(), season); err != nil {
		h.log.Warn().Err(err).Str("name", req.Name).Msg("Failed to create season")
		h.serviceError(c, err, "Failed to create season")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"season":       season,
		"generated_at": time.Now().UTC(),
	})
}

// RecordEvaluation records a customer evaluation and awards its XP.
// POST /api/v1/evaluations.
func (h *Handler) RecordEvaluation(c *gin.Context) {
	var input rewards.EvaluationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.errorResponse(c, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	result, err := h.rewardsService.RecordEvaluation(c.Request.Context(), input)
	if err != nil {
		h.log.Warn().Err(err).Uint("attendant_id", input.AttendantID).Msg("Failed to record evaluation")
		h.serviceError(c, err, "Failed to record evaluation")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"result":       result,
		"generated_at": time.Now().UTC(),
	})
}

// DeleteEvaluation removes an evaluation and reverses its XP.
// DELETE /api/v1/evaluations/:id.
func (h *Handler) DeleteEvaluation(c *gin.Context) {
	evaluationID, err := h.parseID(c, "evaluation")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.rewardsService.DeleteEvaluation(c.Request.Context(), evaluationID); err != nil {
		h.log.Warn().Err(err).Uint("evaluation_id", evaluationID).Msg("Failed to delete evaluation")
		h.serviceError(c, err, "Failed to delete evaluation")
		return
	}

	c.Status(http.StatusNoContent)
}

// Helper functions

// parseID extracts and validates the numeric :id URL parameter.
func (h *Handler) parseID(c *gin.Context, kind string) (uint, error) {
	idStr := c.Param("id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s ID: %s", kind, idStr)
	}
	return uint(id), nil
}

// parsePage extracts the limit and offset query parameters.
func (h *Handler) parsePage(c *gin.Context) (int, int, error) {
	limit, err := h.parseLimit(c, defaultLimit)
	if err != nil {
		return 0, 0, err
	}

	offsetStr := c.Query("offset")
	if offsetStr == "" {
		return limit, 0, nil
	}
	offset, err := strconv.Atoi(offsetStr)
	if err != nil || offset < 0 {
		return 0, 0, fmt.Errorf("invalid offset parameter: %s", offsetStr)
	}
	return limit, offset, nil
}

// parseLimit extracts and validates the limit query parameter.
func (h *Handler) parseLimit(c *gin.Context, defaultLimit int) (int, error) {
	limitStr := c.Query("limit")
	if limitStr == "" {
		return defaultLimit, nil
	}

	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		return 0, fmt.Errorf("invalid limit parameter: %s", limitStr)
	}

	if limit < 1 {
		return 0, fmt.Errorf("limit must be greater than 0")
	}

	if limit > maxLimit {
		return 0, fmt.Errorf("limit cannot exceed %d", maxLimit)
	}

	return limit, nil
}

// validatePeriod validates the period parameter.
func (h *Handler) validatePeriod(period string) error {
	if !leaderboard.ValidPeriod(period) {
		return fmt.Errorf("invalid period: %s (valid: day, week, month, year, all_time)", period)
	}
	return nil
}

// serviceError maps a service error to a response status.
func (h *Handler) serviceError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		h.errorResponse(c, http.StatusNotFound, "resource not found")
	case errors.Is(err, rewards.ErrInvalidRating), errors.Is(err, config.ErrConfiguration),
		errors.Is(err, leaderboard.ErrInvalidPeriod):
		h.errorResponse(c, http.StatusBadRequest, err.Error())
	default:
		h.errorResponse(c, http.StatusInternalServerError, fallback)
	}
}

// errorResponse sends a standardized error response.
func (h *Handler) errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":     message,
		"timestamp": time.Now().UTC(),
	})
}
