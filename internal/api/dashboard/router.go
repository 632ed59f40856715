package dashboard

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/csat-hub/attendant-rewards/internal/config"
	"github.com/csat-hub/attendant-rewards/pkg/logger"
)

// NewRouter builds the HTTP engine with middleware, the health probe, the
// optional metrics endpoint and the API routes.
func NewRouter(h *Handler, cfg *config.Config, log *logger.Logger) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), CORS(cfg.Server.AllowedOrigins), Metrics(), RequestLogger(log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
	if prom := cfg.Metrics.Prometheus; prom.Enabled {
		router.GET(prom.Path, gin.WrapH(promhttp.Handler()))
	}

	h.RegisterRoutes(router.Group("/api/v1"))
	return router
}

// RegisterRoutes mounts the dashboard API on group.
func (h *Handler) RegisterRoutes(group *gin.RouterGroup) {
	lb := group.Group("/leaderboard")
	lb.GET("", h.GetGlobalLeaderboard)
	lb.GET("/insights", h.GetInsights)
	lb.GET("/departments/:department", h.GetDepartmentLeaderboard)
	lb.GET("/seasons/:id", h.GetSeasonLeaderboard)

	attendants := group.Group("/attendants/:id")
	attendants.GET("/progress", h.GetAttendantProgress)
	attendants.GET("/position", h.GetAttendantPosition)
	attendants.GET("/achievements", h.GetAttendantAchievements)

	group.GET("/achievements", h.GetAchievementCatalog)
	group.GET("/achievements/stats", h.GetAchievementStats)

	group.GET("/seasons", h.ListSeasons)
	group.GET("/seasons/current", h.GetCurrentSeason)
	group.POST("/seasons", h.CreateSeason)

	group.POST("/evaluations", h.RecordEvaluation)
	group.DELETE("/evaluations/:id", h.DeleteEvaluation)
}
