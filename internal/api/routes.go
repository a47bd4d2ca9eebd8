// Package api wires HTTP routes onto their handlers.
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/irfndi/foresight-go/internal/api/handlers"
	"github.com/irfndi/foresight-go/internal/cache"
	"github.com/irfndi/foresight-go/internal/catalog"
	"github.com/irfndi/foresight-go/internal/config"
	"github.com/irfndi/foresight-go/internal/datasource"
	"github.com/irfndi/foresight-go/internal/metrics"
	"github.com/irfndi/foresight-go/internal/middleware"
	"github.com/irfndi/foresight-go/internal/session"
	"github.com/sirupsen/logrus"
)

// Dependencies are the collaborators the routes are served by. Snapshots,
// Breaker and Metrics may be nil.
type Dependencies struct {
	Config    *config.Config
	Catalog   *catalog.Catalog
	Manager   *session.Manager
	Janitor   *session.Janitor
	Snapshots *cache.RedisSnapshotCache
	Breaker   *datasource.Breaker
	Metrics   *metrics.Collector
	Health    *handlers.HealthHandler
	Logger    *logrus.Logger
}

func SetupRoutes(router *gin.Engine, deps Dependencies) {
	cfg := deps.Config

	router.GET("/health", middleware.ProbeSpan(), deps.Health.HealthCheck)
	router.GET("/live", middleware.ProbeSpan(), deps.Health.LivenessCheck)
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	auth := middleware.NewAuthMiddleware(cfg.Session.Secret)
	catalogHandler := handlers.NewCatalogHandler(deps.Catalog, cfg.Forecast)
	sessionHandler := handlers.NewSessionHandler(deps.Manager, deps.Catalog, auth, cfg.Forecast, deps.Logger)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/catalog", catalogHandler.GetCatalog)

		v1.POST("/sessions", sessionHandler.CreateSession)
		sessions := v1.Group("/sessions/:id", auth.RequireSession(), middleware.SessionSpan())
		{
			sessions.PUT("/selection", sessionHandler.UpdateSelection)
			sessions.GET("/state", sessionHandler.GetState)
			sessions.GET("/charts/history", sessionHandler.GetHistoryChart)
			sessions.GET("/charts/forecast", sessionHandler.GetForecastChart)
			sessions.DELETE("", sessionHandler.DeleteSession)
		}

		if cfg.Server.AdminAPIKey != "" {
			admin := middleware.NewAdminMiddleware(cfg.Server.AdminAPIKey)
			adminHandler := handlers.NewAdminHandler(deps.Manager, deps.Janitor, deps.Snapshots).
				WithBreaker(deps.Breaker)
			adminGroup := v1.Group("/admin", admin.RequireAdminAuth())
			{
				adminGroup.GET("/sessions", adminHandler.GetSessionStats)
				adminGroup.POST("/sessions/evict", adminHandler.EvictIdle)
				adminGroup.GET("/datasource", adminHandler.GetDataSourceStats)
				adminGroup.POST("/datasource/reset", adminHandler.ResetDataSource)
			}
		}
	}
}
