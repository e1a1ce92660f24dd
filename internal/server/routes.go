package server

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/c-emman/stock-insights-assistant/internal/config"
	"github.com/c-emman/stock-insights-assistant/internal/handler"
	"github.com/c-emman/stock-insights-assistant/internal/middleware"
)

// RegisterRoutes sets up all HTTP routes on the Gin engine. Dependencies
// are passed explicitly; each handler gets exactly what it needs.
func RegisterRoutes(r *gin.Engine, cfg *config.Config, runner handler.QueryRunner, logger *zap.Logger) {
	healthHandler := handler.NewHealthHandler()
	queryHandler := handler.NewQueryHandler(runner, logger)

	// Public health probe (no middleware)
	r.GET("/healthz", healthHandler.Healthz)

	api := r.Group("/api/v1")
	api.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	api.Use(middleware.RateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))
	{
		api.POST("/query", queryHandler.Query)
	}
}
