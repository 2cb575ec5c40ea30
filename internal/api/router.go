package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"resumate/internal/api/middleware"
	"resumate/internal/config"
	"resumate/internal/metrics"
)

// NewRouter builds the engine with the shared middleware chain, /health and /metrics.
// /metrics requires the internal secret when one is configured.
func NewRouter(cfg *config.Config, logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(
		metrics.GinMiddleware(),
		middleware.RequestID(),
		middleware.AccessLog(logger),
		gin.Recovery(),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	var secret string
	if cfg != nil {
		secret = cfg.API.InternalSecret
	}
	router.GET("/metrics", middleware.SharedSecret(secret), gin.WrapH(metrics.Handler()))

	return router
}
