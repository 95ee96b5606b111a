package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/feral-file/ff-transfer-indexer/internal/api/middleware"
)

// SetupRoutes configures all ops routes
func SetupRoutes(router *gin.Engine, handler Handler, authCfg middleware.AuthConfig) {
	// Health checks and scrapes (no auth, no version prefix)
	router.GET("/healthz", handler.HealthCheck)
	router.GET("/metrics", handler.Metrics)

	// Manual triggers (requires authentication)
	v1 := router.Group("/v1", middleware.Auth(authCfg))
	{
		v1.POST("/blocks/:number/process", handler.TriggerBlockProcessing)
		v1.POST("/tokens/:collection/:tokenId/ownership", handler.TriggerOwnershipUpdate)
	}
}
