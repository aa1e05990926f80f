package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/databazaar/license-indexer/internal/api/middleware"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, authCfg middleware.AuthConfig) {
	router.GET("/health", handler.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		holdings := v1.Group("/holdings")
		{
			holdings.GET("/:address", handler.GetHoldings)
			holdings.GET("/:address/stream", handler.StreamHoldings)
			holdings.GET("/:address/ws", handler.StreamHoldingsWS)
		}

		watches := v1.Group("/watches")
		{
			watches.GET("", handler.ListWatches)
			watches.POST("", middleware.Auth(authCfg), handler.CreateWatch)
			watches.DELETE("/:address", middleware.Auth(authCfg), handler.DeleteWatch)
		}

		v1.GET("/runs", handler.ListRuns)

		// Webhook client registration hands out signing secrets, keep it
		// off the JWT surface
		webhooks := v1.Group("/webhooks", middleware.APIKeyAuth(authCfg))
		{
			webhooks.POST("/clients", handler.CreateWebhookClient)
		}
	}
}
