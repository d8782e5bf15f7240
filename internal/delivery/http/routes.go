package http

import (
	"github.com/gin-gonic/gin"
	"github.com/recipecart/backend/config"
	"github.com/sirupsen/logrus"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, stream *EventStream, logger logrus.FieldLogger) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware(logger.WithField("component", "access")))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(cfg.RateLimit.PerIP))
	{
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", handler.StartSession)
			sessions.GET("/:id", handler.GetSession)
			sessions.GET("/:id/summary", handler.GetSummary)
			sessions.PUT("/:id/items/:index/selection", handler.SelectProduct)
			sessions.PUT("/:id/items/:index/quantity", handler.SetQuantity)
			sessions.POST("/:id/submit", handler.SubmitSession)
		}

		v1.POST("/search", handler.Search)
		v1.POST("/messages", handler.HandleMessage)
		v1.GET("/runs/:id", handler.GetRun)

		v1.GET("/preferences", handler.GetPreferences)
		v1.PUT("/preferences", handler.UpdatePreferences)

		if stream != nil {
			v1.GET("/events", stream.Serve)
		}
	}

	return router
}
