// Package router sets up all HTTP routes for the API.
//
// Go Pattern: We separate route configuration from handlers. This keeps
// main.go clean and makes it easy to see all routes at a glance.
//
// Framework choice: Gin, carried over from the project this engine's HTTP
// layer was adapted from — similar to Express.js in feel, with a mature
// middleware ecosystem (CORS, logging, recovery).
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/media-tools-api/internal/config"
	"github.com/Shimizu-Technology/media-tools-api/internal/database"
	"github.com/Shimizu-Technology/media-tools-api/internal/handler"
	"github.com/Shimizu-Technology/media-tools-api/internal/middleware"
	"github.com/Shimizu-Technology/media-tools-api/internal/worker"
)

// Setup creates and configures the Gin router with all routes.
func Setup(db *database.DB, wp *worker.Pool, cfg *config.Config) *gin.Engine {
	r := gin.Default()

	r.Use(middleware.CORS(cfg.AllowedOrigins))

	h := handler.NewHandler(db, wp, cfg)

	createLimiter := middleware.NewRateLimiter(cfg.CreateRateLimit)
	uploadLimiter := middleware.NewRateLimiter(cfg.UploadRateLimit)
	regenerateLimiter := middleware.NewRateLimiter(cfg.RegenerateRateLimit)

	r.GET("/api/health", h.HealthCheck)

	api := r.Group("/api/sources")
	{
		api.GET("", h.ListSources)
		api.GET("/:id", h.GetSource)
		api.POST("", createLimiter.RateLimit(), h.CreateSource)
		api.POST("/upload", uploadLimiter.RateLimit(), h.UploadSource)
		api.POST("/:id/regenerate", regenerateLimiter.RateLimit(), h.RegenerateSource)
	}

	return r
}
