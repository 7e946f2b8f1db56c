package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/media-tools-api/internal/models"
)

// HealthCheck returns the API health status.
// GET /api/health
func (h *Handler) HealthCheck(c *gin.Context) {
	dbStatus := "healthy"
	if err := h.DB.HealthCheck(c.Request.Context()); err != nil {
		dbStatus = "unhealthy: " + err.Error()
	}

	c.JSON(http.StatusOK, models.HealthResponse{
		Status:   "ok",
		Version:  "1.0.0",
		Database: dbStatus,
		Workers:  h.Worker.WorkerCount(),
	})
}
