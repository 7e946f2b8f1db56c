// Package handler contains HTTP handler functions for the API.
//
// Go Pattern: Handlers in Gin receive a *gin.Context which provides:
// - Request data (params, query, body, headers)
// - Response methods (JSON, String, Status)
// - Middleware data (c.Get/c.Set)
//
// Unlike Ruby controllers, Go handlers are plain functions — no class
// inheritance. We group related handlers into a struct (Handler) that holds
// shared dependencies.
package handler

import (
	"github.com/Shimizu-Technology/media-tools-api/internal/config"
	"github.com/Shimizu-Technology/media-tools-api/internal/database"
	"github.com/Shimizu-Technology/media-tools-api/internal/worker"
)

// Handler holds shared dependencies for all HTTP handlers.
// Go Pattern: Dependency injection via struct fields. Instead of global
// variables or service locators, we pass dependencies explicitly. This
// makes testing easy — just create a Handler with mock dependencies.
type Handler struct {
	DB     *database.DB
	Worker *worker.Pool
	Cfg    *config.Config
}

// NewHandler creates a new handler with all dependencies.
func NewHandler(db *database.DB, wp *worker.Pool, cfg *config.Config) *Handler {
	return &Handler{DB: db, Worker: wp, Cfg: cfg}
}
