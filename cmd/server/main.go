// Package main is the entry point for the Content Pipeline Engine server.
//
// Go Pattern: The main package is special — it's the only package that
// produces an executable binary. The main() function is where your
// program starts, like `if __name__ == "__main__"` in Python.
//
// This file wires together all the components (dependency injection):
// Config → Database → Extractors/Transcriber/LLM client → Generator/Validator
// → Orchestrator → Worker Pool → HTTP Router → Server
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Shimizu-Technology/media-tools-api/internal/config"
	"github.com/Shimizu-Technology/media-tools-api/internal/database"
	"github.com/Shimizu-Technology/media-tools-api/internal/extractor"
	"github.com/Shimizu-Technology/media-tools-api/internal/ffprobe"
	"github.com/Shimizu-Technology/media-tools-api/internal/generator"
	"github.com/Shimizu-Technology/media-tools-api/internal/llmclient"
	"github.com/Shimizu-Technology/media-tools-api/internal/orchestrator"
	"github.com/Shimizu-Technology/media-tools-api/internal/router"
	"github.com/Shimizu-Technology/media-tools-api/internal/transcriber"
	"github.com/Shimizu-Technology/media-tools-api/internal/validator"
	"github.com/Shimizu-Technology/media-tools-api/internal/worker"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("🚀 Content Pipeline Engine %s starting...", Version)

	// ────────────────────────────────────────────
	// Step 1: Load Configuration
	// ────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	log.Printf("📋 Config loaded: port=%s, workers=%d, gin_mode=%s, provider=%s", cfg.Port, cfg.WorkerCount, cfg.GinMode, cfg.Provider)
	log.Printf("🔧 yt-dlp path: %s", cfg.YtDlpPath)

	os.Setenv("GIN_MODE", cfg.GinMode)

	// ────────────────────────────────────────────
	// Step 2: Connect to Database
	// ────────────────────────────────────────────
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("✅ Database connected")

	if err := db.RunMigrations("migrations"); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}

	// ────────────────────────────────────────────
	// Step 3: Build the pipeline components
	// ────────────────────────────────────────────
	// Go Pattern: construct every stage service once at startup and pass it
	// through the call frame — no package-level singletons, no service
	// locator. Each worker goroutine shares the same stateless services.

	registry := extractor.NewRegistry(
		extractor.NewVideoExtractor(cfg.YtDlpPath, cfg.WorkDir, cfg.MaxVideoDurationSec),
		extractor.NewArticleExtractor(),
		extractor.NewPDFExtractor(),
		extractor.NewEPUBExtractor(),
	)

	probe := ffprobe.NewRunner()
	tr := transcriber.New(cfg.WhisperBaseURL, cfg.WhisperAPIKey, cfg.WhisperModel, cfg.MaxAudioSegmentBytes, cfg.MaxChunks, probe)

	llm := llmclient.New(string(cfg.Provider), cfg.RemoteBaseURL, cfg.RemoteAPIKey, cfg.LocalBaseURL)

	gen := generator.New(llm, cfg.MapModel(), cfg.ReduceModel(), cfg.MapWorkers, cfg.ReduceWorkers)
	val := validator.New(llm, cfg.ValidationModel(), cfg.MaxValidationTokens)

	orch := orchestrator.New(db, registry, tr, gen, val, cfg)

	// ────────────────────────────────────────────
	// Step 4: Create and Start Worker Pool
	// ────────────────────────────────────────────
	wp := worker.NewPool(cfg.WorkerCount, cfg.JobQueueSize, orch)
	wp.Start()
	defer wp.Stop()

	// ────────────────────────────────────────────
	// Step 5: Setup HTTP Router
	// ────────────────────────────────────────────
	r := router.Setup(db, wp, cfg)

	// ────────────────────────────────────────────
	// Step 6: Start the HTTP Server
	// ────────────────────────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // long runs: map/reduce over many chunks
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🌐 Server listening on http://localhost:%s", cfg.Port)
		log.Printf("📖 Health check: http://localhost:%s/api/health", cfg.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	// ────────────────────────────────────────────
	// Step 7: Graceful Shutdown
	// ────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Printf("🛑 Received signal %v, shutting down gracefully...", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("⚠️  Server forced to shutdown: %v", err)
	}

	log.Println("👋 Server stopped. Goodbye!")
}
