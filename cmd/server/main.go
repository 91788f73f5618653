// Package main is the entry point for the trade journal HTTP service.
// It serves the journal API, the event stream and system status for a local
// UI, and runs scheduled database maintenance in the background.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/tradejournal/internal/config"
	"github.com/aristath/tradejournal/internal/di"
	"github.com/aristath/tradejournal/internal/server"
	"github.com/aristath/tradejournal/internal/version"
	"github.com/aristath/tradejournal/pkg/logger"
)

// main orchestrates startup:
// 1. Loads configuration from environment variables (.env supported)
// 2. Initializes logging
// 3. Wires dependencies (database manager, events, repository, backups, jobs)
// 4. Opens and migrates the journal database
// 5. Starts the scheduler and the HTTP server
// 6. Waits for a shutdown signal and shuts down gracefully
func main() {
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("version", version.Version).
		Str("commit", version.GitCommit).
		Str("data_dir", cfg.DataDir).
		Msg("Starting trade journal")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, jobs, err := di.Wire(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}

	// Open eagerly so schema problems surface at startup rather than on the first request
	if _, err := container.Manager.EnsureConnection(ctx); err != nil {
		log.Error().Err(err).Msg("Journal database unavailable, API will report 503 until it recovers")
	}

	if container.S3Client != nil {
		if err := container.S3Client.TestConnection(ctx); err != nil {
			log.Warn().Err(err).Msg("Backup bucket not reachable, uploads will be retried on each backup")
		}
	}

	jobs.Scheduler.Start()

	srv := server.New(server.Config{
		Log:          log,
		Port:         cfg.Port,
		DevMode:      cfg.DevMode,
		DataDir:      cfg.DataDir,
		Manager:      container.Manager,
		Journal:      container.Journal,
		EventManager: container.EventManager,
		Scheduler:    jobs.Scheduler,
		Backups:      container.Backups,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	jobs.Scheduler.Stop()

	if err := container.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close journal database")
	}

	log.Info().Msg("Server stopped")
}
