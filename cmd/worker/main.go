package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"fence-worker-go/internal/api"
	"fence-worker-go/internal/config"
	"fence-worker-go/internal/logging"
	"fence-worker-go/internal/services"
	"fence-worker-go/internal/services/zone"
)

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Load configuration
	cfg := config.Load()

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("Invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Optionally mirror logs into the Logdy web viewer
	if cfg.LogdyEnabled {
		console := zerolog.ConsoleWriter{Out: os.Stderr}
		if tee, url, err := logging.StartLogdy(cfg, console); err != nil {
			log.Warn().Err(err).Msg("Failed to start Logdy, continuing with console logging")
		} else {
			log.Logger = log.Output(tee)
			log.Info().Str("url", url).Msg("Log viewer started")
		}
	}

	log.Info().
		Str("worker_id", cfg.WorkerID).
		Int("port", cfg.Port).
		Str("camera", cfg.CameraURL).
		Int("motion_threshold", cfg.MotionThreshold).
		Msg("Starting fence worker")

	container, err := services.NewServiceContainer(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}

	// Restore the persisted zone if one exists. The worker runs with an
	// undefined zone otherwise and reports no intrusions until one is set.
	if sizeMismatch, err := container.ZoneSvc.Load(cfg.ZoneConfigPath); err != nil {
		if errors.Is(err, zone.ErrConfigNotFound) {
			log.Info().Str("path", cfg.ZoneConfigPath).Msg("No saved zone, waiting for zone definition")
		} else {
			log.Warn().Err(err).Str("path", cfg.ZoneConfigPath).Msg("Failed to load saved zone")
		}
	} else if sizeMismatch {
		log.Warn().Str("path", cfg.ZoneConfigPath).Msg("Saved zone was defined for different frame dimensions")
	}

	// Run the frame loop
	pipelineCtx, stopPipeline := context.WithCancel(context.Background())
	pipelineDone := make(chan struct{})
	go func() {
		defer close(pipelineDone)
		if err := container.Pipeline.Run(pipelineCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("Pipeline stopped with error")
		}
	}()

	// Start API server
	server := api.NewServer(cfg, container, logging.NewServiceLogger(cfg, "api"))
	server.Setup()
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutdown signal received")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	stopPipeline()
	select {
	case <-pipelineDone:
	case <-ctx.Done():
		log.Warn().Msg("Pipeline did not stop in time")
	}

	if err := server.Stop(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	if err := container.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Service shutdown failed")
	} else {
		log.Info().Msg("Shutdown complete")
	}
}
