package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"fence-worker-go/internal/api/handlers"
	"fence-worker-go/internal/config"
	"fence-worker-go/internal/services"
)

type Server struct {
	config *config.Config
	router *gin.Engine
	server *http.Server
	logger zerolog.Logger

	healthHandler   *handlers.HealthHandler
	zoneHandler     *handlers.ZoneHandler
	gateHandler     *handlers.GateHandler
	pipelineHandler *handlers.PipelineHandler
}

func NewServer(cfg *config.Config, container *services.ServiceContainer, logger zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	return &Server{
		config:          cfg,
		router:          router,
		logger:          logger,
		healthHandler:   handlers.NewHealthHandler(cfg.WorkerID),
		zoneHandler:     handlers.NewZoneHandler(cfg, container.ZoneSvc),
		gateHandler:     handlers.NewGateHandler(container.Gate, container.Pipeline),
		pipelineHandler: handlers.NewPipelineHandler(container.Pipeline, container.Gate, container.Coordinator),
	}
}

func (s *Server) Setup() {
	s.setupMiddleware()

	s.setupRoutes()

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.Port),
		Handler: s.router,
	}
}

func (s *Server) Start() error {
	s.logger.Info().Int("port", s.config.Port).Msg("Starting worker API")
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("Stopping worker API")
	return s.server.Shutdown(ctx)
}
