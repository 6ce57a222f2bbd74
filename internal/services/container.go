package services

import (
	"context"

	"github.com/rs/zerolog/log"

	"fence-worker-go/internal/config"
	"fence-worker-go/internal/logging"
	"fence-worker-go/internal/models"
	"fence-worker-go/internal/services/alerting"
	"fence-worker-go/internal/services/detection"
	"fence-worker-go/internal/services/messaging"
	"fence-worker-go/internal/services/motiongate"
	"fence-worker-go/internal/services/pipeline"
	"fence-worker-go/internal/services/vision"
	"fence-worker-go/internal/services/zone"
)

// ServiceContainer holds all services
type ServiceContainer struct {
	Config       *config.Config
	MessagingSvc *messaging.Service
	Capture      *vision.Capture
	Background   *vision.MOG2Subtractor
	DetectionSvc *detection.Service
	ZoneSvc      *zone.Service
	Gate         *motiongate.Gate
	Coordinator  *alerting.Coordinator
	Pipeline     *pipeline.Service
}

// NewServiceContainer creates a new service container
func NewServiceContainer(cfg *config.Config) (*ServiceContainer, error) {
	// Messaging is optional: the worker still protects the zone and saves
	// snapshots when the broker is unreachable.
	var messagingSvc *messaging.Service
	var publisher models.MessagePublisher
	if cfg.NatsEnabled {
		svc, err := messaging.NewService(cfg)
		if err != nil {
			log.Warn().Err(err).Msg("Messaging unavailable, continuing without alert publishing")
		} else {
			messagingSvc = svc
			publisher = svc
		}
	}

	capture, err := vision.NewCapture(cfg)
	if err != nil {
		return nil, err
	}

	background := vision.NewMOG2Subtractor(cfg)

	detectionSvc, err := detection.NewService(cfg)
	if err != nil {
		capture.Close()
		background.Close()
		return nil, err
	}

	zoneSvc := zone.NewService(cfg)
	gate := motiongate.New(cfg)

	var snapshots models.SnapshotWriter
	if cfg.SnapshotsEnabled {
		snapshotSvc, err := vision.NewSnapshotService(cfg, zoneSvc, logging.NewServiceLogger(cfg, "snapshot"))
		if err != nil {
			capture.Close()
			background.Close()
			detectionSvc.Shutdown()
			return nil, err
		}
		snapshots = snapshotSvc
	}

	coordinator := alerting.NewCoordinator(cfg, publisher, snapshots)
	audit := pipeline.NewAuditLog(cfg.AuditLogPath, cfg.AuditLogEnabled)

	pipelineSvc := pipeline.NewService(cfg, capture, background, detectionSvc, zoneSvc,
		gate, coordinator, audit, logging.NewServiceLogger(cfg, "pipeline"))

	return &ServiceContainer{
		Config:       cfg,
		MessagingSvc: messagingSvc,
		Capture:      capture,
		Background:   background,
		DetectionSvc: detectionSvc,
		ZoneSvc:      zoneSvc,
		Gate:         gate,
		Coordinator:  coordinator,
		Pipeline:     pipelineSvc,
	}, nil
}

// Shutdown gracefully shuts down all services
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	if sc.Capture != nil {
		if err := sc.Capture.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close frame source")
		}
	}

	if sc.Background != nil {
		if err := sc.Background.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close background subtractor")
		}
	}

	if sc.DetectionSvc != nil {
		sc.DetectionSvc.Shutdown()
	}

	if sc.MessagingSvc != nil {
		sc.MessagingSvc.Shutdown(ctx)
	}

	return nil
}
