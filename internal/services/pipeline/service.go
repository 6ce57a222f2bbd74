package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"fence-worker-go/internal/config"
	"fence-worker-go/internal/models"
	"fence-worker-go/internal/services/alerting"
	"fence-worker-go/internal/services/decision"
	"fence-worker-go/internal/services/motiongate"
	"fence-worker-go/internal/services/zone"
)

// Stats is a point-in-time view of the pipeline's frame accounting. The
// trigger counters show how much detector work the motion gate saved.
type Stats struct {
	FramesProcessed    int64   `json:"frames_processed"`
	MotionTriggers     int64   `json:"motion_triggers"`
	DetectorInferences int64   `json:"detector_inferences"`
	DetectorErrors     int64   `json:"detector_errors"`
	IntrusionFrames    int64   `json:"intrusion_frames"`
	UptimeSeconds      float64 `json:"uptime_seconds"`
}

// Service is the frame loop. Every frame feeds the background model, the
// motion score is taken inside the zone, and the gate decides whether the
// detector runs. Detections are evaluated against the zone and handed to
// the alert coordinator.
type Service struct {
	cfg         *config.Config
	source      models.FrameSource
	background  models.ForegroundMaskProvider
	detector    models.ObjectDetector
	zones       *zone.Service
	gate        *motiongate.Gate
	coordinator *alerting.Coordinator
	audit       *AuditLog
	logger      zerolog.Logger

	mu        sync.Mutex
	stats     Stats
	startedAt time.Time
	lastFrame *models.Frame
	lastEval  []models.Intrusion
}

func NewService(
	cfg *config.Config,
	source models.FrameSource,
	background models.ForegroundMaskProvider,
	detector models.ObjectDetector,
	zones *zone.Service,
	gate *motiongate.Gate,
	coordinator *alerting.Coordinator,
	audit *AuditLog,
	logger zerolog.Logger,
) *Service {
	return &Service{
		cfg:         cfg,
		source:      source,
		background:  background,
		detector:    detector,
		zones:       zones,
		gate:        gate,
		coordinator: coordinator,
		audit:       audit,
		logger:      logger,
		startedAt:   time.Now(),
	}
}

// Run drives the frame loop until the context is cancelled or the source
// reaches end of stream.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info().
		Int("motion_threshold", s.gate.Threshold()).
		Int("warmup_frames", s.cfg.WarmupFrames).
		Msg("Pipeline started")

	prevState := s.gate.State()

	for {
		select {
		case <-ctx.Done():
			s.finish()
			return ctx.Err()
		default:
		}

		frame, err := s.source.Next()
		if err != nil {
			if errors.Is(err, models.ErrEndOfStream) {
				s.logger.Info().Msg("Frame source ended")
				s.finish()
				return nil
			}
			s.logger.Warn().Err(err).Msg("Failed to read frame, retrying")
			continue
		}

		s.processFrame(ctx, frame)

		if state := s.gate.State(); state != prevState {
			if prevState == motiongate.StateWarmup {
				s.logger.Info().
					Int64("frame", frame.ID).
					Msg("Background model warm-up complete, motion gate armed")
				s.audit.LogEvent("GATE", "Warm-up complete, motion gate armed")
			}
			prevState = state
		}
	}
}

func (s *Service) processFrame(ctx context.Context, frame *models.Frame) {
	foreground, err := s.background.Apply(frame.Gray)
	if err != nil {
		s.logger.Warn().Err(err).Int64("frame", frame.ID).Msg("Background subtraction failed, skipping frame")
		return
	}

	z := s.zones.Snapshot()

	score := 0
	if z.Defined() {
		score, err = motiongate.Score(foreground, z.Mask())
		if err != nil {
			s.logger.Warn().Err(err).Int64("frame", frame.ID).Msg("Motion score unavailable, skipping frame")
			return
		}
	}

	triggered := s.gate.Check(score)

	var intrusions []models.Intrusion
	if triggered {
		intrusions = s.runDetector(ctx, frame, z)
	}

	outcome := s.coordinator.ProcessFrame(frame, intrusions, score)

	s.mu.Lock()
	s.stats.FramesProcessed++
	if triggered {
		s.stats.MotionTriggers++
	}
	if outcome.HasIntrusion {
		s.stats.IntrusionFrames++
	}
	s.lastFrame = frame
	s.lastEval = intrusions
	s.mu.Unlock()

	s.recordOutcome(frame, intrusions, outcome)
}

func (s *Service) runDetector(ctx context.Context, frame *models.Frame, z *zone.Zone) []models.Intrusion {
	detections, err := s.detector.Detect(ctx, frame)
	if err != nil {
		s.logger.Warn().Err(err).Int64("frame", frame.ID).Msg("Detection failed, treating frame as empty")
		s.mu.Lock()
		s.stats.DetectorErrors++
		s.mu.Unlock()
		return nil
	}

	s.mu.Lock()
	s.stats.DetectorInferences++
	s.mu.Unlock()

	return decision.Evaluate(detections, z)
}

func (s *Service) recordOutcome(frame *models.Frame, intrusions []models.Intrusion, outcome alerting.Outcome) {
	if outcome.IntrusionStart {
		s.logger.Warn().
			Int64("frame", frame.ID).
			Int("persons", len(intrusions)).
			Msg("Intrusion started")
		s.audit.LogIntrusion(frame.ID, intrusions)
	}
	if outcome.SnapshotTaken {
		s.audit.LogEvent("SNAPSHOT", fmt.Sprintf("Saved %s", outcome.SnapshotPath))
	}
	if outcome.SoundDispatched {
		s.audit.LogEvent("ALERT", fmt.Sprintf("Audible alert dispatched at frame %d", frame.ID))
	}
	if outcome.IntrusionEnd {
		s.logger.Info().
			Int64("frame", frame.ID).
			Float64("duration_seconds", outcome.EndedDuration.Seconds()).
			Msg("Intrusion ended")
		s.audit.LogEvent("ALERT", fmt.Sprintf("Intrusion ended after %.1fs", outcome.EndedDuration.Seconds()))
	}
}

// ForceSnapshot captures the most recent frame on demand. It shares the
// cooldown with automatic captures.
func (s *Service) ForceSnapshot() (string, error) {
	s.mu.Lock()
	frame := s.lastFrame
	intrusions := s.lastEval
	s.mu.Unlock()

	if frame == nil {
		return "", fmt.Errorf("no frame processed yet")
	}

	path, err := s.coordinator.ForceSnapshot(frame, intrusions)
	if err != nil {
		return "", err
	}
	s.audit.LogEvent("SNAPSHOT", fmt.Sprintf("Manual capture saved %s", path))
	return path, nil
}

// ResetGate clears the background model together with the gate so both
// restart their warm-up in lockstep.
func (s *Service) ResetGate() {
	s.background.Reset()
	s.gate.Reset()
	s.logger.Info().Msg("Motion gate and background model reset")
	s.audit.LogEvent("GATE", "Motion gate and background model reset")
}

func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := s.stats
	stats.UptimeSeconds = time.Since(s.startedAt).Seconds()
	return stats
}

func (s *Service) finish() {
	stats := s.Stats()
	s.audit.LogSessionEnd(stats)
	s.logger.Info().
		Int64("frames", stats.FramesProcessed).
		Int64("motion_triggers", stats.MotionTriggers).
		Int64("detector_inferences", stats.DetectorInferences).
		Int64("intrusion_frames", stats.IntrusionFrames).
		Msg("Pipeline stopped")
}
