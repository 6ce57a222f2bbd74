package alerting

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"fence-worker-go/internal/config"
	"fence-worker-go/internal/logging"
	"fence-worker-go/internal/models"
	"fence-worker-go/internal/services/decision"
)

// ErrSnapshotCooldown is returned by ForceSnapshot when the shared frame-count
// cooldown has not elapsed yet.
var ErrSnapshotCooldown = errors.New("snapshot cooldown active")

// Outcome reports what the coordinator did for one frame.
type Outcome struct {
	HasIntrusion    bool
	IntrusionStart  bool
	IntrusionEnd    bool
	EndedDuration   time.Duration
	SnapshotTaken   bool
	SnapshotPath    string
	SoundDispatched bool
}

// Stats is a point-in-time view of the coordinator's accounting.
type Stats struct {
	IntrusionActive bool    `json:"intrusion_active"`
	CurrentDuration float64 `json:"current_duration_seconds"`
	MaxDuration     float64 `json:"max_duration_seconds"`
	TotalDuration   float64 `json:"total_duration_seconds"`
	IntrusionEvents int64   `json:"intrusion_events"`
	SnapshotCount   int64   `json:"snapshot_count"`
	SoundAlerts     int64   `json:"sound_alerts"`
}

// Coordinator aggregates per-frame intrusion verdicts into rate-limited
// reactions: duration accounting, snapshot capture throttled by a frame-count
// cooldown, and an audible alert throttled by a wall-clock cooldown. It is the
// sole holder of cross-frame intrusion memory.
//
// Snapshot throttling uses frames so replayed footage behaves identically
// regardless of processing speed; the sound alert targets a human observer, so
// it is spaced in real time regardless of frame rate.
type Coordinator struct {
	cfg       *config.Config
	log       zerolog.Logger
	clock     Clock
	publisher models.MessagePublisher
	snapshots models.SnapshotWriter

	mu sync.Mutex

	// duration tracking
	active          bool
	activeSince     time.Time
	currentDuration time.Duration
	maxDuration     time.Duration
	totalDuration   time.Duration
	intrusionEvents int64

	// snapshot cooldown (frame-count based)
	framesSinceSnapshot int
	snapshotCount       int64

	// sound cooldown (wall-clock based)
	soundFired  bool
	lastSound   time.Time
	soundAlerts int64
}

// NewCoordinator creates a coordinator. publisher and snapshots may be nil,
// which disables the corresponding reaction but not the bookkeeping.
func NewCoordinator(cfg *config.Config, publisher models.MessagePublisher, snapshots models.SnapshotWriter) *Coordinator {
	return &Coordinator{
		cfg:       cfg,
		log:       logging.NewServiceLogger(cfg, "alerting"),
		clock:     systemClock{},
		publisher: publisher,
		snapshots: snapshots,
		// Ready to capture immediately on the first intrusion
		framesSinceSnapshot: cfg.SnapshotCooldownFrames,
	}
}

// ProcessFrame consumes one frame's intrusion verdicts, in arrival order,
// exactly once per frame. It never blocks on alert delivery.
func (c *Coordinator) ProcessFrame(frame *models.Frame, intrusions []models.Intrusion, motionScore int) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	has := decision.HasIntrusion(intrusions)
	out := Outcome{HasIntrusion: has}

	// Duration tracking, edge-triggered on the intrusion signal.
	if has {
		if !c.active {
			c.active = true
			c.activeSince = now
			c.intrusionEvents++
			out.IntrusionStart = true
			c.log.Info().Int64("frame_id", frameID(frame)).Msg("Intrusion started")
		}
		c.currentDuration = now.Sub(c.activeSince)
		if c.currentDuration > c.maxDuration {
			c.maxDuration = c.currentDuration
		}
	} else if c.active {
		c.totalDuration += c.currentDuration
		out.IntrusionEnd = true
		out.EndedDuration = c.currentDuration
		c.log.Info().
			Dur("duration", c.currentDuration).
			Dur("total", c.totalDuration).
			Msg("Intrusion ended")
		c.currentDuration = 0
		c.active = false
	}

	// Snapshot capture, frame-count cooldown. The counter ticks every frame
	// that doesn't capture; a failed write does not consume the opportunity.
	if has && c.snapshots != nil && c.framesSinceSnapshot >= c.cfg.SnapshotCooldownFrames {
		path, err := c.snapshots.Save(frame, intrusions)
		if err != nil {
			c.log.Warn().Err(err).Msg("Snapshot write failed, cooldown not consumed")
		} else {
			c.framesSinceSnapshot = 0
			c.snapshotCount++
			out.SnapshotTaken = true
			out.SnapshotPath = path
			c.log.Info().Str("path", path).Msg("Intrusion snapshot saved")
		}
	} else if c.framesSinceSnapshot < c.cfg.SnapshotCooldownFrames {
		c.framesSinceSnapshot++
	}

	// Audible alert, wall-clock cooldown, dispatched fire-and-forget.
	if has {
		if !c.soundFired || now.Sub(c.lastSound) >= c.cfg.SoundCooldown {
			c.soundFired = true
			c.lastSound = now
			c.soundAlerts++
			out.SoundDispatched = true
			c.dispatchAlert(frame, intrusions, motionScore, now, out.SnapshotPath)
		}
	}

	return out
}

// ForceSnapshot captures outside the intrusion gate, for manual requests. It
// still respects, and on success resets, the same frame-count cooldown.
func (c *Coordinator) ForceSnapshot(frame *models.Frame, intrusions []models.Intrusion) (string, error) {
	if c.snapshots == nil {
		return "", errors.New("snapshots disabled")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.framesSinceSnapshot < c.cfg.SnapshotCooldownFrames {
		return "", fmt.Errorf("%w: %d of %d frames elapsed",
			ErrSnapshotCooldown, c.framesSinceSnapshot, c.cfg.SnapshotCooldownFrames)
	}

	path, err := c.snapshots.Save(frame, intrusions)
	if err != nil {
		return "", err
	}
	c.framesSinceSnapshot = 0
	c.snapshotCount++
	c.log.Info().Str("path", path).Msg("Manual snapshot saved")
	return path, nil
}

// dispatchAlert publishes the alert on a goroutine the coordinator never
// joins; delivery failures and overlaps are the bus subscriber's concern.
// Caller holds the mutex.
func (c *Coordinator) dispatchAlert(frame *models.Frame, intrusions []models.Intrusion, motionScore int, now time.Time, snapshotPath string) {
	if c.publisher == nil {
		return
	}

	alert := models.IntrusionAlert{
		WorkerID:       c.cfg.WorkerID,
		AlertType:      models.AlertTypeIntrusion,
		Severity:       models.AlertSeverityHigh,
		Title:          "Intrusion Detected",
		Description:    fmt.Sprintf("%d object(s) inside monitored zone", insideCount(intrusions)),
		Intrusions:     intrusions,
		Frame:          frameMetadata(frame, motionScore),
		ActiveDuration: c.currentDuration.Seconds(),
		SnapshotPath:   snapshotPath,
		Timestamp:      now,
	}

	subject := c.cfg.AlertsSubject
	pub := c.publisher
	logger := c.log
	go func() {
		if err := pub.Publish(subject, alert); err != nil {
			logger.Error().Err(err).Str("subject", subject).Msg("Failed to publish intrusion alert")
		}
	}()
}

// Stats returns the coordinator's accounting, including the in-flight
// interval's duration when an intrusion is active.
func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		IntrusionActive: c.active,
		CurrentDuration: c.currentDuration.Seconds(),
		MaxDuration:     c.maxDuration.Seconds(),
		TotalDuration:   c.totalDuration.Seconds(),
		IntrusionEvents: c.intrusionEvents,
		SnapshotCount:   c.snapshotCount,
		SoundAlerts:     c.soundAlerts,
	}
}

func insideCount(intrusions []models.Intrusion) int {
	n := 0
	for _, in := range intrusions {
		if in.InsideZone {
			n++
		}
	}
	return n
}

func frameID(frame *models.Frame) int64 {
	if frame == nil {
		return 0
	}
	return frame.ID
}

func frameMetadata(frame *models.Frame, motionScore int) models.FrameMetadata {
	if frame == nil {
		return models.FrameMetadata{MotionScore: motionScore}
	}
	return models.FrameMetadata{
		FrameID:     frame.ID,
		Timestamp:   frame.Timestamp,
		Width:       frame.Width(),
		Height:      frame.Height(),
		MotionScore: motionScore,
	}
}
