package motiongate

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/rs/zerolog"

	"fence-worker-go/internal/config"
	"fence-worker-go/internal/logging"
)

// ErrDimensionMismatch is returned when a foreground mask does not match the
// zone mask dimensions. This is a configuration error and is never papered
// over by cropping; the offending frame is skipped upstream.
var ErrDimensionMismatch = errors.New("foreground mask dimensions do not match zone mask")

// State is the observable gate state.
type State string

const (
	StateWarmup State = "WARMUP"
	StateIdle   State = "IDLE"
	StateActive State = "ACTIVE"
)

// Stats is a point-in-time view of gate counters.
type Stats struct {
	FramesSeen        int64   `json:"frames_seen"`
	FramesTriggered   int64   `json:"frames_triggered"`
	TriggerRate       float64 `json:"trigger_rate"`
	Threshold         int     `json:"threshold"`
	WarmedUp          bool    `json:"warmed_up"`
	DebounceRemaining int     `json:"debounce_remaining"`
	State             State   `json:"state"`
}

// Gate decides whether the expensive detector should run this frame, based on
// the motion score inside the zone. It suppresses triggers while the
// background model warms up and debounces around the threshold so triggering
// does not flap when motion hovers near it.
type Gate struct {
	cfg *config.Config
	log zerolog.Logger

	mu                sync.Mutex
	warmupFrames      int
	threshold         int
	debounceFrames    int
	framesSeen        int64
	framesTriggered   int64
	warmedUp          bool
	debounceRemaining int
}

// New creates a gate in WARMUP with the configured parameters.
func New(cfg *config.Config) *Gate {
	return &Gate{
		cfg:            cfg,
		log:            logging.NewServiceLogger(cfg, "motiongate"),
		warmupFrames:   cfg.WarmupFrames,
		threshold:      cfg.MotionThreshold,
		debounceFrames: cfg.DebounceFrames,
	}
}

// Check runs the per-frame transition for the given motion score and reports
// whether the detector should run this frame. Frames must be fed in arrival
// order, exactly once each.
func (g *Gate) Check(motionScore int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.framesSeen++

	// During warm-up the background model is still learning the scene, so a
	// high score means nothing. Never trigger, and don't arm the debounce.
	if g.framesSeen <= int64(g.warmupFrames) {
		return false
	}

	if !g.warmedUp {
		g.warmedUp = true
		g.log.Info().Int("warmup_frames", g.warmupFrames).Msg("Warm-up complete, gate active")
	}

	// Level-triggered: every qualifying frame re-arms the full debounce
	// window, extending the active period rather than restarting it on edges.
	if motionScore > g.threshold {
		g.debounceRemaining = g.debounceFrames
	}

	if g.debounceRemaining > 0 {
		g.debounceRemaining--
		g.framesTriggered++
		return true
	}
	return false
}

// SetThreshold updates the motion threshold at runtime. Warm-up progress and
// any in-flight debounce window are deliberately left untouched.
func (g *Gate) SetThreshold(threshold int) {
	g.mu.Lock()
	old := g.threshold
	g.threshold = threshold
	g.mu.Unlock()

	g.log.Info().Int("old", old).Int("new", threshold).Msg("Motion threshold updated")
}

// Threshold returns the current motion threshold.
func (g *Gate) Threshold() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.threshold
}

// Reset returns the gate to WARMUP. It must be called whenever the background
// model is reset: warm-up is only meaningful relative to a fresh model.
func (g *Gate) Reset() {
	g.mu.Lock()
	g.framesSeen = 0
	g.warmedUp = false
	g.debounceRemaining = 0
	g.mu.Unlock()

	g.log.Info().Msg("Gate reset, warm-up restarting")
}

// State returns the observable state of the gate.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch {
	case !g.warmedUp && g.framesSeen <= int64(g.warmupFrames):
		return StateWarmup
	case g.debounceRemaining > 0:
		return StateActive
	default:
		return StateIdle
	}
}

// Stats returns current gate counters. Trigger rate is relative to post-warm-up
// frames only.
func (g *Gate) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()

	rate := 0.0
	if effective := g.framesSeen - int64(g.warmupFrames); effective > 0 {
		rate = float64(g.framesTriggered) / float64(effective)
	}

	st := StateIdle
	if !g.warmedUp && g.framesSeen <= int64(g.warmupFrames) {
		st = StateWarmup
	} else if g.debounceRemaining > 0 {
		st = StateActive
	}

	return Stats{
		FramesSeen:        g.framesSeen,
		FramesTriggered:   g.framesTriggered,
		TriggerRate:       rate,
		Threshold:         g.threshold,
		WarmedUp:          g.warmedUp,
		DebounceRemaining: g.debounceRemaining,
		State:             st,
	}
}

// Score counts foreground pixels inside the zone mask for one frame. Both
// masks are binary rasters of identical dimensions; any disagreement fails
// with ErrDimensionMismatch.
func Score(foreground, zoneMask *image.Gray) (int, error) {
	if foreground == nil || zoneMask == nil {
		return 0, fmt.Errorf("%w: nil mask", ErrDimensionMismatch)
	}
	fw, fh := foreground.Rect.Dx(), foreground.Rect.Dy()
	zw, zh := zoneMask.Rect.Dx(), zoneMask.Rect.Dy()
	if fw != zw || fh != zh {
		return 0, fmt.Errorf("%w: foreground %dx%d, zone %dx%d", ErrDimensionMismatch, fw, fh, zw, zh)
	}

	count := 0
	for y := 0; y < fh; y++ {
		frow := foreground.Pix[y*foreground.Stride : y*foreground.Stride+fw]
		zrow := zoneMask.Pix[y*zoneMask.Stride : y*zoneMask.Stride+zw]
		for x := 0; x < fw; x++ {
			if frow[x] != 0 && zrow[x] != 0 {
				count++
			}
		}
	}
	return count, nil
}
