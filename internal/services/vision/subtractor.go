package vision

import (
	"fmt"
	"image"
	"sync"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"fence-worker-go/internal/config"
	"fence-worker-go/internal/logging"
)

// MOG2Subtractor wraps OpenCV's MOG2 background model and the cleanup chain
// applied to its raw output: binary threshold to drop low-confidence pixels,
// then elliptical open/close morphology to remove speckle noise and fill small
// holes. It implements models.ForegroundMaskProvider.
type MOG2Subtractor struct {
	cfg *config.Config
	log zerolog.Logger

	mu     sync.Mutex
	mog2   gocv.BackgroundSubtractorMOG2
	kernel gocv.Mat
	fg     gocv.Mat
	clean  gocv.Mat
}

// NewMOG2Subtractor creates the background model with the configured history
// and variance threshold. Shadows are not detected; the binary mask is simpler
// to score.
func NewMOG2Subtractor(cfg *config.Config) *MOG2Subtractor {
	k := cfg.MorphKernelSize
	s := &MOG2Subtractor{
		cfg:    cfg,
		log:    logging.NewServiceLogger(cfg, "background"),
		mog2:   gocv.NewBackgroundSubtractorMOG2WithParams(cfg.MOG2History, cfg.MOG2VarThreshold, false),
		kernel: gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(k, k)),
		fg:     gocv.NewMat(),
		clean:  gocv.NewMat(),
	}

	s.log.Info().
		Int("history", cfg.MOG2History).
		Float64("var_threshold", cfg.MOG2VarThreshold).
		Int("morph_kernel", k).
		Msg("Background subtractor initialized")
	return s
}

// Apply feeds one grayscale frame to the model and returns the cleaned binary
// foreground mask, same dimensions as the input.
func (s *MOG2Subtractor) Apply(gray *image.Gray) (*image.Gray, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	in, err := gocv.ImageGrayToMatGray(gray)
	if err != nil {
		return nil, fmt.Errorf("mask input conversion failed: %w", err)
	}
	defer in.Close()

	s.mog2.Apply(in, &s.fg)

	// MOG2 emits 0/127/255 even with shadows off on some builds; force binary
	gocv.Threshold(s.fg, &s.fg, 200, 255, gocv.ThresholdBinary)

	gocv.MorphologyEx(s.fg, &s.clean, gocv.MorphOpen, s.kernel)
	gocv.MorphologyEx(s.clean, &s.clean, gocv.MorphClose, s.kernel)

	out, err := s.clean.ToImage()
	if err != nil {
		return nil, fmt.Errorf("mask output conversion failed: %w", err)
	}
	mask, ok := out.(*image.Gray)
	if !ok {
		return nil, fmt.Errorf("unexpected mask image type %T", out)
	}
	return mask, nil
}

// Reset discards the learned background. Callers must reset the motion gate
// alongside this: its warm-up only means anything against a fresh model.
func (s *MOG2Subtractor) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mog2.Close()
	s.mog2 = gocv.NewBackgroundSubtractorMOG2WithParams(s.cfg.MOG2History, s.cfg.MOG2VarThreshold, false)
	s.log.Info().Msg("Background model reset")
}

// Close releases the model and working buffers.
func (s *MOG2Subtractor) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clean.Close()
	s.fg.Close()
	s.kernel.Close()
	return s.mog2.Close()
}
