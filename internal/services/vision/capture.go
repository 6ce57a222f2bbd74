package vision

import (
	"fmt"
	"image"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"fence-worker-go/internal/config"
	"fence-worker-go/internal/logging"
	"fence-worker-go/internal/models"
)

const maxConsecutiveReadErrors = 10

// Capture reads frames from a webcam, RTSP stream or video file through
// OpenCV and normalizes them to the configured frame size. It implements
// models.FrameSource.
type Capture struct {
	cfg *config.Config
	log zerolog.Logger

	cap       *gocv.VideoCapture
	buf       gocv.Mat
	gray      gocv.Mat
	frameID   int64
	lastRead  time.Time
	interval  time.Duration
	errStreak int
}

// NewCapture opens the configured camera source. A numeric CAMERA_URL opens a
// local device index, anything else is treated as an RTSP URL or file path.
func NewCapture(cfg *config.Config) (*Capture, error) {
	logger := logging.NewServiceLogger(cfg, "capture")

	var cap *gocv.VideoCapture
	var err error
	if device, convErr := strconv.Atoi(cfg.CameraURL); convErr == nil {
		cap, err = gocv.OpenVideoCapture(device)
	} else {
		cap, err = gocv.OpenVideoCapture(cfg.CameraURL)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open video source %s: %w", cfg.CameraURL, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return nil, fmt.Errorf("video source %s is not opened", cfg.CameraURL)
	}

	cap.Set(gocv.VideoCaptureBufferSize, 1)
	cap.Set(gocv.VideoCaptureFrameWidth, float64(cfg.FrameWidth))
	cap.Set(gocv.VideoCaptureFrameHeight, float64(cfg.FrameHeight))

	var interval time.Duration
	if cfg.TargetFPS > 0 {
		interval = time.Second / time.Duration(cfg.TargetFPS)
	}

	logger.Info().
		Str("source", cfg.CameraURL).
		Int("width", cfg.FrameWidth).
		Int("height", cfg.FrameHeight).
		Int("target_fps", cfg.TargetFPS).
		Float64("source_fps", cap.Get(gocv.VideoCaptureFPS)).
		Msg("Video source opened")

	return &Capture{
		cfg:      cfg,
		log:      logger,
		cap:      cap,
		buf:      gocv.NewMat(),
		gray:     gocv.NewMat(),
		interval: interval,
	}, nil
}

// Next reads, paces and converts the next frame. Returns
// models.ErrEndOfStream once the source is exhausted.
func (c *Capture) Next() (*models.Frame, error) {
	// Pace file playback to the target FPS; live sources set their own rate.
	if c.interval > 0 && !c.lastRead.IsZero() {
		if wait := c.interval - time.Since(c.lastRead); wait > 0 {
			time.Sleep(wait)
		}
	}

	for {
		if ok := c.cap.Read(&c.buf); !ok || c.buf.Empty() {
			c.errStreak++
			if c.errStreak >= maxConsecutiveReadErrors {
				c.log.Info().Int64("frames", c.frameID).Msg("Video source exhausted")
				return nil, models.ErrEndOfStream
			}
			time.Sleep(100 * time.Millisecond)
			continue
		}
		break
	}
	c.errStreak = 0
	c.lastRead = time.Now()

	if c.buf.Cols() != c.cfg.FrameWidth || c.buf.Rows() != c.cfg.FrameHeight {
		gocv.Resize(c.buf, &c.buf, image.Pt(c.cfg.FrameWidth, c.cfg.FrameHeight), 0, 0, gocv.InterpolationLinear)
	}

	gocv.CvtColor(c.buf, &c.gray, gocv.ColorBGRToGray)

	colorImg, err := c.buf.ToImage()
	if err != nil {
		return nil, fmt.Errorf("frame conversion failed: %w", err)
	}
	grayImg, err := c.gray.ToImage()
	if err != nil {
		return nil, fmt.Errorf("gray conversion failed: %w", err)
	}
	grayPlane, ok := grayImg.(*image.Gray)
	if !ok {
		return nil, fmt.Errorf("unexpected gray image type %T", grayImg)
	}

	c.frameID++
	return &models.Frame{
		ID:        c.frameID,
		Timestamp: c.lastRead,
		Gray:      grayPlane,
		Color:     colorImg,
	}, nil
}

// Close releases the capture device and working buffers.
func (c *Capture) Close() error {
	c.gray.Close()
	c.buf.Close()
	return c.cap.Close()
}
