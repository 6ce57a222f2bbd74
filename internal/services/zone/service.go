package zone

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"fence-worker-go/internal/config"
	"fence-worker-go/internal/logging"
	"fence-worker-go/internal/models"
)

var (
	// ErrInvalidPolygon is returned when fewer than 3 points are supplied.
	ErrInvalidPolygon = errors.New("polygon requires at least 3 points")

	// ErrConfigNotFound means no saved zone exists at the configured path.
	ErrConfigNotFound = errors.New("zone config not found")

	// ErrConfigCorrupt means the saved zone could not be parsed.
	ErrConfigCorrupt = errors.New("zone config corrupt")
)

// configRecord is the persisted zone format: the ordered point list plus the
// frame dimensions it was authored against.
type configRecord struct {
	Points      []models.Point `json:"points"`
	FrameWidth  int            `json:"frame_width"`
	FrameHeight int            `json:"frame_height"`
	Description string         `json:"description,omitempty"`
}

// Service owns the monitored-area polygon for the session. Define replaces the
// polygon and regenerates the mask; Snapshot hands out immutable views.
type Service struct {
	cfg *config.Config
	log zerolog.Logger

	mu      sync.RWMutex
	current *Zone
}

// NewService creates a zone service with no polygon defined.
func NewService(cfg *config.Config) *Service {
	return &Service{
		cfg: cfg,
		log: logging.NewServiceLogger(cfg, "zone"),
	}
}

// Define validates and stores a new polygon, rasterizing its mask against the
// configured frame dimensions. Fewer than 3 points fails with
// ErrInvalidPolygon and leaves any prior zone in place.
func (s *Service) Define(points []models.Point) error {
	if len(points) < 3 {
		return fmt.Errorf("%w: got %d", ErrInvalidPolygon, len(points))
	}

	pts := make([]models.Point, len(points))
	copy(pts, points)

	z := &Zone{
		points: pts,
		width:  s.cfg.FrameWidth,
		height: s.cfg.FrameHeight,
		mask:   rasterize(pts, s.cfg.FrameWidth, s.cfg.FrameHeight),
	}

	s.mu.Lock()
	s.current = z
	s.mu.Unlock()

	s.log.Info().
		Int("points", len(pts)).
		Int("width", s.cfg.FrameWidth).
		Int("height", s.cfg.FrameHeight).
		Msg("Zone defined, mask regenerated")
	return nil
}

// Snapshot returns the current immutable zone view. The result is never nil;
// an undefined zone reports Defined() == false.
func (s *Service) Snapshot() *Zone {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return &Zone{}
	}
	return s.current
}

// Defined reports whether a polygon has been successfully defined.
func (s *Service) Defined() bool {
	return s.Snapshot().Defined()
}

// Save writes the current polygon and its frame dimensions to path.
func (s *Service) Save(path string) error {
	z := s.Snapshot()
	if !z.Defined() {
		return fmt.Errorf("%w: nothing to save", ErrInvalidPolygon)
	}

	rec := configRecord{
		Points:      z.Points(),
		FrameWidth:  z.width,
		FrameHeight: z.height,
		Description: "virtual fence zone",
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}

	s.log.Info().Str("path", path).Int("points", len(rec.Points)).Msg("Zone saved")
	return nil
}

// Load reads a saved polygon from path and defines it against the current
// frame dimensions. When the saved record was authored against different
// dimensions the zone is still loaded, but sizeMismatch is true so the caller
// can surface the warning; the polygon is never rescaled silently.
func (s *Service) Load(path string) (sizeMismatch bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return false, err
	}

	var rec configRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return false, fmt.Errorf("%w: %v", ErrConfigCorrupt, err)
	}

	if err := s.Define(rec.Points); err != nil {
		return false, fmt.Errorf("%w: %v", ErrConfigCorrupt, err)
	}

	sizeMismatch = rec.FrameWidth != s.cfg.FrameWidth || rec.FrameHeight != s.cfg.FrameHeight
	if sizeMismatch {
		s.log.Warn().
			Str("path", path).
			Int("saved_width", rec.FrameWidth).
			Int("saved_height", rec.FrameHeight).
			Int("frame_width", s.cfg.FrameWidth).
			Int("frame_height", s.cfg.FrameHeight).
			Msg("Zone config authored against different frame size")
	} else {
		s.log.Info().Str("path", path).Int("points", len(rec.Points)).Msg("Zone loaded")
	}

	return sizeMismatch, nil
}
