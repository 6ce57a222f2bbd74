package vision

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"fence-worker-go/internal/config"
	"fence-worker-go/internal/models"
	"fence-worker-go/internal/services/zone"
)

// SnapshotService writes annotated evidence frames to disk. Each saved
// image carries the zone outline, detection boxes and foot points so the
// capture documents why the alert fired.
type SnapshotService struct {
	dir    string
	zones  *zone.Service
	logger zerolog.Logger
}

func NewSnapshotService(cfg *config.Config, zones *zone.Service, logger zerolog.Logger) (*SnapshotService, error) {
	if err := os.MkdirAll(cfg.SnapshotDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory %s: %w", cfg.SnapshotDir, err)
	}

	logger.Info().
		Str("dir", cfg.SnapshotDir).
		Msg("Snapshot service initialized")

	return &SnapshotService{
		dir:    cfg.SnapshotDir,
		zones:  zones,
		logger: logger,
	}, nil
}

// Save writes an annotated copy of the frame and returns the file path.
func (s *SnapshotService) Save(frame *models.Frame, intrusions []models.Intrusion) (string, error) {
	if frame == nil || frame.Color == nil {
		return "", fmt.Errorf("no frame available for snapshot")
	}

	mat, err := gocv.ImageToMatRGB(frame.Color)
	if err != nil {
		return "", fmt.Errorf("failed to convert frame for snapshot: %w", err)
	}
	defer mat.Close()

	DrawZone(&mat, s.zones.Snapshot())
	for _, in := range intrusions {
		DrawDetection(&mat, in)
	}

	// The RGB to BGR swap is its own inverse, gocv only names one direction.
	gocv.CvtColor(mat, &mat, gocv.ColorBGRToRGB)

	filename := fmt.Sprintf("intrusion_%s_frame%d.jpg",
		frame.Timestamp.Format("20060102_150405.000"), frame.ID)
	path := filepath.Join(s.dir, filename)

	if ok := gocv.IMWrite(path, mat); !ok {
		return "", fmt.Errorf("failed to write snapshot %s", path)
	}

	s.logger.Info().
		Str("path", path).
		Int("intrusions", len(intrusions)).
		Msg("Snapshot saved")

	return path, nil
}
