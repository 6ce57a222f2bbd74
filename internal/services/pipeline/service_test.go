package pipeline

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fence-worker-go/internal/config"
	"fence-worker-go/internal/models"
	"fence-worker-go/internal/services/alerting"
	"fence-worker-go/internal/services/motiongate"
	"fence-worker-go/internal/services/zone"
)

const (
	testWidth  = 64
	testHeight = 48
)

type fakeSource struct {
	frames []*models.Frame
	next   int
}

func (f *fakeSource) Next() (*models.Frame, error) {
	if f.next >= len(f.frames) {
		return nil, models.ErrEndOfStream
	}
	frame := f.frames[f.next]
	f.next++
	return frame, nil
}

func (f *fakeSource) Close() error { return nil }

// identityBackground passes the input gray frame through unchanged, so a
// test controls the motion score directly through frame pixels.
type identityBackground struct {
	resets int
}

func (b *identityBackground) Apply(gray *image.Gray) (*image.Gray, error) { return gray, nil }
func (b *identityBackground) Reset()                                     { b.resets++ }
func (b *identityBackground) Close() error                               { return nil }

type fakeDetector struct {
	calls      int
	detections []models.Detection
	err        error
}

func (d *fakeDetector) Detect(_ context.Context, _ *models.Frame) ([]models.Detection, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	return d.detections, nil
}

// shrunkenBackground returns masks smaller than the zone mask, the shape of
// failure a mid-stream capture reconfiguration would produce.
type shrunkenBackground struct{}

func (shrunkenBackground) Apply(_ *image.Gray) (*image.Gray, error) {
	return image.NewGray(image.Rect(0, 0, testWidth/2, testHeight/2)), nil
}
func (shrunkenBackground) Reset()       {}
func (shrunkenBackground) Close() error { return nil }

type fakeSnapshots struct {
	saves int
}

func (f *fakeSnapshots) Save(_ *models.Frame, _ []models.Intrusion) (string, error) {
	f.saves++
	return "snapshots/test.jpg", nil
}

func testConfig() *config.Config {
	return &config.Config{
		WorkerID:               "test-worker",
		FrameWidth:             testWidth,
		FrameHeight:            testHeight,
		MotionThreshold:        50,
		WarmupFrames:           3,
		DebounceFrames:         2,
		SnapshotsEnabled:       true,
		SnapshotCooldownFrames: 2,
		SoundCooldown:          time.Minute,
		AlertsSubject:          "alerts.intrusion",
	}
}

func quietFrame(id int64) *models.Frame {
	return &models.Frame{
		ID:        id,
		Timestamp: time.Now(),
		Gray:      image.NewGray(image.Rect(0, 0, testWidth, testHeight)),
	}
}

func motionFrame(id int64) *models.Frame {
	frame := quietFrame(id)
	for y := 10; y < 30; y++ {
		for x := 10; x < 30; x++ {
			frame.Gray.Pix[y*frame.Gray.Stride+x] = 255
		}
	}
	return frame
}

func definedZone(t *testing.T, cfg *config.Config) *zone.Service {
	t.Helper()
	zones := zone.NewService(cfg)
	err := zones.Define([]models.Point{
		{X: 0, Y: 0},
		{X: testWidth - 1, Y: 0},
		{X: testWidth - 1, Y: testHeight - 1},
		{X: 0, Y: testHeight - 1},
	})
	require.NoError(t, err)
	return zones
}

func newTestService(cfg *config.Config, source *fakeSource, detector *fakeDetector, zones *zone.Service, audit *AuditLog) (*Service, *fakeSnapshots, *identityBackground) {
	snapshots := &fakeSnapshots{}
	background := &identityBackground{}
	gate := motiongate.New(cfg)
	coordinator := alerting.NewCoordinator(cfg, nil, snapshots)
	svc := NewService(cfg, source, background, detector, zones, gate, coordinator, audit, zerolog.Nop())
	return svc, snapshots, background
}

func TestWarmupSuppressesDetector(t *testing.T) {
	cfg := testConfig()
	zones := definedZone(t, cfg)

	source := &fakeSource{frames: []*models.Frame{
		motionFrame(1), motionFrame(2), motionFrame(3),
	}}
	detector := &fakeDetector{}
	svc, _, _ := newTestService(cfg, source, detector, zones, NewAuditLog("", false))

	err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, detector.calls)
	assert.Equal(t, int64(3), svc.Stats().FramesProcessed)
}

func TestMotionTriggersDetectorAfterWarmup(t *testing.T) {
	cfg := testConfig()
	zones := definedZone(t, cfg)

	source := &fakeSource{frames: []*models.Frame{
		motionFrame(1), motionFrame(2), motionFrame(3),
		motionFrame(4),
	}}
	detector := &fakeDetector{}
	svc, _, _ := newTestService(cfg, source, detector, zones, NewAuditLog("", false))

	err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, detector.calls)
	assert.Equal(t, int64(1), svc.Stats().MotionTriggers)
	assert.Equal(t, int64(1), svc.Stats().DetectorInferences)
}

func TestQuietFramesSkipDetector(t *testing.T) {
	cfg := testConfig()
	zones := definedZone(t, cfg)

	source := &fakeSource{frames: []*models.Frame{
		quietFrame(1), quietFrame(2), quietFrame(3),
		quietFrame(4), quietFrame(5),
	}}
	detector := &fakeDetector{}
	svc, _, _ := newTestService(cfg, source, detector, zones, NewAuditLog("", false))

	err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, detector.calls)
	assert.Equal(t, int64(5), svc.Stats().FramesProcessed)
	assert.Equal(t, int64(0), svc.Stats().MotionTriggers)
}

func TestUndefinedZoneNeverTriggers(t *testing.T) {
	cfg := testConfig()
	zones := zone.NewService(cfg)

	source := &fakeSource{frames: []*models.Frame{
		motionFrame(1), motionFrame(2), motionFrame(3),
		motionFrame(4), motionFrame(5),
	}}
	detector := &fakeDetector{}
	svc, _, _ := newTestService(cfg, source, detector, zones, NewAuditLog("", false))

	err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, detector.calls)
	assert.Equal(t, int64(0), svc.Stats().MotionTriggers)
}

func TestDetectorErrorSkipsFrameAndContinues(t *testing.T) {
	cfg := testConfig()
	zones := definedZone(t, cfg)

	source := &fakeSource{frames: []*models.Frame{
		motionFrame(1), motionFrame(2), motionFrame(3),
		motionFrame(4), motionFrame(5),
	}}
	detector := &fakeDetector{err: errors.New("model not loaded")}
	svc, snapshots, _ := newTestService(cfg, source, detector, zones, NewAuditLog("", false))

	err := svc.Run(context.Background())
	require.NoError(t, err)

	// Both post-warm-up frames invoked the detector, both failed, the loop
	// stayed live and treated them as empty frames.
	assert.Equal(t, 2, detector.calls)
	assert.Equal(t, int64(5), svc.Stats().FramesProcessed)
	assert.Equal(t, int64(2), svc.Stats().DetectorErrors)
	assert.Equal(t, int64(0), svc.Stats().DetectorInferences)
	assert.Equal(t, int64(0), svc.Stats().IntrusionFrames)
	assert.Equal(t, 0, snapshots.saves)
}

func TestMismatchedMaskSkipsFrameAndContinues(t *testing.T) {
	cfg := testConfig()
	zones := definedZone(t, cfg)

	source := &fakeSource{frames: []*models.Frame{
		motionFrame(1), motionFrame(2), motionFrame(3),
	}}
	detector := &fakeDetector{}
	gate := motiongate.New(cfg)
	coordinator := alerting.NewCoordinator(cfg, nil, &fakeSnapshots{})
	svc := NewService(cfg, source, shrunkenBackground{}, detector, zones,
		gate, coordinator, NewAuditLog("", false), zerolog.Nop())

	err := svc.Run(context.Background())
	require.NoError(t, err)

	// Every mask disagreed with the zone mask, so every frame was dropped
	// before the gate and the loop still reached end of stream.
	assert.Equal(t, int64(0), svc.Stats().FramesProcessed)
	assert.Equal(t, int64(0), gate.Stats().FramesSeen)
	assert.Equal(t, 0, detector.calls)
}

func TestIntrusionAccountingAndSnapshot(t *testing.T) {
	cfg := testConfig()
	zones := definedZone(t, cfg)

	source := &fakeSource{frames: []*models.Frame{
		motionFrame(1), motionFrame(2), motionFrame(3),
		motionFrame(4),
	}}
	detector := &fakeDetector{detections: []models.Detection{{
		ClassID:    0,
		ClassName:  "person",
		Confidence: 0.9,
		BBox:       models.BBox{X1: 12, Y1: 10, X2: 28, Y2: 28},
	}}}
	svc, snapshots, _ := newTestService(cfg, source, detector, zones, NewAuditLog("", false))

	err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1), svc.Stats().IntrusionFrames)
	assert.Equal(t, 1, snapshots.saves)
}

func TestAuditLogRecordsIntrusion(t *testing.T) {
	cfg := testConfig()
	zones := definedZone(t, cfg)

	path := filepath.Join(t.TempDir(), "intrusions.log")
	audit := NewAuditLog(path, true)

	source := &fakeSource{frames: []*models.Frame{
		motionFrame(1), motionFrame(2), motionFrame(3),
		motionFrame(4),
	}}
	detector := &fakeDetector{detections: []models.Detection{{
		ClassID:    0,
		ClassName:  "person",
		Confidence: 0.9,
		BBox:       models.BBox{X1: 12, Y1: 10, X2: 28, Y2: 28},
	}}}
	svc, _, _ := newTestService(cfg, source, detector, zones, audit)

	err := svc.Run(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "SESSION STARTED")
	assert.Contains(t, content, "INTRUSION - Frame 4: 1 person(s) inside zone")
	assert.Contains(t, content, "SESSION ENDED")
}

func TestForceSnapshotRequiresFrame(t *testing.T) {
	cfg := testConfig()
	zones := definedZone(t, cfg)
	detector := &fakeDetector{}
	svc, _, _ := newTestService(cfg, &fakeSource{}, detector, zones, NewAuditLog("", false))

	_, err := svc.ForceSnapshot()
	assert.Error(t, err)
}

func TestForceSnapshotUsesLastFrame(t *testing.T) {
	cfg := testConfig()
	zones := definedZone(t, cfg)

	source := &fakeSource{frames: []*models.Frame{quietFrame(1)}}
	detector := &fakeDetector{}
	svc, snapshots, _ := newTestService(cfg, source, detector, zones, NewAuditLog("", false))

	err := svc.Run(context.Background())
	require.NoError(t, err)

	path, err := svc.ForceSnapshot()
	require.NoError(t, err)
	assert.Equal(t, "snapshots/test.jpg", path)
	assert.Equal(t, 1, snapshots.saves)
}

func TestResetGateRestartsWarmupAndBackground(t *testing.T) {
	cfg := testConfig()
	zones := definedZone(t, cfg)

	source := &fakeSource{frames: []*models.Frame{
		motionFrame(1), motionFrame(2), motionFrame(3),
	}}
	detector := &fakeDetector{}
	svc, _, background := newTestService(cfg, source, detector, zones, NewAuditLog("", false))

	err := svc.Run(context.Background())
	require.NoError(t, err)

	svc.ResetGate()
	assert.Equal(t, 1, background.resets)
}
