package zone

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fence-worker-go/internal/config"
	"fence-worker-go/internal/models"
)

func testConfig() *config.Config {
	return &config.Config{
		WorkerID:    "test",
		FrameWidth:  160,
		FrameHeight: 120,
	}
}

func square() []models.Point {
	return []models.Point{{X: 10, Y: 10}, {X: 100, Y: 10}, {X: 100, Y: 100}, {X: 10, Y: 100}}
}

func TestDefineRejectsShortPolygon(t *testing.T) {
	s := NewService(testConfig())

	err := s.Define([]models.Point{{X: 1, Y: 1}, {X: 2, Y: 2}})
	require.ErrorIs(t, err, ErrInvalidPolygon)
	assert.False(t, s.Defined())

	// A failed define keeps the prior zone
	require.NoError(t, s.Define(square()))
	err = s.Define(nil)
	require.ErrorIs(t, err, ErrInvalidPolygon)
	assert.True(t, s.Defined())
}

func TestContainsBoundaryInclusive(t *testing.T) {
	s := NewService(testConfig())
	require.NoError(t, s.Define(square()))
	z := s.Snapshot()

	assert.True(t, z.Contains(models.Point{X: 50, Y: 50}), "strict interior")
	assert.False(t, z.Contains(models.Point{X: 5, Y: 5}), "strict exterior")
	assert.False(t, z.Contains(models.Point{X: 101, Y: 50}), "just past right edge")

	// Points exactly on edges and vertices count as inside
	assert.True(t, z.Contains(models.Point{X: 10, Y: 50}), "left edge")
	assert.True(t, z.Contains(models.Point{X: 55, Y: 100}), "bottom edge")
	assert.True(t, z.Contains(models.Point{X: 10, Y: 10}), "vertex")
}

func TestContainsTriangle(t *testing.T) {
	s := NewService(testConfig())
	require.NoError(t, s.Define([]models.Point{{X: 20, Y: 100}, {X: 80, Y: 20}, {X: 140, Y: 100}}))
	z := s.Snapshot()

	assert.True(t, z.Contains(models.Point{X: 80, Y: 80}))
	assert.False(t, z.Contains(models.Point{X: 25, Y: 30}))
	assert.False(t, z.Contains(models.Point{X: 135, Y: 30}))
	// Hypotenuse point: from (20,100) to (80,20), at x=50 y=60
	assert.True(t, z.Contains(models.Point{X: 50, Y: 60}))
}

func TestMaskMatchesContains(t *testing.T) {
	s := NewService(testConfig())
	require.NoError(t, s.Define([]models.Point{{X: 15, Y: 10}, {X: 120, Y: 30}, {X: 90, Y: 110}, {X: 20, Y: 90}}))
	z := s.Snapshot()

	mask := z.Mask()
	require.NotNil(t, mask)
	assert.Equal(t, 160, mask.Rect.Dx())
	assert.Equal(t, 120, mask.Rect.Dy())

	for y := 0; y < 120; y += 3 {
		for x := 0; x < 160; x += 3 {
			in := z.Contains(models.Point{X: x, Y: y})
			pix := mask.GrayAt(x, y).Y != 0
			require.Equal(t, in, pix, "mask and polygon test disagree at (%d,%d)", x, y)
		}
	}
}

func TestUndefinedZone(t *testing.T) {
	s := NewService(testConfig())
	z := s.Snapshot()

	assert.False(t, z.Defined())
	assert.Nil(t, z.Mask())
	assert.False(t, z.Contains(models.Point{X: 50, Y: 50}))
}

func TestSaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zone.json")

	s := NewService(testConfig())
	require.NoError(t, s.Define(square()))
	require.NoError(t, s.Save(path))

	loaded := NewService(testConfig())
	mismatch, err := loaded.Load(path)
	require.NoError(t, err)
	assert.False(t, mismatch)
	assert.Equal(t, square(), loaded.Snapshot().Points())
}

func TestLoadDimensionMismatchStillLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zone.json")

	s := NewService(testConfig())
	require.NoError(t, s.Define(square()))
	require.NoError(t, s.Save(path))

	other := testConfig()
	other.FrameWidth = 1280
	other.FrameHeight = 720
	loaded := NewService(other)

	mismatch, err := loaded.Load(path)
	require.NoError(t, err)
	assert.True(t, mismatch, "dimension disagreement must be surfaced")
	assert.True(t, loaded.Defined(), "zone still loads despite mismatch")
}

func TestLoadMissingAndCorrupt(t *testing.T) {
	dir := t.TempDir()
	s := NewService(testConfig())

	_, err := s.Load(filepath.Join(dir, "nope.json"))
	assert.ErrorIs(t, err, ErrConfigNotFound)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	_, err = s.Load(bad)
	assert.ErrorIs(t, err, ErrConfigCorrupt)

	// Structurally valid JSON with a degenerate polygon is corrupt too
	short := filepath.Join(dir, "short.json")
	require.NoError(t, os.WriteFile(short, []byte(`{"points":[{"x":1,"y":1}],"frame_width":160,"frame_height":120}`), 0o644))
	_, err = s.Load(short)
	assert.ErrorIs(t, err, ErrConfigCorrupt)
}

func TestSaveUndefinedFails(t *testing.T) {
	s := NewService(testConfig())
	err := s.Save(filepath.Join(t.TempDir(), "zone.json"))
	assert.ErrorIs(t, err, ErrInvalidPolygon)
}
