package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fence-worker-go/internal/config"
	"fence-worker-go/internal/models"
	"fence-worker-go/internal/services/zone"
)

func testZone(t *testing.T) *zone.Zone {
	t.Helper()
	svc := zone.NewService(&config.Config{WorkerID: "test", FrameWidth: 640, FrameHeight: 360})
	require.NoError(t, svc.Define([]models.Point{
		{X: 100, Y: 100}, {X: 400, Y: 100}, {X: 400, Y: 300}, {X: 100, Y: 300},
	}))
	return svc.Snapshot()
}

func TestFootPoint(t *testing.T) {
	foot := FootPoint(models.BBox{X1: 100, Y1: 50, X2: 200, Y2: 150})
	assert.Equal(t, models.Point{X: 150, Y: 150}, foot)

	// Independent of aspect ratio
	foot = FootPoint(models.BBox{X1: 100, Y1: 10, X2: 200, Y2: 150})
	assert.Equal(t, models.Point{X: 150, Y: 150}, foot)

	// Odd widths truncate toward the left pixel
	foot = FootPoint(models.BBox{X1: 0, Y1: 0, X2: 5, Y2: 9})
	assert.Equal(t, models.Point{X: 2, Y: 9}, foot)
}

func TestEvaluateVerdicts(t *testing.T) {
	z := testZone(t)

	dets := []models.Detection{
		// Feet at (250,200): inside
		{ClassID: 0, ClassName: "person", Confidence: 0.9, BBox: models.BBox{X1: 200, Y1: 80, X2: 300, Y2: 200}},
		// Feet at (250,50): upper body over the zone but feet above it, outside
		{ClassID: 0, ClassName: "person", Confidence: 0.8, BBox: models.BBox{X1: 200, Y1: 0, X2: 300, Y2: 50}},
		// Feet at (500,200): right of the zone, outside
		{ClassID: 0, ClassName: "person", Confidence: 0.7, BBox: models.BBox{X1: 450, Y1: 80, X2: 550, Y2: 200}},
		// Feet exactly on the bottom edge (300): boundary counts as inside
		{ClassID: 0, ClassName: "person", Confidence: 0.6, BBox: models.BBox{X1: 150, Y1: 150, X2: 250, Y2: 300}},
	}

	intrusions := Evaluate(dets, z)
	require.Len(t, intrusions, len(dets), "no detection is dropped")

	assert.True(t, intrusions[0].InsideZone)
	assert.False(t, intrusions[1].InsideZone)
	assert.False(t, intrusions[2].InsideZone)
	assert.True(t, intrusions[3].InsideZone)

	// Input order and detection payloads preserved
	for i := range dets {
		assert.Equal(t, dets[i], intrusions[i].Detection)
	}

	assert.True(t, HasIntrusion(intrusions))
}

func TestEvaluateDeterministic(t *testing.T) {
	z := testZone(t)
	dets := []models.Detection{
		{ClassID: 0, Confidence: 0.9, BBox: models.BBox{X1: 200, Y1: 80, X2: 300, Y2: 200}},
	}

	first := Evaluate(dets, z)
	second := Evaluate(dets, z)
	assert.Equal(t, first, second)
}

func TestEvaluateUndefinedZone(t *testing.T) {
	svc := zone.NewService(&config.Config{WorkerID: "test", FrameWidth: 640, FrameHeight: 360})

	intrusions := Evaluate([]models.Detection{
		{ClassID: 0, Confidence: 0.9, BBox: models.BBox{X1: 200, Y1: 80, X2: 300, Y2: 200}},
	}, svc.Snapshot())

	require.Len(t, intrusions, 1)
	assert.False(t, intrusions[0].InsideZone)
	assert.False(t, HasIntrusion(intrusions))
}

func TestEvaluateEmpty(t *testing.T) {
	out := Evaluate(nil, testZone(t))
	assert.Empty(t, out)
	assert.False(t, HasIntrusion(out))
}
