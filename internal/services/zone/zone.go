package zone

import (
	"image"

	"fence-worker-go/internal/models"
)

// Zone is an immutable view of the monitored area: the polygon and its
// rasterized inclusion mask. The pipeline takes one Zone per frame so a
// concurrent redefinition can never be observed half-applied within a frame.
type Zone struct {
	points []models.Point
	mask   *image.Gray
	width  int
	height int
}

// Defined reports whether a valid polygon backs this zone.
func (z *Zone) Defined() bool {
	return z != nil && len(z.points) >= 3
}

// Points returns the polygon points in drawing order.
func (z *Zone) Points() []models.Point {
	if z == nil {
		return nil
	}
	return z.points
}

// Mask returns the binary raster, 255 inside the polygon and 0 outside,
// sized to the frame this zone was defined against. Nil until defined.
func (z *Zone) Mask() *image.Gray {
	if z == nil {
		return nil
	}
	return z.mask
}

// Contains reports whether the point falls inside the polygon. A point exactly
// on an edge counts as inside.
func (z *Zone) Contains(p models.Point) bool {
	if !z.Defined() {
		return false
	}
	return pointInPolygon(z.points, p.X, p.Y)
}

// pointInPolygon is a crossing-number test with an explicit on-edge check so
// boundary points always report inside. The mask raster is generated from this
// same test, keeping the two in agreement for every pixel.
func pointInPolygon(pts []models.Point, x, y int) bool {
	n := len(pts)
	if n < 3 {
		return false
	}

	inside := false
	for i := 0; i < n; i++ {
		a := pts[i]
		b := pts[(i+1)%n]

		if onSegment(a, b, x, y) {
			return true
		}

		if (a.Y > y) != (b.Y > y) {
			// x coordinate where the edge crosses the horizontal through y
			xi := float64(a.X) + float64(y-a.Y)*float64(b.X-a.X)/float64(b.Y-a.Y)
			if float64(x) < xi {
				inside = !inside
			}
		}
	}
	return inside
}

func onSegment(a, b models.Point, x, y int) bool {
	cross := (b.X-a.X)*(y-a.Y) - (b.Y-a.Y)*(x-a.X)
	if cross != 0 {
		return false
	}
	if x < min(a.X, b.X) || x > max(a.X, b.X) {
		return false
	}
	if y < min(a.Y, b.Y) || y > max(a.Y, b.Y) {
		return false
	}
	return true
}

func rasterize(pts []models.Point, width, height int) *image.Gray {
	mask := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		row := mask.Pix[y*mask.Stride : y*mask.Stride+width]
		for x := 0; x < width; x++ {
			if pointInPolygon(pts, x, y) {
				row[x] = 255
			}
		}
	}
	return mask
}
