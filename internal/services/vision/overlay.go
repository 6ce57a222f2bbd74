package vision

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"fence-worker-go/internal/models"
	"fence-worker-go/internal/services/zone"
)

var (
	zoneColor      = color.RGBA{R: 0, G: 255, B: 255, A: 255}
	intruderColor  = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	outsideColor   = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	footPointColor = color.RGBA{R: 255, G: 0, B: 0, A: 255}
)

// DrawZone outlines the restricted zone polygon on the frame.
func DrawZone(mat *gocv.Mat, z *zone.Zone) {
	if z == nil || !z.Defined() {
		return
	}
	pts := z.Points()
	cvPts := make([]image.Point, len(pts))
	for i, p := range pts {
		cvPts[i] = image.Pt(p.X, p.Y)
	}
	pv := gocv.NewPointsVectorFromPoints([][]image.Point{cvPts})
	defer pv.Close()
	gocv.Polylines(mat, pv, true, zoneColor, 2)
}

// DrawDetection draws a bounding box and label for a single evaluated detection.
// Intruders are drawn in red with their foot point marked, others in green.
func DrawDetection(mat *gocv.Mat, in models.Intrusion) {
	boxColor := outsideColor
	label := fmt.Sprintf("%s %.0f%%", in.ClassName, in.Confidence*100)
	if in.InsideZone {
		boxColor = intruderColor
		label = fmt.Sprintf("INTRUSION %.0f%%", in.Confidence*100)
	}

	rect := image.Rect(in.BBox.X1, in.BBox.Y1, in.BBox.X2, in.BBox.Y2)
	gocv.Rectangle(mat, rect, boxColor, 2)
	drawLabel(mat, label, in.BBox.X1, in.BBox.Y1-6, boxColor)

	if in.InsideZone {
		gocv.Circle(mat, image.Pt(in.FootPoint.X, in.FootPoint.Y), 4, footPointColor, -1)
	}
}

// drawLabel draws text with a filled background so it stays readable on
// busy frames.
func drawLabel(mat *gocv.Mat, text string, x, y int, textColor color.RGBA) {
	fontFace := gocv.FontHersheySimplex
	fontScale := 0.5
	thickness := 1
	textSize := gocv.GetTextSize(text, fontFace, fontScale, thickness)

	if y < textSize.Y {
		y = textSize.Y + 2
	}

	padding := 3
	bgColor := color.RGBA{R: 0, G: 0, B: 0, A: 200}
	bgRect := image.Rect(x-padding, y-textSize.Y-padding, x+textSize.X+padding, y+padding)
	gocv.Rectangle(mat, bgRect, bgColor, -1)
	gocv.PutText(mat, text, image.Pt(x, y), fontFace, fontScale, textColor, thickness)
}
