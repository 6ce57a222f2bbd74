// Package decision turns raw detections into intrusion verdicts.
//
// The spatial test is foot-point based: intrusion happens on the ground
// plane, so the bottom-center of the bounding box approximates physical
// contact with it. Box centers over-count tall or near-camera subjects whose
// upper body crosses the zone while their feet stay outside, and raw
// box/polygon overlap over-triggers whenever any part of a person grazes the
// zone edge.
package decision

import (
	"fence-worker-go/internal/models"
	"fence-worker-go/internal/services/zone"
)

// FootPoint returns the ground-contact approximation for a bounding box:
// the horizontal midpoint of the box at its bottom edge.
func FootPoint(b models.BBox) models.Point {
	return models.Point{X: (b.X1 + b.X2) / 2, Y: b.Y2}
}

// Evaluate annotates every detection with its foot-point and zone verdict.
// Nothing is dropped; output order matches input order, and identical input
// always yields identical output.
func Evaluate(detections []models.Detection, z *zone.Zone) []models.Intrusion {
	intrusions := make([]models.Intrusion, 0, len(detections))
	for _, det := range detections {
		foot := FootPoint(det.BBox)
		intrusions = append(intrusions, models.Intrusion{
			Detection:  det,
			FootPoint:  foot,
			InsideZone: z.Contains(foot),
		})
	}
	return intrusions
}

// HasIntrusion reports whether any annotated detection landed inside the zone.
func HasIntrusion(intrusions []models.Intrusion) bool {
	for _, in := range intrusions {
		if in.InsideZone {
			return true
		}
	}
	return false
}
