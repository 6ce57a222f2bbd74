package models

import (
	"time"
)

// Point is a pixel coordinate in frame space.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// BBox is a detection bounding box in pixel coordinates, (X1,Y1) top-left,
// (X2,Y2) bottom-right.
type BBox struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Detection represents a single object reported by the detector for one frame.
// It is immutable once returned.
type Detection struct {
	ClassID    int     `json:"class_id"`
	ClassName  string  `json:"class_name"`
	Confidence float32 `json:"confidence"`
	BBox       BBox    `json:"bbox"`
}

// Intrusion is a detection annotated with the spatial verdict: the ground-contact
// foot-point and whether that point falls inside the monitored zone.
type Intrusion struct {
	Detection
	FootPoint  Point `json:"foot_point"`
	InsideZone bool  `json:"inside_zone"`
}

// FrameMetadata contains frame-level information attached to alert payloads.
type FrameMetadata struct {
	FrameID     int64     `json:"frame_id"`
	Timestamp   time.Time `json:"timestamp"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	MotionScore int       `json:"motion_score"`
}
