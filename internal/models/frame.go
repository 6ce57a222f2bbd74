package models

import (
	"errors"
	"image"
	"time"
)

// ErrEndOfStream is returned by a FrameSource when the underlying video source
// is exhausted. It is a clean end-of-session signal, not a failure.
var ErrEndOfStream = errors.New("end of stream")

// Frame is one video frame as consumed by the pipeline. Gray is the
// preprocessed grayscale plane fed to the background model; Color is the
// original frame kept for detection and snapshots.
type Frame struct {
	ID        int64
	Timestamp time.Time
	Gray      *image.Gray
	Color     image.Image
}

// Width returns the frame width in pixels.
func (f *Frame) Width() int {
	if f.Gray == nil {
		return 0
	}
	return f.Gray.Rect.Dx()
}

// Height returns the frame height in pixels.
func (f *Frame) Height() int {
	if f.Gray == nil {
		return 0
	}
	return f.Gray.Rect.Dy()
}
