package models

import (
	"context"
	"image"
)

// FrameSource supplies frames of fixed, agreed dimensions, one per Next call.
// It returns ErrEndOfStream when the source is exhausted.
type FrameSource interface {
	Next() (*Frame, error)
	Close() error
}

// ForegroundMaskProvider is the background-subtraction collaborator. Given a
// grayscale frame it returns a binary foreground mask of identical dimensions.
// It is stateful across calls; Reset discards the learned background.
type ForegroundMaskProvider interface {
	Apply(gray *image.Gray) (*image.Gray, error)
	Reset()
	Close() error
}

// ObjectDetector runs the expensive detection pass on a single frame, honoring
// the configured confidence floor and class-of-interest set.
type ObjectDetector interface {
	Detect(ctx context.Context, frame *Frame) ([]Detection, error)
}

// MessagePublisher publishes alert payloads to the message bus.
type MessagePublisher interface {
	Publish(subject string, data interface{}) error
}

// SnapshotWriter persists an annotated still of an intrusion frame and returns
// the path it was written to.
type SnapshotWriter interface {
	Save(frame *Frame, intrusions []Intrusion) (string, error)
}
