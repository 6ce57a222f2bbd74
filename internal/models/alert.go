package models

import (
	"time"
)

// AlertType identifies the kind of alert published to the bus.
type AlertType string

const (
	AlertTypeIntrusion AlertType = "INTRUSION_DETECTION"
)

// AlertSeverity is the severity attached to a published alert.
type AlertSeverity string

const (
	AlertSeverityLow      AlertSeverity = "LOW"
	AlertSeverityMedium   AlertSeverity = "MEDIUM"
	AlertSeverityHigh     AlertSeverity = "HIGH"
	AlertSeverityCritical AlertSeverity = "CRITICAL"
)

// IntrusionAlert is the payload published when the audible-alert cooldown
// permits a new alert. Subscribers drive sirens, notifications, dashboards.
type IntrusionAlert struct {
	WorkerID       string        `json:"worker_id"`
	AlertType      AlertType     `json:"alert_type"`
	Severity       AlertSeverity `json:"severity"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	Intrusions     []Intrusion   `json:"intrusions"`
	Frame          FrameMetadata `json:"frame"`
	ActiveDuration float64       `json:"active_duration_seconds"`
	SnapshotPath   string        `json:"snapshot_path,omitempty"`
	Timestamp      time.Time     `json:"timestamp"`
}
