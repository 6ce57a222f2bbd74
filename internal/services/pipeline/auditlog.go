package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"fence-worker-go/internal/models"
)

// AuditLog appends a human readable record of intrusion events to a file.
// It runs alongside the structured service logs and survives restarts, so
// an operator can review a full incident history after the fact.
type AuditLog struct {
	path    string
	enabled bool
}

func NewAuditLog(path string, enabled bool) *AuditLog {
	a := &AuditLog{path: path, enabled: enabled}
	if !enabled {
		return a
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Warn().Err(err).Str("dir", dir).Msg("Failed to create audit log directory, disabling audit log")
			a.enabled = false
			return a
		}
	}

	a.writeLine(strings.Repeat("=", 60))
	a.writeLine("SESSION STARTED")
	a.writeLine(strings.Repeat("=", 60))
	return a
}

// LogIntrusion records one intrusion frame with per-person detail lines.
func (a *AuditLog) LogIntrusion(frameID int64, intrusions []models.Intrusion) {
	inside := 0
	for _, in := range intrusions {
		if in.InsideZone {
			inside++
		}
	}
	a.writeLine(fmt.Sprintf("INTRUSION - Frame %d: %d person(s) inside zone", frameID, inside))
	for _, in := range intrusions {
		if in.InsideZone {
			a.writeLine(fmt.Sprintf("  -> %s at foot-point (%d, %d), confidence: %.2f",
				in.ClassName, in.FootPoint.X, in.FootPoint.Y, in.Confidence))
		}
	}
}

// LogEvent records a non-intrusion event such as a snapshot capture or a
// zone redefinition.
func (a *AuditLog) LogEvent(eventType, message string) {
	a.writeLine(fmt.Sprintf("%s - %s", eventType, message))
}

// LogSessionEnd records the final session statistics.
func (a *AuditLog) LogSessionEnd(stats Stats) {
	a.writeLine(strings.Repeat("=", 60))
	a.writeLine("SESSION ENDED")
	a.writeLine(fmt.Sprintf("Total frames processed: %d", stats.FramesProcessed))
	a.writeLine(fmt.Sprintf("Total motion triggers: %d", stats.MotionTriggers))
	a.writeLine(fmt.Sprintf("Total detector inferences: %d", stats.DetectorInferences))
	a.writeLine(fmt.Sprintf("Total intrusion frames: %d", stats.IntrusionFrames))
	a.writeLine(strings.Repeat("=", 60))
}

func (a *AuditLog) writeLine(message string) {
	if !a.enabled {
		return
	}

	line := fmt.Sprintf("[%s] %s\n", time.Now().Format("2006-01-02 15:04:05.000"), message)
	f, err := os.OpenFile(a.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.Warn().Err(err).Str("path", a.path).Msg("Failed to write audit log entry")
		return
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		log.Warn().Err(err).Str("path", a.path).Msg("Failed to write audit log entry")
	}
}
