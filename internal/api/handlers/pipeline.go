package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fence-worker-go/internal/services/alerting"
	"fence-worker-go/internal/services/motiongate"
	"fence-worker-go/internal/services/pipeline"
)

// PipelineHandler exposes session statistics and manual snapshot capture
type PipelineHandler struct {
	pipeline    *pipeline.Service
	gate        *motiongate.Gate
	coordinator *alerting.Coordinator
}

func NewPipelineHandler(p *pipeline.Service, gate *motiongate.Gate, coordinator *alerting.Coordinator) *PipelineHandler {
	return &PipelineHandler{pipeline: p, gate: gate, coordinator: coordinator}
}

// @Summary Get pipeline stats
// @Description Get frame, gate and alert statistics for the running session
// @Tags pipeline
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /pipeline/stats [get]
func (h *PipelineHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"pipeline":  h.pipeline.Stats(),
		"gate":      h.gate.Stats(),
		"alerts":    h.coordinator.Stats(),
		"timestamp": time.Now().Unix(),
	})
}

// @Summary Capture snapshot
// @Description Save an annotated snapshot of the most recent frame. Shares the cooldown with automatic captures.
// @Tags pipeline
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Failure 429 {object} map[string]interface{}
// @Router /snapshot [post]
func (h *PipelineHandler) Snapshot(c *gin.Context) {
	path, err := h.pipeline.ForceSnapshot()
	if err != nil {
		status := http.StatusConflict
		if errors.Is(err, alerting.ErrSnapshotCooldown) {
			status = http.StatusTooManyRequests
		}
		c.JSON(status, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "path": path})
}
