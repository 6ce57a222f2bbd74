package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fence-worker-go/internal/services/motiongate"
	"fence-worker-go/internal/services/pipeline"
)

// GateHandler exposes runtime control over the motion gate
type GateHandler struct {
	gate     *motiongate.Gate
	pipeline *pipeline.Service
}

func NewGateHandler(gate *motiongate.Gate, pipeline *pipeline.Service) *GateHandler {
	return &GateHandler{gate: gate, pipeline: pipeline}
}

type ThresholdRequest struct {
	Threshold *int `json:"threshold" binding:"required"`
}

// @Summary Update motion threshold
// @Description Change the motion score threshold without restarting the worker
// @Tags gate
// @Accept json
// @Produce json
// @Param threshold body ThresholdRequest true "New threshold"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /gate/threshold [put]
func (h *GateHandler) PutThreshold(c *gin.Context) {
	var req ThresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	if *req.Threshold < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "threshold must not be negative"})
		return
	}

	h.gate.SetThreshold(*req.Threshold)
	c.JSON(http.StatusOK, gin.H{"success": true, "threshold": h.gate.Threshold()})
}

// @Summary Reset motion gate
// @Description Reset the gate and the background model, restarting warm-up
// @Tags gate
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /gate/reset [post]
func (h *GateHandler) Reset(c *gin.Context) {
	h.pipeline.ResetGate()
	c.JSON(http.StatusOK, gin.H{"success": true, "state": h.gate.State()})
}
