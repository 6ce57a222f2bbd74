package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"fence-worker-go/internal/config"
	"fence-worker-go/internal/models"
	"fence-worker-go/internal/services/zone"
)

// ZoneHandler manages the restricted zone polygon
type ZoneHandler struct {
	cfg   *config.Config
	zones *zone.Service
}

func NewZoneHandler(cfg *config.Config, zones *zone.Service) *ZoneHandler {
	return &ZoneHandler{cfg: cfg, zones: zones}
}

type ZoneResponse struct {
	Defined     bool           `json:"defined"`
	Points      []models.Point `json:"points"`
	FrameWidth  int            `json:"frame_width"`
	FrameHeight int            `json:"frame_height"`
}

type ZoneRequest struct {
	Points []models.Point `json:"points" binding:"required"`
}

type ZoneLoadResponse struct {
	Defined      bool `json:"defined"`
	PointCount   int  `json:"point_count"`
	SizeMismatch bool `json:"size_mismatch"`
}

// @Summary Get zone
// @Description Get the current restricted zone polygon
// @Tags zone
// @Accept json
// @Produce json
// @Success 200 {object} ZoneResponse
// @Router /zone [get]
func (h *ZoneHandler) GetZone(c *gin.Context) {
	z := h.zones.Snapshot()
	c.JSON(http.StatusOK, ZoneResponse{
		Defined:     z.Defined(),
		Points:      z.Points(),
		FrameWidth:  h.cfg.FrameWidth,
		FrameHeight: h.cfg.FrameHeight,
	})
}

// @Summary Replace zone
// @Description Replace the restricted zone polygon. Requires at least 3 points.
// @Tags zone
// @Accept json
// @Produce json
// @Param zone body ZoneRequest true "Polygon vertices"
// @Success 200 {object} ZoneResponse
// @Failure 400 {object} map[string]interface{}
// @Router /zone [put]
func (h *ZoneHandler) PutZone(c *gin.Context) {
	var req ZoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	if err := h.zones.Define(req.Points); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	h.GetZone(c)
}

// @Summary Save zone
// @Description Persist the current zone polygon to the configured file
// @Tags zone
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /zone/save [post]
func (h *ZoneHandler) SaveZone(c *gin.Context) {
	if err := h.zones.Save(h.cfg.ZoneConfigPath); err != nil {
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "path": h.cfg.ZoneConfigPath})
}

// @Summary Load zone
// @Description Load the zone polygon from the configured file
// @Tags zone
// @Accept json
// @Produce json
// @Success 200 {object} ZoneLoadResponse
// @Failure 404 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Router /zone/load [post]
func (h *ZoneHandler) LoadZone(c *gin.Context) {
	sizeMismatch, err := h.zones.Load(h.cfg.ZoneConfigPath)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, zone.ErrConfigNotFound):
			status = http.StatusNotFound
		case errors.Is(err, zone.ErrConfigCorrupt):
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{"success": false, "error": err.Error()})
		return
	}

	z := h.zones.Snapshot()
	c.JSON(http.StatusOK, ZoneLoadResponse{
		Defined:      z.Defined(),
		PointCount:   len(z.Points()),
		SizeMismatch: sizeMismatch,
	})
}
