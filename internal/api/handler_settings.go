package api

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"clothesline-control-backend/config"
	"clothesline-control-backend/internal/autocontrol"
	"clothesline-control-backend/internal/store"
)

// GetAutoSettings handles GET /api/settings/auto.
func (h *Handler) GetAutoSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.settings.Get())
}

type autoSettingsRequest struct {
	Enabled        *bool `json:"enabled" binding:"required"`
	LightThreshold int   `json:"lightThreshold" binding:"required"`
	RainThreshold  int   `json:"rainThreshold" binding:"required"`
}

// SaveAutoSettings handles POST /api/settings/auto: updates the shared
// auto-control settings and persists them for the next restart.
func (h *Handler) SaveAutoSettings(c *gin.Context) {
	var req autoSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}
	if req.LightThreshold < 0 || req.RainThreshold < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "thresholds must be non-negative"})
		return
	}

	settings := autocontrol.Settings{
		Enabled:        *req.Enabled,
		LightThreshold: req.LightThreshold,
		RainThreshold:  req.RainThreshold,
	}
	h.settings.Set(settings)

	ctx := c.Request.Context()
	h.persistSetting(ctx, store.SettingAutoEnabled, strconv.FormatBool(settings.Enabled))
	h.persistSetting(ctx, store.SettingLightThreshold, strconv.Itoa(settings.LightThreshold))
	h.persistSetting(ctx, store.SettingRainThreshold, strconv.Itoa(settings.RainThreshold))

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Auto settings saved"})
}

type deviceSettingsResponse struct {
	BaseURL        string `json:"base_url"`
	TimeoutSeconds int    `json:"timeout"`
}

// GetDeviceSettings handles GET /api/settings/device.
func (h *Handler) GetDeviceSettings(c *gin.Context) {
	c.JSON(http.StatusOK, deviceSettingsResponse{
		BaseURL:        h.client.BaseURL(),
		TimeoutSeconds: int(h.client.Timeout() / time.Second),
	})
}

type deviceSettingsRequest struct {
	BaseURL        string `json:"base_url" binding:"required"`
	TimeoutSeconds int    `json:"timeout" binding:"required"`
}

// SaveDeviceSettings handles POST /api/settings/device: points the device
// client at a new address and persists the endpoint configuration.
func (h *Handler) SaveDeviceSettings(c *gin.Context) {
	var req deviceSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}
	if req.TimeoutSeconds <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "timeout must be positive"})
		return
	}

	baseURL := config.NormalizeBaseURL(req.BaseURL)
	h.client.SetEndpoint(baseURL, time.Duration(req.TimeoutSeconds)*time.Second)

	ctx := c.Request.Context()
	h.persistSetting(ctx, store.SettingDeviceBaseURL, baseURL)
	h.persistSetting(ctx, store.SettingDeviceTimeout, strconv.Itoa(req.TimeoutSeconds))

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Device settings saved"})
}

// persistSetting writes one durable setting; persistence failures fall
// back to the in-memory value and are only logged.
func (h *Handler) persistSetting(ctx context.Context, key, value string) {
	if err := h.store.PutSetting(ctx, key, value); err != nil {
		log.Printf("Warning: failed to persist setting %s: %v", key, err)
	}
}
