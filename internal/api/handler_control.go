package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"clothesline-control-backend/internal/autocontrol"
	"clothesline-control-backend/internal/device"
)

type controlRequest struct {
	Command string `json:"command" binding:"required"`
}

// PostControl handles POST /api/control: a manual open/close/stop request
// from the operator. Open and close go through the dispatcher so the
// idempotence check and command timestamp apply; stop is sent directly
// because it has no end state to compare against.
func (h *Handler) PostControl(c *gin.Context) {
	var req controlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Invalid command"})
		return
	}

	ctx := c.Request.Context()
	var outcome *device.Outcome
	var err error
	switch req.Command {
	case "open":
		outcome, err = h.dispatcher.Dispatch(ctx, autocontrol.ActionOpen)
	case "close":
		outcome, err = h.dispatcher.Dispatch(ctx, autocontrol.ActionClose)
	case "stop":
		outcome, err = h.client.SendCommand(ctx, device.CommandStop)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Invalid command"})
		return
	}

	if err != nil {
		status := http.StatusBadGateway
		var failure *device.Failure
		if errors.As(err, &failure) && failure.Kind == device.ConfigurationError {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "error", "message": err.Error()})
		return
	}
	if !outcome.Accepted {
		c.JSON(http.StatusBadGateway, gin.H{"status": "error", "message": outcome.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": outcome.Message})
}

// GetDeviceStatus handles GET /api/device/status: a bounded connectivity
// probe. A down device answers "disconnected" instead of hanging.
func (h *Handler) GetDeviceStatus(c *gin.Context) {
	status := h.client.CheckConnection(c.Request.Context())
	code := http.StatusOK
	if !status.Connected {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}
