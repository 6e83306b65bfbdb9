package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"clothesline-control-backend/internal/device"
	"clothesline-control-backend/internal/model"
)

// ingestRequest mirrors the firmware's push body; absent numeric fields
// default to 0 and an absent status to Unknown, like the polled format.
type ingestRequest struct {
	Light    int    `json:"ldr"`
	Rain     int    `json:"rain"`
	Status   string `json:"status"`
	Rotation int    `json:"rotation"`
}

// ReceiveDeviceData handles POST /api/nodemcu/data: firmware builds that
// push samples instead of waiting to be polled. The sample is persisted
// and mirrored into the shared polling state; auto-control still runs only
// on the polling cadence.
func (h *Handler) ReceiveDeviceData(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Request body is empty or not valid JSON"})
		return
	}

	now := time.Now().UTC()
	reading := &device.Reading{
		Timestamp:  now,
		Light:      req.Light,
		Rain:       req.Rain,
		DoorStatus: device.ParseDoorStatus(req.Status),
		Rotation:   req.Rotation,
	}

	record := &model.SensorReading{
		Timestamp:  reading.Timestamp,
		Light:      reading.Light,
		Rain:       reading.Rain,
		DoorStatus: string(reading.DoorStatus),
		Rotation:   reading.Rotation,
	}
	if err := h.store.InsertReading(c.Request.Context(), record); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
		return
	}
	h.state.SetReading(reading, now)

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Data received successfully"})
}
