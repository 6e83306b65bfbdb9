package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetLatestData handles GET /api/data: the newest persisted reading, or
// an empty object when nothing has been recorded yet.
func (h *Handler) GetLatestData(c *gin.Context) {
	reading, err := h.store.LatestReading(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve latest reading"})
		return
	}
	if reading == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, reading)
}

// GetDataCount handles GET /api/data/count.
func (h *Handler) GetDataCount(c *gin.Context) {
	count, err := h.store.CountReadings(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to count readings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

// GetDataHistory handles GET /api/data/history: all readings newest-first.
func (h *Handler) GetDataHistory(c *gin.Context) {
	readings, err := h.store.AllReadings(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve readings"})
		return
	}
	c.JSON(http.StatusOK, readings)
}
