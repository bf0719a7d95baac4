package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// GetFeedHistory returns feed health samples
// Query params: duration=5m|10m|1h (default: 10m)
func (h *Handlers) GetFeedHistory(c *gin.Context) {
	durationStr := c.DefaultQuery("duration", "10m")

	duration, err := time.ParseDuration(durationStr)
	if err != nil || duration <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid duration format"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"duration": durationStr,
		"data":     h.History.GetHistory(duration),
	})
}
