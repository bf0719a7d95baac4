package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// GetDiagnostics returns console process and host diagnostics
func (h *Handlers) GetDiagnostics(c *gin.Context) {
	diag, err := h.Diagnostics.Get()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, diag)
}

// GetHealth is the liveness probe
func (h *Handlers) GetHealth(c *gin.Context) {
	stats := h.Console.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":           "ok",
		"source":           h.Source,
		"version":          h.Version,
		"stream_connected": h.connected(),
		"messages":         stats.Messages,
		"malformed":        stats.Malformed,
		"timestamp":        time.Now(),
	})
}
