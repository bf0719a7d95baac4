package controllers

import (
	"twinconsole/internal/apperr"
	"twinconsole/internal/logger"
	"twinconsole/internal/models"
	"twinconsole/internal/services"

	"github.com/gin-gonic/gin"
)

// Handlers carries the services behind the HTTP surface.
type Handlers struct {
	Console     *services.Console
	Playback    *services.PlaybackService
	StatusCache *services.TTLCache[models.BackendStatus]
	Hub         *services.WebSocketHub
	History     *services.HistoryCollector
	Diagnostics *services.DiagnosticsService
	// Auth is nil when operator tokens are disabled.
	Auth           *services.AuthService
	AllowedOrigins []string
	// Connected reports the backend subscription state; nil in simulated mode.
	Connected func() bool
	// SendBuffer sizes each renderer's outbound queue.
	SendBuffer int
	Source     string
	Version    string
}

func (h *Handlers) connected() bool {
	if h.Connected == nil {
		return false
	}
	return h.Connected()
}

// respondError answers with the status mapped from the error kind.
func respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= 500 {
		logger.Errorf("[HTTP] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
