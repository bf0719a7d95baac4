package controllers

import (
	"net/http"
	"strconv"

	"twinconsole/internal/apperr"
	"twinconsole/internal/middleware"
	"twinconsole/internal/models"
	"twinconsole/internal/services"

	"github.com/gin-gonic/gin"
)

// GetPlayback returns the local optimistic playback state
func (h *Handlers) GetPlayback(c *gin.Context) {
	c.JSON(http.StatusOK, h.Playback.State())
}

// GetPlaybackStatus returns the backend's replay status, briefly cached
func (h *Handlers) GetPlaybackStatus(c *gin.Context) {
	status, err := h.StatusCache.Get(func() (models.BackendStatus, error) {
		return h.Playback.Status(c.Request.Context())
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// Play resumes replay
func (h *Handlers) Play(c *gin.Context) {
	h.accepted(c, "play", h.Playback.Play())
}

// Pause halts replay
func (h *Handlers) Pause(c *gin.Context) {
	h.accepted(c, "pause", h.Playback.Pause())
}

// Toggle flips between playing and paused
func (h *Handlers) Toggle(c *gin.Context) {
	h.accepted(c, "toggle", h.Playback.Toggle())
}

// Rewind steps back by the current speed's rewind offset
func (h *Handlers) Rewind(c *gin.Context) {
	h.accepted(c, "rewind", h.Playback.Rewind())
}

// Reset jumps to the first row
func (h *Handlers) Reset(c *gin.Context) {
	h.accepted(c, "reset", h.Playback.Reset())
}

// SetSpeed changes the replay rate
func (h *Handlers) SetSpeed(c *gin.Context) {
	speed, err := strconv.ParseFloat(c.Param("value"), 64)
	if err != nil {
		respondError(c, apperr.Errorf(apperr.KindValidation, "invalid speed %q", c.Param("value")))
		return
	}
	state, err := h.Playback.SetSpeed(speed)
	if err != nil {
		respondError(c, err)
		return
	}
	h.accepted(c, "speed", state)
}

// Jump moves the replay cursor
func (h *Handlers) Jump(c *gin.Context) {
	index, err := strconv.ParseInt(c.Param("index"), 10, 64)
	if err != nil {
		respondError(c, apperr.Errorf(apperr.KindValidation, "invalid index %q", c.Param("index")))
		return
	}
	state, err := h.Playback.Jump(index)
	if err != nil {
		respondError(c, err)
		return
	}
	h.accepted(c, "jump", state)
}

// accepted answers 202 with the optimistic state and tells renderers.
func (h *Handlers) accepted(c *gin.Context, command string, state models.PlaybackState) {
	middleware.GlobalSecurityLogger.LogControlCommand(c.ClientIP(), middleware.Operator(c), command)
	h.StatusCache.Invalidate()
	if h.Hub != nil {
		h.Hub.Broadcast(services.WebSocketMessage{
			Type: services.MessagePlayback,
			Data: state,
		})
	}
	c.JSON(http.StatusAccepted, gin.H{
		"command":  command,
		"playback": state,
	})
}
