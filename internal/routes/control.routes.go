package routes

import (
	"twinconsole/internal/controllers"
	"twinconsole/internal/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterControlRoutes registers playback commands behind the stricter
// rate limit and, when enabled, operator auth.
func RegisterControlRoutes(r *gin.Engine, h *controllers.Handlers, limiter *middleware.RateLimiter) {
	var validator middleware.TokenValidator
	if h.Auth != nil {
		validator = h.Auth
	}

	control := r.Group("/api/control")
	control.Use(middleware.RateLimitMiddleware(limiter), middleware.OperatorAuthMiddleware(validator))
	{
		control.POST("/play", h.Play)
		control.POST("/pause", h.Pause)
		control.POST("/toggle", h.Toggle)
		control.POST("/rewind", h.Rewind)
		control.POST("/reset", h.Reset)
		control.POST("/speed/:value", h.SetSpeed)
		control.POST("/jump/:index", h.Jump)
	}
}
