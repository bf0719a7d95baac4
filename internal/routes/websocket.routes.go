package routes

import (
	"twinconsole/internal/controllers"

	"github.com/gin-gonic/gin"
)

// RegisterWebSocketRoutes registers the renderer push endpoint.
// Tokens are issued by the CLI only; there is no HTTP token endpoint.
func RegisterWebSocketRoutes(r *gin.Engine, h *controllers.Handlers) {
	r.GET("/ws", h.HandleWebSocket)
}
