package routes

import (
	"twinconsole/internal/controllers"

	"github.com/gin-gonic/gin"
)

// RegisterDashboardRoutes registers the read-only view-model endpoints.
func RegisterDashboardRoutes(r *gin.Engine, h *controllers.Handlers) {
	api := r.Group("/api")
	{
		api.GET("/snapshot", h.GetSnapshot)
		api.GET("/sensors", h.GetSensors)
		api.GET("/sensors/:id", h.GetSensor)
		api.GET("/events", h.GetEvents)
		api.GET("/heatmap", h.GetHeatmap)
		api.GET("/heatmap/grid", h.GetHeatmapGrid)
		api.GET("/playback", h.GetPlayback)
		api.GET("/playback/status", h.GetPlaybackStatus)
		api.GET("/feed/history", h.GetFeedHistory)
		api.GET("/diagnostics", h.GetDiagnostics)
	}

	r.GET("/healthz", h.GetHealth)
}
