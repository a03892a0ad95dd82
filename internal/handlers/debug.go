package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/notify"
)

// RegisterDebugRoutes wires debug-only endpoints.
func RegisterDebugRoutes(router *gin.Engine, activity *notify.ActivityEmitter, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/activity-test", func(c *gin.Context) {
		if activity == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "activity emitter not configured"})
			return
		}
		activity.Record(c.Request.Context(), "debug.activity_test", userIDFromContext(c), "", map[string]any{
			"request_id": requestIDFromContext(c),
		})
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
