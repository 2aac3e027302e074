package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"presence-relay/internal/cleanup"
	"presence-relay/internal/telemetry"
)

// Sweeper runs one cleanup pass on demand.
type Sweeper interface {
	Sweep(ctx context.Context) cleanup.Result
}

// RegisterDebugRoutes wires debug-only endpoints. Nothing is registered
// unless enabled.
func RegisterDebugRoutes(router *gin.Engine, emitter *telemetry.AuditEmitter, sweeper Sweeper, enabled bool) {
	if !enabled {
		return
	}

	debug := router.Group("/debug")
	debug.GET("/audit-test", func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		emitter.Emit(c.Request.Context(), "INFO", "audit test", requestIDFromContext(c), userIDFromContext(c), nil)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	debug.POST("/sweep", func(c *gin.Context) {
		if sweeper == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "cleanup scheduler not configured"})
			return
		}
		res := sweeper.Sweep(c.Request.Context())
		if res.Skipped {
			c.JSON(http.StatusConflict, gin.H{"error": "cleanup pass already running"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"usersRemoved":         res.UsersRemoved,
			"conversationsRemoved": res.ConversationsRemoved,
			"failures":             res.Failures,
		})
	})
}
