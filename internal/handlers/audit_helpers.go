package handlers

import (
	"github.com/gin-gonic/gin"

	"presence-relay/internal/middleware"
)

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(middleware.RequestIDKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}
	return c.GetHeader(middleware.RequestIDHeader)
}

func userIDFromContext(c *gin.Context) *string {
	userID := c.Query("userId")
	if userID == "" {
		userID = c.GetHeader("X-User-Id")
	}
	if userID == "" {
		return nil
	}
	return &userID
}
