package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ConnectionCounter reports open channels.
type ConnectionCounter interface {
	ConnectionCount() int
}

// Counter reports how many records a store holds.
type Counter interface {
	Len() int
}

// StatsHandler exposes connection and storage counts.
type StatsHandler struct {
	hub           ConnectionCounter
	users         Counter
	conversations Counter
}

func NewStatsHandler(hub ConnectionCounter, users, conversations Counter) *StatsHandler {
	return &StatsHandler{hub: hub, users: users, conversations: conversations}
}

func (h *StatsHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"totalConnections": h.hub.ConnectionCount(),
		"users":            h.users.Len(),
		"conversations":    h.conversations.Len(),
	})
}
