package ws

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"presence-relay/internal/observability"
)

func newConnID() string {
	return uuid.NewString()
}

// CheckOrigin builds an origin policy from an allow-list. "*" allows every
// origin; requests without an Origin header are always allowed.
func CheckOrigin(allowed []string) func(r *http.Request) bool {
	allowAll := false
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		origin = strings.TrimSpace(origin)
		if origin == "*" {
			allowAll = true
		}
		set[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if allowAll || origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

func publishWSEvent(ctx context.Context, info ConnInfo, event, reason string) {
	observability.IncWSEvent(event)
	_ = observability.PublishEvent(ctx, observability.RoutingWS, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"event":       event,
				"conn_id":     info.ConnID,
				"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
				"reason":      reason,
			},
			"identity": map[string]interface{}{
				"user_id":    info.UserID,
				"user_agent": info.UserAgent,
				"ip":         info.IP,
			},
		},
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}
