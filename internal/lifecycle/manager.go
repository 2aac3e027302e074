package lifecycle

import (
	"context"
	"log/slog"
	"time"

	"presence-relay/internal/models"
	"presence-relay/internal/observability"
)

// Presence is the part of the presence registry the lifecycle needs.
type Presence interface {
	AddUser(id string, profile models.Profile)
	SetOnline(id string, online bool)
	GetUsers() []models.UserRecord
}

// Handshake is what a channel announced when it was opened.
type Handshake struct {
	UserID      string
	DisplayName string
	ConnID      string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}

// Manager turns channel open/close into presence changes and roster
// broadcasts.
type Manager struct {
	presence Presence
	log      *slog.Logger
}

func NewManager(presence Presence, log *slog.Logger) *Manager {
	return &Manager{presence: presence, log: log}
}

// Open registers hs.UserID as online and asks for the roster to be sent to
// every channel, including the new one.
func (m *Manager) Open(ctx context.Context, hs Handshake) models.Effects {
	m.presence.AddUser(hs.UserID, models.Profile{ID: hs.UserID, DisplayName: hs.DisplayName})
	users := m.presence.GetUsers()
	observability.SetPresenceUsers(len(users))

	m.log.Info("user connected", "user_id", hs.UserID, "display_name", hs.DisplayName, "conn_id", hs.ConnID)
	m.publish(ctx, hs, "presence.online", 0)

	return models.Effects{Broadcast: &models.Broadcast{Envelope: models.RosterEnvelope(users)}}
}

// Close handles the end of one channel of hs.UserID. remaining is the number
// of channels the identity still has open; while it is above zero the user
// stays online and nothing is broadcast.
func (m *Manager) Close(ctx context.Context, hs Handshake, remaining int) models.Effects {
	if remaining > 0 {
		m.log.Debug("channel closed, identity still connected", "user_id", hs.UserID, "conn_id", hs.ConnID, "remaining", remaining)
		return models.Effects{}
	}

	m.presence.SetOnline(hs.UserID, false)
	m.log.Info("user disconnected", "user_id", hs.UserID, "conn_id", hs.ConnID)
	m.publish(ctx, hs, "presence.offline", time.Since(hs.ConnectedAt).Milliseconds())

	return models.Effects{Broadcast: &models.Broadcast{
		Envelope:      models.RosterEnvelope(m.presence.GetUsers()),
		ExcludeOrigin: true,
	}}
}

func (m *Manager) publish(ctx context.Context, hs Handshake, name string, durationMS int64) {
	err := observability.PublishEvent(ctx, observability.RoutingPresence, observability.EventEnvelope{
		EventType: "presence_events",
		EventName: name,
		Payload: map[string]interface{}{
			"user_id":      hs.UserID,
			"display_name": hs.DisplayName,
			"conn_id":      hs.ConnID,
			"ip":           hs.IP,
			"duration_ms":  durationMS,
		},
	}, observability.BuildHeaders(hs.RequestID, hs.TraceID))
	if err != nil {
		m.log.Warn("presence event publish failed", "event", name, "error", err)
	}
}
