package lifecycle

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"presence-relay/internal/mocks"
	"presence-relay/internal/models"
	"presence-relay/internal/observability"
	"presence-relay/internal/presence"
)

func newManager() (*Manager, *presence.Registry) {
	reg := presence.NewRegistry()
	return NewManager(reg, logs.GetLoggerFromLevel(slog.LevelDebug)), reg
}

func TestOpenRegistersUserAndBroadcastsToAll(t *testing.T) {
	m, reg := newManager()

	m.Open(context.Background(), Handshake{UserID: "u1", DisplayName: "Alice"})
	fx := m.Open(context.Background(), Handshake{UserID: "u2", DisplayName: "Bob"})

	require.NotNil(t, fx.Broadcast)
	assert.False(t, fx.Broadcast.ExcludeOrigin)
	assert.Equal(t, models.TypeGetUsers, fx.Broadcast.Envelope.Type)
	assert.Equal(t, []models.UserRecord{
		{ID: "u1", DisplayName: "Alice", IsOnline: true},
		{ID: "u2", DisplayName: "Bob", IsOnline: true},
	}, fx.Broadcast.Envelope.Payload)
	assert.Equal(t, 2, reg.Len())
}

func TestOpenSameIdentityOverwrites(t *testing.T) {
	m, reg := newManager()
	m.Open(context.Background(), Handshake{UserID: "u1", DisplayName: "Alice"})
	reg.SetUnread("u1", true)

	m.Open(context.Background(), Handshake{UserID: "u1", DisplayName: "Alice (phone)"})

	require.Equal(t, 1, reg.Len())
	user, _ := reg.GetUser("u1")
	assert.Equal(t, "Alice (phone)", user.DisplayName)
	assert.False(t, user.HasUnread)
}

func TestCloseMarksOfflineAndBroadcastsToOthers(t *testing.T) {
	m, reg := newManager()
	m.Open(context.Background(), Handshake{UserID: "u1"})
	m.Open(context.Background(), Handshake{UserID: "u2"})

	fx := m.Close(context.Background(), Handshake{UserID: "u1", ConnectedAt: time.Now()}, 0)

	user, ok := reg.GetUser("u1")
	require.True(t, ok)
	assert.False(t, user.IsOnline)
	require.NotNil(t, fx.Broadcast)
	assert.True(t, fx.Broadcast.ExcludeOrigin)
	assert.Equal(t, reg.GetUsers(), fx.Broadcast.Envelope.Payload)
}

func TestCloseWithRemainingChannelsKeepsUserOnline(t *testing.T) {
	m, reg := newManager()
	m.Open(context.Background(), Handshake{UserID: "u1"})

	fx := m.Close(context.Background(), Handshake{UserID: "u1"}, 1)

	assert.True(t, fx.Empty())
	user, _ := reg.GetUser("u1")
	assert.True(t, user.IsOnline)
}

func TestCloseAfterCleanupIsHarmless(t *testing.T) {
	m, reg := newManager()

	fx := m.Close(context.Background(), Handshake{UserID: "gone"}, 0)

	_, ok := reg.GetUser("gone")
	assert.False(t, ok)
	require.NotNil(t, fx.Broadcast)
	assert.Empty(t, fx.Broadcast.Envelope.Payload)
}

func TestOpenAndClosePublishPresenceEvents(t *testing.T) {
	pub := new(mocks.PublisherMock)
	observability.SetPublisher(pub)
	defer observability.SetPublisher(nil)

	isEvent := func(name string) interface{} {
		return mock.MatchedBy(func(e observability.EventEnvelope) bool { return e.EventName == name })
	}
	pub.On("PublishWithHeaders", mock.Anything, observability.RoutingPresence, isEvent("presence.online"), map[string]string{"x-request-id": "r1"}).Return(nil).Once()
	pub.On("PublishWithHeaders", mock.Anything, observability.RoutingPresence, isEvent("presence.offline"), map[string]string{"x-request-id": "r1"}).Return(assert.AnError).Once()

	m, _ := newManager()
	hs := Handshake{UserID: "u1", RequestID: "r1", ConnectedAt: time.Now()}
	m.Open(context.Background(), hs)
	fx := m.Close(context.Background(), hs, 0)

	assert.NotNil(t, fx.Broadcast, "publish failures must not change the outcome")
	pub.AssertExpectations(t)
}
