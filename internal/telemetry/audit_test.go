package telemetry

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	routingKey string
	events     []any
}

func (p *recordingPublisher) Publish(_ context.Context, routingKey string, event any) error {
	p.routingKey = routingKey
	p.events = append(p.events, event)
	return nil
}

func TestAuditEmitterPublishesEnvelope(t *testing.T) {
	pub := &recordingPublisher{}
	emitter := NewAuditEmitter(pub, "audit.logs", "presence-relay", "test", logs.GetLoggerFromLevel(slog.LevelDebug))
	emitter.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	user := "u1"

	emitter.Emit(context.Background(), "INFO", "cleanup finished", "req-1", &user, map[string]any{"users_removed": 2})

	require.Len(t, pub.events, 1)
	assert.Equal(t, "audit.logs", pub.routingKey)
	assert.Equal(t, AuditEnvelope{
		SchemaVersion: 1,
		EventType:     "audit_log",
		OccurredAt:    "2024-01-02T03:04:05Z",
		Service:       "presence-relay",
		Environment:   "test",
		RequestID:     "req-1",
		UserID:        &user,
		Payload:       AuditPayload{Level: "INFO", Text: "cleanup finished", Fields: map[string]any{"users_removed": 2}},
	}, pub.events[0])
}

func TestNilAuditEmitterIsSafe(t *testing.T) {
	var emitter *AuditEmitter
	emitter.Emit(context.Background(), "INFO", "ignored", "", nil, nil)
}

func TestInitTracingWithoutEndpoint(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), "", "presence-relay", "test", logs.GetLoggerFromLevel(slog.LevelDebug))
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
