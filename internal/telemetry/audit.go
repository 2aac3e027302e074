package telemetry

import (
	"context"
	"log/slog"
	"time"
)

const auditSchemaVersion = 1

// Publisher is the part of the AMQP publisher audit records need.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// AuditEmitter publishes audit records for operator-visible actions such as
// cleanup passes.
type AuditEmitter struct {
	publisher   Publisher
	routingKey  string
	service     string
	environment string
	log         *slog.Logger
	now         func() time.Time
}

type AuditEnvelope struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	OccurredAt    string       `json:"occurred_at"`
	Service       string       `json:"service"`
	Environment   string       `json:"environment"`
	RequestID     string       `json:"request_id"`
	UserID        *string      `json:"user_id,omitempty"`
	Payload       AuditPayload `json:"payload"`
}

type AuditPayload struct {
	Level  string         `json:"level"`
	Text   string         `json:"text"`
	Fields map[string]any `json:"fields,omitempty"`
}

func NewAuditEmitter(publisher Publisher, routingKey, service, environment string, log *slog.Logger) *AuditEmitter {
	return &AuditEmitter{
		publisher:   publisher,
		routingKey:  routingKey,
		service:     service,
		environment: environment,
		log:         log,
		now:         time.Now,
	}
}

// Emit publishes one audit record. A nil emitter drops it. Publish failures
// are logged and never returned.
func (e *AuditEmitter) Emit(ctx context.Context, level, text, requestID string, userID *string, fields map[string]any) {
	if e == nil || e.publisher == nil {
		return
	}

	env := e.envelope(level, text, requestID, userID, fields)
	e.log.Debug("audit emit", "level", level, "request_id", requestID, "text", text, "fields", len(fields))
	if err := e.publisher.Publish(ctx, e.routingKey, env); err != nil {
		e.log.Warn("audit publish failed", "routing_key", e.routingKey, "error", err)
	}
}

func (e *AuditEmitter) envelope(level, text, requestID string, userID *string, fields map[string]any) AuditEnvelope {
	return AuditEnvelope{
		SchemaVersion: auditSchemaVersion,
		EventType:     "audit_log",
		OccurredAt:    e.now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		RequestID:     requestID,
		UserID:        userID,
		Payload:       AuditPayload{Level: level, Text: text, Fields: fields},
	}
}
