package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"presence-relay/internal/models"
	"presence-relay/internal/observability"
)

// Presence is the part of the presence registry the dispatcher uses.
type Presence interface {
	GetUsers() []models.UserRecord
	SetUnread(id string, unread bool)
}

// History is the part of the conversation store the dispatcher uses.
type History interface {
	AppendMessage(draft models.MessageDraft) models.Message
	GetMessages(a, b string) []models.Message
}

// Relay forwards negotiation events.
type Relay interface {
	Handles(ev models.Event) bool
	Forward(senderID string, ev models.Event) (models.Forward, error)
	Describe(ev models.Event) []any
}

// Dispatcher routes each inbound frame to the handler for its type and
// reports what should be delivered as Effects.
type Dispatcher struct {
	presence Presence
	history  History
	relay    Relay
	log      *slog.Logger
}

// NewDispatcher wires a dispatcher to its state holders.
func NewDispatcher(presence Presence, history History, relay Relay, log *slog.Logger) *Dispatcher {
	return &Dispatcher{presence: presence, history: history, relay: relay, log: log}
}

// Dispatch handles one frame sent by senderID. Failures are logged and
// produce no effects; they never reach the caller.
//
// Each frame gets its own root span linked to the connection's handshake
// span, so a long-lived socket does not grow one unbounded trace.
func (d *Dispatcher) Dispatch(ctx context.Context, senderID string, frame models.Frame) (fx models.Effects) {
	_, span := otel.Tracer("presence-relay/dispatch").Start(ctx, "ws.dispatch",
		trace.WithNewRoot(),
		trace.WithLinks(trace.LinkFromContext(ctx)),
	)
	span.SetAttributes(attribute.String("envelope.type", frame.Type), attribute.String("sender.id", senderID))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			d.log.Error("envelope handler panicked", "type", frame.Type, "sender", senderID, "panic", r)
			span.SetStatus(codes.Error, fmt.Sprint(r))
			observability.IncEnvelope(frame.Type, observability.OutcomePanic)
			fx = models.Effects{}
		}
	}()

	ev, err := models.DecodeEvent(frame)
	if err == nil {
		fx, err = d.handle(senderID, ev, frame.WantsAck())
	}
	if err != nil {
		d.log.Warn("dropping envelope", "type", frame.Type, "sender", senderID, "error", err)
		span.RecordError(err)
		outcome := observability.OutcomeMalformed
		if !errors.Is(err, models.ErrMalformed) {
			outcome = observability.OutcomeError
		}
		observability.IncEnvelope(frame.Type, outcome)
		return models.Effects{}
	}
	if _, unknown := ev.(models.UnknownEvent); unknown {
		d.log.Info("unknown message type", "type", frame.Type, "sender", senderID)
		observability.IncEnvelope("unknown", observability.OutcomeUnknown)
		return models.Effects{}
	}

	observability.IncEnvelope(frame.Type, observability.OutcomeOK)
	return fx
}

func (d *Dispatcher) handle(senderID string, ev models.Event, wantsAck bool) (models.Effects, error) {
	switch e := ev.(type) {
	case models.ChatEvent:
		return d.chat(senderID, e, wantsAck), nil
	case models.GetUsersEvent:
		return models.Effects{Replies: []models.Envelope{models.RosterEnvelope(d.presence.GetUsers())}}, nil
	case models.GetMessagesEvent:
		return d.getMessages(senderID, e), nil
	case models.UnknownEvent:
		return models.Effects{}, nil
	default:
		if d.relay.Handles(ev) {
			fwd, err := d.relay.Forward(senderID, ev)
			if err != nil {
				return models.Effects{}, err
			}
			attrs := append([]any{"type", ev.EventType(), "from", senderID, "to", fwd.To}, d.relay.Describe(ev)...)
			d.log.Debug("relaying signaling event", attrs...)
			return models.Effects{Forwards: []models.Forward{fwd}}, nil
		}
		return models.Effects{}, fmt.Errorf("no handler for %s", ev.EventType())
	}
}

func (d *Dispatcher) chat(senderID string, e models.ChatEvent, wantsAck bool) models.Effects {
	msg := d.history.AppendMessage(models.MessageDraft{
		SenderID:   senderID,
		ReceiverID: e.ReceiverID,
		Kind:       e.Kind,
		Body:       e.Body,
	})
	d.presence.SetUnread(e.ReceiverID, true)

	fx := models.Effects{
		Forwards: []models.Forward{{
			To:       e.ReceiverID,
			Envelope: models.Envelope{Type: models.TypeChat, Payload: msg},
		}},
	}
	if wantsAck {
		fx.Ack = &models.Ack{Code: 0, Payload: msg}
	}
	return fx
}

func (d *Dispatcher) getMessages(senderID string, e models.GetMessagesEvent) models.Effects {
	messages := d.history.GetMessages(senderID, e.PeerID)
	d.presence.SetUnread(senderID, false)
	return models.Effects{
		Replies: []models.Envelope{{Type: models.TypeGetMessages, Payload: messages}},
	}
}
