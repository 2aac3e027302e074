package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"presence-relay/internal/lifecycle"
	"presence-relay/internal/models"
	"presence-relay/internal/observability"
)

// Dispatcher handles one inbound frame.
type Dispatcher interface {
	Dispatch(ctx context.Context, senderID string, frame models.Frame) models.Effects
}

// Lifecycle reacts to channels opening and closing.
type Lifecycle interface {
	Open(ctx context.Context, hs lifecycle.Handshake) models.Effects
	Close(ctx context.Context, hs lifecycle.Handshake, remaining int) models.Effects
}

// Options tunes the channel transport.
type Options struct {
	PingInterval    time.Duration
	PongTimeout     time.Duration
	MaxMessageBytes int64
	SendBuffer      int
	AllowedOrigins  []string
}

// RelayWebSocketHandler upgrades HTTP requests into relay channels.
type RelayWebSocketHandler struct {
	hub        *Hub
	dispatcher Dispatcher
	lifecycle  Lifecycle
	upgrader   websocket.Upgrader
	opts       Options
	log        *slog.Logger
}

// NewRelayWebSocketHandler constructs a RelayWebSocketHandler.
func NewRelayWebSocketHandler(hub *Hub, dispatcher Dispatcher, lc Lifecycle, opts Options, log *slog.Logger) *RelayWebSocketHandler {
	if opts.PingInterval <= 0 {
		opts.PingInterval = 25 * time.Second
	}
	if opts.PongTimeout <= 0 {
		opts.PongTimeout = 60 * time.Second
	}
	return &RelayWebSocketHandler{
		hub:        hub,
		dispatcher: dispatcher,
		lifecycle:  lc,
		upgrader: websocket.Upgrader{
			CheckOrigin: CheckOrigin(opts.AllowedOrigins),
		},
		opts: opts,
		log:  log,
	}
}

// Handle upgrades the connection, binds it to the caller's identity and
// serves it until it closes.
func (h *RelayWebSocketHandler) Handle(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		userID = c.GetHeader("X-User-Id")
	}
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing userId"})
		return
	}
	displayName := c.Query("userName")
	if displayName == "" {
		displayName = c.GetHeader("X-User-Name")
	}

	ctx, span := otel.Tracer("presence-relay/ws").Start(c.Request.Context(), "ws.handshake",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		span.RecordError(err)
		span.End()
		h.log.Warn("websocket upgrade failed", "user_id", userID, "error", err)
		return
	}
	span.End()

	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		DisplayName: displayName,
		UserAgent:   observability.UserAgentFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	h.serve(context.WithoutCancel(ctx), conn, info)
}

func (h *RelayWebSocketHandler) serve(ctx context.Context, conn *websocket.Conn, info ConnInfo) {
	client := newClient(conn, info, h.opts.SendBuffer)
	hs := handshake(info)

	go func() {
		if err := client.writePump(h.opts.PingInterval); err != nil {
			h.log.Debug("write pump stopped", "conn_id", info.ConnID, "error", err)
		}
		client.Close()
	}()

	h.attach(ctx, client, hs)
	observability.IncWSActive()
	publishWSEvent(ctx, info, "ws_connect", "")

	closeReason := h.readLoop(ctx, client)

	client.Close()
	h.detach(ctx, client, hs)
	observability.DecWSActive()
	publishWSEvent(ctx, info, "ws_disconnect", closeReason)
}

// attach and detach hold the identity lock across the room change and the
// presence update, so a closing channel can never mark offline an identity
// whose fresh channel has already been registered.
func (h *RelayWebSocketHandler) attach(ctx context.Context, client *Client, hs lifecycle.Handshake) {
	unlock := h.hub.LockIdentity(hs.UserID)
	defer unlock()
	h.hub.Register(client)
	h.hub.Apply(client, nil, h.lifecycle.Open(ctx, hs))
}

func (h *RelayWebSocketHandler) detach(ctx context.Context, client *Client, hs lifecycle.Handshake) {
	unlock := h.hub.LockIdentity(hs.UserID)
	defer unlock()
	remaining := h.hub.Unregister(client)
	h.hub.Apply(client, nil, h.lifecycle.Close(ctx, hs, remaining))
}

func (h *RelayWebSocketHandler) readLoop(ctx context.Context, client *Client) string {
	conn := client.conn
	if h.opts.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.opts.MaxMessageBytes)
	}
	_ = conn.SetReadDeadline(time.Now().Add(h.opts.PongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.opts.PongTimeout))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				publishWSEvent(ctx, client.info, "ws_error", err.Error())
			}
			return err.Error()
		}
		_ = conn.SetReadDeadline(time.Now().Add(h.opts.PongTimeout))

		var frame models.Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			h.log.Warn("dropping undecodable frame", "user_id", client.info.UserID, "error", err)
			observability.IncEnvelope("invalid", observability.OutcomeMalformed)
			continue
		}
		fx := h.dispatcher.Dispatch(ctx, client.info.UserID, frame)
		h.hub.Apply(client, frame.AckID, fx)
	}
}

func handshake(info ConnInfo) lifecycle.Handshake {
	return lifecycle.Handshake{
		UserID:      info.UserID,
		DisplayName: info.DisplayName,
		ConnID:      info.ConnID,
		IP:          info.IP,
		RequestID:   info.RequestID,
		TraceID:     info.TraceID,
		ConnectedAt: info.ConnectedAt,
	}
}
