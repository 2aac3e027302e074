package ws

import (
	"encoding/json"
	"log/slog"
	"sync"

	"presence-relay/internal/models"
	"presence-relay/internal/observability"
)

// Hub maintains open channels and the per-identity rooms they are bound to.
type Hub struct {
	rooms   map[string]map[*Client]bool
	clients map[*Client]bool
	mu      sync.RWMutex
	log     *slog.Logger

	identMu sync.Mutex
	idents  map[string]*identityLock
}

type identityLock struct {
	mu   sync.Mutex
	refs int
}

// NewHub creates an empty hub.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		rooms:   make(map[string]map[*Client]bool),
		clients: make(map[*Client]bool),
		log:     log,
		idents:  make(map[string]*identityLock),
	}
}

// LockIdentity serializes room membership changes for id together with the
// presence updates that follow them. The returned func releases the lock.
func (h *Hub) LockIdentity(id string) (unlock func()) {
	h.identMu.Lock()
	l, ok := h.idents[id]
	if !ok {
		l = &identityLock{}
		h.idents[id] = l
	}
	l.refs++
	h.identMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		h.identMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(h.idents, id)
		}
		h.identMu.Unlock()
	}
}

// Register binds a client to the room of its identity.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := c.info.UserID
	if _, ok := h.rooms[id]; !ok {
		h.rooms[id] = make(map[*Client]bool)
	}
	h.rooms[id][c] = true
	h.clients[c] = true
}

// Unregister removes a client and returns how many channels its identity
// still has open.
func (h *Hub) Unregister(c *Client) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
	id := c.info.UserID
	conns, ok := h.rooms[id]
	if !ok {
		return 0
	}
	delete(conns, c)
	if len(conns) == 0 {
		delete(h.rooms, id)
	}
	return len(conns)
}

// ConnectionCount returns the number of open channels.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SendToIdentity delivers v to every channel in the room of id except the
// one given. It returns the number of channels reached; zero is not an error.
func (h *Hub) SendToIdentity(id string, v any, except *Client) int {
	payload, err := json.Marshal(v)
	if err != nil {
		h.log.Error("encode outbound envelope", "error", err)
		return 0
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.rooms[id]))
	for c := range h.rooms[id] {
		if c != except {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	return h.deliver(targets, payload)
}

// Broadcast delivers v to every open channel except the one given.
func (h *Hub) Broadcast(v any, except *Client) int {
	payload, err := json.Marshal(v)
	if err != nil {
		h.log.Error("encode broadcast envelope", "error", err)
		return 0
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		if c != except {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	return h.deliver(targets, payload)
}

// Send delivers v to one client.
func (h *Hub) Send(c *Client, v any) bool {
	payload, err := json.Marshal(v)
	if err != nil {
		h.log.Error("encode reply envelope", "error", err)
		return false
	}
	return h.deliver([]*Client{c}, payload) == 1
}

// Apply executes the effects produced for a frame from origin. ackID is the
// acknowledgement id the frame carried, if any.
func (h *Hub) Apply(origin *Client, ackID *int64, fx models.Effects) {
	if fx.Ack != nil && ackID != nil && origin != nil {
		h.Send(origin, models.NewAckFrame(*ackID, *fx.Ack))
	}
	for _, reply := range fx.Replies {
		if origin != nil {
			h.Send(origin, reply)
		}
	}
	for _, fwd := range fx.Forwards {
		if h.SendToIdentity(fwd.To, fwd.Envelope, origin) == 0 {
			observability.IncUndeliverable(fwd.Envelope.Type)
			h.log.Debug("no open channel for receiver", "type", fwd.Envelope.Type, "to", fwd.To)
		}
	}
	if fx.Broadcast != nil {
		var except *Client
		if fx.Broadcast.ExcludeOrigin {
			except = origin
		}
		h.Broadcast(fx.Broadcast.Envelope, except)
	}
}

// Shutdown closes every open channel.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Close()
	}
	h.log.Info("hub closed all channels", "count", len(clients))
}

func (h *Hub) deliver(targets []*Client, payload []byte) int {
	delivered := 0
	for _, c := range targets {
		if c.enqueue(payload) {
			delivered++
			continue
		}
		h.log.Warn("dropping slow or closed channel", "user_id", c.info.UserID, "conn_id", c.info.ConnID)
	}
	return delivered
}
