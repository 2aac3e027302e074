package conversations

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"presence-relay/internal/models"
)

// KeyDelimiter joins the two identities of a conversation key. Identities
// are not checked for it, so "a_b"+"c" and "a"+"b_c" share a key.
const KeyDelimiter = "_"

// ConversationKey returns the order-independent key for a pair of
// identities. Comparison is byte-wise.
func ConversationKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + KeyDelimiter + b
}

type conversation struct {
	participants [2]string
	messages     []models.Message
}

func (c *conversation) has(id string) bool {
	return c.participants[0] == id || c.participants[1] == id
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides the message id source.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// Store holds pairwise message history in memory.
type Store struct {
	conversations map[string]*conversation
	mu            sync.RWMutex
	now           func() time.Time
	newID         func() string
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		conversations: make(map[string]*conversation),
		now:           func() time.Time { return time.Now().UTC() },
		newID:         func() string { return "msg_" + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AppendMessage stores a new message for the sender/receiver pair and
// returns it with its id and timestamp set. Every call appends; there is no
// deduplication.
func (s *Store) AppendMessage(draft models.MessageDraft) models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := models.Message{
		ID:         s.newID(),
		SenderID:   draft.SenderID,
		ReceiverID: draft.ReceiverID,
		Kind:       draft.Kind,
		Body:       draft.Body,
		CreatedAt:  s.now(),
	}

	key := ConversationKey(draft.SenderID, draft.ReceiverID)
	conv, ok := s.conversations[key]
	if !ok {
		conv = &conversation{participants: [2]string{draft.SenderID, draft.ReceiverID}}
		s.conversations[key] = conv
	}
	conv.messages = append(conv.messages, msg)
	return msg
}

// GetMessages returns the history between a and b in insertion order. The
// result is never nil.
func (s *Store) GetMessages(a, b string) []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[ConversationKey(a, b)]
	if !ok {
		return []models.Message{}
	}
	out := make([]models.Message, len(conv.messages))
	copy(out, conv.messages)
	return out
}

// DeleteConversationsContaining removes every conversation id takes part in,
// including the other participant's copy of that history. It returns the
// number of conversations removed.
func (s *Store) DeleteConversationsContaining(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, conv := range s.conversations {
		if conv.has(id) {
			delete(s.conversations, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored conversations.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations)
}
