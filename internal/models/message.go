package models

import "time"

// Message is one chat entry between two identities.
type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Kind       string    `json:"kind"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"createdAt"`
}

// MessageDraft carries the caller-provided part of a Message before the
// store assigns its id and timestamp.
type MessageDraft struct {
	SenderID   string
	ReceiverID string
	Kind       string
	Body       string
}
