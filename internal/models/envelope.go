package models

import (
	"encoding/json"
	"errors"
)

// Envelope type tags shared by inbound and outbound frames.
const (
	TypeChat         = "chat"
	TypeGetUsers     = "getUsers"
	TypeGetMessages  = "getMessages"
	TypeOffer        = "offer"
	TypeAnswer       = "answer"
	TypeIceCandidate = "ice-candidate"
	TypeCallControl  = "call-control"
	TypeAck          = "ack"
)

// ErrMalformed marks an inbound frame whose payload is missing required
// fields or cannot be decoded for its type.
var ErrMalformed = errors.New("malformed envelope")

// Frame is an inbound envelope as read from the wire. AckID is set when the
// sender expects an acknowledgement.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	AckID   *int64          `json:"ackId,omitempty"`
}

// WantsAck reports whether the sender attached an acknowledgement id.
func (f Frame) WantsAck() bool {
	return f.AckID != nil
}

// Envelope is an outbound event.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Ack is the acknowledgement delivered back to the sender of a frame.
type Ack struct {
	Code    int `json:"code"`
	Payload any `json:"payload,omitempty"`
}

// AckFrame is the wire form of an Ack.
type AckFrame struct {
	Type    string `json:"type"`
	AckID   int64  `json:"ackId"`
	Code    int    `json:"code"`
	Payload any    `json:"payload,omitempty"`
}

// NewAckFrame binds ack to the id the sender supplied.
func NewAckFrame(ackID int64, ack Ack) AckFrame {
	return AckFrame{Type: TypeAck, AckID: ackID, Code: ack.Code, Payload: ack.Payload}
}

// RosterEnvelope wraps a presence snapshot.
func RosterEnvelope(users []UserRecord) Envelope {
	return Envelope{Type: TypeGetUsers, Payload: users}
}
