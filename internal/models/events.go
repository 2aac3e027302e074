package models

import (
	"encoding/json"
	"fmt"
)

// Event is the decoded form of an inbound Frame. The concrete types below are
// the only implementations; UnknownEvent covers tags this server does not
// know yet.
type Event interface {
	EventType() string
	isEvent()
}

// ChatEvent asks the server to store a message and deliver it to ReceiverID.
type ChatEvent struct {
	ReceiverID string `json:"receiverId"`
	Kind       string `json:"kind"`
	Body       string `json:"body"`
}

// GetUsersEvent requests the current roster.
type GetUsersEvent struct{}

// GetMessagesEvent requests the history shared with PeerID.
type GetMessagesEvent struct {
	PeerID string
}

// OfferEvent relays a WebRTC offer.
type OfferEvent struct {
	ReceiverID string                    `json:"receiverId"`
	Offer      webrtc.SessionDescription `json:"offer"`
}

// AnswerEvent relays a WebRTC answer.
type AnswerEvent struct {
	ReceiverID string                    `json:"receiverId"`
	Answer     webrtc.SessionDescription `json:"answer"`
}

// IceCandidateEvent relays one trickled ICE candidate.
type IceCandidateEvent struct {
	ReceiverID string                  `json:"receiverId"`
	Candidate  webrtc.ICECandidateInit `json:"candidate"`
}

// CallAction is a call-control verb.
type CallAction string

const (
	CallAccept CallAction = "accept"
	CallReject CallAction = "reject"
	CallHangup CallAction = "hangup"
)

// Valid reports whether a is one of the known call-control verbs.
func (a CallAction) Valid() bool {
	switch a {
	case CallAccept, CallReject, CallHangup:
		return true
	}
	return false
}

// CallControlEvent relays accept/reject/hangup.
type CallControlEvent struct {
	ReceiverID string     `json:"receiverId"`
	Action     CallAction `json:"action"`
}

// UnknownEvent is produced for tags without a handler.
type UnknownEvent struct {
	Type string
}

func (ChatEvent) EventType() string         { return TypeChat }
func (GetUsersEvent) EventType() string     { return TypeGetUsers }
func (GetMessagesEvent) EventType() string  { return TypeGetMessages }
func (OfferEvent) EventType() string        { return TypeOffer }
func (AnswerEvent) EventType() string       { return TypeAnswer }
func (IceCandidateEvent) EventType() string { return TypeIceCandidate }
func (CallControlEvent) EventType() string  { return TypeCallControl }
func (e UnknownEvent) EventType() string    { return e.Type }

func (ChatEvent) isEvent()         {}
func (GetUsersEvent) isEvent()     {}
func (GetMessagesEvent) isEvent()  {}
func (OfferEvent) isEvent()        {}
func (AnswerEvent) isEvent()       {}
func (IceCandidateEvent) isEvent() {}
func (CallControlEvent) isEvent()  {}
func (UnknownEvent) isEvent()      {}

// DecodeEvent turns a Frame into its typed Event. Decoding failures and
// missing required fields are reported as ErrMalformed.
func DecodeEvent(f Frame) (Event, error) {
	switch f.Type {
	case TypeChat:
		var ev ChatEvent
		if err := unmarshalPayload(f, &ev); err != nil {
			return nil, err
		}
		if ev.ReceiverID == "" {
			return nil, malformed(f.Type, "receiverId is required")
		}
		return ev, nil
	case TypeGetUsers:
		return GetUsersEvent{}, nil
	case TypeGetMessages:
		var peer string
		if err := unmarshalPayload(f, &peer); err != nil {
			return nil, err
		}
		if peer == "" {
			return nil, malformed(f.Type, "peer identity is required")
		}
		return GetMessagesEvent{PeerID: peer}, nil
	case TypeOffer:
		var ev OfferEvent
		if err := unmarshalPayload(f, &ev); err != nil {
			return nil, err
		}
		if ev.ReceiverID == "" || len(ev.Offer) == 0 {
			return nil, malformed(f.Type, "receiverId and offer are required")
		}
		return ev, nil
	case TypeAnswer:
		var ev AnswerEvent
		if err := unmarshalPayload(f, &ev); err != nil {
			return nil, err
		}
		if ev.ReceiverID == "" || len(ev.Answer) == 0 {
			return nil, malformed(f.Type, "receiverId and answer are required")
		}
		return ev, nil
	case TypeIceCandidate:
		var ev IceCandidateEvent
		if err := unmarshalPayload(f, &ev); err != nil {
			return nil, err
		}
		if ev.ReceiverID == "" || len(ev.Candidate) == 0 {
			return nil, malformed(f.Type, "receiverId and candidate are required")
		}
		return ev, nil
	case TypeCallControl:
		var ev CallControlEvent
		if err := unmarshalPayload(f, &ev); err != nil {
			return nil, err
		}
		if ev.ReceiverID == "" {
			return nil, malformed(f.Type, "receiverId is required")
		}
		if !ev.Action.Valid() {
			return nil, malformed(f.Type, fmt.Sprintf("unknown action %q", ev.Action))
		}
		return ev, nil
	default:
		return UnknownEvent{Type: f.Type}, nil
	}
}

func unmarshalPayload(f Frame, v any) error {
	if len(f.Payload) == 0 {
		return malformed(f.Type, "payload is required")
	}
	if err := json.Unmarshal(f.Payload, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, f.Type, err)
	}
	return nil
}

func malformed(typ, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrMalformed, typ, reason)
}
