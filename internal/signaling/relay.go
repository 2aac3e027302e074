package signaling

import (
	"encoding/json"
	"fmt"

	"github.com/pion/webrtc/v4"

	"presence-relay/internal/models"
)

// OfferPayload is forwarded to the callee of an offer. Offer holds the
// sender's bytes unchanged.
type OfferPayload struct {
	Offer    json.RawMessage `json:"offer"`
	SenderID string          `json:"senderId"`
}

// AnswerPayload is forwarded to the caller of an answer.
type AnswerPayload struct {
	Answer   json.RawMessage `json:"answer"`
	SenderID string          `json:"senderId"`
}

// IceCandidatePayload is forwarded to the remote peer of a candidate.
type IceCandidatePayload struct {
	Candidate json.RawMessage `json:"candidate"`
	SenderID  string          `json:"senderId"`
}

// CallControlPayload is forwarded for accept, reject and hangup.
type CallControlPayload struct {
	Action   models.CallAction `json:"action"`
	SenderID string            `json:"senderId"`
}

// Relay re-tags negotiation events for their receiver. It keeps no state and
// forwards session descriptions and candidates as opaque JSON.
type Relay struct{}

// NewRelay returns a Relay.
func NewRelay() Relay {
	return Relay{}
}

// Handles reports whether ev is a signaling event.
func (Relay) Handles(ev models.Event) bool {
	switch ev.(type) {
	case models.OfferEvent, models.AnswerEvent, models.IceCandidateEvent, models.CallControlEvent:
		return true
	}
	return false
}

// Forward builds the delivery of ev from senderID to its receiver's room.
func (Relay) Forward(senderID string, ev models.Event) (models.Forward, error) {
	switch e := ev.(type) {
	case models.OfferEvent:
		return forward(e.ReceiverID, models.TypeOffer, OfferPayload{Offer: e.Offer, SenderID: senderID})
	case models.AnswerEvent:
		return forward(e.ReceiverID, models.TypeAnswer, AnswerPayload{Answer: e.Answer, SenderID: senderID})
	case models.IceCandidateEvent:
		return forward(e.ReceiverID, models.TypeIceCandidate, IceCandidatePayload{Candidate: e.Candidate, SenderID: senderID})
	case models.CallControlEvent:
		if !e.Action.Valid() {
			return models.Forward{}, fmt.Errorf("%w: call-control: unknown action %q", models.ErrMalformed, e.Action)
		}
		return forward(e.ReceiverID, models.TypeCallControl, CallControlPayload{Action: e.Action, SenderID: senderID})
	default:
		return models.Forward{}, fmt.Errorf("%w: %s is not a signaling event", models.ErrMalformed, ev.EventType())
	}
}

// Describe returns log attributes read from the typed WebRTC view of ev.
// Payloads that do not parse as pion types yield no attributes; they are
// still relayed.
func (Relay) Describe(ev models.Event) []any {
	switch e := ev.(type) {
	case models.OfferEvent:
		return describeSDP(e.Offer)
	case models.AnswerEvent:
		return describeSDP(e.Answer)
	case models.IceCandidateEvent:
		var cand *webrtc.ICECandidateInit
		if err := json.Unmarshal(e.Candidate, &cand); err != nil {
			return nil
		}
		if cand == nil {
			return []any{"end_of_candidates", true}
		}
		attrs := []any{"candidate_bytes", len(cand.Candidate)}
		if cand.SDPMid != nil {
			attrs = append(attrs, "sdp_mid", *cand.SDPMid)
		}
		return attrs
	case models.CallControlEvent:
		return []any{"action", string(e.Action)}
	}
	return nil
}

func describeSDP(raw json.RawMessage) []any {
	var desc webrtc.SessionDescription
	if err := json.Unmarshal(raw, &desc); err != nil {
		return nil
	}
	return []any{"sdp_type", desc.Type.String(), "sdp_bytes", len(desc.SDP)}
}

func forward(to, typ string, payload any) (models.Forward, error) {
	if to == "" {
		return models.Forward{}, fmt.Errorf("%w: %s: receiverId is required", models.ErrMalformed, typ)
	}
	return models.Forward{To: to, Envelope: models.Envelope{Type: typ, Payload: payload}}, nil
}
