package models

// Forward delivers an envelope to every channel bound to one identity,
// except the channel the triggering frame arrived on.
type Forward struct {
	To       string
	Envelope Envelope
}

// Broadcast delivers an envelope to all open channels. With ExcludeOrigin
// the channel that caused the broadcast is skipped.
type Broadcast struct {
	Envelope      Envelope
	ExcludeOrigin bool
}

// Effects is what handling one event asks the transport to do.
type Effects struct {
	Ack       *Ack
	Replies   []Envelope
	Forwards  []Forward
	Broadcast *Broadcast
}

// Empty reports whether there is nothing to deliver.
func (e Effects) Empty() bool {
	return e.Ack == nil && len(e.Replies) == 0 && len(e.Forwards) == 0 && e.Broadcast == nil
}
