package models

import "time"

// Event is one entry of a session's ordered event stream. Events are
// emit-only: never mutated or re-ordered once published.
type Event struct {
	ID        string         `json:"id"`
	SessionID string         `json:"sessionId"`
	Type      string         `json:"type"`
	At        time.Time      `json:"at"`
	Payload   map[string]any `json:"payload"`
}

// Clone returns a copy with a shallow-copied payload map. Payload values are
// treated as immutable by convention.
func (e Event) Clone() Event {
	out := e
	out.Payload = make(map[string]any, len(e.Payload))
	for k, v := range e.Payload {
		out.Payload[k] = v
	}
	return out
}
