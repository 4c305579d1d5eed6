package models

import "time"

// ModerationNote annotates a turn whose dialogue was flagged by the content
// moderator. The dialogue stored on the turn is already redacted.
type ModerationNote struct {
	Reasons []string `json:"reasons"`
}

// Clone returns a deep copy.
func (m *ModerationNote) Clone() *ModerationNote {
	if m == nil {
		return nil
	}
	return &ModerationNote{Reasons: append([]string(nil), m.Reasons...)}
}

// Turn is one generated dialogue utterance. Turns are append-only;
// TurnNumber equals the turn's index within its session.
type Turn struct {
	ID         string          `json:"id"`
	SessionID  string          `json:"sessionId"`
	TurnNumber int             `json:"turnNumber"`
	Speaker    string          `json:"speaker"`
	Role       Role            `json:"role"`
	Phase      Phase           `json:"phase"`
	Dialogue   string          `json:"dialogue"`
	CreatedAt  time.Time       `json:"createdAt"`
	Moderation *ModerationNote `json:"moderation,omitempty"`
}

// Clone returns a deep copy.
func (t *Turn) Clone() *Turn {
	if t == nil {
		return nil
	}
	out := *t
	out.Moderation = t.Moderation.Clone()
	return &out
}
