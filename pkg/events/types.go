// Package events defines the closed event catalog of the court runtime and
// the per-session broadcaster that fans events out to subscribers.
//
// Every state change in the store becomes exactly one event on the owning
// session's channel. Subscribers observe events in emission order for a
// given session; no cross-session ordering is promised. Events are emit-only
// and never mutated after publication.
package events

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/courtlive/courtd/pkg/models"
)

// Event type constants, the closed set. Payload shapes are enforced by
// Validate; adding a type here without a schema entry is a bug caught by
// the contract test.
const (
	TypeSessionCreated        = "session_created"
	TypeSessionStarted        = "session_started"
	TypePhaseChanged          = "phase_changed"
	TypeTurn                  = "turn"
	TypeVoteUpdated           = "vote_updated"
	TypeVoteClosed            = "vote_closed"
	TypeWitnessResponseCapped = "witness_response_capped"
	TypeJudgeRecapEmitted     = "judge_recap_emitted"
	TypeAnalytics             = "analytics_event"
	TypeModerationAction      = "moderation_action"
	TypeVoteSpamBlocked       = "vote_spam_blocked"
	TypeSessionCompleted      = "session_completed"
	TypeSessionFailed         = "session_failed"
)

// Analytics event names carried in analytics_event payloads.
const (
	AnalyticsPollStarted   = "poll_started"
	AnalyticsPollClosed    = "poll_closed"
	AnalyticsVoteCompleted = "vote_completed"
)

// schemas maps each event type to its mandatory payload fields.
var schemas = map[string][]string{
	TypeSessionCreated:        {"session"},
	TypeSessionStarted:        {"session"},
	TypePhaseChanged:          {"phase", "previousPhase"},
	TypeTurn:                  {"turn"},
	TypeVoteUpdated:           {"voteType", "choice", "verdictVotes", "sentenceVotes"},
	TypeVoteClosed:            {"pollType", "closedAt", "votes", "nextPhase"},
	TypeWitnessResponseCapped: {"speaker", "reason", "originalTokens", "cappedTokens"},
	TypeJudgeRecapEmitted:     {"turnId", "phase", "cycleNumber"},
	TypeAnalytics:             {"name"},
	TypeModerationAction:      {"turnId", "speaker", "reasons", "phase"},
	TypeVoteSpamBlocked:       {"voteType", "reason", "retryAfterMs"},
	TypeSessionCompleted:      {"session"},
	TypeSessionFailed:         {"reason"},
}

// Types returns every type in the closed set.
func Types() []string {
	out := make([]string, 0, len(schemas))
	for t := range schemas {
		out = append(out, t)
	}
	return out
}

// Validate checks that the event type belongs to the closed set and that
// every mandatory payload field is present. The store calls this before
// committing the mutation that produces the event, so an invalid payload
// never results in a half-emitted event.
func Validate(eventType string, payload map[string]any) error {
	required, ok := schemas[eventType]
	if !ok {
		return fmt.Errorf("unknown event type %q", eventType)
	}
	for _, field := range required {
		if _, present := payload[field]; !present {
			return fmt.Errorf("event %s: missing payload field %q", eventType, field)
		}
	}
	return nil
}

// IsTerminal reports whether the event ends its session's stream.
func IsTerminal(eventType string) bool {
	return eventType == TypeSessionCompleted || eventType == TypeSessionFailed
}

// New builds a validated event. It is the only constructor: every published
// event carries a fresh id and timestamp.
func New(sessionID, eventType string, payload map[string]any) (models.Event, error) {
	if err := Validate(eventType, payload); err != nil {
		return models.Event{}, err
	}
	return models.Event{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Type:      eventType,
		At:        time.Now().UTC(),
		Payload:   payload,
	}, nil
}
