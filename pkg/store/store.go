// Package store holds the authoritative state of every court session: the
// phase machine, turns, vote tallies, and the per-session event stream.
//
// Two backends implement the same Store interface: an in-memory backend for
// tests and single-node development, and a relational backend that mirrors
// the same invariants in PostgreSQL. Every mutator either commits a state
// change and emits exactly one batch of events describing it, or fails with
// no state change and no event.
package store

import (
	"context"

	"github.com/courtlive/courtd/pkg/events"
	"github.com/courtlive/courtd/pkg/models"
	"github.com/courtlive/courtd/pkg/moderation"
)

// MinTopicLength is the minimum accepted session topic length.
const MinTopicLength = 10

// CreateSessionInput parameterizes CreateSession.
type CreateSessionInput struct {
	Topic    string
	CaseType models.CaseType
	Roles    models.RoleAssignments
	Metadata models.Metadata
}

// AddTurnInput parameterizes AddTurn. When Moderation is present and
// flagged, the stored dialogue is the sanitized text and a
// moderation_action event accompanies the turn event.
type AddTurnInput struct {
	SessionID  string
	Speaker    string
	Role       models.Role
	Phase      models.Phase
	Dialogue   string
	Moderation *moderation.Result
}

// CastVoteInput parameterizes CastVote.
type CastVoteInput struct {
	SessionID string
	VoteType  models.VoteType
	Choice    string
}

// RecordRecapInput parameterizes RecordRecap.
type RecordRecapInput struct {
	SessionID   string
	TurnID      string
	Phase       models.Phase
	CycleNumber int
}

// Store is the capability set both backends provide. All reads return
// defensive copies; callers cannot mutate internal state through them.
type Store interface {
	// CreateSession allocates a session in pending/case_prompt and emits
	// session_created. Fails INVALID_TOPIC for short topics and
	// TOPIC_REJECTED when moderation flags the topic.
	CreateSession(ctx context.Context, in CreateSessionInput) (*models.Session, error)

	// StartSession transitions pending → running and emits session_started.
	// Idempotent for sessions already running.
	StartSession(ctx context.Context, id string) (*models.Session, error)

	// SetPhase validates and applies a phase transition, emitting
	// phase_changed plus the poll bookkeeping events (§ vote phases).
	// durationMs is announced in the event payload; it does not start a
	// timer; pacing is the orchestrator's job.
	SetPhase(ctx context.Context, id string, target models.Phase, durationMs int) (*models.Session, error)

	// AddTurn appends a turn, numbering it with the current turn count, and
	// emits turn (plus moderation_action for flagged dialogue).
	AddTurn(ctx context.Context, in AddTurnInput) (*models.Turn, error)

	// CastVote admits a vote only while the matching vote phase is current
	// and the choice is legal, increments the tally, and emits vote_updated
	// plus the vote_completed analytics event.
	CastVote(ctx context.Context, in CastVoteInput) (*models.Session, error)

	// RecordRecap registers a judge recap turn (set semantics) and emits
	// judge_recap_emitted.
	RecordRecap(ctx context.Context, in RecordRecapInput) error

	// RecordFinalRuling writes the final ruling. It deliberately does not
	// complete the session; the orchestrator remains the sole authority for
	// the terminal transition.
	RecordFinalRuling(ctx context.Context, id, verdict, sentence string) error

	// CompleteSession / FailSession apply the terminal states. Each is
	// idempotent; applying the opposite terminal state is an error.
	CompleteSession(ctx context.Context, id string) error
	FailSession(ctx context.Context, id, reason string) error

	// GetSession returns a defensive copy, or ErrNotFound.
	GetSession(ctx context.Context, id string) (*models.Session, error)

	// ListTurns returns the session's turns in order.
	ListTurns(ctx context.Context, sessionID string) ([]*models.Turn, error)

	// ListSessions returns all sessions ordered by creation time.
	ListSessions(ctx context.Context) ([]*models.Session, error)

	// RecoverInterruptedSessions returns ids of sessions persisted as
	// running, used at startup so the operator policy can decide their
	// fate.
	RecoverInterruptedSessions(ctx context.Context) ([]string, error)

	// Subscribe registers a handler for a session's subsequent events, in
	// emission order, returning its unsubscribe function.
	Subscribe(sessionID string, handler events.Handler) func()

	// EmitEvent publishes a validated event the store does not generate
	// natively (e.g. witness_response_capped, vote_spam_blocked).
	EmitEvent(ctx context.Context, sessionID, eventType string, payload map[string]any) error

	// Close releases backend resources and tears down the event bus.
	Close() error
}
