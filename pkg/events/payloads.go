package events

import (
	"time"

	"github.com/courtlive/courtd/pkg/models"
)

// Payload constructors. The store publishes exclusively through these so
// every event of a given type carries the same shape.

// SessionCreatedPayload carries the freshly created session.
func SessionCreatedPayload(s *models.Session) map[string]any {
	return map[string]any{"session": s}
}

// SessionStartedPayload carries the session after the pending → running
// transition.
func SessionStartedPayload(s *models.Session) map[string]any {
	return map[string]any{"session": s}
}

// PhaseChangedPayload records one legal phase transition. durationMs is the
// announced budget for the new phase; zero means unspecified.
func PhaseChangedPayload(previous, next models.Phase, durationMs int) map[string]any {
	return map[string]any{
		"phase":           next,
		"previousPhase":   previous,
		"phaseDurationMs": durationMs,
	}
}

// TurnPayload carries one appended turn.
func TurnPayload(t *models.Turn) map[string]any {
	return map[string]any{"turn": t}
}

// VoteUpdatedPayload carries both post-state tallies after one accepted vote.
func VoteUpdatedPayload(voteType models.VoteType, choice string, verdictVotes, sentenceVotes map[string]int) map[string]any {
	return map[string]any{
		"voteType":      voteType,
		"choice":        choice,
		"verdictVotes":  verdictVotes,
		"sentenceVotes": sentenceVotes,
	}
}

// VoteClosedPayload carries a poll's frozen snapshot and the phase the
// session moved to.
func VoteClosedPayload(pollType models.VoteType, closedAt time.Time, votes map[string]int, nextPhase models.Phase) map[string]any {
	return map[string]any{
		"pollType":  pollType,
		"closedAt":  closedAt,
		"votes":     votes,
		"nextPhase": nextPhase,
	}
}

// AnalyticsPayload builds an analytics_event payload. extra fields are
// merged next to the mandatory name.
func AnalyticsPayload(name string, extra map[string]any) map[string]any {
	payload := map[string]any{"name": name}
	for k, v := range extra {
		payload[k] = v
	}
	return payload
}

// ModerationActionPayload records a redacted turn.
func ModerationActionPayload(turnID, speaker string, reasons []string, phase models.Phase) map[string]any {
	return map[string]any{
		"turnId":  turnID,
		"speaker": speaker,
		"reasons": reasons,
		"phase":   phase,
	}
}

// JudgeRecapPayload records a recap turn registration.
func JudgeRecapPayload(turnID string, phase models.Phase, cycleNumber int) map[string]any {
	return map[string]any{
		"turnId":      turnID,
		"phase":       phase,
		"cycleNumber": cycleNumber,
	}
}

// WitnessResponseCappedPayload records a truncated witness answer.
func WitnessResponseCappedPayload(speaker, reason string, originalTokens, cappedTokens int) map[string]any {
	return map[string]any{
		"speaker":        speaker,
		"reason":         reason,
		"originalTokens": originalTokens,
		"cappedTokens":   cappedTokens,
	}
}

// VoteSpamBlockedPayload records a guard rejection forwarded by the gateway.
func VoteSpamBlockedPayload(voteType, reason string, retryAfterMs int64) map[string]any {
	return map[string]any{
		"voteType":     voteType,
		"reason":       reason,
		"retryAfterMs": retryAfterMs,
	}
}

// SessionCompletedPayload carries the final session state.
func SessionCompletedPayload(s *models.Session) map[string]any {
	return map[string]any{"session": s}
}

// SessionFailedPayload carries the failure reason.
func SessionFailedPayload(reason string) map[string]any {
	return map[string]any{"reason": reason}
}
