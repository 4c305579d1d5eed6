// Package models defines the core domain types shared across the court
// runtime: sessions, turns, events, agents, and the prompt bank.
package models

import "time"

// CaseType discriminates criminal from civil proceedings. It determines the
// legal verdict choices for the verdict poll.
type CaseType string

// Case type constants.
const (
	CaseTypeCriminal CaseType = "criminal"
	CaseTypeCivil    CaseType = "civil"
)

// VerdictChoices returns the legal verdict poll choices for the case type,
// in canonical order.
func (c CaseType) VerdictChoices() []string {
	if c == CaseTypeCivil {
		return []string{"liable", "not_liable"}
	}
	return []string{"guilty", "not_guilty"}
}

// Status represents the session lifecycle state.
type Status string

// Session status constants. Completed and failed are terminal.
const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// IsTerminal reports whether the status admits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Phase is a state of the session phase machine. Legal transitions are
// enforced by the store (see pkg/store).
type Phase string

// Phase constants, in machine order.
const (
	PhaseCasePrompt     Phase = "case_prompt"
	PhaseOpenings       Phase = "openings"
	PhaseWitnessExam    Phase = "witness_exam"
	PhaseEvidenceReveal Phase = "evidence_reveal"
	PhaseClosings       Phase = "closings"
	PhaseVerdictVote    Phase = "verdict_vote"
	PhaseSentenceVote   Phase = "sentence_vote"
	PhaseFinalRuling    Phase = "final_ruling"
)

// VoteType identifies one of the two session polls.
type VoteType string

// Vote type constants.
const (
	VoteTypeVerdict  VoteType = "verdict"
	VoteTypeSentence VoteType = "sentence"
)

// Phase returns the vote phase during which this poll accepts votes.
func (v VoteType) Phase() Phase {
	if v == VoteTypeSentence {
		return PhaseSentenceVote
	}
	return PhaseVerdictVote
}

// VoteTypeForPhase returns the poll accepting votes in the given phase, or
// "" when the phase is not a vote phase.
func VoteTypeForPhase(p Phase) VoteType {
	switch p {
	case PhaseVerdictVote:
		return VoteTypeVerdict
	case PhaseSentenceVote:
		return VoteTypeSentence
	}
	return ""
}

// RoleAssignments maps the named courtroom roles to agent IDs. Witnesses
// holds one to three agents, examined in order.
type RoleAssignments struct {
	Judge      string   `json:"judge"`
	Prosecutor string   `json:"prosecutor"`
	Defense    string   `json:"defense"`
	Bailiff    string   `json:"bailiff"`
	Witnesses  []string `json:"witnesses"`
}

// Clone returns a deep copy.
func (r RoleAssignments) Clone() RoleAssignments {
	out := r
	out.Witnesses = append([]string(nil), r.Witnesses...)
	return out
}

// VoteSnapshot is the frozen tally of a poll, captured when the session
// leaves the corresponding vote phase.
type VoteSnapshot struct {
	ClosedAt time.Time      `json:"closedAt"`
	Votes    map[string]int `json:"votes"`
}

// Clone returns a deep copy.
func (s *VoteSnapshot) Clone() *VoteSnapshot {
	if s == nil {
		return nil
	}
	votes := make(map[string]int, len(s.Votes))
	for k, v := range s.Votes {
		votes[k] = v
	}
	return &VoteSnapshot{ClosedAt: s.ClosedAt, Votes: votes}
}

// Metadata carries the per-session poll configuration and the frozen poll
// snapshots.
type Metadata struct {
	VerdictVoteWindowMs  int                        `json:"verdictVoteWindowMs"`
	SentenceVoteWindowMs int                        `json:"sentenceVoteWindowMs"`
	SentenceOptions      []string                   `json:"sentenceOptions"`
	VoteSnapshots        map[VoteType]*VoteSnapshot `json:"voteSnapshots"`
}

// Clone returns a deep copy.
func (m Metadata) Clone() Metadata {
	out := m
	out.SentenceOptions = append([]string(nil), m.SentenceOptions...)
	out.VoteSnapshots = make(map[VoteType]*VoteSnapshot, len(m.VoteSnapshots))
	for k, v := range m.VoteSnapshots {
		out.VoteSnapshots[k] = v.Clone()
	}
	return out
}

// VoteWindowMs returns the configured poll window for the vote type.
func (m Metadata) VoteWindowMs(v VoteType) int {
	if v == VoteTypeSentence {
		return m.SentenceVoteWindowMs
	}
	return m.VerdictVoteWindowMs
}

// FinalRuling records the winners of both polls and when the judge ruled.
type FinalRuling struct {
	Verdict   string    `json:"verdict"`
	Sentence  string    `json:"sentence"`
	DecidedAt time.Time `json:"decidedAt"`
}

// Clone returns a copy.
func (f *FinalRuling) Clone() *FinalRuling {
	if f == nil {
		return nil
	}
	out := *f
	return &out
}

// Session is the authoritative record of one court proceeding. Instances
// returned by the store are defensive copies; mutating them has no effect
// on stored state.
type Session struct {
	ID            string          `json:"id"`
	Topic         string          `json:"topic"`
	CaseType      CaseType        `json:"caseType"`
	Status        Status          `json:"status"`
	Phase         Phase           `json:"phase"`
	TurnIDs       []string        `json:"turnIds"`
	Roles         RoleAssignments `json:"roles"`
	Metadata      Metadata        `json:"metadata"`
	VerdictVotes  *Tally          `json:"verdictVotes"`
	SentenceVotes *Tally          `json:"sentenceVotes"`
	RecapTurnIDs  []string        `json:"recapTurnIds"`
	FinalRuling   *FinalRuling    `json:"finalRuling,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	StartedAt     *time.Time      `json:"startedAt,omitempty"`
	CompletedAt   *time.Time      `json:"completedAt,omitempty"`
	FailureReason string          `json:"failureReason,omitempty"`
}

// Tally returns the live tally for the vote type.
func (s *Session) Tally(v VoteType) *Tally {
	if v == VoteTypeSentence {
		return s.SentenceVotes
	}
	return s.VerdictVotes
}

// AllowedChoices returns the legal choice set for the vote type.
func (s *Session) AllowedChoices(v VoteType) []string {
	if v == VoteTypeSentence {
		return append([]string(nil), s.Metadata.SentenceOptions...)
	}
	return s.CaseType.VerdictChoices()
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.TurnIDs = append([]string(nil), s.TurnIDs...)
	out.Roles = s.Roles.Clone()
	out.Metadata = s.Metadata.Clone()
	out.VerdictVotes = s.VerdictVotes.Clone()
	out.SentenceVotes = s.SentenceVotes.Clone()
	out.RecapTurnIDs = append([]string(nil), s.RecapTurnIDs...)
	out.FinalRuling = s.FinalRuling.Clone()
	if s.StartedAt != nil {
		t := *s.StartedAt
		out.StartedAt = &t
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}
