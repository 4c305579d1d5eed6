package store

import "github.com/courtlive/courtd/pkg/models"

// phaseSequence is the canonical phase order. evidence_reveal is the single
// optional phase: witness_exam may skip straight to closings.
var phaseSequence = []models.Phase{
	models.PhaseCasePrompt,
	models.PhaseOpenings,
	models.PhaseWitnessExam,
	models.PhaseEvidenceReveal,
	models.PhaseClosings,
	models.PhaseVerdictVote,
	models.PhaseSentenceVote,
	models.PhaseFinalRuling,
}

// PhaseSequence returns a copy of the canonical phase order.
func PhaseSequence() []models.Phase {
	return append([]models.Phase(nil), phaseSequence...)
}

// ValidPhase reports whether p names a known phase.
func ValidPhase(p models.Phase) bool {
	for _, candidate := range phaseSequence {
		if candidate == p {
			return true
		}
	}
	return false
}

// NextPhase returns the successor of p, or "" for the terminal phase.
func NextPhase(p models.Phase) models.Phase {
	for i, candidate := range phaseSequence {
		if candidate == p && i+1 < len(phaseSequence) {
			return phaseSequence[i+1]
		}
	}
	return ""
}

// CanTransition reports whether from → to is a legal edge: a no-op, the
// direct successor, or the one allowed skip (witness_exam → closings over
// evidence_reveal). final_ruling is terminal.
func CanTransition(from, to models.Phase) bool {
	if from == to {
		return true
	}
	if NextPhase(from) == to {
		return true
	}
	return from == models.PhaseWitnessExam && to == models.PhaseClosings
}

// IsVotePhase reports whether p is one of the two poll phases.
func IsVotePhase(p models.Phase) bool {
	return p == models.PhaseVerdictVote || p == models.PhaseSentenceVote
}
