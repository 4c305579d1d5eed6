package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtlive/courtd/pkg/models"
)

func TestValidateUnknownType(t *testing.T) {
	err := Validate("session_exploded", map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown event type")
}

func TestValidateMissingField(t *testing.T) {
	err := Validate(TypeVoteUpdated, map[string]any{"voteType": "verdict"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing payload field")
}

func TestValidateCompletePayload(t *testing.T) {
	payload := VoteUpdatedPayload(models.VoteTypeVerdict, "guilty",
		map[string]int{"guilty": 1}, map[string]int{})
	assert.NoError(t, Validate(TypeVoteUpdated, payload))
}

// Every payload constructor must satisfy its own type's schema. The
// contract that keeps the catalog closed.
func TestConstructorsSatisfySchemas(t *testing.T) {
	sess := &models.Session{ID: "s1"}
	turn := &models.Turn{ID: "t1", SessionID: "s1"}

	cases := map[string]map[string]any{
		TypeSessionCreated:        SessionCreatedPayload(sess),
		TypeSessionStarted:        SessionStartedPayload(sess),
		TypePhaseChanged:          PhaseChangedPayload(models.PhaseCasePrompt, models.PhaseOpenings, 30_000),
		TypeTurn:                  TurnPayload(turn),
		TypeVoteUpdated:           VoteUpdatedPayload(models.VoteTypeVerdict, "guilty", map[string]int{}, map[string]int{}),
		TypeVoteClosed:            VoteClosedPayload(models.VoteTypeVerdict, turn.CreatedAt, map[string]int{}, models.PhaseSentenceVote),
		TypeWitnessResponseCapped: WitnessResponseCappedPayload("witness-1", "tokens", 400, 160),
		TypeJudgeRecapEmitted:     JudgeRecapPayload("t1", models.PhaseWitnessExam, 2),
		TypeAnalytics:             AnalyticsPayload(AnalyticsPollStarted, map[string]any{"pollType": "verdict"}),
		TypeModerationAction:      ModerationActionPayload("t1", "witness-1", []string{"slur"}, models.PhaseWitnessExam),
		TypeVoteSpamBlocked:       VoteSpamBlockedPayload("verdict", "duplicate_vote", 1500),
		TypeSessionCompleted:      SessionCompletedPayload(sess),
		TypeSessionFailed:         SessionFailedPayload("interrupted"),
	}

	// The closed set and the constructor table must cover each other.
	require.Len(t, cases, len(Types()))
	for eventType, payload := range cases {
		assert.NoError(t, Validate(eventType, payload), "type %s", eventType)
	}
}

func TestNewAssignsIdentityAndTimestamp(t *testing.T) {
	evt, err := New("s1", TypeSessionFailed, SessionFailedPayload("boom"))
	require.NoError(t, err)
	assert.NotEmpty(t, evt.ID)
	assert.Equal(t, "s1", evt.SessionID)
	assert.False(t, evt.At.IsZero())
}

func TestNewRejectsInvalidPayload(t *testing.T) {
	_, err := New("s1", TypeSessionFailed, map[string]any{})
	assert.Error(t, err)
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(TypeSessionCompleted))
	assert.True(t, IsTerminal(TypeSessionFailed))
	assert.False(t, IsTerminal(TypeTurn))
}
