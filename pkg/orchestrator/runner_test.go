package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtlive/courtd/pkg/events"
	"github.com/courtlive/courtd/pkg/models"
	"github.com/courtlive/courtd/pkg/moderation"
	"github.com/courtlive/courtd/pkg/store"
	"github.com/courtlive/courtd/pkg/tts"
)

func newDriveFixture(t *testing.T) (*store.MemoryStore, *models.Session, Deps) {
	t.Helper()
	s := store.NewMemory(moderation.New())
	t.Cleanup(func() { _ = s.Close() })

	sess, err := s.CreateSession(context.Background(), store.CreateSessionInput{
		Topic:    "Did the defendant replace all office coffee with soup?",
		CaseType: models.CaseTypeCriminal,
		Roles: models.RoleAssignments{
			Judge:      "judge-stern",
			Prosecutor: "pros-hardline",
			Defense:    "def-theatrical",
			Bailiff:    "bailiff-dry",
			Witnesses:  []string{"wit-janitor"},
		},
		Metadata: models.Metadata{
			VerdictVoteWindowMs:  50,
			SentenceVoteWindowMs: 50,
			SentenceOptions:      []string{"Fine", "Community Service"},
		},
	})
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.RecapCadence = 1

	deps := Deps{
		Store:  s,
		LLM:    &scriptedGenerator{replies: []string{"The court proceeds in an orderly fashion."}},
		TTS:    tts.NewMockSpeaker(),
		Sleep:  func(context.Context, time.Duration) error { return nil },
		Rng:    testRng(42),
		Config: cfg,
	}
	return s, sess, deps
}

func TestRunDrivesSessionToCompletion(t *testing.T) {
	s, sess, deps := newDriveFixture(t)
	ctx := context.Background()

	var mu sync.Mutex
	var collected []models.Event
	unsub := s.Subscribe(sess.ID, func(evt models.Event) {
		mu.Lock()
		defer mu.Unlock()
		collected = append(collected, evt)
	})
	defer unsub()

	require.NoError(t, Run(ctx, deps, sess.ID))

	final, err := s.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, final.Status)
	assert.Equal(t, models.PhaseFinalRuling, final.Phase)

	// No votes were cast, so both winners come from the first legal choice.
	require.NotNil(t, final.FinalRuling)
	assert.Equal(t, "guilty", final.FinalRuling.Verdict)
	assert.Equal(t, "Fine", final.FinalRuling.Sentence)

	// Both polls were opened and frozen.
	require.NotNil(t, final.Metadata.VoteSnapshots[models.VoteTypeVerdict])
	require.NotNil(t, final.Metadata.VoteSnapshots[models.VoteTypeSentence])

	// Recap cadence of 1 with one witness records one recap.
	assert.Len(t, final.RecapTurnIDs, 1)

	turns, err := s.ListTurns(ctx, sess.ID)
	require.NoError(t, err)
	for i, turn := range turns {
		assert.Equal(t, i, turn.TurnNumber)
	}

	// The final judge turn names both winners.
	last := turns[len(turns)-1]
	assert.Equal(t, models.RoleJudge, last.Role)
	assert.Contains(t, last.Dialogue, "guilty")
	assert.Contains(t, last.Dialogue, "Fine")

	// Event-stream shape: exactly one terminal event, after the ruling
	// turn, and exactly two poll_started analytics events.
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(collected) > 0 &&
			collected[len(collected)-1].Type == events.TypeSessionCompleted
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	completedCount, pollStarted := 0, 0
	for _, evt := range collected {
		switch evt.Type {
		case events.TypeSessionCompleted:
			completedCount++
		case events.TypeAnalytics:
			if evt.Payload["name"] == events.AnalyticsPollStarted {
				pollStarted++
			}
		}
	}
	assert.Equal(t, 1, completedCount)
	assert.Equal(t, 2, pollStarted)
}

func TestRunSpeaksEveryTurn(t *testing.T) {
	s, sess, deps := newDriveFixture(t)
	speaker := tts.NewMockSpeaker()
	deps.TTS = speaker

	require.NoError(t, Run(context.Background(), deps, sess.ID))

	turns, err := s.ListTurns(context.Background(), sess.ID)
	require.NoError(t, err)
	// Turns plus phase cues and the verdict announcement.
	assert.GreaterOrEqual(t, len(speaker.Utterances()), len(turns))
}

func TestRunSurvivesTTSFailures(t *testing.T) {
	s, sess, deps := newDriveFixture(t)
	speaker := tts.NewMockSpeaker()
	speaker.FailWith(assert.AnError)
	deps.TTS = speaker

	require.NoError(t, Run(context.Background(), deps, sess.ID))

	final, err := s.GetSession(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, final.Status)
}

func TestRunFailsWhenSessionCannotStart(t *testing.T) {
	s, sess, deps := newDriveFixture(t)
	require.NoError(t, s.CompleteSession(context.Background(), sess.ID))

	err := Run(context.Background(), deps, sess.ID)
	assert.Error(t, err)

	final, getErr := s.GetSession(context.Background(), sess.ID)
	require.NoError(t, getErr)
	assert.Equal(t, models.StatusCompleted, final.Status)
}

func TestRunCancelledMidDriveDoesNotFailSession(t *testing.T) {
	s, sess, deps := newDriveFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	deps.Sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	err := Run(ctx, deps, sess.ID)
	assert.Error(t, err)

	final, getErr := s.GetSession(context.Background(), sess.ID)
	require.NoError(t, getErr)
	assert.Equal(t, models.StatusRunning, final.Status)
}

func TestWitnessCapEmitsEventDuringDrive(t *testing.T) {
	s, sess, deps := newDriveFixture(t)
	deps.LLM = &scriptedGenerator{replies: []string{words(500)}}
	deps.Config.WitnessCap = WitnessCapConfig{
		MaxTokens: 10, MaxSeconds: 60, TokensPerSecond: 3, TruncationMarker: "[cut]",
	}

	var mu sync.Mutex
	capped := 0
	unsub := s.Subscribe(sess.ID, func(evt models.Event) {
		mu.Lock()
		defer mu.Unlock()
		if evt.Type == events.TypeWitnessResponseCapped {
			capped++
		}
	})
	defer unsub()

	require.NoError(t, Run(context.Background(), deps, sess.ID))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return capped == 1
	}, 2*time.Second, 10*time.Millisecond)

	turns, err := s.ListTurns(context.Background(), sess.ID)
	require.NoError(t, err)
	var witnessTurn *models.Turn
	for _, turn := range turns {
		if turn.Role == models.RoleWitness {
			witnessTurn = turn
			break
		}
	}
	require.NotNil(t, witnessTurn)
	assert.Contains(t, witnessTurn.Dialogue, "[cut]")
}

func TestEventSpeakerWitnessSelection(t *testing.T) {
	r := &runner{
		deps: Deps{Rng: testRng(7)},
		roles: models.RoleAssignments{
			Witnesses: []string{"wit-earnest", "wit-shifty"},
		},
		speakCounts: map[string]int{},
	}
	ev := &RandomEvent{Name: "witness_outburst", Role: models.RoleWitness}

	// Nobody has testified yet: the witness about to take the stand speaks.
	assert.Equal(t, "wit-shifty", r.eventSpeaker(ev, "wit-shifty"))

	// Once a witness has spoken, the recency-weighted pick excludes the
	// last speaker.
	r.speakCounts["wit-shifty"] = 3
	r.totalTurns = 6
	r.lastSpeaker = "wit-shifty"
	for i := 0; i < 20; i++ {
		assert.Equal(t, "wit-earnest", r.eventSpeaker(ev, "wit-shifty"))
	}
}

func TestRuntimeLaunchAndStop(t *testing.T) {
	s, sess, deps := newDriveFixture(t)
	rt := NewRuntime(deps)

	require.NoError(t, rt.Launch(context.Background(), sess.ID))
	require.Error(t, rt.Launch(context.Background(), sess.ID), "double launch must fail")

	require.Eventually(t, func() bool {
		got, err := s.GetSession(context.Background(), sess.ID)
		return err == nil && got.Status == models.StatusCompleted
	}, 5*time.Second, 10*time.Millisecond)

	rt.Stop()
	assert.Equal(t, 0, rt.ActiveCount())
	assert.Error(t, rt.Launch(context.Background(), sess.ID))
	assert.False(t, rt.CancelSession(sess.ID))
}
