package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/courtlive/courtd/pkg/database"
	"github.com/courtlive/courtd/pkg/events"
	"github.com/courtlive/courtd/pkg/models"
	"github.com/courtlive/courtd/pkg/moderation"
)

// newPostgresStore creates a store backed by a real PostgreSQL with
// CI/local environment detection. In CI (when CI_DATABASE_URL is set):
// connects to an external PostgreSQL service container. In local dev: spins
// up a testcontainer.
func newPostgresStore(t *testing.T) *PostgresStore {
	if testing.Short() {
		t.Skip("skipping postgres-backed store test in short mode")
	}
	ctx := context.Background()

	connStr := os.Getenv("CI_DATABASE_URL")
	if connStr == "" {
		t.Log("Using testcontainers for PostgreSQL")
		pgContainer, err := postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("test"),
			postgres.WithUsername("test"),
			postgres.WithPassword("test"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second)),
		)
		require.NoError(t, err)

		t.Cleanup(func() {
			if err := testcontainers.TerminateContainer(pgContainer); err != nil {
				t.Logf("failed to terminate container: %v", err)
			}
		})

		connStr, err = pgContainer.ConnectionString(ctx, "sslmode=disable")
		require.NoError(t, err)
	} else {
		t.Log("Using external PostgreSQL from CI_DATABASE_URL")
	}

	client, err := database.NewClient(ctx, database.Config{
		DSN:             connStr,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
	})
	require.NoError(t, err)

	s := NewPostgres(client, moderation.New())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func createPostgresSession(t *testing.T, s *PostgresStore) *models.Session {
	t.Helper()
	sess, err := s.CreateSession(context.Background(), CreateSessionInput{
		Topic:    "The defendant allegedly replaced the courthouse coffee with decaf",
		CaseType: models.CaseTypeCivil,
		Roles: models.RoleAssignments{
			Judge:      "judge-stern",
			Prosecutor: "pros-hardline",
			Defense:    "def-theatrical",
			Bailiff:    "bailiff-dry",
			Witnesses:  []string{"wit-barista"},
		},
		Metadata: models.Metadata{
			VerdictVoteWindowMs:  30000,
			SentenceVoteWindowMs: 20000,
			SentenceOptions:      []string{"refund", "apology"},
		},
	})
	require.NoError(t, err)
	return sess
}

func TestPostgresSessionLifecycle(t *testing.T) {
	s := newPostgresStore(t)
	ctx := context.Background()

	sess := createPostgresSession(t, s)
	assert.Equal(t, models.StatusPending, sess.Status)
	assert.Equal(t, models.PhaseCasePrompt, sess.Phase)

	loaded, err := s.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.Topic, loaded.Topic)
	assert.Equal(t, models.CaseTypeCivil, loaded.CaseType)
	assert.Equal(t, []string{"refund", "apology"}, loaded.Metadata.SentenceOptions)

	started, err := s.StartSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRunning, started.Status)
	require.NotNil(t, started.StartedAt)

	// Idempotent restart.
	_, err = s.StartSession(ctx, sess.ID)
	require.NoError(t, err)

	require.NoError(t, s.CompleteSession(ctx, sess.ID))
	require.NoError(t, s.CompleteSession(ctx, sess.ID))
	err = s.FailSession(ctx, sess.ID, "late")
	assert.True(t, errors.Is(err, ErrTerminalConflict))

	final, err := s.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, final.Status)
	require.NotNil(t, final.CompletedAt)
}

func TestPostgresPhaseAndVotesRoundTrip(t *testing.T) {
	s := newPostgresStore(t)
	ctx := context.Background()
	sess := createPostgresSession(t, s)

	for _, target := range []models.Phase{
		models.PhaseOpenings, models.PhaseWitnessExam,
		models.PhaseClosings, models.PhaseVerdictVote,
	} {
		_, err := s.SetPhase(ctx, sess.ID, target, 0)
		require.NoError(t, err)
	}

	_, err := s.SetPhase(ctx, sess.ID, models.PhaseFinalRuling, 0)
	verr, ok := AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, CodeInvalidPhaseTransition, verr.Code)

	for i := 0; i < 2; i++ {
		_, err := s.CastVote(ctx, CastVoteInput{
			SessionID: sess.ID, VoteType: models.VoteTypeVerdict, Choice: "liable",
		})
		require.NoError(t, err)
	}
	_, err = s.CastVote(ctx, CastVoteInput{
		SessionID: sess.ID, VoteType: models.VoteTypeVerdict, Choice: "guilty",
	})
	verr, ok = AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, CodeVoteRejected, verr.Code)

	got, err := s.SetPhase(ctx, sess.ID, models.PhaseSentenceVote, 20000)
	require.NoError(t, err)
	snap := got.Metadata.VoteSnapshots[models.VoteTypeVerdict]
	require.NotNil(t, snap)
	assert.Equal(t, map[string]int{"liable": 2}, snap.Votes)

	// The snapshot and tally survive a reload from the database.
	loaded, err := s.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.VerdictVotes.Get("liable"))
	require.NotNil(t, loaded.Metadata.VoteSnapshots[models.VoteTypeVerdict])
	assert.Equal(t, map[string]int{"liable": 2},
		loaded.Metadata.VoteSnapshots[models.VoteTypeVerdict].Votes)
}

func TestPostgresTurnsAndEvents(t *testing.T) {
	s := newPostgresStore(t)
	ctx := context.Background()
	sess := createPostgresSession(t, s)

	var got []models.Event
	done := make(chan struct{})
	unsub := s.Subscribe(sess.ID, func(evt models.Event) {
		got = append(got, evt)
		if len(got) == 2 {
			close(done)
		}
	})
	defer unsub()

	mod := moderation.New().Moderate("I will kill them, your honor")
	require.True(t, mod.Flagged)

	turn, err := s.AddTurn(ctx, AddTurnInput{
		SessionID:  sess.ID,
		Speaker:    "Prosecutor Hardline",
		Role:       models.RoleProsecutor,
		Phase:      models.PhaseCasePrompt,
		Dialogue:   "I will kill them, your honor",
		Moderation: &mod,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, turn.TurnNumber)
	assert.Equal(t, moderation.RedactionPlaceholder, turn.Dialogue)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for turn events")
	}
	assert.Equal(t, events.TypeTurn, got[0].Type)
	assert.Equal(t, events.TypeModerationAction, got[1].Type)

	turns, err := s.ListTurns(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	require.NotNil(t, turns[0].Moderation)
	assert.Equal(t, mod.Reasons, turns[0].Moderation.Reasons)
}

func TestPostgresRecoverInterruptedSessions(t *testing.T) {
	s := newPostgresStore(t)
	ctx := context.Background()

	running := createPostgresSession(t, s)
	_, err := s.StartSession(ctx, running.ID)
	require.NoError(t, err)

	finished := createPostgresSession(t, s)
	_, err = s.StartSession(ctx, finished.ID)
	require.NoError(t, err)
	require.NoError(t, s.FailSession(ctx, finished.ID, "interrupted"))

	ids, err := s.RecoverInterruptedSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{running.ID}, ids)
}

func TestPostgresFinalRulingRoundTrip(t *testing.T) {
	s := newPostgresStore(t)
	ctx := context.Background()
	sess := createPostgresSession(t, s)

	require.NoError(t, s.RecordFinalRuling(ctx, sess.ID, "liable", "refund"))
	assert.Error(t, s.RecordFinalRuling(ctx, sess.ID, "not_liable", "refund"))

	loaded, err := s.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.FinalRuling)
	assert.Equal(t, "liable", loaded.FinalRuling.Verdict)
	assert.Equal(t, "refund", loaded.FinalRuling.Sentence)
	assert.False(t, loaded.Status.IsTerminal())
}

func TestPostgresRulingTurnAfterFinalRuling(t *testing.T) {
	s := newPostgresStore(t)
	ctx := context.Background()
	sess := createPostgresSession(t, s)

	require.NoError(t, s.RecordFinalRuling(ctx, sess.ID, "liable", "refund"))

	turn, err := s.AddTurn(ctx, AddTurnInput{
		SessionID: sess.ID,
		Speaker:   "judge-stern",
		Role:      models.RoleJudge,
		Phase:     models.PhaseFinalRuling,
		Dialogue:  "This court finds the defendant liable.",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, turn.TurnNumber)

	require.NoError(t, s.CompleteSession(ctx, sess.ID))
	_, err = s.AddTurn(ctx, AddTurnInput{
		SessionID: sess.ID,
		Speaker:   "judge-stern",
		Role:      models.RoleJudge,
		Phase:     models.PhaseFinalRuling,
		Dialogue:  "One more thing.",
	})
	assert.Error(t, err)
}

func TestPostgresHealthSessionCensus(t *testing.T) {
	s := newPostgresStore(t)
	ctx := context.Background()

	created := createPostgresSession(t, s)
	running := createPostgresSession(t, s)
	_, err := s.StartSession(ctx, running.ID)
	require.NoError(t, err)

	health, err := database.Health(ctx, s.client.DB())
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.Status)
	assert.GreaterOrEqual(t, health.SessionsByStatus[string(models.StatusPending)], 1, created.ID)
	assert.GreaterOrEqual(t, health.SessionsByStatus[string(models.StatusRunning)], 1)
	assert.GreaterOrEqual(t, health.SessionsTotal, 2)
}
