package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/courtlive/courtd/pkg/database"
	"github.com/courtlive/courtd/pkg/events"
	"github.com/courtlive/courtd/pkg/models"
	"github.com/courtlive/courtd/pkg/moderation"
)

// PostgresStore is the relational backend. Every mutator runs in a
// transaction that locks the session row (SELECT ... FOR UPDATE), applies
// the same validation as the in-memory backend, and publishes events only
// after a successful commit.
type PostgresStore struct {
	client    *database.Client
	bus       *events.Bus
	moderator *moderation.Moderator
	now       func() time.Time
}

var _ Store = (*PostgresStore)(nil)

// NewPostgres wraps an open database client.
func NewPostgres(client *database.Client, moderator *moderation.Moderator) *PostgresStore {
	return &PostgresStore{
		client:    client,
		bus:       events.NewBus(),
		moderator: moderator,
		now:       time.Now,
	}
}

const sessionColumns = `id, topic, case_type, status, phase, roles, metadata,
	verdict_votes, sentence_votes, recap_turn_ids, final_ruling,
	failure_reason, created_at, started_at, completed_at`

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var (
		sess          models.Session
		rolesJSON     []byte
		metadataJSON  []byte
		verdictJSON   []byte
		sentenceJSON  []byte
		recapsJSON    []byte
		rulingJSON    []byte
		failureReason sql.NullString
		startedAt     sql.NullTime
		completedAt   sql.NullTime
	)
	err := row.Scan(&sess.ID, &sess.Topic, &sess.CaseType, &sess.Status,
		&sess.Phase, &rolesJSON, &metadataJSON, &verdictJSON, &sentenceJSON,
		&recapsJSON, &rulingJSON, &failureReason, &sess.CreatedAt,
		&startedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(rolesJSON, &sess.Roles); err != nil {
		return nil, fmt.Errorf("failed to decode roles: %w", err)
	}
	if err := json.Unmarshal(metadataJSON, &sess.Metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	if sess.Metadata.VoteSnapshots == nil {
		sess.Metadata.VoteSnapshots = make(map[models.VoteType]*models.VoteSnapshot)
	}

	var verdictPairs, sentencePairs []models.TallyPair
	if err := json.Unmarshal(verdictJSON, &verdictPairs); err != nil {
		return nil, fmt.Errorf("failed to decode verdict votes: %w", err)
	}
	if err := json.Unmarshal(sentenceJSON, &sentencePairs); err != nil {
		return nil, fmt.Errorf("failed to decode sentence votes: %w", err)
	}
	sess.VerdictVotes = models.TallyFromPairs(verdictPairs)
	sess.SentenceVotes = models.TallyFromPairs(sentencePairs)

	if err := json.Unmarshal(recapsJSON, &sess.RecapTurnIDs); err != nil {
		return nil, fmt.Errorf("failed to decode recap turn ids: %w", err)
	}
	if len(rulingJSON) > 0 && string(rulingJSON) != "null" {
		sess.FinalRuling = &models.FinalRuling{}
		if err := json.Unmarshal(rulingJSON, sess.FinalRuling); err != nil {
			return nil, fmt.Errorf("failed to decode final ruling: %w", err)
		}
	}
	if failureReason.Valid {
		sess.FailureReason = failureReason.String
	}
	if startedAt.Valid {
		t := startedAt.Time
		sess.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		sess.CompletedAt = &t
	}
	return &sess, nil
}

func scanTurn(row rowScanner) (*models.Turn, error) {
	var (
		turn    models.Turn
		modJSON []byte
	)
	err := row.Scan(&turn.ID, &turn.SessionID, &turn.TurnNumber, &turn.Speaker,
		&turn.Role, &turn.Phase, &turn.Dialogue, &modJSON, &turn.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(modJSON) > 0 && string(modJSON) != "null" {
		turn.Moderation = &models.ModerationNote{}
		if err := json.Unmarshal(modJSON, turn.Moderation); err != nil {
			return nil, fmt.Errorf("failed to decode moderation note: %w", err)
		}
	}
	return &turn, nil
}

// lockSession loads the session row FOR UPDATE inside tx.
func lockSession(ctx context.Context, tx *sql.Tx, id string) (*models.Session, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM court_sessions WHERE id = $1 FOR UPDATE`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return sess, err
}

// saveSession writes all mutable columns back inside tx.
func saveSession(ctx context.Context, tx *sql.Tx, sess *models.Session) error {
	rolesJSON, err := json.Marshal(sess.Roles)
	if err != nil {
		return fmt.Errorf("failed to encode roles: %w", err)
	}
	metadataJSON, err := json.Marshal(sess.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	verdictJSON, err := json.Marshal(sess.VerdictVotes.Pairs())
	if err != nil {
		return fmt.Errorf("failed to encode verdict votes: %w", err)
	}
	sentenceJSON, err := json.Marshal(sess.SentenceVotes.Pairs())
	if err != nil {
		return fmt.Errorf("failed to encode sentence votes: %w", err)
	}
	recaps := sess.RecapTurnIDs
	if recaps == nil {
		recaps = []string{}
	}
	recapsJSON, err := json.Marshal(recaps)
	if err != nil {
		return fmt.Errorf("failed to encode recap turn ids: %w", err)
	}
	var rulingJSON any
	if sess.FinalRuling != nil {
		rulingJSON, err = json.Marshal(sess.FinalRuling)
		if err != nil {
			return fmt.Errorf("failed to encode final ruling: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE court_sessions SET
			status = $2, phase = $3, roles = $4, metadata = $5,
			verdict_votes = $6, sentence_votes = $7, recap_turn_ids = $8,
			final_ruling = $9, failure_reason = $10,
			started_at = $11, completed_at = $12
		WHERE id = $1`,
		sess.ID, sess.Status, sess.Phase, rolesJSON, metadataJSON,
		verdictJSON, sentenceJSON, recapsJSON, rulingJSON,
		nullString(sess.FailureReason), sess.StartedAt, sess.CompletedAt)
	return err
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// mutate runs fn under a row lock on the session, persists the session fn
// returns, and publishes fn's events after commit.
func (s *PostgresStore) mutate(ctx context.Context, id string,
	fn func(tx *sql.Tx, sess *models.Session) (*models.Session, []models.Event, error),
) (*models.Session, error) {
	tx, err := s.client.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	sess, err := lockSession(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	next, batch, err := fn(tx, sess)
	if err != nil {
		return nil, err
	}
	if next != nil {
		if err := saveSession(ctx, tx, next); err != nil {
			return nil, err
		}
	} else {
		next = sess
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	for _, evt := range batch {
		s.bus.Publish(evt)
	}
	return next, nil
}

// CreateSession implements Store.
func (s *PostgresStore) CreateSession(ctx context.Context, in CreateSessionInput) (*models.Session, error) {
	topic := strings.TrimSpace(in.Topic)
	if len(topic) < MinTopicLength {
		return nil, NewValidationError(CodeInvalidTopic,
			"topic must be at least %d characters", MinTopicLength)
	}
	if res := s.moderator.Moderate(topic); res.Flagged {
		verr := NewValidationError(CodeTopicRejected, "topic rejected by moderation")
		verr.Reasons = res.Reasons
		return nil, verr
	}

	caseType := in.CaseType
	if caseType == "" {
		caseType = models.CaseTypeCriminal
	}

	meta := in.Metadata.Clone()
	if meta.VoteSnapshots == nil {
		meta.VoteSnapshots = make(map[models.VoteType]*models.VoteSnapshot)
	}

	sess := &models.Session{
		ID:            uuid.New().String(),
		Topic:         topic,
		CaseType:      caseType,
		Status:        models.StatusPending,
		Phase:         models.PhaseCasePrompt,
		Roles:         in.Roles.Clone(),
		Metadata:      meta,
		VerdictVotes:  models.NewTally(),
		SentenceVotes: models.NewTally(),
		CreatedAt:     s.now().UTC(),
	}

	evt, err := events.New(sess.ID, events.TypeSessionCreated,
		events.SessionCreatedPayload(sess.Clone()))
	if err != nil {
		return nil, err
	}

	rolesJSON, err := json.Marshal(sess.Roles)
	if err != nil {
		return nil, fmt.Errorf("failed to encode roles: %w", err)
	}
	metadataJSON, err := json.Marshal(sess.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}

	_, err = s.client.DB().ExecContext(ctx,
		`INSERT INTO court_sessions
			(id, topic, case_type, status, phase, roles, metadata,
			 verdict_votes, sentence_votes, recap_turn_ids, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, '[]'::jsonb, '[]'::jsonb, '[]'::jsonb, $8)`,
		sess.ID, sess.Topic, sess.CaseType, sess.Status, sess.Phase,
		rolesJSON, metadataJSON, sess.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert session: %w", err)
	}

	s.bus.Publish(evt)
	return sess, nil
}

// StartSession implements Store.
func (s *PostgresStore) StartSession(ctx context.Context, id string) (*models.Session, error) {
	return s.mutate(ctx, id, func(_ *sql.Tx, sess *models.Session) (*models.Session, []models.Event, error) {
		if sess.Status == models.StatusRunning {
			return nil, nil, nil
		}
		if sess.Status != models.StatusPending {
			return nil, nil, fmt.Errorf("cannot start session %s in status %s", id, sess.Status)
		}
		started := s.now().UTC()
		sess.Status = models.StatusRunning
		sess.StartedAt = &started

		evt, err := events.New(id, events.TypeSessionStarted,
			events.SessionStartedPayload(sess.Clone()))
		if err != nil {
			return nil, nil, err
		}
		return sess, []models.Event{evt}, nil
	})
}

// SetPhase implements Store.
func (s *PostgresStore) SetPhase(ctx context.Context, id string, target models.Phase, durationMs int) (*models.Session, error) {
	if !ValidPhase(target) {
		return nil, NewValidationError(CodeInvalidPhase, "unknown phase %q", target)
	}
	return s.mutate(ctx, id, func(_ *sql.Tx, sess *models.Session) (*models.Session, []models.Event, error) {
		previous := sess.Phase
		if previous == target {
			return nil, nil, nil
		}
		if !CanTransition(previous, target) {
			return nil, nil, NewValidationError(CodeInvalidPhaseTransition,
				"Invalid phase transition: %s -> %s", previous, target)
		}
		sess.Phase = target

		batch := make([]models.Event, 0, 4)
		appendEvent := func(eventType string, payload map[string]any) error {
			evt, err := events.New(id, eventType, payload)
			if err != nil {
				return err
			}
			batch = append(batch, evt)
			return nil
		}

		if err := appendEvent(events.TypePhaseChanged,
			events.PhaseChangedPayload(previous, target, durationMs)); err != nil {
			return nil, nil, err
		}

		if IsVotePhase(previous) {
			poll := models.VoteTypeForPhase(previous)
			snapshot := &models.VoteSnapshot{
				ClosedAt: s.now().UTC(),
				Votes:    sess.Tally(poll).Counts(),
			}
			sess.Metadata.VoteSnapshots[poll] = snapshot
			if err := appendEvent(events.TypeVoteClosed,
				events.VoteClosedPayload(poll, snapshot.ClosedAt, snapshot.Votes, target)); err != nil {
				return nil, nil, err
			}
			if err := appendEvent(events.TypeAnalytics,
				events.AnalyticsPayload(events.AnalyticsPollClosed,
					map[string]any{"pollType": poll, "phase": target})); err != nil {
				return nil, nil, err
			}
		}

		if IsVotePhase(target) {
			poll := models.VoteTypeForPhase(target)
			if err := appendEvent(events.TypeAnalytics,
				events.AnalyticsPayload(events.AnalyticsPollStarted,
					map[string]any{"pollType": poll, "phase": target})); err != nil {
				return nil, nil, err
			}
		}

		return sess, batch, nil
	})
}

// AddTurn implements Store.
func (s *PostgresStore) AddTurn(ctx context.Context, in AddTurnInput) (*models.Turn, error) {
	var turn *models.Turn
	_, err := s.mutate(ctx, in.SessionID, func(tx *sql.Tx, sess *models.Session) (*models.Session, []models.Event, error) {
		if sess.Status.IsTerminal() {
			return nil, nil, fmt.Errorf("session %s no longer accepts turns", in.SessionID)
		}

		var turnCount int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM court_turns WHERE session_id = $1`, in.SessionID,
		).Scan(&turnCount); err != nil {
			return nil, nil, fmt.Errorf("failed to count turns: %w", err)
		}

		dialogue := in.Dialogue
		var note *models.ModerationNote
		flagged := in.Moderation != nil && in.Moderation.Flagged
		if flagged {
			dialogue = in.Moderation.Sanitized
			note = &models.ModerationNote{
				Reasons: append([]string(nil), in.Moderation.Reasons...),
			}
		}

		turn = &models.Turn{
			ID:         uuid.New().String(),
			SessionID:  in.SessionID,
			TurnNumber: turnCount,
			Speaker:    in.Speaker,
			Role:       in.Role,
			Phase:      in.Phase,
			Dialogue:   dialogue,
			CreatedAt:  s.now().UTC(),
			Moderation: note,
		}

		var modJSON any
		if note != nil {
			encoded, err := json.Marshal(note)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to encode moderation note: %w", err)
			}
			modJSON = encoded
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO court_turns
				(id, session_id, turn_number, speaker, role, phase, dialogue, moderation, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			turn.ID, turn.SessionID, turn.TurnNumber, turn.Speaker, turn.Role,
			turn.Phase, turn.Dialogue, modJSON, turn.CreatedAt)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to insert turn: %w", err)
		}

		batch := make([]models.Event, 0, 2)
		evt, err := events.New(in.SessionID, events.TypeTurn, events.TurnPayload(turn.Clone()))
		if err != nil {
			return nil, nil, err
		}
		batch = append(batch, evt)

		if flagged {
			modEvt, err := events.New(in.SessionID, events.TypeModerationAction,
				events.ModerationActionPayload(turn.ID, turn.Speaker, note.Reasons, turn.Phase))
			if err != nil {
				return nil, nil, err
			}
			batch = append(batch, modEvt)
		}

		sess.TurnIDs = append(sess.TurnIDs, turn.ID)
		return sess, batch, nil
	})
	if err != nil {
		return nil, err
	}
	return turn, nil
}

// CastVote implements Store.
func (s *PostgresStore) CastVote(ctx context.Context, in CastVoteInput) (*models.Session, error) {
	if in.VoteType != models.VoteTypeVerdict && in.VoteType != models.VoteTypeSentence {
		return nil, NewValidationError(CodeInvalidVoteType, "unknown vote type %q", in.VoteType)
	}
	if strings.TrimSpace(in.Choice) == "" {
		return nil, NewValidationError(CodeMissingVoteChoice, "vote choice is required")
	}
	return s.mutate(ctx, in.SessionID, func(_ *sql.Tx, sess *models.Session) (*models.Session, []models.Event, error) {
		if sess.FinalRuling != nil || sess.Status.IsTerminal() {
			return nil, nil, NewValidationError(CodeVoteRejected, "session no longer accepts votes")
		}
		if sess.Phase != in.VoteType.Phase() {
			return nil, nil, NewValidationError(CodeVoteRejected,
				"%s votes are not accepted during phase %s", in.VoteType, sess.Phase)
		}
		if !contains(sess.AllowedChoices(in.VoteType), in.Choice) {
			return nil, nil, NewValidationError(CodeVoteRejected,
				"choice %q is not a legal %s option", in.Choice, in.VoteType)
		}

		sess.Tally(in.VoteType).Increment(in.Choice)

		batch := make([]models.Event, 0, 2)
		voteEvt, err := events.New(in.SessionID, events.TypeVoteUpdated,
			events.VoteUpdatedPayload(in.VoteType, in.Choice,
				sess.VerdictVotes.Counts(), sess.SentenceVotes.Counts()))
		if err != nil {
			return nil, nil, err
		}
		batch = append(batch, voteEvt)

		analyticsEvt, err := events.New(in.SessionID, events.TypeAnalytics,
			events.AnalyticsPayload(events.AnalyticsVoteCompleted,
				map[string]any{"pollType": in.VoteType, "choice": in.Choice}))
		if err != nil {
			return nil, nil, err
		}
		batch = append(batch, analyticsEvt)

		return sess, batch, nil
	})
}

// RecordRecap implements Store.
func (s *PostgresStore) RecordRecap(ctx context.Context, in RecordRecapInput) error {
	_, err := s.mutate(ctx, in.SessionID, func(tx *sql.Tx, sess *models.Session) (*models.Session, []models.Event, error) {
		var role models.Role
		err := tx.QueryRowContext(ctx,
			`SELECT role FROM court_turns WHERE id = $1 AND session_id = $2`,
			in.TurnID, in.SessionID).Scan(&role)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, fmt.Errorf("recap turn %s not found in session %s", in.TurnID, in.SessionID)
		}
		if err != nil {
			return nil, nil, err
		}
		if role != models.RoleJudge {
			return nil, nil, fmt.Errorf("recap turn %s has role %s, want judge", in.TurnID, role)
		}

		evt, err := events.New(in.SessionID, events.TypeJudgeRecapEmitted,
			events.JudgeRecapPayload(in.TurnID, in.Phase, in.CycleNumber))
		if err != nil {
			return nil, nil, err
		}

		if contains(sess.RecapTurnIDs, in.TurnID) {
			return nil, []models.Event{evt}, nil
		}
		sess.RecapTurnIDs = append(sess.RecapTurnIDs, in.TurnID)
		return sess, []models.Event{evt}, nil
	})
	return err
}

// RecordFinalRuling implements Store.
func (s *PostgresStore) RecordFinalRuling(ctx context.Context, id, verdict, sentence string) error {
	_, err := s.mutate(ctx, id, func(_ *sql.Tx, sess *models.Session) (*models.Session, []models.Event, error) {
		if sess.FinalRuling != nil {
			return nil, nil, fmt.Errorf("final ruling already recorded for session %s", id)
		}
		sess.FinalRuling = &models.FinalRuling{
			Verdict:   verdict,
			Sentence:  sentence,
			DecidedAt: s.now().UTC(),
		}
		return sess, nil, nil
	})
	return err
}

// CompleteSession implements Store.
func (s *PostgresStore) CompleteSession(ctx context.Context, id string) error {
	return s.finish(ctx, id, models.StatusCompleted, "")
}

// FailSession implements Store.
func (s *PostgresStore) FailSession(ctx context.Context, id, reason string) error {
	return s.finish(ctx, id, models.StatusFailed, reason)
}

func (s *PostgresStore) finish(ctx context.Context, id string, target models.Status, reason string) error {
	_, err := s.mutate(ctx, id, func(_ *sql.Tx, sess *models.Session) (*models.Session, []models.Event, error) {
		if sess.Status == target {
			return nil, nil, nil
		}
		if sess.Status.IsTerminal() {
			return nil, nil, fmt.Errorf("%w: %s is already %s", ErrTerminalConflict, id, sess.Status)
		}

		completed := s.now().UTC()
		sess.Status = target
		sess.CompletedAt = &completed

		var (
			evt models.Event
			err error
		)
		if target == models.StatusCompleted {
			evt, err = events.New(id, events.TypeSessionCompleted,
				events.SessionCompletedPayload(sess.Clone()))
		} else {
			sess.FailureReason = reason
			evt, err = events.New(id, events.TypeSessionFailed,
				events.SessionFailedPayload(reason))
		}
		if err != nil {
			return nil, nil, err
		}
		return sess, []models.Event{evt}, nil
	})
	return err
}

// GetSession implements Store.
func (s *PostgresStore) GetSession(ctx context.Context, id string) (*models.Session, error) {
	row := s.client.DB().QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM court_sessions WHERE id = $1`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadTurnIDs(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *PostgresStore) loadTurnIDs(ctx context.Context, sess *models.Session) error {
	rows, err := s.client.DB().QueryContext(ctx,
		`SELECT id FROM court_turns WHERE session_id = $1 ORDER BY turn_number`, sess.ID)
	if err != nil {
		return fmt.Errorf("failed to load turn ids: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return err
		}
		sess.TurnIDs = append(sess.TurnIDs, id)
	}
	return rows.Err()
}

// ListTurns implements Store.
func (s *PostgresStore) ListTurns(ctx context.Context, sessionID string) ([]*models.Turn, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	rows, err := s.client.DB().QueryContext(ctx,
		`SELECT id, session_id, turn_number, speaker, role, phase, dialogue, moderation, created_at
		FROM court_turns WHERE session_id = $1 ORDER BY turn_number`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list turns: %w", err)
	}
	defer rows.Close()

	var turns []*models.Turn
	for rows.Next() {
		turn, err := scanTurn(rows)
		if err != nil {
			return nil, err
		}
		turns = append(turns, turn)
	}
	return turns, rows.Err()
}

// ListSessions implements Store.
func (s *PostgresStore) ListSessions(ctx context.Context) ([]*models.Session, error) {
	rows, err := s.client.DB().QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM court_sessions ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// RecoverInterruptedSessions implements Store.
func (s *PostgresStore) RecoverInterruptedSessions(ctx context.Context) ([]string, error) {
	rows, err := s.client.DB().QueryContext(ctx,
		`SELECT id FROM court_sessions WHERE status = $1 ORDER BY created_at`,
		models.StatusRunning)
	if err != nil {
		return nil, fmt.Errorf("failed to query interrupted sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Subscribe implements Store.
func (s *PostgresStore) Subscribe(sessionID string, handler events.Handler) func() {
	return s.bus.Subscribe(sessionID, handler)
}

// EmitEvent implements Store.
func (s *PostgresStore) EmitEvent(ctx context.Context, sessionID, eventType string, payload map[string]any) error {
	var exists bool
	err := s.client.DB().QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM court_sessions WHERE id = $1)`, sessionID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	evt, err := events.New(sessionID, eventType, payload)
	if err != nil {
		return err
	}
	s.bus.Publish(evt)
	return nil
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	s.bus.Close()
	return s.client.Close()
}
