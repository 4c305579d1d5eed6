package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/courtlive/courtd/pkg/events"
	"github.com/courtlive/courtd/pkg/models"
	"github.com/courtlive/courtd/pkg/moderation"
)

// memoryRecord holds one session's state behind its own write lock, so the
// phase-graph check and tally increments are atomic with event emission
// while sessions stay independent of each other.
type memoryRecord struct {
	mu    sync.Mutex
	sess  *models.Session
	turns []*models.Turn
}

// MemoryStore is the in-memory backend, used for tests and for running
// without a DATABASE_URL.
type MemoryStore struct {
	mu        sync.RWMutex
	records   map[string]*memoryRecord
	order     []string
	bus       *events.Bus
	moderator *moderation.Moderator
	now       func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemory creates an in-memory store with its own event bus.
func NewMemory(moderator *moderation.Moderator) *MemoryStore {
	return &MemoryStore{
		records:   make(map[string]*memoryRecord),
		bus:       events.NewBus(),
		moderator: moderator,
		now:       time.Now,
	}
}

// CreateSession implements Store.
func (s *MemoryStore) CreateSession(_ context.Context, in CreateSessionInput) (*models.Session, error) {
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
		CreatedAt:     s.now(),
	}

	evt, err := events.New(sess.ID, events.TypeSessionCreated,
		events.SessionCreatedPayload(sess.Clone()))
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.records[sess.ID] = &memoryRecord{sess: sess}
	s.order = append(s.order, sess.ID)
	s.mu.Unlock()

	s.bus.Publish(evt)
	return sess.Clone(), nil
}

// StartSession implements Store.
func (s *MemoryStore) StartSession(_ context.Context, id string) (*models.Session, error) {
	rec, err := s.record(id)
	if err != nil {
		return nil, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.sess.Status == models.StatusRunning {
		return rec.sess.Clone(), nil
	}
	if rec.sess.Status != models.StatusPending {
		return nil, fmt.Errorf("cannot start session %s in status %s", id, rec.sess.Status)
	}

	started := s.now()
	next := rec.sess.Clone()
	next.Status = models.StatusRunning
	next.StartedAt = &started

	evt, err := events.New(id, events.TypeSessionStarted,
		events.SessionStartedPayload(next.Clone()))
	if err != nil {
		return nil, err
	}

	rec.sess = next
	s.bus.Publish(evt)
	return next.Clone(), nil
}

// SetPhase implements Store.
func (s *MemoryStore) SetPhase(_ context.Context, id string, target models.Phase, durationMs int) (*models.Session, error) {
	if !ValidPhase(target) {
		return nil, NewValidationError(CodeInvalidPhase, "unknown phase %q", target)
	}

	rec, err := s.record(id)
	if err != nil {
		return nil, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	previous := rec.sess.Phase
	if previous == target {
		return rec.sess.Clone(), nil
	}
	if !CanTransition(previous, target) {
		return nil, NewValidationError(CodeInvalidPhaseTransition,
			"Invalid phase transition: %s -> %s", previous, target)
	}

	next := rec.sess.Clone()
	next.Phase = target

	batch := make([]models.Event, 0, 4)
	appendEvent := func(eventType string, payload map[string]any) error {
		evt, evtErr := events.New(id, eventType, payload)
		if evtErr != nil {
			return evtErr
		}
		batch = append(batch, evt)
		return nil
	}

	if err := appendEvent(events.TypePhaseChanged,
		events.PhaseChangedPayload(previous, target, durationMs)); err != nil {
		return nil, err
	}

	// Leaving a vote phase freezes the live tally into a snapshot.
	if IsVotePhase(previous) {
		poll := models.VoteTypeForPhase(previous)
		snapshot := &models.VoteSnapshot{
			ClosedAt: s.now(),
			Votes:    next.Tally(poll).Counts(),
		}
		next.Metadata.VoteSnapshots[poll] = snapshot
		if err := appendEvent(events.TypeVoteClosed,
			events.VoteClosedPayload(poll, snapshot.ClosedAt, snapshot.Votes, target)); err != nil {
			return nil, err
		}
		if err := appendEvent(events.TypeAnalytics,
			events.AnalyticsPayload(events.AnalyticsPollClosed,
				map[string]any{"pollType": poll, "phase": target})); err != nil {
			return nil, err
		}
	}

	if IsVotePhase(target) {
		poll := models.VoteTypeForPhase(target)
		if err := appendEvent(events.TypeAnalytics,
			events.AnalyticsPayload(events.AnalyticsPollStarted,
				map[string]any{"pollType": poll, "phase": target})); err != nil {
			return nil, err
		}
	}

	rec.sess = next
	for _, evt := range batch {
		s.bus.Publish(evt)
	}
	return next.Clone(), nil
}

// AddTurn implements Store.
func (s *MemoryStore) AddTurn(_ context.Context, in AddTurnInput) (*models.Turn, error) {
	rec, err := s.record(in.SessionID)
	if err != nil {
		return nil, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.sess.Status.IsTerminal() {
		return nil, fmt.Errorf("session %s no longer accepts turns", in.SessionID)
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

	turn := &models.Turn{
		ID:         uuid.New().String(),
		SessionID:  in.SessionID,
		TurnNumber: len(rec.turns),
		Speaker:    in.Speaker,
		Role:       in.Role,
		Phase:      in.Phase,
		Dialogue:   dialogue,
		CreatedAt:  s.now(),
		Moderation: note,
	}

	batch := make([]models.Event, 0, 2)
	evt, err := events.New(in.SessionID, events.TypeTurn, events.TurnPayload(turn.Clone()))
	if err != nil {
		return nil, err
	}
	batch = append(batch, evt)

	if flagged {
		modEvt, modErr := events.New(in.SessionID, events.TypeModerationAction,
			events.ModerationActionPayload(turn.ID, turn.Speaker, note.Reasons, turn.Phase))
		if modErr != nil {
			return nil, modErr
		}
		batch = append(batch, modEvt)
	}

	rec.turns = append(rec.turns, turn)
	rec.sess.TurnIDs = append(rec.sess.TurnIDs, turn.ID)

	for _, e := range batch {
		s.bus.Publish(e)
	}
	return turn.Clone(), nil
}

// CastVote implements Store.
func (s *MemoryStore) CastVote(_ context.Context, in CastVoteInput) (*models.Session, error) {
	if in.VoteType != models.VoteTypeVerdict && in.VoteType != models.VoteTypeSentence {
		return nil, NewValidationError(CodeInvalidVoteType, "unknown vote type %q", in.VoteType)
	}
	if strings.TrimSpace(in.Choice) == "" {
		return nil, NewValidationError(CodeMissingVoteChoice, "vote choice is required")
	}

	rec, err := s.record(in.SessionID)
	if err != nil {
		return nil, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.sess.FinalRuling != nil || rec.sess.Status.IsTerminal() {
		return nil, NewValidationError(CodeVoteRejected, "session no longer accepts votes")
	}
	if rec.sess.Phase != in.VoteType.Phase() {
		return nil, NewValidationError(CodeVoteRejected,
			"%s votes are not accepted during phase %s", in.VoteType, rec.sess.Phase)
	}
	if !contains(rec.sess.AllowedChoices(in.VoteType), in.Choice) {
		return nil, NewValidationError(CodeVoteRejected,
			"choice %q is not a legal %s option", in.Choice, in.VoteType)
	}

	next := rec.sess.Clone()
	next.Tally(in.VoteType).Increment(in.Choice)

	batch := make([]models.Event, 0, 2)
	voteEvt, err := events.New(in.SessionID, events.TypeVoteUpdated,
		events.VoteUpdatedPayload(in.VoteType, in.Choice,
			next.VerdictVotes.Counts(), next.SentenceVotes.Counts()))
	if err != nil {
		return nil, err
	}
	batch = append(batch, voteEvt)

	analyticsEvt, err := events.New(in.SessionID, events.TypeAnalytics,
		events.AnalyticsPayload(events.AnalyticsVoteCompleted,
			map[string]any{"pollType": in.VoteType, "choice": in.Choice}))
	if err != nil {
		return nil, err
	}
	batch = append(batch, analyticsEvt)

	rec.sess = next
	for _, e := range batch {
		s.bus.Publish(e)
	}
	return next.Clone(), nil
}

// RecordRecap implements Store.
func (s *MemoryStore) RecordRecap(_ context.Context, in RecordRecapInput) error {
	rec, err := s.record(in.SessionID)
	if err != nil {
		return err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	turn := rec.findTurn(in.TurnID)
	if turn == nil {
		return fmt.Errorf("recap turn %s not found in session %s", in.TurnID, in.SessionID)
	}
	if turn.Role != models.RoleJudge {
		return fmt.Errorf("recap turn %s has role %s, want judge", in.TurnID, turn.Role)
	}

	evt, err := events.New(in.SessionID, events.TypeJudgeRecapEmitted,
		events.JudgeRecapPayload(in.TurnID, in.Phase, in.CycleNumber))
	if err != nil {
		return err
	}

	if !contains(rec.sess.RecapTurnIDs, in.TurnID) {
		rec.sess.RecapTurnIDs = append(rec.sess.RecapTurnIDs, in.TurnID)
	}
	s.bus.Publish(evt)
	return nil
}

// RecordFinalRuling implements Store. Deliberately emits no event and does
// not complete the session; the orchestrator announces the ruling through
// the final judge turn and calls CompleteSession itself.
func (s *MemoryStore) RecordFinalRuling(_ context.Context, id, verdict, sentence string) error {
	rec, err := s.record(id)
	if err != nil {
		return err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.sess.FinalRuling != nil {
		return fmt.Errorf("final ruling already recorded for session %s", id)
	}
	rec.sess.FinalRuling = &models.FinalRuling{
		Verdict:   verdict,
		Sentence:  sentence,
		DecidedAt: s.now(),
	}
	return nil
}

// CompleteSession implements Store.
func (s *MemoryStore) CompleteSession(_ context.Context, id string) error {
	return s.finish(id, models.StatusCompleted, "")
}

// FailSession implements Store.
func (s *MemoryStore) FailSession(_ context.Context, id, reason string) error {
	return s.finish(id, models.StatusFailed, reason)
}

func (s *MemoryStore) finish(id string, target models.Status, reason string) error {
	rec, err := s.record(id)
	if err != nil {
		return err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.sess.Status == target {
		return nil
	}
	if rec.sess.Status.IsTerminal() {
		return fmt.Errorf("%w: %s is already %s", ErrTerminalConflict, id, rec.sess.Status)
	}

	completed := s.now()
	next := rec.sess.Clone()
	next.Status = target
	next.CompletedAt = &completed

	var evt models.Event
	if target == models.StatusCompleted {
		evt, err = events.New(id, events.TypeSessionCompleted,
			events.SessionCompletedPayload(next.Clone()))
	} else {
		next.FailureReason = reason
		evt, err = events.New(id, events.TypeSessionFailed,
			events.SessionFailedPayload(reason))
	}
	if err != nil {
		return err
	}

	rec.sess = next
	s.bus.Publish(evt)
	return nil
}

// GetSession implements Store.
func (s *MemoryStore) GetSession(_ context.Context, id string) (*models.Session, error) {
	rec, err := s.record(id)
	if err != nil {
		return nil, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.sess.Clone(), nil
}

// ListTurns implements Store.
func (s *MemoryStore) ListTurns(_ context.Context, sessionID string) ([]*models.Turn, error) {
	rec, err := s.record(sessionID)
	if err != nil {
		return nil, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	out := make([]*models.Turn, len(rec.turns))
	for i, t := range rec.turns {
		out[i] = t.Clone()
	}
	return out, nil
}

// ListSessions implements Store.
func (s *MemoryStore) ListSessions(_ context.Context) ([]*models.Session, error) {
	s.mu.RLock()
	ids := append([]string(nil), s.order...)
	s.mu.RUnlock()

	out := make([]*models.Session, 0, len(ids))
	for _, id := range ids {
		if sess, err := s.GetSession(context.Background(), id); err == nil {
			out = append(out, sess)
		}
	}
	return out, nil
}

// RecoverInterruptedSessions implements Store.
func (s *MemoryStore) RecoverInterruptedSessions(ctx context.Context) ([]string, error) {
	sessions, err := s.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, sess := range sessions {
		if sess.Status == models.StatusRunning {
			ids = append(ids, sess.ID)
		}
	}
	return ids, nil
}

// Subscribe implements Store.
func (s *MemoryStore) Subscribe(sessionID string, handler events.Handler) func() {
	return s.bus.Subscribe(sessionID, handler)
}

// EmitEvent implements Store.
func (s *MemoryStore) EmitEvent(_ context.Context, sessionID, eventType string, payload map[string]any) error {
	if _, err := s.record(sessionID); err != nil {
		return err
	}
	evt, err := events.New(sessionID, eventType, payload)
	if err != nil {
		return err
	}
	s.bus.Publish(evt)
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.bus.Close()
	return nil
}

func (s *MemoryStore) record(id string) (*memoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, nil
}

// findTurn locates a turn by id. Caller holds rec.mu.
func (rec *memoryRecord) findTurn(id string) *models.Turn {
	for _, t := range rec.turns {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
