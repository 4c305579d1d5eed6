package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/courtlive/courtd/pkg/events"
	"github.com/courtlive/courtd/pkg/llm"
	"github.com/courtlive/courtd/pkg/models"
	"github.com/courtlive/courtd/pkg/moderation"
	"github.com/courtlive/courtd/pkg/store"
	"github.com/courtlive/courtd/pkg/tts"
)

// Deps bundles everything a session driver needs. Nothing here is a global;
// the process wires exactly one bundle at startup and tests inject fakes.
type Deps struct {
	Store     store.Store
	LLM       llm.Generator
	TTS       tts.Speaker
	Moderator *moderation.Moderator
	Sleep     func(ctx context.Context, d time.Duration) error
	Rng       *rand.Rand
	Config    Config
}

func (d Deps) withDefaults() Deps {
	if d.Sleep == nil {
		d.Sleep = SleepContext
	}
	if d.Rng == nil {
		d.Rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if d.Moderator == nil {
		d.Moderator = moderation.New()
	}
	if d.TTS == nil {
		d.TTS = tts.NoopSpeaker{}
	}
	if d.Config.RecapCadence < 1 {
		d.Config.RecapCadence = 1
	}
	return d
}

// SleepContext sleeps for d or until ctx is cancelled.
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// runner holds the mutable state of one session drive.
type runner struct {
	deps      Deps
	sessionID string
	log       *slog.Logger

	phase       models.Phase
	topic       string
	roles       models.RoleAssignments
	ttsOK       int
	ttsFailed   int
	speakCounts map[string]int
	totalTurns  int
	lastSpeaker string
}

// Run drives one session from start to terminal state. Any error outside
// context cancellation marks the session failed with the error message.
func Run(ctx context.Context, deps Deps, sessionID string) error {
	deps = deps.withDefaults()
	r := &runner{
		deps:        deps,
		sessionID:   sessionID,
		log:         slog.With("session_id", sessionID),
		speakCounts: make(map[string]int),
	}

	err := r.run(ctx)

	r.log.Info("Session drive finished",
		"error", err,
		"tts_success", r.ttsOK,
		"tts_failed", r.ttsFailed,
		"turns", r.totalTurns)

	if err != nil && ctx.Err() == nil {
		if failErr := deps.Store.FailSession(context.Background(), sessionID, err.Error()); failErr != nil {
			r.log.Error("Failed to mark session failed", "error", failErr)
		}
	}
	return err
}

func (r *runner) run(ctx context.Context) error {
	sess, err := r.deps.Store.StartSession(ctx, r.sessionID)
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	r.topic = sess.Topic
	r.roles = sess.Roles
	r.phase = sess.Phase

	if err := r.casePrompt(ctx); err != nil {
		return err
	}
	if err := r.openings(ctx); err != nil {
		return err
	}
	if err := r.witnessExam(ctx); err != nil {
		return err
	}
	if err := r.closings(ctx); err != nil {
		return err
	}
	if err := r.votePhase(ctx, models.PhaseVerdictVote, models.VoteTypeVerdict); err != nil {
		return err
	}
	if err := r.votePhase(ctx, models.PhaseSentenceVote, models.VoteTypeSentence); err != nil {
		return err
	}
	return r.finalRuling(ctx)
}

func (r *runner) setPhase(ctx context.Context, target models.Phase, durationMs int) error {
	if _, err := r.deps.Store.SetPhase(ctx, r.sessionID, target, durationMs); err != nil {
		return fmt.Errorf("failed to enter phase %s: %w", target, err)
	}
	r.phase = target
	return nil
}

func (r *runner) pause(ctx context.Context, d time.Duration) error {
	return r.deps.Sleep(ctx, d)
}

// safelySpeak sends text to TTS, logging and counting failures. Provider
// trouble never interrupts the session.
func (r *runner) safelySpeak(ctx context.Context, speaker, text string) {
	if err := r.deps.TTS.Speak(ctx, speaker, text); err != nil {
		r.ttsFailed++
		r.log.Warn("TTS call failed", "speaker", speaker, "error", err)
		return
	}
	r.ttsOK++
}

// generate asks the provider for one utterance as the given role, bounded by
// the role-token budget.
func (r *runner) generate(ctx context.Context, role models.Role, instruction string, requested int) string {
	budget, source := TokenBudget(role, requested, r.deps.Config.RoleCaps)
	r.log.Debug("Token budget resolved",
		"role", role, "requested", requested, "budget", budget, "source", source)
	return r.deps.LLM.Generate(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: fmt.Sprintf(
				"You are the %s in a live mock-court drama. The case: %s. Stay in character and keep it punchy.",
				role, r.topic)},
			{Role: "user", Content: instruction},
		},
		Temperature: 0.9,
		MaxTokens:   budget,
	})
}

// addTurn moderates dialogue, commits the turn, and speaks it.
func (r *runner) addTurn(ctx context.Context, role models.Role, speaker, dialogue string) (*models.Turn, error) {
	modRes := r.deps.Moderator.Moderate(dialogue)
	var modPtr *moderation.Result
	if modRes.Flagged {
		modPtr = &modRes
	}
	turn, err := r.deps.Store.AddTurn(ctx, store.AddTurnInput{
		SessionID:  r.sessionID,
		Speaker:    speaker,
		Role:       role,
		Phase:      r.phase,
		Dialogue:   dialogue,
		Moderation: modPtr,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add %s turn: %w", role, err)
	}
	r.speakCounts[speaker]++
	r.totalTurns++
	r.lastSpeaker = speaker
	r.safelySpeak(ctx, speaker, turn.Dialogue)
	return turn, nil
}

func (r *runner) casePrompt(ctx context.Context) error {
	if err := r.setPhase(ctx, models.PhaseCasePrompt, 8000); err != nil {
		return err
	}
	dialogue := fmt.Sprintf("All rise! Court is now in session. Today's case: %s", r.topic)
	if _, err := r.addTurn(ctx, models.RoleBailiff, r.roles.Bailiff, dialogue); err != nil {
		return err
	}
	return r.pause(ctx, 1200*time.Millisecond)
}

func (r *runner) openings(ctx context.Context) error {
	if err := r.setPhase(ctx, models.PhaseOpenings, 30000); err != nil {
		return err
	}
	r.safelySpeak(ctx, r.roles.Bailiff, "Opening statements.")

	if err := r.attorneyTurn(ctx, models.RoleProsecutor, r.roles.Prosecutor,
		"Deliver your opening statement for the prosecution.", 220); err != nil {
		return err
	}
	if err := r.pause(ctx, 900*time.Millisecond); err != nil {
		return err
	}
	return r.attorneyTurn(ctx, models.RoleDefense, r.roles.Defense,
		"Deliver your opening statement for the defense.", 220)
}

func (r *runner) witnessExam(ctx context.Context) error {
	if err := r.setPhase(ctx, models.PhaseWitnessExam, 40000); err != nil {
		return err
	}
	r.safelySpeak(ctx, r.roles.Bailiff, "The court calls its witnesses.")

	cycle := 0
	for _, witness := range r.roles.Witnesses {
		cycle++

		if err := r.maybeRandomEvent(ctx, witness); err != nil {
			return err
		}

		question := r.generate(ctx, models.RoleJudge,
			fmt.Sprintf("Ask witness %s one pointed question about the case.", witness), 120)
		if _, err := r.addTurn(ctx, models.RoleJudge, r.roles.Judge, question); err != nil {
			return err
		}
		if err := r.pause(ctx, 600*time.Millisecond); err != nil {
			return err
		}

		if err := r.witnessResponse(ctx, witness); err != nil {
			return err
		}
		if err := r.pause(ctx, 600*time.Millisecond); err != nil {
			return err
		}

		if err := r.attorneyTurn(ctx, models.RoleProsecutor, r.roles.Prosecutor,
			fmt.Sprintf("Cross-examine witness %s aggressively.", witness), 180); err != nil {
			return err
		}
		if err := r.pause(ctx, 600*time.Millisecond); err != nil {
			return err
		}
		if err := r.attorneyTurn(ctx, models.RoleDefense, r.roles.Defense,
			fmt.Sprintf("Rebut the cross-examination of witness %s.", witness), 180); err != nil {
			return err
		}

		if cycle%r.deps.Config.RecapCadence == 0 {
			if err := r.judgeRecap(ctx, cycle); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *runner) witnessResponse(ctx context.Context, witness string) error {
	raw := r.generate(ctx, models.RoleWitness,
		"Answer the judge's question truthfully but colorfully.", 160)
	capped, capRes := ApplyWitnessCap(raw, r.deps.Config.WitnessCap)
	if capRes.Capped {
		err := r.deps.Store.EmitEvent(ctx, r.sessionID, events.TypeWitnessResponseCapped,
			events.WitnessResponseCappedPayload(witness, capRes.Reason,
				capRes.OriginalTokens, capRes.CappedTokens))
		if err != nil {
			return fmt.Errorf("failed to emit witness cap event: %w", err)
		}
	}
	_, err := r.addTurn(ctx, models.RoleWitness, witness, capped)
	return err
}

func (r *runner) judgeRecap(ctx context.Context, cycle int) error {
	recap := "Recap: " + r.generate(ctx, models.RoleJudge,
		"Summarize the witness examination so far for the jury in two sentences.", 160)
	turn, err := r.addTurn(ctx, models.RoleJudge, r.roles.Judge, recap)
	if err != nil {
		return err
	}
	if err := r.deps.Store.RecordRecap(ctx, store.RecordRecapInput{
		SessionID:   r.sessionID,
		TurnID:      turn.ID,
		Phase:       r.phase,
		CycleNumber: cycle,
	}); err != nil {
		return fmt.Errorf("failed to record recap: %w", err)
	}
	return nil
}

// maybeRandomEvent rolls the disruption catalog before a witness cycle and
// injects at most one extra turn.
func (r *runner) maybeRandomEvent(ctx context.Context, currentWitness string) error {
	ev := PickRandomEvent(r.deps.Rng)
	if ev == nil {
		return nil
	}
	speaker := r.eventSpeaker(ev, currentWitness)
	r.log.Info("Random courtroom event", "event", ev.Name, "speaker", speaker)
	dialogue := r.generate(ctx, ev.Role, ev.Instruction, 80)
	_, err := r.addTurn(ctx, ev.Role, speaker, dialogue)
	return err
}

func (r *runner) eventSpeaker(ev *RandomEvent, currentWitness string) string {
	switch ev.Role {
	case models.RoleWitness:
		// Before any witness has testified, the witness about to take the
		// stand is the natural source of the disruption. Afterwards the
		// recency-weighted pick takes over.
		if !r.anyWitnessSpoke() {
			return SelectFirstSpeaker(r.deps.Rng, r.roles.Witnesses, currentWitness)
		}
		if picked := SelectSpeaker(r.deps.Rng, r.roles.Witnesses, r.lastSpeaker,
			r.speakCounts, r.totalTurns); picked != "" {
			return picked
		}
		return currentWitness
	case models.RoleProsecutor:
		return r.roles.Prosecutor
	case models.RoleDefense:
		return r.roles.Defense
	case models.RoleJudge:
		return r.roles.Judge
	}
	return r.roles.Bailiff
}

func (r *runner) anyWitnessSpoke() bool {
	for _, w := range r.roles.Witnesses {
		if r.speakCounts[w] > 0 {
			return true
		}
	}
	return false
}

func (r *runner) closings(ctx context.Context) error {
	if err := r.setPhase(ctx, models.PhaseClosings, 30000); err != nil {
		return err
	}
	if err := r.attorneyTurn(ctx, models.RoleProsecutor, r.roles.Prosecutor,
		"Deliver your closing argument for the prosecution.", 220); err != nil {
		return err
	}
	if err := r.pause(ctx, 900*time.Millisecond); err != nil {
		return err
	}
	return r.attorneyTurn(ctx, models.RoleDefense, r.roles.Defense,
		"Deliver your closing argument for the defense.", 220)
}

// attorneyTurn generates one adversarial turn and runs the objection hook on
// its dialogue.
func (r *runner) attorneyTurn(ctx context.Context, role models.Role, speaker, instruction string, requested int) error {
	dialogue := r.generate(ctx, role, instruction, requested)
	if _, err := r.addTurn(ctx, role, speaker, dialogue); err != nil {
		return err
	}
	return r.handleObjection(ctx, role, dialogue)
}

// handleObjection runs the two-layer objection hook after an attorney turn.
// When provoked, the opposing counsel objects (unless the turn already was
// the objection) and the judge rules.
func (r *runner) handleObjection(ctx context.Context, speakingRole models.Role, dialogue string) error {
	objType, provoked, self := DetectObjection(ctx, r.deps.LLM, dialogue)
	if !provoked {
		return nil
	}

	opposingRole, opposingSpeaker := models.RoleProsecutor, r.roles.Prosecutor
	if speakingRole == models.RoleProsecutor {
		opposingRole, opposingSpeaker = models.RoleDefense, r.roles.Defense
	}

	if !self {
		objection := fmt.Sprintf("OBJECTION: %s!", objType)
		if _, err := r.addTurn(ctx, opposingRole, opposingSpeaker, objection); err != nil {
			return err
		}
	}

	ruling := "Overruled. Proceed."
	if r.deps.Rng.Float64() < 0.5 {
		ruling = "Sustained. The jury will disregard."
	}
	_, err := r.addTurn(ctx, models.RoleJudge, r.roles.Judge, ruling)
	return err
}

func (r *runner) votePhase(ctx context.Context, phase models.Phase, voteType models.VoteType) error {
	sess, err := r.deps.Store.GetSession(ctx, r.sessionID)
	if err != nil {
		return fmt.Errorf("failed to reload session: %w", err)
	}
	windowMs := sess.Metadata.VoteWindowMs(voteType)
	if err := r.setPhase(ctx, phase, windowMs); err != nil {
		return err
	}

	choices := sess.AllowedChoices(voteType)
	announcement := fmt.Sprintf("The %s poll is open! Cast your vote: %v", voteType, choices)
	if _, err := r.addTurn(ctx, models.RoleBailiff, r.roles.Bailiff, announcement); err != nil {
		return err
	}

	// Votes arrive externally through castVote; the driver just waits out
	// the window.
	return r.pause(ctx, time.Duration(windowMs)*time.Millisecond)
}

func (r *runner) finalRuling(ctx context.Context) error {
	if err := r.setPhase(ctx, models.PhaseFinalRuling, 20000); err != nil {
		return err
	}

	sess, err := r.deps.Store.GetSession(ctx, r.sessionID)
	if err != nil {
		return fmt.Errorf("failed to reload session: %w", err)
	}

	verdictChoices := sess.AllowedChoices(models.VoteTypeVerdict)
	verdict := sess.VerdictVotes.Argmax(firstOr(verdictChoices, "undecided"))
	sentence := sess.SentenceVotes.Argmax(firstOr(sess.Metadata.SentenceOptions, "no sentence"))

	if err := r.deps.Store.RecordFinalRuling(ctx, r.sessionID, verdict, sentence); err != nil {
		return fmt.Errorf("failed to record final ruling: %w", err)
	}

	r.safelySpeak(ctx, r.roles.Judge, fmt.Sprintf("The verdict is %s.", verdict))

	flourish := r.generate(ctx, models.RoleJudge,
		"Deliver a final closing flourish as the judge wraps up the case. One sentence.", 120)
	ruling := fmt.Sprintf("This court finds the defendant %s. The sentence: %s. %s",
		verdict, sentence, flourish)
	if _, err := r.addTurn(ctx, models.RoleJudge, r.roles.Judge, ruling); err != nil {
		return err
	}

	if err := r.deps.Store.CompleteSession(ctx, r.sessionID); err != nil {
		return fmt.Errorf("failed to complete session: %w", err)
	}
	return nil
}

func firstOr(choices []string, fallback string) string {
	if len(choices) > 0 {
		return choices[0]
	}
	return fallback
}
