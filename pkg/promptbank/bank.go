// Package promptbank holds the static case-prompt catalog and its
// genre-rotation selector. Selection is deterministic for a given history so
// restarts do not reshuffle the programming.
package promptbank

import (
	"errors"
	"hash/fnv"
	"log/slog"
	"sort"
	"strings"

	"github.com/courtlive/courtd/pkg/models"
	"github.com/courtlive/courtd/pkg/moderation"
)

// ErrNoSafePrompts is returned when the safety screen rejects every active
// entry.
var ErrNoSafePrompts = errors.New("prompt bank contains no safe prompts")

// defaultEntries is the stock catalog.
var defaultEntries = []models.PromptBankEntry{
	{ID: "case-001", Genre: "office", Prompt: "Did the defendant replace all office coffee with soup?", CaseType: models.CaseTypeCriminal, Active: true},
	{ID: "case-002", Genre: "office", Prompt: "The defendant allegedly scheduled a meeting that could have been an email", CaseType: models.CaseTypeCivil, Active: true},
	{ID: "case-003", Genre: "pets", Prompt: "Did the defendant teach a parrot to order pizzas on a stolen credit card?", CaseType: models.CaseTypeCriminal, Active: true},
	{ID: "case-004", Genre: "pets", Prompt: "The defendant's cat is accused of deleting a production database", CaseType: models.CaseTypeCivil, Active: true},
	{ID: "case-005", Genre: "food", Prompt: "Is pineapple on pizza a crime against the culinary arts?", CaseType: models.CaseTypeCriminal, Active: true},
	{ID: "case-006", Genre: "food", Prompt: "The defendant microwaved fish in the communal kitchen, again", CaseType: models.CaseTypeCivil, Active: true},
	{ID: "case-007", Genre: "tech", Prompt: "Did the defendant deploy to production on a Friday at 4:59pm?", CaseType: models.CaseTypeCriminal, Active: true},
	{ID: "case-008", Genre: "tech", Prompt: "The defendant is accused of closing forty-seven browser tabs that were definitely important", CaseType: models.CaseTypeCivil, Active: true},
	{ID: "case-009", Genre: "sports", Prompt: "Did the defendant fake an injury to leave the company kickball game early?", CaseType: models.CaseTypeCivil, Active: true},
	{ID: "case-010", Genre: "retired", Prompt: "A prompt that is no longer in rotation", CaseType: models.CaseTypeCivil, Active: false},
}

// Bank is the prompt catalog plus its safety screen.
type Bank struct {
	entries   []models.PromptBankEntry
	moderator *moderation.Moderator
}

// New builds a bank. With no entries the stock catalog is used.
func New(moderator *moderation.Moderator, entries ...models.PromptBankEntry) *Bank {
	if len(entries) == 0 {
		entries = defaultEntries
	}
	return &Bank{
		entries:   append([]models.PromptBankEntry(nil), entries...),
		moderator: moderator,
	}
}

// Entries returns a copy of the catalog.
func (b *Bank) Entries() []models.PromptBankEntry {
	return append([]models.PromptBankEntry(nil), b.entries...)
}

// SelectNextSafePrompt picks the next case prompt. history is the genre
// sequence of previously played prompts, newest last. Genres appearing in
// the last minDistance history entries are excluded; if that empties the
// pool the exclusion is lifted with a warning. activeGenres, when non-empty,
// restricts the pool. Candidates failing the safety screen are dropped, the
// survivors are sorted by id, and the pick is an FNV-32 hash of
// history+ids modulo the pool size, so identical inputs select identically.
func (b *Bank) SelectNextSafePrompt(history []string, activeGenres []string, minDistance int) (models.PromptBankEntry, error) {
	safe := b.safeCandidates(activeGenres)
	if len(safe) == 0 {
		return models.PromptBankEntry{}, ErrNoSafePrompts
	}

	excluded := recentGenres(history, minDistance)
	pool := make([]models.PromptBankEntry, 0, len(safe))
	for _, entry := range safe {
		if !excluded[entry.Genre] {
			pool = append(pool, entry)
		}
	}
	if len(pool) == 0 {
		slog.Warn("Genre rotation excluded every safe prompt, lifting exclusion",
			"min_distance", minDistance, "history_len", len(history))
		pool = safe
	}

	sort.Slice(pool, func(i, j int) bool { return pool[i].ID < pool[j].ID })

	h := fnv.New32a()
	for _, genre := range history {
		_, _ = h.Write([]byte(genre))
	}
	for _, entry := range pool {
		_, _ = h.Write([]byte(entry.ID))
	}
	return pool[h.Sum32()%uint32(len(pool))], nil
}

func (b *Bank) safeCandidates(activeGenres []string) []models.PromptBankEntry {
	allowed := make(map[string]bool, len(activeGenres))
	for _, g := range activeGenres {
		allowed[strings.ToLower(g)] = true
	}

	var out []models.PromptBankEntry
	for _, entry := range b.entries {
		if !entry.Active {
			continue
		}
		if len(allowed) > 0 && !allowed[strings.ToLower(entry.Genre)] {
			continue
		}
		if b.moderator.Moderate(entry.Prompt).Flagged {
			continue
		}
		out = append(out, entry)
	}
	return out
}

func recentGenres(history []string, minDistance int) map[string]bool {
	out := make(map[string]bool)
	if minDistance <= 0 {
		return out
	}
	start := len(history) - minDistance
	if start < 0 {
		start = 0
	}
	for _, genre := range history[start:] {
		out[genre] = true
	}
	return out
}
