package moderation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModerateClean(t *testing.T) {
	m := New()

	res := m.Moderate("Did the defendant replace all office coffee with soup?")
	assert.False(t, res.Flagged)
	assert.Empty(t, res.Reasons)
	assert.Equal(t, "Did the defendant replace all office coffee with soup?", res.Sanitized)
}

func TestModerateSlur(t *testing.T) {
	m := New()

	res := m.Moderate("The witness shouted a racial slur at the gallery")
	require.True(t, res.Flagged)
	assert.Contains(t, res.Reasons, "slur")
	assert.Equal(t, RedactionPlaceholder, res.Sanitized)
}

func TestModerateMultipleReasonsOrdered(t *testing.T) {
	m := New()

	// Matches both the slur and violence rules; reasons must come back in
	// catalog order with no duplicates.
	res := m.Moderate("He used a racial slur and told them to kill him on the spot, then another racial slur")
	require.True(t, res.Flagged)
	assert.Equal(t, []string{"slur", "violence"}, res.Reasons)
}

func TestModerateExtraRules(t *testing.T) {
	m := New(Rule{Reason: "house_rule", Pattern: `(?i)\bforbidden phrase\b`})

	res := m.Moderate("this contains the FORBIDDEN PHRASE verbatim")
	require.True(t, res.Flagged)
	assert.Equal(t, []string{"house_rule"}, res.Reasons)
}

func TestModerateInvalidExtraRuleSkipped(t *testing.T) {
	m := New(Rule{Reason: "broken", Pattern: `[invalid`})

	// The broken rule is skipped; built-ins still work.
	res := m.Moderate("gas the chamber vents")
	assert.True(t, res.Flagged)
	assert.NotContains(t, res.Reasons, "broken")
}

func TestModerateCaseInsensitive(t *testing.T) {
	m := New()

	res := m.Moderate("HOW TO BUILD A BOMB, asked counsel")
	require.True(t, res.Flagged)
	assert.Contains(t, res.Reasons, "violence")
}
