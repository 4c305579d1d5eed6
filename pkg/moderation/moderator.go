// Package moderation provides a pattern-based content classifier for
// dialogue and session topics. It is a pure function over an ordered catalog
// of compiled regex rules: no I/O, no state.
package moderation

import (
	"log/slog"
	"regexp"
)

// RedactionPlaceholder replaces the full text of any flagged input.
const RedactionPlaceholder = "[REDACTED: content removed by court moderation]"

// Rule is one named screening pattern. Reason is the stable tag contributed
// to Result.Reasons when the pattern matches.
type Rule struct {
	Reason      string
	Pattern     string
	Description string
}

// CompiledRule pairs a rule with its compiled regex.
type CompiledRule struct {
	Reason string
	Regex  *regexp.Regexp
}

// Result is the outcome of moderating one text.
type Result struct {
	Flagged   bool     `json:"flagged"`
	Reasons   []string `json:"reasons"`
	Sanitized string   `json:"sanitized"`
}

// builtinRules is the ordered rule catalog. Order determines the order of
// reason tags in results, so it must stay deterministic.
//
// The slur and hate-speech entries match placeholder tokens of the form
// written into generated dialogue by misbehaving models; the production
// deployments extend this list through ExtraRules.
var builtinRules = []Rule{
	{
		Reason:      "slur",
		Pattern:     `(?i)\b(slur[-_]?(?:token|word)|racial\s+slur)\b`,
		Description: "known slur tokens",
	},
	{
		Reason:      "hate_speech",
		Pattern:     `(?i)\b(gas\s+the|ethnic\s+cleansing|subhuman\s+(?:race|people)|exterminate\s+(?:all|the)\s+\w+s)\b`,
		Description: "dehumanizing or eliminationist language",
	},
	{
		Reason:      "violence",
		Pattern:     `(?i)\b(kill\s+(?:him|her|them|yourself)|murder\s+(?:him|her|them)|how\s+to\s+(?:build|make)\s+a\s+bomb|shoot\s+up)\b`,
		Description: "credible violence or violent instruction",
	},
	{
		Reason:      "harassment",
		Pattern:     `(?i)\b(dox+(?:ing|ed)?|home\s+address\s+is|kys)\b`,
		Description: "targeted harassment",
	},
	{
		Reason:      "sexual_content",
		Pattern:     `(?i)\b(explicit\s+sexual|sexual\s+acts?\s+with|child\s+sexual)\b`,
		Description: "sexual content",
	},
}

// Moderator screens text against its rule catalog. Construct once at
// startup; Moderate is safe for concurrent use.
type Moderator struct {
	rules []CompiledRule
}

// New compiles the built-in catalog plus any extra rules, preserving order
// (built-ins first). Invalid patterns are logged and skipped, matching how
// the rest of the runtime treats bad operator-supplied config.
func New(extra ...Rule) *Moderator {
	m := &Moderator{}
	for _, rule := range append(append([]Rule(nil), builtinRules...), extra...) {
		compiled, err := regexp.Compile(rule.Pattern)
		if err != nil {
			slog.Error("Failed to compile moderation rule, skipping",
				"reason", rule.Reason, "error", err)
			continue
		}
		m.rules = append(m.rules, CompiledRule{Reason: rule.Reason, Regex: compiled})
	}
	return m
}

// Moderate runs text through the catalog in order. Each matching rule
// contributes its reason tag once. Any match replaces the sanitized text
// with the redaction placeholder; otherwise sanitized equals the input.
func (m *Moderator) Moderate(text string) Result {
	res := Result{Sanitized: text}
	seen := make(map[string]bool)
	for _, rule := range m.rules {
		if !rule.Regex.MatchString(text) {
			continue
		}
		res.Flagged = true
		if !seen[rule.Reason] {
			seen[rule.Reason] = true
			res.Reasons = append(res.Reasons, rule.Reason)
		}
	}
	if res.Flagged {
		res.Sanitized = RedactionPlaceholder
	}
	return res
}
