package orchestrator

import "strings"

// Cap reasons reported in witness_response_capped events.
const (
	CapReasonTokens  = "tokens"
	CapReasonSeconds = "seconds"
)

// CapResult describes the outcome of applying the witness cap.
type CapResult struct {
	Capped         bool
	Reason         string
	OriginalTokens int
	CappedTokens   int
}

// ApplyWitnessCap truncates text to the tighter of the token budget and the
// speaking-time budget (seconds x tokens-per-second). Tokens are whitespace
// separated words. When truncation occurs the marker is appended and the
// result reports which bound applied, with ties going to tokens.
func ApplyWitnessCap(text string, cfg WitnessCapConfig) (string, CapResult) {
	tokens := strings.Fields(text)
	res := CapResult{OriginalTokens: len(tokens), CappedTokens: len(tokens)}

	secondsBudget := cfg.MaxSeconds * cfg.TokensPerSecond
	limit := cfg.MaxTokens
	reason := CapReasonTokens
	if secondsBudget < limit {
		limit = secondsBudget
		reason = CapReasonSeconds
	}
	if limit < 1 {
		limit = 1
	}
	if len(tokens) <= limit {
		return text, res
	}

	res.Capped = true
	res.Reason = reason
	res.CappedTokens = limit

	out := strings.Join(tokens[:limit], " ")
	if cfg.TruncationMarker != "" {
		out += " " + cfg.TruncationMarker
	}
	return out, res
}
