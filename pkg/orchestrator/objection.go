package orchestrator

import (
	"context"
	"strings"

	"github.com/courtlive/courtd/pkg/llm"
)

const objectionPrefix = "objection:"

// DetectObjection decides whether an attorney turn provokes an objection.
// Layer one: dialogue beginning with "OBJECTION:" (case-insensitive) is
// itself an objection and the remainder is its type. Layer two: ask the
// generation client to classify; a "yes: <type>" reply names the type.
// Returns (type, provoked, selfObjection).
func DetectObjection(ctx context.Context, gen llm.Generator, dialogue string) (string, bool, bool) {
	trimmed := strings.TrimSpace(dialogue)
	if len(trimmed) >= len(objectionPrefix) &&
		strings.EqualFold(trimmed[:len(objectionPrefix)], objectionPrefix) {
		objType := strings.TrimSpace(trimmed[len(objectionPrefix):])
		if objType == "" {
			objType = "form"
		}
		return objType, true, true
	}

	reply := gen.Generate(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: "You are a courtroom objection classifier. Answer exactly 'yes: <type>' if opposing counsel would object to the statement, else 'no'."},
			{Role: "user", Content: trimmed},
		},
		Temperature: 0,
		MaxTokens:   12,
	})
	lower := strings.ToLower(strings.TrimSpace(reply))
	if strings.HasPrefix(lower, "yes:") {
		objType := strings.TrimSpace(lower[len("yes:"):])
		if objType != "" {
			return objType, true, false
		}
	}
	return "", false, false
}
