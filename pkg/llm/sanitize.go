package llm

import (
	"regexp"
	"strings"
)

var (
	urlRe        = regexp.MustCompile(`https?://\S+`)
	tagRe        = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)
	emphasisRe   = regexp.MustCompile(`(\*\*|__|[*_]|` + "`" + `)`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Sanitize normalizes raw provider output into speakable dialogue: markdown
// emphasis, URLs and stray tag-like markup are removed, surrounding quotes
// are dropped, and whitespace is collapsed.
func Sanitize(text string) string {
	out := urlRe.ReplaceAllString(text, "")
	out = tagRe.ReplaceAllString(out, "")
	out = emphasisRe.ReplaceAllString(out, "")
	out = whitespaceRe.ReplaceAllString(out, " ")
	out = strings.TrimSpace(out)
	out = strings.Trim(out, `"'“”‘’`)
	return strings.TrimSpace(out)
}
