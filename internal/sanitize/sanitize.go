// Package sanitize cleans raw model output before it is written.
package sanitize

import (
	"regexp"
	"strings"
)

var reasoningBlockPattern = regexp.MustCompile(`(?is)<think>.*?</think>`)

// StripReasoning removes every <think>...</think> block, matched case-insensitively across
// newlines, and trims surrounding whitespace. Removal repeats until no block remains, so blocks
// exposed by an earlier removal are stripped too and the result is a fixed point.
func StripReasoning(text string) string {
	for reasoningBlockPattern.MatchString(text) {
		text = reasoningBlockPattern.ReplaceAllString(text, "")
	}
	return strings.TrimSpace(text)
}
