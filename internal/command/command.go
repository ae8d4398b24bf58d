// Package command parses free-form group-chat text into a closed set of
// command variants, replacing suffix-matching cascades with something that can
// be tested exhaustively.
package command

import "strings"

// Kind identifies the command variant.
type Kind int

const (
	// Unknown is any text that is not a recognized command. It gets no reply.
	Unknown Kind = iota

	// Progress asks for a member's absence count in the current period,
	// e.g. "たろう 途中経過" or "Taro progress".
	Progress
)

// Command is one parsed chat command.
type Command struct {
	Kind Kind

	// Name is the display name the command refers to (Progress only).
	Name string
}

var progressSuffixes = []string{"途中経過", "progress"}

// Parse classifies a chat message. Matching is suffix-based: the trailing
// keyword names the command, everything before it is the subject name.
func Parse(text string) Command {
	trimmed := strings.TrimSpace(text)

	for _, suffix := range progressSuffixes {
		name, ok := cutSuffixFold(trimmed, suffix)
		if !ok {
			continue
		}
		if name == "" {
			return Command{Kind: Unknown}
		}
		return Command{Kind: Progress, Name: name}
	}

	return Command{Kind: Unknown}
}

// cutSuffixFold removes suffix from s, matching ASCII case-insensitively,
// and trims the remainder.
func cutSuffixFold(s, suffix string) (string, bool) {
	if len(s) < len(suffix) {
		return "", false
	}
	if !strings.EqualFold(s[len(s)-len(suffix):], suffix) {
		return "", false
	}
	return strings.TrimSpace(s[:len(s)-len(suffix)]), true
}
