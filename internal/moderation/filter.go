package moderation

import (
	"regexp"
	"strings"
)

// Filter scrubs message text before it is persisted or broadcast. It is an
// external collaborator boundary: the delivery subsystem only calls these two
// pure functions and never depends on how the filtering is done.
type Filter interface {
	Sanitize(text string) string
	IsFlagged(text string) bool
}

// WordFilter replaces configured words with asterisks, matching on word
// boundaries, case-insensitively.
type WordFilter struct {
	pattern *regexp.Regexp
}

var defaultWords = []string{
	"fuck", "shit", "bitch", "asshole", "bastard", "dick", "cunt",
}

// NewWordFilter builds a filter from a word list. An empty list falls back to
// the built-in defaults.
func NewWordFilter(words []string) *WordFilter {
	if len(words) == 0 {
		words = defaultWords
	}
	escaped := make([]string, len(words))
	for i, w := range words {
		escaped[i] = regexp.QuoteMeta(w)
	}
	pattern := regexp.MustCompile(`(?i)\b(` + strings.Join(escaped, "|") + `)\b`)
	return &WordFilter{pattern: pattern}
}

// Sanitize replaces each matched word with asterisks of the same length.
func (f *WordFilter) Sanitize(text string) string {
	return f.pattern.ReplaceAllStringFunc(text, func(match string) string {
		return strings.Repeat("*", len(match))
	})
}

// IsFlagged reports whether the text contains any filtered word.
func (f *WordFilter) IsFlagged(text string) bool {
	return f.pattern.MatchString(text)
}
