package handlers

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trims whitespace", "  visitor  ", "visitor"},
		{"strips control characters", "vis\x00it\tor", "visitor"},
		{"empty stays empty", "   ", ""},
		{"short name unchanged", "anna", "anna"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeName(tt.input))
		})
	}
}

func TestSanitizeNameTruncatesOnRunes(t *testing.T) {
	long := strings.Repeat("ä", 60)

	got := sanitizeName(long)
	assert.True(t, utf8.ValidString(got), "truncation must never split a rune")
	assert.Equal(t, 50, utf8.RuneCountInString(got))
	assert.Equal(t, strings.Repeat("ä", 50), got)
}
