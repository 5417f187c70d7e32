package moderation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeReplacesWholeWords(t *testing.T) {
	f := NewWordFilter([]string{"darn", "heck"})

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"single word", "darn", "****"},
		{"inside sentence", "well darn it", "well **** it"},
		{"case insensitive", "DARN and Heck", "**** and ****"},
		{"substring untouched", "darning socks", "darning socks"},
		{"clean text", "hello there", "hello there"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Sanitize(tt.in))
		})
	}
}

func TestIsFlagged(t *testing.T) {
	f := NewWordFilter([]string{"darn"})

	assert.True(t, f.IsFlagged("oh darn"))
	assert.False(t, f.IsFlagged("oh dear"))
	assert.False(t, f.IsFlagged("darning"))
}

func TestDefaultWordList(t *testing.T) {
	f := NewWordFilter(nil)
	assert.True(t, f.IsFlagged("what the fuck"))
}
