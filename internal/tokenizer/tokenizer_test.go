package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEncodeDecodeRoundTrip exercises P7: Decode(Encode(s)) must reconstruct
// s exactly at the word level, regardless of original whitespace.
func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "simple sentence",
			text: "the quick brown fox jumps.",
			want: "the quick brown fox jumps.",
		},
		{
			name: "multiple sentences with punctuation",
			text: "Hello, world! How are you?",
			want: "Hello, world! How are you?",
		},
		{
			name: "collapses repeated whitespace",
			text: "line one\n\nline   two",
			want: "line one line two",
		},
		{
			name: "quotes and parens",
			text: `she said ("hi there")`,
			want: `she said ("hi there")`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := Encode(tt.text)
			got := Decode(tokens)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeEmpty(t *testing.T) {
	assert.Nil(t, Encode(""))
}

func TestDecodeEmpty(t *testing.T) {
	assert.Equal(t, "", Decode(nil))
}

func TestCount(t *testing.T) {
	text := "one two three four"
	require.Equal(t, 4, Count(text))
}
