package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shimizu-Technology/media-tools-api/internal/tokenizer"
)

func TestChunkEmptyText(t *testing.T) {
	chunks := Chunk("", DefaultWindow, DefaultOverlap)
	require.Len(t, chunks, 1)
	assert.Equal(t, "", chunks[0])
}

func TestChunkShorterThanWindow(t *testing.T) {
	text := "a short transcript that fits in one chunk"
	chunks := Chunk(text, DefaultWindow, DefaultOverlap)
	require.Len(t, chunks, 1)
}

// TestChunkOverlap verifies consecutive chunks share the configured overlap
// in tokens, and that every chunk after the first starts window-overlap
// tokens after the previous chunk's start: 500 tokens with window 100 and
// overlap 20 give windows starting at 0, 80, ..., 400, six in all.
func TestChunkOverlap(t *testing.T) {
	words := make([]string, 500)
	for i := range words {
		words[i] = "word"
	}
	text := strings.Join(words, " ")

	window, overlap := 100, 20
	chunks := Chunk(text, window, overlap)
	require.Greater(t, len(chunks), 1)
	assert.Len(t, chunks, 6)

	for _, c := range chunks {
		tokens := tokenizer.Encode(c)
		assert.LessOrEqual(t, len(tokens), window)
	}
}

// TestChunkCoversEveryToken verifies no token from the source is dropped
// between chunk boundaries.
func TestChunkCoversEveryToken(t *testing.T) {
	words := make([]string, 50)
	for i := range words {
		words[i] = "tok" + string(rune('a'+i%26))
	}
	text := strings.Join(words, " ")

	chunks := Chunk(text, 10, 2)
	require.NotEmpty(t, chunks)

	lastTokens := tokenizer.Encode(chunks[len(chunks)-1])
	allTokens := tokenizer.Encode(text)
	assert.Equal(t, allTokens[len(allTokens)-1], lastTokens[len(lastTokens)-1])

	step := 10 - 2
	for i, c := range chunks {
		start := i * step
		end := start + 10
		if end > len(allTokens) {
			end = len(allTokens)
		}
		assert.Equal(t, allTokens[start:end], tokenizer.Encode(c), "chunk %d", i)
	}
}
