// Package chunker splits a transcript into overlapping, token-bounded
// windows for the map stage.
//
// Go Pattern: a sliding window over a token slice, grounded on the same
// chunk_size/overlap shape and edge cases as the reference generator this
// project's map/reduce pipeline was modeled on — a fixed window size with a
// trailing overlap so no sentence is cut off both before and after a chunk
// boundary.
package chunker

import "github.com/Shimizu-Technology/media-tools-api/internal/tokenizer"

const (
	DefaultWindow  = 3000
	DefaultOverlap = 200
)

// Chunk splits text into overlapping windows of `window` tokens, advancing
// by window-overlap tokens each step. If text tokenizes to nothing — an
// empty or whitespace-only transcript — the raw text is returned as the
// sole chunk, matching the reference implementation's fallback.
func Chunk(text string, window, overlap int) []string {
	tokens := tokenizer.Encode(text)
	if len(tokens) == 0 {
		return []string{text}
	}

	step := window - overlap
	if step <= 0 {
		step = window
	}

	var chunks []string
	for start := 0; start < len(tokens); start += step {
		end := start + window
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, tokenizer.Decode(tokens[start:end]))
		if end == len(tokens) {
			break
		}
	}
	return chunks
}
