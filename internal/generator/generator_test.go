package generator

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shimizu-Technology/media-tools-api/internal/llmclient"
	"github.com/Shimizu-Technology/media-tools-api/internal/models"
)

// fakeLLM completes every call deterministically from the user message, with
// an artificial stagger so out-of-order completion is exercised: later
// chunks (by position in the call order) finish first.
type fakeLLM struct {
	calls int32
}

func (f *fakeLLM) Complete(ctx context.Context, model string, messages []llmclient.Message) (string, error) {
	n := atomic.AddInt32(&f.calls, 1)
	if n < 10 {
		time.Sleep(time.Duration(10-n) * time.Millisecond)
	}
	user := messages[len(messages)-1].Content
	return fmt.Sprintf("summary-of[%s]-call%d", user, n), nil
}

func (f *fakeLLM) CompleteJSON(ctx context.Context, model string, messages []llmclient.Message) (string, error) {
	return `{"style_summary":"s","scenes":[{"scene_number":1,"visual_prompt":"p","voiceover_text":"v"}]}`, nil
}

// TestMapChunksPreservesOrder exercises P4: MapChunks must return summaries
// in input order regardless of the order goroutines complete in.
func TestMapChunksPreservesOrder(t *testing.T) {
	llm := &fakeLLM{}
	g := New(llm, "map-model", "reduce-model", 4, 4)

	chunks := []string{"chunk-0", "chunk-1", "chunk-2", "chunk-3", "chunk-4"}
	summaries, err := g.MapChunks(context.Background(), chunks)
	require.NoError(t, err)
	require.Len(t, summaries, len(chunks))

	for i, s := range summaries {
		assert.Contains(t, s, fmt.Sprintf("summary-of[%s]", chunks[i]))
	}
}

func TestMapChunksEmpty(t *testing.T) {
	g := New(&fakeLLM{}, "map-model", "reduce-model", 4, 4)
	summaries, err := g.MapChunks(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, summaries)
}

// TestReduceProducesEveryChannel verifies an unrestricted Reduce call
// generates every catalog channel plus the joined reduce summary text.
func TestReduceProducesEveryChannel(t *testing.T) {
	g := New(&fakeLLM{}, "map-model", "reduce-model", 4, 4)

	content, err := g.Reduce(context.Background(), ReduceInput{Summaries: []string{"s1", "s2"}})
	require.NoError(t, err)

	for _, def := range models.ChannelCatalog {
		assert.Contains(t, content, def.PayloadKey)
	}
	assert.Contains(t, content, models.ReduceSummaryKey)
}

// TestReduceRestrictToKeys verifies a restricted Reduce call only generates
// the requested channels, used by the autofix gate and client regeneration.
func TestReduceRestrictToKeys(t *testing.T) {
	g := New(&fakeLLM{}, "map-model", "reduce-model", 4, 4)

	content, err := g.Reduce(context.Background(), ReduceInput{
		Summaries:      []string{"s1"},
		RestrictToKeys: []string{"medium_text"},
	})
	require.NoError(t, err)

	assert.Contains(t, content, "medium_text")
	assert.Contains(t, content, models.ReduceSummaryKey)
	assert.NotContains(t, content, "habr_text")
	assert.NotContains(t, content, "banana_video_prompt")
}

// TestReduceStoryboardEmitsJSON verifies the storyboard channel is decoded
// from the LLM's JSON-mode response into a structured value, not left as a
// raw string like the other channels.
func TestReduceStoryboardEmitsJSON(t *testing.T) {
	g := New(&fakeLLM{}, "map-model", "reduce-model", 4, 4)

	content, err := g.Reduce(context.Background(), ReduceInput{
		Summaries:      []string{"s1"},
		RestrictToKeys: []string{"banana_video_prompt"},
	})
	require.NoError(t, err)

	storyboard, ok := content["banana_video_prompt"].(map[string]interface{})
	require.True(t, ok, "storyboard value should decode to a map, got %T", content["banana_video_prompt"])
	assert.Equal(t, "s", storyboard["style_summary"])
}
