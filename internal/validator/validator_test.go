package validator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestFailedChannel(t *testing.T) {
	tests := []struct {
		name  string
		entry ChannelReport
		want  bool
	}{
		{
			name:  "all checks pass",
			entry: ChannelReport{Checks: []Check{{Name: "hallucination", Passed: true}, {Name: "tone_mismatch", Passed: true}}},
			want:  false,
		},
		{
			name:  "one check fails",
			entry: ChannelReport{Checks: []Check{{Name: "hallucination", Passed: true}, {Name: "tone_mismatch", Passed: false}}},
			want:  true,
		},
		{
			name:  "schema-only pass",
			entry: ChannelReport{Passed: boolPtr(true)},
			want:  false,
		},
		{
			name:  "schema-only fail",
			entry: ChannelReport{Passed: boolPtr(false)},
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FailedChannel(tt.entry))
		})
	}
}

func TestFailedChannelKeys(t *testing.T) {
	report := Report{
		"medium":              ChannelReport{Checks: []Check{{Name: "tone_mismatch", Passed: false}}},
		"habr":                ChannelReport{Checks: []Check{{Name: "tone_mismatch", Passed: true}}},
		"banana_video_prompt": ChannelReport{Passed: boolPtr(false)},
	}

	keys := FailedChannelKeys(report)
	assert.ElementsMatch(t, []string{"medium_text", "banana_video_prompt"}, keys)
}

// TestMergeReports verifies P6: merged = old ∪ new, with new taking
// precedence on overlapping keys.
func TestMergeReports(t *testing.T) {
	oldReport := Report{
		"medium": ChannelReport{Passed: boolPtr(false), Details: "stale"},
		"habr":   ChannelReport{Passed: boolPtr(true)},
	}
	newReport := Report{
		"medium": ChannelReport{Passed: boolPtr(true), Details: "fixed"},
	}

	merged := MergeReports(oldReport, newReport)

	require.Contains(t, merged, "habr")
	require.Contains(t, merged, "medium")
	assert.True(t, *merged["habr"].Passed)
	assert.True(t, *merged["medium"].Passed)
	assert.Equal(t, "fixed", merged["medium"].Details)
}

// TestValidateStoryboardSchemaOnly exercises the no-LLM-call storyboard path
// through the exported Validate entry point — a nil llm client is safe here
// because the textual (LLM) path never runs when restrictKeys narrows scope
// to just the storyboard channel.
func TestValidateStoryboardSchemaOnly(t *testing.T) {
	v := New(nil, "unused-model", 1000)

	valid := map[string]interface{}{
		"banana_video_prompt": map[string]interface{}{
			"style_summary": "a calm documentary tone",
			"scenes": []interface{}{
				map[string]interface{}{
					"scene_number":   float64(1),
					"visual_prompt":  "a sunrise over mountains",
					"voiceover_text": "the day begins",
				},
			},
		},
	}

	result, err := v.Validate(context.Background(), valid, "source text", []string{"banana_video_prompt"})
	require.NoError(t, err)
	assert.Equal(t, VerdictApproved, result.OverallVerdict)

	invalid := map[string]interface{}{
		"banana_video_prompt": map[string]interface{}{
			"style_summary": "a calm documentary tone",
			"scenes":        []interface{}{},
		},
	}

	result, err = v.Validate(context.Background(), invalid, "source text", []string{"banana_video_prompt"})
	require.NoError(t, err)
	assert.Equal(t, VerdictNeedsRevision, result.OverallVerdict)
}
