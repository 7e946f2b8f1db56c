package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shimizu-Technology/media-tools-api/internal/models"
	"github.com/Shimizu-Technology/media-tools-api/internal/validator"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr models.ErrorCode
	}{
		{name: "video too long", err: errString("video_too_long: duration 9999s exceeds limit of 7200s"), wantErr: models.ErrVideoTooLong},
		{name: "too many chunks", err: errString("too_many_chunks: 200 exceeds limit of 120"), wantErr: models.ErrTooManyChunks},
		{name: "transcript unavailable", err: errString("transcript_unavailable: no text produced for job x"), wantErr: models.ErrTranscriptUnavailable},
		{name: "llm error lowercase", err: errString("llm_error: map chunk 0: rate limited"), wantErr: models.ErrLLM},
		{name: "openai mention", err: errString("unexpected response from openai API"), wantErr: models.ErrLLM},
		{name: "unrecognized falls back to internal", err: errString("disk full"), wantErr: models.ErrInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, msg := classify(tt.err)
			assert.Equal(t, tt.wantErr, code)
			assert.Equal(t, tt.err.Error(), msg)
		})
	}
}

type errString string

func (e errString) Error() string { return string(e) }

func TestDeriveTitle(t *testing.T) {
	url := "https://www.youtube.com/watch?v=abc123"
	path := "/tmp/content-pipeline/job-1/report.pdf"

	tests := []struct {
		name string
		job  *models.Job
		meta map[string]interface{}
		want string
	}{
		{
			name: "prefers meta title",
			job:  &models.Job{SourceURL: &url},
			meta: map[string]interface{}{"title": "How Transformers Work"},
			want: "How Transformers Work",
		},
		{
			name: "falls back to upload basename",
			job:  &models.Job{SourcePath: &path},
			meta: nil,
			want: "report",
		},
		{
			name: "falls back to raw url",
			job:  &models.Job{SourceURL: &url},
			meta: nil,
			want: url,
		},
		{
			name: "falls back to untitled",
			job:  &models.Job{},
			meta: nil,
			want: "untitled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, deriveTitle(tt.job, tt.meta))
		})
	}
}

func TestValidationSourceText(t *testing.T) {
	content := map[string]interface{}{models.ReduceSummaryKey: "  "}
	assert.Equal(t, "raw transcript", validationSourceText(content, "raw transcript"))

	content = map[string]interface{}{models.ReduceSummaryKey: "joined summary"}
	assert.Equal(t, "joined summary", validationSourceText(content, "raw transcript"))
}

func TestMergeContentOverlaysFixedChannels(t *testing.T) {
	previous := map[string]interface{}{"medium_text": "old", "habr_text": "unchanged"}
	fixed := map[string]interface{}{"medium_text": "new"}

	merged := mergeContent(previous, fixed)
	assert.Equal(t, "new", merged["medium_text"])
	assert.Equal(t, "unchanged", merged["habr_text"])
}

func TestPreviousTextsFromOnlyKeepsStrings(t *testing.T) {
	content := map[string]interface{}{
		"medium_text":         "text",
		"banana_video_prompt": map[string]interface{}{"style_summary": "s"},
	}
	out := previousTextsFrom(content)
	require.Contains(t, out, "medium_text")
	assert.NotContains(t, out, "banana_video_prompt")
}

func TestOverallVerdictOf(t *testing.T) {
	passed := true
	failed := false

	approvedReport := validator.Report{"medium": validator.ChannelReport{Passed: &passed}}
	assert.Equal(t, validator.VerdictApproved, overallVerdictOf(approvedReport))

	needsRevisionReport := validator.Report{"medium": validator.ChannelReport{Passed: &failed}}
	assert.Equal(t, validator.VerdictNeedsRevision, overallVerdictOf(needsRevisionReport))
}
