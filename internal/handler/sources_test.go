package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shimizu-Technology/media-tools-api/internal/models"
)

func TestValidateSourceURL(t *testing.T) {
	tests := []struct {
		name       string
		sourceType string
		url        string
		wantKind   models.SourceKind
		wantErr    bool
	}{
		{
			name:       "valid youtube url",
			sourceType: "youtube",
			url:        "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			wantKind:   models.SourceVideoHost,
		},
		{
			name:       "valid youtu.be short url",
			sourceType: "youtube",
			url:        "https://youtu.be/dQw4w9WgXcQ",
			wantKind:   models.SourceVideoHost,
		},
		{
			name:       "youtube type with non-youtube url rejected",
			sourceType: "youtube",
			url:        "https://example.com/article",
			wantErr:    true,
		},
		{
			name:       "valid web url",
			sourceType: "web",
			url:        "https://example.com/a-great-article",
			wantKind:   models.SourceArticleURL,
		},
		{
			name:       "web url missing scheme rejected",
			sourceType: "web",
			url:        "example.com/a-great-article",
			wantErr:    true,
		},
		{
			name:       "unknown source_type rejected",
			sourceType: "ftp-drop",
			url:        "https://example.com",
			wantErr:    true,
		},
		{
			name:       "file scheme blocked (P9)",
			sourceType: "web",
			url:        "file:///etc/passwd",
			wantErr:    true,
		},
		{
			name:       "javascript scheme blocked (P9)",
			sourceType: "web",
			url:        "javascript:alert(1)",
			wantErr:    true,
		},
		{
			name:       "data scheme blocked (P9)",
			sourceType: "web",
			url:        "data:text/html,<script>alert(1)</script>",
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, err := validateSourceURL(tt.sourceType, tt.url)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, kind)
		})
	}
}

// TestSanitizeFilename exercises P8: a client-supplied filename must never
// escape the job's upload directory, and must never carry an embedded NUL.
func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain filename unchanged", input: "report.pdf", want: "report.pdf"},
		{name: "path traversal reduced to basename", input: "../../etc/cron.d/evil.pdf", want: "evil.pdf"},
		{name: "absolute path reduced to basename", input: "/etc/passwd", want: "passwd"},
		{name: "embedded NUL stripped before basename", input: "evil.pdf\x00.exe", want: "evil.pdf.exe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeFilename(tt.input))
		})
	}
}

func TestToSourceResponseGating(t *testing.T) {
	job := &models.Job{
		ID:         "job-1",
		SourceKind: models.SourceVideoHost,
		Status:     models.StatusQueued,
		Stage:      "extracting",
		Percent:    10,
	}

	resp := toSourceResponse(job, nil, nil)
	assert.Nil(t, resp.ContentPayload)
	assert.Nil(t, resp.ValidationReport)
	assert.Equal(t, "job-1", resp.SourceID)
	require.NotNil(t, resp.Progress)
	assert.Equal(t, "extracting", resp.Progress.Stage)
	assert.Equal(t, 10, resp.Progress.Percent)
}

func TestToSourceResponseErrorInfo(t *testing.T) {
	code := string(models.ErrTooManyChunks)
	msg := "205 exceeds limit of 120"
	job := &models.Job{
		ID:           "job-2",
		SourceKind:   models.SourceArticleURL,
		Status:       models.StatusFailed,
		Stage:        "failed",
		ErrorCode:    &code,
		ErrorMessage: &msg,
	}

	resp := toSourceResponse(job, nil, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, code, resp.Error.Code)
	assert.Equal(t, msg, resp.Error.Message)
}
