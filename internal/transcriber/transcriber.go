// Package transcriber turns a downloaded audio file into text, splitting it
// into size-bounded segments first when it's too large for a single Whisper
// upload.
package transcriber

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/Shimizu-Technology/media-tools-api/internal/ffprobe"
)

// Result holds the joined transcription output for one audio file,
// possibly assembled from several segments.
type Result struct {
	Text     string
	Language string
	Segments int
}

// Transcriber sends audio to OpenAI's Whisper endpoint, splitting oversized
// files into segments first via ffmpeg.
type Transcriber struct {
	client    *openai.Client
	model     string
	maxBytes  int64 // BMAX
	maxChunks int   // CMAX
	probe     *ffprobe.Runner
}

// New builds a Transcriber. baseURL lets the same client target any
// Whisper-compatible endpoint.
func New(baseURL, apiKey, model string, maxBytes int64, maxChunks int, probe *ffprobe.Runner) *Transcriber {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Transcriber{
		client:    openai.NewClientWithConfig(cfg),
		model:     model,
		maxBytes:  maxBytes,
		maxChunks: maxChunks,
		probe:     probe,
	}
}

// Transcribe transcribes audioPath, splitting it into chunks first if its
// size exceeds BMAX. If splitting produces more segments than CMAX, it fails
// with too_many_chunks instead of ever calling Whisper — the same cap the
// text chunker enforces after transcription, applied here to the audio side.
func (t *Transcriber) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	paths, err := t.splitIfNeeded(ctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("split audio: %w", err)
	}
	if t.maxChunks > 0 && len(paths) > t.maxChunks {
		return nil, fmt.Errorf("too_many_chunks: audio split into %d segments, exceeds limit of %d", len(paths), t.maxChunks)
	}

	var texts []string
	var language string
	for _, p := range paths {
		text, lang, err := t.transcribeOne(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("llm_error: transcribe segment %s: %w", p, err)
		}
		texts = append(texts, text)
		if language == "" {
			language = lang
		}
	}

	return &Result{
		Text:     strings.TrimSpace(strings.Join(texts, " ")),
		Language: language,
		Segments: len(paths),
	}, nil
}

func (t *Transcriber) transcribeOne(ctx context.Context, path string) (text, language string, err error) {
	file, err := os.Open(path)
	if err != nil {
		return "", "", fmt.Errorf("open audio segment: %w", err)
	}
	defer file.Close()

	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: path,
		Reader:   file,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return "", "", err
	}
	return resp.Text, resp.Language, nil
}

// splitIfNeeded returns the original path unchanged when the file already
// fits under BMAX, and otherwise cuts it into ffmpeg segments sized so each
// stays safely under the limit.
//
// chunk_seconds = floor(0.95 * BMAX / bytes_per_second), clamped to a 10s
// floor — the same formula and safety margin the pipeline this project was
// modeled on uses for its own Whisper size limit.
func (t *Transcriber) splitIfNeeded(ctx context.Context, audioPath string) ([]string, error) {
	info, err := os.Stat(audioPath)
	if err != nil {
		return nil, fmt.Errorf("stat audio file: %w", err)
	}
	if info.Size() <= t.maxBytes {
		return []string{audioPath}, nil
	}

	durationSecs, err := t.probe.Duration(ctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("probe duration: %w", err)
	}
	if durationSecs <= 0 {
		return []string{audioPath}, nil
	}

	bytesPerSec := float64(info.Size()) / durationSecs
	chunkSecs := int(0.95 * float64(t.maxBytes) / bytesPerSec)
	if chunkSecs < 10 {
		chunkSecs = 10
	}

	dir := filepath.Dir(audioPath)
	var segments []string
	for start := 0; float64(start) < durationSecs; start += chunkSecs {
		segPath := filepath.Join(dir, "chunk_"+strconv.Itoa(len(segments))+".mp3")
		if err := t.probe.Cut(ctx, audioPath, segPath, start, chunkSecs); err != nil {
			return nil, fmt.Errorf("cut segment at %ds: %w", start, err)
		}
		segments = append(segments, segPath)
	}

	if len(segments) == 0 {
		return []string{audioPath}, nil
	}
	return segments, nil
}
