package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Shimizu-Technology/media-tools-api/internal/models"
)

// VideoExtractor pulls a transcript from a video-host URL using the yt-dlp
// CLI tool: it prefers existing captions (Russian, then English, then
// whatever is available) and falls back to downloading the audio track for
// the orchestrator to hand to the transcriber.
type VideoExtractor struct {
	ytDlpPath       string
	workDir         string
	maxDurationSecs int
}

// NewVideoExtractor builds a VideoExtractor.
func NewVideoExtractor(ytDlpPath, workDir string, maxDurationSecs int) *VideoExtractor {
	return &VideoExtractor{ytDlpPath: ytDlpPath, workDir: workDir, maxDurationSecs: maxDurationSecs}
}

type ytDlpMetadata struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Channel  string  `json:"channel"`
	Duration float64 `json:"duration"`
}

var youtubeIDPattern = regexp.MustCompile(`(?:v=|youtu\.be/)([\w-]{11})`)

// ParseVideoID extracts the 11-character video ID from a youtube.com or
// youtu.be URL.
func ParseVideoID(url string) (string, error) {
	m := youtubeIDPattern.FindStringSubmatch(url)
	if len(m) < 2 {
		return "", fmt.Errorf("could not find a video id in %q", url)
	}
	return m[1], nil
}

// Extract satisfies extractor.Extractor.
func (e *VideoExtractor) Extract(ctx context.Context, job *models.Job) (*Result, error) {
	if job.SourceURL == nil {
		return nil, fmt.Errorf("video job has no source url")
	}
	url := *job.SourceURL

	metadata, metaErr := e.getMetadata(ctx, url)
	if metaErr == nil && e.maxDurationSecs > 0 && int(metadata.Duration) > e.maxDurationSecs {
		return nil, fmt.Errorf("video_too_long: duration %ds exceeds limit of %ds", int(metadata.Duration), e.maxDurationSecs)
	}

	// Prefer Russian captions, then English, then whatever else is there.
	for _, lang := range []string{"ru", "en", ""} {
		text, gotLang, err := e.getCaptions(ctx, url, lang)
		if err == nil && text != "" {
			meta := map[string]interface{}{"language": gotLang}
			if metadata != nil {
				meta["title"] = metadata.Title
				meta["channel"] = metadata.Channel
				meta["duration"] = metadata.Duration
			}
			return &Result{Text: text, Meta: meta, Label: models.LabelCaptions}, nil
		}
	}

	log.Printf("⚠️  no captions found for %s, falling back to audio download", url)
	return e.downloadAudio(ctx, url, metadata)
}

func (e *VideoExtractor) getMetadata(ctx context.Context, url string) (*ytDlpMetadata, error) {
	cmd := exec.CommandContext(ctx, e.ytDlpPath,
		"--dump-json", "--no-download", "--no-warnings", url)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("yt-dlp metadata failed: %s", msg)
	}

	var meta ytDlpMetadata
	if err := json.Unmarshal(stdout.Bytes(), &meta); err != nil {
		return nil, fmt.Errorf("parse yt-dlp metadata: %w", err)
	}
	return &meta, nil
}

// getCaptions downloads and flattens a subtitle track. lang == "" means "any
// available language"; yt-dlp's --sub-langs accepts "all" for that.
func (e *VideoExtractor) getCaptions(ctx context.Context, url, lang string) (text, language string, err error) {
	ctx, cancel := context.WithTimeout(ctx, 90*time.Second)
	defer cancel()

	tmpDir, err := os.MkdirTemp(e.workDir, "captions-*")
	if err != nil {
		return "", "", fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	subLangs := lang
	if subLangs == "" {
		subLangs = "all"
	}

	for _, subType := range []string{"--write-subs", "--write-auto-subs"} {
		cmd := exec.CommandContext(ctx, e.ytDlpPath,
			"--skip-download", subType,
			"--sub-langs", subLangs,
			"--sub-format", "vtt",
			"--output", filepath.Join(tmpDir, "%(id)s"),
			"--no-warnings", url,
		)
		output, runErr := cmd.CombinedOutput()
		if runErr != nil {
			log.Printf("⚠️  caption extraction (%s, %s) failed: %s", subType, lang, string(output))
			continue
		}

		matches, _ := filepath.Glob(filepath.Join(tmpDir, "*.vtt"))
		if len(matches) == 0 {
			matches, _ = filepath.Glob(filepath.Join(tmpDir, "*.srt"))
		}
		if len(matches) == 0 {
			continue
		}

		content, readErr := os.ReadFile(matches[0])
		if readErr != nil {
			continue
		}

		detected := lang
		if detected == "" {
			parts := strings.Split(filepath.Base(matches[0]), ".")
			if len(parts) >= 3 {
				detected = parts[len(parts)-2]
			}
		}

		if parsed := parseVTT(string(content)); parsed != "" {
			return parsed, detected, nil
		}
	}

	return "", "", fmt.Errorf("no captions available for language %q", lang)
}

// downloadAudio pulls the audio track so the orchestrator can run it
// through the transcriber; it never transcribes itself.
func (e *VideoExtractor) downloadAudio(ctx context.Context, url string, metadata *ytDlpMetadata) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	destDir := filepath.Join(e.workDir, uuid.NewString())
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("create audio dir: %w", err)
	}
	audioPath := filepath.Join(destDir, "audio.mp3")

	cmd := exec.CommandContext(ctx, e.ytDlpPath,
		"--extract-audio", "--audio-format", "mp3", "--audio-quality", "0",
		"--output", audioPath, "--no-playlist", "--quiet", url,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("download audio: %s: %w", string(output), err)
	}

	if _, err := os.Stat(audioPath); os.IsNotExist(err) {
		matches, _ := filepath.Glob(filepath.Join(destDir, "audio.*"))
		if len(matches) == 0 {
			return nil, fmt.Errorf("transcript_unavailable: no audio file produced for %s", url)
		}
		audioPath = matches[0]
	}

	meta := map[string]interface{}{}
	if metadata != nil {
		meta["title"] = metadata.Title
		meta["channel"] = metadata.Channel
		meta["duration"] = metadata.Duration
	}

	return &Result{NeedsTranscription: true, AudioPath: audioPath, Meta: meta}, nil
}

// parseVTT extracts plain text from a WebVTT subtitle file.
func parseVTT(vtt string) string {
	lines := strings.Split(vtt, "\n")
	var textLines []string
	seen := make(map[string]bool)

	timestampRegex := regexp.MustCompile(`^\d{2}:\d{2}:\d{2}`)
	cueIDRegex := regexp.MustCompile(`^\d+$`)
	tagRegex := regexp.MustCompile(`<[^>]+>`)

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || line == "WEBVTT" || strings.HasPrefix(line, "Kind:") ||
			strings.HasPrefix(line, "Language:") || strings.HasPrefix(line, "NOTE") ||
			timestampRegex.MatchString(line) || cueIDRegex.MatchString(line) {
			continue
		}

		line = strings.TrimSpace(tagRegex.ReplaceAllString(line, ""))
		line = strings.ReplaceAll(line, "[Music]", "")
		line = strings.ReplaceAll(line, "[Applause]", "")
		line = strings.ReplaceAll(line, "[Laughter]", "")
		line = strings.TrimSpace(line)

		if line != "" && !seen[line] {
			seen[line] = true
			textLines = append(textLines, line)
		}
	}

	return strings.Join(textLines, " ")
}
