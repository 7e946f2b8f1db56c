// Package orchestrator implements the pipeline state machine: the fresh
// pipeline and regeneration entry points, the stage/percent progress model,
// the one-shot autofix gate, and the error classification that sends a job
// to its terminal state.
//
// Go Pattern: grounded on the services/worker.processTranscript shape of the
// project this service was adapted from (load row -> set status -> do work -> save -> notify) generalized
// into an explicit multi-stage state machine, and on
// _examples/original_source/backend/app/workers/tasks.py's
// process_video_task/regenerate_task for the exact stage/percent/autofix
// sequencing.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Shimizu-Technology/media-tools-api/internal/chunker"
	"github.com/Shimizu-Technology/media-tools-api/internal/config"
	"github.com/Shimizu-Technology/media-tools-api/internal/database"
	"github.com/Shimizu-Technology/media-tools-api/internal/extractor"
	"github.com/Shimizu-Technology/media-tools-api/internal/generator"
	"github.com/Shimizu-Technology/media-tools-api/internal/models"
	"github.com/Shimizu-Technology/media-tools-api/internal/transcriber"
	"github.com/Shimizu-Technology/media-tools-api/internal/validator"
)

// Orchestrator ties together every pipeline component behind the state
// machine spec.md §4.1 describes. One Orchestrator is constructed at startup
// and shared by every worker in the pool — it holds no per-job mutable
// state of its own, that all lives in the Job row.
type Orchestrator struct {
	db          *database.DB
	extractors  *extractor.Registry
	transcriber *transcriber.Transcriber
	gen         *generator.Generator
	val         *validator.Validator
	cfg         *config.Config
}

// New builds an Orchestrator.
func New(db *database.DB, extractors *extractor.Registry, tr *transcriber.Transcriber, gen *generator.Generator, val *validator.Validator, cfg *config.Config) *Orchestrator {
	return &Orchestrator{db: db, extractors: extractors, transcriber: tr, gen: gen, val: val, cfg: cfg}
}

// RunPipeline runs a job from queued through to a terminal state: approved,
// needs_review, or failed. It never returns an error to the caller — every
// failure is caught and committed as the job's failed terminal state; the
// worker pool logs and moves on, matching spec.md's "log and return, no
// re-raise" failure policy for the top-level entry point.
func (o *Orchestrator) RunPipeline(ctx context.Context, jobID string) {
	job, err := o.db.GetJob(ctx, jobID)
	if err != nil {
		log.Printf("⚠️  orchestrator: job %s not found, skipping: %v", jobID, err)
		return
	}

	workDir := filepath.Join(o.cfg.WorkDir, job.ID)
	defer os.RemoveAll(workDir)

	if runErr := o.runFresh(ctx, job, workDir); runErr != nil {
		o.fail(ctx, job.ID, runErr)
	}
}

// RunRegeneration re-runs chunking through validation restricted to the
// failed channels from the job's latest validation report. The HTTP
// regenerate handler enqueues this only after its atomic conditional update
// has already flipped the job to reducing; a missing job is logged and
// skipped here, and a job whose status is not needs_review or reducing is
// left untouched.
func (o *Orchestrator) RunRegeneration(ctx context.Context, jobID string) {
	job, err := o.db.GetJob(ctx, jobID)
	if err != nil {
		log.Printf("⚠️  orchestrator: job %s not found, skipping regeneration: %v", jobID, err)
		return
	}

	workDir := filepath.Join(o.cfg.WorkDir, job.ID)
	defer os.RemoveAll(workDir)

	if runErr := o.runRegeneration(ctx, job); runErr != nil {
		o.fail(ctx, job.ID, runErr)
	}
}

func (o *Orchestrator) runFresh(ctx context.Context, job *models.Job, workDir string) error {
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return fmt.Errorf("internal_error: create work dir: %w", err)
	}

	// --- Step 2: extract -------------------------------------------------
	if err := o.db.UpdateProgress(ctx, job.ID, models.StatusExtracting, "extracting", 0); err != nil {
		return fmt.Errorf("internal_error: %w", err)
	}

	var rawText string
	var meta map[string]interface{}
	var label models.TranscriptLabel
	fromCache := false

	if job.SourceKind == models.SourceVideoHost && job.SourceURL != nil {
		if cached, err := o.db.FindCachedTranscript(ctx, *job.SourceURL, job.ID); err == nil {
			rawText = cached.RawText
			meta = map[string]interface{}{}
			_ = json.Unmarshal(cached.MetaJSON, &meta)
			label = cached.Source
			fromCache = true
		}
	}

	var audioPath string
	needsTranscription := false

	if !fromCache {
		ext, err := o.extractors.Get(job.SourceKind)
		if err != nil {
			return fmt.Errorf("internal_error: %w", err)
		}
		result, err := ext.Extract(ctx, job)
		if err != nil {
			return err
		}
		meta = result.Meta
		if result.NeedsTranscription {
			needsTranscription = true
			audioPath = result.AudioPath
		} else {
			rawText = result.Text
			label = result.Label
		}
	}

	title := deriveTitle(job, meta)
	if err := o.db.SetTitle(ctx, job.ID, title, 10); err != nil {
		return fmt.Errorf("internal_error: %w", err)
	}

	// --- Step 4: transcribe ------------------------------------------------
	if err := o.db.UpdateProgress(ctx, job.ID, models.StatusTranscribing, "transcribing", 10); err != nil {
		return fmt.Errorf("internal_error: %w", err)
	}

	if needsTranscription {
		whisper, err := o.transcriber.Transcribe(ctx, audioPath)
		if err != nil {
			return err
		}
		rawText = whisper.Text
		label = models.LabelWhisper
		if meta == nil {
			meta = map[string]interface{}{}
		}
		meta["language"] = whisper.Language
		meta["segment_count"] = whisper.Segments
	}

	if strings.TrimSpace(rawText) == "" {
		return fmt.Errorf("transcript_unavailable: no text produced for job %s", job.ID)
	}

	metaJSON, _ := json.Marshal(meta)
	transcript := &models.Transcript{JobID: job.ID, Source: label, RawText: rawText, MetaJSON: metaJSON}
	if err := o.db.UpsertTranscript(ctx, transcript); err != nil {
		return fmt.Errorf("internal_error: %w", err)
	}
	if err := o.db.UpdateProgress(ctx, job.ID, models.StatusTranscribing, "transcribing", 30); err != nil {
		return fmt.Errorf("internal_error: %w", err)
	}

	// --- Step 5: chunk -------------------------------------------------
	if err := o.db.UpdateProgress(ctx, job.ID, models.StatusChunking, "chunking", 30); err != nil {
		return fmt.Errorf("internal_error: %w", err)
	}
	chunks := chunker.Chunk(rawText, chunker.DefaultWindow, chunker.DefaultOverlap)
	if len(chunks) > o.cfg.MaxChunks {
		return fmt.Errorf("too_many_chunks: %d exceeds limit of %d", len(chunks), o.cfg.MaxChunks)
	}
	if err := o.db.UpdateProgress(ctx, job.ID, models.StatusChunking, "chunking", 35); err != nil {
		return fmt.Errorf("internal_error: %w", err)
	}

	// --- Step 6: map ------------------------------------------------------
	if err := o.db.UpdateProgress(ctx, job.ID, models.StatusMapping, "mapping", 35); err != nil {
		return fmt.Errorf("internal_error: %w", err)
	}
	summaries, err := o.gen.MapChunks(ctx, chunks)
	if err != nil {
		return err
	}
	if err := o.db.UpdateProgress(ctx, job.ID, models.StatusMapping, "mapping", 60); err != nil {
		return fmt.Errorf("internal_error: %w", err)
	}

	// --- Step 7: reduce ------------------------------------------------
	if err := o.db.UpdateProgress(ctx, job.ID, models.StatusReducing, "reducing", 60); err != nil {
		return fmt.Errorf("internal_error: %w", err)
	}
	content, err := o.gen.Reduce(ctx, generator.ReduceInput{Summaries: summaries})
	if err != nil {
		return err
	}
	if err := o.saveContent(ctx, job.ID, content); err != nil {
		return fmt.Errorf("internal_error: %w", err)
	}
	if err := o.db.UpdateProgress(ctx, job.ID, models.StatusReducing, "reducing", 85); err != nil {
		return fmt.Errorf("internal_error: %w", err)
	}

	// --- Step 8: validate ------------------------------------------------
	if err := o.db.UpdateProgress(ctx, job.ID, models.StatusValidating, "validating", 85); err != nil {
		return fmt.Errorf("internal_error: %w", err)
	}
	validationSource := validationSourceText(content, rawText)
	result, err := o.val.Validate(ctx, content, validationSource, nil)
	if err != nil {
		return err
	}
	if err := o.appendValidation(ctx, job.ID, result); err != nil {
		return fmt.Errorf("internal_error: %w", err)
	}

	// --- Step 9: autofix gate --------------------------------------------
	if result.OverallVerdict == validator.VerdictNeedsRevision && job.RegenCount == 0 {
		failedKeys := validator.FailedChannelKeys(result.Report)
		if err := o.db.SetRegenCount(ctx, job.ID, 1); err != nil {
			return fmt.Errorf("internal_error: %w", err)
		}
		if err := o.db.UpdateProgress(ctx, job.ID, models.StatusReducing, "reducing", 60); err != nil {
			return fmt.Errorf("internal_error: %w", err)
		}

		previousTexts := previousTextsFrom(content)
		fixed, err := o.gen.Reduce(ctx, generator.ReduceInput{
			Summaries:        summaries,
			ValidationReport: reportToRawMessages(result.Report),
			PreviousTexts:    previousTexts,
			RestrictToKeys:   failedKeys,
		})
		if err != nil {
			return err
		}
		content = mergeContent(content, fixed)
		if err := o.saveContent(ctx, job.ID, content); err != nil {
			return fmt.Errorf("internal_error: %w", err)
		}

		if err := o.db.UpdateProgress(ctx, job.ID, models.StatusValidating, "validating", 85); err != nil {
			return fmt.Errorf("internal_error: %w", err)
		}
		newValidationSource := validationSourceText(content, rawText)
		newResult, err := o.val.Validate(ctx, content, newValidationSource, failedKeys)
		if err != nil {
			return err
		}
		merged := validator.Result{
			Report: validator.MergeReports(result.Report, newResult.Report),
		}
		merged.OverallVerdict = overallVerdictOf(merged.Report)
		if err := o.appendValidation(ctx, job.ID, &merged); err != nil {
			return fmt.Errorf("internal_error: %w", err)
		}
		result = &merged
	}

	return o.finalize(ctx, job.ID, result.OverallVerdict)
}

func (o *Orchestrator) runRegeneration(ctx context.Context, job *models.Job) error {
	if job.Status != models.StatusNeedsReview && job.Status != models.StatusReducing {
		return nil
	}

	latest, err := o.db.GetLatestValidation(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("internal_error: %w", err)
	}
	var prevReport validator.Report
	if err := json.Unmarshal(latest.ReportJSON, &prevReport); err != nil {
		return fmt.Errorf("internal_error: parse prior validation report: %w", err)
	}
	failedKeys := validator.FailedChannelKeys(prevReport)
	if len(failedKeys) == 0 {
		return nil
	}

	transcript, err := o.db.GetTranscriptByJob(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("internal_error: %w", err)
	}

	gc, err := o.db.GetGeneratedContent(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("internal_error: %w", err)
	}
	var previousContent map[string]interface{}
	if err := json.Unmarshal(gc.Payload, &previousContent); err != nil {
		return fmt.Errorf("internal_error: parse prior content: %w", err)
	}

	if err := o.db.UpdateProgress(ctx, job.ID, models.StatusChunking, "chunking", 30); err != nil {
		return fmt.Errorf("internal_error: %w", err)
	}
	chunks := chunker.Chunk(transcript.RawText, chunker.DefaultWindow, chunker.DefaultOverlap)
	if len(chunks) > o.cfg.MaxChunks {
		return fmt.Errorf("too_many_chunks: %d exceeds limit of %d", len(chunks), o.cfg.MaxChunks)
	}

	if err := o.db.UpdateProgress(ctx, job.ID, models.StatusMapping, "mapping", 35); err != nil {
		return fmt.Errorf("internal_error: %w", err)
	}
	summaries, err := o.gen.MapChunks(ctx, chunks)
	if err != nil {
		return err
	}

	if err := o.db.UpdateProgress(ctx, job.ID, models.StatusReducing, "reducing", 60); err != nil {
		return fmt.Errorf("internal_error: %w", err)
	}
	previousTexts := previousTextsFrom(previousContent)
	fixed, err := o.gen.Reduce(ctx, generator.ReduceInput{
		Summaries:        summaries,
		ValidationReport: reportToRawMessages(prevReport),
		PreviousTexts:    previousTexts,
		RestrictToKeys:   failedKeys,
	})
	if err != nil {
		return err
	}
	content := mergeContent(previousContent, fixed)
	if err := o.saveContent(ctx, job.ID, content); err != nil {
		return fmt.Errorf("internal_error: %w", err)
	}

	if err := o.db.UpdateProgress(ctx, job.ID, models.StatusValidating, "validating", 85); err != nil {
		return fmt.Errorf("internal_error: %w", err)
	}
	validationSource := validationSourceText(content, transcript.RawText)
	newResult, err := o.val.Validate(ctx, content, validationSource, failedKeys)
	if err != nil {
		return err
	}
	merged := validator.Result{Report: validator.MergeReports(prevReport, newResult.Report)}
	merged.OverallVerdict = overallVerdictOf(merged.Report)
	if err := o.appendValidation(ctx, job.ID, &merged); err != nil {
		return fmt.Errorf("internal_error: %w", err)
	}

	return o.finalize(ctx, job.ID, merged.OverallVerdict)
}

func (o *Orchestrator) finalize(ctx context.Context, jobID, overallVerdict string) error {
	if overallVerdict == validator.VerdictApproved {
		return o.db.UpdateProgress(ctx, jobID, models.StatusApproved, "done", 100)
	}
	return o.db.UpdateProgress(ctx, jobID, models.StatusNeedsReview, "done", 100)
}

func (o *Orchestrator) saveContent(ctx context.Context, jobID string, content map[string]interface{}) error {
	payload, err := json.Marshal(content)
	if err != nil {
		return err
	}
	return o.db.UpsertGeneratedContent(ctx, jobID, payload)
}

func (o *Orchestrator) appendValidation(ctx context.Context, jobID string, result *validator.Result) error {
	reportJSON, err := json.Marshal(result.Report)
	if err != nil {
		return err
	}
	v := &models.Validation{JobID: jobID, OverallVerdict: result.OverallVerdict, ReportJSON: reportJSON}
	return o.db.CreateValidation(ctx, v)
}

// fail rolls the job back to its failed terminal state with a classified
// error code, per spec.md §4.1/§7's classifier.
func (o *Orchestrator) fail(ctx context.Context, jobID string, runErr error) {
	code, msg := classify(runErr)
	if err := o.db.MarkFailed(ctx, jobID, code, msg); err != nil {
		log.Printf("❌ orchestrator: job %s failed (%s: %s) and could not be marked failed: %v", jobID, code, msg, err)
		return
	}
	log.Printf("❌ orchestrator: job %s -> failed (%s): %s", jobID, code, msg)
}

var llmErrorPattern = regexp.MustCompile(`(?i)llm|openai`)

// classify maps an internal error to the job row's persisted error code,
// matching the literal-token classifier spec.md §4.1 describes.
func classify(err error) (models.ErrorCode, string) {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "video_too_long"):
		return models.ErrVideoTooLong, msg
	case strings.Contains(msg, "too_many_chunks"):
		return models.ErrTooManyChunks, msg
	case strings.Contains(msg, "transcript_unavailable"):
		return models.ErrTranscriptUnavailable, msg
	case llmErrorPattern.MatchString(msg):
		return models.ErrLLM, msg
	default:
		return models.ErrInternal, msg
	}
}

// deriveTitle prefers extractor metadata, then the uploaded file's
// basename, then the raw URL, per spec.md §4.1 step 3.
func deriveTitle(job *models.Job, meta map[string]interface{}) string {
	if meta != nil {
		if t, ok := meta["title"].(string); ok && t != "" {
			return t
		}
	}
	if job.SourcePath != nil && *job.SourcePath != "" {
		base := filepath.Base(*job.SourcePath)
		return strings.TrimSuffix(base, filepath.Ext(base))
	}
	if job.SourceURL != nil {
		return *job.SourceURL
	}
	return "untitled"
}

// validationSourceText is the reduce summary text, falling back to the raw
// transcript if the summary came back empty.
func validationSourceText(content map[string]interface{}, rawText string) string {
	if s, ok := content[models.ReduceSummaryKey].(string); ok && strings.TrimSpace(s) != "" {
		return s
	}
	return rawText
}

// previousTextsFrom extracts the string-valued channel artifacts from a
// content payload, for passing as revision context to a partial reduce.
func previousTextsFrom(content map[string]interface{}) map[string]string {
	out := make(map[string]string, len(content))
	for k, v := range content {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

// mergeContent layers fixed artifacts on top of the previous content
// payload in a new map — only the channels in fixed change, and previous
// itself is left unmodified.
func mergeContent(previous, fixed map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(previous)+len(fixed))
	for k, v := range previous {
		merged[k] = v
	}
	for k, v := range fixed {
		merged[k] = v
	}
	return merged
}

// reportToRawMessages re-encodes a validator.Report as the
// map[string]json.RawMessage shape the generator's revision addendum
// expects (one JSON blob per platform, to embed verbatim in the prompt).
func reportToRawMessages(report validator.Report) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(report))
	for platform, entry := range report {
		raw, err := json.Marshal(entry)
		if err != nil {
			continue
		}
		out[platform] = raw
	}
	return out
}

func overallVerdictOf(report validator.Report) string {
	for _, entry := range report {
		if validator.FailedChannel(entry) {
			return validator.VerdictNeedsRevision
		}
	}
	return validator.VerdictApproved
}
