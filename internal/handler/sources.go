// sources.go handles the source submission/status/regeneration endpoints —
// the entire client-facing surface of the content pipeline.
package handler

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Shimizu-Technology/media-tools-api/internal/database"
	"github.com/Shimizu-Technology/media-tools-api/internal/extractor"
	"github.com/Shimizu-Technology/media-tools-api/internal/models"
	"github.com/Shimizu-Technology/media-tools-api/internal/worker"
)

var blockedSchemes = map[string]bool{
	"file":       true,
	"ftp":        true,
	"gopher":     true,
	"data":       true,
	"javascript": true,
}

var schemePattern = regexp.MustCompile(`^([a-zA-Z][a-zA-Z0-9+.-]*):`)

var youtubePattern = regexp.MustCompile(`^(https?://)?(www\.)?(youtube\.com/watch\?v=|youtu\.be/)[\w\-]{11}`)
var webPattern = regexp.MustCompile(`^https?://`)

// validateSourceURL enforces the scheme allowlist (P9) and the per-type
// shape check, returning a user-facing message on rejection.
func validateSourceURL(sourceType, rawURL string) (models.SourceKind, error) {
	if m := schemePattern.FindStringSubmatch(rawURL); m != nil {
		if blockedSchemes[strings.ToLower(m[1])] {
			return "", fmt.Errorf("scheme %q is not allowed", m[1])
		}
	}

	switch sourceType {
	case "youtube":
		if !youtubePattern.MatchString(rawURL) {
			return "", fmt.Errorf("url does not look like a youtube video url")
		}
		return models.SourceVideoHost, nil
	case "web":
		if !webPattern.MatchString(rawURL) {
			return "", fmt.Errorf("url must start with http:// or https://")
		}
		return models.SourceArticleURL, nil
	default:
		return "", fmt.Errorf("source_type must be %q or %q", "youtube", "web")
	}
}

// CreateSource starts a pipeline run for a video or article URL.
// POST /api/sources
func (h *Handler) CreateSource(c *gin.Context) {
	var req models.CreateSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, models.NewErrorEnvelope("invalid_request", err.Error()))
		return
	}

	kind, err := validateSourceURL(req.SourceType, req.URL)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, models.NewErrorEnvelope("invalid_url", err.Error()))
		return
	}

	job := &models.Job{
		SourceKind: kind,
		SourceURL:  &req.URL,
		Status:     models.StatusQueued,
		Stage:      "queued",
		Percent:    0,
	}

	if err := h.DB.CreateJob(c.Request.Context(), job); err != nil {
		log.Printf("❌ Failed to create job: %v", err)
		c.JSON(http.StatusInternalServerError, models.NewErrorEnvelope("internal_error", "failed to create source"))
		return
	}

	if err := h.Worker.Submit(worker.Task{JobID: job.ID, Kind: worker.KindPipeline}); err != nil {
		log.Printf("⚠️  Failed to queue pipeline job %s: %v", job.ID, err)
	}

	c.JSON(http.StatusCreated, toSourceResponse(job, nil, nil))
}

// UploadSource starts a pipeline run for an uploaded PDF or EPUB file.
// POST /api/sources/upload
func (h *Handler) UploadSource(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, models.NewErrorEnvelope("invalid_request", "multipart field 'file' is required"))
		return
	}

	if fileHeader.Size > h.Cfg.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, models.NewErrorEnvelope("file_too_large",
			fmt.Sprintf("upload exceeds the %d byte limit", h.Cfg.MaxUploadBytes)))
		return
	}

	// P8: reduce the filename to its basename and strip NUL bytes before
	// it ever touches the filesystem, neutralizing path traversal.
	safeName := sanitizeFilename(fileHeader.Filename)
	ext := strings.ToLower(filepath.Ext(safeName))

	var kind models.SourceKind
	switch ext {
	case ".pdf":
		kind = models.SourcePDFFile
	case ".epub":
		kind = models.SourceEPUBFile
	default:
		c.JSON(http.StatusUnprocessableEntity, models.NewErrorEnvelope("invalid_file_type", "only .pdf and .epub uploads are accepted"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.NewErrorEnvelope("internal_error", "failed to read upload"))
		return
	}
	defer file.Close()

	head := make([]byte, 8)
	n, _ := file.Read(head)
	head = head[:n]

	// P10: magic-byte gate, checked before any row is written.
	if kind == models.SourcePDFFile && !extractor.ValidatePDF(head) {
		c.JSON(http.StatusUnprocessableEntity, models.NewErrorEnvelope("invalid_file_content", "file does not look like a PDF"))
		return
	}
	if kind == models.SourceEPUBFile && !extractor.ValidateEPUB(head) {
		c.JSON(http.StatusUnprocessableEntity, models.NewErrorEnvelope("invalid_file_content", "file does not look like an EPUB"))
		return
	}

	job := &models.Job{
		SourceKind: kind,
		Status:     models.StatusQueued,
		Stage:      "queued",
		Percent:    0,
	}
	job.ID = uuid.NewString()

	destDir := filepath.Join(h.Cfg.WorkDir, job.ID)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		c.JSON(http.StatusInternalServerError, models.NewErrorEnvelope("internal_error", "failed to prepare upload directory"))
		return
	}
	destPath := filepath.Join(destDir, safeName)

	if err := c.SaveUploadedFile(fileHeader, destPath); err != nil {
		c.JSON(http.StatusInternalServerError, models.NewErrorEnvelope("internal_error", "failed to store upload"))
		return
	}
	job.SourcePath = &destPath

	if err := h.DB.CreateJob(c.Request.Context(), job); err != nil {
		log.Printf("❌ Failed to create upload job: %v", err)
		c.JSON(http.StatusInternalServerError, models.NewErrorEnvelope("internal_error", "failed to create source"))
		return
	}

	if err := h.Worker.Submit(worker.Task{JobID: job.ID, Kind: worker.KindPipeline}); err != nil {
		log.Printf("⚠️  Failed to queue pipeline job %s: %v", job.ID, err)
	}

	c.JSON(http.StatusCreated, toSourceResponse(job, nil, nil))
}

// ListSources returns a page of sources ordered newest-first.
// GET /api/sources
func (h *Handler) ListSources(c *gin.Context) {
	var params models.SourceListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusUnprocessableEntity, models.NewErrorEnvelope("invalid_params", err.Error()))
		return
	}
	if params.Limit <= 0 {
		params.Limit = 20
	}
	if params.Limit > 100 {
		params.Limit = 100
	}
	if params.Offset < 0 {
		params.Offset = 0
	}

	jobs, total, err := h.DB.ListJobs(c.Request.Context(), params.Limit, params.Offset)
	if err != nil {
		log.Printf("❌ Failed to list jobs: %v", err)
		c.JSON(http.StatusInternalServerError, models.NewErrorEnvelope("internal_error", "failed to list sources"))
		return
	}

	items := make([]models.SourceResponse, 0, len(jobs))
	for i := range jobs {
		items = append(items, *h.responseFor(c, &jobs[i]))
	}

	c.JSON(http.StatusOK, models.PaginatedResponse[models.SourceResponse]{
		Items:  items,
		Limit:  params.Limit,
		Offset: params.Offset,
		Total:  total,
	})
}

// GetSource retrieves a single source's status, gated content, and gated
// validation report.
// GET /api/sources/{id}
func (h *Handler) GetSource(c *gin.Context) {
	id := c.Param("id")

	job, err := h.DB.GetJob(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, models.NewErrorEnvelope("not_found", "source not found"))
		return
	}

	c.JSON(http.StatusOK, h.responseFor(c, job))
}

// RegenerateSource re-triggers a restricted regeneration for a job stuck in
// needs_review, atomically bumping its regen counter and bounding it by
// RMAX.
// POST /api/sources/{id}/regenerate
func (h *Handler) RegenerateSource(c *gin.Context) {
	id := c.Param("id")

	const regenMax = 3 // RMAX

	conflictReason, err := h.DB.TryRegenerate(c.Request.Context(), id, regenMax)
	if err != nil {
		switch {
		case err == database.ErrNotFound:
			c.JSON(http.StatusNotFound, models.NewErrorEnvelope("not_found", "source not found"))
		case err == database.ErrConflict && conflictReason == "status_conflict":
			c.JSON(http.StatusConflict, models.NewErrorEnvelope("status_conflict", "source is not awaiting review"))
		case err == database.ErrConflict && conflictReason == "regenerate_limit":
			c.JSON(http.StatusConflict, models.NewErrorEnvelope("regenerate_limit", "regeneration limit reached"))
		default:
			log.Printf("❌ Failed to regenerate job %s: %v", id, err)
			c.JSON(http.StatusInternalServerError, models.NewErrorEnvelope("internal_error", "failed to regenerate"))
		}
		return
	}

	if err := h.Worker.Submit(worker.Task{JobID: id, Kind: worker.KindRegeneration}); err != nil {
		log.Printf("⚠️  Failed to queue regeneration job %s: %v", id, err)
	}

	c.JSON(http.StatusOK, gin.H{"source_id": id, "status": string(models.StatusReducing)})
}

// responseFor builds the gated SourceResponse for a job: content_payload
// only when approved, validation_report only when needs_review (P5).
func (h *Handler) responseFor(c *gin.Context, job *models.Job) *models.SourceResponse {
	var content map[string]interface{}
	var report json.RawMessage

	if job.Status == models.StatusApproved {
		if gc, err := h.DB.GetGeneratedContent(c.Request.Context(), job.ID); err == nil {
			_ = json.Unmarshal(gc.Payload, &content)
		}
	}
	if job.Status == models.StatusNeedsReview {
		if v, err := h.DB.GetLatestValidation(c.Request.Context(), job.ID); err == nil {
			report = v.ReportJSON
		}
	}

	return toSourceResponse(job, content, report)
}

func toSourceResponse(job *models.Job, content map[string]interface{}, report json.RawMessage) *models.SourceResponse {
	resp := &models.SourceResponse{
		SourceID:         job.ID,
		SourceType:       job.SourceKind,
		Title:            job.Title,
		Status:           job.Status,
		Progress:         &models.Progress{Stage: job.Stage, Percent: job.Percent},
		ContentPayload:   content,
		ValidationReport: report,
		CreatedAt:        job.CreatedAt,
		UpdatedAt:        job.UpdatedAt,
	}
	if job.ErrorCode != nil {
		resp.Error = &models.ErrorInfo{Code: *job.ErrorCode, Message: derefOr(job.ErrorMessage, "")}
	}
	return resp
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

// sanitizeFilename reduces an upload's client-supplied filename to its
// basename and strips NUL bytes, so a value like "../../etc/cron.d/evil.pdf"
// can never escape the job's upload directory (P8).
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\x00", "")
	return filepath.Base(name)
}

