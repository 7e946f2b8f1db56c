// Package models defines the data structures used throughout the application.
//
// Go Pattern: Models are plain structs with JSON tags for serialization.
// Unlike Ruby's ActiveRecord or JavaScript's Mongoose, Go models are just
// data containers — no ORM magic. The database package handles persistence.
//
// JSON tags (e.g., `json:"id"`) control how struct fields are serialized
// to/from JSON. The `db` tags work with sqlx for database column mapping.
package models

import (
	"encoding/json"
	"time"
)

// JobStatus represents where a job sits in the pipeline's state machine.
// Go Pattern: we use string constants instead of enums (Go doesn't have
// enums) — a named type plus a block of consts is the idiomatic stand-in.
type JobStatus string

const (
	StatusQueued       JobStatus = "queued"
	StatusExtracting   JobStatus = "extracting"
	StatusTranscribing JobStatus = "transcribing"
	StatusChunking     JobStatus = "chunking"
	StatusMapping      JobStatus = "mapping"
	StatusReducing     JobStatus = "reducing"
	StatusValidating   JobStatus = "validating"
	StatusApproved     JobStatus = "approved"
	StatusNeedsReview  JobStatus = "needs_review"
	StatusFailed       JobStatus = "failed"
)

// SourceKind identifies what a job's input actually is, which in turn picks
// the extractor the orchestrator dispatches to.
type SourceKind string

const (
	SourceVideoHost  SourceKind = "video-host"
	SourceArticleURL SourceKind = "article-url"
	SourcePDFFile    SourceKind = "pdf-file"
	SourceEPUBFile   SourceKind = "epub-file"
)

// ErrorCode classifies a failed job for the client, per the taxonomy the
// orchestrator applies when it catches a terminal error.
type ErrorCode string

const (
	ErrVideoTooLong         ErrorCode = "video_too_long"
	ErrTooManyChunks        ErrorCode = "too_many_chunks"
	ErrTranscriptUnavailable ErrorCode = "transcript_unavailable"
	ErrLLM                  ErrorCode = "llm_error"
	ErrInternal             ErrorCode = "internal_error"
)

// Channel catalog, in the fixed order the map/reduce stage always uses.
// emits_json distinguishes the single structured (storyboard) channel from
// the four free-text channels.
type ChannelDef struct {
	PayloadKey string
	Platform   string
	EmitsJSON  bool
}

// ReduceSummaryKey is the reserved payload key the reduce stage stores the
// joined per-chunk summaries under, alongside the five channel outputs.
const ReduceSummaryKey = "reduce_summary_text"

var ChannelCatalog = []ChannelDef{
	{PayloadKey: "medium_text", Platform: "medium", EmitsJSON: false},
	{PayloadKey: "habr_text", Platform: "habr", EmitsJSON: false},
	{PayloadKey: "linkedin_text", Platform: "linkedin", EmitsJSON: false},
	{PayloadKey: "research_article", Platform: "research_article", EmitsJSON: false},
	{PayloadKey: "banana_video_prompt", Platform: "banana_video_prompt", EmitsJSON: true},
}

// Job represents one submission through the pipeline: a URL or an uploaded
// file, tracked through every state until it lands on approved/needs_review
// or fails.
type Job struct {
	ID           string     `json:"id" db:"id"`
	SourceKind   SourceKind `json:"source_kind" db:"source_kind"`
	SourceURL    *string    `json:"source_url,omitempty" db:"source_url"`
	SourcePath   *string    `json:"-" db:"source_path"` // server-local path, never serialized
	Title        *string    `json:"title,omitempty" db:"title"`
	Status       JobStatus  `json:"status" db:"status"`
	Stage        string     `json:"stage" db:"stage"`
	Percent      int        `json:"percent" db:"percent"`
	RegenCount   int        `json:"regen_count" db:"regen_count"`
	ErrorCode    *string    `json:"error_code,omitempty" db:"error_code"`
	ErrorMessage *string    `json:"error_message,omitempty" db:"error_message"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// TranscriptLabel records how a Transcript's raw text was obtained —
// distinct from SourceKind, since a video-host job can land on either
// "captions" or "whisper" depending on whether usable captions existed.
type TranscriptLabel string

const (
	LabelCaptions TranscriptLabel = "captions"
	LabelWhisper  TranscriptLabel = "whisper"
	LabelPDF      TranscriptLabel = "pdf"
	LabelEPUB     TranscriptLabel = "epub"
	LabelWeb      TranscriptLabel = "web"
)

// Transcript holds the extracted (and, if necessary, transcribed) raw text
// for a job, one row per job.
type Transcript struct {
	ID        string          `json:"id" db:"id"`
	JobID     string          `json:"job_id" db:"job_id"`
	Source    TranscriptLabel `json:"source" db:"source"`
	RawText   string          `json:"raw_text" db:"raw_text"`
	MetaJSON  json.RawMessage `json:"meta" db:"meta_json"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// GeneratedContent is the map/reduce stage's output: the five channel
// artifacts plus the joined chunk-summary text, one row per job (later
// regenerations overwrite it in place).
type GeneratedContent struct {
	ID        string          `json:"id" db:"id"`
	JobID     string          `json:"job_id" db:"job_id"`
	Payload   json.RawMessage `json:"payload" db:"payload_json"` // map[string]any keyed by payload_key
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// Validation is the validator stage's verdict, append-only so past reports
// remain available even after a regeneration produces a new one.
type Validation struct {
	ID             string          `json:"id" db:"id"`
	JobID          string          `json:"job_id" db:"job_id"`
	OverallVerdict string          `json:"overall_verdict" db:"overall_verdict"` // "approved" or "needs_revision"
	ReportJSON     json.RawMessage `json:"report" db:"report_json"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// --- Request/Response DTOs (Data Transfer Objects) ---
// Go Pattern: separate structs for API input/output vs database models —
// keeps the API contract independent of the schema.

// CreateSourceRequest is the JSON body for POST /api/sources.
type CreateSourceRequest struct {
	URL        string `json:"url" binding:"required"`
	SourceType string `json:"source_type" binding:"required"` // "youtube" or "web"
}

// SourceListParams holds query parameters for GET /api/sources.
type SourceListParams struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

// PaginatedResponse wraps a list response with pagination metadata.
// Go Pattern: generics (Go 1.18+) let us build one type-safe container
// instead of one per list endpoint.
type PaginatedResponse[T any] struct {
	Items  []T `json:"items"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

// Progress is the nested {stage,percent} object in a SourceResponse.
type Progress struct {
	Stage   string `json:"stage"`
	Percent int    `json:"percent"`
}

// ErrorInfo is the nested {code,message} object in a SourceResponse.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SourceResponse is the JSON shape GET /api/sources/{id} and the list
// endpoint return. ContentPayload and ValidationReport are gated by status —
// see internal/handler for the exact rule.
type SourceResponse struct {
	SourceID         string                 `json:"source_id"`
	SourceType       SourceKind             `json:"source_type"`
	Title            *string                `json:"title,omitempty"`
	Status           JobStatus              `json:"status"`
	Progress         *Progress              `json:"progress,omitempty"`
	Error            *ErrorInfo             `json:"error,omitempty"`
	ContentPayload   map[string]interface{} `json:"content_payload,omitempty"`
	ValidationReport json.RawMessage        `json:"validation_report,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// ErrorDetail is the innermost object of the error envelope.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is the middle layer of the error envelope: {"error":{...}}.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorEnvelope is the standard error response shape for every non-2xx
// response: {"detail":{"error":{"code":...,"message":...}}}.
type ErrorEnvelope struct {
	Detail ErrorResponse `json:"detail"`
}

// NewErrorEnvelope builds an ErrorEnvelope for the given code/message pair.
func NewErrorEnvelope(code, message string) ErrorEnvelope {
	return ErrorEnvelope{Detail: ErrorResponse{Error: ErrorDetail{Code: code, Message: message}}}
}

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Database string `json:"database"`
	Workers  int    `json:"workers"`
}
