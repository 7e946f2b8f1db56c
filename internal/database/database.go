// Package database handles PostgreSQL connections and queries.
//
// Go Pattern: we use the `sqlx` package which extends Go's standard `database/sql`
// with convenient features like scanning rows into structs. Unlike an ORM
// (ActiveRecord, Sequelize), you write raw SQL — which gives you full control
// and helps you learn SQL properly.
//
// Go's database/sql has built-in connection pooling — you create one *sql.DB
// (or *sqlx.DB) at startup and share it across your entire application.
// It's safe for concurrent use by multiple goroutines.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver — the underscore import runs its init()

	"github.com/Shimizu-Technology/media-tools-api/internal/models"
)

// ErrNotFound is returned by lookups that find no row, so handlers can turn
// it into a 404 without string-matching sql.ErrNoRows.
var ErrNotFound = errors.New("record not found")

// ErrConflict is returned when a conditional update (regeneration) touches
// zero rows because the job's status/regen_count no longer matches.
var ErrConflict = errors.New("conflicting state")

// DB wraps the sqlx database connection with our application-specific methods.
// Go Pattern: embedding (*sqlx.DB) gives us all of sqlx's methods automatically,
// plus we can add our own. This is Go's version of inheritance — composition.
type DB struct {
	*sqlx.DB
}

// New creates a new database connection with connection pooling configured.
func New(databaseURL string) (*DB, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Go Pattern: the connection pool is managed by database/sql internally.
	// These settings prevent resource exhaustion and handle serverless
	// Postgres providers that close idle connections aggressively.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(2 * time.Minute)
	db.SetConnMaxIdleTime(30 * time.Second)

	return &DB{db}, nil
}

// HealthCheck verifies the database connection is alive.
// Go Pattern: context.Context is passed to functions that may be slow or
// need cancellation — like AbortController in JavaScript, but built into
// the language's conventions.
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.PingContext(ctx)
}

// --- Job operations ---

// CreateJob inserts a new job row in the queued state. If j.ID is empty, one
// is generated here — callers that need to know the ID before the insert
// completes (e.g. to lay out an upload's on-disk path) can set it
// themselves first.
func (db *DB) CreateJob(ctx context.Context, j *models.Job) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}

	query := `
		INSERT INTO jobs (id, source_kind, source_url, source_path, title, status, stage, percent, regen_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`

	return db.QueryRowContext(ctx, query,
		j.ID, j.SourceKind, j.SourceURL, j.SourcePath, j.Title, j.Status, j.Stage, j.Percent, j.RegenCount,
	).Scan(&j.CreatedAt, &j.UpdatedAt)
}

// SetTitle persists the job's derived title, alongside the percent the
// orchestrator is at when the title becomes known (step 3 of the fresh
// pipeline: "Persist title + percent=10").
func (db *DB) SetTitle(ctx context.Context, jobID, title string, percent int) error {
	_, err := db.ExecContext(ctx,
		`UPDATE jobs SET title = $2, percent = $3, updated_at = NOW() WHERE id = $1`,
		jobID, title, percent)
	if err != nil {
		return fmt.Errorf("set title: %w", err)
	}
	return nil
}

// GetJob retrieves a single job by ID.
func (db *DB) GetJob(ctx context.Context, id string) (*models.Job, error) {
	var j models.Job
	err := db.GetContext(ctx, &j, `SELECT * FROM jobs WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return &j, nil
}

// ListJobs returns a page of jobs ordered newest-first.
func (db *DB) ListJobs(ctx context.Context, limit, offset int) ([]models.Job, int, error) {
	var jobs []models.Job
	err := db.SelectContext(ctx, &jobs,
		`SELECT * FROM jobs ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}

	var total int
	if err := db.GetContext(ctx, &total, `SELECT COUNT(*) FROM jobs`); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}

	return jobs, total, nil
}

// UpdateProgress advances a job's status/stage/percent. Go Pattern: the
// caller always passes the full (status, stage, percent) triple together so
// the three columns can never drift out of sync with one another.
func (db *DB) UpdateProgress(ctx context.Context, jobID string, status models.JobStatus, stage string, percent int) error {
	_, err := db.ExecContext(ctx,
		`UPDATE jobs SET status = $2, stage = $3, percent = $4, updated_at = NOW() WHERE id = $1`,
		jobID, status, stage, percent)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

// MarkFailed transitions a job to failed with a classified error code.
func (db *DB) MarkFailed(ctx context.Context, jobID string, code models.ErrorCode, message string) error {
	_, err := db.ExecContext(ctx, `
		UPDATE jobs
		SET status = $2, stage = 'failed', percent = 0, error_code = $3, error_message = $4, updated_at = NOW()
		WHERE id = $1`,
		jobID, models.StatusFailed, code, message)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// SetRegenCount is used by the autofix path, which unconditionally sets the
// regen count to 1 the first time a job needs automatic revision.
func (db *DB) SetRegenCount(ctx context.Context, jobID string, count int) error {
	_, err := db.ExecContext(ctx, `UPDATE jobs SET regen_count = $2, updated_at = NOW() WHERE id = $1`, jobID, count)
	if err != nil {
		return fmt.Errorf("set regen count: %w", err)
	}
	return nil
}

// TryRegenerate atomically transitions a needs_review job back into
// reducing and bumps its regen counter, but only if it is still under
// RMAX. It returns ErrNotFound if the job does not exist, and ErrConflict
// with a reason string distinguishing "wrong status" from "limit reached".
func (db *DB) TryRegenerate(ctx context.Context, jobID string, regenMax int) (conflictReason string, err error) {
	row := db.QueryRowContext(ctx, `
		UPDATE jobs
		SET status = $3, stage = 'reducing', percent = 60, regen_count = regen_count + 1, updated_at = NOW()
		WHERE id = $1 AND status = $2 AND regen_count < $4
		RETURNING id`,
		jobID, models.StatusNeedsReview, models.StatusReducing, regenMax)

	var returnedID string
	scanErr := row.Scan(&returnedID)
	if scanErr == nil {
		return "", nil
	}
	if !errors.Is(scanErr, sql.ErrNoRows) {
		return "", fmt.Errorf("try regenerate: %w", scanErr)
	}

	// The conditional update touched nothing — find out why, so the
	// handler can return the right 404/409.
	job, getErr := db.GetJob(ctx, jobID)
	if getErr != nil {
		return "", getErr
	}
	if job.Status != models.StatusNeedsReview {
		return "status_conflict", ErrConflict
	}
	return "regenerate_limit", ErrConflict
}

// --- Transcript operations ---

// UpsertTranscript creates or replaces the transcript row for a job.
func (db *DB) UpsertTranscript(ctx context.Context, t *models.Transcript) error {
	query := `
		INSERT INTO transcripts (job_id, source, raw_text, meta_json)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (job_id) DO UPDATE
		SET source = EXCLUDED.source, raw_text = EXCLUDED.raw_text, meta_json = EXCLUDED.meta_json
		RETURNING id, created_at`

	return db.QueryRowContext(ctx, query, t.JobID, t.Source, t.RawText, t.MetaJSON).
		Scan(&t.ID, &t.CreatedAt)
}

// FindCachedTranscript looks up the most recent Transcript whose parent Job
// shares this source URL and is not excludeJobID — the transcript cache
// spec.md §4.1 step 2 describes for video-host sources. Cache key is raw
// URL string equality, no normalization (see DESIGN.md).
func (db *DB) FindCachedTranscript(ctx context.Context, url, excludeJobID string) (*models.Transcript, error) {
	var t models.Transcript
	err := db.GetContext(ctx, &t, `
		SELECT t.* FROM transcripts t
		JOIN jobs j ON j.id = t.job_id
		WHERE j.source_url = $1 AND j.id != $2
		ORDER BY t.created_at DESC
		LIMIT 1`, url, excludeJobID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find cached transcript: %w", err)
	}
	return &t, nil
}

// GetTranscriptByJob retrieves the transcript for a job.
func (db *DB) GetTranscriptByJob(ctx context.Context, jobID string) (*models.Transcript, error) {
	var t models.Transcript
	err := db.GetContext(ctx, &t, `SELECT * FROM transcripts WHERE job_id = $1`, jobID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get transcript: %w", err)
	}
	return &t, nil
}

// --- Generated content operations ---

// UpsertGeneratedContent creates or replaces the generated-content row for a
// job. Regeneration calls this again with a merged payload.
func (db *DB) UpsertGeneratedContent(ctx context.Context, jobID string, payload []byte) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO generated_content (job_id, payload_json)
		VALUES ($1, $2)
		ON CONFLICT (job_id) DO UPDATE
		SET payload_json = EXCLUDED.payload_json, updated_at = NOW()`,
		jobID, payload)
	if err != nil {
		return fmt.Errorf("upsert generated content: %w", err)
	}
	return nil
}

// GetGeneratedContent retrieves the content payload for a job.
func (db *DB) GetGeneratedContent(ctx context.Context, jobID string) (*models.GeneratedContent, error) {
	var gc models.GeneratedContent
	err := db.GetContext(ctx, &gc, `SELECT * FROM generated_content WHERE job_id = $1`, jobID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get generated content: %w", err)
	}
	return &gc, nil
}

// --- Validation operations ---

// CreateValidation appends a new validation report for a job.
func (db *DB) CreateValidation(ctx context.Context, v *models.Validation) error {
	query := `
		INSERT INTO validations (job_id, overall_verdict, report_json)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	return db.QueryRowContext(ctx, query, v.JobID, v.OverallVerdict, v.ReportJSON).
		Scan(&v.ID, &v.CreatedAt)
}

// GetLatestValidation returns the most recent validation report for a job,
// the "most recent wins" rule the orchestrator and the GET handler rely on.
func (db *DB) GetLatestValidation(ctx context.Context, jobID string) (*models.Validation, error) {
	var v models.Validation
	err := db.GetContext(ctx, &v,
		`SELECT * FROM validations WHERE job_id = $1 ORDER BY created_at DESC LIMIT 1`, jobID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get latest validation: %w", err)
	}
	return &v, nil
}
