package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"photoflow/internal/domain"
)

// JobRepositoryPG implements domain.JobRepository.
type JobRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(pool *pgxpool.Pool) *JobRepositoryPG {
	return &JobRepositoryPG{pool: pool}
}

// Create inserts a new enhancement job in the queued state.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.EnhancementJob) error {
	imageIDs, err := json.Marshal(job.ImageIDs)
	if err != nil {
		return fmt.Errorf("repo: encode image ids: %w", err)
	}
	query := `
INSERT INTO enhancement_jobs (id, status, preset, adjustments, image_ids, current, total, message)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
`
	_, err = r.pool.Exec(ctx, query,
		job.ID,
		job.Status,
		job.Preset,
		nullableBytes(job.AdjustmentsJSON),
		imageIDs,
		job.Current,
		job.Total,
		job.Message,
	)
	if err != nil {
		return fmt.Errorf("repo: insert job: %w", err)
	}
	return nil
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.EnhancementJob, error) {
	query := selectJob + `WHERE id = $1;`
	job, err := scanJob(r.pool.QueryRow(ctx, query, jobID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

// ClaimNextQueued atomically moves the oldest queued job to started and
// returns it. SKIP LOCKED keeps concurrent workers from claiming the same
// row.
func (r *JobRepositoryPG) ClaimNextQueued(ctx context.Context) (*domain.EnhancementJob, error) {
	query := `
UPDATE enhancement_jobs
SET status = 'started',
    updated_at = NOW()
WHERE id = (
    SELECT id FROM enhancement_jobs
    WHERE status = 'queued'
    ORDER BY created_at
    FOR UPDATE SKIP LOCKED
    LIMIT 1
)
RETURNING id, status, preset, adjustments, image_ids, current, total, message,
          successful, failed, duration_seconds, error_message, created_at, updated_at;
`
	job, err := scanJob(r.pool.QueryRow(ctx, query))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

// UpdateProgress advances the job's progress meta.
func (r *JobRepositoryPG) UpdateProgress(ctx context.Context, jobID string, status domain.JobStatus, current int, message string) error {
	query := `
UPDATE enhancement_jobs
SET status = $2,
    current = $3,
    message = $4,
    updated_at = NOW()
WHERE id = $1;
`
	tag, err := r.pool.Exec(ctx, query, jobID, status, current, message)
	if err != nil {
		return fmt.Errorf("repo: update progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Finish records the terminal status and result summary.
func (r *JobRepositoryPG) Finish(ctx context.Context, jobID string, status domain.JobStatus, summary domain.ResultSummary, errMsg string) error {
	query := `
UPDATE enhancement_jobs
SET status = $2,
    current = total,
    successful = $3,
    failed = $4,
    duration_seconds = $5,
    error_message = $6,
    updated_at = NOW()
WHERE id = $1;
`
	tag, err := r.pool.Exec(ctx, query, jobID, status, summary.Successful, summary.Failed, summary.DurationSeconds, errMsg)
	if err != nil {
		return fmt.Errorf("repo: finish job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

const selectJob = `
SELECT id, status, preset, adjustments, image_ids, current, total, message,
       successful, failed, duration_seconds, error_message, created_at, updated_at
FROM enhancement_jobs
`

func scanJob(row rowScanner) (*domain.EnhancementJob, error) {
	var job domain.EnhancementJob
	var adjustments, imageIDs []byte
	if err := row.Scan(
		&job.ID,
		&job.Status,
		&job.Preset,
		&adjustments,
		&imageIDs,
		&job.Current,
		&job.Total,
		&job.Message,
		&job.Successful,
		&job.Failed,
		&job.DurationSeconds,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(imageIDs) > 0 {
		if err := json.Unmarshal(imageIDs, &job.ImageIDs); err != nil {
			return nil, fmt.Errorf("repo: decode image ids: %w", err)
		}
	}
	job.AdjustmentsJSON = adjustments
	return &job, nil
}
