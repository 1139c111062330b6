package domain

import "context"

// ImageRepository defines persistence for stored photos.
type ImageRepository interface {
	// CreateBatch registers every image in one transaction; a batch either
	// registers completely or not at all.
	CreateBatch(ctx context.Context, images []Image) error
	GetByID(ctx context.Context, id string) (*Image, error)
	ListByIDs(ctx context.Context, ids []string) ([]Image, error)
	UpdateAnalysis(ctx context.Context, id string, status AnalysisStatus, resultJSON []byte) error
	SetEnhancedKey(ctx context.Context, id, key string) error
}

// JobRepository defines persistence for enhancement jobs.
type JobRepository interface {
	Create(ctx context.Context, job *EnhancementJob) error
	GetByID(ctx context.Context, jobID string) (*EnhancementJob, error)
	// ClaimNextQueued atomically moves the oldest queued job to started and
	// returns it, or ErrNotFound when the queue is empty.
	ClaimNextQueued(ctx context.Context) (*EnhancementJob, error)
	UpdateProgress(ctx context.Context, jobID string, status JobStatus, current int, message string) error
	Finish(ctx context.Context, jobID string, status JobStatus, summary ResultSummary, errMsg string) error
}
