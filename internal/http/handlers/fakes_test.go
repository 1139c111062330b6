package handlers

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"photoflow/internal/domain"
	"photoflow/internal/providers/vision"
	"photoflow/internal/storage"
)

type memImageRepo struct {
	mu        sync.Mutex
	images    map[string]domain.Image
	order     []string
	createErr error
}

func newMemImageRepo() *memImageRepo {
	return &memImageRepo{images: make(map[string]domain.Image)}
}

func (r *memImageRepo) CreateBatch(ctx context.Context, images []domain.Image) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	for _, img := range images {
		r.images[img.ID] = img
		r.order = append(r.order, img.ID)
	}
	return nil
}

func (r *memImageRepo) GetByID(ctx context.Context, id string) (*domain.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	img, ok := r.images[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &img, nil
}

func (r *memImageRepo) ListByIDs(ctx context.Context, ids []string) ([]domain.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Image
	for _, id := range ids {
		if img, ok := r.images[id]; ok {
			out = append(out, img)
		}
	}
	return out, nil
}

func (r *memImageRepo) UpdateAnalysis(ctx context.Context, id string, status domain.AnalysisStatus, resultJSON []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	img, ok := r.images[id]
	if !ok {
		return domain.ErrNotFound
	}
	img.Status = status
	img.ResultJSON = resultJSON
	r.images[id] = img
	return nil
}

func (r *memImageRepo) SetEnhancedKey(ctx context.Context, id, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	img, ok := r.images[id]
	if !ok {
		return domain.ErrNotFound
	}
	img.EnhancedKey = key
	r.images[id] = img
	return nil
}

type memJobRepo struct {
	mu   sync.Mutex
	jobs map[string]domain.EnhancementJob
	fifo []string
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{jobs: make(map[string]domain.EnhancementJob)}
}

func (r *memJobRepo) Create(ctx context.Context, job *domain.EnhancementJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = *job
	r.fifo = append(r.fifo, job.ID)
	return nil
}

func (r *memJobRepo) GetByID(ctx context.Context, jobID string) (*domain.EnhancementJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &job, nil
}

func (r *memJobRepo) ClaimNextQueued(ctx context.Context) (*domain.EnhancementJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.fifo {
		job := r.jobs[id]
		if job.Status == domain.JobQueued {
			job.Status = domain.JobStarted
			r.jobs[id] = job
			return &job, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memJobRepo) UpdateProgress(ctx context.Context, jobID string, status domain.JobStatus, current int, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	job.Status = status
	job.Current = current
	job.Message = message
	r.jobs[jobID] = job
	return nil
}

func (r *memJobRepo) Finish(ctx context.Context, jobID string, status domain.JobStatus, summary domain.ResultSummary, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	job.Status = status
	job.Current = job.Total
	job.Successful = summary.Successful
	job.Failed = summary.Failed
	job.DurationSeconds = summary.DurationSeconds
	job.ErrorMessage = errMsg
	r.jobs[jobID] = job
	return nil
}

type fakeAnalyzer struct {
	result *domain.AnalysisResult
	err    error
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, req vision.Request) (*domain.AnalysisResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newTestApp(t *testing.T) (*App, *memImageRepo, *memJobRepo) {
	t.Helper()
	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	images := newMemImageRepo()
	jobs := newMemJobRepo()
	app := &App{
		Logger:        zerolog.New(io.Discard),
		Images:        images,
		Jobs:          jobs,
		Store:         store,
		Vision:        &fakeAnalyzer{result: &domain.AnalysisResult{OverallScore: 80, QualityTier: domain.TierGood}},
		Upgrader:      websocket.Upgrader{},
		MaxUploadSize: 32 << 20,
	}
	return app, images, jobs
}
