package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"photoflow/internal/domain"
	"photoflow/internal/enhance"
	"photoflow/internal/providers/engine"
	"photoflow/internal/storage"
)

type memImages struct {
	mu     sync.Mutex
	images map[string]domain.Image
}

func (r *memImages) CreateBatch(ctx context.Context, images []domain.Image) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, img := range images {
		r.images[img.ID] = img
	}
	return nil
}

func (r *memImages) GetByID(ctx context.Context, id string) (*domain.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	img, ok := r.images[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &img, nil
}

func (r *memImages) ListByIDs(ctx context.Context, ids []string) ([]domain.Image, error) {
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

func (r *memImages) UpdateAnalysis(ctx context.Context, id string, status domain.AnalysisStatus, resultJSON []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	img := r.images[id]
	img.Status = status
	img.ResultJSON = resultJSON
	r.images[id] = img
	return nil
}

func (r *memImages) SetEnhancedKey(ctx context.Context, id, key string) error {
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

type memJobs struct {
	mu       sync.Mutex
	jobs     map[string]domain.EnhancementJob
	messages []string
}

func (r *memJobs) Create(ctx context.Context, job *domain.EnhancementJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = *job
	return nil
}

func (r *memJobs) GetByID(ctx context.Context, jobID string) (*domain.EnhancementJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &job, nil
}

func (r *memJobs) ClaimNextQueued(ctx context.Context) (*domain.EnhancementJob, error) {
	return nil, domain.ErrNotFound
}

func (r *memJobs) UpdateProgress(ctx context.Context, jobID string, status domain.JobStatus, current int, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job := r.jobs[jobID]
	job.Status = status
	job.Current = current
	job.Message = message
	r.jobs[jobID] = job
	r.messages = append(r.messages, message)
	return nil
}

func (r *memJobs) Finish(ctx context.Context, jobID string, status domain.JobStatus, summary domain.ResultSummary, errMsg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job := r.jobs[jobID]
	job.Status = status
	job.Current = job.Total
	job.Successful = summary.Successful
	job.Failed = summary.Failed
	job.DurationSeconds = summary.DurationSeconds
	job.ErrorMessage = errMsg
	r.jobs[jobID] = job
	return nil
}

type fakeEnhancer struct {
	mu       sync.Mutex
	requests []engine.Request
	failIDs  map[string]bool
}

func (f *fakeEnhancer) Enhance(ctx context.Context, req engine.Request) (*engine.Result, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.failIDs[req.ImageID] {
		return nil, errors.New("engine unavailable")
	}
	return &engine.Result{Data: []byte("enhanced-" + req.ImageID), Format: "jpeg"}, nil
}

func newTestWorker(t *testing.T) (*Worker, *memImages, *memJobs, *fakeEnhancer) {
	t.Helper()
	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	images := &memImages{images: make(map[string]domain.Image)}
	jobs := &memJobs{jobs: make(map[string]domain.EnhancementJob)}
	enhancer := &fakeEnhancer{failIDs: make(map[string]bool)}
	w := New(jobs, images, store, enhancer, zerolog.New(io.Discard))
	return w, images, jobs, enhancer
}

func seedImage(t *testing.T, w *Worker, images *memImages, id string, recs *domain.Recommendations) {
	t.Helper()
	key, err := w.store.Write(context.Background(), "originals/"+id+".jpg", []byte("raw-"+id))
	if err != nil {
		t.Fatalf("write original: %v", err)
	}
	img := domain.Image{ID: id, Filename: id + ".jpg", StorageKey: key, Status: domain.AnalysisCompleted}
	if recs != nil {
		resultJSON, _ := json.Marshal(domain.AnalysisResult{OverallScore: 75, PostProcessing: recs})
		img.ResultJSON = resultJSON
	}
	_ = images.CreateBatch(context.Background(), []domain.Image{img})
}

func TestProcessJobFinishesWithSummary(t *testing.T) {
	w, images, jobs, enhancer := newTestWorker(t)
	seedImage(t, w, images, "img-1", &domain.Recommendations{ExposureEV: 0.5, ContrastDelta: 5})
	seedImage(t, w, images, "img-2", nil)
	job := &domain.EnhancementJob{ID: "job-1", Status: domain.JobStarted, Preset: "vibrant", ImageIDs: []string{"img-1", "img-2"}, Total: 2}
	_ = jobs.Create(context.Background(), job)

	w.ProcessJob(context.Background(), job)

	stored, _ := jobs.GetByID(context.Background(), "job-1")
	if stored.Status != domain.JobFinished || stored.Successful != 2 || stored.Failed != 0 {
		t.Fatalf("job = %+v", stored)
	}
	if stored.Current != stored.Total {
		t.Fatalf("terminal current = %d, want %d", stored.Current, stored.Total)
	}
	if len(jobs.messages) != 2 || jobs.messages[0] != "Enhancing image 1 of 2..." {
		t.Fatalf("messages = %v", jobs.messages)
	}
	for _, id := range []string{"img-1", "img-2"} {
		img, _ := images.GetByID(context.Background(), id)
		if img.EnhancedKey == "" {
			t.Fatalf("image %s has no rendition", id)
		}
	}
	// Preset modifiers compose onto the stored recommendations.
	if len(enhancer.requests) != 2 {
		t.Fatalf("enhance calls = %d", len(enhancer.requests))
	}
	first := enhancer.requests[0].Adjustments
	want := enhance.EngineVector{ExposureEV: 0.5, ContrastDelta: 5}.Add(enhance.EngineVector{
		ExposureEV: 0.2, ContrastDelta: 10, SaturationDelta: 15, VibranceDelta: 25, SharpnessDelta: 20,
	})
	if first != want {
		t.Fatalf("adjustments = %+v, want %+v", first, want)
	}
}

func TestProcessJobAbsorbsPerImageFailures(t *testing.T) {
	w, images, jobs, enhancer := newTestWorker(t)
	seedImage(t, w, images, "img-1", nil)
	seedImage(t, w, images, "img-2", nil)
	enhancer.failIDs["img-1"] = true
	job := &domain.EnhancementJob{ID: "job-1", Status: domain.JobStarted, Preset: "auto", ImageIDs: []string{"img-1", "img-2"}, Total: 2}
	_ = jobs.Create(context.Background(), job)

	w.ProcessJob(context.Background(), job)

	stored, _ := jobs.GetByID(context.Background(), "job-1")
	if stored.Status != domain.JobFinished || stored.Successful != 1 || stored.Failed != 1 {
		t.Fatalf("job = %+v", stored)
	}
}

func TestProcessJobCustomAdjustments(t *testing.T) {
	w, images, jobs, enhancer := newTestWorker(t)
	seedImage(t, w, images, "img-1", &domain.Recommendations{ExposureEV: 1})
	vec := enhance.EngineVector{ExposureEV: -0.25, SharpnessDelta: 40}
	raw, _ := json.Marshal(vec)
	job := &domain.EnhancementJob{ID: "job-1", Status: domain.JobStarted, Preset: enhance.CustomTag, AdjustmentsJSON: raw, ImageIDs: []string{"img-1"}, Total: 1}
	_ = jobs.Create(context.Background(), job)

	w.ProcessJob(context.Background(), job)

	// Explicit vectors are applied verbatim; recommendations do not compose.
	if len(enhancer.requests) != 1 || enhancer.requests[0].Adjustments != vec {
		t.Fatalf("requests = %+v", enhancer.requests)
	}
	stored, _ := jobs.GetByID(context.Background(), "job-1")
	if stored.Status != domain.JobFinished || stored.Successful != 1 {
		t.Fatalf("job = %+v", stored)
	}
}

func TestProcessJobCancelledContextStillSettles(t *testing.T) {
	w, images, jobs, _ := newTestWorker(t)
	seedImage(t, w, images, "img-1", nil)
	job := &domain.EnhancementJob{ID: "job-1", Status: domain.JobStarted, Preset: "auto", ImageIDs: []string{"img-1"}, Total: 1}
	_ = jobs.Create(context.Background(), job)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.ProcessJob(ctx, job)

	// A shutdown mid-job must not strand the row in a non-terminal status:
	// the terminal write goes through even though the run context is gone.
	stored, _ := jobs.GetByID(context.Background(), "job-1")
	if !stored.Status.Terminal() {
		t.Fatalf("status = %q, want terminal", stored.Status)
	}
}

func TestProcessJobUnknownPreset(t *testing.T) {
	w, _, jobs, _ := newTestWorker(t)
	job := &domain.EnhancementJob{ID: "job-1", Status: domain.JobStarted, Preset: "vivid-dreams", ImageIDs: []string{"img-1"}, Total: 1}
	_ = jobs.Create(context.Background(), job)

	w.ProcessJob(context.Background(), job)

	stored, _ := jobs.GetByID(context.Background(), "job-1")
	if stored.Status != domain.JobFailed || stored.Failed != 1 {
		t.Fatalf("job = %+v", stored)
	}
}
