// Package worker executes queued batch enhancement jobs: it claims the
// oldest queued job, walks its images sequentially while advancing the
// progress meta the stream endpoint serves, and records the result summary.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"photoflow/internal/domain"
	"photoflow/internal/enhance"
	"photoflow/internal/providers/engine"
	"photoflow/internal/storage"
)

const defaultPollInterval = 2 * time.Second

// Worker drains the enhancement job queue.
type Worker struct {
	jobs         domain.JobRepository
	images       domain.ImageRepository
	store        *storage.FileStore
	enhancer     engine.Enhancer
	logger       zerolog.Logger
	pollInterval time.Duration
}

// New constructs a worker.
func New(jobs domain.JobRepository, images domain.ImageRepository, store *storage.FileStore, enhancer engine.Enhancer, logger zerolog.Logger) *Worker {
	return &Worker{
		jobs:         jobs,
		images:       images,
		store:        store,
		enhancer:     enhancer,
		logger:       logger.With().Str("component", "worker").Logger(),
		pollInterval: defaultPollInterval,
	}
}

// Run claims and processes jobs until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info().Msg("worker started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		job, err := w.jobs.ClaimNextQueued(ctx)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				w.logger.Error().Err(err).Msg("claim job failed")
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.pollInterval):
			}
			continue
		}
		w.ProcessJob(ctx, job)
	}
}

// ProcessJob runs one claimed job to a terminal status. Per-image failures
// are absorbed into the summary; only a failure to persist job state itself
// marks the whole job failed.
func (w *Worker) ProcessJob(ctx context.Context, job *domain.EnhancementJob) {
	logger := w.logger.With().Str("job_id", job.ID).Logger()
	logger.Info().Int("images", len(job.ImageIDs)).Str("preset", job.Preset).Msg("picked job")

	plan, err := resolvePlan(job)
	if err != nil {
		logger.Error().Err(err).Str("preset", job.Preset).Msg("unusable job parameters")
		w.finish(ctx, job.ID, domain.JobFailed, domain.ResultSummary{Failed: len(job.ImageIDs)}, err.Error())
		return
	}

	start := time.Now()
	total := len(job.ImageIDs)
	var successful, failed int

	for index, imageID := range job.ImageIDs {
		message := fmt.Sprintf("Enhancing image %d of %d...", index+1, total)
		if err := w.jobs.UpdateProgress(ctx, job.ID, domain.JobProcessing, index+1, message); err != nil {
			logger.Error().Err(err).Msg("update progress failed")
			w.finish(ctx, job.ID, domain.JobFailed,
				domain.ResultSummary{Successful: successful, Failed: total - successful, DurationSeconds: time.Since(start).Seconds()},
				"lost access to job state")
			return
		}

		if err := w.enhanceOne(ctx, plan, imageID); err != nil {
			logger.Warn().Err(err).Str("image_id", imageID).Msg("image enhancement failed")
			failed++
			continue
		}
		successful++
	}

	summary := domain.ResultSummary{
		Successful:      successful,
		Failed:          failed,
		DurationSeconds: time.Since(start).Seconds(),
	}
	w.finish(ctx, job.ID, domain.JobFinished, summary,
		"")
	logger.Info().Int("successful", successful).Int("failed", failed).
		Float64("duration_seconds", summary.DurationSeconds).Msg("job finished")
}

// finish records the terminal status on a context detached from the claim
// loop's cancellation: a shutdown mid-job must not strand the row in
// processing, where no reclaim would ever pick it up again.
func (w *Worker) finish(ctx context.Context, jobID string, status domain.JobStatus, summary domain.ResultSummary, errMsg string) {
	if err := w.jobs.Finish(context.WithoutCancel(ctx), jobID, status, summary, errMsg); err != nil {
		w.logger.Error().Err(err).Str("job_id", jobID).Msg("record terminal status failed")
	}
}

// renderPlan is how one job's adjustments are derived per image: a preset
// composed onto each photo's own recommendations, or one explicit vector
// applied to every photo as-is.
type renderPlan struct {
	name        string
	aspectRatio string
	quality     int
	preset      *enhance.Preset
	explicit    enhance.EngineVector
}

func resolvePlan(job *domain.EnhancementJob) (renderPlan, error) {
	if len(job.AdjustmentsJSON) > 0 {
		var vec enhance.EngineVector
		if err := json.Unmarshal(job.AdjustmentsJSON, &vec); err != nil {
			return renderPlan{}, fmt.Errorf("decode adjustments: %w", err)
		}
		return renderPlan{name: enhance.CustomTag, aspectRatio: "original", quality: 95, explicit: vec}, nil
	}
	preset, ok := enhance.GetPreset(job.Preset)
	if !ok {
		return renderPlan{}, fmt.Errorf("unknown preset %q", job.Preset)
	}
	return renderPlan{name: preset.Name, aspectRatio: preset.AspectRatio, quality: preset.Quality, preset: &preset}, nil
}

func (p renderPlan) adjustmentsFor(img *domain.Image) enhance.EngineVector {
	if p.preset == nil {
		return p.explicit
	}
	return p.preset.Apply(baseAdjustments(img))
}

// enhanceOne renders one image per the job's plan and persists the rendition.
func (w *Worker) enhanceOne(ctx context.Context, plan renderPlan, imageID string) error {
	img, err := w.images.GetByID(ctx, imageID)
	if err != nil {
		return fmt.Errorf("load image: %w", err)
	}
	data, err := w.store.Read(ctx, img.StorageKey)
	if err != nil {
		return fmt.Errorf("read original: %w", err)
	}

	result, err := w.enhancer.Enhance(ctx, engine.Request{
		ImageID:     imageID,
		Data:        data,
		Adjustments: plan.adjustmentsFor(img),
		AspectRatio: plan.aspectRatio,
		Quality:     plan.quality,
	})
	if err != nil {
		return fmt.Errorf("enhance: %w", err)
	}

	key := fmt.Sprintf("enhanced/%s_enhanced_%s.%s", imageID, plan.name, extensionFor(result.Format))
	savedKey, err := w.store.Write(ctx, key, result.Data)
	if err != nil {
		return fmt.Errorf("persist rendition: %w", err)
	}
	if err := w.images.SetEnhancedKey(ctx, imageID, savedKey); err != nil {
		return fmt.Errorf("record rendition: %w", err)
	}
	return nil
}

// baseAdjustments recovers the engine-space recommendations stored with the
// image's analysis result; photos without one start from neutral.
func baseAdjustments(img *domain.Image) enhance.EngineVector {
	if len(img.ResultJSON) == 0 {
		return enhance.EngineVector{}
	}
	var result domain.AnalysisResult
	if err := json.Unmarshal(img.ResultJSON, &result); err != nil || result.PostProcessing == nil {
		return enhance.EngineVector{}
	}
	rec := result.PostProcessing
	return enhance.EngineVector{
		ExposureEV:      rec.ExposureEV,
		ContrastDelta:   rec.ContrastDelta,
		SaturationDelta: rec.SaturationDelta,
		VibranceDelta:   rec.VibranceDelta,
		SharpnessDelta:  rec.SharpnessDelta,
	}
}

func extensionFor(format string) string {
	switch format {
	case "png":
		return "png"
	case "webp":
		return "webp"
	default:
		return "jpg"
	}
}
