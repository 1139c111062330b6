// Package scheduler turns raw file inputs into analyzed items: one atomic
// batch upload, then analysis requests dispatched in fixed-size waves so the
// remote scoring service never sees more than a handful of in-flight calls.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"photoflow/internal/client"
	"photoflow/internal/domain"
	"photoflow/internal/tracker"
)

// waveSize bounds concurrent in-flight analysis requests. Wave n+1 does not
// start until every request of wave n has settled.
const waveSize = 3

// API is the slice of the collaborator client the scheduler depends on.
type API interface {
	UploadBatch(ctx context.Context, files []client.File) ([]client.ItemRecord, error)
	Analyze(ctx context.Context, itemID string) (*domain.AnalysisResult, error)
}

// Summary counts terminal item outcomes after a RunAnalysis pass.
type Summary struct {
	Completed int
	Failed    int
}

// Scheduler orchestrates upload and wave-bounded analysis, recording every
// state change on the tracker.
type Scheduler struct {
	api     API
	tracker *tracker.Tracker
	logger  zerolog.Logger
}

// New constructs a scheduler.
func New(api API, tr *tracker.Tracker, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		api:     api,
		tracker: tr,
		logger:  logger.With().Str("component", "scheduler").Logger(),
	}
}

// SubmitBatch uploads files in one collaborator call and registers the
// resulting items as pending. The upload is atomic: on failure no item is
// registered server-side, every file is recorded locally as failed with the
// upload error attached, and the error is returned to the caller.
func (s *Scheduler) SubmitBatch(ctx context.Context, files []client.File) ([]string, error) {
	if len(files) == 0 {
		return nil, domain.ErrEmptyBatch
	}
	if len(files) > domain.MaxBatchImages {
		return nil, fmt.Errorf("%w: %d files", domain.ErrBatchTooLarge, len(files))
	}
	for _, f := range files {
		if !domain.FormatAllowed(f.Name) {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, f.Name)
		}
	}

	records, err := s.api.UploadBatch(ctx, files)
	if err != nil {
		s.logger.Error().Err(err).Int("files", len(files)).Msg("batch upload failed")
		for _, f := range files {
			id := uuid.NewString()
			s.tracker.Register(id, f.Name)
			_ = s.tracker.Fail(id, fmt.Sprintf("upload failed: %v", err))
		}
		return nil, fmt.Errorf("scheduler: upload batch: %w", err)
	}

	ids := make([]string, 0, len(records))
	for _, rec := range records {
		s.tracker.Register(rec.ID, rec.Filename)
		ids = append(ids, rec.ID)
	}
	s.logger.Info().Int("items", len(ids)).Msg("batch registered")
	return ids, nil
}

// RunAnalysis processes items in waves of waveSize concurrent requests.
// Waves start in input order; within a wave completion order is free. A
// failed item never blocks its siblings or later waves, and per-item errors
// are absorbed into the tracker: RunAnalysis settles once every item has
// reached a terminal status and reports only the outcome counts.
func (s *Scheduler) RunAnalysis(ctx context.Context, ids []string) Summary {
	for start := 0; start < len(ids); start += waveSize {
		end := start + waveSize
		if end > len(ids) {
			end = len(ids)
		}
		s.runWave(ctx, ids[start:end])
	}

	var summary Summary
	for _, id := range ids {
		if item, ok := s.tracker.Get(id); ok {
			switch item.Status {
			case domain.AnalysisCompleted:
				summary.Completed++
			case domain.AnalysisFailed:
				summary.Failed++
			}
		}
	}
	s.logger.Info().Int("completed", summary.Completed).Int("failed", summary.Failed).Msg("analysis settled")
	return summary
}

// runWave dispatches one wave and blocks until all of its requests settle.
func (s *Scheduler) runWave(ctx context.Context, ids []string) {
	var wg sync.WaitGroup
	for _, id := range ids {
		if ctx.Err() != nil {
			// Cancellation honored at the dispatch point: items whose
			// request never fired go straight to failed.
			_ = s.tracker.Fail(id, fmt.Sprintf("analysis canceled: %v", ctx.Err()))
			continue
		}
		wg.Add(1)
		go func(itemID string) {
			defer wg.Done()
			s.analyzeOne(ctx, itemID)
		}(id)
	}
	wg.Wait()
}

func (s *Scheduler) analyzeOne(ctx context.Context, id string) {
	// The item enters analyzing the instant its own request fires, not when
	// the wave starts.
	if err := s.tracker.MarkAnalyzing(id); err != nil {
		return
	}
	result, err := s.api.Analyze(ctx, id)
	if err != nil {
		s.logger.Warn().Err(err).Str("item_id", id).Msg("analysis failed")
		_ = s.tracker.Fail(id, err.Error())
		return
	}
	_ = s.tracker.Complete(id, result)
}
