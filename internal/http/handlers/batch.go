package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"photoflow/internal/domain"
	"photoflow/internal/enhance"
)

type startEnhancementRequest struct {
	ImageIDs    []string              `json:"image_ids"`
	Preset      string                `json:"preset"`
	Adjustments *enhance.EngineVector `json:"adjustments"`
}

type startEnhancementResponse struct {
	JobID  string           `json:"job_id"`
	Status domain.JobStatus `json:"status"`
	Total  int              `json:"total"`
}

// StartEnhancement enqueues a batch enhancement job for already-uploaded
// images. The request names either a preset or an explicit adjustment vector.
func (a *App) StartEnhancement(w http.ResponseWriter, r *http.Request) {
	var req startEnhancementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if len(req.ImageIDs) == 0 {
		a.error(w, http.StatusBadRequest, "empty_batch", "image_ids required")
		return
	}
	if len(req.ImageIDs) > domain.MaxBatchImages {
		a.error(w, http.StatusBadRequest, "batch_too_large",
			fmt.Sprintf("at most %d images per batch", domain.MaxBatchImages))
		return
	}

	job := &domain.EnhancementJob{
		ID:       uuid.NewString(),
		Status:   domain.JobQueued,
		ImageIDs: req.ImageIDs,
		Total:    len(req.ImageIDs),
		Message:  "Waiting to start...",
	}
	if req.Adjustments != nil {
		raw, err := json.Marshal(req.Adjustments)
		if err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "invalid adjustments")
			return
		}
		job.Preset = enhance.CustomTag
		job.AdjustmentsJSON = raw
	} else {
		preset := req.Preset
		if preset == "" {
			preset = "professional"
		}
		if _, ok := enhance.GetPreset(preset); !ok {
			a.error(w, http.StatusBadRequest, "unknown_preset",
				fmt.Sprintf("unknown preset %q", preset))
			return
		}
		job.Preset = preset
	}

	// Reject ids that never went through upload before queueing anything.
	known, err := a.Images.ListByIDs(r.Context(), req.ImageIDs)
	if err != nil {
		a.log(r).Error().Err(err).Msg("resolve batch images failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to resolve images")
		return
	}
	if len(known) != len(req.ImageIDs) {
		a.error(w, http.StatusNotFound, "not_found", "one or more images not found")
		return
	}

	if err := a.Jobs.Create(r.Context(), job); err != nil {
		a.log(r).Error().Err(err).Msg("enqueue job failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to enqueue job")
		return
	}
	a.log(r).Info().Str("job_id", job.ID).Str("preset", job.Preset).Int("total", job.Total).Msg("job queued")
	a.json(w, http.StatusAccepted, startEnhancementResponse{JobID: job.ID, Status: job.Status, Total: job.Total})
}

type jobStatusResponse struct {
	JobID           string           `json:"job_id"`
	Status          domain.JobStatus `json:"status"`
	Current         int              `json:"current"`
	Total           int              `json:"total"`
	Message         string           `json:"message"`
	Percent         float64          `json:"percent"`
	Successful      *int             `json:"successful,omitempty"`
	Failed          *int             `json:"failed,omitempty"`
	DurationSeconds *float64         `json:"duration_seconds,omitempty"`
	ErrorMessage    string           `json:"error_message,omitempty"`
}

// JobStatus is the REST fallback for the progress stream.
func (a *App) JobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}
	job, err := a.Jobs.GetByID(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.log(r).Error().Err(err).Str("job_id", jobID).Msg("load job failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
		return
	}
	a.json(w, http.StatusOK, jobStatusPayload(job))
}

func jobStatusPayload(job *domain.EnhancementJob) jobStatusResponse {
	resp := jobStatusResponse{
		JobID:        job.ID,
		Status:       job.Status,
		Current:      job.Current,
		Total:        job.Total,
		Message:      job.Message,
		Percent:      jobPercent(job),
		ErrorMessage: job.ErrorMessage,
	}
	if job.Status.Terminal() {
		successful, failed, duration := job.Successful, job.Failed, job.DurationSeconds
		resp.Successful = &successful
		resp.Failed = &failed
		resp.DurationSeconds = &duration
	}
	return resp
}

// jobPercent is the single authority for progress percentages: clients carry
// this value verbatim and never recompute it.
func jobPercent(job *domain.EnhancementJob) float64 {
	if job.Total <= 0 {
		return 0
	}
	return math.Round(float64(job.Current)/float64(job.Total)*1000) / 10
}

type presetDTO struct {
	Name        string                `json:"name"`
	DisplayName string                `json:"display_name"`
	Description string                `json:"description"`
	AspectRatio string                `json:"aspect_ratio"`
	Quality     int                   `json:"quality"`
	Modifiers   enhance.EngineVector  `json:"modifiers"`
	Display     enhance.DisplayVector `json:"display"`
}

// Presets lists the available enhancement presets with both representations
// of their modifier vectors.
func (a *App) Presets(w http.ResponseWriter, r *http.Request) {
	all := enhance.Presets()
	out := make([]presetDTO, 0, len(all))
	for _, p := range all {
		out = append(out, presetDTO{
			Name:        p.Name,
			DisplayName: p.DisplayName,
			Description: p.Description,
			AspectRatio: p.AspectRatio,
			Quality:     p.Quality,
			Modifiers:   p.Modifiers,
			Display:     p.Display(),
		})
	}
	a.json(w, http.StatusOK, map[string]any{"presets": out})
}
