package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"photoflow/internal/domain"
	"photoflow/internal/providers/vision"
)

type analyzeResponse struct {
	ImageID  string                 `json:"image_id"`
	Status   domain.AnalysisStatus  `json:"status"`
	Analysis *domain.AnalysisResult `json:"analysis,omitempty"`
	Error    string                 `json:"error_message,omitempty"`
}

// AnalyzeImage runs the vision scoring for one stored photo and persists the
// outcome. A scoring failure marks only this photo failed; the response still
// carries the terminal state so callers can settle the item.
func (a *App) AnalyzeImage(w http.ResponseWriter, r *http.Request) {
	imageID := chi.URLParam(r, "image_id")
	if imageID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "image_id required")
		return
	}

	img, err := a.Images.GetByID(r.Context(), imageID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "image not found")
			return
		}
		a.log(r).Error().Err(err).Str("image_id", imageID).Msg("load image failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load image")
		return
	}

	if err := a.Images.UpdateAnalysis(r.Context(), imageID, domain.AnalysisAnalyzing, nil); err != nil {
		a.log(r).Error().Err(err).Str("image_id", imageID).Msg("mark analyzing failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to update image")
		return
	}

	data, err := a.Store.Read(r.Context(), img.StorageKey)
	if err != nil {
		a.failAnalysis(w, r, imageID, "stored file unreadable", err)
		return
	}

	result, err := a.Vision.Analyze(r.Context(), vision.Request{
		ImageID:  imageID,
		Filename: img.Filename,
		Data:     data,
	})
	if err != nil {
		a.failAnalysis(w, r, imageID, "analysis failed", err)
		return
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		a.failAnalysis(w, r, imageID, "analysis result unserializable", err)
		return
	}
	if err := a.Images.UpdateAnalysis(r.Context(), imageID, domain.AnalysisCompleted, resultJSON); err != nil {
		a.log(r).Error().Err(err).Str("image_id", imageID).Msg("store analysis failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to store analysis")
		return
	}

	a.json(w, http.StatusOK, analyzeResponse{
		ImageID:  imageID,
		Status:   domain.AnalysisCompleted,
		Analysis: result,
	})
}

// failAnalysis records the failed status and reports it with 502: the photo
// settles as failed rather than leaving the request hanging.
func (a *App) failAnalysis(w http.ResponseWriter, r *http.Request, imageID, message string, cause error) {
	a.log(r).Warn().Err(cause).Str("image_id", imageID).Msg(message)
	if err := a.Images.UpdateAnalysis(r.Context(), imageID, domain.AnalysisFailed, nil); err != nil {
		a.log(r).Error().Err(err).Str("image_id", imageID).Msg("mark failed failed")
	}
	a.error(w, http.StatusBadGateway, "analysis_failed", message)
}
