package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"photoflow/internal/domain"
	"photoflow/pkg/zip"
)

// DownloadJob streams a zip of a finished job's enhanced renditions.
func (a *App) DownloadJob(w http.ResponseWriter, r *http.Request) {
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
	if job.Status != domain.JobFinished {
		a.error(w, http.StatusConflict, "not_finished", "job has not finished")
		return
	}

	images, err := a.Images.ListByIDs(r.Context(), job.ImageIDs)
	if err != nil {
		a.log(r).Error().Err(err).Str("job_id", jobID).Msg("load job images failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load images")
		return
	}

	var entries []zip.Entry
	for _, img := range images {
		if img.EnhancedKey == "" {
			continue
		}
		data, err := a.Store.Read(r.Context(), img.EnhancedKey)
		if err != nil {
			a.log(r).Warn().Err(err).Str("image_id", img.ID).Msg("rendition unreadable, skipped")
			continue
		}
		entries = append(entries, zip.Entry{Filename: renditionName(img), Data: data})
	}
	if len(entries) == 0 {
		a.error(w, http.StatusNotFound, "not_found", "no enhanced images available")
		return
	}

	archive := zip.Archive(entries)
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=enhanced-%s.zip", jobID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

// renditionName derives the download filename from the original upload name
// and the rendition's actual format.
func renditionName(img domain.Image) string {
	stem := strings.TrimSuffix(img.Filename, filepath.Ext(img.Filename))
	ext := filepath.Ext(img.EnhancedKey)
	if ext == "" {
		ext = ".jpg"
	}
	return stem + "_enhanced" + ext
}
