package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"photoflow/internal/domain"
)

type uploadedItemDTO struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
}

type uploadBatchResponse struct {
	Items []uploadedItemDTO `json:"items"`
}

// UploadBatch accepts a multipart batch under the "files" field and persists
// it atomically: any rejected file fails the whole request and nothing is
// stored.
func (a *App) UploadBatch(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(a.MaxUploadSize); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart payload")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		a.error(w, http.StatusBadRequest, "empty_batch", "at least one file is required")
		return
	}
	if len(headers) > domain.MaxBatchImages {
		a.error(w, http.StatusBadRequest, "batch_too_large",
			fmt.Sprintf("at most %d images per batch", domain.MaxBatchImages))
		return
	}
	for _, h := range headers {
		if !domain.FormatAllowed(h.Filename) {
			a.error(w, http.StatusBadRequest, "unsupported_format",
				fmt.Sprintf("unsupported file format: %s", h.Filename))
			return
		}
	}

	images := make([]domain.Image, 0, len(headers))
	storedKeys := make([]string, 0, len(headers))
	for _, h := range headers {
		data, err := readUpload(h)
		if err != nil {
			a.log(r).Error().Err(err).Str("filename", h.Filename).Msg("read upload failed")
			a.discardStored(r, storedKeys)
			a.error(w, http.StatusBadRequest, "bad_request",
				fmt.Sprintf("unreadable file: %s", h.Filename))
			return
		}
		id := uuid.NewString()
		key := fmt.Sprintf("originals/%s%s", id, strings.ToLower(filepath.Ext(h.Filename)))
		savedKey, err := a.Store.Write(r.Context(), key, data)
		if err != nil {
			a.log(r).Error().Err(err).Str("filename", h.Filename).Msg("store upload failed")
			a.discardStored(r, storedKeys)
			a.error(w, http.StatusInternalServerError, "internal", "failed to store files")
			return
		}
		storedKeys = append(storedKeys, savedKey)
		images = append(images, domain.Image{
			ID:         id,
			Filename:   h.Filename,
			StorageKey: savedKey,
			SizeBytes:  int64(len(data)),
			Status:     domain.AnalysisPending,
		})
	}

	if err := a.Images.CreateBatch(r.Context(), images); err != nil {
		a.log(r).Error().Err(err).Int("files", len(images)).Msg("create batch failed")
		a.discardStored(r, storedKeys)
		a.error(w, http.StatusInternalServerError, "internal", "failed to register batch")
		return
	}

	items := make([]uploadedItemDTO, 0, len(images))
	for _, img := range images {
		items = append(items, uploadedItemDTO{ID: img.ID, Filename: img.Filename})
	}
	a.log(r).Info().Int("items", len(items)).Msg("batch uploaded")
	a.json(w, http.StatusCreated, uploadBatchResponse{Items: items})
}

// discardStored removes blobs written for a batch that did not register, so
// a failed request leaves nothing on disk.
func (a *App) discardStored(r *http.Request, keys []string) {
	for _, key := range keys {
		if err := a.Store.Remove(r.Context(), key); err != nil {
			a.log(r).Warn().Err(err).Str("key", key).Msg("orphaned upload not removed")
		}
	}
}

func readUpload(h *multipart.FileHeader) ([]byte, error) {
	f, err := h.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
