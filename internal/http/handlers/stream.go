package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"photoflow/internal/domain"
)

const streamPollInterval = time.Second

// StreamJob serves the live progress stream for one job. Every frame is a
// full snapshot of the job's state; the terminal frame carries the result
// summary, after which the connection closes normally.
func (a *App) StreamJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}

	conn, err := a.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.log(r).Warn().Err(err).Str("job_id", jobID).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	logger := a.log(r).With().Str("job_id", jobID).Logger()

	// Discard inbound frames so close handshakes and pings are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(streamPollInterval)
	defer ticker.Stop()

	type frameKey struct {
		status  domain.JobStatus
		current int
		message string
	}
	var lastSent frameKey
	first := true
	for {
		job, err := a.Jobs.GetByID(r.Context(), jobID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				_ = conn.WriteJSON(jobStatusResponse{
					JobID:   jobID,
					Status:  domain.JobError,
					Message: "job not found",
				})
			} else {
				logger.Error().Err(err).Msg("load job failed")
			}
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}

		key := frameKey{status: job.Status, current: job.Current, message: job.Message}
		if first || key != lastSent {
			if err := conn.WriteJSON(jobStatusPayload(job)); err != nil {
				logger.Debug().Err(err).Msg("subscriber detached")
				return
			}
			lastSent = key
			first = false
		}

		if job.Status.Terminal() {
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}
