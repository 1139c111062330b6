package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"photoflow/internal/domain"
	"photoflow/internal/middleware"
	"photoflow/internal/providers/vision"
	"photoflow/internal/storage"
)

type App struct {
	Logger        zerolog.Logger
	Images        domain.ImageRepository
	Jobs          domain.JobRepository
	Store         *storage.FileStore
	Vision        vision.Analyzer
	Upgrader      websocket.Upgrader
	MaxUploadSize int64
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, errorResponse{Code: errCode, Message: message})
}

// log returns the app logger annotated with the request's id so handler
// lines correlate with the access log.
func (a *App) log(r *http.Request) *zerolog.Logger {
	l := middleware.RequestLogger(a.Logger, r)
	return &l
}
