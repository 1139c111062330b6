package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"photoflow/internal/http/handlers"
	"photoflow/internal/middleware"
)

// Options bundles the router's cross-cutting knobs.
type Options struct {
	AllowedOrigins  []string
	RateLimitPerMin int
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(opts.AllowedOrigins),
	)
	if opts.RateLimitPerMin > 0 {
		r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute, app.Logger))
	}

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/images", func(r chi.Router) {
		r.Post("/upload-batch", app.UploadBatch)
	})

	r.Route("/v1/analysis", func(r chi.Router) {
		r.Post("/analyze/{image_id}", app.AnalyzeImage)
	})

	r.Route("/v1/batch", func(r chi.Router) {
		r.Get("/presets", app.Presets)
		r.Post("/enhancement", app.StartEnhancement)
		r.Get("/enhancement/{job_id}/status", app.JobStatus)
		r.Get("/enhancement/{job_id}/download", app.DownloadJob)
		r.Get("/ws/enhancement/{job_id}", app.StreamJob)
	})

	return r
}
