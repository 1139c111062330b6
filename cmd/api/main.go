package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"

	"photoflow/internal/adapter/repo"
	"photoflow/internal/http/handlers"
	"photoflow/internal/http/httpapi"
	"photoflow/internal/infra"
	"photoflow/internal/providers/vision"
	"photoflow/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "api")

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	store, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init storage")
	}

	analyzer, err := vision.NewClient(vision.Options{
		BaseURL:           cfg.VisionBaseURL,
		APIKey:            cfg.VisionAPIKey,
		RequestsPerSecond: cfg.VisionRateRPS,
		Logger:            &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init vision client")
	}

	app := &handlers.App{
		Logger:        logger,
		Images:        repo.NewImageRepository(dbpool),
		Jobs:          repo.NewJobRepository(dbpool),
		Store:         store,
		Vision:        analyzer,
		Upgrader:      websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		MaxUploadSize: cfg.MaxUploadSize(),
	}

	router := httpapi.NewRouter(app, httpapi.Options{
		AllowedOrigins:  cfg.AllowedOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
	})

	server := infra.NewHTTPServer(cfg, router, logger)

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
