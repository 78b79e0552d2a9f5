package main

import (
	"context"
	"os"

	"urlshorten/pkg/app"
	"urlshorten/pkg/config"
	httphandler "urlshorten/pkg/http"
	"urlshorten/pkg/logging"
	"urlshorten/pkg/metrics"
	"urlshorten/pkg/service"

	"github.com/go-chi/chi/v5"
)

func main() {
	cfg := config.Load()
	logger := logging.NewLogger(logging.LogLevel(cfg.LogLevel))
	ctx := context.Background()

	if err := cfg.Validate(); err != nil {
		logger.Error(ctx, "invalid configuration", "error", err)
		os.Exit(1)
	}

	backends, err := app.Open(ctx, cfg, logger, app.Options{})
	if err != nil {
		logger.Error(ctx, "failed to open backends", "error", err)
		os.Exit(1)
	}
	defer backends.Close(context.Background())

	m := metrics.New()
	linkService := service.NewLinkService(backends.Links, backends.Cache, service.NewMD5TokenGenerator(), logger, m,
		service.LinkServiceConfig{
			BaseURL:       cfg.BaseURL,
			CacheDuration: cfg.CacheDuration,
		})

	handler := httphandler.NewHandler(linkService, nil, m, logger, cfg.BaseURL)
	r := chi.NewRouter()
	httphandler.SetupRedirectRoutes(r, handler)

	if err := app.Serve(":"+cfg.RedirectPort, r, cfg.ShutdownTimeout, logger); err != nil {
		logger.Error(ctx, "server error", "error", err)
		backends.Close(context.Background())
		os.Exit(1)
	}
}
