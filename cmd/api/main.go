package main

import (
	"context"
	"os"

	"urlshorten/pkg/app"
	"urlshorten/pkg/auth"
	"urlshorten/pkg/config"
	"urlshorten/pkg/http"
	"urlshorten/pkg/logging"
	"urlshorten/pkg/metrics"
	"urlshorten/pkg/middleware"
	"urlshorten/pkg/service"

	"github.com/go-chi/chi/v5"
)

func main() {
	cfg := config.Load()
	logger := logging.NewLogger(logging.LogLevel(cfg.LogLevel))
	ctx := context.Background()

	if err := cfg.ValidateAPI(); err != nil {
		logger.Error(ctx, "invalid configuration", "error", err)
		os.Exit(1)
	}

	backends, err := app.Open(ctx, cfg, logger, app.Options{LocalCache: true})
	if err != nil {
		logger.Error(ctx, "failed to open backends", "error", err)
		os.Exit(1)
	}
	defer backends.Close(context.Background())

	m := metrics.New()

	// Service
	linkService := service.NewLinkService(backends.Links, backends.Cache, service.NewMD5TokenGenerator(), logger, m,
		service.LinkServiceConfig{
			BaseURL:       cfg.BaseURL,
			CacheDuration: cfg.CacheDuration,
		})

	issuer := auth.NewJWTIssuer(auth.JWTConfig{
		Secret:     cfg.JWTSecret,
		Issuer:     cfg.JWTIssuer,
		Audience:   cfg.JWTAudience,
		Expiration: cfg.JWTExpiration,
	})
	userService := service.NewUserService(backends.Users, issuer, logger)

	// Auth: local tokens first, then the external provider when configured
	verifiers := []middleware.Verifier{middleware.JWTVerifier(issuer)}
	if cfg.OIDCIssuer != "" {
		oidcVerifier, err := middleware.NewOIDCVerifier(ctx, middleware.OAuthConfig{
			IssuerURL:      cfg.OIDCIssuer,
			Audience:       cfg.OIDCAudience,
			RequiredScopes: cfg.OIDCRequiredScopes,
		})
		if err != nil {
			logger.Error(ctx, "failed to create OIDC verifier", "error", err)
			os.Exit(1)
		}
		verifiers = append(verifiers, oidcVerifier)
	}
	authenticator := middleware.NewAuthenticator(logger, verifiers...)

	// Router
	handler := http.NewHandler(linkService, userService, m, logger, cfg.BaseURL)
	r := chi.NewRouter()
	http.SetupRoutes(r, handler, authenticator)

	if err := app.Serve(":"+cfg.Port, r, cfg.ShutdownTimeout, logger); err != nil {
		logger.Error(ctx, "server error", "error", err)
		backends.Close(context.Background())
		os.Exit(1)
	}
}
