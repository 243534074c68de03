package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/tendant/chi-demo/app"
	"github.com/tendant/content-flow/pkg/contentflow/api"
	"github.com/tendant/content-flow/pkg/contentflow/config"
	"github.com/tendant/content-flow/pkg/contentflow/telemetry"
)

const developmentSecret = "content-flow-development-secret"

func main() {
	cfg, err := config.Load(config.WithEnv())
	if err != nil {
		slog.Error("Failed to load configuration", "err", err)
		os.Exit(1)
	}

	logger := cfg.Logger(os.Stdout)
	slog.SetDefault(logger)

	ctx := context.Background()
	repo, closeRepo, err := cfg.BuildRepository(ctx)
	if err != nil {
		slog.Error("Failed to build repository", "err", err)
		os.Exit(1)
	}
	defer closeRepo()

	svc, err := cfg.BuildService(repo, logger)
	if err != nil {
		slog.Error("Failed to build service", "err", err)
		os.Exit(1)
	}

	secret := cfg.JWTSecret
	if secret == "" {
		slog.Warn("JWT_SECRET not set, using the development secret", "environment", cfg.Environment)
		secret = developmentSecret
	}
	handler := api.NewHandler(svc, logger)

	appConfig, err := cfg.AppConfig()
	if err != nil {
		slog.Error("Failed to build app config", "err", err)
		os.Exit(1)
	}
	server := app.NewApp(
		app.WithAppConfig(appConfig),
		app.WithMetrics(true),
		app.WithCors(app.DefaultCorsOptions()),
		app.WithHttpin(true),
		app.WithReqLogger(app.DefaultHttpLogger()),
	)

	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)
	if !cfg.DisableMetrics {
		server.R.Handle("/metrics", telemetry.Handler())
	}

	server.R.Mount("/api/v1", handler.Routes(api.NewTokenAuth(secret)))

	slog.Info("Content flow server starting",
		"port", appConfig.Port, "environment", cfg.Environment, "database", cfg.DatabaseType, "metrics", !cfg.DisableMetrics)
	server.Run()
}
