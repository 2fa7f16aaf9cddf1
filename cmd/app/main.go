// File: cmd/app/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"code-translator/internal/application"
	"code-translator/internal/config"
	"code-translator/internal/infra/logging"
	"code-translator/internal/infra/metrics"
	"code-translator/internal/sandbox"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	sandbox.ServeGoRunner()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		boot := logging.New(config.LogConfig{Level: "info", Format: "console"}, true)
		boot.Fatal().Err(err).Msg("config")
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	app, err := application.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("startup")
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error().Err(err).Msg("shutdown")
		}
	}()

	if err := app.Server().ListenAndServe(ctx, cfg.HTTP); err != nil {
		logger.Error().Err(err).Msg("http server")
		return
	}
	logger.Info().Msg("shutdown complete")
}
