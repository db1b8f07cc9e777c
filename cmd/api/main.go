package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relativitydevhub/authservice/internal/app"
	"github.com/relativitydevhub/authservice/internal/config"
	pkglogger "github.com/relativitydevhub/authservice/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := pkglogger.New(os.Stdout, cfg.Server.LogLevel)
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.String("api_prefix", cfg.Server.APIPrefix),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize application", slog.Any("error", err))
		os.Exit(1)
	}
	defer a.Close()

	adminCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := a.EnsureAdmin(adminCtx); err != nil {
		logger.Error("failed to ensure admin user", slog.Any("error", err))
	}
	cancel()

	if err := a.Run(ctx); err != nil {
		logger.Error("server exited with error", slog.Any("error", err))
		a.Close()
		os.Exit(1)
	}
}
