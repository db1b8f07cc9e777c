// Package api exposes the service as a single http.HandlerFunc for
// serverless platforms that invoke one handler per request.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/relativitydevhub/authservice/internal/app"
	"github.com/relativitydevhub/authservice/internal/config"
	pkghttp "github.com/relativitydevhub/authservice/pkg/http"
	pkglogger "github.com/relativitydevhub/authservice/pkg/logger"
)

var (
	initOnce sync.Once
	instance *app.App
	initErr  error
)

func build() {
	cfg, err := config.Load()
	if err != nil {
		initErr = err
		slog.Error("failed to load configuration", slog.Any("error", err))
		return
	}

	logger := pkglogger.New(os.Stdout, cfg.Server.LogLevel)
	slog.SetDefault(logger)

	ctx := context.Background()
	instance, initErr = app.New(ctx, cfg, logger)
	if initErr != nil {
		logger.Error("failed to initialize application", slog.Any("error", initErr))
		return
	}

	if err := instance.EnsureAdmin(ctx); err != nil {
		logger.Error("failed to ensure admin user", slog.Any("error", err))
	}
}

// Handler serves one request, building the application on first use
func Handler(w http.ResponseWriter, r *http.Request) {
	initOnce.Do(build)

	if initErr != nil {
		pkghttp.WriteServiceUnavailable(w, r, "Service is starting or misconfigured")
		return
	}

	instance.Handler().ServeHTTP(w, r)
}
