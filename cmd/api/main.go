package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carolinespringscc/cricket-agent/internal/app"
	"github.com/carolinespringscc/cricket-agent/internal/config"
	"github.com/carolinespringscc/cricket-agent/internal/platform/logging"
	"github.com/carolinespringscc/cricket-agent/internal/platform/secrets"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.NewJSON(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()
	logging.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var accessor config.SecretAccessor
	if cfg.NeedsSecretManager() {
		gsm, err := secrets.NewGSMAccessor(ctx)
		if err != nil {
			logger.Error("secret manager unavailable", "error", err)
			os.Exit(1)
		}
		defer func() { _ = gsm.Close() }()
		accessor = gsm
	}
	if err := cfg.ResolveSecrets(ctx, accessor); err != nil {
		logger.Error("resolve secrets", "error", err)
		os.Exit(1)
	}

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("build app", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	srv, err := app.NewHTTPServer(application)
	if err != nil {
		logger.Error("build http server", "error", err)
		os.Exit(1)
	}

	go func() {
		logger.Info("http server starting",
			"addr", cfg.HTTPAddr,
			"env", cfg.AppEnv,
			"mode", cfg.Mode,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	logger.Info("http server stopped")
}
