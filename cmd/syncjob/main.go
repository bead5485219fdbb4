package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/carolinespringscc/cricket-agent/internal/app"
	"github.com/carolinespringscc/cricket-agent/internal/config"
	"github.com/carolinespringscc/cricket-agent/internal/platform/logging"
	"github.com/carolinespringscc/cricket-agent/internal/platform/secrets"
	"github.com/carolinespringscc/cricket-agent/internal/usecase"
)

// syncjob runs one refresh and exits. It is meant for Cloud Scheduler: the
// exit code reflects whether any per-entity error was absorbed, and the
// stats land on stdout as a single JSON object.
func main() {
	scopeFlag := flag.String("scope", "all", "refresh scope: all, team, match or ladder")
	idFlag := flag.String("id", "", "narrows team, match and ladder scopes")
	matchDaysOnly := flag.Bool("match-days-only", false, "exit without syncing unless today is a configured match day")
	flag.Parse()

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

	if *matchDaysOnly && !cfg.IsMatchDay(time.Now()) {
		logger.Info("not a match day, skipping sync", "hints", cfg.MatchDayHints)
		return
	}

	scope, err := usecase.ParseSyncScope(*scopeFlag)
	if err != nil {
		logger.Error("invalid scope", "scope", *scopeFlag, "error", err)
		os.Exit(1)
	}

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("build app", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	stats, err := application.SyncService.Run(ctx, usecase.SyncInput{Scope: scope, ID: *idFlag})
	if err != nil {
		logger.Error("sync run failed", "error", err)
		os.Exit(1)
	}

	out, err := sonic.Marshal(stats)
	if err != nil {
		logger.Error("encode stats", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(out))

	if stats.Errors > 0 {
		os.Exit(1)
	}
}
