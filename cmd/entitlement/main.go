package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/silver-circles/internal/app/entitlement"
	"github.com/magabrotheeeer/silver-circles/internal/config"
	"github.com/magabrotheeeer/silver-circles/internal/lib/sl"
)

func main() {
	cfg := config.MustLoad()
	logger := sl.SetupLogger(cfg.Env)

	logger.Info("starting entitlement service", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := entitlement.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize entitlement service", sl.Err(err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error("entitlement service stopped with error", sl.Err(err))
		os.Exit(1)
	}

	logger.Info("entitlement service stopped gracefully")
}
