// Package main Silver Circles API
//
// @title           Silver Circles API
// @version         1.0
// @description     API сообщества Silver Circles: форумы, группы, созвоны и премиум-подписка
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.email  support@silvercircles.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and session token.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/magabrotheeeer/silver-circles/docs"
	"github.com/magabrotheeeer/silver-circles/internal/app/silvercircles"
	"github.com/magabrotheeeer/silver-circles/internal/config"
	"github.com/magabrotheeeer/silver-circles/internal/lib/sl"
)

func main() {
	cfg := config.MustLoad()
	logger := sl.SetupLogger(cfg.Env)

	logger.Info("starting silver-circles", slog.String("env", cfg.Env))
	logger.Debug("config loaded", slog.String("config", cfg.String()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := silvercircles.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize app", sl.Err(err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("app stopped with error", sl.Err(err))
		os.Exit(1)
	}

	logger.Info("silver-circles stopped gracefully")
}
