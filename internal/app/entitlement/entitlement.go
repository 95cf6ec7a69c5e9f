// Package entitlement запускает gRPC-сервис проверки доступа.
package entitlement

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"

	"github.com/magabrotheeeer/silver-circles/internal/config"
	engine "github.com/magabrotheeeer/silver-circles/internal/entitlement"
	entitlementpb "github.com/magabrotheeeer/silver-circles/internal/grpc/gen"
	"github.com/magabrotheeeer/silver-circles/internal/grpc/server"
	"github.com/magabrotheeeer/silver-circles/internal/lib/sl"
	"github.com/magabrotheeeer/silver-circles/internal/storage/repository"
)

// App — gRPC-сервер проверки доступа.
type App struct {
	grpcServer *grpc.Server
	listener   net.Listener
	db         *repository.Storage
	logger     *slog.Logger
}

// New подключает хранилище и открывает порт сервиса.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.entitlement.New"

	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lis, err := net.Listen("tcp", cfg.GRPCEntitlementAddress)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	authz := engine.NewAuthorizer(
		engine.NewEngine(engine.WithPremiumConcealment(cfg.Access.ConcealPremiumFromAnonymous)),
		db,
		logger,
	)

	grpcServer := grpc.NewServer()
	entitlementpb.RegisterEntitlementServiceServer(grpcServer, server.NewEntitlementServer(db, authz, logger))

	return &App{
		grpcServer: grpcServer,
		listener:   lis,
		db:         db,
		logger:     logger,
	}, nil
}

// Run обслуживает запросы до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("entitlement gRPC service listening on", slog.String("address", a.listener.Addr().String()))
		errCh <- a.grpcServer.Serve(a.listener)
	}()

	var err error
	select {
	case <-ctx.Done():
		a.grpcServer.GracefulStop()
	case err = <-errCh:
	}
	if cerr := a.db.Close(); cerr != nil {
		a.logger.Error("failed to close storage", sl.Err(cerr))
	}
	return err
}
