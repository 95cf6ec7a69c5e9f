package silvercircles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/silver-circles/internal/billing"
	"github.com/magabrotheeeer/silver-circles/internal/cache"
	"github.com/magabrotheeeer/silver-circles/internal/config"
	"github.com/magabrotheeeer/silver-circles/internal/entitlement"
	"github.com/magabrotheeeer/silver-circles/internal/lib/jwt"
	"github.com/magabrotheeeer/silver-circles/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/silver-circles/internal/lib/sl"
	"github.com/magabrotheeeer/silver-circles/internal/migrations"
	"github.com/magabrotheeeer/silver-circles/internal/services/admin"
	authsvc "github.com/magabrotheeeer/silver-circles/internal/services/auth"
	"github.com/magabrotheeeer/silver-circles/internal/services/community"
	"github.com/magabrotheeeer/silver-circles/internal/services/notification"
	"github.com/magabrotheeeer/silver-circles/internal/services/subscription"
	"github.com/magabrotheeeer/silver-circles/internal/services/token"
	"github.com/magabrotheeeer/silver-circles/internal/session"
	"github.com/magabrotheeeer/silver-circles/internal/storage/repository"
)

// Store — хранилище, которое нужно всем сервисам API.
type Store interface {
	community.Store
	admin.Store
	authsvc.UserStore
	subscription.UserStore
	entitlement.MembershipChecker
}

// KV — хранилище сессий и отметок об использованных токенах.
type KV interface {
	session.Store
	token.Tombstones
}

// NewServices собирает сервисы поверх хранилищ.
func NewServices(cfg *config.Config, store Store, kv KV, notifier notification.Dispatcher, billingClient subscription.BillingClient, logger *slog.Logger) Services {
	engine := entitlement.NewEngine(entitlement.WithPremiumConcealment(cfg.Access.ConcealPremiumFromAnonymous))
	authz := entitlement.NewAuthorizer(engine, store, logger)

	sessions := session.NewManager(kv, jwt.NewJWTMaker(cfg.JWTToken.JWTSecretKey, cfg.JWTToken.TokenTTL), cfg.JWTToken.TokenTTL)
	tokens := token.New(store, kv, cfg.Tokens, logger)
	subs := subscription.NewManager(store, billingClient, notifier, cfg.Billing, logger)
	communityService := community.NewService(store, authz, logger)

	return Services{
		Auth:         authsvc.NewService(store, tokens, sessions, notifier, engine, logger),
		Forums:       communityService,
		Groups:       communityService,
		Subscription: subs,
		Admin:        admin.NewService(store, subs, authz, logger),
		Sessions:     sessions,
		Users:        store,
	}
}

// App — HTTP API платформы.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cache  *cache.Cache
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New подключает хранилища и очередь и собирает HTTP-сервер.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "silvercircles.New"

	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.Retries, cfg.RabbitMQ.Delay)
	if err != nil {
		_ = db.Close()
		_ = cacheRedis.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		_ = conn.Close()
		_ = db.Close()
		_ = cacheRedis.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	services := NewServices(cfg, db, cacheRedis, notification.NewQueueDispatcher(ch, logger), billing.NewClient(cfg.Billing, logger), logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, cfg, services)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.TimeoutHTTP,
		WriteTimeout: cfg.HTTPServer.TimeoutHTTP,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		cache:  cacheRedis,
		conn:   conn,
		ch:     ch,
	}, nil
}

// Run обслуживает запросы до отмены ctx и затем останавливает сервер.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err = a.server.Shutdown(timeoutCtx)
	}
	a.close()
	return err
}

func (a *App) close() {
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error("failed to close cache", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
}
