// Package silvercircles собирает HTTP API платформы.
package silvercircles

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/silver-circles/internal/config"
	"github.com/magabrotheeeer/silver-circles/internal/http/handlers/admin"
	"github.com/magabrotheeeer/silver-circles/internal/http/handlers/auth"
	"github.com/magabrotheeeer/silver-circles/internal/http/handlers/forums"
	"github.com/magabrotheeeer/silver-circles/internal/http/handlers/groups"
	"github.com/magabrotheeeer/silver-circles/internal/http/handlers/subscription"
	"github.com/magabrotheeeer/silver-circles/internal/http/middlewarectx"
)

// Services — зависимости обработчиков.
type Services struct {
	Auth         auth.Service
	Forums       forums.Service
	Groups       groups.Service
	Subscription subscription.Service
	Admin        admin.Service
	Sessions     middlewarectx.SessionResolver
	Users        interface {
		middlewarectx.UserLoader
		subscription.UserLoader
	}
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, cfg *config.Config, svc Services) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	limiter := middlewarectx.NewRateLimiter(cfg.HTTPServer.RateLimit, cfg.HTTPServer.RateBurst)
	forumHandler := forums.New(logger, svc.Forums)
	groupHandler := groups.New(logger, svc.Groups)
	subHandler := subscription.New(logger, svc.Subscription, svc.Users, cfg.Billing.WebhookSecret)
	adminHandler := admin.New(logger, svc.Admin)

	r.Route("/api", func(r chi.Router) {
		// Вебхук подписан провайдером и не несет сессии.
		r.Post("/billing/webhook", subHandler.Webhook)

		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.Authenticate(svc.Sessions, svc.Users, logger))

			// Эндпоинты с учетными данными
			r.Group(func(r chi.Router) {
				r.Use(limiter.Middleware(logger))
				r.Post("/register", auth.NewRegister(logger, svc.Auth).ServeHTTP)
				r.Post("/login", auth.NewLogin(logger, svc.Auth).ServeHTTP)
				r.Post("/forgot-password", auth.NewForgotPassword(logger, svc.Auth).ServeHTTP)
				r.Post("/reset-password", auth.NewResetPassword(logger, svc.Auth).ServeHTTP)
			})
			r.Get("/verify-email", auth.NewVerifyEmail(logger, svc.Auth).ServeHTTP)

			// Чтение открыто анонимам, доступ решает движок.
			r.Get("/forums", forumHandler.List)
			r.Get("/forums/{id}", forumHandler.Get)
			r.Get("/forums/{id}/posts", forumHandler.ListPosts)
			r.Get("/posts/{id}/replies", forumHandler.ListReplies)
			r.Get("/groups", groupHandler.List)
			r.Get("/groups/{id}", groupHandler.Get)

			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.RequireAuth)

				r.Post("/logout", auth.NewLogout(logger, svc.Auth).ServeHTTP)
				r.Get("/user", auth.NewMe(logger, svc.Auth).ServeHTTP)
				r.Post("/resend-verification", auth.NewResendVerification(logger, svc.Auth).ServeHTTP)

				r.Post("/forums/{id}/posts", forumHandler.CreatePost)
				r.Post("/posts/{id}/replies", forumHandler.CreateReply)

				r.Post("/groups/{id}/join", groupHandler.Join)
				r.Post("/groups/{id}/leave", groupHandler.Leave)
				r.Get("/groups/{id}/zoom-calls", groupHandler.ListCalls)
				r.Post("/groups/{id}/zoom-calls", groupHandler.CreateCall)
				r.Post("/zoom-calls/{id}/join", groupHandler.JoinCall)
				r.Get("/user/groups", groupHandler.Mine)
				r.Get("/user/suggested-groups", groupHandler.Suggested)
				r.Get("/user/zoom-calls", groupHandler.MyCalls)

				r.Post("/get-or-create-subscription", subHandler.Ensure)
				r.Post("/subscription/confirm", subHandler.Confirm)

				r.Route("/admin", func(r chi.Router) {
					r.Post("/forums", adminHandler.CreateForum)
					r.Put("/forums/{id}", adminHandler.UpdateForum)
					r.Delete("/forums/{id}", adminHandler.DeleteForum)
					r.Post("/groups", adminHandler.CreateGroup)
					r.Put("/groups/{id}", adminHandler.UpdateGroup)
					r.Delete("/groups/{id}", adminHandler.DeleteGroup)
					r.Get("/users", adminHandler.ListUsers)
					r.Put("/users/{id}", adminHandler.UpdateUser)
				})
			})
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
