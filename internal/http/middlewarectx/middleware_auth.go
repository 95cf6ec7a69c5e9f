// Package middlewarectx содержит HTTP middleware платформы.
//
// Authenticate читает токен сессии из заголовка Authorization и кладет в
// контекст актора для движка доступа. Запрос без заголовка проходит как
// анонимный, решение о доступе принимают обработчики. RequireAuth отклоняет
// анонимные запросы с кодом причины auth_required.
package middlewarectx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/silver-circles/internal/entitlement"
	"github.com/magabrotheeeer/silver-circles/internal/http/response"
	"github.com/magabrotheeeer/silver-circles/internal/lib/sl"
	"github.com/magabrotheeeer/silver-circles/internal/models"
	"github.com/magabrotheeeer/silver-circles/internal/session"
	"github.com/magabrotheeeer/silver-circles/internal/storage"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// ActorKey — ключ актора в контексте.
	ActorKey Key = "actor"
	// TokenKey — ключ токена сессии в контексте.
	TokenKey Key = "session_token"
)

// SessionResolver проверяет токен сессии.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (int64, error)
}

// UserLoader загружает пользователя сессии.
type UserLoader interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
}

// Authenticate возвращает middleware, определяющее актора запроса.
// Неверный или отозванный токен дает 401, сбой хранилища дает 500.
func Authenticate(sessions SessionResolver, users UserLoader, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.Authenticate"

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			if !strings.HasPrefix(authHeader, "Bearer ") {
				log.Warn("malformed authorization header")
				response.WriteError(w, r, http.StatusUnauthorized, "missing or invalid authorization header")
				return
			}
			token := strings.TrimPrefix(authHeader, "Bearer ")

			userID, err := sessions.Resolve(r.Context(), token)
			if errors.Is(err, session.ErrInvalidSession) {
				log.Warn("invalid or expired session")
				response.WriteError(w, r, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			if err != nil {
				log.Error("failed to resolve session", sl.Err(err))
				response.Internal(w, r)
				return
			}

			user, err := users.GetUser(r.Context(), userID)
			if errors.Is(err, storage.ErrNotFound) {
				log.Warn("session user no longer exists", sl.UserID(userID))
				response.WriteError(w, r, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			if err != nil {
				log.Error("failed to load session user", sl.Err(err))
				response.Internal(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), ActorKey, entitlement.ActorFromUser(user, time.Now()))
			ctx = context.WithValue(ctx, TokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth отклоняет запросы без актора.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if Actor(r.Context()) == nil {
			response.Denied(w, r, entitlement.DenyAuthRequired)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Actor возвращает актора запроса или nil для анонимного.
func Actor(ctx context.Context) *entitlement.Actor {
	actor, _ := ctx.Value(ActorKey).(*entitlement.Actor)
	return actor
}

// Token возвращает токен сессии запроса.
func Token(ctx context.Context) string {
	token, _ := ctx.Value(TokenKey).(string)
	return token
}

// WithActor кладет актора в контекст.
func WithActor(ctx context.Context, actor *entitlement.Actor) context.Context {
	return context.WithValue(ctx, ActorKey, actor)
}
