// Package subscription содержит HTTP-обработчики подписки: создание или
// получение подписки, подтверждение оплаты и вебхук платежного провайдера.
package subscription

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/stripe/stripe-go/v76"

	"github.com/magabrotheeeer/silver-circles/internal/billing"
	"github.com/magabrotheeeer/silver-circles/internal/entitlement"
	"github.com/magabrotheeeer/silver-circles/internal/http/middlewarectx"
	"github.com/magabrotheeeer/silver-circles/internal/http/response"
	"github.com/magabrotheeeer/silver-circles/internal/lib/sl"
	"github.com/magabrotheeeer/silver-circles/internal/models"
	subsvc "github.com/magabrotheeeer/silver-circles/internal/services/subscription"
)

// maxWebhookBody ограничивает размер тела вебхука.
const maxWebhookBody = 64 << 10

// Service описывает жизненный цикл подписки.
type Service interface {
	EnsureSubscription(ctx context.Context, user *models.User) (*subsvc.Result, error)
	Confirm(ctx context.Context, userID int64) (*models.User, error)
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

// UserLoader загружает пользователя сессии.
type UserLoader interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
}

// Handler обрабатывает запросы подписки.
type Handler struct {
	log           *slog.Logger
	service       Service
	users         UserLoader
	webhookSecret string
}

// New создает Handler. webhookSecret используется для проверки подписи вебхука.
func New(log *slog.Logger, service Service, users UserLoader, webhookSecret string) *Handler {
	return &Handler{
		log:           log,
		service:       service,
		users:         users,
		webhookSecret: webhookSecret,
	}
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

func billingError(w http.ResponseWriter, r *http.Request, err error) {
	if msg, ok := billing.ProviderMessage(err); ok {
		response.WriteError(w, r, http.StatusBadRequest, msg)
		return
	}
	response.ServiceError(w, r, err)
}

// Ensure godoc
// @Summary Получить или создать подписку
// @Description Возвращает действующую подписку или создает новую. clientSecret задан, если нужно подтвердить платеж.
// @Tags Subscription
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Ошибка платежного провайдера"
// @Failure 401 {object} response.ErrorResponse
// @Router /get-or-create-subscription [post]
func (h *Handler) Ensure(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.subscription.ensure")

	actor := middlewarectx.Actor(r.Context())
	if actor == nil {
		response.Denied(w, r, entitlement.DenyAuthRequired)
		return
	}
	user, err := h.users.GetUser(r.Context(), actor.UserID)
	if err != nil {
		log.Error("failed to load user", sl.Err(err))
		response.ServiceError(w, r, err)
		return
	}

	res, err := h.service.EnsureSubscription(r.Context(), user)
	if err != nil {
		log.Error("failed to ensure subscription", sl.Err(err))
		billingError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(res))
}

// Confirm godoc
// @Summary Подтвердить оплату
// @Description Сверяет подписку с провайдером и выдает премиум, если она действует.
// @Tags Subscription
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Нет подписки"
// @Router /subscription/confirm [post]
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.subscription.confirm")

	actor := middlewarectx.Actor(r.Context())
	if actor == nil {
		response.Denied(w, r, entitlement.DenyAuthRequired)
		return
	}
	user, err := h.service.Confirm(r.Context(), actor.UserID)
	switch {
	case errors.Is(err, subsvc.ErrNoSubscription):
		response.WriteError(w, r, http.StatusBadRequest, "No subscription found")
		return
	case err != nil:
		log.Error("failed to confirm subscription", sl.Err(err))
		billingError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(user))
}

// Webhook godoc
// @Summary Вебхук платежного провайдера
// @Description Проверяет подпись Stripe-Signature и применяет событие к премиум-статусу.
// @Tags Subscription
// @Accept json
// @Success 200
// @Failure 400 {object} response.ErrorResponse "Неверная подпись"
// @Router /billing/webhook [post]
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.subscription.webhook")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		response.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	event, err := billing.ConstructEvent(body, r.Header.Get(billing.SignatureHeader), h.webhookSecret, billing.DefaultTolerance)
	if err != nil {
		log.Warn("webhook rejected", sl.Err(err))
		response.WriteError(w, r, http.StatusBadRequest, "invalid signature")
		return
	}

	if err := h.service.HandleEvent(r.Context(), event); err != nil {
		log.Error("failed to handle webhook event", sl.Err(err))
		response.Internal(w, r)
		return
	}
	render.JSON(w, r, response.OKWithData(map[string]bool{"received": true}))
}
