package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/silver-circles/internal/entitlement"
	"github.com/magabrotheeeer/silver-circles/internal/http/middlewarectx"
	"github.com/magabrotheeeer/silver-circles/internal/http/request"
	"github.com/magabrotheeeer/silver-circles/internal/http/response"
	"github.com/magabrotheeeer/silver-circles/internal/lib/sl"
	authsvc "github.com/magabrotheeeer/silver-circles/internal/services/auth"
)

// LoginRequest — учетные данные.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginHandler обрабатывает вход по имени и паролю.
type LoginHandler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// NewLogin создает LoginHandler.
func NewLogin(log *slog.Logger, service Service) *LoginHandler {
	return &LoginHandler{
		log:      log,
		service:  service,
		validate: request.NewValidator(),
	}
}

// ServeHTTP godoc
// @Summary Вход пользователя
// @Description Проверяет учетные данные и открывает сессию. Неподтвержденная почта дает отдельное сообщение.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Учетные данные"
// @Success 200 {object} SessionResponse
// @Failure 401 {object} response.ErrorResponse "Неверные учетные данные"
// @Failure 403 {object} response.ErrorResponse "Почта не подтверждена"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /login [post]
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.login"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req LoginRequest
	if err := request.Decode(r, &req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Invalid(w, r, err)
		return
	}

	user, token, err := h.service.Login(r.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, authsvc.ErrUnverified):
		log.Info("login rejected: email not verified", slog.String("username", req.Username))
		response.Denied(w, r, entitlement.DenyUnverified)
		return
	case errors.Is(err, authsvc.ErrInvalidCredentials):
		log.Info("login rejected: invalid credentials", slog.String("username", req.Username))
		response.WriteError(w, r, http.StatusUnauthorized, "authentication failed")
		return
	case err != nil:
		log.Error("login failed", sl.Err(err))
		response.Internal(w, r)
		return
	}

	log.Info("login success", sl.UserID(user.ID))
	render.JSON(w, r, response.OKWithData(SessionResponse{Token: token, User: user}))
}

// LogoutHandler закрывает текущую сессию.
type LogoutHandler struct {
	log     *slog.Logger
	service Service
}

// NewLogout создает LogoutHandler.
func NewLogout(log *slog.Logger, service Service) *LogoutHandler {
	return &LogoutHandler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Выход
// @Tags Auth
// @Security BearerAuth
// @Success 204
// @Router /logout [post]
func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.logout"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	if err := h.service.Logout(r.Context(), middlewarectx.Token(r.Context())); err != nil {
		log.Error("failed to destroy session", sl.Err(err))
		response.Internal(w, r)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MeHandler возвращает текущего пользователя.
type MeHandler struct {
	log     *slog.Logger
	service Service
}

// NewMe создает MeHandler.
func NewMe(log *slog.Logger, service Service) *MeHandler {
	return &MeHandler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Текущий пользователь
// @Tags Auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse
// @Router /user [get]
func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.me"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	actor := middlewarectx.Actor(r.Context())
	if actor == nil {
		response.Denied(w, r, entitlement.DenyAuthRequired)
		return
	}
	user, err := h.service.Me(r.Context(), actor.UserID)
	if err != nil {
		log.Error("failed to load user", sl.Err(err))
		response.ServiceError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(user))
}
