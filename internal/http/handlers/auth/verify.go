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
	"github.com/magabrotheeeer/silver-circles/internal/services/token"
)

// VerifyEmailHandler подтверждает почту по токену из ссылки.
type VerifyEmailHandler struct {
	log     *slog.Logger
	service Service
}

// NewVerifyEmail создает VerifyEmailHandler.
func NewVerifyEmail(log *slog.Logger, service Service) *VerifyEmailHandler {
	return &VerifyEmailHandler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Подтверждение почты
// @Tags Auth
// @Produce json
// @Param token query string true "Токен подтверждения"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} response.ErrorResponse "Токен недействителен, истек или почта уже подтверждена"
// @Router /verify-email [get]
func (h *VerifyEmailHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.verify_email"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	user, err := h.service.VerifyEmail(r.Context(), r.URL.Query().Get("token"))
	switch {
	case errors.Is(err, token.ErrAlreadyVerified):
		response.WriteError(w, r, http.StatusBadRequest, "Email already verified")
		return
	case errors.Is(err, token.ErrExpiredToken):
		response.WriteError(w, r, http.StatusBadRequest, "Verification token has expired")
		return
	case errors.Is(err, token.ErrInvalidToken):
		response.WriteError(w, r, http.StatusBadRequest, "Invalid verification token")
		return
	case err != nil:
		log.Error("failed to verify email", sl.Err(err))
		response.Internal(w, r)
		return
	}

	log.Info("email verified", sl.UserID(user.ID))
	render.JSON(w, r, response.OKWithData(MessageResponse{Message: "Email verified successfully"}))
}

// ResendVerificationHandler отправляет письмо подтверждения повторно.
type ResendVerificationHandler struct {
	log     *slog.Logger
	service Service
}

// NewResendVerification создает ResendVerificationHandler.
func NewResendVerification(log *slog.Logger, service Service) *ResendVerificationHandler {
	return &ResendVerificationHandler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Повторное письмо подтверждения
// @Description Выпускает новый токен подтверждения, прежний перестает действовать.
// @Tags Auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} MessageResponse
// @Failure 400 {object} response.ErrorResponse "Почта уже подтверждена"
// @Failure 401 {object} response.ErrorResponse
// @Router /resend-verification [post]
func (h *ResendVerificationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.resend_verification"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	actor := middlewarectx.Actor(r.Context())
	if actor == nil {
		response.Denied(w, r, entitlement.DenyAuthRequired)
		return
	}

	err := h.service.ResendVerification(r.Context(), actor.UserID)
	switch {
	case errors.Is(err, token.ErrAlreadyVerified):
		response.WriteError(w, r, http.StatusBadRequest, "Email already verified")
		return
	case err != nil:
		log.Error("failed to resend verification", sl.Err(err))
		response.ServiceError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(MessageResponse{Message: "Verification email sent"}))
}

// ForgotPasswordRequest — запрос на сброс пароля.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ForgotPasswordHandler запускает сброс пароля.
type ForgotPasswordHandler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// NewForgotPassword создает ForgotPasswordHandler.
func NewForgotPassword(log *slog.Logger, service Service) *ForgotPasswordHandler {
	return &ForgotPasswordHandler{log: log, service: service, validate: request.NewValidator()}
}

// ServeHTTP godoc
// @Summary Запрос сброса пароля
// @Description Ответ одинаков для существующей и несуществующей почты.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body ForgotPasswordRequest true "Почта"
// @Success 200 {object} MessageResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /forgot-password [post]
func (h *ForgotPasswordHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.forgot_password"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req ForgotPasswordRequest
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Invalid(w, r, err)
		return
	}

	msg, err := h.service.ForgotPassword(r.Context(), req.Email)
	if err != nil {
		log.Error("failed to process password reset request", sl.Err(err))
		response.Internal(w, r)
		return
	}
	render.JSON(w, r, response.OKWithData(MessageResponse{Message: msg}))
}

// ResetPasswordRequest — новый пароль и токен сброса.
type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

// ResetPasswordHandler меняет пароль по токену сброса.
type ResetPasswordHandler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// NewResetPassword создает ResetPasswordHandler.
func NewResetPassword(log *slog.Logger, service Service) *ResetPasswordHandler {
	return &ResetPasswordHandler{log: log, service: service, validate: request.NewValidator()}
}

// ServeHTTP godoc
// @Summary Сброс пароля
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body ResetPasswordRequest true "Токен и новый пароль"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} response.ErrorResponse "Токен недействителен или истек"
// @Failure 422 {object} response.ErrorResponse
// @Router /reset-password [post]
func (h *ResetPasswordHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.reset_password"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req ResetPasswordRequest
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Invalid(w, r, err)
		return
	}

	err := h.service.ResetPassword(r.Context(), req.Token, req.Password)
	switch {
	case errors.Is(err, token.ErrExpiredToken):
		response.WriteError(w, r, http.StatusBadRequest, "Reset token has expired")
		return
	case errors.Is(err, token.ErrInvalidToken):
		response.WriteError(w, r, http.StatusBadRequest, "Invalid or expired reset token")
		return
	case err != nil:
		log.Error("failed to reset password", sl.Err(err))
		response.Internal(w, r)
		return
	}
	render.JSON(w, r, response.OKWithData(MessageResponse{Message: "Password reset successful"}))
}
