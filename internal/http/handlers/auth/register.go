package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/silver-circles/internal/http/request"
	"github.com/magabrotheeeer/silver-circles/internal/http/response"
	"github.com/magabrotheeeer/silver-circles/internal/lib/sl"
	authsvc "github.com/magabrotheeeer/silver-circles/internal/services/auth"
	"github.com/magabrotheeeer/silver-circles/internal/storage"
)

// RegisterRequest — данные регистрации.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50,alphanum"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"fullName" validate:"required,max=100"`
}

// RegisterHandler обрабатывает регистрацию нового пользователя.
type RegisterHandler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// NewRegister создает RegisterHandler.
func NewRegister(log *slog.Logger, service Service) *RegisterHandler {
	return &RegisterHandler{
		log:      log,
		service:  service,
		validate: request.NewValidator(),
	}
}

// ServeHTTP godoc
// @Summary Регистрация пользователя
// @Description Создает неподтвержденного пользователя, отправляет письмо подтверждения и открывает сессию.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Данные регистрации"
// @Success 201 {object} SessionResponse
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 409 {object} response.ErrorResponse "Имя или почта заняты"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /register [post]
func (h *RegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.register"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req RegisterRequest
	if err := request.Decode(r, &req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Info("validation failed", sl.Err(err))
		response.Invalid(w, r, err)
		return
	}

	user, token, err := h.service.Register(r.Context(), authsvc.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	switch {
	case errors.Is(err, storage.ErrUsernameTaken):
		response.WriteError(w, r, http.StatusConflict, "Username already exists")
		return
	case errors.Is(err, storage.ErrEmailTaken):
		response.WriteError(w, r, http.StatusConflict, "Email already exists")
		return
	case err != nil:
		log.Error("failed to register user", sl.Err(err))
		response.Internal(w, r)
		return
	}

	log.Info("user registered", sl.UserID(user.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(SessionResponse{Token: token, User: user}))
}
