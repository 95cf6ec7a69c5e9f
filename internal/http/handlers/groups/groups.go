// Package groups содержит HTTP-обработчики групп по интересам и их созвонов.
package groups

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/silver-circles/internal/entitlement"
	"github.com/magabrotheeeer/silver-circles/internal/http/middlewarectx"
	"github.com/magabrotheeeer/silver-circles/internal/http/request"
	"github.com/magabrotheeeer/silver-circles/internal/http/response"
	"github.com/magabrotheeeer/silver-circles/internal/lib/sl"
	"github.com/magabrotheeeer/silver-circles/internal/models"
	"github.com/magabrotheeeer/silver-circles/internal/services/community"
)

// Service описывает операции с группами и созвонами.
type Service interface {
	ListGroups(ctx context.Context, actor *entitlement.Actor, premium bool) ([]models.Group, error)
	GetGroup(ctx context.Context, actor *entitlement.Actor, id int64) (*models.GroupWithMembers, error)
	ListMyGroups(ctx context.Context, actor *entitlement.Actor) ([]models.Group, error)
	SuggestedGroups(ctx context.Context, actor *entitlement.Actor, limit int) ([]models.Group, error)
	JoinGroup(ctx context.Context, actor *entitlement.Actor, groupID int64) error
	LeaveGroup(ctx context.Context, actor *entitlement.Actor, groupID int64) error

	ListGroupCalls(ctx context.Context, actor *entitlement.Actor, groupID int64) ([]models.ZoomCallView, error)
	CreateCall(ctx context.Context, actor *entitlement.Actor, groupID int64, in community.CallInput) (*models.ZoomCall, error)
	JoinCall(ctx context.Context, actor *entitlement.Actor, callID int64) (string, error)
	ListMyCalls(ctx context.Context, actor *entitlement.Actor) ([]models.ZoomCallView, error)
}

// Handler обрабатывает запросы к группам и созвонам.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: request.NewValidator(),
	}
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

func emptyIfNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}

// List godoc
// @Summary Список групп
// @Tags Groups
// @Produce json
// @Param premium query bool false "Уровень групп"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse
// @Router /groups [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.groups.list")

	premium := r.URL.Query().Get("premium") == "true"
	groups, err := h.service.ListGroups(r.Context(), middlewarectx.Actor(r.Context()), premium)
	if err != nil {
		log.Info("list groups failed", sl.Err(err))
		response.ServiceError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(emptyIfNil(groups)))
}

// Get godoc
// @Summary Группа с участниками
// @Tags Groups
// @Produce json
// @Param id path int true "ID группы"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /groups/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.groups.get")

	id, err := request.PathID(r, "id")
	if err != nil {
		response.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	group, err := h.service.GetGroup(r.Context(), middlewarectx.Actor(r.Context()), id)
	if err != nil {
		log.Info("get group failed", sl.Err(err))
		response.ServiceError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(group))
}

// Mine godoc
// @Summary Мои группы
// @Tags Groups
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response
// @Router /user/groups [get]
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.groups.mine")

	groups, err := h.service.ListMyGroups(r.Context(), middlewarectx.Actor(r.Context()))
	if err != nil {
		log.Info("list my groups failed", sl.Err(err))
		response.ServiceError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(emptyIfNil(groups)))
}

// Suggested godoc
// @Summary Рекомендованные группы
// @Tags Groups
// @Security BearerAuth
// @Produce json
// @Param limit query int false "Количество"
// @Success 200 {object} response.Response
// @Router /user/suggested-groups [get]
func (h *Handler) Suggested(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.groups.suggested")

	limit, err := request.QueryInt(r, "limit", community.DefaultSuggestedLimit)
	if err != nil {
		response.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	groups, err := h.service.SuggestedGroups(r.Context(), middlewarectx.Actor(r.Context()), limit)
	if err != nil {
		log.Info("suggested groups failed", sl.Err(err))
		response.ServiceError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(emptyIfNil(groups)))
}

// Join godoc
// @Summary Вступить в группу
// @Tags Groups
// @Security BearerAuth
// @Param id path int true "ID группы"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Уже участник"
// @Failure 403 {object} response.ErrorResponse
// @Router /groups/{id}/join [post]
func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.groups.join")

	id, err := request.PathID(r, "id")
	if err != nil {
		response.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	err = h.service.JoinGroup(r.Context(), middlewarectx.Actor(r.Context()), id)
	switch {
	case errors.Is(err, community.ErrAlreadyMember):
		response.WriteError(w, r, http.StatusBadRequest, "Already a member of this group")
		return
	case err != nil:
		log.Info("join group failed", sl.Err(err))
		response.ServiceError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(map[string]string{"message": "Joined group"}))
}

// Leave godoc
// @Summary Покинуть группу
// @Tags Groups
// @Security BearerAuth
// @Param id path int true "ID группы"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Не участник"
// @Router /groups/{id}/leave [post]
func (h *Handler) Leave(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.groups.leave")

	id, err := request.PathID(r, "id")
	if err != nil {
		response.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	err = h.service.LeaveGroup(r.Context(), middlewarectx.Actor(r.Context()), id)
	switch {
	case errors.Is(err, community.ErrNotMember):
		response.WriteError(w, r, http.StatusBadRequest, "Not a member of this group")
		return
	case err != nil:
		log.Info("leave group failed", sl.Err(err))
		response.ServiceError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(map[string]string{"message": "Left group"}))
}

// ListCalls godoc
// @Summary Созвоны группы
// @Tags Calls
// @Security BearerAuth
// @Produce json
// @Param id path int true "ID группы"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse
// @Router /groups/{id}/zoom-calls [get]
func (h *Handler) ListCalls(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.groups.list_calls")

	id, err := request.PathID(r, "id")
	if err != nil {
		response.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	calls, err := h.service.ListGroupCalls(r.Context(), middlewarectx.Actor(r.Context()), id)
	if err != nil {
		log.Info("list calls failed", sl.Err(err))
		response.ServiceError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(emptyIfNil(calls)))
}

// CallRequest — новый созвон группы.
type CallRequest struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"startTime" validate:"required"`
	EndTime     time.Time `json:"endTime" validate:"required,gtfield=StartTime"`
	ZoomLink    string    `json:"zoomLink" validate:"required,url"`
}

// CreateCall godoc
// @Summary Запланировать созвон
// @Tags Calls
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "ID группы"
// @Param request body CallRequest true "Созвон"
// @Success 201 {object} response.Response
// @Failure 403 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /groups/{id}/zoom-calls [post]
func (h *Handler) CreateCall(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.groups.create_call")

	id, err := request.PathID(r, "id")
	if err != nil {
		response.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	var req CallRequest
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Invalid(w, r, err)
		return
	}

	call, err := h.service.CreateCall(r.Context(), middlewarectx.Actor(r.Context()), id, community.CallInput{
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		ZoomLink:    req.ZoomLink,
	})
	switch {
	case errors.Is(err, community.ErrInvalidSchedule):
		response.WriteError(w, r, http.StatusUnprocessableEntity, community.ErrInvalidSchedule.Error())
		return
	case err != nil:
		log.Info("create call failed", sl.Err(err))
		response.ServiceError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(call))
}

// JoinCall godoc
// @Summary Присоединиться к созвону
// @Description Возвращает внешнюю ссылку на созвон.
// @Tags Calls
// @Security BearerAuth
// @Produce json
// @Param id path int true "ID созвона"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /zoom-calls/{id}/join [post]
func (h *Handler) JoinCall(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.groups.join_call")

	id, err := request.PathID(r, "id")
	if err != nil {
		response.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	link, err := h.service.JoinCall(r.Context(), middlewarectx.Actor(r.Context()), id)
	if err != nil {
		log.Info("join call failed", sl.Err(err))
		response.ServiceError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(map[string]string{"zoomLink": link}))
}

// MyCalls godoc
// @Summary Мои предстоящие созвоны
// @Tags Calls
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response
// @Router /user/zoom-calls [get]
func (h *Handler) MyCalls(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.groups.my_calls")

	calls, err := h.service.ListMyCalls(r.Context(), middlewarectx.Actor(r.Context()))
	if err != nil {
		log.Info("list my calls failed", sl.Err(err))
		response.ServiceError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(emptyIfNil(calls)))
}
