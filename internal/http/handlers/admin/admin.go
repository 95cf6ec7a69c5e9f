// Package admin содержит HTTP-обработчики административных операций.
// Права администратора проверяет движок доступа внутри сервиса.
package admin

import (
	"context"
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
	adminsvc "github.com/magabrotheeeer/silver-circles/internal/services/admin"
)

// Service описывает административные операции.
type Service interface {
	CreateForum(ctx context.Context, actor *entitlement.Actor, forum models.Forum) (*models.Forum, error)
	UpdateForum(ctx context.Context, actor *entitlement.Actor, id int64, patch models.ForumPatch) (*models.Forum, error)
	DeleteForum(ctx context.Context, actor *entitlement.Actor, id int64) error
	CreateGroup(ctx context.Context, actor *entitlement.Actor, group models.Group) (*models.Group, error)
	UpdateGroup(ctx context.Context, actor *entitlement.Actor, id int64, patch models.GroupPatch) (*models.Group, error)
	DeleteGroup(ctx context.Context, actor *entitlement.Actor, id int64) error
	ListUsers(ctx context.Context, actor *entitlement.Actor, limit, offset int) ([]*models.User, error)
	UpdateUser(ctx context.Context, actor *entitlement.Actor, id int64, upd adminsvc.UserUpdate) (*models.User, error)
}

// Handler обрабатывает административные запросы.
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

// decode читает и валидирует тело запроса. false означает, что ответ уже записан.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := request.Decode(r, dst); err != nil {
		response.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		response.Invalid(w, r, err)
		return false
	}
	return true
}

// ForumRequest — создание форума.
type ForumRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description"`
	IsPremium   bool   `json:"isPremium"`
}

// ForumPatchRequest — изменение форума.
type ForumPatchRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=200"`
	Description *string `json:"description"`
	IsPremium   *bool   `json:"isPremium"`
}

// GroupRequest — создание группы.
type GroupRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description"`
	IsPremium   bool   `json:"isPremium"`
}

// GroupPatchRequest — изменение группы.
type GroupPatchRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=200"`
	Description *string `json:"description"`
	IsPremium   *bool   `json:"isPremium"`
}

// UserPatchRequest — изменение пользователя администратором.
type UserPatchRequest struct {
	FullName     *string    `json:"fullName" validate:"omitempty,max=100"`
	AboutMe      *string    `json:"aboutMe"`
	ProfileImage *string    `json:"profileImage" validate:"omitempty,url"`
	IsAdmin      *bool      `json:"isAdmin"`
	IsPremium    *bool      `json:"isPremium"`
	PremiumUntil *time.Time `json:"premiumUntil"`
}

// CreateForum godoc
// @Summary Создать форум
// @Tags Admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body ForumRequest true "Форум"
// @Success 201 {object} response.Response
// @Failure 403 {object} response.ErrorResponse
// @Router /admin/forums [post]
func (h *Handler) CreateForum(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.create_forum")

	var req ForumRequest
	if !h.decode(w, r, &req) {
		return
	}
	forum, err := h.service.CreateForum(r.Context(), middlewarectx.Actor(r.Context()), models.Forum{
		Title:       req.Title,
		Description: req.Description,
		IsPremium:   req.IsPremium,
	})
	if err != nil {
		log.Info("create forum failed", sl.Err(err))
		response.ServiceError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(forum))
}

// UpdateForum godoc
// @Summary Изменить форум
// @Tags Admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "ID форума"
// @Param request body ForumPatchRequest true "Изменения"
// @Success 200 {object} response.Response
// @Router /admin/forums/{id} [put]
func (h *Handler) UpdateForum(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.update_forum")

	id, err := request.PathID(r, "id")
	if err != nil {
		response.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	var req ForumPatchRequest
	if !h.decode(w, r, &req) {
		return
	}
	forum, err := h.service.UpdateForum(r.Context(), middlewarectx.Actor(r.Context()), id, models.ForumPatch{
		Title:       req.Title,
		Description: req.Description,
		IsPremium:   req.IsPremium,
	})
	if err != nil {
		log.Info("update forum failed", sl.Err(err))
		response.ServiceError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(forum))
}

// DeleteForum godoc
// @Summary Удалить форум
// @Tags Admin
// @Security BearerAuth
// @Param id path int true "ID форума"
// @Success 204
// @Router /admin/forums/{id} [delete]
func (h *Handler) DeleteForum(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.delete_forum")

	id, err := request.PathID(r, "id")
	if err != nil {
		response.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.service.DeleteForum(r.Context(), middlewarectx.Actor(r.Context()), id); err != nil {
		log.Info("delete forum failed", sl.Err(err))
		response.ServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateGroup godoc
// @Summary Создать группу
// @Tags Admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body GroupRequest true "Группа"
// @Success 201 {object} response.Response
// @Router /admin/groups [post]
func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.create_group")

	var req GroupRequest
	if !h.decode(w, r, &req) {
		return
	}
	group, err := h.service.CreateGroup(r.Context(), middlewarectx.Actor(r.Context()), models.Group{
		Name:        req.Name,
		Description: req.Description,
		IsPremium:   req.IsPremium,
	})
	if err != nil {
		log.Info("create group failed", sl.Err(err))
		response.ServiceError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(group))
}

// UpdateGroup godoc
// @Summary Изменить группу
// @Description Смена уровня группы сразу действует на существующих участников.
// @Tags Admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "ID группы"
// @Param request body GroupPatchRequest true "Изменения"
// @Success 200 {object} response.Response
// @Router /admin/groups/{id} [put]
func (h *Handler) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.update_group")

	id, err := request.PathID(r, "id")
	if err != nil {
		response.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	var req GroupPatchRequest
	if !h.decode(w, r, &req) {
		return
	}
	group, err := h.service.UpdateGroup(r.Context(), middlewarectx.Actor(r.Context()), id, models.GroupPatch{
		Name:        req.Name,
		Description: req.Description,
		IsPremium:   req.IsPremium,
	})
	if err != nil {
		log.Info("update group failed", sl.Err(err))
		response.ServiceError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(group))
}

// DeleteGroup godoc
// @Summary Удалить группу
// @Tags Admin
// @Security BearerAuth
// @Param id path int true "ID группы"
// @Success 204
// @Router /admin/groups/{id} [delete]
func (h *Handler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.delete_group")

	id, err := request.PathID(r, "id")
	if err != nil {
		response.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.service.DeleteGroup(r.Context(), middlewarectx.Actor(r.Context()), id); err != nil {
		log.Info("delete group failed", sl.Err(err))
		response.ServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListUsers godoc
// @Summary Список пользователей
// @Tags Admin
// @Security BearerAuth
// @Produce json
// @Param limit query int false "Размер страницы"
// @Param offset query int false "Смещение"
// @Success 200 {object} response.Response
// @Router /admin/users [get]
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.list_users")

	limit, err := request.QueryInt(r, "limit", adminsvc.DefaultPageSize)
	if err != nil {
		response.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := request.QueryInt(r, "offset", 0)
	if err != nil {
		response.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	users, err := h.service.ListUsers(r.Context(), middlewarectx.Actor(r.Context()), limit, offset)
	if err != nil {
		log.Info("list users failed", sl.Err(err))
		response.ServiceError(w, r, err)
		return
	}
	if users == nil {
		users = []*models.User{}
	}
	render.JSON(w, r, response.OKWithData(users))
}

// UpdateUser godoc
// @Summary Изменить пользователя
// @Description Меняет профиль, права администратора и премиум в обход биллинга.
// @Tags Admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "ID пользователя"
// @Param request body UserPatchRequest true "Изменения"
// @Success 200 {object} response.Response
// @Router /admin/users/{id} [put]
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.update_user")

	id, err := request.PathID(r, "id")
	if err != nil {
		response.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	var req UserPatchRequest
	if !h.decode(w, r, &req) {
		return
	}
	user, err := h.service.UpdateUser(r.Context(), middlewarectx.Actor(r.Context()), id, adminsvc.UserUpdate{
		FullName:     req.FullName,
		AboutMe:      req.AboutMe,
		ProfileImage: req.ProfileImage,
		IsAdmin:      req.IsAdmin,
		IsPremium:    req.IsPremium,
		PremiumUntil: req.PremiumUntil,
	})
	if err != nil {
		log.Info("update user failed", sl.Err(err))
		response.ServiceError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(user))
}
