// Package forums содержит HTTP-обработчики форумов, постов и ответов.
// Доступ к премиальным форумам решает движок доступа внутри сервиса,
// обработчик только переводит решение в HTTP-ответ.
package forums

import (
	"context"
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
	"github.com/magabrotheeeer/silver-circles/internal/models"
)

// Service описывает операции с форумами.
type Service interface {
	ListForums(ctx context.Context, actor *entitlement.Actor, premium bool) ([]models.Forum, error)
	GetForum(ctx context.Context, actor *entitlement.Actor, id int64) (*models.Forum, error)
	ListPosts(ctx context.Context, actor *entitlement.Actor, forumID int64) ([]models.ForumPostView, error)
	CreatePost(ctx context.Context, actor *entitlement.Actor, forumID int64, title, content string) (*models.ForumPost, error)
	ListReplies(ctx context.Context, actor *entitlement.Actor, postID int64) ([]models.ForumReplyView, error)
	CreateReply(ctx context.Context, actor *entitlement.Actor, postID int64, content string) (*models.ForumReply, error)
}

// Handler обрабатывает все запросы к форумам. Каждый метод подключается
// к своему маршруту.
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

// List godoc
// @Summary Список форумов
// @Description premium=true возвращает премиальные форумы, доступные только с премиумом.
// @Tags Forums
// @Produce json
// @Param premium query bool false "Уровень форумов"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse
// @Router /forums [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.forums.list")

	premium := r.URL.Query().Get("premium") == "true"
	forums, err := h.service.ListForums(r.Context(), middlewarectx.Actor(r.Context()), premium)
	if err != nil {
		log.Info("list forums failed", sl.Err(err))
		response.ServiceError(w, r, err)
		return
	}
	if forums == nil {
		forums = []models.Forum{}
	}
	render.JSON(w, r, response.OKWithData(forums))
}

// Get godoc
// @Summary Форум
// @Tags Forums
// @Produce json
// @Param id path int true "ID форума"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /forums/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.forums.get")

	id, err := request.PathID(r, "id")
	if err != nil {
		response.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	forum, err := h.service.GetForum(r.Context(), middlewarectx.Actor(r.Context()), id)
	if err != nil {
		log.Info("get forum failed", sl.Err(err))
		response.ServiceError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(forum))
}

// ListPosts godoc
// @Summary Посты форума
// @Tags Forums
// @Produce json
// @Param id path int true "ID форума"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /forums/{id}/posts [get]
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.forums.list_posts")

	id, err := request.PathID(r, "id")
	if err != nil {
		response.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	posts, err := h.service.ListPosts(r.Context(), middlewarectx.Actor(r.Context()), id)
	if err != nil {
		log.Info("list posts failed", sl.Err(err))
		response.ServiceError(w, r, err)
		return
	}
	if posts == nil {
		posts = []models.ForumPostView{}
	}
	render.JSON(w, r, response.OKWithData(posts))
}

// PostRequest — новый пост.
type PostRequest struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"required"`
}

// CreatePost godoc
// @Summary Новый пост
// @Tags Forums
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "ID форума"
// @Param request body PostRequest true "Пост"
// @Success 201 {object} response.Response
// @Failure 401 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /forums/{id}/posts [post]
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.forums.create_post")

	id, err := request.PathID(r, "id")
	if err != nil {
		response.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	var req PostRequest
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Invalid(w, r, err)
		return
	}

	post, err := h.service.CreatePost(r.Context(), middlewarectx.Actor(r.Context()), id, req.Title, req.Content)
	if err != nil {
		log.Info("create post failed", sl.Err(err))
		response.ServiceError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(post))
}

// ListReplies godoc
// @Summary Ответы на пост
// @Tags Forums
// @Produce json
// @Param id path int true "ID поста"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /posts/{id}/replies [get]
func (h *Handler) ListReplies(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.forums.list_replies")

	id, err := request.PathID(r, "id")
	if err != nil {
		response.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	replies, err := h.service.ListReplies(r.Context(), middlewarectx.Actor(r.Context()), id)
	if err != nil {
		log.Info("list replies failed", sl.Err(err))
		response.ServiceError(w, r, err)
		return
	}
	if replies == nil {
		replies = []models.ForumReplyView{}
	}
	render.JSON(w, r, response.OKWithData(replies))
}

// ReplyRequest — новый ответ.
type ReplyRequest struct {
	Content string `json:"content" validate:"required"`
}

// CreateReply godoc
// @Summary Новый ответ
// @Tags Forums
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "ID поста"
// @Param request body ReplyRequest true "Ответ"
// @Success 201 {object} response.Response
// @Failure 401 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Router /posts/{id}/replies [post]
func (h *Handler) CreateReply(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.forums.create_reply")

	id, err := request.PathID(r, "id")
	if err != nil {
		response.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	var req ReplyRequest
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Invalid(w, r, err)
		return
	}

	reply, err := h.service.CreateReply(r.Context(), middlewarectx.Actor(r.Context()), id, req.Content)
	if err != nil {
		log.Info("create reply failed", sl.Err(err))
		response.ServiceError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(reply))
}
