// Package admin содержит административные операции: управление форумами,
// группами и пользователями. Все операции требуют флага администратора
// и не зависят от уровня ресурса.
package admin

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/silver-circles/internal/entitlement"
	"github.com/magabrotheeeer/silver-circles/internal/lib/sl"
	"github.com/magabrotheeeer/silver-circles/internal/models"
)

// DefaultPageSize — размер страницы списка пользователей по умолчанию.
const DefaultPageSize = 50

// Store — часть хранилища, нужная администратору.
type Store interface {
	CreateForum(ctx context.Context, forum models.Forum) (*models.Forum, error)
	UpdateForum(ctx context.Context, id int64, patch models.ForumPatch) (*models.Forum, error)
	DeleteForum(ctx context.Context, id int64) error
	CreateGroup(ctx context.Context, group models.Group) (*models.Group, error)
	UpdateGroup(ctx context.Context, id int64, patch models.GroupPatch) (*models.Group, error)
	DeleteGroup(ctx context.Context, id int64) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error)
	UpdateUser(ctx context.Context, id int64, patch models.UserPatch) (*models.User, error)
}

// PremiumOverrider меняет премиум в обход биллинга.
type PremiumOverrider interface {
	SetPremium(ctx context.Context, userID int64, premium bool, until *time.Time) (*models.User, error)
}

// UserUpdate — изменения пользователя администратором. Пароль и ссылки
// на биллинг здесь не меняются. PremiumUntil учитывается только вместе с IsPremium.
type UserUpdate struct {
	FullName     *string
	AboutMe      *string
	ProfileImage *string
	IsAdmin      *bool
	IsPremium    *bool
	PremiumUntil *time.Time
}

// Service выполняет административные операции.
type Service struct {
	store   Store
	premium PremiumOverrider
	authz   *entitlement.Authorizer
	log     *slog.Logger
}

// NewService создает новый экземпляр Service.
func NewService(store Store, premium PremiumOverrider, authz *entitlement.Authorizer, log *slog.Logger) *Service {
	return &Service{
		store:   store,
		premium: premium,
		authz:   authz,
		log:     log,
	}
}

func (s *Service) authorize(ctx context.Context, actor *entitlement.Actor, action entitlement.Action) error {
	decision, err := s.authz.Authorize(ctx, actor, action, entitlement.NoTarget())
	if err != nil {
		return err
	}
	return entitlement.Check(decision)
}

// CreateForum создает форум.
func (s *Service) CreateForum(ctx context.Context, actor *entitlement.Actor, forum models.Forum) (*models.Forum, error) {
	const op = "admin.CreateForum"
	if err := s.authorize(ctx, actor, entitlement.ManageForum); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	created, err := s.store.CreateForum(ctx, forum)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("forum created", slog.Int64("forum_id", created.ID), slog.Bool("premium", created.IsPremium))
	return created, nil
}

// UpdateForum меняет форум, в том числе его уровень.
func (s *Service) UpdateForum(ctx context.Context, actor *entitlement.Actor, id int64, patch models.ForumPatch) (*models.Forum, error) {
	const op = "admin.UpdateForum"
	if err := s.authorize(ctx, actor, entitlement.ManageForum); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	forum, err := s.store.UpdateForum(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return forum, nil
}

// DeleteForum удаляет форум.
func (s *Service) DeleteForum(ctx context.Context, actor *entitlement.Actor, id int64) error {
	const op = "admin.DeleteForum"
	if err := s.authorize(ctx, actor, entitlement.ManageForum); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.store.DeleteForum(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("forum deleted", slog.Int64("forum_id", id))
	return nil
}

// CreateGroup создает группу.
func (s *Service) CreateGroup(ctx context.Context, actor *entitlement.Actor, group models.Group) (*models.Group, error) {
	const op = "admin.CreateGroup"
	if err := s.authorize(ctx, actor, entitlement.ManageGroup); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	created, err := s.store.CreateGroup(ctx, group)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("group created", sl.GroupID(created.ID), slog.Bool("premium", created.IsPremium))
	return created, nil
}

// UpdateGroup меняет группу. Повышение уровня действует на существующих
// участников сразу: членство не заменяет премиум.
func (s *Service) UpdateGroup(ctx context.Context, actor *entitlement.Actor, id int64, patch models.GroupPatch) (*models.Group, error) {
	const op = "admin.UpdateGroup"
	if err := s.authorize(ctx, actor, entitlement.ManageGroup); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	group, err := s.store.UpdateGroup(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return group, nil
}

// DeleteGroup удаляет группу вместе с членствами и созвонами.
func (s *Service) DeleteGroup(ctx context.Context, actor *entitlement.Actor, id int64) error {
	const op = "admin.DeleteGroup"
	if err := s.authorize(ctx, actor, entitlement.ManageGroup); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.store.DeleteGroup(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("group deleted", sl.GroupID(id))
	return nil
}

// ListUsers возвращает страницу пользователей.
func (s *Service) ListUsers(ctx context.Context, actor *entitlement.Actor, limit, offset int) ([]*models.User, error) {
	const op = "admin.ListUsers"
	if err := s.authorize(ctx, actor, entitlement.ListUsers); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	users, err := s.store.ListUsers(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return users, nil
}

// UpdateUser применяет изменения профиля и ролей. Премиум меняется
// через PremiumOverrider, ссылки на биллинг остаются прежними.
func (s *Service) UpdateUser(ctx context.Context, actor *entitlement.Actor, id int64, upd UserUpdate) (*models.User, error) {
	const op = "admin.UpdateUser"
	if err := s.authorize(ctx, actor, entitlement.ManageUser); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	patch := models.UserPatch{
		FullName:     upd.FullName,
		AboutMe:      upd.AboutMe,
		ProfileImage: upd.ProfileImage,
		IsAdmin:      upd.IsAdmin,
	}

	var (
		user *models.User
		err  error
	)
	if !patch.IsEmpty() {
		if user, err = s.store.UpdateUser(ctx, id, patch); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	if upd.IsPremium != nil {
		if user, err = s.premium.SetPremium(ctx, id, *upd.IsPremium, upd.PremiumUntil); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	if user == nil {
		if user, err = s.store.GetUser(ctx, id); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	s.log.Info("user updated by admin", sl.UserID(id), slog.Int64("admin_id", actor.UserID))
	return user, nil
}
