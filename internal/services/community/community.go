// Package community реализует сценарии форумов, групп и созвонов.
// Каждая операция сначала получает решение движка доступа и обращается
// к данным только при Allow; отказ возвращается как *entitlement.DeniedError.
package community

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/silver-circles/internal/entitlement"
	"github.com/magabrotheeeer/silver-circles/internal/models"
	"github.com/magabrotheeeer/silver-circles/internal/storage"
)

// DefaultSuggestedLimit — число рекомендуемых групп по умолчанию.
const DefaultSuggestedLimit = 5

var (
	// ErrAlreadyMember — пользователь уже состоит в группе.
	ErrAlreadyMember = errors.New("already a member of this group")
	// ErrNotMember — пользователь не состоит в группе, из которой выходит.
	ErrNotMember = errors.New("not a member of this group")
	// ErrInvalidSchedule — начало созвона не раньше окончания.
	ErrInvalidSchedule = errors.New("call start time must be before end time")
)

// Store — часть хранилища, нужная сервису.
type Store interface {
	GetForum(ctx context.Context, id int64) (*models.Forum, error)
	ListForums(ctx context.Context, premium bool) ([]models.Forum, error)
	CreatePost(ctx context.Context, post models.ForumPost) (*models.ForumPost, error)
	GetPost(ctx context.Context, id int64) (*models.ForumPost, error)
	ListPostViews(ctx context.Context, forumID int64) ([]models.ForumPostView, error)
	CreateReply(ctx context.Context, reply models.ForumReply) (*models.ForumReply, error)
	ListReplyViews(ctx context.Context, postID int64) ([]models.ForumReplyView, error)

	GetGroup(ctx context.Context, id int64) (*models.Group, error)
	ListGroups(ctx context.Context, premium bool) ([]models.Group, error)
	ListGroupsForUser(ctx context.Context, userID int64) ([]models.Group, error)
	ListSuggestedGroups(ctx context.Context, userID int64, includePremium bool, limit int) ([]models.Group, error)
	AddMembership(ctx context.Context, userID, groupID int64) (bool, error)
	RemoveMembership(ctx context.Context, userID, groupID int64) (bool, error)
	ListMembersForGroup(ctx context.Context, groupID int64) ([]models.UserSummary, error)

	CreateCall(ctx context.Context, call models.ZoomCall) (*models.ZoomCall, error)
	GetCall(ctx context.Context, id int64) (*models.ZoomCall, error)
	ListCallsForGroup(ctx context.Context, groupID int64) ([]models.ZoomCallView, error)
	ListUpcomingCallsForUser(ctx context.Context, userID int64, now time.Time, includePremium bool) ([]models.ZoomCallView, error)
	AddCallParticipant(ctx context.Context, callID, userID int64) (bool, error)
}

// Service реализует сценарии сообщества.
type Service struct {
	store Store
	authz *entitlement.Authorizer
	log   *slog.Logger
	now   func() time.Time
}

// NewService создает новый экземпляр Service.
func NewService(store Store, authz *entitlement.Authorizer, log *slog.Logger) *Service {
	return &Service{
		store: store,
		authz: authz,
		log:   log,
		now:   time.Now,
	}
}

// authorize возвращает nil при Allow и *entitlement.DeniedError при отказе.
func (s *Service) authorize(ctx context.Context, actor *entitlement.Actor, action entitlement.Action, target entitlement.Target) error {
	decision, err := s.authz.Authorize(ctx, actor, action, target)
	if err != nil {
		return err
	}
	return entitlement.Check(decision)
}

// lookup превращает промах хранилища в nil без ошибки,
// чтобы отсутствие ресурса стало решением движка, а не ошибкой.
func lookup[T any](v *T, err error) (*T, error) {
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return v, err
}
