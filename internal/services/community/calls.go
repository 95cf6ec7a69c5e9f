package community

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/silver-circles/internal/entitlement"
	"github.com/magabrotheeeer/silver-circles/internal/lib/sl"
	"github.com/magabrotheeeer/silver-circles/internal/models"
)

// CallInput — данные нового созвона.
type CallInput struct {
	Title       string
	Description string
	StartTime   time.Time
	EndTime     time.Time
	ZoomLink    string
}

// ListGroupCalls возвращает созвоны группы. Нужны уровень доступа и членство.
func (s *Service) ListGroupCalls(ctx context.Context, actor *entitlement.Actor, groupID int64) ([]models.ZoomCallView, error) {
	const op = "community.ListGroupCalls"
	if _, err := s.group(ctx, actor, entitlement.ListGroupCalls, groupID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	calls, err := s.store.ListCallsForGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return calls, nil
}

// CreateCall планирует созвон группы.
func (s *Service) CreateCall(ctx context.Context, actor *entitlement.Actor, groupID int64, in CallInput) (*models.ZoomCall, error) {
	const op = "community.CreateCall"
	if _, err := s.group(ctx, actor, entitlement.CreateCall, groupID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !in.StartTime.Before(in.EndTime) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidSchedule)
	}
	call, err := s.store.CreateCall(ctx, models.ZoomCall{
		GroupID:     groupID,
		Title:       in.Title,
		Description: in.Description,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		ZoomLink:    in.ZoomLink,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("call scheduled", sl.UserID(actor.UserID), sl.GroupID(groupID), slog.Int64("call_id", call.ID))
	return call, nil
}

// JoinCall отмечает участие актора и возвращает внешнюю ссылку.
// Повторный вход возвращает ту же ссылку.
func (s *Service) JoinCall(ctx context.Context, actor *entitlement.Actor, callID int64) (string, error) {
	const op = "community.JoinCall"
	call, err := lookup(s.store.GetCall(ctx, callID))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	var group *models.Group
	if call != nil {
		if group, err = lookup(s.store.GetGroup(ctx, call.GroupID)); err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
	}
	if err := s.authorize(ctx, actor, entitlement.JoinCall, entitlement.CallTarget(call, group)); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if _, err := s.store.AddCallParticipant(ctx, callID, actor.UserID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return call.ZoomLink, nil
}

// ListMyCalls возвращает предстоящие созвоны групп актора.
// Созвоны премиальных групп скрыты от пользователей без премиума.
func (s *Service) ListMyCalls(ctx context.Context, actor *entitlement.Actor) ([]models.ZoomCallView, error) {
	const op = "community.ListMyCalls"
	if err := s.authorize(ctx, actor, entitlement.ListMyCalls, entitlement.NoTarget()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	calls, err := s.store.ListUpcomingCallsForUser(ctx, actor.UserID, s.now(), actor.Premium)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return calls, nil
}
