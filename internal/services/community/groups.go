package community

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/silver-circles/internal/entitlement"
	"github.com/magabrotheeeer/silver-circles/internal/lib/sl"
	"github.com/magabrotheeeer/silver-circles/internal/models"
)

// ListGroups возвращает группы указанного уровня.
func (s *Service) ListGroups(ctx context.Context, actor *entitlement.Actor, premium bool) ([]models.Group, error) {
	const op = "community.ListGroups"
	if err := s.authorize(ctx, actor, entitlement.ListGroups, entitlement.Tier(premium)); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	groups, err := s.store.ListGroups(ctx, premium)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return groups, nil
}

func (s *Service) group(ctx context.Context, actor *entitlement.Actor, action entitlement.Action, id int64) (*models.Group, error) {
	group, err := lookup(s.store.GetGroup(ctx, id))
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, action, entitlement.GroupTarget(group)); err != nil {
		return nil, err
	}
	return group, nil
}

// GetGroup возвращает группу со списком участников.
func (s *Service) GetGroup(ctx context.Context, actor *entitlement.Actor, id int64) (*models.GroupWithMembers, error) {
	const op = "community.GetGroup"
	group, err := s.group(ctx, actor, entitlement.ReadGroup, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	members, err := s.store.ListMembersForGroup(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if members == nil {
		members = []models.UserSummary{}
	}
	return &models.GroupWithMembers{Group: *group, Members: members}, nil
}

// ListMyGroups возвращает группы, в которых состоит актор.
func (s *Service) ListMyGroups(ctx context.Context, actor *entitlement.Actor) ([]models.Group, error) {
	const op = "community.ListMyGroups"
	if err := s.authorize(ctx, actor, entitlement.ListMyGroups, entitlement.NoTarget()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	groups, err := s.store.ListGroupsForUser(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return groups, nil
}

// SuggestedGroups возвращает группы, в которых актор не состоит.
// Премиальные группы предлагаются только пользователям с премиумом.
func (s *Service) SuggestedGroups(ctx context.Context, actor *entitlement.Actor, limit int) ([]models.Group, error) {
	const op = "community.SuggestedGroups"
	if err := s.authorize(ctx, actor, entitlement.ListMyGroups, entitlement.NoTarget()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if limit <= 0 {
		limit = DefaultSuggestedLimit
	}
	groups, err := s.store.ListSuggestedGroups(ctx, actor.UserID, actor.Premium, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return groups, nil
}

// JoinGroup добавляет актора в группу. Повторное вступление возвращает ErrAlreadyMember;
// одновременные вступления разрешает ограничение уникальности в хранилище.
func (s *Service) JoinGroup(ctx context.Context, actor *entitlement.Actor, groupID int64) error {
	const op = "community.JoinGroup"
	if _, err := s.group(ctx, actor, entitlement.JoinGroup, groupID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	created, err := s.store.AddMembership(ctx, actor.UserID, groupID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !created {
		return fmt.Errorf("%s: %w", op, ErrAlreadyMember)
	}
	s.log.Info("user joined group", sl.UserID(actor.UserID), sl.GroupID(groupID))
	return nil
}

// LeaveGroup удаляет актора из группы. Уровень группы не проверяется.
func (s *Service) LeaveGroup(ctx context.Context, actor *entitlement.Actor, groupID int64) error {
	const op = "community.LeaveGroup"
	if _, err := s.group(ctx, actor, entitlement.LeaveGroup, groupID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	removed, err := s.store.RemoveMembership(ctx, actor.UserID, groupID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !removed {
		return fmt.Errorf("%s: %w", op, ErrNotMember)
	}
	s.log.Info("user left group", sl.UserID(actor.UserID), sl.GroupID(groupID))
	return nil
}
