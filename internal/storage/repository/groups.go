package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/magabrotheeeer/silver-circles/internal/models"
	"github.com/magabrotheeeer/silver-circles/internal/storage"
)

const groupColumns = `g.id, g.name, g.description, g.is_premium, g.created_at`

func scanGroup(row rowScanner) (*models.Group, error) {
	var g models.Group
	if err := row.Scan(&g.ID, &g.Name, &g.Description, &g.IsPremium, &g.CreatedAt); err != nil {
		return nil, err
	}
	return &g, nil
}

// CreateGroup сохраняет новую группу.
func (s *Storage) CreateGroup(ctx context.Context, group models.Group) (*models.Group, error) {
	const op = "storage.CreateGroup"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	g, err := scanGroup(s.DB.QueryRowContext(ctx,
		`INSERT INTO groups AS g (name, description, is_premium) VALUES ($1, $2, $3)
		 RETURNING `+groupColumns,
		group.Name, group.Description, group.IsPremium))
	if err != nil {
		return nil, mapError(op, err)
	}
	return g, nil
}

// GetGroup возвращает группу по ID.
func (s *Storage) GetGroup(ctx context.Context, id int64) (*models.Group, error) {
	const op = "storage.GetGroup"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	g, err := scanGroup(s.DB.QueryRowContext(ctx,
		`SELECT `+groupColumns+` FROM groups g WHERE g.id = $1`, id))
	if err != nil {
		return nil, mapError(op, err)
	}
	return g, nil
}

// ListGroups возвращает группы указанного уровня доступа.
func (s *Storage) ListGroups(ctx context.Context, premium bool) ([]models.Group, error) {
	const op = "storage.ListGroups"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	return s.queryGroups(ctx, op,
		`SELECT `+groupColumns+` FROM groups g WHERE g.is_premium = $1 ORDER BY g.id`, premium)
}

// ListGroupsForUser возвращает группы, в которых состоит пользователь.
func (s *Storage) ListGroupsForUser(ctx context.Context, userID int64) ([]models.Group, error) {
	const op = "storage.ListGroupsForUser"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	return s.queryGroups(ctx, op,
		`SELECT `+groupColumns+` FROM groups g
		 JOIN group_members m ON m.group_id = g.id
		 WHERE m.user_id = $1 ORDER BY m.joined_at`, userID)
}

// ListSuggestedGroups возвращает группы, в которых пользователь не состоит.
// Премиальные группы попадают в выдачу только при includePremium.
func (s *Storage) ListSuggestedGroups(ctx context.Context, userID int64, includePremium bool, limit int) ([]models.Group, error) {
	const op = "storage.ListSuggestedGroups"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	return s.queryGroups(ctx, op,
		`SELECT `+groupColumns+` FROM groups g
		 WHERE NOT EXISTS (
		     SELECT 1 FROM group_members m WHERE m.group_id = g.id AND m.user_id = $1
		 ) AND ($2 OR NOT g.is_premium)
		 ORDER BY g.id LIMIT $3`, userID, includePremium, limit)
}

// UpdateGroup применяет частичное обновление группы.
func (s *Storage) UpdateGroup(ctx context.Context, id int64, patch models.GroupPatch) (*models.Group, error) {
	const op = "storage.UpdateGroup"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	set := make([]string, 0, 3)
	args := make([]any, 0, 4)
	if patch.Name != nil {
		args = append(args, *patch.Name)
		set = append(set, fmt.Sprintf("name = $%d", len(args)))
	}
	if patch.Description != nil {
		args = append(args, *patch.Description)
		set = append(set, fmt.Sprintf("description = $%d", len(args)))
	}
	if patch.IsPremium != nil {
		args = append(args, *patch.IsPremium)
		set = append(set, fmt.Sprintf("is_premium = $%d", len(args)))
	}
	if len(set) == 0 {
		return s.GetGroup(ctx, id)
	}
	args = append(args, id)
	g, err := scanGroup(s.DB.QueryRowContext(ctx,
		fmt.Sprintf(`UPDATE groups AS g SET %s WHERE g.id = $%d RETURNING %s`,
			strings.Join(set, ", "), len(args), groupColumns), args...))
	if err != nil {
		return nil, mapError(op, err)
	}
	return g, nil
}

// DeleteGroup удаляет группу вместе с членством и созвонами.
func (s *Storage) DeleteGroup(ctx context.Context, id int64) error {
	const op = "storage.DeleteGroup"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	res, err := s.DB.ExecContext(ctx, `DELETE FROM groups WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return nil
}

func (s *Storage) queryGroups(ctx context.Context, op, query string, args ...any) ([]models.Group, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]models.Group, 0)
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, *g)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// AddMembership добавляет пользователя в группу. Возвращает false,
// если пользователь уже состоял в ней; уникальность пары обеспечивает
// первичный ключ, поэтому одновременные вступления не создают дублей.
func (s *Storage) AddMembership(ctx context.Context, userID, groupID int64) (bool, error) {
	const op = "storage.AddMembership"
	if err := checkCtx(ctx, op); err != nil {
		return false, err
	}
	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO group_members (user_id, group_id) VALUES ($1, $2)
		 ON CONFLICT (user_id, group_id) DO NOTHING`, userID, groupID)
	if err != nil {
		return false, mapError(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n > 0, nil
}

// RemoveMembership удаляет пользователя из группы. Возвращает false, если членства не было.
func (s *Storage) RemoveMembership(ctx context.Context, userID, groupID int64) (bool, error) {
	const op = "storage.RemoveMembership"
	if err := checkCtx(ctx, op); err != nil {
		return false, err
	}
	res, err := s.DB.ExecContext(ctx,
		`DELETE FROM group_members WHERE user_id = $1 AND group_id = $2`, userID, groupID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n > 0, nil
}

// HasMembership сообщает, состоит ли пользователь в группе.
func (s *Storage) HasMembership(ctx context.Context, userID, groupID int64) (bool, error) {
	const op = "storage.HasMembership"
	if err := checkCtx(ctx, op); err != nil {
		return false, err
	}
	var exists bool
	err := s.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM group_members WHERE user_id = $1 AND group_id = $2)`,
		userID, groupID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// ListMembershipsForUser возвращает все членства пользователя.
func (s *Storage) ListMembershipsForUser(ctx context.Context, userID int64) ([]models.Membership, error) {
	const op = "storage.ListMembershipsForUser"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT user_id, group_id, joined_at FROM group_members
		 WHERE user_id = $1 ORDER BY joined_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]models.Membership, 0)
	for rows.Next() {
		var m models.Membership
		if err = rows.Scan(&m.UserID, &m.GroupID, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ListMembersForGroup возвращает публичные данные участников группы.
func (s *Storage) ListMembersForGroup(ctx context.Context, groupID int64) ([]models.UserSummary, error) {
	const op = "storage.ListMembersForGroup"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT u.id, u.username, u.full_name, u.profile_image
		 FROM group_members m JOIN users u ON u.id = m.user_id
		 WHERE m.group_id = $1 ORDER BY m.joined_at`, groupID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]models.UserSummary, 0)
	for rows.Next() {
		var u models.UserSummary
		if err = rows.Scan(&u.ID, &u.Username, &u.FullName, &u.ProfileImage); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
