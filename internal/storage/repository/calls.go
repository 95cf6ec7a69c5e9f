package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/magabrotheeeer/silver-circles/internal/models"
)

const callViewQuery = `SELECT c.id, c.group_id, c.title, c.description, c.start_time, c.end_time,
        c.zoom_link, c.created_at,
        g.id, g.name, g.description, g.is_premium, g.created_at,
        (SELECT COUNT(*) FROM zoom_call_participants p WHERE p.call_id = c.id)
 FROM zoom_calls c JOIN groups g ON g.id = c.group_id`

// CreateCall сохраняет созвон группы. Порядок start < end проверяет
// и ограничение таблицы.
func (s *Storage) CreateCall(ctx context.Context, call models.ZoomCall) (*models.ZoomCall, error) {
	const op = "storage.CreateCall"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	var c models.ZoomCall
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO zoom_calls (group_id, title, description, start_time, end_time, zoom_link)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, group_id, title, description, start_time, end_time, zoom_link, created_at`,
		call.GroupID, call.Title, call.Description, call.StartTime, call.EndTime, call.ZoomLink).
		Scan(&c.ID, &c.GroupID, &c.Title, &c.Description, &c.StartTime, &c.EndTime, &c.ZoomLink, &c.CreatedAt)
	if err != nil {
		return nil, mapError(op, err)
	}
	return &c, nil
}

// GetCall возвращает созвон по ID.
func (s *Storage) GetCall(ctx context.Context, id int64) (*models.ZoomCall, error) {
	const op = "storage.GetCall"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	var c models.ZoomCall
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, group_id, title, description, start_time, end_time, zoom_link, created_at
		 FROM zoom_calls WHERE id = $1`, id).
		Scan(&c.ID, &c.GroupID, &c.Title, &c.Description, &c.StartTime, &c.EndTime, &c.ZoomLink, &c.CreatedAt)
	if err != nil {
		return nil, mapError(op, err)
	}
	return &c, nil
}

// ListCallsForGroup возвращает созвоны группы по времени начала.
func (s *Storage) ListCallsForGroup(ctx context.Context, groupID int64) ([]models.ZoomCallView, error) {
	const op = "storage.ListCallsForGroup"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	return s.queryCallViews(ctx, op,
		callViewQuery+` WHERE c.group_id = $1 ORDER BY c.start_time`, groupID)
}

// ListUpcomingCallsForUser возвращает будущие созвоны групп пользователя.
// Созвоны премиальных групп попадают в выдачу только при includePremium.
func (s *Storage) ListUpcomingCallsForUser(ctx context.Context, userID int64, now time.Time, includePremium bool) ([]models.ZoomCallView, error) {
	const op = "storage.ListUpcomingCallsForUser"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	return s.queryCallViews(ctx, op,
		callViewQuery+`
		 JOIN group_members m ON m.group_id = c.group_id AND m.user_id = $1
		 WHERE c.start_time > $2 AND ($3 OR NOT g.is_premium)
		 ORDER BY c.start_time`, userID, now, includePremium)
}

// AddCallParticipant отмечает пользователя участником созвона.
// Возвращает false, если пользователь уже был отмечен.
func (s *Storage) AddCallParticipant(ctx context.Context, callID, userID int64) (bool, error) {
	const op = "storage.AddCallParticipant"
	if err := checkCtx(ctx, op); err != nil {
		return false, err
	}
	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO zoom_call_participants (call_id, user_id) VALUES ($1, $2)
		 ON CONFLICT (call_id, user_id) DO NOTHING`, callID, userID)
	if err != nil {
		return false, mapError(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n > 0, nil
}

func (s *Storage) queryCallViews(ctx context.Context, op, query string, args ...any) ([]models.ZoomCallView, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]models.ZoomCallView, 0)
	for rows.Next() {
		var v models.ZoomCallView
		var g models.Group
		if err = rows.Scan(&v.ID, &v.GroupID, &v.Title, &v.Description, &v.StartTime, &v.EndTime,
			&v.ZoomLink, &v.CreatedAt,
			&g.ID, &g.Name, &g.Description, &g.IsPremium, &g.CreatedAt,
			&v.ParticipantCount); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		v.Group = &g
		result = append(result, v)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
