package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/magabrotheeeer/silver-circles/internal/models"
	"github.com/magabrotheeeer/silver-circles/internal/storage"
)

const forumColumns = `f.id, f.title, f.description, f.is_premium, f.created_at`

func scanForum(row rowScanner) (*models.Forum, error) {
	var f models.Forum
	if err := row.Scan(&f.ID, &f.Title, &f.Description, &f.IsPremium, &f.CreatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

// CreateForum сохраняет новый форум.
func (s *Storage) CreateForum(ctx context.Context, forum models.Forum) (*models.Forum, error) {
	const op = "storage.CreateForum"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	f, err := scanForum(s.DB.QueryRowContext(ctx,
		`INSERT INTO forums AS f (title, description, is_premium) VALUES ($1, $2, $3)
		 RETURNING `+forumColumns,
		forum.Title, forum.Description, forum.IsPremium))
	if err != nil {
		return nil, mapError(op, err)
	}
	return f, nil
}

// GetForum возвращает форум по ID.
func (s *Storage) GetForum(ctx context.Context, id int64) (*models.Forum, error) {
	const op = "storage.GetForum"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	f, err := scanForum(s.DB.QueryRowContext(ctx,
		`SELECT `+forumColumns+` FROM forums f WHERE f.id = $1`, id))
	if err != nil {
		return nil, mapError(op, err)
	}
	return f, nil
}

// ListForums возвращает форумы указанного уровня доступа.
func (s *Storage) ListForums(ctx context.Context, premium bool) ([]models.Forum, error) {
	const op = "storage.ListForums"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+forumColumns+` FROM forums f WHERE f.is_premium = $1 ORDER BY f.id`, premium)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]models.Forum, 0)
	for rows.Next() {
		f, err := scanForum(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, *f)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// UpdateForum применяет частичное обновление форума.
func (s *Storage) UpdateForum(ctx context.Context, id int64, patch models.ForumPatch) (*models.Forum, error) {
	const op = "storage.UpdateForum"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	set := make([]string, 0, 3)
	args := make([]any, 0, 4)
	if patch.Title != nil {
		args = append(args, *patch.Title)
		set = append(set, fmt.Sprintf("title = $%d", len(args)))
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
		return s.GetForum(ctx, id)
	}
	args = append(args, id)
	f, err := scanForum(s.DB.QueryRowContext(ctx,
		fmt.Sprintf(`UPDATE forums AS f SET %s WHERE f.id = $%d RETURNING %s`,
			strings.Join(set, ", "), len(args), forumColumns), args...))
	if err != nil {
		return nil, mapError(op, err)
	}
	return f, nil
}

// DeleteForum удаляет форум вместе с постами и ответами.
func (s *Storage) DeleteForum(ctx context.Context, id int64) error {
	const op = "storage.DeleteForum"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	res, err := s.DB.ExecContext(ctx, `DELETE FROM forums WHERE id = $1`, id)
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

// CreatePost сохраняет пост на форуме.
func (s *Storage) CreatePost(ctx context.Context, post models.ForumPost) (*models.ForumPost, error) {
	const op = "storage.CreatePost"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	var p models.ForumPost
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO forum_posts (forum_id, user_id, title, content) VALUES ($1, $2, $3, $4)
		 RETURNING id, forum_id, user_id, title, content, created_at`,
		post.ForumID, post.UserID, post.Title, post.Content).
		Scan(&p.ID, &p.ForumID, &p.UserID, &p.Title, &p.Content, &p.CreatedAt)
	if err != nil {
		return nil, mapError(op, err)
	}
	return &p, nil
}

// GetPost возвращает пост по ID.
func (s *Storage) GetPost(ctx context.Context, id int64) (*models.ForumPost, error) {
	const op = "storage.GetPost"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	var p models.ForumPost
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, forum_id, user_id, title, content, created_at FROM forum_posts WHERE id = $1`, id).
		Scan(&p.ID, &p.ForumID, &p.UserID, &p.Title, &p.Content, &p.CreatedAt)
	if err != nil {
		return nil, mapError(op, err)
	}
	return &p, nil
}

// ListPostViews возвращает посты форума с автором и числом ответов, новые первыми.
func (s *Storage) ListPostViews(ctx context.Context, forumID int64) ([]models.ForumPostView, error) {
	const op = "storage.ListPostViews"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT p.id, p.forum_id, p.user_id, p.title, p.content, p.created_at,
		        u.id, u.username, u.full_name, u.profile_image,
		        (SELECT COUNT(*) FROM forum_replies r WHERE r.post_id = p.id)
		 FROM forum_posts p JOIN users u ON u.id = p.user_id
		 WHERE p.forum_id = $1
		 ORDER BY p.created_at DESC, p.id DESC`, forumID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]models.ForumPostView, 0)
	for rows.Next() {
		var v models.ForumPostView
		var u models.UserSummary
		if err = rows.Scan(&v.ID, &v.ForumID, &v.UserID, &v.Title, &v.Content, &v.CreatedAt,
			&u.ID, &u.Username, &u.FullName, &u.ProfileImage, &v.ReplyCount); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		v.User = &u
		result = append(result, v)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CreateReply сохраняет ответ на пост.
func (s *Storage) CreateReply(ctx context.Context, reply models.ForumReply) (*models.ForumReply, error) {
	const op = "storage.CreateReply"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	var r models.ForumReply
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO forum_replies (post_id, user_id, content) VALUES ($1, $2, $3)
		 RETURNING id, post_id, user_id, content, created_at`,
		reply.PostID, reply.UserID, reply.Content).
		Scan(&r.ID, &r.PostID, &r.UserID, &r.Content, &r.CreatedAt)
	if err != nil {
		return nil, mapError(op, err)
	}
	return &r, nil
}

// ListReplyViews возвращает ответы на пост с авторами в хронологическом порядке.
func (s *Storage) ListReplyViews(ctx context.Context, postID int64) ([]models.ForumReplyView, error) {
	const op = "storage.ListReplyViews"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT r.id, r.post_id, r.user_id, r.content, r.created_at,
		        u.id, u.username, u.full_name, u.profile_image
		 FROM forum_replies r JOIN users u ON u.id = r.user_id
		 WHERE r.post_id = $1
		 ORDER BY r.created_at, r.id`, postID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]models.ForumReplyView, 0)
	for rows.Next() {
		var v models.ForumReplyView
		var u models.UserSummary
		if err = rows.Scan(&v.ID, &v.PostID, &v.UserID, &v.Content, &v.CreatedAt,
			&u.ID, &u.Username, &u.FullName, &u.ProfileImage); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		v.User = &u
		result = append(result, v)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
