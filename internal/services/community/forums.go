package community

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/silver-circles/internal/entitlement"
	"github.com/magabrotheeeer/silver-circles/internal/models"
)

// ListForums возвращает форумы указанного уровня.
func (s *Service) ListForums(ctx context.Context, actor *entitlement.Actor, premium bool) ([]models.Forum, error) {
	const op = "community.ListForums"
	if err := s.authorize(ctx, actor, entitlement.ListForums, entitlement.Tier(premium)); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	forums, err := s.store.ListForums(ctx, premium)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return forums, nil
}

func (s *Service) forum(ctx context.Context, actor *entitlement.Actor, action entitlement.Action, id int64) (*models.Forum, error) {
	forum, err := lookup(s.store.GetForum(ctx, id))
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, action, entitlement.ForumTarget(forum)); err != nil {
		return nil, err
	}
	return forum, nil
}

// GetForum возвращает форум.
func (s *Service) GetForum(ctx context.Context, actor *entitlement.Actor, id int64) (*models.Forum, error) {
	const op = "community.GetForum"
	forum, err := s.forum(ctx, actor, entitlement.ReadForum, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return forum, nil
}

// ListPosts возвращает посты форума с авторами и числом ответов.
func (s *Service) ListPosts(ctx context.Context, actor *entitlement.Actor, forumID int64) ([]models.ForumPostView, error) {
	const op = "community.ListPosts"
	if _, err := s.forum(ctx, actor, entitlement.ReadPosts, forumID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	posts, err := s.store.ListPostViews(ctx, forumID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return posts, nil
}

// CreatePost публикует пост от имени актора.
func (s *Service) CreatePost(ctx context.Context, actor *entitlement.Actor, forumID int64, title, content string) (*models.ForumPost, error) {
	const op = "community.CreatePost"
	if _, err := s.forum(ctx, actor, entitlement.CreatePost, forumID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	post, err := s.store.CreatePost(ctx, models.ForumPost{
		ForumID: forumID,
		UserID:  actor.UserID,
		Title:   title,
		Content: content,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return post, nil
}

// postForum находит пост и форум, которому он принадлежит.
// Пост без форума считается отсутствующим.
func (s *Service) postForum(ctx context.Context, postID int64) (*models.ForumPost, *models.Forum, error) {
	post, err := lookup(s.store.GetPost(ctx, postID))
	if err != nil || post == nil {
		return nil, nil, err
	}
	forum, err := lookup(s.store.GetForum(ctx, post.ForumID))
	if err != nil {
		return nil, nil, err
	}
	return post, forum, nil
}

// ListReplies возвращает ответы на пост.
func (s *Service) ListReplies(ctx context.Context, actor *entitlement.Actor, postID int64) ([]models.ForumReplyView, error) {
	const op = "community.ListReplies"
	_, forum, err := s.postForum(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.authorize(ctx, actor, entitlement.ReadReplies, entitlement.ForumTarget(forum)); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	replies, err := s.store.ListReplyViews(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return replies, nil
}

// CreateReply публикует ответ на пост.
func (s *Service) CreateReply(ctx context.Context, actor *entitlement.Actor, postID int64, content string) (*models.ForumReply, error) {
	const op = "community.CreateReply"
	_, forum, err := s.postForum(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.authorize(ctx, actor, entitlement.CreateReply, entitlement.ForumTarget(forum)); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	reply, err := s.store.CreateReply(ctx, models.ForumReply{
		PostID:  postID,
		UserID:  actor.UserID,
		Content: content,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return reply, nil
}
