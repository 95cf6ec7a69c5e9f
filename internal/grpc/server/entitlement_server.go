// Package server реализует gRPC-сервер проверки доступа.
//
// EntitlementServer отвечает другим внутренним сервисам на вопрос, может ли
// пользователь выполнить действие над ресурсом. Пользователь и ресурс
// загружаются из хранилища, решение принимает тот же Authorizer, что и HTTP API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/magabrotheeeer/silver-circles/internal/entitlement"
	entitlementpb "github.com/magabrotheeeer/silver-circles/internal/grpc/gen"
	"github.com/magabrotheeeer/silver-circles/internal/lib/sl"
	"github.com/magabrotheeeer/silver-circles/internal/models"
	"github.com/magabrotheeeer/silver-circles/internal/storage"
)

// Store загружает пользователей и ресурсы.
type Store interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetForum(ctx context.Context, id int64) (*models.Forum, error)
	GetGroup(ctx context.Context, id int64) (*models.Group, error)
	GetCall(ctx context.Context, id int64) (*models.ZoomCall, error)
}

// EntitlementServer реализует entitlementpb.EntitlementServiceServer.
type EntitlementServer struct {
	entitlementpb.UnimplementedEntitlementServiceServer
	store Store
	authz *entitlement.Authorizer
	log   *slog.Logger
	now   func() time.Time
}

var _ entitlementpb.EntitlementServiceServer = (*EntitlementServer)(nil)

// NewEntitlementServer создает новый экземпляр EntitlementServer.
func NewEntitlementServer(store Store, authz *entitlement.Authorizer, logger *slog.Logger) *EntitlementServer {
	return &EntitlementServer{
		store: store,
		authz: authz,
		log:   logger,
		now:   time.Now,
	}
}

// Check возвращает решение движка доступа.
func (s *EntitlementServer) Check(ctx context.Context, req *entitlementpb.CheckRequest) (*entitlementpb.CheckResponse, error) {
	if req.GetAction() == "" {
		return nil, status.Error(codes.InvalidArgument, "action is required")
	}
	switch req.GetResource() {
	case entitlementpb.ResourceNone, entitlementpb.ResourceForum, entitlementpb.ResourceGroup, entitlementpb.ResourceCall:
	default:
		return nil, status.Errorf(codes.InvalidArgument, "unknown resource %q", req.GetResource())
	}
	log := s.log.With(slog.String("action", req.GetAction()), slog.Int64("user_id", req.GetUserId()))

	action, ok := entitlement.ActionByName(req.GetAction())
	if !ok {
		return nil, status.Errorf(codes.InvalidArgument, "unknown action %q", req.GetAction())
	}

	actor, err := s.actor(ctx, req.GetUserId())
	if err != nil {
		log.Error("failed to load user", sl.Err(err))
		return nil, status.Error(codes.Internal, "failed to load user")
	}
	target, err := s.target(ctx, req)
	if err != nil {
		log.Error("failed to load resource", sl.Err(err))
		return nil, status.Error(codes.Internal, "failed to load resource")
	}

	decision, err := s.authz.Authorize(ctx, actor, action, target)
	if err != nil {
		log.Error("authorization failed", sl.Err(err))
		return nil, status.Error(codes.Internal, "authorization failed")
	}

	return &entitlementpb.CheckResponse{
		Decision: string(decision),
		Allowed:  decision.Allowed(),
		Reason:   decision.Reason(),
		Message:  decision.Message(),
	}, nil
}

// actor загружает пользователя. Удалённый пользователь считается анонимным.
func (s *EntitlementServer) actor(ctx context.Context, userID int64) (*entitlement.Actor, error) {
	if userID == 0 {
		return nil, nil
	}
	user, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entitlement.ActorFromUser(user, s.now()), nil
}

func (s *EntitlementServer) target(ctx context.Context, req *entitlementpb.CheckRequest) (entitlement.Target, error) {
	switch req.GetResource() {
	case entitlementpb.ResourceForum:
		f, err := found(s.store.GetForum(ctx, req.GetResourceId()))
		if err != nil {
			return entitlement.Target{}, err
		}
		return entitlement.ForumTarget(f), nil
	case entitlementpb.ResourceGroup:
		g, err := found(s.store.GetGroup(ctx, req.GetResourceId()))
		if err != nil {
			return entitlement.Target{}, err
		}
		return entitlement.GroupTarget(g), nil
	case entitlementpb.ResourceCall:
		c, err := found(s.store.GetCall(ctx, req.GetResourceId()))
		if err != nil || c == nil {
			return entitlement.Missing(), err
		}
		g, err := found(s.store.GetGroup(ctx, c.GroupID))
		if err != nil {
			return entitlement.Target{}, err
		}
		return entitlement.CallTarget(c, g), nil
	default:
		return entitlement.Tier(req.GetPremium()), nil
	}
}

// found превращает ErrNotFound в nil без ошибки.
func found[T any](v *T, err error) (*T, error) {
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return v, err
}
