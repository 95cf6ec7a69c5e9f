package entitlement

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/silver-circles/internal/metrics"
)

// MembershipChecker проверяет членство пользователя в группе.
type MembershipChecker interface {
	HasMembership(ctx context.Context, userID, groupID int64) (bool, error)
}

// Authorizer дополняет Engine обращением к хранилищу за членством.
type Authorizer struct {
	engine  *Engine
	members MembershipChecker
	log     *slog.Logger
}

// NewAuthorizer создаёт Authorizer.
func NewAuthorizer(engine *Engine, members MembershipChecker, log *slog.Logger) *Authorizer {
	return &Authorizer{
		engine:  engine,
		members: members,
		log:     log,
	}
}

// Engine возвращает используемый движок.
func (a *Authorizer) Engine() *Engine {
	return a.engine
}

// Authorize принимает решение по действию актора над целью.
//
// Членство запрашивается только тогда, когда от него зависит исход:
// сначала решение считается в предположении членства, и запрос к хранилищу
// выполняется, только если раньше членства не сработало другое правило.
// Ошибка хранилища возвращается как ошибка и никогда не превращается в отказ.
func (a *Authorizer) Authorize(ctx context.Context, actor *Actor, action Action, target Target) (Decision, error) {
	const op = "entitlement.Authorize"

	req := Request{Actor: actor, Action: action, Target: target, IsMember: true}
	decision := a.engine.Decide(req)
	if action.GroupScoped && (decision == Allow || decision == DenyAdminRequired) {
		member, err := a.members.HasMembership(ctx, actor.UserID, target.GroupID)
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		req.IsMember = member
		decision = a.engine.Decide(req)
	}

	metrics.EntitlementDecisions.WithLabelValues(action.Name, string(decision)).Inc()
	if !decision.Allowed() {
		a.log.Debug("access denied",
			slog.String("action", action.Name),
			slog.String("decision", string(decision)),
			slog.Int64("user_id", actorID(actor)),
		)
	}
	return decision, nil
}

func actorID(a *Actor) int64 {
	if a == nil {
		return 0
	}
	return a.UserID
}
