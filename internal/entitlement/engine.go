package entitlement

// Request — входные данные одной проверки.
type Request struct {
	Actor  *Actor
	Action Action
	Target Target
	// IsMember — есть ли у актора членство в группе цели.
	IsMember bool
}

// Option настраивает Engine.
type Option func(*Engine)

// WithPremiumConcealment заставляет отвечать анонимным пользователям
// «не найдено» на премиальные ресурсы, скрывая сам факт их существования.
func WithPremiumConcealment(conceal bool) Option {
	return func(e *Engine) {
		e.concealPremium = conceal
	}
}

// Engine — движок доступа без состояния и побочных эффектов.
type Engine struct {
	concealPremium bool
}

// NewEngine создаёт движок.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Decide применяет правила по порядку и возвращает первое сработавшее.
func (e *Engine) Decide(req Request) Decision {
	actor, action, target := req.Actor, req.Action, req.Target

	if !target.Found {
		return DenyNotFound
	}
	if action.RequiresAuth && actor == nil {
		return DenyAuthRequired
	}
	if action.IsLogin && actor != nil && !actor.Verified {
		return DenyUnverified
	}
	if action.TierGated && target.Premium && (actor == nil || !actor.Premium) {
		if actor == nil && e.concealPremium {
			return DenyNotFound
		}
		return DenyPremiumRequired
	}
	if action.GroupScoped && (actor == nil || !req.IsMember) {
		return DenyNotMember
	}
	if action.AdminOnly && (actor == nil || !actor.Admin) {
		return DenyAdminRequired
	}
	return Allow
}
