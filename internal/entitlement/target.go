package entitlement

import (
	"time"

	"github.com/magabrotheeeer/silver-circles/internal/models"
)

// Target — ресурс, к которому относится действие.
type Target struct {
	Found   bool
	Premium bool
	// GroupID задаёт группу для действий с членством.
	GroupID int64
}

// NoTarget — действие без конкретного ресурса.
func NoTarget() Target {
	return Target{Found: true}
}

// Missing — ресурс не найден.
func Missing() Target {
	return Target{}
}

// Tier — ресурс только с уровнем доступа, например список премиальных форумов.
func Tier(premium bool) Target {
	return Target{Found: true, Premium: premium}
}

// ForumTarget строит цель по форуму. nil означает отсутствующий форум.
func ForumTarget(f *models.Forum) Target {
	if f == nil {
		return Missing()
	}
	return Target{Found: true, Premium: f.IsPremium}
}

// GroupTarget строит цель по группе. nil означает отсутствующую группу.
func GroupTarget(g *models.Group) Target {
	if g == nil {
		return Missing()
	}
	return Target{Found: true, Premium: g.IsPremium, GroupID: g.ID}
}

// CallTarget строит цель по созвону: уровень и членство берутся от группы.
func CallTarget(c *models.ZoomCall, g *models.Group) Target {
	if c == nil || g == nil {
		return Missing()
	}
	return Target{Found: true, Premium: g.IsPremium, GroupID: g.ID}
}

// Actor — субъект проверки. nil означает анонимного пользователя.
type Actor struct {
	UserID   int64
	Verified bool
	Premium  bool
	Admin    bool
}

// ActorFromUser строит актора. Премиум считается действующим только
// до PremiumUntil, даже если флаг в записи ещё не снят.
func ActorFromUser(u *models.User, now time.Time) *Actor {
	if u == nil {
		return nil
	}
	return &Actor{
		UserID:   u.ID,
		Verified: u.IsVerified,
		Premium:  u.HasPremium(now),
		Admin:    u.IsAdmin,
	}
}
