// Package entitlement реализует движок доступа платформы.
//
// Решение принимается чистой функцией от актора, действия и ресурса.
// Правила проверяются в фиксированном порядке, первое сработавшее определяет
// исход: ресурс не найден, нужна аутентификация, почта не подтверждена
// (только для входа), нужен премиум, нет членства в группе, нужны права
// администратора. Если ни одно не сработало, действие разрешено.
package entitlement

// Decision — исход проверки доступа.
type Decision string

const (
	Allow               Decision = "ALLOW"
	DenyAuthRequired    Decision = "DENY_AUTH_REQUIRED"
	DenyUnverified      Decision = "DENY_UNVERIFIED"
	DenyPremiumRequired Decision = "DENY_PREMIUM_REQUIRED"
	DenyNotMember       Decision = "DENY_NOT_MEMBER"
	DenyAdminRequired   Decision = "DENY_ADMIN_REQUIRED"
	DenyNotFound        Decision = "DENY_NOT_FOUND"
)

// Allowed сообщает, разрешено ли действие.
func (d Decision) Allowed() bool {
	return d == Allow
}

// Reason возвращает машиночитаемый код причины отказа.
func (d Decision) Reason() string {
	switch d {
	case DenyAuthRequired:
		return "auth_required"
	case DenyUnverified:
		return "email_unverified"
	case DenyPremiumRequired:
		return "premium_required"
	case DenyNotMember:
		return "not_member"
	case DenyAdminRequired:
		return "admin_required"
	case DenyNotFound:
		return "not_found"
	default:
		return ""
	}
}

// Message возвращает текст для пользователя.
func (d Decision) Message() string {
	switch d {
	case DenyAuthRequired:
		return "Authentication required"
	case DenyUnverified:
		return "Please verify your email before logging in"
	case DenyPremiumRequired:
		return "Premium subscription required"
	case DenyNotMember:
		return "You must be a member of this group"
	case DenyAdminRequired:
		return "Admin access required"
	case DenyNotFound:
		return "Not found"
	default:
		return ""
	}
}

// ParseDecision разбирает строковое представление решения.
func ParseDecision(s string) (Decision, bool) {
	switch d := Decision(s); d {
	case Allow, DenyAuthRequired, DenyUnverified, DenyPremiumRequired,
		DenyNotMember, DenyAdminRequired, DenyNotFound:
		return d, true
	}
	return "", false
}
