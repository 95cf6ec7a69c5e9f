// Package models содержит доменные структуры платформы: пользователей,
// форумы, группы, созвоны и связи между ними. Структуры используются
// в бизнес‑логике и при работе с хранилищем.
package models

import "time"

// User представляет зарегистрированного пользователя платформы.
type User struct {
	ID                      int64      `json:"id"`
	Username                string     `json:"username"`
	Email                   string     `json:"email"`
	PasswordHash            string     `json:"-"`
	FullName                string     `json:"fullName"`
	AboutMe                 string     `json:"aboutMe,omitempty"`
	ProfileImage            string     `json:"profileImage,omitempty"`
	IsVerified              bool       `json:"isVerified"`
	VerificationToken       *string    `json:"-"`
	VerificationTokenExpiry *time.Time `json:"-"`
	PasswordResetToken      *string    `json:"-"`
	PasswordResetExpiry     *time.Time `json:"-"`
	IsPremium               bool       `json:"isPremium"`
	PremiumUntil            *time.Time `json:"premiumUntil,omitempty"`
	BillingCustomerID       *string    `json:"-"`
	BillingSubscriptionID   *string    `json:"-"`
	IsAdmin                 bool       `json:"isAdmin"`
	CreatedAt               time.Time  `json:"createdAt"`
}

// HasPremium сообщает, действует ли премиум-доступ на момент now.
// Флаг IsPremium является кешем состояния биллинга, поэтому истёкший
// PremiumUntil отменяет его даже до прихода события от провайдера.
// IsPremium без даты окончания означает бессрочный доступ (выдан администратором).
func (u *User) HasPremium(now time.Time) bool {
	if u == nil || !u.IsPremium {
		return false
	}
	return u.PremiumUntil == nil || u.PremiumUntil.After(now)
}

// Summary возвращает публичное представление пользователя для
// списков участников, авторов постов и т.п.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:           u.ID,
		Username:     u.Username,
		FullName:     u.FullName,
		ProfileImage: u.ProfileImage,
	}
}

// UserSummary — публичные поля пользователя.
type UserSummary struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	FullName     string `json:"fullName"`
	ProfileImage string `json:"profileImage,omitempty"`
}

// UserKey — уникальное поле, по которому можно найти пользователя.
type UserKey string

const (
	// KeyUsername — поиск по имени пользователя.
	KeyUsername UserKey = "username"
	// KeyEmail — поиск по электронной почте.
	KeyEmail UserKey = "email"
	// KeyVerificationToken — поиск по токену подтверждения почты.
	KeyVerificationToken UserKey = "verification_token"
	// KeyPasswordResetToken — поиск по токену сброса пароля.
	KeyPasswordResetToken UserKey = "password_reset_token"
	// KeyBillingSubscription — поиск по ссылке на подписку в биллинге.
	KeyBillingSubscription UserKey = "billing_subscription_id"
)

// TokenPatch задаёт пару токен+срок действия. Пустой Token очищает обе колонки.
type TokenPatch struct {
	Token  string
	Expiry time.Time
}

// ClearToken возвращает патч, очищающий токен и срок его действия.
func ClearToken() *TokenPatch {
	return &TokenPatch{}
}

// TimePatch задаёт nullable-время. Value == nil очищает колонку.
type TimePatch struct {
	Value *time.Time
}

// UserPatch описывает частичное обновление пользователя.
// nil-поля не изменяются (merge‑семантика).
type UserPatch struct {
	PasswordHash          *string
	FullName              *string
	AboutMe               *string
	ProfileImage          *string
	IsVerified            *bool
	Verification          *TokenPatch
	PasswordReset         *TokenPatch
	IsPremium             *bool
	PremiumUntil          *TimePatch
	BillingCustomerID     *string
	BillingSubscriptionID *string
	IsAdmin               *bool
}

// IsEmpty сообщает, что патч ничего не меняет.
func (p UserPatch) IsEmpty() bool {
	return p == UserPatch{}
}
