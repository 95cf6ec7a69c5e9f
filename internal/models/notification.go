package models

// NotificationKind — тип письма, отправляемого пользователю.
type NotificationKind string

const (
	// NotificationVerification — письмо с ссылкой подтверждения почты.
	NotificationVerification NotificationKind = "verification"
	// NotificationPasswordReset — письмо со ссылкой сброса пароля.
	NotificationPasswordReset NotificationKind = "password_reset"
	// NotificationPremiumExpired — уведомление об окончании премиум-доступа.
	NotificationPremiumExpired NotificationKind = "premium_expired"
)

// Notification — сообщение для очереди уведомлений.
type Notification struct {
	Kind     NotificationKind `json:"kind"`
	To       string           `json:"to"`
	Username string           `json:"username"`
	Token    string           `json:"token,omitempty"`
}
