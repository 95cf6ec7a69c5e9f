// Package auth содержит HTTP-обработчики учетной записи: регистрацию, вход,
// выход, подтверждение почты и восстановление пароля.
package auth

import (
	"context"

	"github.com/magabrotheeeer/silver-circles/internal/models"
	authsvc "github.com/magabrotheeeer/silver-circles/internal/services/auth"
)

// Service описывает бизнес-логику учетной записи.
type Service interface {
	Register(ctx context.Context, in authsvc.RegisterInput) (*models.User, string, error)
	Login(ctx context.Context, username, password string) (*models.User, string, error)
	Logout(ctx context.Context, sessionToken string) error
	Me(ctx context.Context, userID int64) (*models.User, error)
	VerifyEmail(ctx context.Context, tok string) (*models.User, error)
	ResendVerification(ctx context.Context, userID int64) error
	ForgotPassword(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, tok, newPassword string) error
}

// SessionResponse — ответ на успешную регистрацию или вход.
type SessionResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// MessageResponse — ответ с текстом для пользователя.
type MessageResponse struct {
	Message string `json:"message"`
}
