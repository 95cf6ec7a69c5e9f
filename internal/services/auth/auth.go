// Package auth содержит бизнес-логику учетных записей: регистрацию, вход,
// подтверждение почты и восстановление пароля.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/silver-circles/internal/entitlement"
	"github.com/magabrotheeeer/silver-circles/internal/lib/password"
	"github.com/magabrotheeeer/silver-circles/internal/lib/sl"
	"github.com/magabrotheeeer/silver-circles/internal/models"
	"github.com/magabrotheeeer/silver-circles/internal/services/notification"
	"github.com/magabrotheeeer/silver-circles/internal/services/token"
	"github.com/magabrotheeeer/silver-circles/internal/storage"
)

// ForgotPasswordMessage — единственный ответ на запрос сброса пароля,
// независимо от того, существует ли аккаунт.
const ForgotPasswordMessage = "Password reset email sent if account exists"

var (
	// ErrInvalidCredentials — неверное имя пользователя или пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnverified — вход до подтверждения почты.
	ErrUnverified = errors.New("email not verified")
)

// UserStore — часть хранилища, нужная сервису.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (*models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByKey(ctx context.Context, key models.UserKey, value string) (*models.User, error)
	UpdateUser(ctx context.Context, id int64, patch models.UserPatch) (*models.User, error)
}

// Tokens — выпуск и погашение одноразовых токенов.
type Tokens interface {
	Issue(ctx context.Context, purpose token.Purpose, user *models.User) (string, error)
	Validate(ctx context.Context, purpose token.Purpose, tok string) (*models.User, error)
	Consume(ctx context.Context, purpose token.Purpose, user *models.User) (*models.User, error)
	ConsumeWith(ctx context.Context, purpose token.Purpose, user *models.User, extra models.UserPatch) (*models.User, error)
}

// Sessions — серверные сессии.
type Sessions interface {
	Create(ctx context.Context, userID int64) (string, error)
	Destroy(ctx context.Context, token string) error
}

// RegisterInput — данные регистрации.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	FullName string
}

// Service реализует сценарии учетной записи.
type Service struct {
	users    UserStore
	tokens   Tokens
	sessions Sessions
	notifier notification.Dispatcher
	engine   *entitlement.Engine
	log      *slog.Logger
	now      func() time.Time
}

// NewService создает новый экземпляр Service.
func NewService(users UserStore, tokens Tokens, sessions Sessions, notifier notification.Dispatcher, engine *entitlement.Engine, log *slog.Logger) *Service {
	return &Service{
		users:    users,
		tokens:   tokens,
		sessions: sessions,
		notifier: notifier,
		engine:   engine,
		log:      log,
		now:      time.Now,
	}
}

// Register создает неподтвержденного пользователя, отправляет письмо
// подтверждения и открывает сессию, чтобы пользователь мог запросить письмо повторно.
// Ошибка выпуска токена или отправки письма не прерывает регистрацию.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, string, error) {
	const op = "auth.Register"

	if err := s.ensureFree(ctx, models.KeyUsername, in.Username, storage.ErrUsernameTaken); err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}
	if err := s.ensureFree(ctx, models.KeyEmail, in.Email, storage.ErrEmailTaken); err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}

	hashed, err := password.GetHash(in.Password)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}
	user, err := s.users.CreateUser(ctx, models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hashed,
		FullName:     in.FullName,
	})
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}

	if err := s.sendVerification(ctx, user); err != nil {
		s.log.Error("failed to issue verification token", sl.UserID(user.ID), sl.Err(err))
	}

	sessionToken, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("user registered", sl.UserID(user.ID))
	return user, sessionToken, nil
}

func (s *Service) ensureFree(ctx context.Context, key models.UserKey, value string, taken error) error {
	_, err := s.users.GetUserByKey(ctx, key, value)
	switch {
	case err == nil:
		return taken
	case errors.Is(err, storage.ErrNotFound):
		return nil
	default:
		return err
	}
}

// Login проверяет пароль и открывает сессию. Неподтвержденный аккаунт
// получает ErrUnverified только после верного пароля.
func (s *Service) Login(ctx context.Context, username, rawPassword string) (*models.User, string, error) {
	const op = "auth.Login"

	user, err := s.users.GetUserByKey(ctx, models.KeyUsername, username)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		if !errors.Is(err, password.ErrMismatch) {
			s.log.Error("failed to compare password hash", sl.Err(err), sl.UserID(user.ID))
		}
		return nil, "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	decision := s.engine.Decide(entitlement.Request{
		Actor:  entitlement.ActorFromUser(user, s.now()),
		Action: entitlement.Login,
		Target: entitlement.NoTarget(),
	})
	if decision == entitlement.DenyUnverified {
		return nil, "", fmt.Errorf("%s: %w", op, ErrUnverified)
	}

	sessionToken, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}
	return user, sessionToken, nil
}

// Logout завершает сессию.
func (s *Service) Logout(ctx context.Context, sessionToken string) error {
	const op = "auth.Logout"
	if err := s.sessions.Destroy(ctx, sessionToken); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Me возвращает текущего пользователя.
func (s *Service) Me(ctx context.Context, userID int64) (*models.User, error) {
	const op = "auth.Me"
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// VerifyEmail гасит токен подтверждения. Повторный переход по уже
// использованной ссылке возвращает token.ErrAlreadyVerified.
func (s *Service) VerifyEmail(ctx context.Context, tok string) (*models.User, error) {
	const op = "auth.VerifyEmail"
	user, err := s.tokens.Validate(ctx, token.Verify, tok)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if user.IsVerified {
		return nil, fmt.Errorf("%s: %w", op, token.ErrAlreadyVerified)
	}
	user, err = s.tokens.Consume(ctx, token.Verify, user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("email verified", sl.UserID(user.ID))
	return user, nil
}

// ResendVerification выпускает новый токен подтверждения; прежний перестает действовать.
func (s *Service) ResendVerification(ctx context.Context, userID int64) error {
	const op = "auth.ResendVerification"
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.sendVerification(ctx, user); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ForgotPassword выпускает токен сброса, если аккаунт с такой почтой есть.
// Для несуществующей почты результат тот же, чтобы не раскрывать наличие аккаунта.
func (s *Service) ForgotPassword(ctx context.Context, email string) (string, error) {
	const op = "auth.ForgotPassword"
	user, err := s.users.GetUserByKey(ctx, models.KeyEmail, email)
	if errors.Is(err, storage.ErrNotFound) {
		return ForgotPasswordMessage, nil
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	tok, err := s.tokens.Issue(ctx, token.Reset, user)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	s.dispatch(ctx, models.Notification{
		Kind:     models.NotificationPasswordReset,
		To:       user.Email,
		Username: user.Username,
		Token:    tok,
	})
	return ForgotPasswordMessage, nil
}

// ResetPassword меняет пароль и гасит токен сброса одной записью.
// Статус подтверждения почты не меняется.
func (s *Service) ResetPassword(ctx context.Context, tok, newPassword string) error {
	const op = "auth.ResetPassword"
	user, err := s.tokens.Validate(ctx, token.Reset, tok)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	hashed, err := password.GetHash(newPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := s.tokens.ConsumeWith(ctx, token.Reset, user, models.UserPatch{PasswordHash: &hashed}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("password reset", sl.UserID(user.ID))
	return nil
}

func (s *Service) sendVerification(ctx context.Context, user *models.User) error {
	tok, err := s.tokens.Issue(ctx, token.Verify, user)
	if err != nil {
		return err
	}
	s.dispatch(ctx, models.Notification{
		Kind:     models.NotificationVerification,
		To:       user.Email,
		Username: user.Username,
		Token:    tok,
	})
	return nil
}

func (s *Service) dispatch(ctx context.Context, n models.Notification) {
	if err := s.notifier.Send(ctx, n); err != nil {
		s.log.Error("failed to dispatch notification", slog.String("kind", string(n.Kind)), sl.Err(err))
	}
}
