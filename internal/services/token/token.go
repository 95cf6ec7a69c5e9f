// Package token управляет одноразовыми токенами подтверждения почты и
// сброса пароля. Токен хранится в записи пользователя вместе со сроком
// действия; выпуск нового токена той же цели перезаписывает предыдущий.
package token

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/silver-circles/internal/config"
	"github.com/magabrotheeeer/silver-circles/internal/lib/random"
	"github.com/magabrotheeeer/silver-circles/internal/lib/sl"
	"github.com/magabrotheeeer/silver-circles/internal/models"
	"github.com/magabrotheeeer/silver-circles/internal/storage"
)

// Purpose — назначение токена.
type Purpose string

const (
	// Verify — подтверждение почты.
	Verify Purpose = "verify"
	// Reset — сброс пароля.
	Reset Purpose = "reset"
)

var (
	// ErrInvalidToken — токен не принадлежит ни одному пользователю.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken — срок действия токена истёк.
	ErrExpiredToken = errors.New("token expired")
	// ErrAlreadyVerified — почта уже подтверждена.
	ErrAlreadyVerified = errors.New("email already verified")
)

// UserStore — часть хранилища, нужная сервису токенов.
type UserStore interface {
	GetUserByKey(ctx context.Context, key models.UserKey, value string) (*models.User, error)
	UpdateUser(ctx context.Context, id int64, patch models.UserPatch) (*models.User, error)
}

// Tombstones хранит отметки об использованных токенах подтверждения,
// чтобы повторный переход по ссылке отвечал «уже подтверждено».
type Tombstones interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Service выпускает, проверяет и гасит токены.
type Service struct {
	users      UserStore
	tombstones Tombstones
	log        *slog.Logger
	cfg        config.Tokens
	now        func() time.Time
}

// New создаёт сервис. tombstones может быть nil.
func New(users UserStore, tombstones Tombstones, cfg config.Tokens, log *slog.Logger) *Service {
	if cfg.Length <= 0 {
		cfg.Length = random.DefaultTokenLength
	}
	return &Service{
		users:      users,
		tombstones: tombstones,
		log:        log,
		cfg:        cfg,
		now:        time.Now,
	}
}

// WithClock подменяет источник времени.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) ttl(p Purpose) time.Duration {
	if p == Verify {
		return s.cfg.VerificationTTL
	}
	return s.cfg.ResetTTL
}

func lookupKey(p Purpose) models.UserKey {
	if p == Verify {
		return models.KeyVerificationToken
	}
	return models.KeyPasswordResetToken
}

func patchFor(p Purpose, tp *models.TokenPatch) models.UserPatch {
	if p == Verify {
		return models.UserPatch{Verification: tp}
	}
	return models.UserPatch{PasswordReset: tp}
}

func pending(p Purpose, u *models.User) (*string, *time.Time) {
	if p == Verify {
		return u.VerificationToken, u.VerificationTokenExpiry
	}
	return u.PasswordResetToken, u.PasswordResetExpiry
}

func tombstoneKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "verify:used:" + hex.EncodeToString(sum[:])
}

// Issue выпускает новый токен и сохраняет его в записи пользователя.
// Предыдущий токен той же цели перестаёт действовать.
func (s *Service) Issue(ctx context.Context, purpose Purpose, user *models.User) (string, error) {
	const op = "token.Issue"
	if purpose == Verify && user.IsVerified {
		return "", fmt.Errorf("%s: %w", op, ErrAlreadyVerified)
	}
	tok, err := random.Token(s.cfg.Length)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	expiry := s.now().Add(s.ttl(purpose))
	if _, err = s.users.UpdateUser(ctx, user.ID, patchFor(purpose, &models.TokenPatch{Token: tok, Expiry: expiry})); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return tok, nil
}

// Validate находит владельца токена и проверяет срок действия.
// Токен недействителен начиная с момента истечения. Токен не гасится.
func (s *Service) Validate(ctx context.Context, purpose Purpose, token string) (*models.User, error) {
	const op = "token.Validate"
	if token == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}
	user, err := s.users.GetUserByKey(ctx, lookupKey(purpose), token)
	if errors.Is(err, storage.ErrNotFound) {
		if purpose == Verify && s.wasConsumed(ctx, token) {
			return nil, fmt.Errorf("%s: %w", op, ErrAlreadyVerified)
		}
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	_, expiry := pending(purpose, user)
	if expiry == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}
	if !s.now().Before(*expiry) {
		return nil, fmt.Errorf("%s: %w", op, ErrExpiredToken)
	}
	return user, nil
}

// Consume гасит токен пользователя. Для подтверждения почты дополнительно
// выставляет IsVerified.
func (s *Service) Consume(ctx context.Context, purpose Purpose, user *models.User) (*models.User, error) {
	return s.ConsumeWith(ctx, purpose, user, models.UserPatch{})
}

// ConsumeWith гасит токен и в той же записи применяет extra,
// например новый хэш пароля при сбросе.
func (s *Service) ConsumeWith(ctx context.Context, purpose Purpose, user *models.User, extra models.UserPatch) (*models.User, error) {
	const op = "token.Consume"
	tok, _ := pending(purpose, user)

	patch := extra
	if purpose == Verify {
		verified := true
		patch.IsVerified = &verified
		patch.Verification = models.ClearToken()
	} else {
		patch.PasswordReset = models.ClearToken()
	}
	updated, err := s.users.UpdateUser(ctx, user.ID, patch)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if purpose == Verify && tok != nil && s.tombstones != nil {
		if err := s.tombstones.Set(ctx, tombstoneKey(*tok), user.ID, s.cfg.VerificationTTL); err != nil {
			s.log.Warn("failed to record consumed verification token", sl.Err(err), sl.UserID(user.ID))
		}
	}
	return updated, nil
}

func (s *Service) wasConsumed(ctx context.Context, token string) bool {
	if s.tombstones == nil {
		return false
	}
	ok, err := s.tombstones.Exists(ctx, tombstoneKey(token))
	if err != nil {
		s.log.Warn("failed to check consumed verification token", sl.Err(err))
		return false
	}
	return ok
}
