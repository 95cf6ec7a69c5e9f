// Package session хранит серверные сессии в redis. Клиент получает JWT,
// в котором записан идентификатор сессии; выход удаляет запись в redis,
// после чего токен перестаёт приниматься даже до истечения срока.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/silver-circles/internal/lib/jwt"
)

// ErrInvalidSession — токен не прошёл проверку или сессия удалена.
var ErrInvalidSession = errors.New("invalid session")

// DefaultTTL — время жизни сессии по умолчанию.
const DefaultTTL = 7 * 24 * time.Hour

// Store — хранилище ключ‑значение с временем жизни.
type Store interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// Session — данные серверной сессии.
type Session struct {
	UserID    int64     `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Manager создаёт, проверяет и удаляет сессии.
type Manager struct {
	store Store
	maker jwt.Maker
	ttl   time.Duration
}

// NewManager создаёт Manager. ttl <= 0 означает DefaultTTL.
func NewManager(store Store, maker jwt.Maker, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{store: store, maker: maker, ttl: ttl}
}

func key(id string) string {
	return "session:" + id
}

// Create открывает сессию пользователя и возвращает токен для клиента.
func (m *Manager) Create(ctx context.Context, userID int64) (string, error) {
	const op = "session.Create"
	id := uuid.NewString()
	if err := m.store.Set(ctx, key(id), Session{UserID: userID, CreatedAt: time.Now().UTC()}, m.ttl); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	token, err := m.maker.GenerateToken(userID, id)
	if err != nil {
		_ = m.store.Invalidate(ctx, key(id))
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return token, nil
}

// Resolve проверяет токен и возвращает ID пользователя.
// ErrInvalidSession означает отказ в аутентификации, любая другая
// ошибка — сбой хранилища.
func (m *Manager) Resolve(ctx context.Context, token string) (int64, error) {
	const op = "session.Resolve"
	claims, err := m.maker.ParseToken(token)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, ErrInvalidSession)
	}
	var s Session
	found, err := m.store.Get(ctx, key(claims.SessionID()), &s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if !found || s.UserID != claims.UserID {
		return 0, fmt.Errorf("%s: %w", op, ErrInvalidSession)
	}
	return s.UserID, nil
}

// Destroy удаляет сессию, на которую указывает токен.
func (m *Manager) Destroy(ctx context.Context, token string) error {
	const op = "session.Destroy"
	claims, err := m.maker.ParseToken(token)
	if err != nil {
		return fmt.Errorf("%s: %w", op, ErrInvalidSession)
	}
	if err = m.store.Invalidate(ctx, key(claims.SessionID())); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
