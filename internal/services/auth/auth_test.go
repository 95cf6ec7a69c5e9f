package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/silver-circles/internal/cache"
	"github.com/magabrotheeeer/silver-circles/internal/config"
	"github.com/magabrotheeeer/silver-circles/internal/entitlement"
	"github.com/magabrotheeeer/silver-circles/internal/lib/jwt"
	"github.com/magabrotheeeer/silver-circles/internal/lib/password"
	"github.com/magabrotheeeer/silver-circles/internal/models"
	"github.com/magabrotheeeer/silver-circles/internal/services/token"
	"github.com/magabrotheeeer/silver-circles/internal/session"
	"github.com/magabrotheeeer/silver-circles/internal/storage"
	"github.com/magabrotheeeer/silver-circles/internal/storage/storagetest"
)

type MockDispatcher struct {
	mock.Mock
	mu   sync.Mutex
	sent []models.Notification
}

func (m *MockDispatcher) Send(ctx context.Context, n models.Notification) error {
	args := m.Called(ctx, n)
	if args.Error(0) == nil {
		m.mu.Lock()
		m.sent = append(m.sent, n)
		m.mu.Unlock()
	}
	return args.Error(0)
}

func (m *MockDispatcher) last(t *testing.T, kind models.NotificationKind) models.Notification {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].Kind == kind {
			return m.sent[i]
		}
	}
	t.Fatalf("no %s notification sent", kind)
	return models.Notification{}
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	svc      *Service
	store    *storagetest.Memory
	notifier *MockDispatcher
	sessions *session.Manager
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	c, err := cache.InitServer(context.Background(), config.RedisConnection{AddressRedis: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	f := &fixture{
		store:    storagetest.New(),
		notifier: new(MockDispatcher),
		now:      time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }
	tokens := token.New(f.store, c, config.Tokens{Length: 32, VerificationTTL: 24 * time.Hour, ResetTTL: time.Hour}, newNoopLogger()).
		WithClock(clock)
	f.sessions = session.NewManager(c, jwt.NewJWTMaker("test-secret", time.Hour), 0)
	f.svc = NewService(f.store, tokens, f.sessions, f.notifier, entitlement.NewEngine(), newNoopLogger())
	f.svc.now = clock
	return f
}

func (f *fixture) register(t *testing.T, name string) (*models.User, string) {
	t.Helper()
	u, sess, err := f.svc.Register(context.Background(), RegisterInput{
		Username: name,
		Email:    name + "@example.com",
		Password: "correct horse",
		FullName: "Test " + name,
	})
	require.NoError(t, err)
	return u, sess
}

func TestService_Register(t *testing.T) {
	f := newFixture(t)
	f.notifier.On("Send", mock.Anything, mock.Anything).Return(nil)
	ctx := context.Background()

	u, sess, err := f.svc.Register(ctx, RegisterInput{
		Username: "ann", Email: "ann@example.com", Password: "correct horse", FullName: "Ann",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, sess)
	assert.False(t, u.IsVerified)
	require.NoError(t, password.CompareHash(u.PasswordHash, "correct horse"))

	userID, err := f.sessions.Resolve(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, u.ID, userID)

	stored, err := f.store.GetUser(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.VerificationToken)
	require.NotNil(t, stored.VerificationTokenExpiry)
	assert.Equal(t, f.now.Add(24*time.Hour), *stored.VerificationTokenExpiry)

	n := f.notifier.last(t, models.NotificationVerification)
	assert.Equal(t, "ann@example.com", n.To)
	assert.Equal(t, *stored.VerificationToken, n.Token)

	_, _, err = f.svc.Register(ctx, RegisterInput{Username: "ann", Email: "other@example.com", Password: "x"})
	assert.ErrorIs(t, err, storage.ErrUsernameTaken)

	_, _, err = f.svc.Register(ctx, RegisterInput{Username: "other", Email: "ann@example.com", Password: "x"})
	assert.ErrorIs(t, err, storage.ErrEmailTaken)
}

func TestService_Register_EmailFailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	f.notifier.On("Send", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	u, sess, err := f.svc.Register(context.Background(), RegisterInput{
		Username: "ann", Email: "ann@example.com", Password: "pw-123456",
	})
	require.NoError(t, err)
	assert.NotNil(t, u)
	assert.NotEmpty(t, sess)
}

type failingIssue struct {
	Tokens
	failures int
}

func (f *failingIssue) Issue(ctx context.Context, purpose token.Purpose, user *models.User) (string, error) {
	if f.failures > 0 {
		f.failures--
		return "", errors.New("redis unavailable")
	}
	return f.Tokens.Issue(ctx, purpose, user)
}

// Сбой выпуска токена не блокирует аккаунт: сессия выдаётся, и письмо
// можно запросить повторно.
func TestService_Register_TokenFailureKeepsAccountUsable(t *testing.T) {
	f := newFixture(t)
	f.notifier.On("Send", mock.Anything, mock.Anything).Return(nil)
	f.svc.tokens = &failingIssue{Tokens: f.svc.tokens, failures: 1}
	ctx := context.Background()

	u, sess, err := f.svc.Register(ctx, RegisterInput{
		Username: "ann", Email: "ann@example.com", Password: "correct horse",
	})
	require.NoError(t, err)
	require.NotEmpty(t, sess)
	f.notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)

	userID, err := f.sessions.Resolve(ctx, sess)
	require.NoError(t, err)
	require.NoError(t, f.svc.ResendVerification(ctx, userID))
	tok := f.notifier.last(t, models.NotificationVerification).Token

	_, err = f.svc.VerifyEmail(ctx, tok)
	require.NoError(t, err)
	got, _, err := f.svc.Login(ctx, "ann", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestService_Login(t *testing.T) {
	f := newFixture(t)
	f.notifier.On("Send", mock.Anything, mock.Anything).Return(nil)
	ctx := context.Background()
	u, _ := f.register(t, "ann")

	tests := []struct {
		name     string
		username string
		password string
		verified bool
		wantErr  error
	}{
		{name: "unknown user", username: "nobody", password: "correct horse", wantErr: ErrInvalidCredentials},
		{name: "wrong password", username: "ann", password: "wrong", wantErr: ErrInvalidCredentials},
		{name: "wrong password on unverified account", username: "ann", password: "nope", wantErr: ErrInvalidCredentials},
		{name: "unverified", username: "ann", password: "correct horse", wantErr: ErrUnverified},
		{name: "verified", username: "ann", password: "correct horse", verified: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.verified {
				v := true
				_, err := f.store.UpdateUser(ctx, u.ID, models.UserPatch{IsVerified: &v, Verification: models.ClearToken()})
				require.NoError(t, err)
			}
			got, sess, err := f.svc.Login(ctx, tt.username, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, sess)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, u.ID, got.ID)
			assert.NotEmpty(t, sess)
		})
	}
}

// Неподтвержденный пользователь не может войти; после повторной отправки
// письма работает только новый токен, и после подтверждения вход проходит.
func TestService_VerificationFlow(t *testing.T) {
	f := newFixture(t)
	f.notifier.On("Send", mock.Anything, mock.Anything).Return(nil)
	ctx := context.Background()

	u, _ := f.register(t, "ann")
	first := f.notifier.last(t, models.NotificationVerification).Token

	_, _, err := f.svc.Login(ctx, "ann", "correct horse")
	require.ErrorIs(t, err, ErrUnverified)

	require.NoError(t, f.svc.ResendVerification(ctx, u.ID))
	second := f.notifier.last(t, models.NotificationVerification).Token
	require.NotEqual(t, first, second)

	_, err = f.svc.VerifyEmail(ctx, first)
	assert.ErrorIs(t, err, token.ErrInvalidToken)

	verified, err := f.svc.VerifyEmail(ctx, second)
	require.NoError(t, err)
	assert.True(t, verified.IsVerified)
	assert.Nil(t, verified.VerificationToken)
	assert.Nil(t, verified.VerificationTokenExpiry)

	_, err = f.svc.VerifyEmail(ctx, second)
	assert.ErrorIs(t, err, token.ErrAlreadyVerified)

	err = f.svc.ResendVerification(ctx, u.ID)
	assert.ErrorIs(t, err, token.ErrAlreadyVerified)

	_, sess, err := f.svc.Login(ctx, "ann", "correct horse")
	require.NoError(t, err)
	assert.NotEmpty(t, sess)
}

func TestService_VerifyEmail_Expiry(t *testing.T) {
	f := newFixture(t)
	f.notifier.On("Send", mock.Anything, mock.Anything).Return(nil)
	ctx := context.Background()
	f.register(t, "ann")
	tok := f.notifier.last(t, models.NotificationVerification).Token

	f.now = f.now.Add(24 * time.Hour)
	_, err := f.svc.VerifyEmail(ctx, tok)
	assert.ErrorIs(t, err, token.ErrExpiredToken)

	_, err = f.svc.VerifyEmail(ctx, "")
	assert.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestService_ResendVerification_EmailFailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	f.notifier.On("Send", mock.Anything, mock.Anything).Return(errors.New("smtp down"))
	u, _ := f.register(t, "ann")

	assert.NoError(t, f.svc.ResendVerification(context.Background(), u.ID))
}

func TestService_ForgotPassword_IdenticalResponse(t *testing.T) {
	f := newFixture(t)
	f.notifier.On("Send", mock.Anything, mock.Anything).Return(nil)
	ctx := context.Background()
	f.register(t, "ann")

	known, err := f.svc.ForgotPassword(ctx, "ann@example.com")
	require.NoError(t, err)
	unknown, err := f.svc.ForgotPassword(ctx, "ghost@example.com")
	require.NoError(t, err)

	assert.Equal(t, []byte(known), []byte(unknown))
	assert.Equal(t, "Password reset email sent if account exists", known)

	f.notifier.AssertNumberOfCalls(t, "Send", 2)
	n := f.notifier.last(t, models.NotificationPasswordReset)
	assert.Equal(t, "ann@example.com", n.To)
}

func TestService_ForgotPassword_StoreFailure(t *testing.T) {
	f := newFixture(t)
	f.store.Err = errors.New("connection refused")

	_, err := f.svc.ForgotPassword(context.Background(), "ann@example.com")
	assert.Error(t, err)
}

func TestService_ResetPassword(t *testing.T) {
	f := newFixture(t)
	f.notifier.On("Send", mock.Anything, mock.Anything).Return(nil)
	ctx := context.Background()
	u, _ := f.register(t, "ann")

	_, err := f.svc.ForgotPassword(ctx, "ann@example.com")
	require.NoError(t, err)
	first := f.notifier.last(t, models.NotificationPasswordReset).Token
	_, err = f.svc.ForgotPassword(ctx, "ann@example.com")
	require.NoError(t, err)
	second := f.notifier.last(t, models.NotificationPasswordReset).Token

	assert.ErrorIs(t, f.svc.ResetPassword(ctx, first, "new password"), token.ErrInvalidToken)
	require.NoError(t, f.svc.ResetPassword(ctx, second, "new password"))
	assert.ErrorIs(t, f.svc.ResetPassword(ctx, second, "again"), token.ErrInvalidToken)

	stored, err := f.store.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.NoError(t, password.CompareHash(stored.PasswordHash, "new password"))
	assert.Nil(t, stored.PasswordResetToken)
	assert.Nil(t, stored.PasswordResetExpiry)
	assert.False(t, stored.IsVerified)
	assert.NotNil(t, stored.VerificationToken)
}

func TestService_ResetPassword_Expired(t *testing.T) {
	f := newFixture(t)
	f.notifier.On("Send", mock.Anything, mock.Anything).Return(nil)
	ctx := context.Background()
	f.register(t, "ann")

	_, err := f.svc.ForgotPassword(ctx, "ann@example.com")
	require.NoError(t, err)
	tok := f.notifier.last(t, models.NotificationPasswordReset).Token

	f.now = f.now.Add(time.Hour)
	assert.ErrorIs(t, f.svc.ResetPassword(ctx, tok, "new password"), token.ErrExpiredToken)
}

func TestService_LogoutAndMe(t *testing.T) {
	f := newFixture(t)
	f.notifier.On("Send", mock.Anything, mock.Anything).Return(nil)
	ctx := context.Background()
	u, sess := f.register(t, "ann")

	me, err := f.svc.Me(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "ann", me.Username)

	require.NoError(t, f.svc.Logout(ctx, sess))
	_, err = f.sessions.Resolve(ctx, sess)
	assert.ErrorIs(t, err, session.ErrInvalidSession)

	_, err = f.svc.Me(ctx, 9999)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
