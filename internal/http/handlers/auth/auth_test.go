package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/silver-circles/internal/entitlement"
	"github.com/magabrotheeeer/silver-circles/internal/http/middlewarectx"
	"github.com/magabrotheeeer/silver-circles/internal/http/response"
	"github.com/magabrotheeeer/silver-circles/internal/models"
	authsvc "github.com/magabrotheeeer/silver-circles/internal/services/auth"
	"github.com/magabrotheeeer/silver-circles/internal/services/token"
	"github.com/magabrotheeeer/silver-circles/internal/storage"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Register(ctx context.Context, in authsvc.RegisterInput) (*models.User, string, error) {
	args := m.Called(ctx, in)
	u, _ := args.Get(0).(*models.User)
	return u, args.String(1), args.Error(2)
}

func (m *MockService) Login(ctx context.Context, username, password string) (*models.User, string, error) {
	args := m.Called(ctx, username, password)
	u, _ := args.Get(0).(*models.User)
	return u, args.String(1), args.Error(2)
}

func (m *MockService) Logout(ctx context.Context, sessionToken string) error {
	return m.Called(ctx, sessionToken).Error(0)
}

func (m *MockService) Me(ctx context.Context, userID int64) (*models.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *MockService) VerifyEmail(ctx context.Context, tok string) (*models.User, error) {
	args := m.Called(ctx, tok)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *MockService) ResendVerification(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockService) ForgotPassword(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

func (m *MockService) ResetPassword(ctx context.Context, tok, newPassword string) error {
	return m.Called(ctx, tok, newPassword).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	if s, ok := v.(string); ok {
		return bytes.NewBufferString(s)
	}
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var resp response.Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func withActor(r *http.Request, id int64) *http.Request {
	return r.WithContext(middlewarectx.WithActor(r.Context(), &entitlement.Actor{UserID: id}))
}

func TestRegisterHandler(t *testing.T) {
	valid := RegisterRequest{Username: "ann", Email: "ann@example.com", Password: "correct horse", FullName: "Ann"}
	input := authsvc.RegisterInput{Username: "ann", Email: "ann@example.com", Password: "correct horse", FullName: "Ann"}

	tests := []struct {
		name       string
		body       any
		setup      func(m *MockService)
		wantStatus int
		wantError  string
		wantField  string
	}{
		{
			name: "created",
			body: valid,
			setup: func(m *MockService) {
				m.On("Register", mock.Anything, input).Return(&models.User{ID: 1, Username: "ann"}, "sess", nil)
			},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "bad json",
			body:       "{",
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid request body",
		},
		{
			name:       "short password",
			body:       RegisterRequest{Username: "ann", Email: "ann@example.com", Password: "short", FullName: "Ann"},
			wantStatus: http.StatusUnprocessableEntity,
			wantField:  "password",
		},
		{
			name:       "bad email",
			body:       RegisterRequest{Username: "ann", Email: "nope", Password: "correct horse", FullName: "Ann"},
			wantStatus: http.StatusUnprocessableEntity,
			wantField:  "email",
		},
		{
			name: "username taken",
			body: valid,
			setup: func(m *MockService) {
				m.On("Register", mock.Anything, input).Return(nil, "", fmt.Errorf("auth.Register: %w", storage.ErrUsernameTaken))
			},
			wantStatus: http.StatusConflict,
			wantError:  "Username already exists",
		},
		{
			name: "email taken",
			body: valid,
			setup: func(m *MockService) {
				m.On("Register", mock.Anything, input).Return(nil, "", fmt.Errorf("auth.Register: %w", storage.ErrEmailTaken))
			},
			wantStatus: http.StatusConflict,
			wantError:  "Email already exists",
		},
		{
			name: "store failure",
			body: valid,
			setup: func(m *MockService) {
				m.On("Register", mock.Anything, input).Return(nil, "", errors.New("db down"))
			},
			wantStatus: http.StatusInternalServerError,
			wantError:  "internal error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			if tt.setup != nil {
				tt.setup(svc)
			}
			rr := httptest.NewRecorder()
			NewRegister(newNoopLogger(), svc).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/register", jsonBody(t, tt.body)))

			assert.Equal(t, tt.wantStatus, rr.Code)
			resp := decode(t, rr)
			assert.Equal(t, tt.wantError, errOrValidation(resp, tt.wantField))
			if tt.wantField != "" {
				assert.Contains(t, resp.Fields, tt.wantField)
			}
			if tt.wantStatus == http.StatusCreated {
				data := resp.Data.(map[string]any)
				assert.Equal(t, "sess", data["token"])
			}
			svc.AssertExpectations(t)
		})
	}
}

func errOrValidation(resp response.Response, field string) string {
	if field != "" {
		return ""
	}
	return resp.Error
}

func TestLoginHandler(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantReason string
		wantError  string
	}{
		{name: "ok", wantStatus: http.StatusOK},
		{
			name:       "wrong password",
			err:        fmt.Errorf("auth.Login: %w", authsvc.ErrInvalidCredentials),
			wantStatus: http.StatusUnauthorized,
			wantError:  "authentication failed",
		},
		{
			name:       "unverified",
			err:        fmt.Errorf("auth.Login: %w", authsvc.ErrUnverified),
			wantStatus: http.StatusForbidden,
			wantReason: "email_unverified",
			wantError:  entitlement.DenyUnverified.Message(),
		},
		{
			name:       "store failure",
			err:        errors.New("db down"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "internal error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			var user *models.User
			if tt.err == nil {
				user = &models.User{ID: 3, Username: "ann"}
			}
			svc.On("Login", mock.Anything, "ann", "pw").Return(user, "sess", tt.err)

			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/login", jsonBody(t, LoginRequest{Username: "ann", Password: "pw"}))
			NewLogin(newNoopLogger(), svc).ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			resp := decode(t, rr)
			assert.Equal(t, tt.wantReason, resp.Reason)
			assert.Equal(t, tt.wantError, resp.Error)
		})
	}
}

func TestLoginHandler_ValidationError(t *testing.T) {
	svc := new(MockService)
	rr := httptest.NewRecorder()
	NewLogin(newNoopLogger(), svc).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/login", jsonBody(t, LoginRequest{Username: "ann"})))

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "field password is a required field", decode(t, rr).Fields["password"])
	svc.AssertNotCalled(t, "Login", mock.Anything, mock.Anything, mock.Anything)
}

func TestLogoutAndMe(t *testing.T) {
	svc := new(MockService)
	svc.On("Logout", mock.Anything, "sess").Return(nil)
	svc.On("Me", mock.Anything, int64(5)).Return(&models.User{ID: 5, Username: "ann"}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/logout", nil)
	req = req.WithContext(context.WithValue(req.Context(), middlewarectx.TokenKey, "sess"))
	rr := httptest.NewRecorder()
	NewLogout(newNoopLogger(), svc).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	NewMe(newNoopLogger(), svc).ServeHTTP(rr, withActor(httptest.NewRequest(http.MethodGet, "/api/user", nil), 5))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ann", decode(t, rr).Data.(map[string]any)["username"])

	rr = httptest.NewRecorder()
	NewMe(newNoopLogger(), svc).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/user", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	svc.AssertExpectations(t)
}

func TestVerifyEmailHandler(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"verified", nil, http.StatusOK, "Email verified successfully"},
		{"already verified", token.ErrAlreadyVerified, http.StatusBadRequest, "Email already verified"},
		{"expired", token.ErrExpiredToken, http.StatusBadRequest, "Verification token has expired"},
		{"invalid", token.ErrInvalidToken, http.StatusBadRequest, "Invalid verification token"},
		{"store failure", errors.New("db down"), http.StatusInternalServerError, "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			var user *models.User
			var err error
			if tt.err == nil {
				user = &models.User{ID: 1, IsVerified: true}
			} else {
				err = fmt.Errorf("auth.VerifyEmail: %w", tt.err)
			}
			svc.On("VerifyEmail", mock.Anything, "tok").Return(user, err)

			rr := httptest.NewRecorder()
			NewVerifyEmail(newNoopLogger(), svc).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/verify-email?token=tok", nil))

			assert.Equal(t, tt.wantStatus, rr.Code)
			resp := decode(t, rr)
			if tt.err == nil {
				assert.Equal(t, tt.wantMsg, resp.Data.(map[string]any)["message"])
				return
			}
			assert.Equal(t, tt.wantMsg, resp.Error)
		})
	}
}

func TestResendVerificationHandler(t *testing.T) {
	svc := new(MockService)
	svc.On("ResendVerification", mock.Anything, int64(1)).Return(nil).Once()
	svc.On("ResendVerification", mock.Anything, int64(2)).Return(fmt.Errorf("x: %w", token.ErrAlreadyVerified)).Once()
	h := NewResendVerification(newNoopLogger(), svc)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, withActor(httptest.NewRequest(http.MethodPost, "/api/resend-verification", nil), 1))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, withActor(httptest.NewRequest(http.MethodPost, "/api/resend-verification", nil), 2))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Email already verified", decode(t, rr).Error)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/resend-verification", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	svc.AssertExpectations(t)
}

// Ответ на запрос сброса не зависит от существования аккаунта.
func TestForgotPasswordHandler_IdenticalBodies(t *testing.T) {
	svc := new(MockService)
	svc.On("ForgotPassword", mock.Anything, mock.Anything).Return(authsvc.ForgotPasswordMessage, nil)
	h := NewForgotPassword(newNoopLogger(), svc)

	send := func(email string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/forgot-password", jsonBody(t, ForgotPasswordRequest{Email: email})))
		return rr
	}
	known := send("ann@example.com")
	unknown := send("ghost@example.com")

	assert.Equal(t, http.StatusOK, known.Code)
	assert.Equal(t, known.Code, unknown.Code)
	assert.Equal(t, known.Body.Bytes(), unknown.Body.Bytes())
}

func TestResetPasswordHandler(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"ok", nil, http.StatusOK, ""},
		{"expired", token.ErrExpiredToken, http.StatusBadRequest, "Reset token has expired"},
		{"invalid", token.ErrInvalidToken, http.StatusBadRequest, "Invalid or expired reset token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			svc.On("ResetPassword", mock.Anything, "tok", "new password").Return(tt.err)

			rr := httptest.NewRecorder()
			body := jsonBody(t, ResetPasswordRequest{Token: "tok", Password: "new password"})
			NewResetPassword(newNoopLogger(), svc).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/reset-password", body))

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantError, decode(t, rr).Error)
		})
	}
}
