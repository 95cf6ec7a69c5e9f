package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/silver-circles/internal/config"
	"github.com/magabrotheeeer/silver-circles/internal/entitlement"
	"github.com/magabrotheeeer/silver-circles/internal/http/middlewarectx"
	"github.com/magabrotheeeer/silver-circles/internal/http/response"
	"github.com/magabrotheeeer/silver-circles/internal/models"
	adminsvc "github.com/magabrotheeeer/silver-circles/internal/services/admin"
	"github.com/magabrotheeeer/silver-circles/internal/services/subscription"
	"github.com/magabrotheeeer/silver-circles/internal/storage/storagetest"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

type fixture struct {
	store  *storagetest.Memory
	router chi.Router
	actor  *entitlement.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: storagetest.New()}
	authz := entitlement.NewAuthorizer(entitlement.NewEngine(), f.store, newNoopLogger())
	premium := subscription.NewManager(f.store, nil, nil, config.Billing{}, newNoopLogger())
	h := New(newNoopLogger(), adminsvc.NewService(f.store, premium, authz, newNoopLogger()))

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middlewarectx.WithActor(req.Context(), f.actor)))
		})
	})
	r.Route("/api/admin", func(r chi.Router) {
		r.Post("/forums", h.CreateForum)
		r.Put("/forums/{id}", h.UpdateForum)
		r.Delete("/forums/{id}", h.DeleteForum)
		r.Post("/groups", h.CreateGroup)
		r.Put("/groups/{id}", h.UpdateGroup)
		r.Delete("/groups/{id}", h.DeleteGroup)
		r.Get("/users", h.ListUsers)
		r.Put("/users/{id}", h.UpdateUser)
	})
	f.router = r
	return f
}

func (f *fixture) user(t *testing.T, name string, admin bool) *models.User {
	t.Helper()
	u, err := f.store.CreateUser(context.Background(), models.User{Username: name, Email: name + "@example.com", PasswordHash: "h"})
	require.NoError(t, err)
	f.actor = &entitlement.Actor{UserID: u.ID, Verified: true, Admin: admin}
	return u
}

func (f *fixture) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, response.Response) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, httptest.NewRequest(method, path, rd))
	var resp response.Response
	if rr.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	}
	return rr, resp
}

func TestAdmin_RequiresAdmin(t *testing.T) {
	f := newFixture(t)

	rr, resp := f.do(t, http.MethodPost, "/api/admin/forums", ForumRequest{Title: "News"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "auth_required", resp.Reason)

	f.user(t, "plain", false)
	rr, resp = f.do(t, http.MethodGet, "/api/admin/users", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "admin_required", resp.Reason)
}

func TestAdmin_ForumAndGroupLifecycle(t *testing.T) {
	f := newFixture(t)
	f.user(t, "root", true)

	rr, resp := f.do(t, http.MethodPost, "/api/admin/forums", ForumRequest{Title: "News", IsPremium: true})
	require.Equal(t, http.StatusCreated, rr.Code)
	forumID := int64(resp.Data.(map[string]any)["id"].(float64))

	free := false
	rr, resp = f.do(t, http.MethodPut, fmt.Sprintf("/api/admin/forums/%d", forumID), ForumPatchRequest{IsPremium: &free})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, false, resp.Data.(map[string]any)["isPremium"])

	rr, _ = f.do(t, http.MethodDelete, fmt.Sprintf("/api/admin/forums/%d", forumID), nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr, _ = f.do(t, http.MethodDelete, fmt.Sprintf("/api/admin/forums/%d", forumID), nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr, resp = f.do(t, http.MethodPost, "/api/admin/groups", GroupRequest{})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, resp.Fields, "name")

	rr, resp = f.do(t, http.MethodPost, "/api/admin/groups", GroupRequest{Name: "Chess"})
	require.Equal(t, http.StatusCreated, rr.Code)
	groupID := int64(resp.Data.(map[string]any)["id"].(float64))

	premium := true
	rr, resp = f.do(t, http.MethodPut, fmt.Sprintf("/api/admin/groups/%d", groupID), GroupPatchRequest{IsPremium: &premium})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, resp.Data.(map[string]any)["isPremium"])

	rr, _ = f.do(t, http.MethodDelete, fmt.Sprintf("/api/admin/groups/%d", groupID), nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestAdmin_Users(t *testing.T) {
	f := newFixture(t)
	target := f.user(t, "ann", false)
	f.user(t, "root", true)

	rr, resp := f.do(t, http.MethodGet, "/api/admin/users?limit=1", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, resp.Data, 1)

	rr, _ = f.do(t, http.MethodGet, "/api/admin/users?offset=x", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	premium := true
	rr, resp = f.do(t, http.MethodPut, fmt.Sprintf("/api/admin/users/%d", target.ID), UserPatchRequest{IsPremium: &premium})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, resp.Data.(map[string]any)["isPremium"])

	stored, err := f.store.GetUser(context.Background(), target.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsPremium)
	assert.Nil(t, stored.BillingSubscriptionID)
}
