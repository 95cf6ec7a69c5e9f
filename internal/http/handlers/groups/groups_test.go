package groups

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
	"time"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/silver-circles/internal/entitlement"
	"github.com/magabrotheeeer/silver-circles/internal/http/middlewarectx"
	"github.com/magabrotheeeer/silver-circles/internal/http/response"
	"github.com/magabrotheeeer/silver-circles/internal/models"
	"github.com/magabrotheeeer/silver-circles/internal/services/community"
	"github.com/magabrotheeeer/silver-circles/internal/storage/storagetest"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

type fixture struct {
	store  *storagetest.Memory
	router chi.Router
	actor  *entitlement.Actor

	free, premium *models.Group
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: storagetest.New()}
	authz := entitlement.NewAuthorizer(entitlement.NewEngine(), f.store, newNoopLogger())
	h := New(newNoopLogger(), community.NewService(f.store, authz, newNoopLogger()))

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middlewarectx.WithActor(req.Context(), f.actor)))
		})
	})
	r.Get("/api/groups", h.List)
	r.Get("/api/groups/{id}", h.Get)
	r.Post("/api/groups/{id}/join", h.Join)
	r.Post("/api/groups/{id}/leave", h.Leave)
	r.Get("/api/groups/{id}/zoom-calls", h.ListCalls)
	r.Post("/api/groups/{id}/zoom-calls", h.CreateCall)
	r.Post("/api/zoom-calls/{id}/join", h.JoinCall)
	r.Get("/api/user/groups", h.Mine)
	r.Get("/api/user/suggested-groups", h.Suggested)
	r.Get("/api/user/zoom-calls", h.MyCalls)
	f.router = r

	ctx := context.Background()
	var err error
	f.free, err = f.store.CreateGroup(ctx, models.Group{Name: "Walkers"})
	require.NoError(t, err)
	f.premium, err = f.store.CreateGroup(ctx, models.Group{Name: "Book club", IsPremium: true})
	require.NoError(t, err)
	return f
}

func (f *fixture) login(t *testing.T, name string, premium bool) {
	t.Helper()
	u, err := f.store.CreateUser(context.Background(), models.User{Username: name, Email: name + "@example.com", PasswordHash: "h"})
	require.NoError(t, err)
	f.actor = &entitlement.Actor{UserID: u.ID, Verified: true, Premium: premium}
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
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return rr, resp
}

func callRequest() CallRequest {
	start := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
	return CallRequest{
		Title:     "Weekly chat",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		ZoomLink:  "https://zoom.example.com/j/1",
	}
}

func TestGroups_JoinLeave(t *testing.T) {
	f := newFixture(t)
	f.login(t, "ann", false)
	join := fmt.Sprintf("/api/groups/%d/join", f.free.ID)
	leave := fmt.Sprintf("/api/groups/%d/leave", f.free.ID)

	rr, _ := f.do(t, http.MethodPost, join, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr, resp := f.do(t, http.MethodPost, join, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Already a member of this group", resp.Error)

	rr, resp = f.do(t, http.MethodGet, "/api/user/groups", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, resp.Data, 1)

	rr, resp = f.do(t, http.MethodGet, fmt.Sprintf("/api/groups/%d", f.free.ID), nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, resp.Data.(map[string]any)["members"], 1)

	rr, _ = f.do(t, http.MethodPost, leave, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr, resp = f.do(t, http.MethodPost, leave, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Not a member of this group", resp.Error)
}

func TestGroups_PremiumGate(t *testing.T) {
	f := newFixture(t)

	rr, resp := f.do(t, http.MethodGet, "/api/groups?premium=true", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "premium_required", resp.Reason)

	rr, resp = f.do(t, http.MethodPost, fmt.Sprintf("/api/groups/%d/join", f.free.ID), nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "auth_required", resp.Reason)

	f.login(t, "ann", false)
	rr, resp = f.do(t, http.MethodPost, fmt.Sprintf("/api/groups/%d/join", f.premium.ID), nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "premium_required", resp.Reason)

	rr, resp = f.do(t, http.MethodGet, "/api/user/suggested-groups", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, resp.Data, 1)
}

func TestGroups_Calls(t *testing.T) {
	f := newFixture(t)
	f.login(t, "ann", false)
	calls := fmt.Sprintf("/api/groups/%d/zoom-calls", f.free.ID)

	rr, resp := f.do(t, http.MethodPost, calls, callRequest())
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "not_member", resp.Reason)

	rr, _ = f.do(t, http.MethodPost, fmt.Sprintf("/api/groups/%d/join", f.free.ID), nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr, resp = f.do(t, http.MethodPost, calls, callRequest())
	require.Equal(t, http.StatusCreated, rr.Code)
	callID := int64(resp.Data.(map[string]any)["id"].(float64))

	bad := callRequest()
	bad.EndTime = bad.StartTime.Add(-time.Minute)
	rr, resp = f.do(t, http.MethodPost, calls, bad)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, resp.Fields, "endTime")

	rr, resp = f.do(t, http.MethodGet, calls, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, resp.Data, 1)

	for range 2 {
		rr, resp = f.do(t, http.MethodPost, fmt.Sprintf("/api/zoom-calls/%d/join", callID), nil)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "https://zoom.example.com/j/1", resp.Data.(map[string]any)["zoomLink"])
	}

	rr, resp = f.do(t, http.MethodGet, "/api/user/zoom-calls", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, resp.Data, 1)

	rr, resp = f.do(t, http.MethodPost, "/api/zoom-calls/999/join", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not_found", resp.Reason)
}

// Участник бесплатной группы теряет доступ к созвонам, когда группу
// переводят в премиальные: членство не заменяет премиум.
func TestGroups_PromotedGroupDeniesMember(t *testing.T) {
	f := newFixture(t)
	f.login(t, "ann", false)
	calls := fmt.Sprintf("/api/groups/%d/zoom-calls", f.free.ID)

	rr, _ := f.do(t, http.MethodPost, fmt.Sprintf("/api/groups/%d/join", f.free.ID), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	rr, _ = f.do(t, http.MethodGet, calls, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	premium := true
	_, err := f.store.UpdateGroup(context.Background(), f.free.ID, models.GroupPatch{IsPremium: &premium})
	require.NoError(t, err)

	rr, resp := f.do(t, http.MethodGet, calls, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "premium_required", resp.Reason)

	rr, _ = f.do(t, http.MethodPost, fmt.Sprintf("/api/groups/%d/leave", f.free.ID), nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}
