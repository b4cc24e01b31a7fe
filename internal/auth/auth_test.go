package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/track-invoice/track-invoice/internal/auth"
	"github.com/track-invoice/track-invoice/internal/shared"
	_ "github.com/track-invoice/track-invoice/testing"
)

type stubRepo struct {
	users map[string]*auth.User
}

func (s *stubRepo) FindByUsername(ctx context.Context, username string) (*auth.User, error) {
	u, ok := s.users[username]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

func newStubRepo(t *testing.T) *stubRepo {
	t.Helper()
	adminHash, err := auth.HashPassword("rahasia123")
	require.NoError(t, err)
	clientHash, err := auth.HashPassword("klien123")
	require.NoError(t, err)
	return &stubRepo{users: map[string]*auth.User{
		"admin":   {ID: 1, Username: "admin", PasswordHash: adminHash, Role: shared.RoleAdmin},
		"nusadig": {ID: 2, Username: "nusadig", PasswordHash: clientHash, Role: shared.RoleClient},
	}}
}

type harness struct {
	mr       *miniredis.Miniredis
	sessions *auth.SessionStore
	service  *auth.Service
	router   http.Handler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sessions := auth.NewSessionStore(client, time.Hour)
	service := auth.NewService(newStubRepo(t), sessions)

	r := chi.NewRouter()
	r.Use(auth.Middleware{Sessions: sessions}.Authenticate)
	auth.NewHandler(nil, service).MountRoutes(r)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(shared.RoleAdmin))
		r.Get("/admin-only", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	})
	return &harness{mr: mr, sessions: sessions, service: service, router: r}
}

func (h *harness) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func (h *harness) login(t *testing.T, username, password string) auth.LoginResponse {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/login", "", `{"username":"`+username+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp auth.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestLoginIssuesSessionToken(t *testing.T) {
	h := newHarness(t)

	resp := h.login(t, "admin", "rahasia123")
	assert.Equal(t, int64(1), resp.ID)
	assert.Equal(t, shared.RoleAdmin, resp.Role)
	assert.NotEmpty(t, resp.Token)
	assert.True(t, h.mr.Exists("trackinvoice:session:"+resp.Token))

	rec := h.do(t, http.MethodGet, "/me", resp.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var me shared.Principal
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, shared.Principal{UserID: 1, Username: "admin", Role: shared.RoleAdmin}, me)
}

func TestLoginInvalidCredentials(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/login", "", `{"username":"admin","password":"salah"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(t, http.MethodPost, "/login", "", `{"username":"ghost","password":"salah"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(t, http.MethodPost, "/login", "", `{"username":"admin"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequireRole(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/admin-only", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	client := h.login(t, "nusadig", "klien123")
	rec = h.do(t, http.MethodGet, "/admin-only", client.Token, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin := h.login(t, "admin", "rahasia123")
	rec = h.do(t, http.MethodGet, "/admin-only", admin.Token, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestLogoutRevokesToken(t *testing.T) {
	h := newHarness(t)
	resp := h.login(t, "admin", "rahasia123")

	rec := h.do(t, http.MethodPost, "/logout", resp.Token, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = h.do(t, http.MethodGet, "/me", resp.Token, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionExpiresAndSlides(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	token, err := h.sessions.Create(ctx, shared.Principal{UserID: 7, Username: "x", Role: shared.RoleClient})
	require.NoError(t, err)

	h.mr.FastForward(50 * time.Minute)
	_, err = h.sessions.Lookup(ctx, token)
	require.NoError(t, err)

	h.mr.FastForward(50 * time.Minute)
	p, err := h.sessions.Lookup(ctx, token)
	require.NoError(t, err, "lookup must extend the ttl")
	assert.Equal(t, int64(7), p.UserID)

	h.mr.FastForward(61 * time.Minute)
	_, err = h.sessions.Lookup(ctx, token)
	assert.ErrorIs(t, err, shared.ErrUnauthorized)

	_, err = h.sessions.Lookup(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, auth.BearerToken(req))

	req.Header.Set("Authorization", "bearer abc")
	assert.Equal(t, "abc", auth.BearerToken(req))

	req.Header.Set("Authorization", "Basic abc")
	assert.Empty(t, auth.BearerToken(req))
}
