package clients

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	mdshared "github.com/track-invoice/track-invoice/internal/masterdata/shared"
	"github.com/track-invoice/track-invoice/internal/shared"
)

type memoryUser struct {
	username string
	hash     string
}

type memoryRepo struct {
	clientSeq int64
	userSeq   int64
	clients   map[int64]Client
	users     map[int64]memoryUser
	refs      map[int64]int
	audits    []shared.AuditLog
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{clients: map[int64]Client{}, users: map[int64]memoryUser{}, refs: map[int64]int{}}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	clients := make(map[int64]Client, len(m.clients))
	for k, v := range m.clients {
		clients[k] = v
	}
	users := make(map[int64]memoryUser, len(m.users))
	for k, v := range m.users {
		users[k] = v
	}
	clientSeq, userSeq, audits := m.clientSeq, m.userSeq, len(m.audits)
	if err := fn(ctx, m); err != nil {
		m.clients, m.users = clients, users
		m.clientSeq, m.userSeq = clientSeq, userSeq
		m.audits = m.audits[:audits]
		return err
	}
	return nil
}

func (m *memoryRepo) List(ctx context.Context, filters mdshared.ListFilters) ([]Client, int, error) {
	out := []Client{}
	for _, c := range m.clients {
		if filters.Search == "" || strings.Contains(strings.ToLower(c.CompanyName), strings.ToLower(filters.Search)) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (Client, error) {
	c, ok := m.clients[id]
	if !ok {
		return Client{}, fmt.Errorf("%w: client %d", shared.ErrNotFound, id)
	}
	return c, nil
}

func (m *memoryRepo) GetForUpdate(ctx context.Context, id int64) (Client, error) {
	return m.Get(ctx, id)
}

func (m *memoryRepo) FindByUserID(ctx context.Context, userID int64) (Client, error) {
	for _, c := range m.clients {
		if c.UserID != nil && *c.UserID == userID {
			return c, nil
		}
	}
	return Client{}, fmt.Errorf("%w: client for user %d", shared.ErrNotFound, userID)
}

func (m *memoryRepo) Create(ctx context.Context, c Client) (Client, error) {
	m.clientSeq++
	c.ID = m.clientSeq
	m.clients[c.ID] = c
	return c, nil
}

func (m *memoryRepo) Update(ctx context.Context, c Client) error {
	if _, ok := m.clients[c.ID]; !ok {
		return fmt.Errorf("%w: client %d", shared.ErrNotFound, c.ID)
	}
	m.clients[c.ID] = c
	return nil
}

func (m *memoryRepo) Delete(ctx context.Context, id int64) error {
	delete(m.clients, id)
	return nil
}

func (m *memoryRepo) CountReferences(ctx context.Context, id int64) (int, error) {
	return m.refs[id], nil
}

func (m *memoryRepo) usernameTaken(username string, except int64) bool {
	for id, u := range m.users {
		if id != except && u.username == username {
			return true
		}
	}
	return false
}

func (m *memoryRepo) CreateUser(ctx context.Context, username, passwordHash string) (int64, error) {
	if m.usernameTaken(username, 0) {
		return 0, fmt.Errorf("%w: username %q already taken", shared.ErrConflict, username)
	}
	m.userSeq++
	m.users[m.userSeq] = memoryUser{username: username, hash: passwordHash}
	return m.userSeq, nil
}

func (m *memoryRepo) UpdateUser(ctx context.Context, userID int64, username, passwordHash string) error {
	if m.usernameTaken(username, userID) {
		return fmt.Errorf("%w: username %q already taken", shared.ErrConflict, username)
	}
	u := m.users[userID]
	u.username = username
	if passwordHash != "" {
		u.hash = passwordHash
	}
	m.users[userID] = u
	return nil
}

func (m *memoryRepo) DeleteUser(ctx context.Context, userID int64) error {
	delete(m.users, userID)
	return nil
}

func (m *memoryRepo) RecordAudit(ctx context.Context, log shared.AuditLog) error {
	m.audits = append(m.audits, log)
	return nil
}

func newTestService(repo *memoryRepo) *Service {
	svc := NewService(repo, nil)
	svc.hash = func(p string) (string, error) { return "hashed:" + p, nil }
	return svc
}

func TestCreateWithLogin(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	c, err := svc.Create(context.Background(), Request{
		CompanyName: " PT Nusa Digital ",
		Email:       "finance@nusa.id",
		Username:    "nusadig",
		Password:    "klien123",
	})
	require.NoError(t, err)
	assert.Equal(t, "PT Nusa Digital", c.CompanyName)
	require.NotNil(t, c.UserID)
	assert.Equal(t, "nusadig", c.Username)
	assert.Equal(t, "hashed:klien123", repo.users[*c.UserID].hash)

	owner, err := svc.ForUser(context.Background(), *c.UserID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, owner.ID)
	require.Len(t, repo.audits, 1)
	assert.Equal(t, "client.create", repo.audits[0].Action)
}

func TestCreateHashesWithBcrypt(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	c, err := svc.Create(context.Background(), Request{CompanyName: "PT A", Username: "ptaaa", Password: "secret1"})
	require.NoError(t, err)
	hash := repo.users[*c.UserID].hash
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("secret1")))
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, Request{CompanyName: ""})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(ctx, Request{CompanyName: "PT A", Email: "not-an-email"})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(ctx, Request{CompanyName: "PT A", Username: "ptaaa"})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(ctx, Request{CompanyName: "PT A", Password: "secret1"})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateDuplicateUsernameRollsBack(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.Create(ctx, Request{CompanyName: "PT A", Username: "shared", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, Request{CompanyName: "PT B", Username: "shared", Password: "secret2"})
	assert.ErrorIs(t, err, shared.ErrConflict)
	assert.Len(t, repo.clients, 1)
	assert.Len(t, repo.users, 1)
}

func TestUpdateUpsertsLogin(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	c, err := svc.Create(ctx, Request{CompanyName: "PT A"})
	require.NoError(t, err)
	assert.False(t, c.HasLogin())

	_, err = svc.Update(ctx, c.ID, Request{CompanyName: "PT A", Username: "ptaaa"})
	assert.ErrorIs(t, err, shared.ErrValidation, "a new login needs a password")

	updated, err := svc.Update(ctx, c.ID, Request{CompanyName: "PT A", Username: "ptaaa", Password: "secret1"})
	require.NoError(t, err)
	require.True(t, updated.HasLogin())
	userID := *updated.UserID

	renamed, err := svc.Update(ctx, c.ID, Request{CompanyName: "PT A Baru", Username: "ptaaa2"})
	require.NoError(t, err)
	assert.Equal(t, userID, *renamed.UserID)
	assert.Equal(t, "ptaaa2", repo.users[userID].username)
	assert.Equal(t, "hashed:secret1", repo.users[userID].hash)
	assert.Equal(t, "PT A Baru", repo.clients[c.ID].CompanyName)

	kept, err := svc.Update(ctx, c.ID, Request{CompanyName: "PT A Baru"})
	require.NoError(t, err)
	assert.Equal(t, "ptaaa2", kept.Username)

	_, err = svc.Update(ctx, 404, Request{CompanyName: "x"})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDeleteRejectsReferencedClient(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	c, err := svc.Create(ctx, Request{CompanyName: "PT A", Username: "ptaaa", Password: "secret1"})
	require.NoError(t, err)

	repo.refs[c.ID] = 2
	err = svc.Delete(ctx, c.ID)
	assert.ErrorIs(t, err, shared.ErrConflict)
	assert.Contains(t, repo.clients, c.ID)

	repo.refs[c.ID] = 0
	require.NoError(t, svc.Delete(ctx, c.ID))
	assert.Empty(t, repo.clients)
	assert.Empty(t, repo.users, "linked login is removed with the client")

	assert.True(t, errors.Is(svc.Delete(ctx, c.ID), shared.ErrNotFound))
}

func TestHandlerDeleteConflict(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	r := chi.NewRouter()
	NewHandler(nil, svc).MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"company_name":"PT A","pic_name":"Budi"}`)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	repo.refs[1] = 1
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/1", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?search=pt", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"company_name":"PT A"`)
}
