package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	userapp "github.com/eagleapps/user-service/internal/application"
	"github.com/eagleapps/user-service/internal/domain/entity"
	repo "github.com/eagleapps/user-service/internal/domain/repository"
	"github.com/eagleapps/user-service/pkg/helpers"
	"github.com/eagleapps/user-service/pkg/validation"
)

// memRepo is a minimal in-memory repository backing the handler tests.
type memRepo struct {
	mu    sync.Mutex
	seq   int64
	users map[string]*entity.User
}

func newMemRepo() *memRepo { return &memRepo{users: make(map[string]*entity.User)} }

func (m *memRepo) Create(_ context.Context, u *entity.User) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	id := helpers.FormatID("EGL", m.seq)
	cp := *u
	cp.ID = id
	cp.CreatedAt = time.Now().UTC()
	for i := range cp.Roles {
		cp.Roles[i].ID = int64(i + 1)
	}
	m.users[id] = &cp
	return id, nil
}

func (m *memRepo) GetAll(_ context.Context) ([]*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*entity.User, 0, len(m.users))
	for _, u := range m.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memRepo) GetByUsername(_ context.Context, username string) (*entity.CredentialView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return &entity.CredentialView{ID: u.ID, Username: u.Username, Password: u.Password, Active: u.Active, Roles: u.Roles}, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (m *memRepo) Update(_ context.Context, u *entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.users[u.ID]
	if !ok {
		return repo.ErrNotFound
	}
	stored.Fullname = u.Fullname
	stored.Roles = u.Roles
	stored.Addresses = u.Addresses
	return nil
}

func (m *memRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return repo.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memRepo) UpdatePassword(_ context.Context, username, hash string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			u.Password = hash
			return u.ID, nil
		}
	}
	return "", repo.ErrNotFound
}

func (m *memRepo) ExistsByEmailOrMobile(_ context.Context, email string, mobile int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email || u.Mobile == mobile {
			return true, nil
		}
	}
	return false, nil
}

var _ repo.UserRepository = (*memRepo)(nil)

func newTestRouter(t *testing.T) (*gin.Engine, *memRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validation.Init()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	r := newMemRepo()
	svc := userapp.NewService(r, nil, nil, logger, nil, "", 0)
	h := NewUserHandler(svc, logger)

	e := gin.New()
	api := e.Group("/api")
	api.POST("/users", h.Create)
	api.GET("/users", h.GetAll)
	api.GET("/users/:id", h.GetByID)
	api.PUT("/users/:id", h.Update)
	api.DELETE("/users/:id", h.Delete)
	api.GET("/internal/users/:username", h.GetByUsername)
	api.PUT("/internal/users/:username/password", h.UpdatePassword)
	return e, r
}

func doJSON(e *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	return w
}

func createBody(n int) map[string]any {
	return map[string]any{
		"username":                fmt.Sprintf("user%03d", n),
		"fullname":                fmt.Sprintf("User %03d", n),
		"dob":                     "1991-02-03",
		"email":                   fmt.Sprintf("user%03d@example.com", n),
		"password":                "password123",
		"mobile":                  6280000000000 + n,
		"active":                  true,
		"account_non_expired":     true,
		"account_non_locked":      true,
		"credentials_non_expired": true,
		"roles":                   []map[string]any{{"rolename": "ROLE_USER"}},
		"addresses":               map[string]string{"home": "1 Main St"},
	}
}

func TestUserHandler_CreateAndGet(t *testing.T) {
	e, _ := newTestRouter(t)

	w := doJSON(e, http.MethodPost, "/api/users", createBody(1))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Data entity.User `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "EGL00001", resp.Data.ID)
	assert.Equal(t, map[string]string{"home": "1 Main St"}, resp.Data.Addresses)

	w = doJSON(e, http.MethodGet, "/api/users/EGL00001", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUserHandler_Create_DuplicateConflict(t *testing.T) {
	e, _ := newTestRouter(t)

	require.Equal(t, http.StatusCreated, doJSON(e, http.MethodPost, "/api/users", createBody(1)).Code)

	dup := createBody(2)
	dup["email"] = "user001@example.com"
	w := doJSON(e, http.MethodPost, "/api/users", dup)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUserHandler_Create_InvalidPayload(t *testing.T) {
	e, _ := newTestRouter(t)

	bad := createBody(1)
	bad["email"] = "not-an-email"
	w := doJSON(e, http.MethodPost, "/api/users", bad)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	short := createBody(2)
	short["password"] = "short"
	w = doJSON(e, http.MethodPost, "/api/users", short)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUserHandler_GetByID_NotFound(t *testing.T) {
	e, _ := newTestRouter(t)
	w := doJSON(e, http.MethodGet, "/api/users/EGL99999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUserHandler_DeleteThenGet(t *testing.T) {
	e, _ := newTestRouter(t)

	require.Equal(t, http.StatusCreated, doJSON(e, http.MethodPost, "/api/users", createBody(1)).Code)
	assert.Equal(t, http.StatusOK, doJSON(e, http.MethodDelete, "/api/users/EGL00001", nil).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(e, http.MethodGet, "/api/users/EGL00001", nil).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(e, http.MethodDelete, "/api/users/EGL00001", nil).Code)
}

func TestUserHandler_Credentials(t *testing.T) {
	e, r := newTestRouter(t)

	require.Equal(t, http.StatusCreated, doJSON(e, http.MethodPost, "/api/users", createBody(1)).Code)

	w := doJSON(e, http.MethodGet, "/api/internal/users/user001", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data entity.CredentialView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "user001", resp.Data.Username)
	assert.NotEmpty(t, resp.Data.Password) // bcrypt hash, never the plaintext
	assert.NotEqual(t, "password123", resp.Data.Password)

	w = doJSON(e, http.MethodPut, "/api/internal/users/user001/password", map[string]any{"new_password": "newpassword456"})
	require.Equal(t, http.StatusOK, w.Code)
	view, err := r.GetByUsername(context.Background(), "user001")
	require.NoError(t, err)
	assert.True(t, helpers.CompareHashAndPassword(view.Password, "newpassword456"))

	assert.Equal(t, http.StatusNotFound, doJSON(e, http.MethodGet, "/api/internal/users/nobody", nil).Code)
}
