package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursemeet/backend/internal/models"
)

type memUsers struct {
	byEmail map[string]*models.User
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return nil, ErrUserNotFound
}

func (m *memUsers) Create(_ context.Context, u *models.User) error {
	u.ID = uuid.New()
	m.byEmail[u.Email] = u
	return nil
}

func newTestRouter(users *memUsers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(users, NewJWTService("secret", 1), []string{"Admin@Example.com"}, nil)
	r := gin.New()
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	return r
}

func postJSON(r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterThenLogin(t *testing.T) {
	users := &memUsers{byEmail: map[string]*models.User{}}
	r := newTestRouter(users)

	w := postJSON(r, "/auth/register", RegisterRequest{Email: "a@example.com", Password: "secret1", FirstName: "Ann"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, models.RoleStudent, users.byEmail["a@example.com"].Role)

	w = postJSON(r, "/auth/register", RegisterRequest{Email: "a@example.com", Password: "secret1", FirstName: "Ann"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = postJSON(r, "/auth/login", LoginRequest{Email: "a@example.com", Password: "secret1"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = postJSON(r, "/auth/login", LoginRequest{Email: "a@example.com", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegister_IgnoresRequestedRole(t *testing.T) {
	users := &memUsers{byEmail: map[string]*models.User{}}
	r := newTestRouter(users)
	body := map[string]string{"email": "b@example.com", "password": "secret1", "first_name": "Bo", "role": "manager"}

	w := postJSON(r, "/auth/register", body)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, models.RoleStudent, users.byEmail["b@example.com"].Role)

	var resp struct {
		Data TokenResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	claims, err := NewJWTService("secret", 1).Validate(resp.Data.Token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, claims.Role)
}

func TestRegister_ConfiguredManagerEmail(t *testing.T) {
	users := &memUsers{byEmail: map[string]*models.User{}}
	r := newTestRouter(users)

	w := postJSON(r, "/auth/register", RegisterRequest{Email: "admin@example.com", Password: "secret1", FirstName: "Ada"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, models.RoleManager, users.byEmail["admin@example.com"].Role)
}
