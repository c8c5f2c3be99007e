package emaillogs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursemeet/backend/internal/capability"
	"github.com/coursemeet/backend/internal/middleware"
	"github.com/coursemeet/backend/internal/models"
)

type fakeLister struct {
	logs      []*models.EmailLog
	err       error
	gotUser   uuid.UUID
	gotLimit  int
	callCount int
}

func (f *fakeLister) ListByUser(_ context.Context, userID uuid.UUID, limit int) ([]*models.EmailLog, error) {
	f.callCount++
	f.gotUser = userID
	f.gotLimit = limit
	return f.logs, f.err
}

var (
	aliceID = uuid.MustParse("00000000-0000-0000-0000-0000000000a1")
	bobID   = uuid.MustParse("00000000-0000-0000-0000-0000000000b2")
)

func serve(t *testing.T, viewer *capability.Subject, logs *fakeLister, path string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := NewHandler(logs, capability.NewRoleChecker(), nil)
	r := gin.New()
	if viewer != nil {
		r.Use(func(c *gin.Context) {
			c.Set(middleware.ContextSubject, *viewer)
			c.Next()
		})
	}
	r.GET("/users/:id/email-logs", h.ListByUser)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestListByUser_Own(t *testing.T) {
	logs := &fakeLister{logs: []*models.EmailLog{{
		ID: 1, UserID: aliceID, EmailType: models.EmailTypeCallPrivateSession,
		RecipientEmail: "alice@example.com", Status: models.EmailLogStatusSent,
	}}}
	viewer := capability.Subject{UserID: aliceID, Role: models.RoleStudent}

	w := serve(t, &viewer, logs, "/users/"+aliceID.String()+"/email-logs")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, aliceID, logs.gotUser)
	assert.Equal(t, defaultLimit, logs.gotLimit)

	var body struct {
		Data struct {
			EmailLogs []models.EmailLog `json:"email_logs"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data.EmailLogs, 1)
	assert.Equal(t, models.EmailTypeCallPrivateSession, body.Data.EmailLogs[0].EmailType)
}

func TestListByUser_EmptyIsArray(t *testing.T) {
	viewer := capability.Subject{UserID: aliceID, Role: models.RoleStudent}
	w := serve(t, &viewer, &fakeLister{}, "/users/"+aliceID.String()+"/email-logs")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"email_logs":[]`)
}

func TestListByUser_Access(t *testing.T) {
	path := "/users/" + bobID.String() + "/email-logs"

	student := capability.Subject{UserID: aliceID, Role: models.RoleStudent}
	logs := &fakeLister{}
	w := serve(t, &student, logs, path)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Zero(t, logs.callCount)

	manager := capability.Subject{UserID: aliceID, Role: models.RoleManager}
	w = serve(t, &manager, &fakeLister{}, path)
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(t, nil, &fakeLister{}, path)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListByUser_Limit(t *testing.T) {
	viewer := capability.Subject{UserID: aliceID, Role: models.RoleStudent}
	base := "/users/" + aliceID.String() + "/email-logs"

	logs := &fakeLister{}
	w := serve(t, &viewer, logs, base+"?limit=10")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 10, logs.gotLimit)

	logs = &fakeLister{}
	w = serve(t, &viewer, logs, base+"?limit=5000")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, maxLimit, logs.gotLimit)

	w = serve(t, &viewer, &fakeLister{}, base+"?limit=-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(t, &viewer, &fakeLister{}, "/users/not-a-uuid/email-logs")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListByUser_StoreError(t *testing.T) {
	viewer := capability.Subject{UserID: aliceID, Role: models.RoleStudent}
	w := serve(t, &viewer, &fakeLister{err: errors.New("boom")}, "/users/"+aliceID.String()+"/email-logs")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
