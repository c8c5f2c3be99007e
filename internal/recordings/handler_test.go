package recordings

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursemeet/backend/internal/capability"
	"github.com/coursemeet/backend/internal/middleware"
	"github.com/coursemeet/backend/internal/models"
	"github.com/coursemeet/backend/internal/sessions"
)

type sessionMap map[int64]*models.Session

func (m sessionMap) Get(_ context.Context, id int64) (*models.Session, error) {
	if s, ok := m[id]; ok {
		return s, nil
	}
	return nil, sessions.ErrNotFound
}

func newTestRouter(svc *Service, role models.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(svc, sessionMap{1: {ID: 1, Name: "Lecture"}}, capability.NewRoleChecker(), nil, "youtube", nil)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextSubject, capability.Subject{UserID: uuid.New(), Role: role})
		c.Next()
	})
	r.GET("/sessions/:id/recordings", h.List)
	r.POST("/sessions/:id/recording-state", h.State)
	r.POST("/sessions/:id/recordings/upload", h.Upload)
	r.GET("/recordings/:id/download-url", h.DownloadURL)
	r.PATCH("/recordings/:id/name", h.Rename)
	r.POST("/recordings/:id/delete", h.MarkForDeletion)
	r.GET("/sources/:id/deletable", h.Deletable)
	r.POST("/sources/:id/purge", h.Purge)
	return r
}

func send(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_RecordingLifecycle(t *testing.T) {
	svc, store, _, q := newTestService()
	r := newTestRouter(svc, models.RoleTeacher)
	on := true

	w := send(r, http.MethodPost, "/sessions/1/recording-state", StateRequest{On: &on, Link: "vid9"})
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, store.recs, 1)
	assert.Equal(t, "Lecture", store.recs[1].Name)

	assert.Equal(t, http.StatusNotFound, send(r, http.MethodPost, "/sessions/2/recording-state", StateRequest{On: &on, Link: "v"}).Code)
	assert.Equal(t, http.StatusBadRequest, send(r, http.MethodPost, "/sessions/1/recording-state", StateRequest{On: &on}).Code)

	w = send(r, http.MethodGet, "/sources/1/deletable", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"deletable":false`)
	assert.Equal(t, http.StatusConflict, send(r, http.MethodPost, "/sources/1/purge", nil).Code)

	assert.Equal(t, http.StatusBadRequest, send(r, http.MethodPost, "/recordings/1/delete", DeleteRequest{Mode: 5}).Code)
	require.Equal(t, http.StatusOK, send(r, http.MethodPost, "/recordings/1/delete", DeleteRequest{Mode: 1}).Code)

	w = send(r, http.MethodGet, "/sessions/1/recordings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "vid9", "teachers still see marked recordings")

	w = send(r, http.MethodPost, "/sources/1/purge", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Len(t, q.jobs, 1)
	assert.Equal(t, http.StatusNotFound, send(r, http.MethodPost, "/sources/77/purge", nil).Code)
}

func TestHandler_StudentsSeeOnlyActive(t *testing.T) {
	svc, store, _, _ := newTestService()
	ctx := context.Background()
	kept, err := svc.Start(ctx, 1, "youtube", "keep", "a")
	require.NoError(t, err)
	gone, err := svc.Start(ctx, 1, "youtube", "gone", "b")
	require.NoError(t, err)
	require.NoError(t, svc.MarkForDeletion(ctx, gone.ID, models.RecordingMarked))
	require.Len(t, store.recs, 2)

	w := send(newTestRouter(svc, models.RoleStudent), http.MethodGet, "/sessions/1/recordings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var env struct {
		Data []models.Recording `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.Len(t, env.Data, 1)
	assert.Equal(t, kept.ID, env.Data[0].ID)
}

func TestHandler_RenameAndDownload(t *testing.T) {
	svc, _, _, _ := newTestService()
	r := newTestRouter(svc, models.RoleTeacher)
	_, err := svc.Start(context.Background(), 1, "youtube", "abc", "x")
	require.NoError(t, err)

	w := send(r, http.MethodPatch, "/recordings/1/name", RenameRequest{Name: "<i>Final</i>"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Final"`)

	w = send(r, http.MethodGet, "/recordings/1/download-url", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "https://www.youtube.com/watch?v=abc")

	assert.Equal(t, http.StatusServiceUnavailable, send(r, http.MethodPost, "/sessions/1/recordings/upload", nil).Code)
}

type memFiles struct {
	keys []string
}

func (m *memFiles) Upload(_ context.Context, key, _ string, body io.Reader, _ int64) (string, error) {
	if _, err := io.Copy(io.Discard, body); err != nil {
		return "", err
	}
	m.keys = append(m.keys, key)
	return "https://bucket.example/" + key, nil
}

func (m *memFiles) PresignedURL(_ context.Context, key string) (string, error) {
	return "https://bucket.example/" + key + "?sig=1", nil
}

func TestHandler_UploadsGetDistinctObjects(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := newMemStore()
	assets := &fakeAssets{}
	svc := NewService(store, map[string]AssetStore{"s3": assets}, &fakeQueue{}, noAccounts{}, nil)
	files := &memFiles{}
	h := NewHandler(svc, sessionMap{1: {ID: 1, Name: "Lecture"}}, capability.NewRoleChecker(), files, "s3", nil)
	r := gin.New()
	r.POST("/sessions/:id/recordings/upload", h.Upload)

	upload := func() *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("file", "lecture.mp4")
		require.NoError(t, err)
		_, _ = fw.Write([]byte("frames"))
		require.NoError(t, mw.Close())
		req := httptest.NewRequest(http.MethodPost, "/sessions/1/recordings/upload", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	require.Equal(t, http.StatusCreated, upload().Code)
	require.Equal(t, http.StatusCreated, upload().Code)
	require.Len(t, files.keys, 2)
	assert.NotEqual(t, files.keys[0], files.keys[1])
	assert.Len(t, store.srcs, 2)
	assert.True(t, strings.HasPrefix(files.keys[0], "recordings/1/"))
}
