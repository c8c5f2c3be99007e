package recordings

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/coursemeet/backend/config"
	"github.com/coursemeet/backend/internal/capability"
	"github.com/coursemeet/backend/internal/middleware"
	"github.com/coursemeet/backend/internal/models"
	"github.com/coursemeet/backend/internal/sessions"
	"github.com/coursemeet/backend/pkg/response"
	"github.com/coursemeet/backend/pkg/storage"
)

// SessionLookup loads the session a recording belongs to.
type SessionLookup interface {
	Get(ctx context.Context, id int64) (*models.Session, error)
}

// Files uploads recordings to object storage and signs download links.
type Files interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, contentLength int64) (string, error)
	PresignedURL(ctx context.Context, key string) (string, error)
}

// StateRequest is the body of POST /sessions/:id/recording-state, sent by the
// client when the widget reports a recording status change.
type StateRequest struct {
	On       *bool  `json:"on" binding:"required"`
	Link     string `json:"link"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

// RenameRequest is the body of PATCH /recordings/:id/name.
type RenameRequest struct {
	Name string `json:"name" binding:"required"`
}

// DeleteRequest is the body of POST /recordings/:id/delete.
type DeleteRequest struct {
	Mode int `json:"mode" binding:"required"`
}

// Handler handles recording HTTP endpoints.
type Handler struct {
	svc      *Service
	sessions SessionLookup
	checker  capability.Checker
	files    Files // nil when S3 is not configured
	provider string
	logger   *zap.Logger
}

// NewHandler creates a recordings handler. provider is used when a state
// change does not name one.
func NewHandler(svc *Service, sessions SessionLookup, checker capability.Checker, files Files, provider string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, sessions: sessions, checker: checker, files: files, provider: provider, logger: logger}
}

func paramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}

func (h *Handler) session(c *gin.Context) (*models.Session, bool) {
	id, ok := paramID(c)
	if !ok {
		return nil, false
	}
	sess, err := h.sessions.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, sessions.ErrNotFound) {
			response.NotFound(c, "session not found")
			return nil, false
		}
		h.logger.Error("get session failed", zap.Int64("session_id", id), zap.Error(err))
		response.Internal(c, "failed to load session")
		return nil, false
	}
	return sess, true
}

func (h *Handler) fail(c *gin.Context, msg string, err error, fields ...zap.Field) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrSourceNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrInvalidMode), errors.Is(err, ErrInvalidName), errors.Is(err, ErrUnknownProvider):
		response.BadRequest(c, err.Error())
	case errors.Is(err, ErrNotDeletable):
		response.Conflict(c, err.Error())
	default:
		h.logger.Error(msg, append(fields, zap.Error(err))...)
		response.Internal(c, msg)
	}
}

// List handles GET /sessions/:id/recordings. Recordings marked for deletion
// are only listed to users who can record.
func (h *Handler) List(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	subject, _ := middleware.SubjectFrom(c)
	canRecord := h.checker.Has(c.Request.Context(), subject, capability.Record, capability.ScopeModule)

	list, err := h.svc.ListBySession(c.Request.Context(), sess.ID)
	if err != nil {
		h.fail(c, "failed to list recordings", err, zap.Int64("session_id", sess.ID))
		return
	}
	visible := make([]models.Recording, 0, len(list))
	for _, rec := range list {
		if rec.Active() || (canRecord && rec.Deleted == models.RecordingMarked) {
			visible = append(visible, rec)
		}
	}
	response.OK(c, visible)
}

// State handles POST /sessions/:id/recording-state.
func (h *Handler) State(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req StateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !*req.On {
		h.logger.Info("recording stopped", zap.Int64("session_id", sess.ID))
		response.OK(c, gin.H{"recording": false})
		return
	}
	if req.Link == "" {
		response.BadRequest(c, "link is required when recording starts")
		return
	}
	provider := req.Provider
	if provider == "" {
		provider = h.provider
	}
	name := req.Name
	if name == "" {
		name = sess.Name
	}
	rec, err := h.svc.Start(c.Request.Context(), sess.ID, provider, req.Link, name)
	if err != nil {
		h.fail(c, "failed to store recording", err, zap.Int64("session_id", sess.ID))
		return
	}
	response.Created(c, rec)
}

// Upload handles POST /sessions/:id/recordings/upload, storing a recording
// file in the recordings bucket.
func (h *Handler) Upload(c *gin.Context) {
	if h.files == nil {
		response.ServiceUnavailable(c, "S3 not configured")
		return
	}
	sess, ok := h.session(c)
	if !ok {
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}
	name := c.PostForm("name")
	if name == "" {
		name = sess.Name
	}
	f, err := fh.Open()
	if err != nil {
		response.BadRequest(c, "unreadable file")
		return
	}
	defer f.Close()

	key := storage.RecordingKey(sess.ID, uuid.NewString())
	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "video/mp4"
	}
	if _, err := h.files.Upload(c.Request.Context(), key, contentType, f, fh.Size); err != nil {
		h.logger.Error("upload recording failed", zap.Int64("session_id", sess.ID), zap.Error(err))
		response.BadGateway(c, "failed to upload recording")
		return
	}
	rec, err := h.svc.Start(c.Request.Context(), sess.ID, config.ProviderS3, key, name)
	if err != nil {
		h.fail(c, "failed to store recording", err, zap.Int64("session_id", sess.ID))
		return
	}
	response.Created(c, rec)
}

// DownloadURL handles GET /recordings/:id/download-url.
func (h *Handler) DownloadURL(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	rec, err := h.svc.Get(ctx, id)
	if err != nil {
		h.fail(c, "failed to load recording", err, zap.Int64("recording_id", id))
		return
	}
	if !rec.Active() {
		response.NotFound(c, ErrNotFound.Error())
		return
	}
	src, err := h.svc.Source(ctx, rec.SourceID)
	if err != nil {
		h.fail(c, "failed to load recording source", err, zap.Int64("source_id", rec.SourceID))
		return
	}
	switch src.Provider {
	case config.ProviderS3:
		if h.files == nil {
			response.ServiceUnavailable(c, "S3 not configured")
			return
		}
		u, err := h.files.PresignedURL(ctx, src.Link)
		if err != nil {
			h.logger.Error("presign recording failed", zap.Int64("recording_id", id), zap.Error(err))
			response.BadGateway(c, "failed to generate download URL")
			return
		}
		response.OK(c, gin.H{"download_url": u})
	default:
		response.OK(c, gin.H{"download_url": "https://www.youtube.com/watch?v=" + url.QueryEscape(src.Link)})
	}
}

// Rename handles PATCH /recordings/:id/name.
func (h *Handler) Rename(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req RenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	name, err := h.svc.Rename(c.Request.Context(), id, req.Name)
	if err != nil {
		h.fail(c, "failed to rename recording", err, zap.Int64("recording_id", id))
		return
	}
	response.OK(c, gin.H{"id": id, "name": name})
}

// MarkForDeletion handles POST /recordings/:id/delete.
func (h *Handler) MarkForDeletion(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req DeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.svc.MarkForDeletion(c.Request.Context(), id, req.Mode); err != nil {
		h.fail(c, "failed to mark recording", err, zap.Int64("recording_id", id))
		return
	}
	response.OK(c, gin.H{"id": id, "deleted": req.Mode})
}

// Deletable handles GET /sources/:id/deletable.
func (h *Handler) Deletable(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if _, err := h.svc.Source(c.Request.Context(), id); err != nil {
		h.fail(c, "failed to load recording source", err, zap.Int64("source_id", id))
		return
	}
	deletable, err := h.svc.IsDeletable(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "failed to check source", err, zap.Int64("source_id", id))
		return
	}
	response.OK(c, gin.H{"source_id": id, "deletable": deletable})
}

// Purge handles POST /sources/:id/purge.
func (h *Handler) Purge(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.svc.Purge(c.Request.Context(), id); err != nil {
		h.fail(c, "failed to queue purge", err, zap.Int64("source_id", id))
		return
	}
	response.Accepted(c, gin.H{"source_id": id, "status": "queued"})
}
