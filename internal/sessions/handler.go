package sessions

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/coursemeet/backend/internal/capability"
	"github.com/coursemeet/backend/internal/embed"
	"github.com/coursemeet/backend/internal/middleware"
	"github.com/coursemeet/backend/internal/models"
	"github.com/coursemeet/backend/pkg/response"
)

// Visits records that a user entered a session.
type Visits interface {
	Enter(ctx context.Context, sessionID, courseID int64, userID uuid.UUID) error
}

// Accounts reports whether a recording service account is configured.
type Accounts interface {
	HasInUse(ctx context.Context) (bool, error)
}

// SessionRequest is the body for creating or editing a session.
type SessionRequest struct {
	Name         string `json:"name" binding:"required"`
	Intro        string `json:"intro"`
	IntroFormat  int    `json:"intro_format"`
	TimeOpen     int64  `json:"time_open"`
	TimeClose    int64  `json:"time_close"`
	ValidityTime int64  `json:"validity_time"`
}

// InvitationResponse is the guest link of a session.
type InvitationResponse struct {
	URL       string `json:"url"`
	Code      int64  `json:"code"`
	ExpiresAt int64  `json:"expires_at"`
}

// Handler handles session HTTP endpoints.
type Handler struct {
	svc            *Service
	builder        *embed.Builder
	checker        capability.Checker
	visits         Visits
	accounts       Accounts
	invitesEnabled bool
	publicURL      string
	logger         *zap.Logger
	now            func() time.Time
}

// NewHandler creates a session handler.
func NewHandler(svc *Service, builder *embed.Builder, checker capability.Checker, visits Visits, accounts Accounts,
	invitesEnabled bool, publicURL string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		svc:            svc,
		builder:        builder,
		checker:        checker,
		visits:         visits,
		accounts:       accounts,
		invitesEnabled: invitesEnabled,
		publicURL:      publicURL,
		logger:         logger,
		now:            time.Now,
	}
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

func (h *Handler) load(c *gin.Context) (*models.Session, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return nil, false
	}
	sess, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "session not found")
			return nil, false
		}
		h.logger.Error("get session failed", zap.Int64("session_id", id), zap.Error(err))
		response.Internal(c, "failed to load session")
		return nil, false
	}
	return sess, true
}

// List handles GET /courses/:id/sessions.
func (h *Handler) List(c *gin.Context) {
	courseID, ok := paramID(c, "id")
	if !ok {
		return
	}
	list, err := h.svc.FindByCourse(c.Request.Context(), courseID)
	if err != nil {
		h.logger.Error("list sessions failed", zap.Int64("course_id", courseID), zap.Error(err))
		response.Internal(c, "failed to list sessions")
		return
	}
	if list == nil {
		list = []models.Session{}
	}
	response.OK(c, list)
}

// Create handles POST /courses/:id/sessions.
func (h *Handler) Create(c *gin.Context) {
	courseID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	sess := req.toSession()
	sess.CourseID = courseID
	if _, err := h.svc.Create(c.Request.Context(), sess); err != nil {
		h.logger.Error("create session failed", zap.Error(err))
		response.Internal(c, "failed to create session")
		return
	}
	response.Created(c, sess)
}

// Get handles GET /sessions/:id.
func (h *Handler) Get(c *gin.Context) {
	sess, ok := h.load(c)
	if !ok {
		return
	}
	response.OK(c, sess)
}

// Update handles PUT /sessions/:id.
func (h *Handler) Update(c *gin.Context) {
	current, ok := h.load(c)
	if !ok {
		return
	}
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	sess := req.toSession()
	sess.ID = current.ID
	sess.CourseID = current.CourseID
	sess.Token = current.Token
	sess.TimeCreated = current.TimeCreated
	sess.CreatedAt = current.CreatedAt
	updated, err := h.svc.Update(c.Request.Context(), sess)
	if err != nil {
		h.logger.Error("update session failed", zap.Int64("session_id", sess.ID), zap.Error(err))
		response.Internal(c, "failed to update session")
		return
	}
	if !updated {
		response.NotFound(c, "session not found")
		return
	}
	response.OK(c, sess)
}

// Delete handles DELETE /sessions/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	deleted, err := h.svc.Delete(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("delete session failed", zap.Int64("session_id", id), zap.Error(err))
		response.Internal(c, "failed to delete session")
		return
	}
	if !deleted {
		response.NotFound(c, "session not found")
		return
	}
	response.NoContent(c)
}

// RefreshEvents handles POST /courses/:id/refresh-events.
func (h *Handler) RefreshEvents(c *gin.Context) {
	courseID, ok := paramID(c, "id")
	if !ok {
		return
	}
	n, err := h.svc.RefreshEvents(c.Request.Context(), courseID)
	if err != nil {
		h.logger.Error("refresh events failed", zap.Int64("course_id", courseID), zap.Error(err))
		response.Internal(c, "failed to refresh events")
		return
	}
	response.OK(c, gin.H{"sessions": n})
}

// Embed handles GET /sessions/:id/embed. Access is refused before any token is built.
func (h *Handler) Embed(c *gin.Context) {
	subject, ok := middleware.SubjectFrom(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	sess, ok := h.load(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := capability.Require(ctx, h.checker, subject, capability.View, capability.ScopeModule); err != nil {
		response.Forbidden(c, "no permission to view this session")
		return
	}

	inUse, err := h.accounts.HasInUse(ctx)
	if err != nil {
		h.logger.Warn("service account lookup failed", zap.Error(err))
	}
	opts, err := h.builder.Build(embed.Request{
		Subject:      subject,
		Flags:        capability.FlagsFor(ctx, h.checker, subject, capability.ScopeModule),
		Room:         sess.Name,
		Target:       embed.Target{Kind: embed.TargetSession, SessionID: sess.ID},
		AccountInUse: inUse,
	})
	if err != nil {
		h.logger.Error("build embed failed", zap.Int64("session_id", sess.ID), zap.Error(err))
		response.Internal(c, "failed to build room")
		return
	}
	if err := h.visits.Enter(ctx, sess.ID, sess.CourseID, subject.UserID); err != nil {
		h.logger.Warn("log enter failed", zap.Int64("session_id", sess.ID), zap.Error(err))
	}
	response.OK(c, opts)
}

// Invitation handles GET /sessions/:id/invitation.
func (h *Handler) Invitation(c *gin.Context) {
	sess, ok := h.load(c)
	if !ok {
		return
	}
	if err := CheckGuestAccess(sess, h.invitesEnabled, h.now()); err != nil {
		response.Gone(c, ExpiryMessage(sess, h.invitesEnabled))
		return
	}
	response.OK(c, InvitationResponse{
		URL:       h.invitationURL(sess),
		Code:      InviteCode(sess),
		ExpiresAt: sess.ValidityTime,
	})
}

func (h *Handler) invitationURL(sess *models.Session) string {
	return fmt.Sprintf("%s/universal/%s", h.publicURL, sess.Token)
}

// InvitationQR handles GET /sessions/:id/invitation/qr, the guest link with its
// code as a PNG.
func (h *Handler) InvitationQR(c *gin.Context) {
	sess, ok := h.load(c)
	if !ok {
		return
	}
	if err := CheckGuestAccess(sess, h.invitesEnabled, h.now()); err != nil {
		response.Gone(c, ExpiryMessage(sess, h.invitesEnabled))
		return
	}
	link := fmt.Sprintf("%s?code=%d", h.invitationURL(sess), InviteCode(sess))
	png, err := InvitationQR(link, QRSize)
	if err != nil {
		h.logger.Error("render invitation qr failed", zap.Int64("session_id", sess.ID), zap.Error(err))
		response.Internal(c, "failed to render qr code")
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.Data(http.StatusOK, "image/png", png)
}

// Universal handles GET /universal/:token for guests. The guest names themselves
// with the name query parameter.
func (h *Handler) Universal(c *gin.Context) {
	ctx := c.Request.Context()
	sess, err := h.svc.GetByToken(ctx, c.Param("token"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "session not found")
			return
		}
		h.logger.Error("get session by token failed", zap.Error(err))
		response.Internal(c, "failed to load session")
		return
	}
	if code := c.Query("code"); code != "" && !IsOriginal(code, sess) {
		response.Forbidden(c, "invalid invitation code")
		return
	}
	if err := CheckGuestAccess(sess, h.invitesEnabled, h.now()); err != nil {
		response.Gone(c, ExpiryMessage(sess, h.invitesEnabled))
		return
	}
	name := c.Query("name")
	if name == "" {
		response.BadRequest(c, "name is required")
		return
	}
	opts, err := h.builder.Build(embed.Request{
		Subject: capability.Subject{Role: models.RoleGuest, FirstName: name, Email: c.Query("email")},
		Room:    sess.Name,
		Target:  embed.Target{Kind: embed.TargetUniversal, SessionID: sess.ID, Token: sess.Token},
	})
	if err != nil {
		h.logger.Error("build embed failed", zap.Int64("session_id", sess.ID), zap.Error(err))
		response.Internal(c, "failed to build room")
		return
	}
	response.OK(c, opts)
}

func (r SessionRequest) toSession() *models.Session {
	return &models.Session{
		Name:         r.Name,
		Intro:        r.Intro,
		IntroFormat:  r.IntroFormat,
		TimeOpen:     r.TimeOpen,
		TimeClose:    r.TimeClose,
		ValidityTime: r.ValidityTime,
	}
}
