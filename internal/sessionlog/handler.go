package sessionlog

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/coursemeet/backend/internal/capability"
	"github.com/coursemeet/backend/internal/middleware"
	"github.com/coursemeet/backend/internal/models"
	"github.com/coursemeet/backend/internal/sessions"
	"github.com/coursemeet/backend/pkg/response"
)

// SessionLookup loads the session an event belongs to.
type SessionLookup interface {
	Get(ctx context.Context, id int64) (*models.Session, error)
}

// Handler handles attendance endpoints of a session.
type Handler struct {
	svc      *Service
	sessions SessionLookup
	checker  capability.Checker
	logger   *zap.Logger
}

// NewHandler creates a session log handler.
func NewHandler(svc *Service, sessions SessionLookup, checker capability.Checker, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, sessions: sessions, checker: checker, logger: logger}
}

func (h *Handler) load(c *gin.Context) (*models.Session, capability.Subject, bool) {
	subject, ok := middleware.SubjectFrom(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return nil, subject, false
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid session id")
		return nil, subject, false
	}
	sess, err := h.sessions.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, sessions.ErrNotFound) {
			response.NotFound(c, "session not found")
		} else {
			h.logger.Error("get session failed", zap.Int64("session_id", id), zap.Error(err))
			response.Internal(c, "failed to load session")
		}
		return nil, subject, false
	}
	return sess, subject, true
}

// Participating handles POST /sessions/:id/participating, the heartbeat sent
// while the widget is open.
func (h *Handler) Participating(c *gin.Context) {
	sess, subject, ok := h.load(c)
	if !ok {
		return
	}
	if err := h.svc.Participating(c.Request.Context(), sess.ID, sess.CourseID, subject.UserID); err != nil {
		h.logger.Error("log participating failed", zap.Int64("session_id", sess.ID), zap.Error(err))
		response.Internal(c, "failed to log participation")
		return
	}
	response.NoContent(c)
}

// Minutes handles GET /sessions/:id/minutes. Moderators may ask for another
// user with the user_id query parameter.
func (h *Handler) Minutes(c *gin.Context) {
	sess, subject, ok := h.load(c)
	if !ok {
		return
	}
	userID := subject.UserID
	if q := c.Query("user_id"); q != "" {
		other, err := uuid.Parse(q)
		if err != nil {
			response.BadRequest(c, "invalid user_id")
			return
		}
		if other != subject.UserID && !h.checker.Has(c.Request.Context(), subject, capability.Moderation, capability.ScopeModule) {
			response.Forbidden(c, "insufficient permissions")
			return
		}
		userID = other
	}
	minutes, err := h.svc.MinutesInSession(c.Request.Context(), sess.ID, sess.CourseID, userID)
	if err != nil {
		if errors.Is(err, ErrNoLogs) {
			response.NotFound(c, err.Error())
			return
		}
		h.logger.Error("minutes in session failed", zap.Int64("session_id", sess.ID), zap.Error(err))
		response.Internal(c, "failed to compute minutes")
		return
	}
	response.OK(c, gin.H{"session_id": sess.ID, "user_id": userID, "minutes": minutes})
}

// Attendees handles GET /sessions/:id/attendees.
func (h *Handler) Attendees(c *gin.Context) {
	sess, _, ok := h.load(c)
	if !ok {
		return
	}
	list, err := h.svc.Attendees(c.Request.Context(), sess.ID)
	if err != nil {
		h.logger.Error("list attendees failed", zap.Int64("session_id", sess.ID), zap.Error(err))
		response.Internal(c, "failed to list attendees")
		return
	}
	if list == nil {
		list = []AttendeeRow{}
	}
	response.OK(c, gin.H{"attendees": list})
}
