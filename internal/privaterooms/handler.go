// Package privaterooms serves the per-user rooms that live outside any course.
package privaterooms

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/coursemeet/backend/internal/auth"
	"github.com/coursemeet/backend/internal/capability"
	"github.com/coursemeet/backend/internal/embed"
	"github.com/coursemeet/backend/internal/middleware"
	"github.com/coursemeet/backend/internal/models"
	"github.com/coursemeet/backend/pkg/response"
)

// Users loads room owners.
type Users interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Notifier tells users about room activity.
type Notifier interface {
	PrivateSessionEntered(ctx context.Context, visitor capability.Subject, owner *models.User) error
	CallPrivateSession(ctx context.Context, caller capability.Subject, callee *models.User) error
}

// Handler handles private room endpoints.
type Handler struct {
	users    Users
	builder  *embed.Builder
	checker  capability.Checker
	notifier Notifier
	siteName string
	enabled  bool
	logger   *zap.Logger
}

// NewHandler creates a private room handler. With enabled false every
// endpoint answers 404.
func NewHandler(users Users, builder *embed.Builder, checker capability.Checker, notifier Notifier, siteName string, enabled bool, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		users:    users,
		builder:  builder,
		checker:  checker,
		notifier: notifier,
		siteName: siteName,
		enabled:  enabled,
		logger:   logger,
	}
}

func (h *Handler) load(c *gin.Context) (*models.User, capability.Subject, bool) {
	subject, ok := middleware.SubjectFrom(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return nil, subject, false
	}
	if !h.enabled {
		response.NotFound(c, "private sessions are disabled")
		return nil, subject, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return nil, subject, false
	}
	if err := capability.Require(c.Request.Context(), h.checker, subject, capability.View, capability.ScopeSystem); err != nil {
		response.Forbidden(c, "no permission to use private sessions")
		return nil, subject, false
	}
	user, err := h.users.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			response.NotFound(c, "user not found")
		} else {
			h.logger.Error("get user failed", zap.String("user_id", id.String()), zap.Error(err))
			response.Internal(c, "failed to load user")
		}
		return nil, subject, false
	}
	return user, subject, true
}

// Room handles GET /users/:id/private-room. The owner moderates their own
// room; anyone else entering it notifies the owner.
func (h *Handler) Room(c *gin.Context) {
	owner, subject, ok := h.load(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	flags := capability.FlagsFor(ctx, h.checker, subject, capability.ScopeSystem)
	isOwner := owner.ID == subject.UserID
	if isOwner {
		flags.Moderation = true
	}
	opts, err := h.builder.Build(embed.Request{
		Subject: subject,
		Flags:   flags,
		Room:    embed.PrivateRoom(h.siteName, owner.ID),
		Target:  embed.Target{Kind: embed.TargetPrivate, OwnerID: owner.ID},
	})
	if err != nil {
		h.logger.Error("build private room failed", zap.String("owner_id", owner.ID.String()), zap.Error(err))
		response.Internal(c, "failed to build room")
		return
	}
	if !isOwner {
		if err := h.notifier.PrivateSessionEntered(ctx, subject, owner); err != nil {
			h.logger.Warn("notify owner failed", zap.String("owner_id", owner.ID.String()), zap.Error(err))
		}
	}
	response.OK(c, opts)
}

// Call handles POST /users/:id/call, inviting user :id into the caller's room.
func (h *Handler) Call(c *gin.Context) {
	callee, subject, ok := h.load(c)
	if !ok {
		return
	}
	if callee.ID == subject.UserID {
		response.BadRequest(c, "cannot call yourself")
		return
	}
	if err := h.notifier.CallPrivateSession(c.Request.Context(), subject, callee); err != nil {
		h.logger.Error("call notification failed", zap.String("callee_id", callee.ID.String()), zap.Error(err))
		response.Internal(c, "failed to send call")
		return
	}
	response.Accepted(c, gin.H{"callee_id": callee.ID})
}
