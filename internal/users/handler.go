// Package users manages platform roles. Registration only ever creates
// students; promotion happens here and requires site moderation.
package users

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/coursemeet/backend/internal/auth"
	"github.com/coursemeet/backend/internal/capability"
	"github.com/coursemeet/backend/internal/middleware"
	"github.com/coursemeet/backend/internal/models"
	"github.com/coursemeet/backend/pkg/response"
)

// RoleUpdater changes a user's role.
type RoleUpdater interface {
	UpdateRole(ctx context.Context, id uuid.UUID, role models.Role) (*models.User, error)
}

// RoleRequest is the body of PUT /users/:id/role.
type RoleRequest struct {
	Role models.Role `json:"role" binding:"required"`
}

// Handler handles user administration endpoints.
type Handler struct {
	users   RoleUpdater
	checker capability.Checker
	logger  *zap.Logger
}

// NewHandler creates a users handler.
func NewHandler(users RoleUpdater, checker capability.Checker, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{users: users, checker: checker, logger: logger}
}

// SetRole handles PUT /users/:id/role. The new role is carried by tokens
// issued after the change, i.e. from the user's next login.
func (h *Handler) SetRole(c *gin.Context) {
	subject, ok := middleware.SubjectFrom(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	if err := capability.Require(c.Request.Context(), h.checker, subject, capability.Moderation, capability.ScopeSystem); err != nil {
		response.Forbidden(c, "insufficient permissions")
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	if id == subject.UserID {
		response.BadRequest(c, "cannot change your own role")
		return
	}
	var req RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !req.Role.Valid() {
		response.BadRequest(c, "invalid role")
		return
	}
	user, err := h.users.UpdateRole(c.Request.Context(), id, req.Role)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			response.NotFound(c, "user not found")
			return
		}
		h.logger.Error("update role failed", zap.String("user_id", id.String()), zap.Error(err))
		response.Internal(c, "failed to update role")
		return
	}
	h.logger.Info("user role changed",
		zap.String("user_id", id.String()),
		zap.String("role", string(req.Role)),
		zap.String("changed_by", subject.UserID.String()))
	response.OK(c, user.ToPublic())
}
