package accounts

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/coursemeet/backend/internal/capability"
	"github.com/coursemeet/backend/internal/middleware"
	"github.com/coursemeet/backend/internal/models"
	"github.com/coursemeet/backend/pkg/response"
)

// CreateRequest is the body of POST /accounts.
type CreateRequest struct {
	Name         string `json:"name" binding:"required"`
	RefreshToken string `json:"refresh_token" binding:"required"`
	InUse        bool   `json:"in_use"`
}

// Handler handles service account administration. Every endpoint requires
// site moderation.
type Handler struct {
	svc     *Service
	checker capability.Checker
	logger  *zap.Logger
}

// NewHandler creates a service account handler.
func NewHandler(svc *Service, checker capability.Checker, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, checker: checker, logger: logger}
}

func (h *Handler) allowed(c *gin.Context) bool {
	subject, ok := middleware.SubjectFrom(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return false
	}
	if err := capability.Require(c.Request.Context(), h.checker, subject, capability.Moderation, capability.ScopeSystem); err != nil {
		response.Forbidden(c, "insufficient permissions")
		return false
	}
	return true
}

// List handles GET /accounts.
func (h *Handler) List(c *gin.Context) {
	if !h.allowed(c) {
		return
	}
	list, err := h.svc.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list service accounts failed", zap.Error(err))
		response.Internal(c, "failed to list accounts")
		return
	}
	if list == nil {
		list = []models.ServiceAccount{}
	}
	response.OK(c, list)
}

// Create handles POST /accounts.
func (h *Handler) Create(c *gin.Context) {
	if !h.allowed(c) {
		return
	}
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	acc, err := h.svc.Create(c.Request.Context(), req.Name, req.RefreshToken, req.InUse)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			response.BadRequest(c, ErrInvalidCredentials.Error())
			return
		}
		h.logger.Error("create service account failed", zap.Error(err))
		response.Internal(c, "failed to create account")
		return
	}
	response.Created(c, acc)
}

// SetInUse handles PUT /accounts/:id/in-use.
func (h *Handler) SetInUse(c *gin.Context) {
	if !h.allowed(c) {
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid id")
		return
	}
	acc, err := h.svc.SetInUse(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNoAccount) {
			response.NotFound(c, "account not found")
			return
		}
		h.logger.Error("set service account in use failed", zap.Int64("account_id", id), zap.Error(err))
		response.Internal(c, "failed to update account")
		return
	}
	response.OK(c, acc)
}
