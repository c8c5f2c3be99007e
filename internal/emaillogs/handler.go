package emaillogs

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/coursemeet/backend/internal/capability"
	"github.com/coursemeet/backend/internal/middleware"
	"github.com/coursemeet/backend/internal/models"
	"github.com/coursemeet/backend/pkg/response"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// Lister reads email logs.
type Lister interface {
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.EmailLog, error)
}

// Handler handles email log HTTP endpoints.
type Handler struct {
	logs    Lister
	checker capability.Checker
	logger  *zap.Logger
}

// NewHandler creates an email logs handler.
func NewHandler(logs Lister, checker capability.Checker, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{logs: logs, checker: checker, logger: logger}
}

// ListByUser handles GET /users/:id/email-logs. Users see their own log;
// site moderators see anyone's.
func (h *Handler) ListByUser(c *gin.Context) {
	subject, ok := middleware.SubjectFrom(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	if userID != subject.UserID && !h.checker.Has(c.Request.Context(), subject, capability.Moderation, capability.ScopeSystem) {
		response.Forbidden(c, "insufficient permissions")
		return
	}
	limit := defaultLimit
	if q := c.Query("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n <= 0 {
			response.BadRequest(c, "invalid limit")
			return
		}
		limit = min(n, maxLimit)
	}
	logs, err := h.logs.ListByUser(c.Request.Context(), userID, limit)
	if err != nil {
		h.logger.Error("list email logs failed", zap.String("user_id", userID.String()), zap.Error(err))
		response.Internal(c, "failed to load email logs")
		return
	}
	if logs == nil {
		logs = []*models.EmailLog{}
	}
	response.OK(c, gin.H{"email_logs": logs})
}
