package notify

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/coursemeet/backend/internal/middleware"
	"github.com/coursemeet/backend/pkg/response"
)

const (
	keepAliveInterval = 25 * time.Second
	streamBuffer      = 16
)

// Subscriber delivers a user's live events.
type Subscriber interface {
	SubscribeUser(ctx context.Context, userID uuid.UUID, handler func(event string, payload []byte)) (func(), error)
}

type event struct {
	name    string
	payload []byte
}

// Handler streams notifications to connected users.
type Handler struct {
	sub    Subscriber
	logger *zap.Logger
}

// NewHandler creates a notification stream handler.
func NewHandler(sub Subscriber, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{sub: sub, logger: logger}
}

// Stream handles GET /notifications/stream as server-sent events.
func (h *Handler) Stream(c *gin.Context) {
	subject, ok := middleware.SubjectFrom(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	ctx := c.Request.Context()
	events := make(chan event, streamBuffer)
	cancel, err := h.sub.SubscribeUser(ctx, subject.UserID, func(name string, payload []byte) {
		select {
		case events <- event{name: name, payload: payload}:
		default:
			h.logger.Warn("notification stream full, dropping event", zap.String("user_id", subject.UserID.String()), zap.String("event", name))
		}
	})
	if err != nil {
		h.logger.Error("subscribe notifications failed", zap.String("user_id", subject.UserID.String()), zap.Error(err))
		response.ServiceUnavailable(c, "notifications unavailable")
		return
	}
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()
	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev := <-events:
			c.SSEvent(ev.name, json.RawMessage(ev.payload))
			return true
		case t := <-ticker.C:
			c.SSEvent("ping", t.Unix())
			return true
		}
	})
}
