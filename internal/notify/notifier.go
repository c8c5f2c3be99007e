// Package notify tells users about activity in their private rooms, live over
// Redis pub/sub and by email through the worker queue.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/coursemeet/backend/internal/capability"
	"github.com/coursemeet/backend/internal/models"
	"github.com/coursemeet/backend/pkg/queue"
)

// Publisher delivers a live event to a user.
type Publisher interface {
	PublishUserEvent(ctx context.Context, userID uuid.UUID, event string, payload []byte) error
}

// Enqueuer schedules the email copy of a notification.
type Enqueuer interface {
	EnqueueNotification(ctx context.Context, payload queue.NotificationPayload) error
}

// Message is the live notification body.
type Message struct {
	Name         string    `json:"name"`
	FromUserID   uuid.UUID `json:"from_user_id"`
	Subject      string    `json:"subject"`
	SmallMessage string    `json:"small_message"`
	BodyHTML     string    `json:"body_html"`
	ContextURL   string    `json:"context_url"`
	At           time.Time `json:"at"`
}

// Notifier sends private room notifications.
type Notifier struct {
	pub       Publisher
	queue     Enqueuer
	publicURL string
	logger    *zap.Logger
	now       func() time.Time
}

// NewNotifier creates a notifier. queue may be nil to disable email copies.
func NewNotifier(pub Publisher, q Enqueuer, publicURL string, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{pub: pub, queue: q, publicURL: publicURL, logger: logger, now: time.Now}
}

// PrivateRoomURL returns the link to a user's private room.
func PrivateRoomURL(publicURL string, ownerID uuid.UUID) string {
	return fmt.Sprintf("%s/users/%s/private-room", publicURL, ownerID)
}

// PrivateSessionEntered tells owner that visitor has entered the owner's room.
func (n *Notifier) PrivateSessionEntered(ctx context.Context, visitor capability.Subject, owner *models.User) error {
	link := PrivateRoomURL(n.publicURL, owner.ID)
	return n.send(ctx, owner, Message{
		Name:         models.EmailTypePrivateSession,
		FromUserID:   visitor.UserID,
		Subject:      visitor.FirstName + " has entered your private session",
		SmallMessage: visitor.DisplayName() + " has entered your private session",
		BodyHTML:     n.body(visitor, "has entered your private session", link),
		ContextURL:   link,
	})
}

// CallPrivateSession invites callee into caller's private room.
func (n *Notifier) CallPrivateSession(ctx context.Context, caller capability.Subject, callee *models.User) error {
	link := PrivateRoomURL(n.publicURL, caller.UserID)
	return n.send(ctx, callee, Message{
		Name:         models.EmailTypeCallPrivateSession,
		FromUserID:   caller.UserID,
		Subject:      caller.FirstName + " is calling you",
		SmallMessage: caller.DisplayName() + " is calling you",
		BodyHTML:     n.body(caller, "is calling you", link),
		ContextURL:   link,
	})
}

func (n *Notifier) body(from capability.Subject, what, link string) string {
	return fmt.Sprintf(`User <a href="%s/users/%s">%s</a> %s. Click <a href="%s">here</a> to enter.`,
		n.publicURL, from.UserID, html.EscapeString(from.DisplayName()), what, link)
}

// send publishes the live event and enqueues the email. A failed publish is
// logged only; the email copy still goes out.
func (n *Notifier) send(ctx context.Context, to *models.User, msg Message) error {
	msg.At = n.now()
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if n.pub != nil {
		if err := n.pub.PublishUserEvent(ctx, to.ID, msg.Name, body); err != nil {
			n.logger.Warn("publish notification failed", zap.String("name", msg.Name), zap.String("user_id", to.ID.String()), zap.Error(err))
		}
	}
	if n.queue == nil || to.Email == "" {
		return nil
	}
	err = n.queue.EnqueueNotification(ctx, queue.NotificationPayload{
		Name:           msg.Name,
		UserID:         to.ID,
		RecipientEmail: to.Email,
		Subject:        msg.Subject,
		BodyHTML:       msg.BodyHTML,
		ContextURL:     msg.ContextURL,
	})
	if err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return nil
}
