// Package sessions stores conferencing rooms configured inside courses.
package sessions

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/coursemeet/backend/internal/models"
	"github.com/coursemeet/backend/pkg/queue"
)

// ErrLinkExpired is returned when a guest link is used after its validity time
// or while invitations are disabled.
var ErrLinkExpired = errors.New("invitation link expired")

// tokenBytes is the size of the random session token before hex encoding.
const tokenBytes = 32

// Store is the persistence the service needs.
type Store interface {
	Create(ctx context.Context, s *models.Session) error
	Update(ctx context.Context, s *models.Session) (bool, error)
	Delete(ctx context.Context, id int64) ([]models.RecordingSource, bool, error)
	Get(ctx context.Context, id int64) (*models.Session, error)
	GetByToken(ctx context.Context, token string) (*models.Session, error)
	ListByCourse(ctx context.Context, courseID int64) ([]models.Session, error)
}

// CalendarSync keeps calendar events of a session current.
type CalendarSync interface {
	Sync(ctx context.Context, s *models.Session) error
}

// AssetPurger queues removal of hosted recording assets.
type AssetPurger interface {
	EnqueueAssetDelete(ctx context.Context, payload queue.AssetDeletePayload) error
}

// Service implements the session lifecycle.
type Service struct {
	store    Store
	calendar CalendarSync
	purger   AssetPurger
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a session service.
func NewService(store Store, calendar CalendarSync, purger AssetPurger, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, calendar: calendar, purger: purger, logger: logger, now: time.Now}
}

// NewToken returns 64 hex characters from 32 random bytes.
func NewToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Create stores a new session and returns its ID. The token is generated here
// and never again. A failed calendar sync does not undo the session; the
// events are rewritten by the next update or RefreshEvents.
func (s *Service) Create(ctx context.Context, sess *models.Session) (int64, error) {
	token, err := NewToken()
	if err != nil {
		return 0, err
	}
	now := s.now()
	sess.Token = token
	sess.TimeCreated = now.Unix()
	sess.TimeModified = 0
	sess.LinkExpired = sess.LinkExpiredAt(now)
	if err := s.store.Create(ctx, sess); err != nil {
		return 0, err
	}
	if err := s.calendar.Sync(ctx, sess); err != nil {
		s.logger.Warn("calendar sync failed", zap.Int64("session_id", sess.ID), zap.Error(err))
	}
	s.logger.Info("session created", zap.Int64("session_id", sess.ID), zap.Int64("course_id", sess.CourseID))
	return sess.ID, nil
}

// Update saves the editable fields of sess and reports whether it existed.
func (s *Service) Update(ctx context.Context, sess *models.Session) (bool, error) {
	now := s.now()
	sess.TimeModified = now.Unix()
	sess.LinkExpired = sess.LinkExpiredAt(now)
	ok, err := s.store.Update(ctx, sess)
	if err != nil || !ok {
		return ok, err
	}
	if err := s.calendar.Sync(ctx, sess); err != nil {
		s.logger.Warn("calendar sync failed", zap.Int64("session_id", sess.ID), zap.Error(err))
	}
	return true, nil
}

// Delete removes a session and its recordings, then queues removal of the
// hosted assets no other recording uses.
func (s *Service) Delete(ctx context.Context, id int64) (bool, error) {
	orphans, ok, err := s.store.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	s.logger.Info("session deleted", zap.Int64("session_id", id), zap.Int("orphaned_sources", len(orphans)))
	for _, src := range orphans {
		err := s.purger.EnqueueAssetDelete(ctx, queue.AssetDeletePayload{
			SourceID: src.ID,
			Link:     src.Link,
			Provider: src.Provider,
		})
		if err != nil {
			s.logger.Error("enqueue asset delete", zap.Int64("source_id", src.ID), zap.Error(err))
		}
	}
	return true, nil
}

// Get returns a session by ID.
func (s *Service) Get(ctx context.Context, id int64) (*models.Session, error) {
	return s.store.Get(ctx, id)
}

// GetByToken returns the session a guest link points to.
func (s *Service) GetByToken(ctx context.Context, token string) (*models.Session, error) {
	return s.store.GetByToken(ctx, token)
}

// FindByCourse lists the sessions of a course.
func (s *Service) FindByCourse(ctx context.Context, courseID int64) ([]models.Session, error) {
	return s.store.ListByCourse(ctx, courseID)
}

// RefreshEvents rewrites the calendar events of every session in a course.
func (s *Service) RefreshEvents(ctx context.Context, courseID int64) (int, error) {
	list, err := s.store.ListByCourse(ctx, courseID)
	if err != nil {
		return 0, err
	}
	for i := range list {
		if err := s.calendar.Sync(ctx, &list[i]); err != nil {
			return i, fmt.Errorf("sync calendar for session %d: %w", list[i].ID, err)
		}
	}
	return len(list), nil
}

// InviteCode returns the invitation code of a session.
func InviteCode(sess *models.Session) int64 {
	return sess.TimeCreated + sess.ID
}

// IsOriginal reports whether code was issued for sess.
func IsOriginal(code string, sess *models.Session) bool {
	n, err := strconv.ParseInt(code, 10, 64)
	if err != nil {
		return false
	}
	return n == InviteCode(sess)
}

// ExpiryMessage explains why a guest link cannot be used.
func ExpiryMessage(sess *models.Session, invitesEnabled bool) string {
	if sess.ValidityTime == 0 || !invitesEnabled {
		return "invitations not activated"
	}
	return "link expired on " + time.Unix(sess.ValidityTime, 0).UTC().Format("Monday, 2 January 2006, 15:04 MST")
}

// CheckGuestAccess returns ErrLinkExpired when a guest may not use sess at now.
func CheckGuestAccess(sess *models.Session, invitesEnabled bool, now time.Time) error {
	if !invitesEnabled || sess.LinkExpiredAt(now) {
		return ErrLinkExpired
	}
	return nil
}
