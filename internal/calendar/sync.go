package calendar

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/coursemeet/backend/internal/models"
)

// Store is the persistence Sync needs.
type Store interface {
	Upsert(ctx context.Context, ev *models.CalendarEvent) error
	Delete(ctx context.Context, sessionID int64, eventType string) error
}

// Syncer writes open and close events for sessions.
type Syncer struct {
	store  Store
	logger *zap.Logger
}

// NewSyncer creates a calendar syncer.
func NewSyncer(store Store, logger *zap.Logger) *Syncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Syncer{store: store, logger: logger}
}

// Sync upserts an event for each non-zero open or close time of s and removes
// events whose time was cleared.
func (s *Syncer) Sync(ctx context.Context, sess *models.Session) error {
	events := []struct {
		kind   string
		at     int64
		suffix string
	}{
		{models.EventTypeOpen, sess.TimeOpen, " opens"},
		{models.EventTypeClose, sess.TimeClose, " closes"},
	}
	for _, e := range events {
		if e.at == 0 {
			if err := s.store.Delete(ctx, sess.ID, e.kind); err != nil {
				return err
			}
			continue
		}
		ev := &models.CalendarEvent{
			SessionID: sess.ID,
			CourseID:  sess.CourseID,
			EventType: e.kind,
			Name:      sess.Name + e.suffix,
			TimeStart: time.Unix(e.at, 0).UTC(),
		}
		if err := s.store.Upsert(ctx, ev); err != nil {
			return err
		}
	}
	s.logger.Debug("calendar synced", zap.Int64("session_id", sess.ID))
	return nil
}
