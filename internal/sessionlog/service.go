// Package sessionlog records attendance events and derives time spent in sessions.
package sessionlog

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/coursemeet/backend/internal/models"
)

// ErrNoLogs is returned when a user has no enter or no participating event in a session.
var ErrNoLogs = errors.New("no attendance logged")

// Store is the persistence the service needs.
type Store interface {
	Log(ctx context.Context, e *models.LogEntry) error
	FirstAt(ctx context.Context, action string, sessionID, courseID int64, userID uuid.UUID) (*time.Time, error)
	LastAt(ctx context.Context, action string, sessionID, courseID int64, userID uuid.UUID) (*time.Time, error)
	ListAttendees(ctx context.Context, sessionID int64) ([]AttendeeRow, error)
}

// Service records and reads attendance.
type Service struct {
	store  Store
	logger *zap.Logger
}

// NewService creates a session log service.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// Minutes returns the whole minutes between enter and participating, rounded
// to the nearest minute.
func Minutes(enter, participating time.Time) int {
	return int(math.Round(participating.Sub(enter).Seconds() / 60))
}

func (s *Service) log(ctx context.Context, action string, sessionID, courseID int64, userID uuid.UUID) error {
	e := &models.LogEntry{
		Component: models.LogComponent,
		Action:    action,
		SessionID: sessionID,
		CourseID:  courseID,
		UserID:    userID,
	}
	if err := s.store.Log(ctx, e); err != nil {
		return fmt.Errorf("log %s: %w", action, err)
	}
	return nil
}

// Enter records that a user opened a session.
func (s *Service) Enter(ctx context.Context, sessionID, courseID int64, userID uuid.UUID) error {
	return s.log(ctx, models.LogActionEnter, sessionID, courseID, userID)
}

// Participating records a heartbeat from a user inside a session.
func (s *Service) Participating(ctx context.Context, sessionID, courseID int64, userID uuid.UUID) error {
	return s.log(ctx, models.LogActionParticipating, sessionID, courseID, userID)
}

// MinutesInSession returns the minutes between the user's earliest enter and
// latest participating event in a session.
func (s *Service) MinutesInSession(ctx context.Context, sessionID, courseID int64, userID uuid.UUID) (int, error) {
	enter, err := s.store.FirstAt(ctx, models.LogActionEnter, sessionID, courseID, userID)
	if err != nil {
		return 0, err
	}
	last, err := s.store.LastAt(ctx, models.LogActionParticipating, sessionID, courseID, userID)
	if err != nil {
		return 0, err
	}
	if enter == nil || last == nil {
		return 0, ErrNoLogs
	}
	return Minutes(*enter, *last), nil
}

// Attendees lists the users who entered a session.
func (s *Service) Attendees(ctx context.Context, sessionID int64) ([]AttendeeRow, error) {
	return s.store.ListAttendees(ctx, sessionID)
}
