package sessionlog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/coursemeet/backend/internal/models"
	"github.com/coursemeet/backend/pkg/database"
)

// AttendeeRow is one user's attendance of a session.
type AttendeeRow struct {
	UserID           uuid.UUID  `json:"user_id"`
	FirstEnter       time.Time  `json:"first_enter"`
	LastParticipated *time.Time `json:"last_participated,omitempty"`
	Minutes          int        `json:"minutes"`
}

// Repository handles session_logs.
type Repository struct {
	db database.DB
}

// NewRepository creates a session log repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

// Log inserts a log entry.
func (r *Repository) Log(ctx context.Context, e *models.LogEntry) error {
	const q = `INSERT INTO session_logs (component, action, session_id, course_id, user_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, time_created`
	return r.db.QueryRow(ctx, q, e.Component, e.Action, e.SessionID, e.CourseID, e.UserID).Scan(&e.ID, &e.TimeCreated)
}

// FirstAt returns the earliest time the user logged action in a session, or nil.
func (r *Repository) FirstAt(ctx context.Context, action string, sessionID, courseID int64, userID uuid.UUID) (*time.Time, error) {
	return r.boundary(ctx, `ASC`, action, sessionID, courseID, userID)
}

// LastAt returns the latest time the user logged action in a session, or nil.
func (r *Repository) LastAt(ctx context.Context, action string, sessionID, courseID int64, userID uuid.UUID) (*time.Time, error) {
	return r.boundary(ctx, `DESC`, action, sessionID, courseID, userID)
}

func (r *Repository) boundary(ctx context.Context, order, action string, sessionID, courseID int64, userID uuid.UUID) (*time.Time, error) {
	q := `SELECT time_created FROM session_logs
		WHERE component = $1 AND action = $2 AND session_id = $3 AND course_id = $4 AND user_id = $5
		ORDER BY time_created ` + order + ` LIMIT 1`
	var t time.Time
	err := r.db.QueryRow(ctx, q, models.LogComponent, action, sessionID, courseID, userID).Scan(&t)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListAttendees returns every user who entered a session with their first
// enter and last participating times.
func (r *Repository) ListAttendees(ctx context.Context, sessionID int64) ([]AttendeeRow, error) {
	const q = `SELECT user_id,
			MIN(time_created) FILTER (WHERE action = $2),
			MAX(time_created) FILTER (WHERE action = $3)
		FROM session_logs
		WHERE component = $1 AND session_id = $4
		GROUP BY user_id
		HAVING COUNT(*) FILTER (WHERE action = $2) > 0
		ORDER BY 2`
	rows, err := r.db.Query(ctx, q, models.LogComponent, models.LogActionEnter, models.LogActionParticipating, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []AttendeeRow
	for rows.Next() {
		var row AttendeeRow
		if err := rows.Scan(&row.UserID, &row.FirstEnter, &row.LastParticipated); err != nil {
			return nil, err
		}
		if row.LastParticipated != nil {
			row.Minutes = Minutes(row.FirstEnter, *row.LastParticipated)
		}
		list = append(list, row)
	}
	return list, rows.Err()
}
