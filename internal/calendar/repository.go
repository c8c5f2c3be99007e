// Package calendar keeps course calendar entries in step with session open and close times.
package calendar

import (
	"context"
	"fmt"

	"github.com/coursemeet/backend/internal/models"
	"github.com/coursemeet/backend/pkg/database"
)

// Repository handles calendar event persistence.
type Repository struct {
	db database.DB
}

// NewRepository creates a calendar repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

// Upsert inserts or replaces the event of the same session and type.
func (r *Repository) Upsert(ctx context.Context, ev *models.CalendarEvent) error {
	const q = `INSERT INTO calendar_events (session_id, course_id, event_type, name, time_start)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_id, event_type) DO UPDATE
		SET course_id = EXCLUDED.course_id, name = EXCLUDED.name, time_start = EXCLUDED.time_start
		RETURNING id`
	if err := r.db.QueryRow(ctx, q, ev.SessionID, ev.CourseID, ev.EventType, ev.Name, ev.TimeStart).Scan(&ev.ID); err != nil {
		return fmt.Errorf("upsert calendar event: %w", err)
	}
	return nil
}

// Delete removes the event of a session and type, if any.
func (r *Repository) Delete(ctx context.Context, sessionID int64, eventType string) error {
	const q = `DELETE FROM calendar_events WHERE session_id = $1 AND event_type = $2`
	_, err := r.db.Exec(ctx, q, sessionID, eventType)
	return err
}

// ListByCourse returns the events of a course ordered by start time.
func (r *Repository) ListByCourse(ctx context.Context, courseID int64) ([]models.CalendarEvent, error) {
	const q = `SELECT id, session_id, course_id, event_type, name, time_start
		FROM calendar_events WHERE course_id = $1 ORDER BY time_start`
	rows, err := r.db.Query(ctx, q, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.CalendarEvent
	for rows.Next() {
		var ev models.CalendarEvent
		if err := rows.Scan(&ev.ID, &ev.SessionID, &ev.CourseID, &ev.EventType, &ev.Name, &ev.TimeStart); err != nil {
			return nil, err
		}
		list = append(list, ev)
	}
	return list, rows.Err()
}
