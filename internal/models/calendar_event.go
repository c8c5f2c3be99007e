package models

import "time"

// Calendar event types attached to a session.
const (
	EventTypeOpen  = "open"
	EventTypeClose = "close"
)

// CalendarEvent is a course calendar entry for a session opening or closing.
type CalendarEvent struct {
	ID        int64     `json:"id"`
	SessionID int64     `json:"session_id"`
	CourseID  int64     `json:"course_id"`
	EventType string    `json:"event_type"`
	Name      string    `json:"name"`
	TimeStart time.Time `json:"time_start"`
}
