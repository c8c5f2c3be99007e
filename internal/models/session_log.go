package models

import (
	"time"

	"github.com/google/uuid"
)

// Log component and actions recorded for conferencing sessions.
const (
	LogComponent           = "mod_jitsi"
	LogActionEnter         = "enter"
	LogActionParticipating = "participating"
)

// LogEntry is one event of a user inside a session.
type LogEntry struct {
	ID          int64     `json:"id"`
	Component   string    `json:"component"`
	Action      string    `json:"action"`
	SessionID   int64     `json:"session_id"`
	CourseID    int64     `json:"course_id"`
	UserID      uuid.UUID `json:"user_id"`
	TimeCreated time.Time `json:"time_created"`
}
