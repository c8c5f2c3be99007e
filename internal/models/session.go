package models

import "time"

// Intro formats, mirroring the editor format stored alongside the intro text.
const (
	IntroFormatMoodle   = 0
	IntroFormatHTML     = 1
	IntroFormatPlain    = 2
	IntroFormatMarkdown = 4
)

// Session is one embedded conferencing room configured inside a course.
type Session struct {
	ID           int64     `json:"id"`
	CourseID     int64     `json:"course_id"`
	Name         string    `json:"name"`
	Intro        string    `json:"intro"`
	IntroFormat  int       `json:"intro_format"`
	TimeOpen     int64     `json:"time_open"`     // unix seconds, 0 = always open
	TimeClose    int64     `json:"time_close"`    // unix seconds, 0 = never closes
	ValidityTime int64     `json:"validity_time"` // unix seconds, guest links expire after this
	Token        string    `json:"-"`
	LinkExpired  bool      `json:"link_expired"`
	TimeCreated  int64     `json:"time_created"`
	TimeModified int64     `json:"time_modified"`
	CreatedAt    time.Time `json:"created_at"`
}

// LinkExpiredAt reports whether guest links are no longer valid at now.
func (s *Session) LinkExpiredAt(now time.Time) bool {
	return now.Unix() > s.ValidityTime
}
