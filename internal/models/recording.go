package models

import "time"

// Deletion states of a recording.
const (
	RecordingActive    = 0
	RecordingMarked    = 1
	RecordingConfirmed = 2
)

// Recording is a capture of a session. Several recordings may point to the
// same externally hosted asset through SourceID.
type Recording struct {
	ID        int64     `json:"id"`
	SessionID int64     `json:"session_id"`
	SourceID  int64     `json:"source_id"`
	Name      string    `json:"name"`
	Link      string    `json:"link,omitempty"`
	Deleted   int       `json:"deleted"`
	CreatedAt time.Time `json:"created_at"`
}

// Active reports whether the recording has not been marked for deletion.
func (r *Recording) Active() bool {
	return r.Deleted == RecordingActive
}

// RecordingSource references an externally hosted recording asset.
type RecordingSource struct {
	ID          int64     `json:"id"`
	Link        string    `json:"link"`     // provider asset id (YouTube video id or S3 key)
	Provider    string    `json:"provider"` // youtube or s3
	AccountID   *int64    `json:"account_id,omitempty"`
	TimeCreated time.Time `json:"time_created"`
}
