package models

import (
	"time"

	"github.com/google/uuid"
)

// Email types, one per notification kind.
const (
	EmailTypePrivateSession     = "onprivatesession"
	EmailTypeCallPrivateSession = "callprivatesession"
)

// EmailLogStatus for delivery.
const (
	EmailLogStatusSent    = "sent"
	EmailLogStatusFailed  = "failed"
	EmailLogStatusSkipped = "skipped" // no mail server configured
)

// EmailLog records notification emails.
type EmailLog struct {
	ID             int64      `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	EmailType      string     `json:"email_type"`
	RecipientEmail string     `json:"recipient_email"`
	Subject        string     `json:"subject,omitempty"`
	Status         string     `json:"status"`
	Attempt        int        `json:"attempt"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
