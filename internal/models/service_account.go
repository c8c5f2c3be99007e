package models

import "time"

// AccessTokenLifetime is how long a service account access token stays fresh.
// A token older than this must be refreshed before use.
const AccessTokenLifetime = 3599 * time.Second

// ServiceAccount holds the OAuth credentials used to manage recordings on the
// external recording-storage API. At most one account is in use at a time.
type ServiceAccount struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	ClientAccessToken  string    `json:"-"`
	ClientRefreshToken string    `json:"-"`
	TokenCreated       int64     `json:"token_created"` // unix seconds
	InUse              bool      `json:"in_use"`
	CreatedAt          time.Time `json:"created_at"`
}

// IsStale reports whether the access token is older than AccessTokenLifetime at now.
func (a *ServiceAccount) IsStale(now time.Time) bool {
	return now.Unix()-a.TokenCreated > int64(AccessTokenLifetime/time.Second)
}
