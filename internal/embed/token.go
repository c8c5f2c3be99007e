// Package embed builds the signed room token and the options object handed to
// the external conferencing widget.
package embed

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// KeyID is the key identifier the widget's token verifier expects.
	KeyID = "jitsi/custom_key_name"
	// Audience is the fixed token audience.
	Audience = "jitsi"
	// TokenLifetime is how long a room token stays valid.
	TokenLifetime = 24 * time.Hour

	AffiliationOwner  = "owner"
	AffiliationMember = "member"
)

// ErrNoSecret is returned when a token is requested without a signing secret.
var ErrNoSecret = errors.New("signing secret not configured")

// TokenParams describes the participant a room token is issued for.
type TokenParams struct {
	Moderator   bool
	Room        string // already sanitised room name
	DisplayName string
	AvatarURL   string
	Email       string
	ExpiresAt   time.Time
}

// UserClaims is the participant block of the token context.
type UserClaims struct {
	Affiliation string `json:"affiliation"`
	Avatar      string `json:"avatar"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	ID          string `json:"id"`
}

// ContextClaims wraps the participant and group.
type ContextClaims struct {
	User  UserClaims `json:"user"`
	Group string     `json:"group"`
}

// RoomClaims is the token payload. Field order matches what the widget emits
// and verifies; aud is a plain string rather than an array.
type RoomClaims struct {
	Context   ContextClaims `json:"context"`
	Audience  string        `json:"aud"`
	Issuer    string        `json:"iss"`
	Subject   string        `json:"sub"`
	Room      string        `json:"room"`
	Expiry    int64         `json:"exp"`
	Moderator bool          `json:"moderator"`
}

func (c RoomClaims) GetExpirationTime() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.Expiry, 0)), nil
}
func (c RoomClaims) GetIssuedAt() (*jwt.NumericDate, error)  { return nil, nil }
func (c RoomClaims) GetNotBefore() (*jwt.NumericDate, error) { return nil, nil }
func (c RoomClaims) GetIssuer() (string, error)              { return c.Issuer, nil }
func (c RoomClaims) GetSubject() (string, error)             { return c.Subject, nil }
func (c RoomClaims) GetAudience() (jwt.ClaimStrings, error) {
	return jwt.ClaimStrings{c.Audience}, nil
}

// BuildToken signs a room token for p. The issuer is the application id and the
// subject is the conferencing domain.
func BuildToken(p TokenParams, appID, domain, secret string) (string, error) {
	if secret == "" {
		return "", ErrNoSecret
	}
	affiliation := AffiliationMember
	if p.Moderator {
		affiliation = AffiliationOwner
	}
	claims := RoomClaims{
		Context: ContextClaims{
			User: UserClaims{
				Affiliation: affiliation,
				Avatar:      p.AvatarURL,
				Name:        p.DisplayName,
				Email:       p.Email,
			},
		},
		Audience:  Audience,
		Issuer:    appID,
		Subject:   domain,
		Room:      p.Room,
		Expiry:    p.ExpiresAt.Unix(),
		Moderator: p.Moderator,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = KeyID
	return token.SignedString([]byte(secret))
}
