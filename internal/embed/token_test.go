package embed

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testParams() TokenParams {
	return TokenParams{
		Moderator:   true,
		Room:        SanitizeRoom("Physics 101: Waves"),
		DisplayName: "Ada King",
		AvatarURL:   "https://cdn.example.com/a.png",
		Email:       "ada@example.com",
		ExpiresAt:   time.Now().Add(TokenLifetime),
	}
}

func TestBuildToken_SignatureRederives(t *testing.T) {
	secret := "s3cret"
	token, err := BuildToken(testParams(), "app-id", "meet.example.com", secret)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	for _, p := range parts {
		assert.NotContains(t, p, "=")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(parts[0] + "." + parts[1]))
	assert.Equal(t, base64.RawURLEncoding.EncodeToString(mac.Sum(nil)), parts[2])
}

func TestBuildToken_HeaderAndPayload(t *testing.T) {
	p := testParams()
	token, err := BuildToken(p, "app-id", "meet.example.com", "s3cret")
	require.NoError(t, err)
	parts := strings.Split(token, ".")

	header, err := base64.RawURLEncoding.DecodeString(parts[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"alg":"HS256","kid":"jitsi/custom_key_name","typ":"JWT"}`, string(header))

	raw, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.Equal(t, "jitsi", payload["aud"])
	assert.Equal(t, "app-id", payload["iss"])
	assert.Equal(t, "meet.example.com", payload["sub"])
	assert.Equal(t, "Physics101Waves", payload["room"])
	assert.Equal(t, true, payload["moderator"])
	assert.Equal(t, float64(p.ExpiresAt.Unix()), payload["exp"])

	user := payload["context"].(map[string]any)["user"].(map[string]any)
	assert.Equal(t, "owner", user["affiliation"])
	assert.Equal(t, "Ada King", user["name"])
	assert.Equal(t, "", user["id"])
}

func TestBuildToken_VerifiesWithJWTParser(t *testing.T) {
	p := testParams()
	p.Moderator = false
	token, err := BuildToken(p, "app-id", "meet.example.com", "s3cret")
	require.NoError(t, err)

	var claims RoomClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return []byte("s3cret"), nil
	}, jwt.WithAudience(Audience), jwt.WithIssuer("app-id"))
	require.NoError(t, err)
	assert.True(t, parsed.Valid)
	assert.Equal(t, AffiliationMember, claims.Context.User.Affiliation)
	assert.False(t, claims.Moderator)

	_, err = jwt.ParseWithClaims(token, &RoomClaims{}, func(*jwt.Token) (interface{}, error) {
		return []byte("other"), nil
	})
	assert.Error(t, err)
}

func TestBuildToken_NoSecret(t *testing.T) {
	_, err := BuildToken(testParams(), "app-id", "meet.example.com", "")
	assert.ErrorIs(t, err, ErrNoSecret)
}
