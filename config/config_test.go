package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("RECORDING_PROVIDER", "")
	t.Setenv("JITSI_APP_ID", "")
	t.Setenv("JITSI_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ProviderYouTube, cfg.Recording.Provider)
	assert.Equal(t, "meet.jit.si", cfg.Jitsi.Domain)
	assert.False(t, cfg.Jitsi.Authenticated())
	assert.Equal(t, 0, cfg.Jitsi.StreamingOption)
}

func TestLoad_JitsiToggles(t *testing.T) {
	t.Setenv("JITSI_RECORD", "1")
	t.Setenv("JITSI_BLUR_BUTTON", "0")
	t.Setenv("JITSI_STREAMING_OPTION", "1")
	t.Setenv("JITSI_APP_ID", "app")
	t.Setenv("JITSI_SECRET", "secret")
	t.Setenv("PUBLIC_URL", "https://courses.example.com/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Jitsi.Record)
	assert.False(t, cfg.Jitsi.BlurButton)
	assert.Equal(t, 1, cfg.Jitsi.StreamingOption)
	assert.True(t, cfg.Jitsi.Authenticated())
	assert.Equal(t, "https://courses.example.com", cfg.Server.PublicURL)
}

func TestLoad_RejectsUnknownProvider(t *testing.T) {
	t.Setenv("RECORDING_PROVIDER", "dropbox")
	_, err := Load()
	assert.Error(t, err)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	c := DatabaseConfig{User: "u", Password: "p", Host: "h", Port: "5432", DBName: "d", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@h:5432/d?sslmode=disable", c.DSN())

	c.URL = "postgres://elsewhere/db"
	assert.Equal(t, "postgres://elsewhere/db", c.DSN())
}

func TestLoad_ManagerEmails(t *testing.T) {
	t.Setenv("MANAGER_EMAILS", " admin@example.com, ,ops@example.com")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"admin@example.com", "ops@example.com"}, cfg.JWT.ManagerEmails)

	t.Setenv("MANAGER_EMAILS", "")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.JWT.ManagerEmails)
}
