package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationNames_Sorted(t *testing.T) {
	names, err := migrationNames()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "001_schema.sql", names[0])
	for _, n := range names {
		assert.True(t, strings.HasSuffix(n, ".sql"))
	}
}

func TestSchema_RecordingsCascadeWithSession(t *testing.T) {
	raw, err := migrationsFS.ReadFile("migrations/001_schema.sql")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "session_id BIGINT NOT NULL REFERENCES sessions (id) ON DELETE CASCADE")
}

func TestSchema_OneSourcePerHostedAsset(t *testing.T) {
	raw, err := migrationsFS.ReadFile("migrations/003_recording_source_link.sql")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "CREATE UNIQUE INDEX IF NOT EXISTS idx_recording_sources_provider_link ON recording_sources (provider, link)")
}
