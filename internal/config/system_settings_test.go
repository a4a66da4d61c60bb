package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettings_Defaults(t *testing.T) {
	assert.Equal(t, DATABASE_TYPE_MEMORY, GetSystemSettingString(DATABASE_TYPE))
	assert.Equal(t, 8080, GetSystemSettingInteger(ENGINE_SERVER_WEB_PORT))
	assert.Equal(t, 5*time.Minute, GetSystemSettingDuration(DEFINITION_CACHE_TTL))
	assert.False(t, GetSystemSettingBool(TRACING_ENABLED))
}

func TestSettings_EnvironmentOverrides(t *testing.T) {
	t.Setenv(DATABASE_TYPE, " SQLLITE ")
	t.Setenv(TRACING_ENABLED, "true")

	assert.Equal(t, DATABASE_TYPE_SQLLITE, GetSystemSettingString(DATABASE_TYPE))
	assert.True(t, GetSystemSettingBool(TRACING_ENABLED))
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("GSTATE_LOG_LEVEL: debug\n"), 0o600))

	require.NoError(t, LoadConfigFile(path))
	assert.Equal(t, "debug", GetSystemSettingString(LOG_LEVEL))
}
