package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, []string{"*"}, cfg.Origins())
	assert.Equal(t, time.Hour, cfg.CleanupInterval)
	assert.Equal(t, 25*time.Second, cfg.PingInterval)
	assert.Equal(t, 60*time.Second, cfg.PongTimeout)
	assert.Equal(t, int64(1000000), cfg.MaxMessageBytes)
	assert.Equal(t, "presence.events", cfg.AMQPExchange)
	assert.Equal(t, ":3000", cfg.Addr())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("CORS_ORIGIN", "https://a.example, https://b.example")
	t.Setenv("CLEANUP_INTERVAL", "30m")
	t.Setenv("DEBUG_ROUTES", "true")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Origins())
	assert.Equal(t, 30*time.Minute, cfg.CleanupInterval)
	assert.True(t, cfg.DebugRoutes)
}

func TestLoadReadsDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SERVICE_NAME=relay-from-file\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("SERVICE_NAME") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "relay-from-file", cfg.ServiceName)
}

func TestLoadRejectsInvalidPort(t *testing.T) {
	for _, port := range []string{"0", "70000", "abc"} {
		t.Run(port, func(t *testing.T) {
			t.Setenv("PORT", port)
			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			assert.Error(t, err)
		})
	}
}

func TestValidateHeartbeat(t *testing.T) {
	cfg := Config{Port: 1, CleanupInterval: time.Hour, PingInterval: time.Minute, PongTimeout: time.Second, MaxMessageBytes: 1, SendBuffer: 1}
	assert.ErrorContains(t, cfg.Validate(), "PONG_TIMEOUT")
}
