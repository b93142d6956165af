package httpserver

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("parses all fields", func(t *testing.T) {
		path := writeConfig(t, `
addr: ":9000"
read_timeout: 5s
write_timeout: 10s
idle_timeout: 2m
shutdown_timeout: 30s
debug: true
trusted_hosts:
  - example.com
  - "*.example.com"
allowed_origins:
  - "https://app.example.com"
`)

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, ":9000", cfg.Addr)
		assert.Equal(t, Duration(5*time.Second), cfg.ReadTimeout)
		assert.Equal(t, Duration(10*time.Second), cfg.WriteTimeout)
		assert.Equal(t, Duration(2*time.Minute), cfg.IdleTimeout)
		assert.Equal(t, Duration(30*time.Second), cfg.ShutdownTimeout)
		assert.True(t, cfg.Debug)
		assert.Equal(t, []string{"example.com", "*.example.com"}, cfg.TrustedHosts)
		assert.Equal(t, []string{"https://app.example.com"}, cfg.AllowedOrigins)
	})

	t.Run("applies defaults for missing fields", func(t *testing.T) {
		cfg, err := LoadConfig(writeConfig(t, `debug: false`))
		require.NoError(t, err)
		assert.Equal(t, ":8080", cfg.Addr)
		assert.Equal(t, Duration(10*time.Second), cfg.ShutdownTimeout)
	})

	t.Run("rejects unknown keys", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, `adress: ":9000"`))
		assert.Error(t, err)
	})

	t.Run("missing file fails", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})
}
