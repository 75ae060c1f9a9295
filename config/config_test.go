package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "ws://localhost:8080", cfg.URL)
	require.Equal(t, 10*time.Second, cfg.CommandTimeout)
	require.Equal(t, 3, cfg.MaxRetries)
	require.Equal(t, 2*time.Second, cfg.RetryDelay)
	require.NoError(t, cfg.Validate())
}

func TestFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pinocchio.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"url: ws://renderer:9000\ncommand_timeout_ms: 500\nmax_retries: 0\n",
	), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "ws://renderer:9000", cfg.URL)
	require.Equal(t, 500*time.Millisecond, cfg.CommandTimeout)
	require.Equal(t, 0, cfg.MaxRetries)
	require.Equal(t, 2*time.Second, cfg.RetryDelay) // untouched
}

func TestEnvWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pinocchio.yaml")
	require.NoError(t, os.WriteFile(path, []byte("url: ws://renderer:9000\n"), 0o644))

	t.Setenv("PINOCCHIO_WS_URL", "wss://renderer.example:443")
	t.Setenv("PINOCCHIO_RETRY_DELAY_MS", "50")
	t.Setenv("PINOCCHIO_MAX_RETRIES", "7")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "wss://renderer.example:443", cfg.URL)
	require.Equal(t, 50*time.Millisecond, cfg.RetryDelay)
	require.Equal(t, 7, cfg.MaxRetries)
}

func TestBadEnvRejected(t *testing.T) {
	t.Setenv("PINOCCHIO_COMMAND_TIMEOUT_MS", "soon")
	_, err := Load("")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()

	cfg.URL = "http://renderer:8080"
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.CommandTimeout = 0
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.MaxRetries = -1
	require.Error(t, cfg.Validate())
}
