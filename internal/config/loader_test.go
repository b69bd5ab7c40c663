package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestHome points HOME at a temp dir and returns the config dir inside it.
func setupTestHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "directoryd")
	require.NoError(t, os.MkdirAll(dir, 0700))
	return dir
}

func writeConfig(t *testing.T, dir, content string, perm os.FileMode) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), perm))
	require.NoError(t, os.Chmod(path, perm))
	return path
}

func TestLoadWithFile_ValidYAML(t *testing.T) {
	dir := setupTestHome(t)
	path := writeConfig(t, dir, `server:
  host: 0.0.0.0
  http_port: 8088
  shutdown_timeout: 3s
source:
  base_url: https://api.example.org/v1
  token: s3cret
  timeout: 2s
  rate_limit: 5
  burst: 2
collections:
  events:
    seed_file: /etc/directoryd/events.yaml
    seed_only: true
  projects:
    priority: [wearables, iot]
    labels:
      iot: Internet of Things
logging:
  level: debug
  format: console
`, 0600)

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8088", cfg.Server.Addr())
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout.Duration())
	assert.Equal(t, "https://api.example.org/v1", cfg.Source.BaseURL)
	assert.Equal(t, "s3cret", cfg.Source.Token.Value())
	assert.Equal(t, 2*time.Second, cfg.Source.Timeout.Duration())
	assert.Equal(t, 5.0, cfg.Source.RateLimit)
	assert.Equal(t, 2, cfg.Source.Burst)

	require.Contains(t, cfg.Collections, "events")
	assert.True(t, cfg.Collections["events"].SeedOnly)
	assert.Equal(t, []string{"wearables", "iot"}, cfg.Collections["projects"].Priority)
	assert.Equal(t, "Internet of Things", cfg.Collections["projects"].Labels["iot"])

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoadWithFile_MissingFileUsesDefaults(t *testing.T) {
	dir := setupTestHome(t)

	cfg, err := LoadWithFile(filepath.Join(dir, "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, "directoryd", cfg.Telemetry.ServiceName)
}

func TestLoadWithFile_DefaultPath(t *testing.T) {
	dir := setupTestHome(t)
	writeConfig(t, dir, "server:\n  http_port: 7000\n", 0600)

	cfg, err := LoadWithFile("")
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
}

func TestLoadWithFile_EnvOverridesFile(t *testing.T) {
	dir := setupTestHome(t)
	path := writeConfig(t, dir, "server:\n  http_port: 8088\nsource:\n  base_url: http://file.local\n", 0600)

	t.Setenv("DIRECTORYD_SERVER_HTTP_PORT", "9999")
	t.Setenv("DIRECTORYD_SOURCE_BASE_URL", "http://env.local/api")
	t.Setenv("DIRECTORYD_SOURCE_TOKEN", "from-env")
	t.Setenv("DIRECTORYD_LOGGING_LEVEL", "warn")

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "http://env.local/api", cfg.Source.BaseURL)
	assert.Equal(t, "from-env", cfg.Source.Token.Value())
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadWithFile_UnprefixedEnvIgnored(t *testing.T) {
	dir := setupTestHome(t)
	t.Setenv("SERVER_HTTP_PORT", "1234")

	cfg, err := LoadWithFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Server.Port)
}

func TestLoadWithFile_InsecurePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission model differs on windows")
	}
	dir := setupTestHome(t)
	path := writeConfig(t, dir, "server:\n  http_port: 8088\n", 0644)

	_, err := LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insecure config file permissions")
}

func TestLoadWithFile_TooLarge(t *testing.T) {
	dir := setupTestHome(t)
	big := "# " + strings.Repeat("x", maxConfigFileSize) + "\n"
	path := writeConfig(t, dir, big, 0600)

	_, err := LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestLoadWithFile_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad port", "server:\n  http_port: 70000\n", "invalid server port"},
		{"bad base url", "source:\n  base_url: not-a-url\n", "base_url"},
		{"bad resource", "collections:\n  members:\n    resource: members\n", "resource must start"},
		{"watch without seed", "collections:\n  events:\n    watch_seed: true\n", "watch_seed requires seed_file"},
		{"negative duration", "server:\n  shutdown_timeout: -5s\n", "negative"},
		{"bad protocol", "telemetry:\n  protocol: udp\n", "telemetry protocol"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := setupTestHome(t)
			path := writeConfig(t, dir, tt.content, 0600)

			_, err := LoadWithFile(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateConfigPath(t *testing.T) {
	dir := setupTestHome(t)

	allowed := []string{
		filepath.Join(dir, "config.yaml"),
		filepath.Join(dir, "sub", "config.yaml"),
		"/etc/directoryd/config.yaml",
	}
	for _, p := range allowed {
		assert.NoError(t, validateConfigPath(p), p)
	}

	rejected := []string{
		"/etc/passwd",
		"/etc/directoryd../passwd",
		filepath.Join(dir, "..", "..", "..", "etc", "passwd"),
		"/tmp/config.yaml",
	}
	for _, p := range rejected {
		assert.Error(t, validateConfigPath(p), p)
	}
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "server.http_port", envKey("DIRECTORYD_SERVER_HTTP_PORT"))
	assert.Equal(t, "source.base_url", envKey("DIRECTORYD_SOURCE_BASE_URL"))
	assert.Equal(t, "debug", envKey("DIRECTORYD_DEBUG"))
}

func TestEnsureConfigDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	require.NoError(t, EnsureConfigDir())

	info, err := os.Stat(filepath.Join(home, ".config", "directoryd"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
