package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Validate(Default()))
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("", "")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "rollcall.yaml", `
listen: "127.0.0.1:8080"
mode: sign_out
storage:
  driver: json
  path: ./data
reader:
  driver: simulated
detector:
  interval: 250ms
  read_attempts: 5
  auto_start: true
sync:
  url: https://example.test/attendance
  token: abc
  interval: 15m
`)
	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.Listen)
	assert.Equal(t, "sign_out", cfg.Mode)
	assert.Equal(t, StorageConfig{Driver: "json", Path: "./data"}, cfg.Storage)
	assert.Equal(t, "simulated", cfg.Reader.Driver)
	assert.Equal(t, 250*time.Millisecond, cfg.Detector.Interval.Duration)
	assert.Equal(t, 5, cfg.Detector.ReadAttempts)
	assert.True(t, cfg.Detector.AutoStart)
	assert.Equal(t, 100*time.Millisecond, cfg.Detector.RetryDelay.Duration, "unset fields keep defaults")
	assert.Equal(t, 15*time.Minute, cfg.Sync.Interval.Duration)
	assert.Equal(t, 10*time.Second, cfg.Sync.Timeout.Duration)
}

func TestLoad_TOML(t *testing.T) {
	path := writeFile(t, "rollcall.toml", `
listen = ":9000"

[storage]
driver = "memory"
path = ""

[detector]
error_backoff = "2s"

[notify]
max_pending = 0
`)
	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, 2*time.Second, cfg.Detector.ErrorBackoff.Duration)
	assert.Equal(t, 0, cfg.Notify.MaxPending)
}

func TestLoad_EmptyYAML(t *testing.T) {
	cfg, err := Load(writeFile(t, "empty.yml", ""), "")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_UnknownField(t *testing.T) {
	_, err := Load(writeFile(t, "bad.yaml", "listne: \":1\"\n"), "")
	assert.Error(t, err)

	_, err = Load(writeFile(t, "bad.toml", "listne = \":1\"\n"), "")
	assert.Error(t, err)
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	_, err := Load(writeFile(t, "rollcall.json", "{}"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported config format")
}

func TestLoad_BadDuration(t *testing.T) {
	_, err := Load(writeFile(t, "bad.yaml", "detector:\n  interval: soon\n"), "")
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ROLLCALL_LISTEN", ":7000")
	t.Setenv("ROLLCALL_STORAGE_DRIVER", "memory")
	t.Setenv("ROLLCALL_DETECTOR_INTERVAL", "1s")
	t.Setenv("ROLLCALL_DETECTOR_AUTO_START", "true")
	t.Setenv("ROLLCALL_NOTIFY_MAX_PENDING", "16")

	path := writeFile(t, "rollcall.yaml", "listen: \":8000\"\n")
	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Listen, "env beats file")
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, time.Second, cfg.Detector.Interval.Duration)
	assert.True(t, cfg.Detector.AutoStart)
	assert.Equal(t, 16, cfg.Notify.MaxPending)
}

func TestLoad_BadEnvValue(t *testing.T) {
	t.Setenv("ROLLCALL_NOTIFY_MAX_PENDING", "lots")
	_, err := Load("", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ROLLCALL_NOTIFY_MAX_PENDING")
}

func TestLoad_Dotenv(t *testing.T) {
	// Registered so t.Setenv restores the variable once godotenv sets it.
	t.Setenv("ROLLCALL_SYNC_TOKEN", "")
	os.Unsetenv("ROLLCALL_SYNC_TOKEN")

	env := writeFile(t, ".env", "ROLLCALL_SYNC_TOKEN=from-dotenv\n")
	cfg, err := Load("", env)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Sync.Token)
}

func TestLoad_MissingDotenvIgnored(t *testing.T) {
	_, err := Load("", filepath.Join(t.TempDir(), ".env"))
	assert.NoError(t, err)
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"storage driver", func(c *Config) { c.Storage.Driver = "postgres" }},
		{"empty sqlite path", func(c *Config) { c.Storage.Path = "" }},
		{"reader driver", func(c *Config) { c.Reader.Driver = "usb" }},
		{"mode", func(c *Config) { c.Mode = "lunch" }},
		{"read attempts", func(c *Config) { c.Detector.ReadAttempts = 0 }},
		{"interval too short", func(c *Config) { c.Detector.Interval = Duration{time.Millisecond} }},
		{"negative max pending", func(c *Config) { c.Notify.MaxPending = -1 }},
		{"sync url scheme", func(c *Config) { c.Sync.URL = "ftp://example.test" }},
		{"listen", func(c *Config) { c.Listen = "localhost" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid config")
		})
	}
}

func TestValidate_MemoryNeedsNoPath(t *testing.T) {
	cfg := Default()
	cfg.Storage = StorageConfig{Driver: "memory"}
	assert.NoError(t, Validate(cfg))
}

func TestDuration_MarshalText(t *testing.T) {
	b, err := Duration{90 * time.Second}.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(b))
}
