// Package config loads rollcall settings from a YAML or TOML file, a .env
// file and ROLLCALL_* environment variables, in that order of precedence
// (later wins), then validates them against a CUE schema.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration written as "500ms", "2h" and so on.
type Duration struct {
	time.Duration
}

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if s == "" || s == "0" {
		d.Duration = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = v
	return nil
}

// MarshalText renders the duration as a Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// UnmarshalYAML decodes a scalar duration.
func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	return d.UnmarshalText([]byte(n.Value))
}

// StorageConfig selects the ledger and registry backend.
type StorageConfig struct {
	Driver string `yaml:"driver" toml:"driver"`
	Path   string `yaml:"path" toml:"path"`
}

// ReaderConfig selects the card reader driver.
type ReaderConfig struct {
	Driver string `yaml:"driver" toml:"driver"`
	Name   string `yaml:"name" toml:"name"`
}

// DetectorConfig tunes the polling loop.
type DetectorConfig struct {
	Interval     Duration `yaml:"interval" toml:"interval"`
	ReadAttempts int      `yaml:"read_attempts" toml:"read_attempts"`
	RetryDelay   Duration `yaml:"retry_delay" toml:"retry_delay"`
	ErrorBackoff Duration `yaml:"error_backoff" toml:"error_backoff"`
	AutoStart    bool     `yaml:"auto_start" toml:"auto_start"`
}

// NotifyConfig bounds the status queue.
type NotifyConfig struct {
	MaxPending int `yaml:"max_pending" toml:"max_pending"`
}

// SyncConfig configures remote replication. An empty URL disables it.
type SyncConfig struct {
	URL      string   `yaml:"url" toml:"url"`
	Token    string   `yaml:"token" toml:"token"`
	Timeout  Duration `yaml:"timeout" toml:"timeout"`
	Interval Duration `yaml:"interval" toml:"interval"`
}

// Config is the full set of settings.
type Config struct {
	Listen   string         `yaml:"listen" toml:"listen"`
	Mode     string         `yaml:"mode" toml:"mode"`
	Storage  StorageConfig  `yaml:"storage" toml:"storage"`
	Reader   ReaderConfig   `yaml:"reader" toml:"reader"`
	Detector DetectorConfig `yaml:"detector" toml:"detector"`
	Notify   NotifyConfig   `yaml:"notify" toml:"notify"`
	Sync     SyncConfig     `yaml:"sync" toml:"sync"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Listen: ":5001",
		Mode:   "sign_in",
		Storage: StorageConfig{
			Driver: "sqlite",
			Path:   "rollcall.db",
		},
		Reader: ReaderConfig{
			Driver: "none",
		},
		Detector: DetectorConfig{
			Interval:     Duration{500 * time.Millisecond},
			ReadAttempts: 3,
			RetryDelay:   Duration{100 * time.Millisecond},
			ErrorBackoff: Duration{time.Second},
		},
		Notify: NotifyConfig{
			MaxPending: 1024,
		},
		Sync: SyncConfig{
			Timeout: Duration{10 * time.Second},
		},
	}
}

// Load builds the configuration. path may be empty, in which case only
// defaults, the .env file and the environment apply. envFile names a dotenv
// file; a missing envFile is not an error.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := loadDotenv(envFile); err != nil {
		return Config{}, err
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(c); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config format %q (want .yaml, .yml or .toml)", ext)
	}
	return nil
}
