package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ROLLCALL_"

// loadDotenv exports the variables in file into the process environment.
// Variables already set are left alone.
func loadDotenv(file string) error {
	if file == "" {
		return nil
	}
	err := godotenv.Load(file)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Debug("no dotenv file, using process environment", "file", file)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", file, err)
	}
	slog.Debug("dotenv file loaded", "file", file)
	return nil
}

type lookupFunc func(string) (string, bool)

// applyEnv overrides fields from ROLLCALL_* variables.
func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	var errs []error
	dur := func(key string, dst *Duration) {
		if v, ok := lookup(EnvPrefix + key); ok {
			if err := dst.UnmarshalText([]byte(v)); err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
			}
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(EnvPrefix + key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := lookup(EnvPrefix + key); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = b
		}
	}

	str("LISTEN", &c.Listen)
	str("MODE", &c.Mode)
	str("STORAGE_DRIVER", &c.Storage.Driver)
	str("STORAGE_PATH", &c.Storage.Path)
	str("READER_DRIVER", &c.Reader.Driver)
	str("READER_NAME", &c.Reader.Name)
	dur("DETECTOR_INTERVAL", &c.Detector.Interval)
	num("DETECTOR_READ_ATTEMPTS", &c.Detector.ReadAttempts)
	dur("DETECTOR_RETRY_DELAY", &c.Detector.RetryDelay)
	dur("DETECTOR_ERROR_BACKOFF", &c.Detector.ErrorBackoff)
	flag("DETECTOR_AUTO_START", &c.Detector.AutoStart)
	num("NOTIFY_MAX_PENDING", &c.Notify.MaxPending)
	str("SYNC_URL", &c.Sync.URL)
	str("SYNC_TOKEN", &c.Sync.Token)
	dur("SYNC_TIMEOUT", &c.Sync.Timeout)
	dur("SYNC_INTERVAL", &c.Sync.Interval)

	return errors.Join(errs...)
}
