package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for values that would break a run.
// Credential presence is checked separately by commands that need it, so a
// bare `showsync config show` works without an API key.
func (c *Config) Validate() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must not be empty")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must not be empty")
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}

	if c.TMDB.BaseURL == "" {
		return errors.New("tmdb.base_url must not be empty")
	}
	if c.TMDB.RequestTimeout <= 0 {
		return errors.New("tmdb.request_timeout must be positive")
	}
	if c.TMDB.RequestsPerWindow <= 0 || c.TMDB.WindowSeconds <= 0 {
		return errors.New("tmdb rate limit: requests_per_window and window_seconds must be positive")
	}

	if c.Sync.Workers < 1 || c.Sync.Workers > 8 {
		return fmt.Errorf("sync.workers: %d outside supported range 1-8", c.Sync.Workers)
	}
	if c.Sync.FailureSample < 0 {
		return errors.New("sync.failure_sample must not be negative")
	}
	return nil
}

// RequireTMDBKey returns a setup error with remediation guidance when no API
// key is configured. Called by commands that talk to the provider.
func (c *Config) RequireTMDBKey() error {
	if c.TMDB.APIKey == "" {
		return errors.New("tmdb api key missing: set tmdb.api_key in the config file or export TMDB_API_KEY")
	}
	return nil
}
