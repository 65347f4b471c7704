package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Logging contains log output configuration.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// TMDB contains configuration for The Movie Database API.
type TMDB struct {
	APIKey            string `toml:"api_key"`
	BaseURL           string `toml:"base_url"`
	Language          string `toml:"language"`
	RequestTimeout    int    `toml:"request_timeout"`
	RequestsPerWindow int    `toml:"requests_per_window"`
	WindowSeconds     int    `toml:"window_seconds"`
}

// Sync contains defaults for synchronization runs.
type Sync struct {
	Incremental      bool `toml:"incremental"`
	Resume           bool `toml:"resume"`
	CheckSeasonCount bool `toml:"check_season_count"`
	Workers          int  `toml:"workers"`
	FailureSample    int  `toml:"failure_sample"`
}

// Config is the root showsync configuration.
type Config struct {
	Paths   Paths   `toml:"paths"`
	Logging Logging `toml:"logging"`
	TMDB    TMDB    `toml:"tmdb"`
	Sync    Sync    `toml:"sync"`
}

// DefaultConfigPath returns the conventional config file location.
func DefaultConfigPath() (string, error) {
	return ExpandPath("~/.config/showsync/config.toml")
}

// Load reads configuration from path (or the default location when path is
// empty), merges it over defaults, normalizes, and validates. The resolved
// config file path is returned alongside the config; a missing file is not an
// error and yields pure defaults.
func Load(path string) (*Config, string, error) {
	// Best effort: local .env files seed credentials during development.
	_ = godotenv.Load()

	resolved := strings.TrimSpace(path)
	explicit := resolved != ""
	if !explicit {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return nil, "", err
		}
		resolved = defaultPath
	} else {
		expanded, err := ExpandPath(resolved)
		if err != nil {
			return nil, "", err
		}
		resolved = expanded
	}

	cfg := Default()
	data, err := os.ReadFile(resolved)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, resolved, fmt.Errorf("parse config %s: %w", resolved, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		if explicit {
			return nil, resolved, fmt.Errorf("config file %s not found", resolved)
		}
	default:
		return nil, resolved, fmt.Errorf("read config %s: %w", resolved, err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, resolved, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, resolved, err
	}
	return &cfg, resolved, nil
}

func (c *Config) normalize() error {
	c.TMDB.APIKey = strings.TrimSpace(c.TMDB.APIKey)
	if c.TMDB.APIKey == "" {
		c.TMDB.APIKey = strings.TrimSpace(os.Getenv("TMDB_API_KEY"))
	}
	c.TMDB.BaseURL = strings.TrimRight(strings.TrimSpace(c.TMDB.BaseURL), "/")
	c.TMDB.Language = strings.TrimSpace(c.TMDB.Language)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))

	for _, dir := range []*string{&c.Paths.DataDir, &c.Paths.LogDir} {
		expanded, err := ExpandPath(*dir)
		if err != nil {
			return err
		}
		*dir = expanded
	}
	return nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure directory %s: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the catalog database location under the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "showsync.db")
}

// LockPath returns the run-lock file location under the data directory.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "showsync.lock")
}

// ExpandPath resolves a leading ~ to the user home directory and cleans the
// result.
func ExpandPath(pathValue string) (string, error) {
	trimmed := strings.TrimSpace(pathValue)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Clean(trimmed), nil
}
