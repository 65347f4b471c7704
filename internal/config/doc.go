// Package config loads, normalizes, and validates showsync configuration.
//
// Configuration lives in a TOML file (default ~/.config/showsync/config.toml)
// and is merged over compiled defaults. Credentials may also arrive through
// the environment (TMDB_API_KEY), optionally seeded from a .env file.
package config
