package config

import (
	_ "embed"
	"os"
)

//go:embed sample_config.toml
var sampleConfig string

const (
	defaultDataDir           = "~/.local/share/showsync"
	defaultLogDir            = "~/.local/share/showsync/logs"
	defaultLogLevel          = "info"
	defaultLogFormat         = "console"
	defaultTMDBBaseURL       = "https://api.themoviedb.org/3"
	defaultTMDBLanguage      = "en-US"
	defaultRequestTimeout    = 20
	defaultRequestsPerWindow = 40
	defaultWindowSeconds     = 10
	defaultWorkers           = 1
	defaultFailureSample     = 5
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
		TMDB: TMDB{
			BaseURL:           defaultTMDBBaseURL,
			Language:          defaultTMDBLanguage,
			RequestTimeout:    defaultRequestTimeout,
			RequestsPerWindow: defaultRequestsPerWindow,
			WindowSeconds:     defaultWindowSeconds,
		},
		Sync: Sync{
			Incremental:   true,
			Resume:        true,
			Workers:       defaultWorkers,
			FailureSample: defaultFailureSample,
		},
	}
}

// SampleConfig returns the embedded annotated sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes the annotated sample configuration to path.
func CreateSample(path string) error {
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}
