package config

import (
	"os"
	"path/filepath"
	"time"
)

// Default values
const (
	DefaultOutputDir = "./models"

	DefaultWorkers    = 4
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
	DefaultUserAgent  = "modelfetch"

	DefaultCacheEnabled = true

	DefaultLogLevel  = "info"
	DefaultLogFormat = "pretty"
)

// ConfigDir returns the config directory path
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".modelfetch"
	}
	return filepath.Join(home, ".modelfetch")
}

// CacheDir returns the cache directory path
func CacheDir() string {
	return filepath.Join(ConfigDir(), "cache")
}

// ConfigFilePath returns the config file path
func ConfigFilePath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Zoo: ZooConfig{
			Directory: ".",
		},
		Output: OutputConfig{
			Directory: DefaultOutputDir,
		},
		Concurrency: ConcurrencyConfig{
			Workers: DefaultWorkers,
		},
		Download: DownloadConfig{
			Timeout:    DefaultTimeout,
			MaxRetries: DefaultMaxRetries,
			UserAgent:  DefaultUserAgent,
			Progress:   true,
		},
		Cache: CacheConfig{
			Enabled:   DefaultCacheEnabled,
			Directory: CacheDir(),
		},
		Converter: ConverterConfig{},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
