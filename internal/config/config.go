package config

import (
	"time"
)

// Config represents the application configuration
type Config struct {
	Zoo         ZooConfig         `mapstructure:"zoo" yaml:"zoo"`
	Output      OutputConfig      `mapstructure:"output" yaml:"output"`
	Concurrency ConcurrencyConfig `mapstructure:"concurrency" yaml:"concurrency"`
	Download    DownloadConfig    `mapstructure:"download" yaml:"download"`
	Cache       CacheConfig       `mapstructure:"cache" yaml:"cache"`
	Converter   ConverterConfig   `mapstructure:"converter" yaml:"converter"`
	Logging     LoggingConfig     `mapstructure:"logging" yaml:"logging"`
}

// ZooConfig locates the manifest tree
type ZooConfig struct {
	Directory string `mapstructure:"directory" yaml:"directory"`
}

// OutputConfig contains output-related settings
type OutputConfig struct {
	Directory string `mapstructure:"directory" yaml:"directory"`
}

// ConcurrencyConfig contains concurrency settings
type ConcurrencyConfig struct {
	Workers int `mapstructure:"workers" yaml:"workers"`
}

// DownloadConfig contains fetcher settings
type DownloadConfig struct {
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxRetries int           `mapstructure:"max_retries" yaml:"max_retries"`
	UserAgent  string        `mapstructure:"user_agent" yaml:"user_agent"`
	Progress   bool          `mapstructure:"progress" yaml:"progress"`
}

// CacheConfig contains verification-cache settings
type CacheConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Directory string `mapstructure:"directory" yaml:"directory"`
}

// ConverterConfig contains model optimizer settings
type ConverterConfig struct {
	MOPath     string `mapstructure:"mo_path" yaml:"mo_path"`
	ConvertDir string `mapstructure:"convert_dir" yaml:"convert_dir"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Validate validates the configuration, replacing out-of-range values with
// defaults.
func (c *Config) Validate() error {
	if c.Concurrency.Workers < 1 {
		c.Concurrency.Workers = DefaultWorkers
	}
	if c.Download.Timeout < time.Second {
		c.Download.Timeout = DefaultTimeout
	}
	if c.Download.MaxRetries < 0 {
		c.Download.MaxRetries = DefaultMaxRetries
	}
	if c.Download.UserAgent == "" {
		c.Download.UserAgent = DefaultUserAgent
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
	if c.Output.Directory == "" {
		c.Output.Directory = DefaultOutputDir
	}
	if c.Cache.Directory == "" {
		c.Cache.Directory = CacheDir()
	}
	return nil
}
