package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Load loads configuration from file, environment, and defaults.
// Uses the global viper instance to pick up CLI flag bindings.
func Load() (*Config, error) {
	v := viper.GetViper()
	return load(v)
}

// LoadWithViper loads configuration on a fresh viper instance
func LoadWithViper() (*Config, *viper.Viper, error) {
	v := viper.New()
	cfg, err := load(v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(ConfigDir())
	v.AddConfigPath(".")

	// Missing config file is fine; defaults and flags apply.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	v.SetEnvPrefix("MODELFETCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("zoo.directory", ".")
	v.SetDefault("output.directory", DefaultOutputDir)
	v.SetDefault("concurrency.workers", DefaultWorkers)
	v.SetDefault("download.timeout", DefaultTimeout)
	v.SetDefault("download.max_retries", DefaultMaxRetries)
	v.SetDefault("download.user_agent", DefaultUserAgent)
	v.SetDefault("download.progress", true)
	v.SetDefault("cache.enabled", DefaultCacheEnabled)
	v.SetDefault("cache.directory", CacheDir())
	v.SetDefault("converter.mo_path", "")
	v.SetDefault("converter.convert_dir", "")
	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.format", DefaultLogFormat)
}
