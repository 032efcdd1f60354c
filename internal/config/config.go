package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. SKYRGA_DB_PATH
const EnvPrefix = "SKYRGA"

// Config holds all runtime configuration parameters
type Config struct {
	DBPath        string `mapstructure:"db_path" yaml:"db_path" validate:"required"`
	MetricsPath   string `mapstructure:"metrics_path" yaml:"metrics_path"`
	RatingPolicy  string `mapstructure:"rating_policy" yaml:"rating_policy" validate:"oneof=max mean latest"`
	LogLevel      string `mapstructure:"log_level" yaml:"log_level" validate:"oneof=trace debug info warn warning error"`
	LogFormat     string `mapstructure:"log_format" yaml:"log_format" validate:"oneof=text json"`
	LogFile       string `mapstructure:"log_file" yaml:"log_file"`
	LogMaxSizeMB  int    `mapstructure:"log_max_size_mb" yaml:"log_max_size_mb" validate:"gte=1"`
	LogMaxBackups int    `mapstructure:"log_max_backups" yaml:"log_max_backups" validate:"gte=0"`
	PageSize      int    `mapstructure:"page_size" yaml:"page_size" validate:"gte=1,lte=500"`
}

var keys = []string{
	"db_path", "metrics_path", "rating_policy", "log_level", "log_format",
	"log_file", "log_max_size_mb", "log_max_backups", "page_size",
}

// LoadConfig reads configuration from path, or from skyrga.{yaml,json} in the
// working directory when path is empty. A missing default file is not an error.
// SKYRGA_* environment variables override file values.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("skyrga")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Apply defaults for missing values
	applyDefaults(&cfg)

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

// YAML renders the configuration in the file format LoadConfig accepts
func (c *Config) YAML() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return out, nil
}

// applyDefaults sets default values for unspecified fields
func applyDefaults(cfg *Config) {
	if cfg.DBPath == "" {
		cfg.DBPath = "skyrga.db"
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "metrics.log"
	}
	if cfg.RatingPolicy == "" {
		cfg.RatingPolicy = "max"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.LogMaxSizeMB == 0 {
		cfg.LogMaxSizeMB = 50
	}
	if cfg.LogMaxBackups == 0 {
		cfg.LogMaxBackups = 3
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = 20
	}
}
