// Package config loads composer configuration from config.toml with
// environment overrides (LMC_*).
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"lmc/internal/paths"
)

// Config represents the composer configuration.
type Config struct {
	// Repository is the default repository target modules are cloned into.
	Repository string `mapstructure:"repository"`

	Logging LoggingConfig `mapstructure:"logging"`
	Commit  CommitConfig  `mapstructure:"commit"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// CommitConfig contains commit behavior configuration.
type CommitConfig struct {
	// RequireReason refuses commits without a --reason.
	RequireReason bool `mapstructure:"require_reason"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "warn", Format: "human"},
	}
}

// Load reads config.toml from the composer home, applying defaults and
// environment overrides. A missing file is not an error.
func Load() (*Config, error) {
	path, err := paths.ConfigPath()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.SetEnvPrefix("LMC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("repository", "")
	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "human")
	v.SetDefault("logging.file", "")
	v.SetDefault("commit.require_reason", false)

	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// No config file; defaults and environment apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
