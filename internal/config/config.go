// Package config loads the vesting CLI configuration using Viper.
//
// Configuration is layered: built-in defaults < YAML config file <
// environment variables < command-line flags. Environment variables use the
// VESTING_ prefix (VESTING_DATABASE_PATH overrides database.path).
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/roach88/vesting/internal/ledger"
	"github.com/roach88/vesting/internal/telemetry"
	"github.com/roach88/vesting/internal/vesting"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "VESTING"

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Program  ProgramConfig  `mapstructure:"program"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// DatabaseConfig locates the SQLite ledger.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ProgramConfig identifies the vesting program.
type ProgramConfig struct {
	// ID is the base58 program identity addresses are derived under.
	ID string `mapstructure:"id"`
}

// MetricsConfig controls metrics export.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Textfile is where the exposition is written after each command.
	Textfile string `mapstructure:"textfile"`
}

// ProgramID returns the parsed program identity. Call after Validate.
func (c *Config) ProgramID() ledger.Address {
	id, err := ledger.ParseAddress(c.Program.ID)
	if err != nil {
		return vesting.DefaultProgramID
	}
	return id
}

// keys lists every configuration key so environment variables bind even
// when the key is absent from the config file.
var keys = []string{
	"database.path",
	"logging.level",
	"logging.format",
	"program.id",
	"metrics.enabled",
	"metrics.textfile",
}

// Load reads configuration from configPath (optional), the environment and
// flags. flags may be nil; a flag overrides only when it was set explicitly.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("vesting")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env var %q: %w", key, err)
		}
	}

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// flagKeys maps persistent CLI flags to configuration keys.
var flagKeys = map[string]string{
	"db":         "database.path",
	"log-level":  "logging.level",
	"log-format": "logging.format",
	"program":    "program.id",
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag %q: %w", name, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "vesting.db")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("program.id", vesting.DefaultProgramID.String())
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.textfile", "")
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if _, err := telemetry.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid logging.format: %s (must be text or json)", c.Logging.Format)
	}
	if _, err := ledger.ParseAddress(c.Program.ID); err != nil {
		return fmt.Errorf("program.id: %w", err)
	}
	if c.Metrics.Enabled && c.Metrics.Textfile == "" {
		return fmt.Errorf("metrics.textfile is required when metrics are enabled")
	}
	return nil
}
