// Package config provides configuration loading and validation for rbcheck.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Sentinel validation errors.
var (
	ErrInvalidOps         = errors.New("operation count must be positive")
	ErrInvalidKeys        = errors.New("key space must be positive")
	ErrInvalidVerifyEvery = errors.New("verify interval must not be negative")
	ErrInvalidNodeLimit   = errors.New("node limit must not be negative")
	ErrInvalidFormat      = errors.New("unsupported report format")
	ErrInvalidLogLevel    = errors.New("unsupported log level")
	ErrInvalidLogFormat   = errors.New("unsupported log format")
)

// Report formats.
const (
	FormatTable = "table"
	FormatYAML  = "yaml"
)

// Default configuration values.
const (
	DefaultOps         = 100_000
	DefaultKeys        = 10_000
	DefaultSeed        = 1
	DefaultVerifyEvery = 1_000
	DefaultFormat      = FormatTable
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
	DefaultServiceName = "rbcheck"
	DefaultTimeout     = 10 * time.Minute

	envPrefix = "RBCHECK"
)

// Config holds all configuration for rbcheck.
type Config struct {
	Stress    StressConfig    `mapstructure:"stress"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// StressConfig drives the randomized workload.
type StressConfig struct {
	Format      string        `mapstructure:"format"`
	MetricsFile string        `mapstructure:"metrics_file"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Seed        int64         `mapstructure:"seed"`
	Ops         int           `mapstructure:"ops"`
	Keys        int           `mapstructure:"keys"`
	VerifyEvery int           `mapstructure:"verify_every"`

	// NodeLimit caps the engine's allocator. Zero leaves it unbounded.
	NodeLimit int `mapstructure:"node_limit"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds tracing export settings.
type TelemetryConfig struct {
	ServiceName  string  `mapstructure:"service_name"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
}

// LoadConfig loads configuration from file and environment variables. An
// empty configPath searches for rbcheck.yaml in the usual places and falls
// back to defaults when none exists.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("rbcheck")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("./config")
		viperCfg.AddConfigPath("$HOME/.config/rbcheck")
	}

	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := config.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

// setDefaults sets default configuration values.
func setDefaults(viperCfg *viper.Viper) {
	// Stress defaults.
	viperCfg.SetDefault("stress.ops", DefaultOps)
	viperCfg.SetDefault("stress.keys", DefaultKeys)
	viperCfg.SetDefault("stress.seed", DefaultSeed)
	viperCfg.SetDefault("stress.verify_every", DefaultVerifyEvery)
	viperCfg.SetDefault("stress.node_limit", 0)
	viperCfg.SetDefault("stress.format", DefaultFormat)
	viperCfg.SetDefault("stress.metrics_file", "")
	viperCfg.SetDefault("stress.timeout", DefaultTimeout.String())

	// Logging defaults.
	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.format", DefaultLogFormat)

	// Telemetry defaults.
	viperCfg.SetDefault("telemetry.service_name", DefaultServiceName)
	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", false)
	viperCfg.SetDefault("telemetry.sample_ratio", 0.0)
}

// Validate checks the configuration, typically after command-line flags
// have been applied on top of the loaded values.
func (config *Config) Validate() error {
	stress := config.Stress

	if stress.Ops <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidOps, stress.Ops)
	}

	if stress.Keys <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidKeys, stress.Keys)
	}

	if stress.VerifyEvery < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidVerifyEvery, stress.VerifyEvery)
	}

	if stress.NodeLimit < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidNodeLimit, stress.NodeLimit)
	}

	switch stress.Format {
	case FormatTable, FormatYAML:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFormat, stress.Format)
	}

	switch strings.ToLower(config.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, config.Logging.Level)
	}

	switch config.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, config.Logging.Format)
	}

	return nil
}
