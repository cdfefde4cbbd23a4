// Package config loads runtime configuration from flags and environment
// variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Default values
	DefaultLLMProvider = "openai"
	DefaultLLMModel    = "gpt-4o"
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 10 * 1024 * 1024 // 10MB

	DefaultRateWindow    = 60 * time.Second
	DefaultRateLimitMax  = 5
	DefaultFreeTierLimit = 1
)

// Config holds all configuration for the form-fill engine.
type Config struct {
	// Language service configuration
	LLMProvider string
	LLMModel    string
	LLMAPIKey   string
	LLMBaseURL  string

	// Policy configuration
	RateWindow    time.Duration
	RateLimitMax  int
	FreeTierLimit int

	// Shared-store configuration; empty means in-process counters, which
	// are only correct for a single-instance deployment.
	RedisAddr string

	// Application configuration
	Version     string
	LogLevel    string
	MaxFileSize int64
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LLMProvider:   DefaultLLMProvider,
		LLMModel:      DefaultLLMModel,
		RateWindow:    DefaultRateWindow,
		RateLimitMax:  DefaultRateLimitMax,
		FreeTierLimit: DefaultFreeTierLimit,
		Version:       "1.0.0",
		LogLevel:      DefaultLogLevel,
		MaxFileSize:   DefaultMaxFileSize,
	}
}

// LoadFromFlags parses command line flags and returns the configuration
// plus any remaining positional arguments.
func LoadFromFlags(args []string) (*Config, []string, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	flags := defineCommandLineFlags(cfg)
	bindFlagsToViper(flags)

	if err := flags.Parse(args); err != nil {
		return nil, nil, err
	}

	populateConfigFromViper(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, flags.Args(), nil
}

// setupViperEnvironment configures viper with environment variables and
// defaults.
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix("FORMFILL")
	viper.AutomaticEnv()

	viper.SetDefault("provider", cfg.LLMProvider)
	viper.SetDefault("model", cfg.LLMModel)
	viper.SetDefault("apikey", cfg.LLMAPIKey)
	viper.SetDefault("baseurl", cfg.LLMBaseURL)
	viper.SetDefault("ratewindow", cfg.RateWindow)
	viper.SetDefault("ratemax", cfg.RateLimitMax)
	viper.SetDefault("freetier", cfg.FreeTierLimit)
	viper.SetDefault("redis", cfg.RedisAddr)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
}

// defineCommandLineFlags sets up all command line flags.
func defineCommandLineFlags(cfg *Config) *pflag.FlagSet {
	flags := pflag.NewFlagSet("formfill", pflag.ContinueOnError)
	flags.SetOutput(os.Stderr)

	flags.String("provider", cfg.LLMProvider, "Language service provider: openai, anthropic, ollama")
	flags.String("model", cfg.LLMModel, "Language service model name")
	flags.String("apikey", cfg.LLMAPIKey, "Language service API key (prefer FORMFILL_APIKEY)")
	flags.String("baseurl", cfg.LLMBaseURL, "Language service base URL (openai-compatible endpoints, ollama hosts)")
	flags.Duration("ratewindow", cfg.RateWindow, "Mapping rate-limit window per user")
	flags.Int("ratemax", cfg.RateLimitMax, "Mapping calls allowed per rate window")
	flags.Int("freetier", cfg.FreeTierLimit, "Lifetime successful mappings for free-tier users")
	flags.String("redis", cfg.RedisAddr, "Redis address for shared quota/rate counters (empty = in-process)")
	flags.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flags.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")

	return flags
}

// bindFlagsToViper binds command line flags to viper configuration.
func bindFlagsToViper(flags *pflag.FlagSet) {
	for _, name := range []string{
		"provider", "model", "apikey", "baseurl",
		"ratewindow", "ratemax", "freetier",
		"redis", "loglevel", "maxfilesize",
	} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
}

// populateConfigFromViper fills the config struct with values from viper.
func populateConfigFromViper(cfg *Config) {
	cfg.LLMProvider = viper.GetString("provider")
	cfg.LLMModel = viper.GetString("model")
	cfg.LLMAPIKey = viper.GetString("apikey")
	cfg.LLMBaseURL = viper.GetString("baseurl")
	cfg.RateWindow = viper.GetDuration("ratewindow")
	cfg.RateLimitMax = viper.GetInt("ratemax")
	cfg.FreeTierLimit = viper.GetInt("freetier")
	cfg.RedisAddr = viper.GetString("redis")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case "openai", "anthropic", "ollama":
	default:
		return fmt.Errorf("invalid provider: %s (must be one of: openai, anthropic, ollama)", c.LLMProvider)
	}

	if c.LLMModel == "" {
		return errors.New("model cannot be empty")
	}

	if c.RateWindow <= 0 {
		return errors.New("rate window must be positive")
	}

	if c.RateLimitMax <= 0 {
		return errors.New("rate limit must be positive")
	}

	if c.FreeTierLimit < 0 {
		return errors.New("free tier limit cannot be negative")
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// IsDebug returns true if debug logging is enabled.
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration without the
// API key.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Provider: %s, Model: %s, RateWindow: %s, RateMax: %d, FreeTier: %d, Redis: %s, LogLevel: %s, MaxFileSize: %d}",
		c.LLMProvider, c.LLMModel, c.RateWindow, c.RateLimitMax, c.FreeTierLimit,
		c.RedisAddr, c.LogLevel, c.MaxFileSize)
}
