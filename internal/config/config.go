// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrEngineScriptRequired is returned when ENGINE_SCRIPT is not set.
	ErrEngineScriptRequired = errors.New("config: ENGINE_SCRIPT is required")
	// ErrParagraphScriptRequired is returned when ENGINE_PARAGRAPH_SCRIPT is not set.
	ErrParagraphScriptRequired = errors.New("config: ENGINE_PARAGRAPH_SCRIPT is required")
	// ErrTimeoutExceedsReapAge is returned when the engine timeout is not
	// strictly below the reaper age threshold. A job that can outlive the
	// threshold risks having its output directory reaped mid-run.
	ErrTimeoutExceedsReapAge = errors.New("config: ENGINE_TIMEOUT must be below REAP_MAX_AGE")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port int `env:"PORT, default=5000" json:"port"`

	// Workspace settings
	DataDir string `env:"DATA_DIR, default=/tmp/voiceflow" json:"data_dir"`

	// Registry settings. An empty DB_PATH selects the in-memory registry.
	DBPath string `env:"DB_PATH, default=voiceflow.db" json:"db_path"`

	// Synthesis engine settings
	EngineCommand         string        `env:"ENGINE_COMMAND, default=python3" json:"engine_command"`
	EngineScript          string        `env:"ENGINE_SCRIPT, required" json:"engine_script"`
	EngineParagraphScript string        `env:"ENGINE_PARAGRAPH_SCRIPT, required" json:"engine_paragraph_script"`
	EngineTimeout         time.Duration `env:"ENGINE_TIMEOUT, default=10m" json:"engine_timeout"`

	// Reaper settings
	ReapMaxAge   time.Duration `env:"REAP_MAX_AGE, default=15m" json:"reap_max_age"`
	ReapInterval time.Duration `env:"REAP_INTERVAL, default=5m" json:"reap_interval"`

	// Optional S3 settings for the blob store
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// Load reads configuration from environment variables using go-envconfig.
// It returns an error if required variables are not set.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		// Map envconfig errors to our domain errors for required fields
		if strings.Contains(err.Error(), "ENGINE_PARAGRAPH_SCRIPT") {
			return nil, ErrParagraphScriptRequired
		}
		if strings.Contains(err.Error(), "ENGINE_SCRIPT") {
			return nil, ErrEngineScriptRequired
		}
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present and coherent.
func (c *Config) Validate() error {
	if c.EngineScript == "" {
		return ErrEngineScriptRequired
	}
	if c.EngineParagraphScript == "" {
		return ErrParagraphScriptRequired
	}
	if c.EngineTimeout >= c.ReapMaxAge {
		return ErrTimeoutExceedsReapAge
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, DataDir: %s, DBPath: %s, EngineCommand: %s, EngineScript: %s, EngineParagraphScript: %s, EngineTimeout: %s, ReapMaxAge: %s, ReapInterval: %s, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.DataDir,
		c.DBPath,
		c.EngineCommand,
		c.EngineScript,
		c.EngineParagraphScript,
		c.EngineTimeout,
		c.ReapMaxAge,
		c.ReapInterval,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
