package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"rmanova/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Engine  EngineConfig
	Verify  VerifyConfig
	Server  ServerConfig
	Logging LoggingConfig
}

// EngineConfig holds batch evaluation settings
type EngineConfig struct {
	Workers   int
	ChunkSize int
}

// VerifyConfig holds oracle comparison settings
type VerifyConfig struct {
	Tolerance float64
}

// ServerConfig holds HTTP surface settings
type ServerConfig struct {
	Addr         string
	MaxBodyBytes int64
}

// LoggingConfig holds slog settings
type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads an optional .env file, then the environment, and validates the
// result
func Load() (*Config, error) {
	// A missing .env is the normal case outside development.
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds the configuration from environment variables only
func FromEnv() (*Config, error) {
	workers, err := getEnvIntOrDefault("RMANOVA_WORKERS", runtime.GOMAXPROCS(0))
	if err != nil {
		return nil, err
	}
	chunkSize, err := getEnvIntOrDefault("RMANOVA_CHUNK_SIZE", 4096)
	if err != nil {
		return nil, err
	}
	tolerance, err := getEnvFloatOrDefault("RMANOVA_TOLERANCE", 1e-6)
	if err != nil {
		return nil, err
	}
	maxBody, err := getEnvIntOrDefault("RMANOVA_MAX_BODY_BYTES", 64<<20)
	if err != nil {
		return nil, err
	}

	config := &Config{
		Engine: EngineConfig{
			Workers:   workers,
			ChunkSize: chunkSize,
		},
		Verify: VerifyConfig{
			Tolerance: tolerance,
		},
		Server: ServerConfig{
			Addr:         getEnvOrDefault("RMANOVA_ADDR", ":8080"),
			MaxBodyBytes: int64(maxBody),
		},
		Logging: LoggingConfig{
			Level:  strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnvOrDefault("LOG_FORMAT", "text")),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.Engine.Workers < 1 {
		return errors.ConfigInvalid("RMANOVA_WORKERS must be at least 1")
	}
	if c.Engine.ChunkSize < 1 {
		return errors.ConfigInvalid("RMANOVA_CHUNK_SIZE must be at least 1")
	}
	if !(c.Verify.Tolerance > 0) {
		return errors.ConfigInvalid("RMANOVA_TOLERANCE must be positive")
	}
	if c.Server.Addr == "" {
		return errors.ConfigInvalid("RMANOVA_ADDR is required")
	}
	if c.Server.MaxBodyBytes < 1 {
		return errors.ConfigInvalid("RMANOVA_MAX_BODY_BYTES must be positive")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.ConfigInvalid("LOG_LEVEL must be one of debug, info, warn, error")
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return errors.ConfigInvalid("LOG_FORMAT must be text or json")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	intValue, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, errors.ConfigInvalid(fmt.Sprintf("%s must be an integer, got %q", key, value))
	}
	return intValue, nil
}

func getEnvFloatOrDefault(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	floatValue, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, errors.ConfigInvalid(fmt.Sprintf("%s must be a number, got %q", key, value))
	}
	return floatValue, nil
}
