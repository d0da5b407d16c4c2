package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// DefaultBaseURL is used when HA_BASE_URL is unset. The access token has
// no default; its absence fails the toggle and state-query operations at
// request time, not at startup.
const DefaultBaseURL = "http://homeassistant.local:8123"

// DefaultEntityID is the single light this deployment controls.
const DefaultEntityID = "light.hue_color_lamp_2"

// Config holds every runtime setting for the lights API.
type Config struct {
	// Home Assistant
	AccessToken string
	BaseURL     string
	EntityID    string

	// Activity log
	LogFilePath string

	// Rate limiting
	ToggleRateLimit int // accepted toggles per window per client
	LogRateLimit    int // accepted log appends per window per client
	RateWindow      int // window length in seconds
	SweepInterval   int // store sweep period in seconds

	// Storage backend for the rate limit counters
	StorageType   string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Server
	ServerPort string
	GinMode    string

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads .env when present, then the process environment, applies
// defaults and validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found, using system environment variables")
	}

	cfg := &Config{
		AccessToken: os.Getenv("HA_ACCESS_TOKEN"),
		BaseURL:     getEnvWithDefault("HA_BASE_URL", DefaultBaseURL),
		EntityID:    getEnvWithDefault("LIGHT_ENTITY_ID", DefaultEntityID),

		LogFilePath: getEnvWithDefault("LIGHTS_LOG_FILE", "data/lights-log.json"),

		StorageType:   getEnvWithDefault("STORAGE_TYPE", "memory"),
		RedisHost:     getEnvWithDefault("REDIS_HOST", "localhost"),
		RedisPort:     getEnvWithDefault("REDIS_PORT", "6379"),
		RedisPassword: getEnvWithDefault("REDIS_PASSWORD", ""),

		ServerPort: getEnvWithDefault("SERVER_PORT", "8080"),
		GinMode:    getEnvWithDefault("GIN_MODE", "debug"),

		LogLevel:  getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvWithDefault("LOG_FORMAT", "json"),
	}

	var err error
	if cfg.ToggleRateLimit, err = getEnvInt("TOGGLE_RATE_LIMIT", 5); err != nil {
		return nil, err
	}
	if cfg.LogRateLimit, err = getEnvInt("LOG_RATE_LIMIT", 10); err != nil {
		return nil, err
	}
	if cfg.RateWindow, err = getEnvInt("RATE_WINDOW_SECONDS", 60); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = getEnvInt("SWEEP_INTERVAL_SECONDS", 300); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.ToggleRateLimit <= 0 {
		return fmt.Errorf("TOGGLE_RATE_LIMIT must be greater than 0")
	}
	if c.LogRateLimit <= 0 {
		return fmt.Errorf("LOG_RATE_LIMIT must be greater than 0")
	}
	if c.RateWindow <= 0 {
		return fmt.Errorf("RATE_WINDOW_SECONDS must be greater than 0")
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL_SECONDS must be greater than 0")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("HA_BASE_URL cannot be empty")
	}
	if c.EntityID == "" {
		return fmt.Errorf("LIGHT_ENTITY_ID cannot be empty")
	}
	if c.LogFilePath == "" {
		return fmt.Errorf("LIGHTS_LOG_FILE cannot be empty")
	}
	if c.StorageType != "memory" && c.StorageType != "redis" {
		return fmt.Errorf("STORAGE_TYPE must be 'memory' or 'redis', got: %s", c.StorageType)
	}
	if c.RedisDB < 0 || c.RedisDB > 15 {
		return fmt.Errorf("REDIS_DB must be between 0 and 15")
	}
	return nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %w", key, err)
	}
	return value, nil
}
