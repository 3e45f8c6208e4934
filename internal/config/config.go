// Package config provides configuration management for the dashboard service.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Market    MarketConfig
	Redis     RedisConfig
	Cache     CacheConfig
	Feed      FeedConfig
	Session   SessionConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Host string
}

// MarketConfig holds market-data provider configuration
type MarketConfig struct {
	BaseURL    string
	PerPage    int
	MinLoading time.Duration // minimum time the initial load stays in the loading state
	// HTTPTimeout of zero leaves the upstream request bounded only by its context.
	HTTPTimeout time.Duration
	UpstreamRPS float64
	// SharedBudget caps upstream calls per window across replicas; needs Redis.
	SharedBudget       int
	SharedBudgetWindow time.Duration
}

// RedisConfig holds Redis configuration. An empty Host disables the cache.
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// Enabled reports whether a Redis host was configured
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

// CacheConfig holds cache configuration
type CacheConfig struct {
	TTL time.Duration
}

// FeedConfig holds whale-watch feed configuration
type FeedConfig struct {
	Interval time.Duration
	Seed     int
	History  int
}

// SessionConfig holds dashboard session configuration
type SessionConfig struct {
	TTL time.Duration
}

// RateLimitConfig holds inbound rate limiting configuration
type RateLimitConfig struct {
	RPS   int
	Burst int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// Load .env file (optional in production)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Market: MarketConfig{
			BaseURL:     getEnv("MARKET_BASE_URL", "https://api.coingecko.com/api/v3"),
			PerPage:     getEnvAsInt("MARKET_PER_PAGE", 20),
			MinLoading:  getEnvAsDuration("MARKET_MIN_LOADING", 800*time.Millisecond),
			HTTPTimeout: getEnvAsDuration("MARKET_HTTP_TIMEOUT", 0),
			UpstreamRPS: getEnvAsFloat("MARKET_UPSTREAM_RPS", 0.5),

			SharedBudget:       getEnvAsInt("MARKET_SHARED_BUDGET", 25),
			SharedBudgetWindow: getEnvAsDuration("MARKET_SHARED_BUDGET_WINDOW", time.Minute),
		},
		Redis: RedisConfig{
			Host:           getEnv("REDIS_HOST", ""),
			Port:           getEnv("REDIS_PORT", "6379"),
			Password:       getEnv("REDIS_PASSWORD", ""),
			DB:             getEnvAsInt("REDIS_DB", 0),
			MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 10),
		},
		Cache: CacheConfig{
			TTL: getEnvAsDuration("CACHE_TTL", 60*time.Second),
		},
		Feed: FeedConfig{
			Interval: getEnvAsDuration("FEED_INTERVAL", 3*time.Second),
			Seed:     getEnvAsInt("FEED_SEED", 5),
			History:  getEnvAsInt("FEED_HISTORY", 7),
		},
		Session: SessionConfig{
			TTL: getEnvAsDuration("SESSION_TTL", 30*time.Minute),
		},
		RateLimit: RateLimitConfig{
			RPS:   getEnvAsInt("RATE_LIMIT_RPS", 20),
			Burst: getEnvAsInt("RATE_LIMIT_BURST", 40),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// minSessionTTL keeps the janitor interval (TTL/2) a usable ticker period
const minSessionTTL = time.Second

// Validate checks values that would otherwise fail later at startup
func (c *Config) Validate() error {
	if c.Market.PerPage <= 0 || c.Market.PerPage > 250 {
		return fmt.Errorf("MARKET_PER_PAGE must be between 1 and 250, got %d", c.Market.PerPage)
	}
	if c.Market.SharedBudget < 0 || c.Market.SharedBudgetWindow <= 0 {
		return fmt.Errorf("MARKET_SHARED_BUDGET must not be negative and its window must be positive, got %d per %v",
			c.Market.SharedBudget, c.Market.SharedBudgetWindow)
	}
	if c.Feed.Interval <= 0 {
		return fmt.Errorf("FEED_INTERVAL must be positive, got %v", c.Feed.Interval)
	}
	if c.Feed.History <= 0 || c.Feed.Seed > c.Feed.History {
		return fmt.Errorf("FEED_HISTORY must be positive and at least FEED_SEED (%d), got %d", c.Feed.Seed, c.Feed.History)
	}
	if c.Session.TTL < minSessionTTL {
		return fmt.Errorf("SESSION_TTL must be at least %v, got %v", minSessionTTL, c.Session.TTL)
	}
	if c.RateLimit.RPS <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be positive, got %d", c.RateLimit.RPS)
	}
	return nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat gets an environment variable as a float with a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
