package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("MARKET_MIN_LOADING", "1s")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("REDIS_HOST", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, time.Second, cfg.Market.MinLoading)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 20, cfg.Market.PerPage)
	assert.Equal(t, 3*time.Second, cfg.Feed.Interval)
	assert.Equal(t, 7, cfg.Feed.History)
	assert.Zero(t, cfg.Market.HTTPTimeout)
	assert.False(t, cfg.Redis.Enabled())
}

func TestLoadConfig_InvalidFeedHistory(t *testing.T) {
	t.Setenv("FEED_SEED", "9")
	t.Setenv("FEED_HISTORY", "7")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FEED_HISTORY")
}

func TestLoadConfig_InvalidSessionTTL(t *testing.T) {
	for _, ttl := range []string{"0s", "1ns", "999ms"} {
		t.Run(ttl, func(t *testing.T) {
			t.Setenv("SESSION_TTL", ttl)

			_, err := LoadConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "SESSION_TTL")
		})
	}

	t.Setenv("SESSION_TTL", "1s")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, time.Second, cfg.Session.TTL)
}

func TestLoadConfig_InvalidSharedBudget(t *testing.T) {
	t.Setenv("MARKET_SHARED_BUDGET", "-1")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MARKET_SHARED_BUDGET")
}

func TestLoadConfig_InvalidPerPage(t *testing.T) {
	t.Setenv("MARKET_PER_PAGE", "500")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{
			name:         "returns environment variable when set",
			key:          "TEST_KEY",
			defaultValue: "default",
			envValue:     "custom",
			want:         "custom",
		},
		{
			name:         "returns default when environment variable not set",
			key:          "NONEXISTENT_KEY",
			defaultValue: "default",
			envValue:     "",
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv(tt.key, tt.envValue)
			}

			got := getEnv(tt.key, tt.defaultValue)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetEnvAsInt(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue int
		envValue     string
		want         int
	}{
		{"returns integer when valid", "TEST_INT", 100, "200", 200},
		{"returns default when invalid", "TEST_INT_INVALID", 100, "invalid", 100},
		{"returns default when not set", "TEST_INT_NOTSET", 100, "", 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv(tt.key, tt.envValue)
			}

			assert.Equal(t, tt.want, getEnvAsInt(tt.key, tt.defaultValue))
		})
	}
}

func TestGetEnvAsFloat(t *testing.T) {
	t.Setenv("TEST_FLOAT", "1.25")
	t.Setenv("TEST_FLOAT_INVALID", "abc")

	assert.Equal(t, 1.25, getEnvAsFloat("TEST_FLOAT", 2))
	assert.Equal(t, 2.0, getEnvAsFloat("TEST_FLOAT_INVALID", 2))
	assert.Equal(t, 2.0, getEnvAsFloat("TEST_FLOAT_NOTSET", 2))
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue time.Duration
		envValue     string
		want         time.Duration
	}{
		{"returns duration when valid", "TEST_DURATION", 10 * time.Second, "30s", 30 * time.Second},
		{"returns default when invalid", "TEST_DURATION_INVALID", 10 * time.Second, "invalid", 10 * time.Second},
		{"returns default when not set", "TEST_DURATION_NOTSET", 10 * time.Second, "", 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv(tt.key, tt.envValue)
			}

			assert.Equal(t, tt.want, getEnvAsDuration(tt.key, tt.defaultValue))
		})
	}
}
