package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainCache "github.com/justinwongcn/retain/internal/domain/cache"
	"github.com/justinwongcn/retain/internal/logger"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, 5, config.EvictionThreshold)
	assert.Equal(t, time.Duration(0), config.DefaultExpiration)
	assert.Equal(t, 10*time.Minute, config.CleanupInterval)
	assert.Equal(t, 5*time.Second, config.DeleteTimeout)
	assert.Equal(t, BackendMemory, config.Backend)
	assert.Equal(t, "retain:", config.RedisKeyPrefix)
	assert.Equal(t, "redis://localhost:6379/0", config.RedisURL)
	assert.Nil(t, config.RedisClient)
	assert.Nil(t, config.Logger)
}

func TestOptions(t *testing.T) {
	l := logger.Discard()
	tests := []struct {
		name   string
		option Option
		check  func(t *testing.T, c *Config)
	}{
		{
			name:   "eviction threshold",
			option: WithEvictionThreshold(2),
			check:  func(t *testing.T, c *Config) { assert.Equal(t, 2, c.EvictionThreshold) },
		},
		{
			name:   "default expiration",
			option: WithDefaultExpiration(30 * time.Minute),
			check:  func(t *testing.T, c *Config) { assert.Equal(t, 30*time.Minute, c.DefaultExpiration) },
		},
		{
			name:   "cleanup interval",
			option: WithCleanupInterval(5 * time.Minute),
			check:  func(t *testing.T, c *Config) { assert.Equal(t, 5*time.Minute, c.CleanupInterval) },
		},
		{
			name:   "delete timeout",
			option: WithDeleteTimeout(time.Second),
			check:  func(t *testing.T, c *Config) { assert.Equal(t, time.Second, c.DeleteTimeout) },
		},
		{
			name:   "backend",
			option: WithBackend(BackendRedis),
			check:  func(t *testing.T, c *Config) { assert.Equal(t, BackendRedis, c.Backend) },
		},
		{
			name:   "redis key prefix",
			option: WithRedisKeyPrefix("models:"),
			check:  func(t *testing.T, c *Config) { assert.Equal(t, "models:", c.RedisKeyPrefix) },
		},
		{
			name:   "logger",
			option: WithLogger(l),
			check:  func(t *testing.T, c *Config) { assert.Same(t, l, c.Logger) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.option(config)
			tt.check(t, config)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("from environment", func(t *testing.T) {
		t.Setenv("RETAIN_EVICTION_THRESHOLD", "2")
		t.Setenv("RETAIN_DEFAULT_EXPIRATION", "1h")
		t.Setenv("RETAIN_BACKEND", "redis")
		t.Setenv("RETAIN_REDIS_KEY_PREFIX", "models:")
		t.Setenv("RETAIN_LOG_LEVEL", "debug")
		t.Setenv("REDIS_RETRY_ATTEMPTS", "7")

		config, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, 2, config.EvictionThreshold)
		assert.Equal(t, time.Hour, config.DefaultExpiration)
		assert.Equal(t, BackendRedis, config.Backend)
		assert.Equal(t, "models:", config.RedisKeyPrefix)
		assert.Equal(t, "debug", config.LogLevel)
		assert.Equal(t, 7, config.RedisRetryAttempts)
	})

	t.Run("defaults", func(t *testing.T) {
		config, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, 5, config.EvictionThreshold)
		assert.Equal(t, 10*time.Minute, config.CleanupInterval)
		assert.Equal(t, 5*time.Second, config.DeleteTimeout)
	})

	t.Run("negative expiration is rejected by the service", func(t *testing.T) {
		t.Setenv("RETAIN_DEFAULT_EXPIRATION", "-1ns")
		t.Setenv("RETAIN_CLEANUP_INTERVAL", "0s")

		config, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, -time.Nanosecond, config.DefaultExpiration)

		service, err := NewServiceWithConfig(config)
		assert.ErrorIs(t, err, ErrInvalidConfig)
		assert.ErrorIs(t, err, domainCache.ErrInvalidExpiration)
		assert.Nil(t, service)
	})

	t.Run("invalid value", func(t *testing.T) {
		t.Setenv("RETAIN_EVICTION_THRESHOLD", "five")

		config, err := LoadConfig()
		assert.ErrorIs(t, err, ErrInvalidConfig)
		assert.Nil(t, config)
	})
}
