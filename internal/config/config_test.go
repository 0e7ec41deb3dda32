package config

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"PORT", "LOG_LEVEL", "STORAGE_BACKEND", "STORAGE_DIR", "REDIS_URL", "REDIS_KEY_PREFIX",
	"DIRECTORY_BACKEND", "DIRECTORY_FILE", "MONGODB_URI", "MONGODB_DATABASE", "DIRECTORY_NAME",
	"DEFAULT_STORES", "FETCH_TIMEOUT", "FETCH_CONCURRENCY", "PRUNE_STALE_CARTS",
	"SHOPIFY_API_KEY", "SHOPIFY_API_SECRET", "SHOPIFY_ACCESS_TOKEN", "CORS_ORIGINS",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, zerolog.InfoLevel, cfg.LogLevel)
	assert.Equal(t, StorageFile, cfg.StorageBackend)
	assert.Equal(t, "./data/records", cfg.StorageDir)
	assert.Equal(t, "marketplace:", cfg.RedisKeyPrefix)
	assert.Equal(t, DirectoryFile, cfg.DirectoryBackend)
	assert.Equal(t, "./data/stores.toml", cfg.DirectoryFile)
	assert.Equal(t, "default", cfg.DirectoryName)
	assert.Equal(t, 5*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 4, cfg.FetchConcurrency)
	assert.True(t, cfg.PruneStaleCarts)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
}

func TestOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("STORAGE_BACKEND", "redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("FETCH_TIMEOUT", "750ms")
	t.Setenv("FETCH_CONCURRENCY", "8")
	t.Setenv("PRUNE_STALE_CARTS", "false")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, zerolog.DebugLevel, cfg.LogLevel)
	assert.Equal(t, StorageRedis, cfg.StorageBackend)
	assert.Equal(t, 750*time.Millisecond, cfg.FetchTimeout)
	assert.Equal(t, 8, cfg.FetchConcurrency)
	assert.False(t, cfg.PruneStaleCarts)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSOrigins)
}

func TestInvalidValues(t *testing.T) {
	tests := map[string]string{
		"STORAGE_BACKEND":   "dynamo",
		"DIRECTORY_BACKEND": "mongo",
		"FETCH_TIMEOUT":     "soon",
		"FETCH_CONCURRENCY": "0",
		"PRUNE_STALE_CARTS": "maybe",
		"LOG_LEVEL":         "loud",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)

			_, err := FromEnv()
			assert.Error(t, err)
		})
	}

	clearEnv(t)
	t.Setenv("STORAGE_BACKEND", "redis")
	_, err := FromEnv()
	assert.Error(t, err)
}
