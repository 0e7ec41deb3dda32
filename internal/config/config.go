package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Storage backends for the cart and session tables
const (
	StorageFile   = "file"
	StorageMemory = "memory"
	StorageRedis  = "redis"
	StorageNone   = "none"
)

// Directory backends
const (
	DirectoryFile  = "file"
	DirectoryMongo = "mongo"
)

// Config holds the service configuration read from the environment
type Config struct {
	Port     string
	LogLevel zerolog.Level

	StorageBackend string
	StorageDir     string
	RedisURL       string
	RedisKeyPrefix string

	DirectoryBackend string
	DirectoryFile    string
	MongoURI         string
	MongoDatabase    string
	DirectoryName    string
	DefaultStores    string

	FetchTimeout     time.Duration
	FetchConcurrency int
	PruneStaleCarts  bool

	ShopifyAPIKey      string
	ShopifyAPISecret   string
	ShopifyAccessToken string

	CORSOrigins []string
}

// Load reads .env (when present) and the environment
func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg(".env file not found, using environment")
	}
	return FromEnv()
}

// FromEnv builds the configuration from environment variables only
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		StorageBackend:   strings.ToLower(getEnv("STORAGE_BACKEND", StorageFile)),
		StorageDir:       getEnv("STORAGE_DIR", "./data/records"),
		RedisURL:         os.Getenv("REDIS_URL"),
		RedisKeyPrefix:   getEnv("REDIS_KEY_PREFIX", "marketplace:"),
		DirectoryBackend: strings.ToLower(getEnv("DIRECTORY_BACKEND", DirectoryFile)),
		DirectoryFile:    getEnv("DIRECTORY_FILE", "./data/stores.toml"),
		MongoURI:         os.Getenv("MONGODB_URI"),
		MongoDatabase:    os.Getenv("MONGODB_DATABASE"),
		DirectoryName:    getEnv("DIRECTORY_NAME", "default"),
		DefaultStores:    os.Getenv("DEFAULT_STORES"),

		ShopifyAPIKey:      os.Getenv("SHOPIFY_API_KEY"),
		ShopifyAPISecret:   os.Getenv("SHOPIFY_API_SECRET"),
		ShopifyAccessToken: os.Getenv("SHOPIFY_ACCESS_TOKEN"),
	}

	level, err := zerolog.ParseLevel(strings.ToLower(getEnv("LOG_LEVEL", "info")))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = level

	if cfg.FetchTimeout, err = time.ParseDuration(getEnv("FETCH_TIMEOUT", "5s")); err != nil {
		return nil, fmt.Errorf("invalid FETCH_TIMEOUT: %w", err)
	}
	if cfg.FetchConcurrency, err = strconv.Atoi(getEnv("FETCH_CONCURRENCY", "4")); err != nil || cfg.FetchConcurrency < 1 {
		return nil, fmt.Errorf("invalid FETCH_CONCURRENCY %q", os.Getenv("FETCH_CONCURRENCY"))
	}
	if cfg.PruneStaleCarts, err = strconv.ParseBool(getEnv("PRUNE_STALE_CARTS", "true")); err != nil {
		return nil, fmt.Errorf("invalid PRUNE_STALE_CARTS: %w", err)
	}

	for _, origin := range strings.Split(getEnv("CORS_ORIGINS", "*"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the selected backends have what they need
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case StorageFile, StorageMemory, StorageNone:
	case StorageRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when STORAGE_BACKEND=redis")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}

	switch c.DirectoryBackend {
	case DirectoryFile:
	case DirectoryMongo:
		if c.MongoURI == "" || c.MongoDatabase == "" {
			return fmt.Errorf("MONGODB_URI and MONGODB_DATABASE are required when DIRECTORY_BACKEND=mongo")
		}
	default:
		return fmt.Errorf("unknown DIRECTORY_BACKEND %q", c.DirectoryBackend)
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
