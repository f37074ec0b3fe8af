// Package config reads server settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Store backends.
const (
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
)

// Config holds the server settings.
type Config struct {
	Port int

	StoreBackend  string
	DBPath        string
	MongoURI      string
	MongoDatabase string

	// RedisAddr enables the shared counter and cross-instance chit locks when set.
	RedisAddr string

	JWTSecret string
	TokenTTL  time.Duration

	DefaultUserPassword string
	AdminNumber         string
	AdminPassword       string

	StoreTimeout       time.Duration
	AllocateMaxRetries uint64
	StrictSplit        bool
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// Load reads the configuration from environment variables, applying defaults.
func Load() (*Config, error) {
	cfg := &Config{
		StoreBackend:        getEnv("STORE_BACKEND", BackendSQLite),
		DBPath:              getEnv("DB_PATH", "./data/chits.db"),
		MongoURI:            getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:       getEnv("MONGO_DATABASE", "chitfund"),
		RedisAddr:           os.Getenv("REDIS_ADDR"),
		JWTSecret:           getEnv("JWT_SECRET", "dev-secret-change-me"),
		DefaultUserPassword: getEnv("DEFAULT_USER_PASSWORD", "chit1234"),
		AdminNumber:         os.Getenv("ADMIN_NUMBER"),
		AdminPassword:       os.Getenv("ADMIN_PASSWORD"),
	}

	var err error
	if cfg.Port, err = strconv.Atoi(getEnv("PORT", "8080")); err != nil || cfg.Port <= 0 {
		return nil, fmt.Errorf("invalid PORT %q", os.Getenv("PORT"))
	}
	if cfg.TokenTTL, err = parseDuration("TOKEN_TTL", "24h"); err != nil {
		return nil, err
	}
	if cfg.StoreTimeout, err = parseDuration("STORE_TIMEOUT", "5s"); err != nil {
		return nil, err
	}
	if cfg.AllocateMaxRetries, err = strconv.ParseUint(getEnv("ALLOCATE_MAX_RETRIES", "5"), 10, 32); err != nil {
		return nil, fmt.Errorf("invalid ALLOCATE_MAX_RETRIES: %w", err)
	}
	if cfg.StrictSplit, err = strconv.ParseBool(getEnv("STRICT_SPLIT", "false")); err != nil {
		return nil, fmt.Errorf("invalid STRICT_SPLIT: %w", err)
	}

	switch cfg.StoreBackend {
	case BackendSQLite, BackendMongo:
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q (want %s or %s)", cfg.StoreBackend, BackendSQLite, BackendMongo)
	}
	if (cfg.AdminNumber == "") != (cfg.AdminPassword == "") {
		return nil, fmt.Errorf("ADMIN_NUMBER and ADMIN_PASSWORD must be set together")
	}

	return cfg, nil
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}
