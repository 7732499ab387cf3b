package config

import (
	"errors"
	"os"
	"strings"
	"time"
)

type HTTPConfig struct {
	Addr string
}

type MongoConfig struct {
	URL             string
	Database        string
	ArchiveDatabase string // empty means no archive tier is configured
}

type RedisConfig struct {
	URL string
}

type AppConfig struct {
	ServiceName string
	LogLevel    string
	Env         string
	HTTP        HTTPConfig
	Mongo       MongoConfig
	Redis       RedisConfig
	CacheTTL    time.Duration
}

// IsProduction reports whether the service runs with production guarantees
// (no in-memory fallbacks allowed).
func (c AppConfig) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func Load() (AppConfig, error) {
	cfg := AppConfig{
		ServiceName: strings.TrimSpace(os.Getenv("SERVICE_NAME")),
		LogLevel:    strings.TrimSpace(os.Getenv("LOG_LEVEL")),
		Env:         strings.TrimSpace(os.Getenv("APP_ENV")),
		HTTP: HTTPConfig{
			Addr: strings.TrimSpace(os.Getenv("HTTP_ADDR")),
		},
		Mongo: MongoConfig{
			URL:             strings.TrimSpace(os.Getenv("MONGO_URL")),
			Database:        strings.TrimSpace(os.Getenv("MONGO_DATABASE")),
			ArchiveDatabase: strings.TrimSpace(os.Getenv("MONGO_ARCHIVE_DATABASE")),
		},
		Redis: RedisConfig{
			URL: strings.TrimSpace(os.Getenv("REDIS_URL")),
		},
	}
	if cfg.ServiceName == "" {
		return AppConfig{}, errors.New("SERVICE_NAME is required")
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Mongo.Database == "" {
		cfg.Mongo.Database = "comments"
	}
	cfg.CacheTTL = envDuration("COMMENT_CACHE_TTL", 24*time.Hour)
	return cfg, nil
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
