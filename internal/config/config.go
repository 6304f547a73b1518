// Package config reads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
)

const (
	SessionStorePostgres = "postgres"
	SessionStoreRedis    = "redis"
)

type Config struct {
	Port              string
	Env               string
	LogLevel          string
	DatabaseURL       string
	DBMaxOpenConns    int
	InstitutionDomain string
	JWTSecret         string
	SessionTTL        time.Duration
	SessionStore      string
	RedisURL          string
	RequestTimeout    time.Duration
}

// Load builds a Config from environment variables. All problems are reported
// together.
func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	var errs error
	env := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}
	duration := func(key, def string) time.Duration {
		d, err := time.ParseDuration(env(key, def))
		if err != nil || d <= 0 {
			errs = multierr.Append(errs, fmt.Errorf("%s must be a positive duration", key))
		}
		return d
	}

	cfg := Config{
		Port:              env("PORT", "8083"),
		Env:               env("APP_ENV", "development"),
		LogLevel:          env("LOG_LEVEL", "info"),
		DatabaseURL:       env("DATABASE_URL", ""),
		InstitutionDomain: strings.ToLower(strings.TrimPrefix(env("INSTITUTION_DOMAIN", ""), "@")),
		JWTSecret:         env("JWT_SECRET", ""),
		SessionTTL:        duration("SESSION_TTL", "24h"),
		SessionStore:      strings.ToLower(env("SESSION_STORE", SessionStorePostgres)),
		RedisURL:          env("REDIS_URL", ""),
		RequestTimeout:    duration("REQUEST_TIMEOUT", "5s"),
	}

	n, err := strconv.Atoi(env("DB_MAX_OPEN_CONNS", "10"))
	if err != nil || n <= 0 {
		errs = multierr.Append(errs, errors.New("DB_MAX_OPEN_CONNS must be a positive integer"))
	}
	cfg.DBMaxOpenConns = n

	if cfg.DatabaseURL == "" {
		errs = multierr.Append(errs, errors.New("DATABASE_URL is required"))
	}
	if cfg.InstitutionDomain == "" {
		errs = multierr.Append(errs, errors.New("INSTITUTION_DOMAIN is required"))
	}
	if len(cfg.JWTSecret) < 32 {
		errs = multierr.Append(errs, errors.New("JWT_SECRET must be at least 32 bytes"))
	}
	switch cfg.SessionStore {
	case SessionStorePostgres:
	case SessionStoreRedis:
		if cfg.RedisURL == "" {
			errs = multierr.Append(errs, errors.New("REDIS_URL is required when SESSION_STORE=redis"))
		}
	default:
		errs = multierr.Append(errs, fmt.Errorf("SESSION_STORE must be %q or %q", SessionStorePostgres, SessionStoreRedis))
	}

	return cfg, errs
}
