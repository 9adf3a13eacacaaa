// Package config loads server settings from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config is everything the server binary needs to come up.
type Config struct {
	ListenAddr  string
	LogLevel    string
	TokenSecret string

	// Store selects the backing store: memory, sqlite, redis or postgres.
	Store       string
	SQLitePath  string
	RedisAddr   string
	RedisPass   string
	RedisDB     int
	PostgresDSN string
}

// Load reads UPNDOWN_* variables, after merging in a .env file if one
// exists. Real environment variables win over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("could not read .env file")
	}

	cfg := Config{
		ListenAddr:  getEnv("UPNDOWN_LISTEN_ADDR", ":8080"),
		LogLevel:    getEnv("UPNDOWN_LOG_LEVEL", "info"),
		TokenSecret: os.Getenv("UPNDOWN_TOKEN_SECRET"),
		Store:       getEnv("UPNDOWN_STORE", "memory"),
		SQLitePath:  getEnv("UPNDOWN_SQLITE_PATH", "upndown.db"),
		RedisAddr:   getEnv("UPNDOWN_REDIS_ADDR", "localhost:6379"),
		RedisPass:   os.Getenv("UPNDOWN_REDIS_PASSWORD"),
		PostgresDSN: os.Getenv("UPNDOWN_POSTGRES_DSN"),
	}

	if raw := os.Getenv("UPNDOWN_REDIS_DB"); raw != "" {
		db, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("UPNDOWN_REDIS_DB: %w", err)
		}
		cfg.RedisDB = db
	}

	switch cfg.Store {
	case "memory", "sqlite", "redis", "postgres":
	default:
		return Config{}, fmt.Errorf("UPNDOWN_STORE: unknown backend %q", cfg.Store)
	}
	if cfg.Store == "postgres" && cfg.PostgresDSN == "" {
		return Config{}, fmt.Errorf("UPNDOWN_POSTGRES_DSN required for postgres store")
	}
	if cfg.TokenSecret == "" {
		return Config{}, fmt.Errorf("UPNDOWN_TOKEN_SECRET required")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
