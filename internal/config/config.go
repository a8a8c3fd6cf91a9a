package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort     string
	DatabaseType   string // sqlite, postgres or mysql
	DatabaseURL    string // postgres/mysql connection string
	DatabasePath   string // sqlite file path
	MigrationsPath string
	AllowedOrigins []string

	ConnectTimeout time.Duration // remote database connect/query budget
	SessionWindow  time.Duration // client identity validity window
	PingInterval   time.Duration // client last-active ping cadence
	StaleUserAfter time.Duration // inactivity before a user is flagged inactive
}

// Load reads configuration from the environment with sensible defaults.
// A .env file in the working directory is honoured if present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:     getEnv("PORT", "8080"),
		DatabaseType:   getEnv("DATABASE_TYPE", "sqlite"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		DatabasePath:   getEnv("DB_PATH", "./terratiles.db"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "./migrations"),
		AllowedOrigins: splitOrigins(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		ConnectTimeout: getDuration("CONNECT_TIMEOUT_SECONDS", 20*time.Second),
		SessionWindow:  getDuration("SESSION_WINDOW_HOURS", 8*time.Hour),
		PingInterval:   getDuration("PING_INTERVAL_SECONDS", time.Minute),
		StaleUserAfter: getDuration("STALE_USER_DAYS", 30*24*time.Hour),
	}
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return defaultValue
	}
	switch {
	case strings.HasSuffix(key, "_SECONDS"):
		return time.Duration(n) * time.Second
	case strings.HasSuffix(key, "_HOURS"):
		return time.Duration(n) * time.Hour
	case strings.HasSuffix(key, "_DAYS"):
		return time.Duration(n) * 24 * time.Hour
	}
	return defaultValue
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
