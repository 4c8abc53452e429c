package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // TIMEZONE must resolve in images without zoneinfo

	"github.com/joho/godotenv"
)

const defaultDSN = "host=localhost user=postgres password=postgres dbname=salestrack port=5432 sslmode=disable"

type Config struct {
	HTTPPort        string
	DatabaseDriver  string // postgres | mysql | sqlite
	DatabaseDSN     string
	JWTSecret       string // shared with the external auth provider
	CORSOrigins     string
	Location        *time.Location
	RedisAddress    string // empty: view state kept in memory, imports not locked
	RedisPassword   string
	RedisDB         int
	ViewStateTTL    time.Duration
	LogLevel        string
	ShutdownTimeout time.Duration
}

func Load() *Config {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		DatabaseDriver:  strings.ToLower(getEnv("DATABASE_DRIVER", "postgres")),
		DatabaseDSN:     getEnv("DATABASE_DSN", defaultDSN),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		CORSOrigins:     getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		RedisAddress:    getEnv("REDIS_ADDRESS", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         intFromEnv("REDIS_DB", 0),
		ViewStateTTL:    durationFromEnv("VIEW_STATE_TTL", 30*24*time.Hour),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		ShutdownTimeout: durationFromEnv("SHUTDOWN_TIMEOUT", 15*time.Second),
	}

	tz := getEnv("TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Fatalf("[FATAL] TIMEZONE %q is not a valid IANA zone: %v", tz, err)
	}
	cfg.Location = loc

	switch cfg.DatabaseDriver {
	case "postgres", "mysql", "sqlite":
	default:
		log.Fatalf("[FATAL] DATABASE_DRIVER must be postgres, mysql or sqlite, got %q", cfg.DatabaseDriver)
	}

	if cfg.JWTSecret == "" {
		log.Fatal("[FATAL] JWT_SECRET is not set. Use the signing secret of the auth provider.")
	}
	if len(cfg.JWTSecret) < 32 {
		log.Fatal("[FATAL] JWT_SECRET must be at least 32 characters.")
	}
	if cfg.DatabaseDriver == "postgres" && cfg.DatabaseDSN == defaultDSN {
		log.Println("[WARN] DATABASE_DSN uses the default value, set your own Postgres connection for production.")
	}
	if cfg.CORSOrigins == "http://localhost:5173" {
		log.Println("[WARN] CORS_ALLOWED_ORIGINS uses the default value, set your own domain for production.")
	}

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("[FATAL] %s must be an integer, got %q", key, v)
	}
	return n
}

func durationFromEnv(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Fatalf("[FATAL] %s must be a positive duration like 15s or 720h, got %q", key, v)
	}
	return d
}
