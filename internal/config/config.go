// Package config loads worker configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all image-worker configuration values.
type Config struct {
	// Server / environment
	Env             string
	AdminAddr       string
	GracefulTimeout time.Duration

	// Redis (shared state)
	RedisURL string

	// Message bus
	BusBrokers []string
	BusTopic   string
	BusGroup   string

	// Pipeline
	BatchSize      int
	MaxConcurrency int

	// Rate limiting
	MaxRPSPerOrigin int

	// Resize
	ResizeMaxWidth  int
	ResizeMaxHeight int

	// Error-window horizons, in ascending order.
	WindowHorizons []time.Duration

	// HTTP fetch
	FetchTimeout time.Duration

	// Persistence
	PersistDir string

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables and an optional
// .env file. Unset variables fall back to production-sane defaults.
func Load() *Config {
	_ = godotenv.Load()

	gracefulSec := getEnvInt("WORKER_GRACEFUL_TIMEOUT_SEC", 15)
	fetchTimeoutSec := getEnvInt("WORKER_FETCH_TIMEOUT_SEC", 20)

	return &Config{
		Env:             getEnv("ENV", "development"),
		AdminAddr:       getEnv("WORKER_ADMIN_ADDR", ":9090"),
		GracefulTimeout: time.Duration(gracefulSec) * time.Second,

		RedisURL: getEnv("REDIS_URL", "redis://redis:6379"),

		BusBrokers: getEnvList("BUS_BROKERS", []string{"localhost:9092"}),
		BusTopic:   getEnv("BUS_TOPIC", "image-fetch-jobs"),
		BusGroup:   getEnv("BUS_GROUP", "image-worker"),

		BatchSize:      getEnvInt("WORKER_BATCH_SIZE", 20),
		MaxConcurrency: getEnvInt("WORKER_MAX_CONCURRENCY", 50),

		MaxRPSPerOrigin: getEnvInt("WORKER_MAX_RPS_PER_ORIGIN", 10),

		ResizeMaxWidth:  getEnvInt("WORKER_RESIZE_MAX_WIDTH", 640),
		ResizeMaxHeight: getEnvInt("WORKER_RESIZE_MAX_HEIGHT", 480),

		WindowHorizons: []time.Duration{
			60 * time.Second,
			time.Hour,
			12 * time.Hour,
		},

		FetchTimeout: time.Duration(fetchTimeoutSec) * time.Second,

		PersistDir: getEnv("WORKER_PERSIST_DIR", "/var/lib/image-worker/thumbnails"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
