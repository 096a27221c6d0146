package config_test

import (
	"os"
	"testing"

	"github.com/openverse/image-worker/internal/config"
)

func TestLoadConfigFromEnv(t *testing.T) {
	os.Setenv("REDIS_URL", "redis://localhost:6379/1")
	os.Setenv("ENV", "test")
	os.Setenv("BUS_BROKERS", "broker-a:9092, broker-b:9092")
	os.Setenv("WORKER_MAX_CONCURRENCY", "7")
	defer func() {
		os.Unsetenv("REDIS_URL")
		os.Unsetenv("ENV")
		os.Unsetenv("BUS_BROKERS")
		os.Unsetenv("WORKER_MAX_CONCURRENCY")
	}()

	cfg := config.Load()
	if cfg.RedisURL != "redis://localhost:6379/1" {
		t.Fatalf("expected REDIS_URL to be loaded, got %s", cfg.RedisURL)
	}
	if cfg.Env != "test" {
		t.Fatalf("expected ENV=test, got %s", cfg.Env)
	}
	if len(cfg.BusBrokers) != 2 || cfg.BusBrokers[0] != "broker-a:9092" || cfg.BusBrokers[1] != "broker-b:9092" {
		t.Fatalf("expected two trimmed brokers, got %v", cfg.BusBrokers)
	}
	if cfg.MaxConcurrency != 7 {
		t.Fatalf("expected MaxConcurrency=7, got %d", cfg.MaxConcurrency)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	os.Unsetenv("WORKER_RESIZE_MAX_WIDTH")
	os.Unsetenv("WORKER_RESIZE_MAX_HEIGHT")

	cfg := config.Load()
	if cfg.ResizeMaxWidth != 640 || cfg.ResizeMaxHeight != 480 {
		t.Fatalf("expected default resize dims 640x480, got %dx%d", cfg.ResizeMaxWidth, cfg.ResizeMaxHeight)
	}
	if len(cfg.WindowHorizons) != 3 {
		t.Fatalf("expected 3 window horizons, got %d", len(cfg.WindowHorizons))
	}
}
