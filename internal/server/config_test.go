package server

import (
	"reflect"
	"testing"
	"time"

	"github.com/Tyrowin/relaychat/internal/store"
)

func TestNewConfig(t *testing.T) {
	config := NewConfig()

	if config.Port != ":8080" {
		t.Errorf("Expected default port :8080, got %s", config.Port)
	}
	if config.TypingTimeout != 5*time.Second {
		t.Errorf("Expected default typing timeout 5s, got %s", config.TypingTimeout)
	}
	if config.Store.Driver != store.DriverSQLite {
		t.Errorf("Expected sqlite store, got %s", config.Store.Driver)
	}
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", ":9090")
	t.Setenv("ALLOWED_ORIGINS", "http://a.example, https://b.example")
	t.Setenv("MAX_MESSAGE_SIZE", "2048")
	t.Setenv("RATE_LIMIT_BURST", "3")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2")
	t.Setenv("TYPING_TIMEOUT", "0")
	t.Setenv("PERSIST_QUEUE_SIZE", "32")
	t.Setenv("SHUTDOWN_TIMEOUT", "7")
	t.Setenv("STORE_DRIVER", "Redis")
	t.Setenv("DATABASE_PATH", "/tmp/chat.db")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_KEY", "room")

	config := NewConfigFromEnv()

	if config.Port != ":9090" {
		t.Errorf("Port = %s", config.Port)
	}
	if !reflect.DeepEqual(config.AllowedOrigins, []string{"http://a.example", "https://b.example"}) {
		t.Errorf("AllowedOrigins = %v", config.AllowedOrigins)
	}
	if config.MaxMessageSize != 2048 {
		t.Errorf("MaxMessageSize = %d", config.MaxMessageSize)
	}
	if config.RateLimit != (RateLimitConfig{Burst: 3, RefillInterval: 2 * time.Second}) {
		t.Errorf("RateLimit = %+v", config.RateLimit)
	}
	if config.TypingTimeout != 0 {
		t.Errorf("TypingTimeout = %s, want disabled", config.TypingTimeout)
	}
	if config.PersistQueueSize != 32 {
		t.Errorf("PersistQueueSize = %d", config.PersistQueueSize)
	}
	if config.ShutdownTimeout != 7*time.Second {
		t.Errorf("ShutdownTimeout = %s", config.ShutdownTimeout)
	}
	want := store.Config{Driver: "redis", SQLitePath: "/tmp/chat.db", RedisAddr: "redis:6379", RedisKey: "room"}
	if config.Store != want {
		t.Errorf("Store = %+v, want %+v", config.Store, want)
	}
}

func TestNewConfigFromEnvInvalidValues(t *testing.T) {
	t.Setenv("MAX_MESSAGE_SIZE", "-1")
	t.Setenv("RATE_LIMIT_BURST", "lots")
	t.Setenv("TYPING_TIMEOUT", "-3")

	config := NewConfigFromEnv()
	defaults := NewConfig()

	if config.MaxMessageSize != defaults.MaxMessageSize {
		t.Errorf("MaxMessageSize = %d", config.MaxMessageSize)
	}
	if config.RateLimit.Burst != defaults.RateLimit.Burst {
		t.Errorf("RateLimit.Burst = %d", config.RateLimit.Burst)
	}
	if config.TypingTimeout != defaults.TypingTimeout {
		t.Errorf("TypingTimeout = %s", config.TypingTimeout)
	}
}

func TestSanitizeFillsDefaults(t *testing.T) {
	cfg := Config{TypingTimeout: -time.Second}.sanitize()

	if cfg.Port != ":8080" || cfg.MaxMessageSize <= 0 || cfg.RateLimit.Burst <= 0 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.TypingTimeout != 0 {
		t.Errorf("negative typing timeout should disable expiry, got %s", cfg.TypingTimeout)
	}
	if cfg.PersistQueueSize <= 0 || cfg.PersistTimeout <= 0 || cfg.ShutdownTimeout <= 0 {
		t.Errorf("persistence defaults not applied: %+v", cfg)
	}
}
