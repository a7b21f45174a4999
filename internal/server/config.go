// Package server provides configuration helpers that define runtime defaults,
// validation, and rate-limiting parameters for the chat relay.
package server

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Tyrowin/relaychat/internal/store"
)

// RateLimitConfig defines the parameters for per-connection message rate limiting.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// Config holds the server configuration settings including security controls.
type Config struct {
	Port           string
	AllowedOrigins []string
	MaxMessageSize int64
	RateLimit      RateLimitConfig

	// TypingTimeout clears a typing indicator that was never stopped.
	// Zero disables expiry.
	TypingTimeout time.Duration

	// PersistQueueSize bounds the number of messages waiting to be written.
	// A full queue holds back new messages until the journal catches up.
	PersistQueueSize int
	// PersistTimeout bounds a single store append.
	PersistTimeout time.Duration

	ShutdownTimeout time.Duration

	Store store.Config
}

const (
	defaultPort             = ":8080"
	defaultMaxMessageSize   = 4096
	defaultRateLimitBurst   = 10
	defaultTypingTimeout    = 5 * time.Second
	defaultPersistQueueSize = 256
	defaultPersistTimeout   = 5 * time.Second
	defaultShutdownTimeout  = 30 * time.Second
)

func defaultConfig() Config {
	return Config{
		Port: defaultPort,
		AllowedOrigins: []string{
			"http://localhost:8080",
		},
		MaxMessageSize: defaultMaxMessageSize,
		RateLimit: RateLimitConfig{
			Burst:          defaultRateLimitBurst,
			RefillInterval: time.Second,
		},
		TypingTimeout:    defaultTypingTimeout,
		PersistQueueSize: defaultPersistQueueSize,
		PersistTimeout:   defaultPersistTimeout,
		ShutdownTimeout:  defaultShutdownTimeout,
		Store: store.Config{
			Driver:     store.DriverSQLite,
			SQLitePath: "chat.db",
			RedisAddr:  "localhost:6379",
			RedisKey:   store.DefaultRedisKey,
		},
	}
}

// sanitize fills zero or invalid values with defaults. TypingTimeout is left
// alone since zero is meaningful.
func (c Config) sanitize() Config {
	if c.Port == "" {
		c.Port = defaultPort
	}

	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = defaultMaxMessageSize
	}

	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = defaultRateLimitBurst
	}

	if c.RateLimit.RefillInterval <= 0 {
		c.RateLimit.RefillInterval = time.Second
	}

	if c.TypingTimeout < 0 {
		c.TypingTimeout = 0
	}

	if c.PersistQueueSize <= 0 {
		c.PersistQueueSize = defaultPersistQueueSize
	}

	if c.PersistTimeout <= 0 {
		c.PersistTimeout = defaultPersistTimeout
	}

	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = defaultShutdownTimeout
	}

	c.AllowedOrigins = append([]string(nil), c.AllowedOrigins...)
	return c
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// NewConfigFromEnv creates a Config instance from environment variables.
// Falls back to default values if environment variables are not set.
func NewConfigFromEnv() *Config {
	cfg := defaultConfig()

	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = port
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseOrigins(origins)
	}

	if maxSize := os.Getenv("MAX_MESSAGE_SIZE"); maxSize != "" {
		cfg.MaxMessageSize = parseMaxMessageSize(maxSize, cfg.MaxMessageSize)
	}

	if burst := os.Getenv("RATE_LIMIT_BURST"); burst != "" {
		cfg.RateLimit.Burst = parseIntValue(burst, cfg.RateLimit.Burst)
	}

	if interval := os.Getenv("RATE_LIMIT_REFILL_INTERVAL"); interval != "" {
		cfg.RateLimit.RefillInterval = parseSeconds(interval, cfg.RateLimit.RefillInterval)
	}

	if timeout, ok := os.LookupEnv("TYPING_TIMEOUT"); ok {
		cfg.TypingTimeout = parseTypingTimeout(timeout, cfg.TypingTimeout)
	}

	if size := os.Getenv("PERSIST_QUEUE_SIZE"); size != "" {
		cfg.PersistQueueSize = parseIntValue(size, cfg.PersistQueueSize)
	}

	if timeout := os.Getenv("SHUTDOWN_TIMEOUT"); timeout != "" {
		cfg.ShutdownTimeout = parseSeconds(timeout, cfg.ShutdownTimeout)
	}

	if driver := os.Getenv("STORE_DRIVER"); driver != "" {
		cfg.Store.Driver = strings.ToLower(strings.TrimSpace(driver))
	}

	if path := os.Getenv("DATABASE_PATH"); path != "" {
		cfg.Store.SQLitePath = path
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Store.RedisAddr = addr
	}

	if key := os.Getenv("REDIS_KEY"); key != "" {
		cfg.Store.RedisKey = key
	}

	return &cfg
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseMaxMessageSize(value string, defaultValue int64) int64 {
	if size, err := strconv.ParseInt(value, 10, 64); err == nil && size > 0 {
		return size
	}
	return defaultValue
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

func parseSeconds(value string, defaultValue time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}

// parseTypingTimeout accepts "0" to disable expiry.
func parseTypingTimeout(value string, defaultValue time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(value); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
