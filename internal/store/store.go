// Package store persists chat messages for history replay. It offers a
// GORM/SQLite implementation and a Redis list implementation behind the
// Store interface.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Supported values for Config.Driver.
const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// ErrUnavailable is returned by Open when the backing storage cannot be reached.
var ErrUnavailable = errors.New("message store unavailable")

// ErrUnknownDriver is returned by Open for an unsupported Config.Driver.
var ErrUnknownDriver = errors.New("unknown message store driver")

// Message is a persisted chat entry. It is never mutated after creation.
type Message struct {
	ID        uint      `gorm:"primarykey" json:"-"`
	Name      string    `gorm:"size:100" json:"name"`
	Message   string    `gorm:"type:text" json:"message"`
	CreatedAt time.Time `gorm:"index;not null" json:"createdAt"`
}

// TableName returns the table name for Message model.
func (Message) TableName() string {
	return "messages"
}

// Store is an append-only message log queried in creation order.
type Store interface {
	// Append durably records msg.
	Append(ctx context.Context, msg *Message) error
	// All returns every message ordered by CreatedAt ascending. An empty log
	// yields an empty, non-nil slice.
	All(ctx context.Context) ([]Message, error)
	Ping(ctx context.Context) error
	Close() error
}

// Config selects and locates the backing storage.
type Config struct {
	Driver     string
	SQLitePath string
	RedisAddr  string
	RedisKey   string
}

// Open connects to the configured backend and verifies it is reachable.
func Open(ctx context.Context, cfg Config) (Store, error) {
	var (
		s   Store
		err error
	)

	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverSQLite:
		s, err = OpenSQLite(cfg.SQLitePath)
	case DriverRedis:
		s, err = OpenRedis(cfg.RedisAddr, cfg.RedisKey)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if err := s.Ping(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return s, nil
}
