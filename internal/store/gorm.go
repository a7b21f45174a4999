package store

import (
	"context"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormStore keeps messages in a relational table through GORM.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore migrates the messages table on db and returns a store over it.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&Message{}); err != nil {
		return nil, fmt.Errorf("failed to migrate messages: %w", err)
	}
	return &GormStore{db: db}, nil
}

// OpenSQLite opens (or creates) the SQLite database at path. ":memory:" is
// accepted for ephemeral use.
func OpenSQLite(path string) (*GormStore, error) {
	if path == "" {
		path = "chat.db"
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %q: %w", path, err)
	}

	// SQLite allows a single writer, and each ":memory:" connection is its
	// own database.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	return NewGormStore(db)
}

// Append inserts msg.
func (s *GormStore) Append(ctx context.Context, msg *Message) error {
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// All returns every message by creation time, ties broken by insertion order.
func (s *GormStore) All(ctx context.Context) ([]Message, error) {
	messages := make([]Message, 0)
	err := s.db.WithContext(ctx).
		Order("created_at ASC").
		Order("id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

// Ping checks the database connection.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the database connection.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
