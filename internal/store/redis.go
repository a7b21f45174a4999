package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the list key used when none is configured.
const DefaultRedisKey = "chat:messages"

// RedisStore keeps messages as JSON entries in a single Redis list.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore returns a store writing to the list at key.
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

// OpenRedis creates a client for addr. Reachability is checked by Ping.
func OpenRedis(addr, key string) (*RedisStore, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis address is empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	return NewRedisStore(client, key), nil
}

// Append pushes msg onto the tail of the list.
func (s *RedisStore) Append(ctx context.Context, msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	if err := s.client.RPush(ctx, s.key, data).Err(); err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// All reads the whole list and orders it by creation time. Entries that do
// not decode are logged and skipped.
func (s *RedisStore) All(ctx context.Context) ([]Message, error) {
	values, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	messages := make([]Message, 0, len(values))
	for _, v := range values {
		var msg Message
		if err := json.Unmarshal([]byte(v), &msg); err != nil {
			log.Printf("Skipping undecodable entry in %s: %v", s.key, err)
			continue
		}
		messages = append(messages, msg)
	}

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
	return messages, nil
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
