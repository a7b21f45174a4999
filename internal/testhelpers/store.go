package testhelpers

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Tyrowin/relaychat/internal/store"
)

// ErrStoreDown is returned by FailingStore.
var ErrStoreDown = errors.New("store down")

// MemoryStore is an in-memory message log safe for concurrent use.
type MemoryStore struct {
	mu       sync.Mutex
	messages []store.Message
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append records msg.
func (s *MemoryStore) Append(_ context.Context, msg *store.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg.ID = uint(len(s.messages) + 1)
	s.messages = append(s.messages, *msg)
	return nil
}

// All returns the log in append order.
func (s *MemoryStore) All(_ context.Context) ([]store.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(make([]store.Message, 0, len(s.messages)), s.messages...), nil
}

// Len returns the number of stored messages.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// SlowStore is a MemoryStore whose appends take Delay.
type SlowStore struct {
	MemoryStore
	Delay time.Duration
}

// NewSlowStore returns an empty store with the given append latency.
func NewSlowStore(delay time.Duration) *SlowStore {
	return &SlowStore{Delay: delay}
}

// Append waits for Delay, then records msg.
func (s *SlowStore) Append(ctx context.Context, msg *store.Message) error {
	time.Sleep(s.Delay)
	return s.MemoryStore.Append(ctx, msg)
}

// FailingStore rejects every append and, when FailReads is set, every query.
type FailingStore struct {
	FailReads bool

	mu       sync.Mutex
	attempts int
}

// Append counts the attempt and fails.
func (s *FailingStore) Append(_ context.Context, _ *store.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	return ErrStoreDown
}

// All fails when FailReads is set and is otherwise empty.
func (s *FailingStore) All(_ context.Context) ([]store.Message, error) {
	if s.FailReads {
		return nil, ErrStoreDown
	}
	return []store.Message{}, nil
}

// Attempts returns the number of append calls.
func (s *FailingStore) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}
