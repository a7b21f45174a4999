package server

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/Tyrowin/relaychat/internal/store"
)

// MessageStore is the persistence collaborator behind the relay.
type MessageStore interface {
	Append(ctx context.Context, msg *store.Message) error
	All(ctx context.Context) ([]store.Message, error)
}

// Relay persists chat messages on a single journal goroutine and serves
// history. Each message is appended before it is released on Stored, in the
// order it was queued. A failed append is logged and the message is still
// released.
type Relay struct {
	store   MessageStore
	queue   chan store.Message
	stored  chan store.Message
	quit    chan struct{}
	timeout time.Duration
	done    chan struct{}
}

// NewRelay creates a relay whose journal buffers up to queueSize writes.
func NewRelay(messages MessageStore, queueSize int, timeout time.Duration) *Relay {
	if queueSize <= 0 {
		queueSize = defaultPersistQueueSize
	}
	if timeout <= 0 {
		timeout = defaultPersistTimeout
	}
	return &Relay{
		store:   messages,
		queue:   make(chan store.Message, queueSize),
		stored:  make(chan store.Message),
		quit:    make(chan struct{}),
		timeout: timeout,
		done:    make(chan struct{}),
	}
}

// newMessage builds a message stamped with at. It reports false when body is
// blank.
func newMessage(name, body string, at time.Time) (store.Message, bool) {
	if strings.TrimSpace(body) == "" {
		log.Printf("Dropping empty message from %q", name)
		return store.Message{}, false
	}
	return store.Message{Name: name, Message: body, CreatedAt: at}, true
}

// Stored yields each message once its append has returned.
func (r *Relay) Stored() <-chan store.Message {
	return r.stored
}

// Run drains the journal until Close is called. It must run in its own
// goroutine.
func (r *Relay) Run() {
	defer close(r.done)
	for msg := range r.queue {
		r.write(&msg)
		select {
		case r.stored <- msg:
		case <-r.quit:
		}
	}
}

// Close stops accepting writes and waits for queued ones to be appended.
// Messages appended after Close are no longer released on Stored.
func (r *Relay) Close() {
	close(r.quit)
	close(r.queue)
	<-r.done
}

func (r *Relay) write(msg *store.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.store.Append(ctx, msg); err != nil {
		log.Printf("Failed to persist message from %q: %v", msg.Name, err)
	}
}

// History returns every stored message oldest first, never nil.
func (r *Relay) History(ctx context.Context) ([]MessagePayload, error) {
	messages, err := r.store.All(ctx)
	if err != nil {
		return nil, err
	}

	history := make([]MessagePayload, 0, len(messages))
	for _, msg := range messages {
		history = append(history, newMessagePayload(msg))
	}
	return history, nil
}
