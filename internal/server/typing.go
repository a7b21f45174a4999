package server

import (
	"sort"
	"time"
)

// typingEntry records a connection that signalled typing_start without a
// matching stop.
type typingEntry struct {
	connID string
	name   string
	since  time.Time
}

// TypingTracker remembers open typing signals per connection. Signals are
// relayed regardless; the tracker exists only so that stale indicators can be
// cleared when a connection goes away, sends, or stays silent too long.
type TypingTracker struct {
	active map[string]typingEntry
}

// NewTypingTracker returns an empty tracker.
func NewTypingTracker() *TypingTracker {
	return &TypingTracker{active: make(map[string]typingEntry)}
}

// Start records or refreshes a typing signal.
func (t *TypingTracker) Start(connID, name string, now time.Time) {
	t.active[connID] = typingEntry{connID: connID, name: name, since: now}
}

// Stop clears the connection's signal and returns the name it was typing as.
func (t *TypingTracker) Stop(connID string) (string, bool) {
	entry, ok := t.active[connID]
	if !ok {
		return "", false
	}
	delete(t.active, connID)
	return entry.name, true
}

// Expire clears and returns every signal older than ttl, oldest first.
func (t *TypingTracker) Expire(now time.Time, ttl time.Duration) []typingEntry {
	var expired []typingEntry
	for id, entry := range t.active {
		if now.Sub(entry.since) >= ttl {
			expired = append(expired, entry)
			delete(t.active, id)
		}
	}
	sort.Slice(expired, func(i, j int) bool {
		return expired[i].since.Before(expired[j].since)
	})
	return expired
}

// Len returns the number of open signals.
func (t *TypingTracker) Len() int {
	return len(t.active)
}

// typingFrame builds the user_typing relay for everyone but the sender.
func typingFrame(name string, typing bool, senderID string) (delivery, error) {
	payload, err := encodeEvent(EventUserTyping, TypingPayload{Name: name, Typing: typing})
	if err != nil {
		return delivery{}, err
	}
	return delivery{payload: payload, except: senderID}, nil
}
