// Package server defines the tagged envelope exchanged over the WebSocket and
// validates inbound payloads before they reach the hub.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Tyrowin/relaychat/internal/store"
)

// Client to server events.
const (
	EventJoin        = "join"
	EventSendMessage = "send_message"
	EventTypingStart = "typing_start"
	EventTypingStop  = "typing_stop"
	EventLeave       = "leave"
)

// Server to client events.
const (
	EventReceiveMessage = "receive_message"
	EventOnlineUsers    = "online_users"
	EventUserTyping     = "user_typing"
	EventUserJoined     = "user_joined"
	EventUserLeft       = "user_left"
)

// Validation errors returned by ParseIntent.
var (
	ErrMalformedPayload = errors.New("malformed payload")
	ErrUnknownEvent     = errors.New("unknown event")
	ErrEmptyName        = errors.New("name cannot be empty")
	ErrEmptyMessage     = errors.New("message cannot be empty")
)

// Envelope is the wire frame: a discriminant plus a per-event payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ChatPayload is the send_message payload.
type ChatPayload struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// MessagePayload is the receive_message payload and the history record.
type MessagePayload struct {
	Name      string    `json:"name"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// TypingPayload is the user_typing payload.
type TypingPayload struct {
	Name   string `json:"name"`
	Typing bool   `json:"typing"`
}

// PresencePayload is the user_joined and user_left payload.
type PresencePayload struct {
	Name string `json:"name"`
}

// Intent is a validated client request.
type Intent struct {
	Event string
	// Name is trimmed. It may be empty for everything but join, in which case
	// the connection's bound name is used.
	Name string
	// Message is kept verbatim for send_message.
	Message string
}

// ParseIntent decodes and validates one inbound frame.
func ParseIntent(raw []byte) (Intent, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Intent{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	intent := Intent{Event: env.Event}

	switch env.Event {
	case EventJoin, EventTypingStart, EventTypingStop, EventLeave:
		name, err := decodeName(env.Data)
		if err != nil {
			return Intent{}, err
		}
		if env.Event == EventJoin && name == "" {
			return Intent{}, ErrEmptyName
		}
		intent.Name = name

	case EventSendMessage:
		var payload ChatPayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			return Intent{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		if strings.TrimSpace(payload.Message) == "" {
			return Intent{}, ErrEmptyMessage
		}
		intent.Name = strings.TrimSpace(payload.Name)
		intent.Message = payload.Message

	default:
		return Intent{}, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}

	return intent, nil
}

// decodeName reads a string payload. A missing payload is an empty name.
func decodeName(data json.RawMessage) (string, error) {
	if len(data) == 0 || string(data) == "null" {
		return "", nil
	}

	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return strings.TrimSpace(name), nil
}

// encodeEvent builds an outbound frame.
func encodeEvent(event string, data any) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: payload})
}

func newMessagePayload(msg store.Message) MessagePayload {
	return MessagePayload{
		Name:      msg.Name,
		Message:   msg.Message,
		CreatedAt: msg.CreatedAt,
	}
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
