// Package testhelpers provides common utilities for testing the chat relay.
//
// It contains helpers for creating test servers, dialing the WebSocket
// endpoint, exchanging protocol envelopes, and asserting HTTP responses, plus
// in-memory message store doubles.
package testhelpers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// TestOrigin is the Origin header sent by ConnectWebSocket. It matches the
// server's default allow-list.
const TestOrigin = "http://localhost:8080"

// Event is a decoded server frame.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Decode unmarshals the event payload into v.
func (e Event) Decode(t *testing.T, v any) {
	t.Helper()
	if err := json.Unmarshal(e.Data, v); err != nil {
		t.Fatalf("Failed to decode %s payload %s: %v", e.Event, string(e.Data), err)
	}
}

// CreateTestServer creates a test HTTP server with the given handler.
// It returns a running httptest.Server that should be closed after use.
func CreateTestServer(handler http.Handler) *httptest.Server {
	return httptest.NewServer(handler)
}

// WebSocketURL converts a test server URL into a ws:// URL for path.
func WebSocketURL(serverURL, path string) string {
	return "ws" + strings.TrimPrefix(serverURL, "http") + path
}

// AssertStatusCode checks if the HTTP response has the expected status code.
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status code %d, got %d", expected, resp.StatusCode)
	}
}

// AssertContentType checks if the HTTP response has the expected Content-Type header.
func AssertContentType(t *testing.T, resp *http.Response, expected string) {
	t.Helper()
	contentType := resp.Header.Get("Content-Type")
	if contentType != expected {
		t.Errorf("Expected content type %s, got %s", expected, contentType)
	}
}

// MakeRequest creates and executes an HTTP request, returning the response.
// It includes a 5-second timeout and fails the test if the request cannot be
// created or executed successfully.
func MakeRequest(t *testing.T, method, url string) *http.Response {
	t.Helper()

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequest(method, url, http.NoBody)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}

	return resp
}

// ConnectWebSocket creates a WebSocket connection to the specified URL.
func ConnectWebSocket(url string) (*websocket.Conn, error) {
	return ConnectWebSocketWithOrigin(url, TestOrigin)
}

// ConnectWebSocketWithOrigin dials url sending origin, which may be empty.
func ConnectWebSocketWithOrigin(url, origin string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// MustConnect dials url and registers the connection for cleanup.
func MustConnect(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, err := ConnectWebSocket(url)
	if err != nil {
		t.Fatalf("Failed to connect to %s: %v", url, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// SendEvent writes one envelope.
func SendEvent(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	frame := map[string]any{"event": event, "data": data}
	if err := conn.WriteJSON(frame); err != nil {
		t.Fatalf("Failed to send %s: %v", event, err)
	}
}

// ReceiveEvent reads one envelope, failing after timeout.
func ReceiveEvent(conn *websocket.Conn, timeout time.Duration) (Event, error) {
	var ev Event
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return ev, err
	}
	err := conn.ReadJSON(&ev)
	return ev, err
}

// CollectUntil reads envelopes until one of kind event arrives and returns
// all of them, the match last. A read timeout fails the test, and leaves the
// connection unusable, so it is only used where the event must arrive.
func CollectUntil(t *testing.T, conn *websocket.Conn, event string, timeout time.Duration) []Event {
	t.Helper()

	var seen []Event
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			t.Fatalf("Timed out waiting for %s; saw %v", event, kinds(seen))
		}
		ev, err := ReceiveEvent(conn, remaining)
		if err != nil {
			t.Fatalf("Failed waiting for %s (saw %v): %v", event, kinds(seen), err)
		}
		seen = append(seen, ev)
		if ev.Event == event {
			return seen
		}
	}
}

// WaitForEvent returns the next envelope of kind event, skipping others.
func WaitForEvent(t *testing.T, conn *websocket.Conn, event string, timeout time.Duration) Event {
	t.Helper()
	seen := CollectUntil(t, conn, event, timeout)
	return seen[len(seen)-1]
}

// FilterEvents returns the events of kind event.
func FilterEvents(events []Event, event string) []Event {
	var out []Event
	for _, ev := range events {
		if ev.Event == event {
			out = append(out, ev)
		}
	}
	return out
}

// CloseWebSocket gracefully closes a WebSocket connection.
func CloseWebSocket(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	return conn.Close()
}

// Eventually polls cond until it holds or timeout passes.
func Eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Condition not met within %s: %s", timeout, msg)
}

func kinds(events []Event) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Event)
	}
	return out
}
