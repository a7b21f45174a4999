// Package server exposes HTTP handlers: the WebSocket upgrade, the message
// history endpoint, and health checks.
package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

// Handlers serves the HTTP surface of a hub.
type Handlers struct {
	hub      *Hub
	origins  *originPolicy
	upgrader websocket.Upgrader
}

// NewHandlers builds the handlers for hub using the hub's origin allow-list.
func NewHandlers(hub *Hub) *Handlers {
	origins := newOriginPolicy(hub.cfg.AllowedOrigins)
	return &Handlers{
		hub:     hub,
		origins: origins,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.checkOrigin,
		},
	}
}

// WebSocket upgrades the request and hands the connection to the hub, which
// launches the client's pumps.
func (h *Handlers) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := NewClient(conn, h.hub, r.RemoteAddr)
	if !h.hub.Register(client) {
		log.Printf("Rejecting connection from %s: hub is shutting down", r.RemoteAddr)
		_ = conn.Close()
	}
}

// History returns every stored message oldest first as a JSON array.
func (h *Handlers) History(w http.ResponseWriter, r *http.Request) {
	messages, err := h.hub.Relay().History(r.Context())
	if err != nil {
		log.Printf("Error loading message history: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

// Health provides a simple health check endpoint that returns server status.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Chat relay is running! Online users: %d", len(h.hub.Roster()))
}

// cors lets allowed browser origins read the history endpoint.
func (h *Handlers) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && h.origins.allows(r) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Add("Vary", "Origin")
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Error writing JSON response: %v", err)
	}
}
