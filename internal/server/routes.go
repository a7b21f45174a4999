// Package server wires HTTP handlers into a gorilla/mux router.
package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

// SetupRoutes configures the router: health on "/" and "/health", the
// WebSocket endpoint on "/ws", and message history on "/messages".
func SetupRoutes(h *Handlers) *mux.Router {
	r := mux.NewRouter()
	r.Use(h.cors)

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/ws", h.WebSocket).Methods(http.MethodGet)
	r.HandleFunc("/messages", h.History).Methods(http.MethodGet)
	r.HandleFunc("/", h.Health)
	return r
}
